package logging

import (
	"context"
)

const (
	PassIDKey       = "pass_id"
	SubscriptionKey = "subscription"
	ServiceNameKey  = "service_name"
)

func WithPassID(ctx context.Context, passID string) context.Context {
	return context.WithValue(ctx, PassIDKey, passID)
}

func WithSubscription(ctx context.Context, subscription string) context.Context {
	return context.WithValue(ctx, SubscriptionKey, subscription)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetPassID(ctx context.Context) string {
	if passID, ok := ctx.Value(PassIDKey).(string); ok {
		return passID
	}
	return ""
}

func GetSubscription(ctx context.Context) string {
	if subscription, ok := ctx.Value(SubscriptionKey).(string); ok {
		return subscription
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 6)

	if passID := GetPassID(ctx); passID != "" {
		fields = append(fields, "pass_id", passID)
	}

	if subscription := GetSubscription(ctx); subscription != "" {
		fields = append(fields, "subscription", subscription)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
