package subscription

// Wire types for the broker's rule management API.

type ruleResource struct {
	Name             string `json:"name"`
	FilterExpression string `json:"filter_expression"`
}

type listRulesResponse struct {
	Rules []ruleResource `json:"rules"`
}

type upsertRuleRequest struct {
	FilterExpression string `json:"filter_expression"`
}
