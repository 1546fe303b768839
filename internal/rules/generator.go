package rules

import (
	"errors"
	"fmt"
	"strings"

	"rulesync/internal/constants"
)

// ErrMessageTypeTooLong is returned when a single type-match clause plus the
// fixed predicates cannot fit under the expression length cap. No packing of
// such an input exists, so generation fails rather than emitting a rule the
// broker would reject.
var ErrMessageTypeTooLong = errors.New("message type does not fit within the filter expression length cap")

// Generator compiles the message types a subscriber handles into broker
// filter rules. Every produced expression stays under the broker's length
// cap; when the type-match clause would overflow, the rule is closed and the
// next ordinal opened.
//
// Generate is a pure function of its inputs plus the subscriber name and
// length cap bound at construction, so it is safe for concurrent use.
type Generator struct {
	subscriberName string
	maxLength      int
}

// NewGenerator binds the subscriber's own name, used by the
// specific-subscriber predicate, and the broker's maximum filter expression
// length.
func NewGenerator(subscriberName string, maxExpressionLength int) *Generator {
	if maxExpressionLength <= 0 {
		maxExpressionLength = constants.MaxFilterExpressionLength
	}
	return &Generator{
		subscriberName: subscriberName,
		maxLength:      maxExpressionLength,
	}
}

// Generate produces the desired rule set for the given message types.
// Ordinals start at 1 and are contiguous; output order follows input order;
// the result is empty iff messageTypes is empty. A message type whose clause
// cannot fit under the cap even alone in a rule fails the whole call with
// ErrMessageTypeTooLong.
func (g *Generator) Generate(messageTypes []string, handlerIdentity string, omitSpecificSubscriber bool, v Version) ([]RuleDefinition, error) {
	if len(messageTypes) == 0 {
		return nil, nil
	}

	suffix := g.fixedPredicateSuffix(handlerIdentity, omitSpecificSubscriber)

	var defs []RuleDefinition
	var clauses []string
	clausesLen := 0

	flush := func() {
		expr := "(" + strings.Join(clauses, " OR ") + ")" + suffix
		defs = append(defs, RuleDefinition{
			Name:             EncodeRuleName(len(defs)+1, v),
			FilterExpression: expr,
		})
		clauses = clauses[:0]
		clausesLen = 0
	}

	for _, messageType := range messageTypes {
		clause := fmt.Sprintf("%s = '%s'", constants.PropertyMessageType, messageType)

		// The clause must fit in a rule of its own; otherwise no split
		// can satisfy the cap.
		if 2+len(clause)+len(suffix) > g.maxLength {
			return nil, fmt.Errorf("%w: %q needs %d characters against a cap of %d",
				ErrMessageTypeTooLong, messageType, 2+len(clause)+len(suffix), g.maxLength)
		}

		// Total length if this clause joins the current rule: parens
		// around the OR group, " OR " separators, fixed predicates.
		candidate := 2 + clausesLen + len(clause) + len(suffix)
		if len(clauses) > 0 {
			candidate += len(" OR ")
		}

		if len(clauses) > 0 && candidate > g.maxLength {
			flush()
		}

		if len(clauses) > 0 {
			clausesLen += len(" OR ")
		}
		clauses = append(clauses, clause)
		clausesLen += len(clause)
	}

	if len(clauses) > 0 {
		flush()
	}

	return defs, nil
}

// fixedPredicateSuffix builds the predicates shared by every generated rule:
// domain ownership, synthetic-traffic exclusion and, unless omitted, the
// specific-subscriber guard.
func (g *Generator) fixedPredicateSuffix(handlerIdentity string, omitSpecificSubscriber bool) string {
	var b strings.Builder

	b.WriteString(" AND ")
	b.WriteString(fmt.Sprintf("'%s.' like %s + '%%'", domainPrefix(handlerIdentity), constants.PropertyDomainUnderTest))

	b.WriteString(" AND ")
	b.WriteString(fmt.Sprintf("(%[1]s IS NULL OR %[1]s NOT IN ('true', 'True', 'TRUE'))", constants.PropertySynthetic))

	if !omitSpecificSubscriber {
		b.WriteString(" AND ")
		b.WriteString(fmt.Sprintf("(%[1]s IS NULL OR %[1]s = '%s')", constants.PropertySpecificSubscriber, g.subscriberName))
	}

	return b.String()
}

// domainPrefix derives the owning domain from a dotted handler identity:
// every segment up to and including the sub-domain, i.e. the identity minus
// its final segment. A single-segment identity is its own domain.
func domainPrefix(handlerIdentity string) string {
	idx := strings.LastIndex(handlerIdentity, ".")
	if idx < 0 {
		return handlerIdentity
	}
	return handlerIdentity[:idx]
}
