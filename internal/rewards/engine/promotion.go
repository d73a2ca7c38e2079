package engine

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hospitality/internal/rewards/domain"
)

// PromotionResult is the stacked benefit of every qualifying rule.
type PromotionResult struct {
	Applied []domain.AppliedPromotion
	Benefit decimal.Decimal
	// Skipped lists rules that could not be matched at all.
	Skipped []domain.MalformedRecordError
}

// MatchPromotions applies every qualifying rule independently and sums the
// results. Rules never exclude or override each other. Malformed rules are
// reported in Skipped.
func MatchPromotions(orderCount int, rules []domain.PromotionRule, defaultValue decimal.Decimal) PromotionResult {
	valid, skipped := validRules(rules)
	result := matchRules(orderCount, valid, defaultValue)
	result.Skipped = skipped
	return result
}

// matchRules stacks the benefits of rules that were validated up front.
func matchRules(orderCount int, rules []domain.PromotionRule, defaultValue decimal.Decimal) PromotionResult {
	result := PromotionResult{
		Applied: []domain.AppliedPromotion{},
		Benefit: decimal.Zero,
	}
	for _, rule := range rules {
		switch rule.Type {
		case domain.PromotionTypeProduct:
			applied, ok := applyProductRule(orderCount, rule, defaultValue)
			if !ok {
				continue
			}
			result.Applied = append(result.Applied, applied)
			result.Benefit = result.Benefit.Add(applied.Value)
		case domain.PromotionTypeOther:
			// carries no order-count benefit
		}
	}
	return result
}

func applyProductRule(orderCount int, rule domain.PromotionRule, defaultValue decimal.Decimal) (domain.AppliedPromotion, bool) {
	if rule.RequiredOrderCount <= 0 || orderCount < rule.RequiredOrderCount {
		return domain.AppliedPromotion{}, false
	}
	times := orderCount / rule.RequiredOrderCount
	value := rule.ValuePerApplication(defaultValue).Mul(decimal.NewFromInt(int64(times)))
	return domain.AppliedPromotion{
		Rule:         rule,
		TimesApplied: times,
		Value:        value,
	}, true
}

// validRules splits rules into matchable ones and reports the rest.
func validRules(rules []domain.PromotionRule) ([]domain.PromotionRule, []domain.MalformedRecordError) {
	valid := make([]domain.PromotionRule, 0, len(rules))
	var skipped []domain.MalformedRecordError
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			skipped = append(skipped, asMalformed(err))
			continue
		}
		valid = append(valid, rule)
	}
	return valid, skipped
}

func asMalformed(err error) domain.MalformedRecordError {
	var malformed *domain.MalformedRecordError
	if errors.As(err, &malformed) {
		return *malformed
	}
	return domain.MalformedRecordError{Reason: err.Error(), Err: err}
}
