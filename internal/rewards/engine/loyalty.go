package engine

import "github.com/shopspring/decimal"

// LoyaltyResult is the VIP status of a guest and the discount it earns.
type LoyaltyResult struct {
	IsLoyal  bool
	Discount decimal.Decimal
}

// EvaluateLoyalty is total over non-negative inputs.
func EvaluateLoyalty(orderCount int, totalSpent decimal.Decimal, threshold int, rate decimal.Decimal) LoyaltyResult {
	if orderCount < threshold {
		return LoyaltyResult{Discount: decimal.Zero}
	}
	return LoyaltyResult{
		IsLoyal:  true,
		Discount: totalSpent.Mul(rate),
	}
}
