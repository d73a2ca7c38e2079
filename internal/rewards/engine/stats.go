package engine

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hospitality/internal/rewards/domain"
)

// Aggregate folds reward records into a fleet summary in a single pass.
func Aggregate(records []domain.RewardRecord, customerCount int) domain.FleetSummary {
	summary := domain.FleetSummary{
		TotalCustomers:     customerCount,
		TotalDiscountGiven: decimal.Zero,
	}

	totalOrders := 0
	for _, record := range records {
		summary.TotalDiscountGiven = summary.TotalDiscountGiven.Add(record.TotalDiscount)
		if record.IsLoyal {
			summary.LoyalCustomerCount++
		}
		summary.TotalPromotionsApplied += len(record.AppliedPromotions)
		totalOrders += record.OrderCountInWindow
	}

	if customerCount > 0 {
		summary.AverageOrdersPerCustomer = float64(totalOrders) / float64(customerCount)
	}
	return summary
}
