package engine

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hospitality/internal/rewards/domain"
)

// WindowStart returns the inclusive lower bound of the rolling window.
func WindowStart(now time.Time, windowDays int) time.Time {
	return now.UTC().AddDate(0, 0, -windowDays)
}

// FilterWindow returns the orders of customerID created at or after
// now - windowDays. Malformed orders are skipped. Input order is irrelevant.
func FilterWindow(orders []domain.Order, customerID snowflake.ID, now time.Time, windowDays int) []domain.Order {
	byCustomer, _ := indexOrders(orders)
	return filterWindow(byCustomer[customerID], WindowStart(now, windowDays))
}

// filterWindow keeps the already validated orders created at or after start.
func filterWindow(orders []domain.Order, start time.Time) []domain.Order {
	var subset []domain.Order
	for _, order := range orders {
		if !order.CreatedAt.Before(start) {
			subset = append(subset, order)
		}
	}
	return subset
}

type windowTotals struct {
	count     int
	spent     decimal.Decimal
	lastOrder *time.Time
}

// summarizeWindow counts and sums a filtered subset. The last order date is
// the maximum creation time; the subset carries no ordering guarantee.
func summarizeWindow(orders []domain.Order) windowTotals {
	totals := windowTotals{spent: decimal.Zero}
	for _, order := range orders {
		totals.count++
		totals.spent = totals.spent.Add(order.TotalAmount)
		if totals.lastOrder == nil || order.CreatedAt.After(*totals.lastOrder) {
			createdAt := order.CreatedAt.UTC()
			totals.lastOrder = &createdAt
		}
	}
	return totals
}

// indexOrders validates every order once and groups the valid ones by
// customer. Malformed orders are returned separately.
func indexOrders(orders []domain.Order) (map[snowflake.ID][]domain.Order, []domain.MalformedRecordError) {
	byCustomer := make(map[snowflake.ID][]domain.Order)
	var skipped []domain.MalformedRecordError
	for _, order := range orders {
		if err := order.Validate(); err != nil {
			skipped = append(skipped, asMalformed(err))
			continue
		}
		byCustomer[order.CustomerID] = append(byCustomer[order.CustomerID], order)
	}
	return byCustomer, skipped
}
