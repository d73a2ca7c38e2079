// Package engine computes guest reward records and the fleet summary from an
// in-memory snapshot of customers, orders and promotion rules.
package engine

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hospitality/internal/rewards/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Engine struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg: cfg.withDefaults(),
		log: log.Named("rewards.engine"),
	}
}

// Config returns the effective policy.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate runs the full pipeline over one snapshot. The result depends only
// on its inputs; customers are evaluated on a bounded pool and collected by
// position, so the outcome matches a sequential run. The only error is ctx
// cancellation.
func (e *Engine) Evaluate(
	ctx context.Context,
	customers []domain.Customer,
	orders []domain.Order,
	rules []domain.PromotionRule,
	now time.Time,
) (domain.Evaluation, error) {
	now = now.UTC()
	start := WindowStart(now, e.cfg.WindowDays)

	ids, skipped := e.customerIDs(customers)
	byCustomer, skippedOrders := indexOrders(orders)
	skipped = append(skipped, skippedOrders...)
	activeRules, skippedRules := validRules(rules)
	skipped = append(skipped, skippedRules...)

	for _, malformed := range skipped {
		e.log.Warn("skipping malformed record",
			zap.String("kind", string(malformed.Kind)),
			zap.String("id", malformed.ID),
			zap.String("reason", malformed.Reason),
		)
	}
	if len(ids) == 0 || len(orders) == 0 {
		e.log.Info("evaluating degenerate input",
			zap.Error(domain.ErrDegenerateInput),
			zap.Int("customers", len(ids)),
			zap.Int("orders", len(orders)),
		)
	}

	records := make([]domain.RewardRecord, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = e.evaluateCustomer(id, byCustomer[id], activeRules, start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Evaluation{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Evaluation{}, err
	}

	byID := make(map[snowflake.ID]domain.RewardRecord, len(records))
	for _, record := range records {
		byID[record.CustomerID] = record
	}
	if skipped == nil {
		skipped = []domain.MalformedRecordError{}
	}

	return domain.Evaluation{
		Records:     byID,
		Summary:     Aggregate(records, len(ids)),
		Skipped:     skipped,
		EvaluatedAt: now,
		WindowStart: start,
	}, nil
}

func (e *Engine) evaluateCustomer(
	customerID snowflake.ID,
	orders []domain.Order,
	rules []domain.PromotionRule,
	start time.Time,
) domain.RewardRecord {
	totals := summarizeWindow(filterWindow(orders, start))

	loyalty := EvaluateLoyalty(totals.count, totals.spent, e.cfg.LoyaltyThreshold, e.cfg.LoyaltyRate)
	promotions := matchRules(totals.count, rules, e.cfg.PromotionValue)

	totalDiscount := loyalty.Discount.Add(promotions.Benefit)
	finalAmount := totals.spent.Sub(totalDiscount)
	if finalAmount.IsNegative() {
		finalAmount = decimal.Zero
	}

	return domain.RewardRecord{
		CustomerID:         customerID,
		OrderCountInWindow: totals.count,
		TotalSpentInWindow: totals.spent,
		IsLoyal:            loyalty.IsLoyal,
		LoyaltyDiscount:    loyalty.Discount,
		AppliedPromotions:  promotions.Applied,
		PromotionBenefit:   promotions.Benefit,
		TotalDiscount:      totalDiscount,
		FinalAmount:        finalAmount,
		LastOrderDate:      totals.lastOrder,
	}
}

// customerIDs returns the distinct valid customer IDs in input order.
func (e *Engine) customerIDs(customers []domain.Customer) ([]snowflake.ID, []domain.MalformedRecordError) {
	ids := make([]snowflake.ID, 0, len(customers))
	seen := make(map[snowflake.ID]struct{}, len(customers))
	var skipped []domain.MalformedRecordError
	for _, customer := range customers {
		if err := customer.Validate(); err != nil {
			skipped = append(skipped, asMalformed(err))
			continue
		}
		if _, ok := seen[customer.ID]; ok {
			continue
		}
		seen[customer.ID] = struct{}{}
		ids = append(ids, customer.ID)
	}
	return ids, skipped
}
