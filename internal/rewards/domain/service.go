package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderFilter narrows a bulk order fetch.
type OrderFilter struct {
	// CreatedFrom drops orders created before the given instant. Orders with
	// an unknown creation time are still returned so they can be reported.
	CreatedFrom *time.Time
}

// CustomerSource lists every customer in one bulk call.
type CustomerSource interface {
	List(ctx context.Context) ([]Customer, error)
}

// OrderSource lists orders in bulk; partitioning by customer happens in memory.
type OrderSource interface {
	ListAll(ctx context.Context, filter OrderFilter) ([]Order, error)
}

// PromotionSource lists every configured promotion rule.
type PromotionSource interface {
	ListAll(ctx context.Context) ([]PromotionRule, error)
}

// PromotionRepository stores promotion rules.
type PromotionRepository interface {
	PromotionSource
	Insert(ctx context.Context, rule *PromotionRule) error
}

// EvaluateRequest carries an already-deserialized snapshot to evaluate ad hoc.
type EvaluateRequest struct {
	Customers      []Customer
	Orders         []Order
	PromotionRules []PromotionRule
	Now            *time.Time
}

// Service exposes reward evaluation to the admin client.
type Service interface {
	// Refresh fetches a fresh snapshot, evaluates it and replaces the latest result.
	Refresh(ctx context.Context) (*Evaluation, error)
	// Latest returns the last completed evaluation, refreshing when absent or stale.
	Latest(ctx context.Context) (*Evaluation, error)
	GetRecord(ctx context.Context, customerID string) (*RewardRecord, error)
	// Evaluate runs the engine on the given snapshot without storing the result.
	Evaluate(ctx context.Context, req EvaluateRequest) (*Evaluation, error)
}

type CreatePromotionRequest struct {
	Title               string           `json:"title"`
	Type                string           `json:"type"`
	RequiredOrderCount  int              `json:"required_order_count"`
	PerApplicationValue *decimal.Decimal `json:"per_application_value"`
	Description         string           `json:"description"`
}

// PromotionService manages promotion rules.
type PromotionService interface {
	List(ctx context.Context) ([]PromotionRule, error)
	Create(ctx context.Context, req CreatePromotionRequest) (*PromotionRule, error)
}
