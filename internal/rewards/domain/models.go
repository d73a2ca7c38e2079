// Package domain contains guest reward models, data source contracts and errors.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CustomerStatus represents the lifecycle state of a guest account.
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
	CustomerStatusBlocked  CustomerStatus = "blocked"
)

// OrderStatus represents the settlement state of a guest order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Customer is a hotel guest known to the back office.
type Customer struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Status    CustomerStatus    `gorm:"type:text;not null;default:active" json:"status"`
	JoinDate  time.Time         `gorm:"not null" json:"join_date"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

// Order is a single guest purchase (room, food and beverage, services).
// CustomerID and CreatedAt are nullable upstream; a zero value marks the
// record as malformed.
type Order struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	CustomerID  snowflake.ID      `gorm:"index" json:"customer_id"`
	CreatedAt   time.Time         `gorm:"index;autoCreateTime:false" json:"created_at"`
	TotalAmount decimal.Decimal   `gorm:"type:numeric;not null;default:0" json:"total_amount"`
	Status      OrderStatus       `gorm:"type:text;not null;default:pending" json:"status"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// PromotionType is the closed set of promotion kinds.
type PromotionType string

const (
	// PromotionTypeProduct grants a fixed benefit every N orders in the window.
	PromotionTypeProduct PromotionType = "product"
	// PromotionTypeOther is informational and never grants an order-count benefit.
	PromotionTypeOther PromotionType = "other"
)

// PromotionRule is a configured "N orders in window" condition.
type PromotionRule struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	Title              string        `gorm:"type:text;not null" json:"title"`
	Type               PromotionType `gorm:"type:text;not null" json:"type"`
	RequiredOrderCount int           `gorm:"not null" json:"required_order_count"`
	// PerApplicationValue overrides the configured per-match value when set.
	PerApplicationValue decimal.NullDecimal `gorm:"type:numeric" json:"per_application_value"`
	Description         string              `gorm:"type:text" json:"description"`
	CreatedAt           time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (PromotionRule) TableName() string { return "promotion_rules" }

// ValuePerApplication returns the rule override or the provided default.
func (r PromotionRule) ValuePerApplication(defaultValue decimal.Decimal) decimal.Decimal {
	if r.PerApplicationValue.Valid {
		return r.PerApplicationValue.Decimal
	}
	return defaultValue
}

// AppliedPromotion records how a single rule contributed to a reward.
type AppliedPromotion struct {
	Rule         PromotionRule   `json:"rule"`
	TimesApplied int             `json:"times_applied"`
	Value        decimal.Decimal `json:"value"`
}

// RewardRecord is the computed per-customer result of one evaluation run.
type RewardRecord struct {
	CustomerID         snowflake.ID       `json:"customer_id"`
	OrderCountInWindow int                `json:"order_count_in_window"`
	TotalSpentInWindow decimal.Decimal    `json:"total_spent_in_window"`
	IsLoyal            bool               `json:"is_loyal"`
	LoyaltyDiscount    decimal.Decimal    `json:"loyalty_discount"`
	AppliedPromotions  []AppliedPromotion `json:"applied_promotions"`
	PromotionBenefit   decimal.Decimal    `json:"promotion_benefit"`
	TotalDiscount      decimal.Decimal    `json:"total_discount"`
	FinalAmount        decimal.Decimal    `json:"final_amount"`
	LastOrderDate      *time.Time         `json:"last_order_date"`
}

// FleetSummary is the cross-customer rollup of one evaluation run.
type FleetSummary struct {
	TotalCustomers           int             `json:"total_customers"`
	LoyalCustomerCount       int             `json:"loyal_customer_count"`
	TotalDiscountGiven       decimal.Decimal `json:"total_discount_given"`
	AverageOrdersPerCustomer float64         `json:"average_orders_per_customer"`
	TotalPromotionsApplied   int             `json:"total_promotions_applied"`
}

// Evaluation is the immutable output of one evaluation run. It is replaced
// wholesale by the next run and never mutated.
type Evaluation struct {
	Records     map[snowflake.ID]RewardRecord `json:"records"`
	Summary     FleetSummary                  `json:"summary"`
	Skipped     []MalformedRecordError        `json:"skipped"`
	EvaluatedAt time.Time                     `json:"evaluated_at"`
	WindowStart time.Time                     `json:"window_start"`
}

// Record returns the reward record of a customer.
func (e *Evaluation) Record(customerID snowflake.ID) (RewardRecord, bool) {
	if e == nil {
		return RewardRecord{}, false
	}
	record, ok := e.Records[customerID]
	return record, ok
}
