// Package repository reads reward inputs from the back-office database.
package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hospitality/internal/rewards/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type customerRepo struct {
	db *gorm.DB
}

func NewCustomerSource(db *gorm.DB) domain.CustomerSource {
	return &customerRepo{db: db}
}

func (r *customerRepo) List(ctx context.Context) ([]domain.Customer, error) {
	var customers []domain.Customer
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, status, join_date, metadata, created_at, updated_at
		 FROM customers
		 ORDER BY id`,
	).Scan(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

// orderRow mirrors the orders table with its nullable columns intact.
type orderRow struct {
	ID          snowflake.ID
	CustomerID  *int64
	CreatedAt   *time.Time
	TotalAmount decimal.NullDecimal
	Status      string
	Metadata    datatypes.JSONMap
}

func (row orderRow) toDomain() domain.Order {
	order := domain.Order{
		ID:          row.ID,
		TotalAmount: decimal.Zero,
		Status:      domain.OrderStatus(row.Status),
		Metadata:    row.Metadata,
	}
	if row.CustomerID != nil {
		order.CustomerID = snowflake.ID(*row.CustomerID)
	}
	if row.CreatedAt != nil {
		order.CreatedAt = row.CreatedAt.UTC()
	}
	if row.TotalAmount.Valid {
		order.TotalAmount = row.TotalAmount.Decimal
	}
	return order
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderSource(db *gorm.DB) domain.OrderSource {
	return &orderRepo{db: db}
}

func (r *orderRepo) ListAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var rows []orderRow
	query := r.db.WithContext(ctx)
	var err error
	if filter.CreatedFrom != nil {
		err = query.Raw(
			`SELECT id, customer_id, created_at, total_amount, status, metadata
			 FROM orders
			 WHERE created_at >= ? OR created_at IS NULL
			 ORDER BY id`,
			filter.CreatedFrom.UTC(),
		).Scan(&rows).Error
	} else {
		err = query.Raw(
			`SELECT id, customer_id, created_at, total_amount, status, metadata
			 FROM orders
			 ORDER BY id`,
		).Scan(&rows).Error
	}
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toDomain())
	}
	return orders, nil
}

type promotionRepo struct {
	db *gorm.DB
}

func NewPromotionRepository(db *gorm.DB) domain.PromotionRepository {
	return &promotionRepo{db: db}
}

func (r *promotionRepo) ListAll(ctx context.Context) ([]domain.PromotionRule, error) {
	var rules []domain.PromotionRule
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, title, type, required_order_count, per_application_value, description, created_at, updated_at
		 FROM promotion_rules
		 ORDER BY id`,
	).Scan(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *promotionRepo) Insert(ctx context.Context, rule *domain.PromotionRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}
