package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	rewardsdomain "github.com/smallbiznis/hospitality/internal/rewards/domain"
	"gorm.io/gorm"
)

type defaultPromotion struct {
	title       string
	kind        rewardsdomain.PromotionType
	required    int
	value       string
	description string
}

var defaultPromotions = []defaultPromotion{
	{
		title:       "Stay 5, earn a credit",
		kind:        rewardsdomain.PromotionTypeProduct,
		required:    5,
		value:       "25",
		description: "Room credit for every 5 orders in the window.",
	},
	{
		title:       "Late checkout",
		kind:        rewardsdomain.PromotionTypeOther,
		required:    1,
		description: "Front desk perk, applied manually.",
	},
}

// EnsureDefaultPromotions seeds promotion rules when none exist yet.
func EnsureDefaultPromotions(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&rewardsdomain.PromotionRule{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		for _, promo := range defaultPromotions {
			rule := rewardsdomain.PromotionRule{
				ID:                 node.Generate(),
				Title:              promo.title,
				Type:               promo.kind,
				RequiredOrderCount: promo.required,
				Description:        promo.description,
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			if promo.value != "" {
				rule.PerApplicationValue = decimal.NewNullDecimal(decimal.RequireFromString(promo.value))
			}
			if err := tx.Create(&rule).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
