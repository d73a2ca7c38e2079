package migration

import (
	rewardsdomain "github.com/smallbiznis/hospitality/internal/rewards/domain"
	"gorm.io/gorm"
)

// RunMigrations creates or updates the tables read by the reward sources.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&rewardsdomain.Customer{},
		&rewardsdomain.Order{},
		&rewardsdomain.PromotionRule{},
	)
}
