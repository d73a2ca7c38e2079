package rewards

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hospitality/internal/config"
	"github.com/smallbiznis/hospitality/internal/rewards/domain"
	"github.com/smallbiznis/hospitality/internal/rewards/engine"
	"github.com/smallbiznis/hospitality/internal/rewards/refresher"
	"github.com/smallbiznis/hospitality/internal/rewards/repository"
	"github.com/smallbiznis/hospitality/internal/rewards/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rewards.service",
	fx.Provide(NewEngineConfig),
	fx.Provide(engine.New),
	fx.Provide(repository.NewCustomerSource),
	fx.Provide(repository.NewOrderSource),
	fx.Provide(repository.NewPromotionRepository),
	fx.Provide(func(repo domain.PromotionRepository) domain.PromotionSource { return repo }),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
	fx.Provide(func(s *service.Service) refresher.Refresher { return s }),
	fx.Provide(service.NewPromotionService),
	fx.Provide(NewRefresherConfig),
	refresher.Module,
)

func NewEngineConfig(cfg config.Config) engine.Config {
	return engine.Config{
		LoyaltyThreshold: cfg.Rewards.LoyaltyThreshold,
		LoyaltyRate:      decimal.NewFromFloat(cfg.Rewards.LoyaltyRate),
		PromotionValue:   decimal.NewFromFloat(cfg.Rewards.PromotionValue),
		WindowDays:       cfg.Rewards.WindowDays,
		Workers:          cfg.Rewards.Workers,
	}
}

func NewRefresherConfig(cfg config.Config) refresher.Config {
	return refresher.Config{
		Interval: cfg.Rewards.RefreshInterval,
		Timeout:  refresher.DefaultConfig().Timeout,
	}
}
