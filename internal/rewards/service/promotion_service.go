package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hospitality/internal/clock"
	"github.com/smallbiznis/hospitality/internal/rewards/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type PromotionServiceParam struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.PromotionRepository
}

type PromotionService struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.PromotionRepository
}

func NewPromotionService(p PromotionServiceParam) domain.PromotionService {
	return &PromotionService{
		log:   p.Log.Named("promotion.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *PromotionService) List(ctx context.Context) ([]domain.PromotionRule, error) {
	rules, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []domain.PromotionRule{}
	}
	return rules, nil
}

func (s *PromotionService) Create(ctx context.Context, req domain.CreatePromotionRequest) (*domain.PromotionRule, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	promotionType, err := domain.ParsePromotionType(req.Type)
	if err != nil {
		return nil, err
	}

	if req.RequiredOrderCount <= 0 {
		return nil, domain.ErrInvalidRequiredOrderCount
	}

	now := s.clock.Now()
	rule := &domain.PromotionRule{
		ID:                 s.genID.Generate(),
		Title:              title,
		Type:               promotionType,
		RequiredOrderCount: req.RequiredOrderCount,
		Description:        strings.TrimSpace(req.Description),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.PerApplicationValue != nil {
		if req.PerApplicationValue.IsNegative() {
			return nil, domain.ErrInvalidPromotionValue
		}
		rule.PerApplicationValue = decimal.NewNullDecimal(*req.PerApplicationValue)
	}

	if err := s.repo.Insert(ctx, rule); err != nil {
		return nil, err
	}

	s.log.Info("promotion rule created",
		zap.String("promotion_id", rule.ID.String()),
		zap.String("type", string(rule.Type)),
		zap.Int("required_order_count", rule.RequiredOrderCount),
	)
	return rule, nil
}
