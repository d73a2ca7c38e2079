package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hospitality/internal/cache"
	"github.com/smallbiznis/hospitality/internal/clock"
	"github.com/smallbiznis/hospitality/internal/config"
	"github.com/smallbiznis/hospitality/internal/observability/metrics"
	"github.com/smallbiznis/hospitality/internal/observability/tracing"
	"github.com/smallbiznis/hospitality/internal/rewards/domain"
	"github.com/smallbiznis/hospitality/internal/rewards/engine"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const latestKey = "latest"

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Customers  domain.CustomerSource
	Orders     domain.OrderSource
	Promotions domain.PromotionSource
	Engine     *engine.Engine
	Config     config.Config
	Metrics    *metrics.RewardsMetrics `optional:"true"`
}

type Service struct {
	log    *zap.Logger
	tracer trace.Tracer

	clock      clock.Clock
	customers  domain.CustomerSource
	orders     domain.OrderSource
	promotions domain.PromotionSource
	engine     *engine.Engine
	metrics    *metrics.RewardsMetrics
	resultTTL  time.Duration

	// mu serializes refreshes; readers never take it.
	mu         sync.Mutex
	latest     atomic.Pointer[domain.Evaluation]
	generation atomic.Uint64
	freshness  cache.Cache[string, time.Time]
}

func NewService(p ServiceParam) *Service {
	return &Service{
		log:    p.Log.Named("rewards.service"),
		tracer: otel.Tracer("rewards.service"),

		clock:      p.Clock,
		customers:  p.Customers,
		orders:     p.Orders,
		promotions: p.Promotions,
		engine:     p.Engine,
		metrics:    p.Metrics,
		resultTTL:  p.Config.Rewards.ResultTTL,
		freshness:  cache.NewTTLCache[string, time.Time](p.Clock.Now),
	}
}

type snapshot struct {
	customers []domain.Customer
	orders    []domain.Order
	rules     []domain.PromotionRule
}

// Refresh fetches every source, evaluates the snapshot and swaps the latest
// result. Calls that queue behind a running refresh reuse its result.
func (s *Service) Refresh(ctx context.Context) (*domain.Evaluation, error) {
	generation := s.generation.Load()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation.Load() != generation {
		if evaluation := s.latest.Load(); evaluation != nil {
			return evaluation, nil
		}
	}
	return s.refreshLocked(ctx)
}

func (s *Service) refreshLocked(ctx context.Context) (*domain.Evaluation, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "rewards.refresh")
	defer span.End()

	now := s.clock.Now()
	from := engine.WindowStart(now, s.engine.Config().WindowDays)

	snap, err := s.fetch(ctx, from)
	if err != nil {
		s.refreshFailed(span, started, err)
		return nil, err
	}

	evaluation, err := s.engine.Evaluate(ctx, snap.customers, snap.orders, snap.rules, now)
	if err != nil {
		s.refreshFailed(span, started, err)
		return nil, err
	}

	s.latest.Store(&evaluation)
	s.generation.Add(1)
	s.freshness.Set(latestKey, evaluation.EvaluatedAt, s.resultTTL)

	s.recordSuccess(evaluation, time.Since(started))
	span.SetAttributes(tracing.SafeAttributes(
		attribute.Int("rewards.customers", evaluation.Summary.TotalCustomers),
		attribute.Int("rewards.loyal_customers", evaluation.Summary.LoyalCustomerCount),
		attribute.Int("rewards.skipped_records", len(evaluation.Skipped)),
	)...)
	s.log.Info("rewards refreshed",
		zap.Int("customers", evaluation.Summary.TotalCustomers),
		zap.Int("orders", len(snap.orders)),
		zap.Int("rules", len(snap.rules)),
		zap.Int("skipped", len(evaluation.Skipped)),
		zap.Duration("duration", time.Since(started)),
	)
	return &evaluation, nil
}

// fetch runs the three bulk reads concurrently. Any failure or cancellation
// discards everything fetched so far.
func (s *Service) fetch(ctx context.Context, from time.Time) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ctx, span := s.tracer.Start(gctx, "rewards.fetch.customers")
		defer span.End()
		customers, err := s.customers.List(ctx)
		if err != nil {
			tracing.Fail(span, err, "fetch failed")
			return &domain.SourceFetchError{Source: domain.SourceCustomers, Err: err}
		}
		snap.customers = customers
		return nil
	})
	g.Go(func() error {
		ctx, span := s.tracer.Start(gctx, "rewards.fetch.orders")
		defer span.End()
		orders, err := s.orders.ListAll(ctx, domain.OrderFilter{CreatedFrom: &from})
		if err != nil {
			tracing.Fail(span, err, "fetch failed")
			return &domain.SourceFetchError{Source: domain.SourceOrders, Err: err}
		}
		snap.orders = orders
		return nil
	})
	g.Go(func() error {
		ctx, span := s.tracer.Start(gctx, "rewards.fetch.promotions")
		defer span.End()
		rules, err := s.promotions.ListAll(ctx)
		if err != nil {
			tracing.Fail(span, err, "fetch failed")
			return &domain.SourceFetchError{Source: domain.SourcePromotions, Err: err}
		}
		snap.rules = rules
		return nil
	})

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *Service) refreshFailed(span trace.Span, started time.Time, err error) {
	tracing.Fail(span, err, "refresh failed")
	s.metrics.ObserveRefresh("failed", time.Since(started))
	s.log.Warn("rewards refresh failed, keeping previous result", zap.Error(err))
}

func (s *Service) recordSuccess(evaluation domain.Evaluation, duration time.Duration) {
	s.metrics.ObserveRefresh("success", duration)
	skipped := make(map[domain.RecordKind]int)
	for _, malformed := range evaluation.Skipped {
		skipped[malformed.Kind]++
	}
	for kind, count := range skipped {
		s.metrics.AddSkipped(string(kind), count)
	}
	s.metrics.SetSummary(
		evaluation.Summary.TotalCustomers,
		evaluation.Summary.LoyalCustomerCount,
		evaluation.Summary.TotalDiscountGiven.InexactFloat64(),
	)
}

// Latest returns the current evaluation, refreshing when there is none or it
// went stale. A failed refresh falls back to the stale result when one exists.
func (s *Service) Latest(ctx context.Context) (*domain.Evaluation, error) {
	if evaluation := s.latest.Load(); evaluation != nil {
		if _, fresh := s.freshness.Get(latestKey); fresh {
			return evaluation, nil
		}
	}

	evaluation, err := s.Refresh(ctx)
	if err != nil {
		if previous := s.latest.Load(); previous != nil {
			s.log.Warn("serving stale rewards evaluation",
				zap.Time("evaluated_at", previous.EvaluatedAt),
				zap.Error(err),
			)
			return previous, nil
		}
		return nil, err
	}
	return evaluation, nil
}

func (s *Service) GetRecord(ctx context.Context, customerID string) (*domain.RewardRecord, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(customerID))
	if err != nil || id <= 0 {
		return nil, domain.ErrInvalidCustomer
	}

	evaluation, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}
	record, ok := evaluation.Record(id)
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &record, nil
}

// Evaluate runs the engine on a caller-supplied snapshot. The stored result
// is left untouched.
func (s *Service) Evaluate(ctx context.Context, req domain.EvaluateRequest) (*domain.Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "rewards.evaluate")
	defer span.End()

	now := s.clock.Now()
	if req.Now != nil && !req.Now.IsZero() {
		now = req.Now.UTC()
	}

	evaluation, err := s.engine.Evaluate(ctx, req.Customers, req.Orders, req.PromotionRules, now)
	if err != nil {
		tracing.Fail(span, err, "evaluate failed")
		return nil, err
	}
	return &evaluation, nil
}
