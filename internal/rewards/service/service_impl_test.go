package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hospitality/internal/config"
	"github.com/smallbiznis/hospitality/internal/rewards/domain"
	"github.com/smallbiznis/hospitality/internal/rewards/engine"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeCustomers struct {
	customers []domain.Customer
	calls     atomic.Int32
}

func (f *fakeCustomers) List(context.Context) ([]domain.Customer, error) {
	f.calls.Add(1)
	return f.customers, nil
}

type fakeOrders struct {
	mu     sync.Mutex
	orders []domain.Order
	err    error
	filter domain.OrderFilter
}

func (f *fakeOrders) ListAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

func (f *fakeOrders) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakePromotions struct {
	rules []domain.PromotionRule
}

func (f *fakePromotions) ListAll(context.Context) ([]domain.PromotionRule, error) {
	return f.rules, nil
}

type fixture struct {
	svc       *Service
	clock     *testClock
	customers *fakeCustomers
	orders    *fakeOrders
}

func newFixture(t *testing.T, ttl time.Duration) fixture {
	t.Helper()

	clk := &testClock{now: testNow}
	customers := &fakeCustomers{customers: []domain.Customer{
		{ID: 1, Name: "Ayu"},
		{ID: 2, Name: "Budi"},
	}}
	orders := &fakeOrders{orders: []domain.Order{
		order(10, 1, 1, "100"),
		order(11, 1, 2, "150"),
		order(12, 1, 3, "250"),
		order(13, 2, 4, "80"),
	}}
	promotions := &fakePromotions{rules: []domain.PromotionRule{
		{ID: 100, Title: "Stay 3", Type: domain.PromotionTypeProduct, RequiredOrderCount: 3},
	}}

	svc := NewService(ServiceParam{
		Log:        zap.NewNop(),
		Clock:      clk,
		Customers:  customers,
		Orders:     orders,
		Promotions: promotions,
		Engine:     engine.New(engine.DefaultConfig(), zap.NewNop()),
		Config:     config.Config{Rewards: config.RewardsConfig{ResultTTL: ttl}},
	})
	return fixture{svc: svc, clock: clk, customers: customers, orders: orders}
}

func order(id, customerID int64, daysAgo int, amount string) domain.Order {
	return domain.Order{
		ID:          snowflake.ID(id),
		CustomerID:  snowflake.ID(customerID),
		CreatedAt:   testNow.AddDate(0, 0, -daysAgo),
		TotalAmount: decimal.RequireFromString(amount),
	}
}

func TestRefreshStoresLatest(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	evaluation, err := f.svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if evaluation.Summary.TotalCustomers != 2 || evaluation.Summary.LoyalCustomerCount != 1 {
		t.Fatalf("unexpected summary: %+v", evaluation.Summary)
	}
	if f.orders.filter.CreatedFrom == nil || !f.orders.filter.CreatedFrom.Equal(testNow.AddDate(0, 0, -30)) {
		t.Fatalf("expected window filter on orders, got %+v", f.orders.filter)
	}

	latest, err := f.svc.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != evaluation {
		t.Fatalf("expected latest to reuse the stored evaluation")
	}
	if f.customers.calls.Load() != 1 {
		t.Fatalf("expected a single fetch, got %d", f.customers.calls.Load())
	}
}

func TestLatestRefreshesWhenEmpty(t *testing.T) {
	f := newFixture(t, time.Minute)

	evaluation, err := f.svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if evaluation == nil || f.customers.calls.Load() != 1 {
		t.Fatalf("expected latest to trigger a refresh")
	}
}

func TestLatestRefreshesWhenStale(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	first, err := f.svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	f.clock.Advance(2 * time.Minute)

	second, err := f.svc.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if second == first {
		t.Fatalf("expected a new evaluation after ttl")
	}
	if !second.EvaluatedAt.Equal(testNow.Add(2 * time.Minute)) {
		t.Fatalf("expected evaluated_at to follow the clock, got %s", second.EvaluatedAt)
	}
}

func TestRefreshFetchFailureKeepsPrevious(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	previous, err := f.svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	boom := errors.New("connection reset")
	f.orders.fail(boom)
	_, err = f.svc.Refresh(ctx)

	var fetchErr *domain.SourceFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected source fetch error, got %v", err)
	}
	if fetchErr.Source != domain.SourceOrders || !errors.Is(err, boom) {
		t.Fatalf("expected orders fetch failure wrapping cause, got %v", err)
	}

	f.clock.Advance(2 * time.Minute)
	stale, err := f.svc.Latest(ctx)
	if err != nil {
		t.Fatalf("expected stale fallback, got %v", err)
	}
	if stale != previous {
		t.Fatalf("expected previous evaluation to be served")
	}
}

func TestLatestWithoutResultReturnsFetchError(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.orders.fail(errors.New("timeout"))

	if _, err := f.svc.Latest(context.Background()); err == nil {
		t.Fatalf("expected error when no evaluation exists")
	}
}

func TestRefreshCancelledKeepsPrevious(t *testing.T) {
	f := newFixture(t, 0)

	previous, err := f.svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.svc.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}

	latest, err := f.svc.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != previous {
		t.Fatalf("expected cancelled refresh to leave previous result")
	}
}

func TestConcurrentRefresh(t *testing.T) {
	f := newFixture(t, time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			evaluation, err := f.svc.Refresh(context.Background())
			if err == nil && evaluation == nil {
				err = errors.New("nil evaluation")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent refresh: %v", err)
		}
	}
	if calls := f.customers.calls.Load(); calls < 1 || calls > 8 {
		t.Fatalf("unexpected fetch count %d", calls)
	}
}

func TestGetRecord(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	record, err := f.svc.GetRecord(ctx, "1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if !record.IsLoyal || record.OrderCountInWindow != 3 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if !record.TotalDiscount.Equal(decimal.RequireFromString("35")) {
		t.Fatalf("expected discount 35, got %s", record.TotalDiscount)
	}

	if _, err := f.svc.GetRecord(ctx, "abc"); !errors.Is(err, domain.ErrInvalidCustomer) {
		t.Fatalf("expected invalid customer, got %v", err)
	}
	if _, err := f.svc.GetRecord(ctx, "999"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected customer not found, got %v", err)
	}
}

func TestEvaluateDoesNotTouchLatest(t *testing.T) {
	f := newFixture(t, time.Minute)
	ctx := context.Background()

	stored, err := f.svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	at := testNow.AddDate(0, 0, 1)
	inline, err := f.svc.Evaluate(ctx, domain.EvaluateRequest{
		Customers: []domain.Customer{{ID: 5}},
		Orders:    []domain.Order{order(50, 5, 0, "40")},
		Now:       &at,
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if inline.Summary.TotalCustomers != 1 || !inline.EvaluatedAt.Equal(at) {
		t.Fatalf("unexpected inline evaluation: %+v", inline.Summary)
	}

	latest, err := f.svc.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != stored {
		t.Fatalf("expected inline evaluation to leave the stored result")
	}
}
