package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/hospitality/internal/config"
	rewardsdomain "github.com/smallbiznis/hospitality/internal/rewards/domain"
	"github.com/smallbiznis/hospitality/internal/rewards/engine"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

type fakeRewardsService struct {
	engine     *engine.Engine
	evaluation *rewardsdomain.Evaluation
	err        error
}

func (f *fakeRewardsService) Refresh(context.Context) (*rewardsdomain.Evaluation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.evaluation, nil
}

func (f *fakeRewardsService) Latest(ctx context.Context) (*rewardsdomain.Evaluation, error) {
	return f.Refresh(ctx)
}

func (f *fakeRewardsService) GetRecord(ctx context.Context, customerID string) (*rewardsdomain.RewardRecord, error) {
	id, err := snowflake.ParseString(customerID)
	if err != nil {
		return nil, rewardsdomain.ErrInvalidCustomer
	}
	record, ok := f.evaluation.Record(id)
	if !ok {
		return nil, rewardsdomain.ErrCustomerNotFound
	}
	return &record, nil
}

func (f *fakeRewardsService) Evaluate(ctx context.Context, req rewardsdomain.EvaluateRequest) (*rewardsdomain.Evaluation, error) {
	now := testNow
	if req.Now != nil {
		now = *req.Now
	}
	evaluation, err := f.engine.Evaluate(ctx, req.Customers, req.Orders, req.PromotionRules, now)
	if err != nil {
		return nil, err
	}
	return &evaluation, nil
}

type fakePromotionService struct {
	rules []rewardsdomain.PromotionRule
}

func (f *fakePromotionService) List(context.Context) ([]rewardsdomain.PromotionRule, error) {
	return f.rules, nil
}

func (f *fakePromotionService) Create(_ context.Context, req rewardsdomain.CreatePromotionRequest) (*rewardsdomain.PromotionRule, error) {
	if req.RequiredOrderCount <= 0 {
		return nil, rewardsdomain.ErrInvalidRequiredOrderCount
	}
	rule := rewardsdomain.PromotionRule{
		ID:                 snowflake.ID(len(f.rules) + 1),
		Title:              req.Title,
		Type:               rewardsdomain.PromotionType(req.Type),
		RequiredOrderCount: req.RequiredOrderCount,
	}
	if req.PerApplicationValue != nil {
		rule.PerApplicationValue = decimal.NewNullDecimal(*req.PerApplicationValue)
	}
	f.rules = append(f.rules, rule)
	return &rule, nil
}

type testServer struct {
	server  *Server
	rewards *fakeRewardsService
}

func newTestServer(t *testing.T, cfg config.Config) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eng := engine.New(engine.DefaultConfig(), zap.NewNop())
	evaluation, err := eng.Evaluate(context.Background(),
		[]rewardsdomain.Customer{{ID: 1}, {ID: 2}},
		[]rewardsdomain.Order{
			{ID: 10, CustomerID: 1, CreatedAt: testNow.AddDate(0, 0, -1), TotalAmount: decimal.NewFromInt(100)},
			{ID: 11, CustomerID: 1, CreatedAt: testNow.AddDate(0, 0, -2), TotalAmount: decimal.NewFromInt(150)},
			{ID: 12, CustomerID: 1, CreatedAt: testNow.AddDate(0, 0, -3), TotalAmount: decimal.NewFromInt(250)},
		},
		nil,
		testNow,
	)
	if err != nil {
		t.Fatalf("seed evaluation: %v", err)
	}

	rewards := &fakeRewardsService{engine: eng, evaluation: &evaluation}
	srv := NewServer(ServerParam{
		Engine:       NewEngine(EngineParam{Config: cfg}),
		Config:       cfg,
		Log:          zap.NewNop(),
		RewardsSvc:   rewards,
		PromotionSvc: &fakePromotionService{},
	})
	srv.RegisterRoutes()
	return testServer{server: srv, rewards: rewards}
}

func (ts testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&payload).Encode(body)
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	ts.server.engine.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var out envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestGetRewardsSummary(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodGet, "/api/rewards/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary summaryView
	if err := json.Unmarshal(decode(t, rec).Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalCustomers != 2 || summary.LoyalCustomerCount != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.TotalDiscountGiven != "25.00" || summary.AverageOrdersPerCustomer != 1.5 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
}

func TestGetRewardRecord(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodGet, "/api/rewards/customers/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var record rewardRecordView
	if err := json.Unmarshal(decode(t, rec).Data, &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.CustomerID != "1" || record.LoyaltyDiscount != "25.00" || record.FinalAmount != "475.00" {
		t.Fatalf("unexpected record: %+v", record)
	}

	rec = ts.do(http.MethodGet, "/api/rewards/customers/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := decode(t, rec).Error; got == nil || got.Code != "customer_not_found" || got.RequestID == "" {
		t.Fatalf("unexpected error body: %+v", got)
	}

	rec = ts.do(http.MethodGet, "/api/rewards/customers/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListRewardRecordsCSV(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodGet, "/api/rewards/customers?format=csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("expected csv content type, got %q", rec.Header().Get("Content-Type"))
	}

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "1" || rows[1][3] != "true" || rows[1][8] != "475.00" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][0] != "2" || rows[2][9] != "" {
		t.Fatalf("expected empty last order date for customer 2, got %v", rows[2])
	}
}

func TestListRewardRecordsJSONSorted(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodGet, "/api/rewards/customers", nil)
	var view evaluationView
	if err := json.Unmarshal(decode(t, rec).Data, &view); err != nil {
		t.Fatalf("decode evaluation: %v", err)
	}
	if len(view.Records) != 2 || view.Records[0].CustomerID != "1" || view.Records[1].CustomerID != "2" {
		t.Fatalf("expected records sorted by customer id, got %+v", view.Records)
	}
}

func TestRefreshRewardsRateLimited(t *testing.T) {
	ts := newTestServer(t, config.Config{Server: config.ServerConfig{
		RefreshRateLimit:  1,
		RefreshRateWindow: time.Minute,
	}})

	if rec := ts.do(http.MethodPost, "/api/rewards/refresh", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected first refresh to pass, got %d", rec.Code)
	}
	rec := ts.do(http.MethodPost, "/api/rewards/refresh", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRefreshRewardsSourceFailure(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	ts.rewards.err = &rewardsdomain.SourceFetchError{
		Source: rewardsdomain.SourceOrders,
		Err:    errors.New("dial tcp: connection refused"),
	}

	rec := ts.do(http.MethodPost, "/api/rewards/refresh", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	body := decode(t, rec).Error
	if body == nil || body.Code != "source_unavailable" || strings.Contains(body.Message, "dial") {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestEvaluateRewardsInline(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodPost, "/api/rewards/evaluate", map[string]any{
		"now":       "2026-03-31T12:00:00Z",
		"customers": []map[string]any{{"id": "7"}},
		"orders": []map[string]any{
			{"id": "1", "customer_id": "7", "created_at": "2026-03-30T10:00:00Z", "total_amount": "100"},
			{"id": "2", "customer_id": "7", "created_at": "2026-03-29T10:00:00Z", "total_amount": 200},
			{"id": "3", "customer_id": "7", "created_at": "2026-03-28T10:00:00Z", "total_amount": "200"},
			{"id": "4", "customer_id": "", "created_at": "2026-03-28T10:00:00Z", "total_amount": "50"},
			{"id": "5", "customer_id": "7", "created_at": "yesterday", "total_amount": "50"},
		},
		"promotion_rules": []map[string]any{
			{"id": "9", "title": "Stay 3", "type": "product", "required_order_count": 3},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var view evaluationView
	if err := json.Unmarshal(decode(t, rec).Data, &view); err != nil {
		t.Fatalf("decode evaluation: %v", err)
	}
	if len(view.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(view.Records))
	}
	record := view.Records[0]
	if record.LoyaltyDiscount != "25.00" || record.PromotionBenefit != "10.00" || record.FinalAmount != "465.00" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if len(view.Skipped) != 2 {
		t.Fatalf("expected 2 skipped orders, got %+v", view.Skipped)
	}
}

func TestEvaluateRewardsNormalisesPromotionType(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodPost, "/api/rewards/evaluate", map[string]any{
		"now":       "2026-03-31T12:00:00Z",
		"customers": []map[string]any{{"id": "7"}},
		"orders": []map[string]any{
			{"id": "1", "customer_id": "7", "created_at": "2026-03-30T10:00:00Z", "total_amount": "100"},
			{"id": "2", "customer_id": "7", "created_at": "2026-03-29T10:00:00Z", "total_amount": "200"},
			{"id": "3", "customer_id": "7", "created_at": "2026-03-28T10:00:00Z", "total_amount": "200"},
		},
		"promotion_rules": []map[string]any{
			{"id": "9", "title": "Stay 3", "type": " Product ", "required_order_count": 3},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var view evaluationView
	if err := json.Unmarshal(decode(t, rec).Data, &view); err != nil {
		t.Fatalf("decode evaluation: %v", err)
	}
	if len(view.Skipped) != 0 {
		t.Fatalf("expected no skipped entries, got %+v", view.Skipped)
	}
	if len(view.Records) != 1 || view.Records[0].PromotionBenefit != "10.00" {
		t.Fatalf("expected promotion benefit 10.00, got %+v", view.Records)
	}
}

func TestEvaluateRewardsRejectsBadNow(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodPost, "/api/rewards/evaluate", map[string]any{"now": "tomorrow"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decode(t, rec).Error; body == nil || body.Field != "now" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestPromotions(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(http.MethodPost, "/api/promotions", map[string]any{
		"title": "Spa credit", "type": "product", "required_order_count": 0,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decode(t, rec).Error; body == nil || body.Field != "required_order_count" {
		t.Fatalf("unexpected error body: %+v", body)
	}

	rec = ts.do(http.MethodPost, "/api/promotions", map[string]any{
		"title": "Spa credit", "type": "product", "required_order_count": 4, "per_application_value": "12.5",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/api/promotions", nil)
	var views []promotionView
	if err := json.Unmarshal(decode(t, rec).Data, &views); err != nil {
		t.Fatalf("decode promotions: %v", err)
	}
	if len(views) != 1 || views[0].PerApplicationValue == nil || *views[0].PerApplicationValue != "12.50" {
		t.Fatalf("unexpected promotions: %+v", views)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	if rec := ts.do(http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
