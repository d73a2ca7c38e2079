package server

import (
	"encoding/csv"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	rewardsdomain "github.com/smallbiznis/hospitality/internal/rewards/domain"
)

type appliedPromotionView struct {
	PromotionID  string `json:"promotion_id"`
	Title        string `json:"title"`
	TimesApplied int    `json:"times_applied"`
	Value        string `json:"value"`
}

type rewardRecordView struct {
	CustomerID         string                 `json:"customer_id"`
	OrderCountInWindow int                    `json:"order_count_in_window"`
	TotalSpentInWindow string                 `json:"total_spent_in_window"`
	IsLoyal            bool                   `json:"is_loyal"`
	LoyaltyDiscount    string                 `json:"loyalty_discount"`
	AppliedPromotions  []appliedPromotionView `json:"applied_promotions"`
	PromotionBenefit   string                 `json:"promotion_benefit"`
	TotalDiscount      string                 `json:"total_discount"`
	FinalAmount        string                 `json:"final_amount"`
	LastOrderDate      *time.Time             `json:"last_order_date"`
}

type summaryView struct {
	TotalCustomers           int       `json:"total_customers"`
	LoyalCustomerCount       int       `json:"loyal_customer_count"`
	TotalDiscountGiven       string    `json:"total_discount_given"`
	AverageOrdersPerCustomer float64   `json:"average_orders_per_customer"`
	TotalPromotionsApplied   int       `json:"total_promotions_applied"`
	SkippedRecords           int       `json:"skipped_records"`
	EvaluatedAt              time.Time `json:"evaluated_at"`
	WindowStart              time.Time `json:"window_start"`
}

type evaluationView struct {
	Summary summaryView                          `json:"summary"`
	Records []rewardRecordView                   `json:"records"`
	Skipped []rewardsdomain.MalformedRecordError `json:"skipped"`
}

func money(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func newRewardRecordView(record rewardsdomain.RewardRecord) rewardRecordView {
	applied := make([]appliedPromotionView, 0, len(record.AppliedPromotions))
	for _, promotion := range record.AppliedPromotions {
		applied = append(applied, appliedPromotionView{
			PromotionID:  promotion.Rule.ID.String(),
			Title:        promotion.Rule.Title,
			TimesApplied: promotion.TimesApplied,
			Value:        money(promotion.Value),
		})
	}
	return rewardRecordView{
		CustomerID:         record.CustomerID.String(),
		OrderCountInWindow: record.OrderCountInWindow,
		TotalSpentInWindow: money(record.TotalSpentInWindow),
		IsLoyal:            record.IsLoyal,
		LoyaltyDiscount:    money(record.LoyaltyDiscount),
		AppliedPromotions:  applied,
		PromotionBenefit:   money(record.PromotionBenefit),
		TotalDiscount:      money(record.TotalDiscount),
		FinalAmount:        money(record.FinalAmount),
		LastOrderDate:      record.LastOrderDate,
	}
}

func newSummaryView(evaluation *rewardsdomain.Evaluation) summaryView {
	summary := evaluation.Summary
	return summaryView{
		TotalCustomers:           summary.TotalCustomers,
		LoyalCustomerCount:       summary.LoyalCustomerCount,
		TotalDiscountGiven:       money(summary.TotalDiscountGiven),
		AverageOrdersPerCustomer: math.Round(summary.AverageOrdersPerCustomer*100) / 100,
		TotalPromotionsApplied:   summary.TotalPromotionsApplied,
		SkippedRecords:           len(evaluation.Skipped),
		EvaluatedAt:              evaluation.EvaluatedAt,
		WindowStart:              evaluation.WindowStart,
	}
}

// sortedRecords returns the records ordered by customer ID.
func sortedRecords(evaluation *rewardsdomain.Evaluation) []rewardsdomain.RewardRecord {
	records := make([]rewardsdomain.RewardRecord, 0, len(evaluation.Records))
	for _, record := range evaluation.Records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CustomerID < records[j].CustomerID
	})
	return records
}

func newEvaluationView(evaluation *rewardsdomain.Evaluation) evaluationView {
	records := sortedRecords(evaluation)
	views := make([]rewardRecordView, 0, len(records))
	for _, record := range records {
		views = append(views, newRewardRecordView(record))
	}
	skipped := evaluation.Skipped
	if skipped == nil {
		skipped = []rewardsdomain.MalformedRecordError{}
	}
	return evaluationView{
		Summary: newSummaryView(evaluation),
		Records: views,
		Skipped: skipped,
	}
}

func (s *Server) RefreshRewards(c *gin.Context) {
	evaluation, err := s.rewardsSvc.Refresh(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newSummaryView(evaluation)})
}

func (s *Server) GetRewardsSummary(c *gin.Context) {
	evaluation, err := s.rewardsSvc.Latest(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newSummaryView(evaluation)})
}

func (s *Server) ListRewardRecords(c *gin.Context) {
	evaluation, err := s.rewardsSvc.Latest(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		writeRecordsCSV(c, "rewards.csv", sortedRecords(evaluation))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newEvaluationView(evaluation)})
}

func (s *Server) GetRewardRecord(c *gin.Context) {
	record, err := s.rewardsSvc.GetRecord(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newRewardRecordView(*record)})
}

type evaluateCustomer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type evaluateOrder struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	CreatedAt   string          `json:"created_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
}

type evaluatePromotionRule struct {
	ID                  string           `json:"id"`
	Title               string           `json:"title"`
	Type                string           `json:"type"`
	RequiredOrderCount  int              `json:"required_order_count"`
	PerApplicationValue *decimal.Decimal `json:"per_application_value"`
}

type evaluateRequest struct {
	Customers      []evaluateCustomer      `json:"customers"`
	Orders         []evaluateOrder         `json:"orders"`
	PromotionRules []evaluatePromotionRule `json:"promotion_rules"`
	Now            string                  `json:"now"`
}

// parseRecordID maps an unparsable ID to zero so the record is reported as
// malformed instead of failing the request.
func parseRecordID(raw string) snowflake.ID {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return id
}

func parseRecordTime(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

// parseRecordPromotionType normalises the type the same way promotion
// creation does. Unknown values are kept so the rule is reported as malformed.
func parseRecordPromotionType(raw string) rewardsdomain.PromotionType {
	promotionType, err := rewardsdomain.ParsePromotionType(raw)
	if err != nil {
		return rewardsdomain.PromotionType(strings.TrimSpace(raw))
	}
	return promotionType
}

func (req evaluateRequest) toDomain() (rewardsdomain.EvaluateRequest, error) {
	out := rewardsdomain.EvaluateRequest{
		Customers:      make([]rewardsdomain.Customer, 0, len(req.Customers)),
		Orders:         make([]rewardsdomain.Order, 0, len(req.Orders)),
		PromotionRules: make([]rewardsdomain.PromotionRule, 0, len(req.PromotionRules)),
	}

	if raw := strings.TrimSpace(req.Now); raw != "" {
		now, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return rewardsdomain.EvaluateRequest{}, newValidationError("now", "invalid_now", "now must be RFC3339")
		}
		out.Now = &now
	}

	for _, customer := range req.Customers {
		out.Customers = append(out.Customers, rewardsdomain.Customer{
			ID:     parseRecordID(customer.ID),
			Name:   strings.TrimSpace(customer.Name),
			Status: rewardsdomain.CustomerStatus(strings.TrimSpace(customer.Status)),
		})
	}
	for _, order := range req.Orders {
		out.Orders = append(out.Orders, rewardsdomain.Order{
			ID:          parseRecordID(order.ID),
			CustomerID:  parseRecordID(order.CustomerID),
			CreatedAt:   parseRecordTime(order.CreatedAt),
			TotalAmount: order.TotalAmount,
			Status:      rewardsdomain.OrderStatus(strings.TrimSpace(order.Status)),
		})
	}
	for _, rule := range req.PromotionRules {
		promotion := rewardsdomain.PromotionRule{
			ID:                 parseRecordID(rule.ID),
			Title:              strings.TrimSpace(rule.Title),
			Type:               parseRecordPromotionType(rule.Type),
			RequiredOrderCount: rule.RequiredOrderCount,
		}
		if rule.PerApplicationValue != nil {
			promotion.PerApplicationValue = decimal.NewNullDecimal(*rule.PerApplicationValue)
		}
		out.PromotionRules = append(out.PromotionRules, promotion)
	}
	return out, nil
}

func (s *Server) EvaluateRewards(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	input, err := req.toDomain()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	evaluation, err := s.rewardsSvc.Evaluate(c.Request.Context(), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newEvaluationView(evaluation)})
}

func writeRecordsCSV(c *gin.Context, filename string, records []rewardsdomain.RewardRecord) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	_ = writer.Write([]string{
		"Customer ID",
		"Orders In Window",
		"Total Spent",
		"Loyal",
		"Loyalty Discount",
		"Promotions Applied",
		"Promotion Benefit",
		"Total Discount",
		"Final Amount",
		"Last Order Date",
	})
	for _, record := range records {
		lastOrder := ""
		if record.LastOrderDate != nil {
			lastOrder = record.LastOrderDate.UTC().Format(time.RFC3339)
		}
		_ = writer.Write([]string{
			record.CustomerID.String(),
			strconv.Itoa(record.OrderCountInWindow),
			money(record.TotalSpentInWindow),
			strconv.FormatBool(record.IsLoyal),
			money(record.LoyaltyDiscount),
			strconv.Itoa(len(record.AppliedPromotions)),
			money(record.PromotionBenefit),
			money(record.TotalDiscount),
			money(record.FinalAmount),
			lastOrder,
		})
	}
}
