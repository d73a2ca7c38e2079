package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	rewardsdomain "github.com/smallbiznis/hospitality/internal/rewards/domain"
)

type promotionView struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Type                string    `json:"type"`
	RequiredOrderCount  int       `json:"required_order_count"`
	PerApplicationValue *string   `json:"per_application_value"`
	Description         string    `json:"description"`
	CreatedAt           time.Time `json:"created_at"`
}

func newPromotionView(rule rewardsdomain.PromotionRule) promotionView {
	view := promotionView{
		ID:                 rule.ID.String(),
		Title:              rule.Title,
		Type:               string(rule.Type),
		RequiredOrderCount: rule.RequiredOrderCount,
		Description:        rule.Description,
		CreatedAt:          rule.CreatedAt,
	}
	if rule.PerApplicationValue.Valid {
		value := money(rule.PerApplicationValue.Decimal)
		view.PerApplicationValue = &value
	}
	return view
}

type createPromotionRequest struct {
	Title               string           `json:"title"`
	Type                string           `json:"type"`
	RequiredOrderCount  int              `json:"required_order_count"`
	PerApplicationValue *decimal.Decimal `json:"per_application_value"`
	Description         string           `json:"description"`
}

func (s *Server) ListPromotions(c *gin.Context) {
	rules, err := s.promotionSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]promotionView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, newPromotionView(rule))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) CreatePromotion(c *gin.Context) {
	var req createPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	rule, err := s.promotionSvc.Create(c.Request.Context(), rewardsdomain.CreatePromotionRequest{
		Title:               req.Title,
		Type:                req.Type,
		RequiredOrderCount:  req.RequiredOrderCount,
		PerApplicationValue: req.PerApplicationValue,
		Description:         req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newPromotionView(*rule)})
}
