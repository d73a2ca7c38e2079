package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	obsctx "github.com/smallbiznis/hospitality/internal/observability/context"
	"github.com/smallbiznis/hospitality/internal/observability/logger"
	rewardsdomain "github.com/smallbiznis/hospitality/internal/rewards/domain"
	"go.uber.org/zap"
)

var ErrTooManyRequests = errors.New("too_many_requests")

// ValidationError reports a request field the handler rejected.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, code, message string) error {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return newValidationError("", "invalid_request", "invalid request")
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

var domainErrors = []struct {
	err    error
	status int
	field  string
}{
	{rewardsdomain.ErrInvalidCustomer, http.StatusBadRequest, "id"},
	{rewardsdomain.ErrInvalidTitle, http.StatusBadRequest, "title"},
	{rewardsdomain.ErrInvalidPromotionType, http.StatusBadRequest, "type"},
	{rewardsdomain.ErrInvalidRequiredOrderCount, http.StatusBadRequest, "required_order_count"},
	{rewardsdomain.ErrInvalidPromotionValue, http.StatusBadRequest, "per_application_value"},
	{rewardsdomain.ErrCustomerNotFound, http.StatusNotFound, ""},
	{ErrTooManyRequests, http.StatusTooManyRequests, ""},
}

// AbortWithError maps err onto a status code and the JSON error envelope.
func AbortWithError(c *gin.Context, err error) {
	status, body := mapError(err)
	body.RequestID = obsctx.RequestIDFromGin(c)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			zap.Int("status", status),
			zap.String("code", body.Code),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func mapError(err error) (int, errorBody) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, errorBody{
			Code:    validationErr.Code,
			Message: validationErr.Message,
			Field:   validationErr.Field,
		}
	}

	for _, mapping := range domainErrors {
		if errors.Is(err, mapping.err) {
			return mapping.status, errorBody{
				Code:    mapping.err.Error(),
				Message: mapping.err.Error(),
				Field:   mapping.field,
			}
		}
	}

	var fetchErr *rewardsdomain.SourceFetchError
	if errors.As(err, &fetchErr) {
		return http.StatusServiceUnavailable, errorBody{
			Code:    "source_unavailable",
			Message: "failed to fetch " + string(fetchErr.Source),
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, errorBody{
			Code:    "evaluation_cancelled",
			Message: "evaluation cancelled",
		}
	}

	return http.StatusInternalServerError, errorBody{
		Code:    "internal_error",
		Message: "internal error",
	}
}
