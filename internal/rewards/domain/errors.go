package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCustomer           = errors.New("invalid_customer")
	ErrCustomerNotFound          = errors.New("customer_not_found")
	ErrMissingCustomer           = errors.New("missing_customer_id")
	ErrInvalidOrderDate          = errors.New("invalid_order_date")
	ErrInvalidOrderAmount        = errors.New("invalid_order_amount")
	ErrInvalidTitle              = errors.New("invalid_title")
	ErrInvalidPromotionType      = errors.New("invalid_promotion_type")
	ErrInvalidRequiredOrderCount = errors.New("invalid_required_order_count")
	ErrInvalidPromotionValue     = errors.New("invalid_promotion_value")

	// ErrDegenerateInput marks an evaluation over zero customers or zero
	// orders. It is informational and never returned to callers.
	ErrDegenerateInput = errors.New("degenerate_input")
)

// Source names the bulk collection a fetch was reading.
type Source string

const (
	SourceCustomers  Source = "customers"
	SourceOrders     Source = "orders"
	SourcePromotions Source = "promotions"
)

// SourceFetchError reports a failed bulk fetch. It aborts the whole
// evaluation; the caller retries the batch.
type SourceFetchError struct {
	Source Source
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// RecordKind names the type of an individual input record.
type RecordKind string

const (
	RecordKindCustomer      RecordKind = "customer"
	RecordKindOrder         RecordKind = "order"
	RecordKindPromotionRule RecordKind = "promotion_rule"
)

// MalformedRecordError reports a single input record that was skipped.
// Evaluation of the rest of the batch continues.
type MalformedRecordError struct {
	Kind   RecordKind `json:"kind"`
	ID     string     `json:"id"`
	Reason string     `json:"reason"`
	Err    error      `json:"-"`
}

func newMalformed(kind RecordKind, id string, err error) *MalformedRecordError {
	return &MalformedRecordError{Kind: kind, ID: id, Reason: err.Error(), Err: err}
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s %q: %s", e.Kind, e.ID, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }
