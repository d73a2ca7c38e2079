package domain

import "strings"

// Validate checks the fields an order needs to take part in an evaluation.
func (o Order) Validate() error {
	id := o.ID.String()
	if o.CustomerID == 0 {
		return newMalformed(RecordKindOrder, id, ErrMissingCustomer)
	}
	if o.CreatedAt.IsZero() {
		return newMalformed(RecordKindOrder, id, ErrInvalidOrderDate)
	}
	if o.TotalAmount.IsNegative() {
		return newMalformed(RecordKindOrder, id, ErrInvalidOrderAmount)
	}
	return nil
}

// Validate checks that a customer can own a reward record.
func (c Customer) Validate() error {
	if c.ID == 0 {
		return newMalformed(RecordKindCustomer, c.ID.String(), ErrInvalidCustomer)
	}
	return nil
}

// Validate checks that a promotion rule can be matched safely.
func (r PromotionRule) Validate() error {
	id := r.ID.String()
	switch r.Type {
	case PromotionTypeProduct, PromotionTypeOther:
	default:
		return newMalformed(RecordKindPromotionRule, id, ErrInvalidPromotionType)
	}
	if r.RequiredOrderCount <= 0 {
		return newMalformed(RecordKindPromotionRule, id, ErrInvalidRequiredOrderCount)
	}
	if r.PerApplicationValue.Valid && r.PerApplicationValue.Decimal.IsNegative() {
		return newMalformed(RecordKindPromotionRule, id, ErrInvalidPromotionValue)
	}
	return nil
}

// ParsePromotionType maps free-form input onto the closed promotion variants.
func ParsePromotionType(raw string) (PromotionType, error) {
	switch PromotionType(strings.ToLower(strings.TrimSpace(raw))) {
	case PromotionTypeProduct:
		return PromotionTypeProduct, nil
	case PromotionTypeOther:
		return PromotionTypeOther, nil
	default:
		return "", ErrInvalidPromotionType
	}
}
