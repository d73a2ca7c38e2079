package tracing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/hospitality/internal/rewards/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const redacted = "[redacted]"

// guestKeyFragments mark attribute keys that may carry guest identity or credentials.
var guestKeyFragments = []string{"name", "email", "phone", "token", "secret"}

// SafeAttributes keeps every attribute key but masks values that could
// identify a guest, so span shapes stay comparable across requests.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, len(attrs))
	for i, attr := range attrs {
		if guestKey(attr.Key) {
			out[i] = attr.Key.String(redacted)
			continue
		}
		out[i] = attr
	}
	return out
}

// SafeError strips record data from err. Fetch failures keep their source
// and cancellations pass through unchanged.
func SafeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	var fetchErr *domain.SourceFetchError
	if errors.As(err, &fetchErr) {
		return fmt.Errorf("fetch %s: %T", fetchErr.Source, fetchErr.Err)
	}
	return fmt.Errorf("%T", err)
}

// Fail records a redacted err on span and marks it failed.
func Fail(span trace.Span, err error, description string) {
	span.RecordError(SafeError(err))
	span.SetStatus(codes.Error, description)
}

func guestKey(key attribute.Key) bool {
	lower := strings.ToLower(string(key))
	for _, fragment := range guestKeyFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
