package tracing

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/bursary/pkg/apperr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var blockedAttributeKeys = map[string]struct{}{
	"student_name":   {},
	"father_name":    {},
	"mother_name":    {},
	"contact_number": {},
	"address":        {},
	"remarks":        {},
}

// SafeAttributes drops attributes that can carry personal data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		key := strings.ToLower(string(attr.Key))
		if _, blocked := blockedAttributeKeys[key]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError reduces an error to its stable code so spans never carry raw
// driver messages.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return errors.New(string(apperr.KindOf(err)))
}

// ExtractContext reads upstream trace headers with the global propagator.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
