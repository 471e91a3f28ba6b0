package tracing

import (
	"errors"
	"testing"

	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsPersonalData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/v1/students"),
		attribute.String("student_name", "Asha"),
		attribute.String("Contact_Number", "99999"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(apperr.NotFound("bill_not_found")), "bill_not_found")
	assert.EqualError(t, SafeError(errors.New("pq: password authentication failed")), "internal")
}

func TestSamplingRatioClamp(t *testing.T) {
	assert.Equal(t, 0.0, samplingRatio(-1))
	assert.Equal(t, 1.0, samplingRatio(3))
	assert.Equal(t, 0.25, samplingRatio(0.25))
}
