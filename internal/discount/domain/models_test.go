package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	d := decimal.RequireFromString
	cases := []struct {
		name     string
		discount *StudentFeeDiscount
		amount   string
		want     string
	}{
		{"no discount", nil, "1500", "0.00"},
		{"fixed", &StudentFeeDiscount{DiscountType: DiscountTypeFixed, DiscountValue: d("500")}, "1500", "500.00"},
		{"fixed capped at amount", &StudentFeeDiscount{DiscountType: DiscountTypeFixed, DiscountValue: d("2000")}, "1500", "1500.00"},
		{"percentage rounds", &StudentFeeDiscount{DiscountType: DiscountTypePercentage, DiscountValue: d("12.5")}, "333.33", "41.67"},
		{"full waiver", &StudentFeeDiscount{DiscountType: DiscountTypePercentage, DiscountValue: d("100")}, "1500", "1500.00"},
		{"zero amount", &StudentFeeDiscount{DiscountType: DiscountTypeFixed, DiscountValue: d("10")}, "0", "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.discount, d(tc.amount))
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(DiscountTypePercentage, decimal.NewFromInt(100)))
	assert.ErrorIs(t, Validate(DiscountTypePercentage, decimal.NewFromInt(101)), ErrPercentageTooHigh)
	assert.NoError(t, Validate(DiscountTypeFixed, decimal.NewFromInt(5000)))
	assert.ErrorIs(t, Validate(DiscountTypeFixed, decimal.Zero), ErrInvalidDiscountValue)
}

func TestParseDiscountType(t *testing.T) {
	got, err := ParseDiscountType(" percentage ")
	assert.NoError(t, err)
	assert.Equal(t, DiscountTypePercentage, got)

	_, err = ParseDiscountType("bogus")
	assert.ErrorIs(t, err, ErrInvalidDiscountType)
}
