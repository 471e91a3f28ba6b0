package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFixed      DiscountType = "FIXED"
)

func ParseDiscountType(value string) (DiscountType, error) {
	switch DiscountType(strings.ToUpper(strings.TrimSpace(value))) {
	case DiscountTypePercentage:
		return DiscountTypePercentage, nil
	case DiscountTypeFixed:
		return DiscountTypeFixed, nil
	}
	return "", ErrInvalidDiscountType
}

// StudentFeeDiscount is unique per (student, fee type, session).
type StudentFeeDiscount struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID    `gorm:"not null;uniqueIndex:ux_student_fee_discounts_key,priority:1" json:"tenant_id"`
	StudentID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_student_fee_discounts_key,priority:2" json:"student_id"`
	FeeTypeID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_student_fee_discounts_key,priority:3" json:"fee_type_id"`
	SessionID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_student_fee_discounts_key,priority:4" json:"session_id"`
	DiscountType  DiscountType    `gorm:"type:text;not null" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"discount_value"`
	Reason        string          `gorm:"type:text;not null" json:"reason"`
	ApprovedBy    string          `gorm:"type:text;not null" json:"approved_by"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

func (StudentFeeDiscount) TableName() string { return "student_fee_discounts" }

// DiscountView keeps the raw discount next to its display names.
type DiscountView struct {
	StudentFeeDiscount
	FeeTypeName string `json:"fee_type_name"`
	SessionName string `json:"session_name"`
}

var hundred = decimal.NewFromInt(100)

// Compute returns the discount granted on amount. Percentages round to two
// decimals and fixed discounts never exceed the amount.
func Compute(discount *StudentFeeDiscount, amount decimal.Decimal) decimal.Decimal {
	if discount == nil || !amount.IsPositive() || !discount.DiscountValue.IsPositive() {
		return decimal.Zero
	}
	switch discount.DiscountType {
	case DiscountTypePercentage:
		return decimal.Min(amount.Mul(discount.DiscountValue).Div(hundred).Round(2), amount)
	case DiscountTypeFixed:
		return decimal.Min(discount.DiscountValue, amount).Round(2)
	}
	return decimal.Zero
}

// Validate checks the value bounds for the discount type.
func Validate(discountType DiscountType, value decimal.Decimal) error {
	if !value.IsPositive() {
		return ErrInvalidDiscountValue
	}
	if discountType == DiscountTypePercentage && value.GreaterThan(hundred) {
		return ErrPercentageTooHigh
	}
	return nil
}
