package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Frequency string

const (
	FrequencyMonthly    Frequency = "Monthly"
	FrequencyYearly     Frequency = "Yearly"
	FrequencyOneTime    Frequency = "One-time"
	FrequencyRefundable Frequency = "Refundable"
)

// ParseFrequency accepts the canonical names case-insensitively. An empty
// value means no frequency.
func ParseFrequency(value string) (*Frequency, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, candidate := range []Frequency{FrequencyMonthly, FrequencyYearly, FrequencyOneTime, FrequencyRefundable} {
		if strings.EqualFold(value, string(candidate)) {
			freq := candidate
			return &freq, nil
		}
	}
	return nil, ErrInvalidFrequency
}

// Recurring reports whether the fee is billed every month.
func (f *Frequency) Recurring() bool {
	return f == nil || *f == FrequencyMonthly
}

type FeeType struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID `gorm:"not null;uniqueIndex:ux_fee_types_tenant_code,priority:1" json:"tenant_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Code        string       `gorm:"type:text;not null;uniqueIndex:ux_fee_types_tenant_code,priority:2" json:"code"`
	Description string       `gorm:"type:text;not null" json:"description"`
	IsDefault   bool         `gorm:"not null" json:"is_default"`
	IsActive    bool         `gorm:"not null" json:"is_active"`
	Frequency   *Frequency   `gorm:"type:text" json:"frequency"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (FeeType) TableName() string { return "fee_types" }

type DefaultFeeType struct {
	Name        string
	Description string
	Frequency   Frequency
}

var DefaultFeeTypes = []DefaultFeeType{
	{Name: "Tuition Fee", Description: "Monthly tuition", Frequency: FrequencyMonthly},
	{Name: "Admission Fee", Description: "Charged once on admission", Frequency: FrequencyOneTime},
	{Name: "Examination Fee", Description: "Annual examination charges", Frequency: FrequencyYearly},
	{Name: "Transport Fee", Description: "School transport", Frequency: FrequencyMonthly},
	{Name: "Caution Deposit", Description: "Refundable security deposit", Frequency: FrequencyRefundable},
}
