package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type BillStatus string

const (
	BillStatusPending       BillStatus = "PENDING"
	BillStatusSent          BillStatus = "SENT"
	BillStatusPartiallyPaid BillStatus = "PARTIALLY_PAID"
	BillStatusPaid          BillStatus = "PAID"
	BillStatusOverdue       BillStatus = "OVERDUE"
	BillStatusCancelled     BillStatus = "CANCELLED"
)

func (s BillStatus) Valid() bool {
	switch s {
	case BillStatusPending, BillStatusSent, BillStatusPartiallyPaid, BillStatusPaid, BillStatusOverdue, BillStatusCancelled:
		return true
	}
	return false
}

// DemandBill is one student's obligation for one billing period.
// NetAmount = TotalAmount + PreviousDues + LateFee - Discount, and
// PreviousDues = CarriedDues - AdvanceApplied.
type DemandBill struct {
	ID               snowflake.ID     `gorm:"primaryKey" json:"id"`
	TenantID         snowflake.ID     `gorm:"not null;uniqueIndex:ux_demand_bills_no,priority:1;uniqueIndex:ux_demand_bills_period,priority:1" json:"tenant_id"`
	BillNo           string           `gorm:"type:text;not null;uniqueIndex:ux_demand_bills_no,priority:2" json:"bill_no"`
	StudentID        snowflake.ID     `gorm:"not null;uniqueIndex:ux_demand_bills_period,priority:2" json:"student_id"`
	SessionID        snowflake.ID     `gorm:"not null;uniqueIndex:ux_demand_bills_period,priority:3" json:"session_id"`
	Month            int              `gorm:"not null;uniqueIndex:ux_demand_bills_period,priority:4" json:"month"`
	Year             int              `gorm:"not null;uniqueIndex:ux_demand_bills_period,priority:5" json:"year"`
	ClassName        string           `gorm:"type:text;not null" json:"class_name"`
	Section          string           `gorm:"type:text;not null" json:"section"`
	BillDate         time.Time        `gorm:"not null" json:"bill_date"`
	DueDate          time.Time        `gorm:"not null" json:"due_date"`
	TotalAmount      decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	CarriedDues      decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"carried_dues"`
	AdvanceApplied   decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"advance_applied"`
	PreviousDues     decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"previous_dues"`
	LateFee          decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"late_fee"`
	Discount         decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"discount"`
	NetAmount        decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"net_amount"`
	PaidAmount       decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"paid_amount"`
	Status           BillStatus       `gorm:"type:text;not null;index" json:"status"`
	CarriedForwardTo *string          `gorm:"type:text;index" json:"carried_forward_to,omitempty"`
	SentAt           *time.Time       `json:"sent_at,omitempty"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty"`
	CancelReason     *string          `gorm:"type:text" json:"cancel_reason,omitempty"`
	GeneratedBy      string           `gorm:"type:text;not null" json:"generated_by"`
	Version          int64            `gorm:"not null" json:"version"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null" json:"updated_at"`
	Items            []DemandBillItem `gorm:"-" json:"items,omitempty"`
}

func (DemandBill) TableName() string { return "demand_bills" }

// Outstanding is the unpaid part of the bill.
func (b *DemandBill) Outstanding() decimal.Decimal {
	outstanding := b.NetAmount.Sub(b.PaidAmount)
	if outstanding.IsNegative() {
		return decimal.Zero
	}
	return outstanding
}

// Period orders billing months across years.
func (b *DemandBill) Period() int {
	return Period(b.Year, b.Month)
}

func Period(year, month int) int {
	return year*12 + month
}

type DemandBillItem struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID    `gorm:"not null;index" json:"tenant_id"`
	BillID         snowflake.ID    `gorm:"not null;uniqueIndex:ux_demand_bill_items_fee_type,priority:1" json:"bill_id"`
	FeeTypeID      snowflake.ID    `gorm:"not null;uniqueIndex:ux_demand_bill_items_fee_type,priority:2" json:"fee_type_id"`
	FeeTypeName    string          `gorm:"type:text;not null" json:"fee_type_name"`
	Position       int             `gorm:"not null" json:"position"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"discount_amount"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
}

func (DemandBillItem) TableName() string { return "demand_bill_items" }

// DeriveStatus computes a bill status from its amounts. Cancelled bills stay
// cancelled and a bill with nothing to pay is never overdue.
func DeriveStatus(current BillStatus, paid, net decimal.Decimal, dueDate, now time.Time) BillStatus {
	if current == BillStatusCancelled {
		return BillStatusCancelled
	}
	if paid.IsPositive() {
		if paid.GreaterThanOrEqual(net) {
			return BillStatusPaid
		}
		return BillStatusPartiallyPaid
	}
	if net.IsPositive() && !dueDate.IsZero() && now.After(dueDate) {
		return BillStatusOverdue
	}
	if current == BillStatusSent {
		return BillStatusSent
	}
	return BillStatusPending
}
