package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "CASH"
	PaymentModeCheque       PaymentMode = "CHEQUE"
	PaymentModeCard         PaymentMode = "CARD"
	PaymentModeUPI          PaymentMode = "UPI"
	PaymentModeBankTransfer PaymentMode = "BANK_TRANSFER"
	PaymentModeOnline       PaymentMode = "ONLINE"
)

var paymentModes = []PaymentMode{
	PaymentModeCash,
	PaymentModeCheque,
	PaymentModeCard,
	PaymentModeUPI,
	PaymentModeBankTransfer,
	PaymentModeOnline,
}

func ParsePaymentMode(value string) (PaymentMode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	for _, mode := range paymentModes {
		if string(mode) == normalized {
			return mode, nil
		}
	}
	return "", ErrInvalidPaymentMode
}

type TransactionKind string

const (
	TransactionKindPayment  TransactionKind = "PAYMENT"
	TransactionKindReversal TransactionKind = "REVERSAL"
)

// FeeTransaction is immutable once written. A reversal is a second
// transaction with a negative amount pointing at the original through
// ReversalOf; the original only records who reversed it.
type FeeTransaction struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID      `gorm:"not null;uniqueIndex:ux_fee_transactions_txn,priority:1;uniqueIndex:ux_fee_transactions_receipt,priority:1;uniqueIndex:ux_fee_transactions_reversal,priority:1;index:idx_fee_transactions_student,priority:1" json:"tenant_id"`
	TransactionID string            `gorm:"type:text;not null;uniqueIndex:ux_fee_transactions_txn,priority:2" json:"transaction_id"`
	ReceiptNo     string            `gorm:"type:text;not null;uniqueIndex:ux_fee_transactions_receipt,priority:2" json:"receipt_no"`
	StudentID     snowflake.ID      `gorm:"not null;index:idx_fee_transactions_student,priority:2" json:"student_id"`
	SessionID     snowflake.ID      `gorm:"not null;index:idx_fee_transactions_student,priority:3" json:"session_id"`
	BillNo        *string           `gorm:"type:text;index" json:"bill_no,omitempty"`
	Kind          TransactionKind   `gorm:"type:text;not null" json:"kind"`
	Amount        decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"amount"`
	PaymentMode   PaymentMode       `gorm:"type:text;not null" json:"payment_mode"`
	PaymentDate   time.Time         `gorm:"not null" json:"payment_date"`
	ReversalOf    *string           `gorm:"type:text;uniqueIndex:ux_fee_transactions_reversal,priority:2" json:"reversal_of,omitempty"`
	ReversedBy    *string           `gorm:"type:text" json:"reversed_by,omitempty"`
	Reason        *string           `gorm:"type:text" json:"reason,omitempty"`
	Remarks       *string           `gorm:"type:text" json:"remarks,omitempty"`
	CollectedBy   string            `gorm:"type:text;not null" json:"collected_by"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`

	Details []FeePaymentDetail `gorm:"-" json:"details"`
}

func (FeeTransaction) TableName() string { return "fee_transactions" }

type FeePaymentDetail struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID       snowflake.ID    `gorm:"not null;index" json:"tenant_id"`
	TxnID          snowflake.ID    `gorm:"column:txn_id;not null;index" json:"txn_id"`
	FeeTypeID      snowflake.ID    `gorm:"not null;index" json:"fee_type_id"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"discount_amount"`
	NetAmount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"net_amount"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
}

func (FeePaymentDetail) TableName() string { return "fee_payment_details" }

// AcademicMonthSlot maps a calendar month to its position in an April to
// March academic year: April is 0 and March is 11.
func AcademicMonthSlot(calendarMonth int) (int, error) {
	switch {
	case calendarMonth >= 4 && calendarMonth <= 12:
		return calendarMonth - 4, nil
	case calendarMonth >= 1 && calendarMonth <= 3:
		return calendarMonth + 8, nil
	}
	return 0, ErrInvalidMonth
}

// SlotMonth is the inverse of AcademicMonthSlot.
func SlotMonth(slot int) int {
	if slot <= 8 {
		return slot + 4
	}
	return slot - 8
}
