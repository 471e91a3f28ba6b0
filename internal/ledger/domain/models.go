package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// LedgerEntryDirection represents debit or credit postings.
type LedgerEntryDirection string

const (
	LedgerEntryDirectionDebit  LedgerEntryDirection = "debit"
	LedgerEntryDirectionCredit LedgerEntryDirection = "credit"
)

type LedgerSourceType string

const (
	SourceTypeDemandBill         LedgerSourceType = "demand_bill"
	SourceTypeDemandBillCancel   LedgerSourceType = "demand_bill_cancel"
	SourceTypeFeePayment         LedgerSourceType = "fee_payment"
	SourceTypeFeePaymentReversal LedgerSourceType = "fee_payment_reversal"
)

type LedgerAccountCode string

const (
	// Assets
	AccountCodeFeesReceivable LedgerAccountCode = "fees_receivable"
	AccountCodeCash           LedgerAccountCode = "cash"

	// Revenue
	AccountCodeFeeIncome LedgerAccountCode = "fee_income"

	// Contra revenue
	AccountCodeDiscountAllowed LedgerAccountCode = "discount_allowed"
)

var DefaultAccounts = map[LedgerAccountCode]string{
	AccountCodeFeesReceivable:  "Fees Receivable",
	AccountCodeCash:            "Cash and Bank",
	AccountCodeFeeIncome:       "Fee Income",
	AccountCodeDiscountAllowed: "Discount Allowed",
}

// LedgerAccount defines a chart-of-accounts entry.
type LedgerAccount struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	TenantID  snowflake.ID      `gorm:"not null;uniqueIndex:ux_ledger_accounts_tenant_code,priority:1"`
	Code      LedgerAccountCode `gorm:"type:text;not null;uniqueIndex:ux_ledger_accounts_tenant_code,priority:2"`
	Name      string            `gorm:"type:text;not null"`
	CreatedAt time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (LedgerAccount) TableName() string { return "ledger_accounts" }

// LedgerEntry captures the immutable header for a financial event. One entry
// exists per source document.
type LedgerEntry struct {
	ID         snowflake.ID     `gorm:"primaryKey"`
	TenantID   snowflake.ID     `gorm:"not null;uniqueIndex:ux_ledger_entries_source,priority:1"`
	SourceType LedgerSourceType `gorm:"type:text;not null;uniqueIndex:ux_ledger_entries_source,priority:2"`
	SourceID   string           `gorm:"type:text;not null;uniqueIndex:ux_ledger_entries_source,priority:3"`
	OccurredAt time.Time        `gorm:"not null"`
	CreatedAt  time.Time        `gorm:"not null"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// LedgerEntryLine is a double-entry posting line.
type LedgerEntryLine struct {
	ID            snowflake.ID         `gorm:"primaryKey"`
	LedgerEntryID snowflake.ID         `gorm:"not null;index"`
	AccountID     snowflake.ID         `gorm:"not null;index"`
	Direction     LedgerEntryDirection `gorm:"type:text;not null"`
	Amount        decimal.Decimal      `gorm:"type:numeric(14,2);not null"`
	CreatedAt     time.Time            `gorm:"not null"`
}

// TableName sets the database table name.
func (LedgerEntryLine) TableName() string { return "ledger_entry_lines" }
