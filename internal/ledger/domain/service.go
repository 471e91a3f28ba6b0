package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"gorm.io/gorm"
)

// PostingLine is one side of a posting addressed by account code.
type PostingLine struct {
	Account   LedgerAccountCode
	Direction LedgerEntryDirection
	Amount    decimal.Decimal
}

type Posting struct {
	TenantID   snowflake.ID
	SourceType LedgerSourceType
	SourceID   string
	OccurredAt time.Time
	Lines      []PostingLine
}

type Service interface {
	// Post writes a balanced entry inside tx. A second posting for the same
	// source is ignored and reported as false.
	Post(ctx context.Context, tx *gorm.DB, posting Posting) (bool, error)
	// Balance returns debits minus credits for the account.
	Balance(ctx context.Context, tenantID snowflake.ID, code LedgerAccountCode) (decimal.Decimal, error)
}

var (
	ErrInvalidTenant        = apperr.ErrInvalidTenant
	ErrInvalidSourceType    = apperr.Validation("invalid_source_type")
	ErrInvalidSourceID      = apperr.Validation("invalid_source_id")
	ErrInvalidOccurredAt    = apperr.Validation("invalid_occurred_at")
	ErrInvalidEntryLines    = apperr.Validation("invalid_entry_lines")
	ErrInvalidAccount       = apperr.Validation("invalid_account")
	ErrInvalidLineDirection = apperr.Validation("invalid_line_direction")
	ErrInvalidLineAmount    = apperr.Validation("invalid_line_amount")
	ErrUnbalancedEntry      = apperr.Validation("unbalanced_entry")
)

// ValidateBalanced checks that debits equal credits.
func ValidateBalanced(lines []PostingLine) error {
	debit := decimal.Zero
	credit := decimal.Zero
	for _, line := range lines {
		switch line.Direction {
		case LedgerEntryDirectionDebit:
			debit = debit.Add(line.Amount)
		case LedgerEntryDirectionCredit:
			credit = credit.Add(line.Amount)
		default:
			return ErrInvalidLineDirection
		}
	}
	if !debit.Equal(credit) {
		return ErrUnbalancedEntry
	}
	return nil
}

// Reverse swaps the direction of every line.
func Reverse(lines []PostingLine) []PostingLine {
	out := make([]PostingLine, 0, len(lines))
	for _, line := range lines {
		flipped := line
		if line.Direction == LedgerEntryDirectionDebit {
			flipped.Direction = LedgerEntryDirectionCredit
		} else {
			flipped.Direction = LedgerEntryDirectionDebit
		}
		out = append(out, flipped)
	}
	return out
}
