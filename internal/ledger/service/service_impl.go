package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bursary/internal/clock"
	ledgerdomain "github.com/smallbiznis/bursary/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/bursary/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Post(ctx context.Context, tx *gorm.DB, posting ledgerdomain.Posting) (bool, error) {
	if posting.TenantID == 0 {
		return false, ledgerdomain.ErrInvalidTenant
	}
	sourceType := ledgerdomain.LedgerSourceType(strings.TrimSpace(string(posting.SourceType)))
	if sourceType == "" {
		return false, ledgerdomain.ErrInvalidSourceType
	}
	sourceID := strings.TrimSpace(posting.SourceID)
	if sourceID == "" {
		return false, ledgerdomain.ErrInvalidSourceID
	}
	if posting.OccurredAt.IsZero() {
		return false, ledgerdomain.ErrInvalidOccurredAt
	}

	normalized := make([]ledgerdomain.PostingLine, 0, len(posting.Lines))
	for _, line := range posting.Lines {
		if _, ok := ledgerdomain.DefaultAccounts[line.Account]; !ok {
			return false, ledgerdomain.ErrInvalidAccount
		}
		direction, err := normalizeDirection(line.Direction)
		if err != nil {
			return false, err
		}
		if line.Amount.IsNegative() {
			return false, ledgerdomain.ErrInvalidLineAmount
		}
		if line.Amount.IsZero() {
			continue
		}
		normalized = append(normalized, ledgerdomain.PostingLine{
			Account:   line.Account,
			Direction: direction,
			Amount:    line.Amount.Round(2),
		})
	}
	if len(normalized) == 0 {
		return false, nil
	}
	if len(normalized) < 2 {
		return false, ledgerdomain.ErrInvalidEntryLines
	}
	if err := ledgerdomain.ValidateBalanced(normalized); err != nil {
		return false, err
	}

	if tx == nil {
		tx = s.db
	}
	accounts, err := s.ensureAccounts(ctx, tx, posting.TenantID)
	if err != nil {
		return false, err
	}

	entryID := s.genID.Generate()
	now := s.clock.Now()
	result := tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (
			id, tenant_id, source_type, source_id, occurred_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, source_type, source_id) DO NOTHING`,
		entryID,
		posting.TenantID,
		string(sourceType),
		sourceID,
		posting.OccurredAt.UTC(),
		now,
	)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		s.log.Debug("ledger entry already posted",
			zap.String("source_type", string(sourceType)),
			zap.String("source_id", sourceID),
		)
		return false, nil
	}

	for _, line := range normalized {
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger_entry_lines (
				id, ledger_entry_id, account_id, direction, amount, created_at
			) VALUES (?, ?, ?, ?, ?, ?)`,
			s.genID.Generate(),
			entryID,
			accounts[line.Account],
			string(line.Direction),
			line.Amount,
			now,
		).Error; err != nil {
			return false, err
		}
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordLedgerEntry(ctx, string(sourceType))
	}
	return true, nil
}

func (s *Service) Balance(ctx context.Context, tenantID snowflake.ID, code ledgerdomain.LedgerAccountCode) (decimal.Decimal, error) {
	if tenantID == 0 {
		return decimal.Zero, ledgerdomain.ErrInvalidTenant
	}

	var rows []struct {
		Direction string
		Total     decimal.Decimal
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT l.direction AS direction, COALESCE(SUM(l.amount), 0) AS total
		FROM ledger_entry_lines l
		JOIN ledger_accounts a ON a.id = l.account_id
		WHERE a.tenant_id = ? AND a.code = ?
		GROUP BY l.direction`,
		tenantID,
		string(code),
	).Scan(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, row := range rows {
		switch ledgerdomain.LedgerEntryDirection(row.Direction) {
		case ledgerdomain.LedgerEntryDirectionDebit:
			balance = balance.Add(row.Total)
		case ledgerdomain.LedgerEntryDirectionCredit:
			balance = balance.Sub(row.Total)
		}
	}
	return balance.Round(2), nil
}

// ensureAccounts creates the tenant chart of accounts on first use.
func (s *Service) ensureAccounts(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) (map[ledgerdomain.LedgerAccountCode]snowflake.ID, error) {
	var existing []ledgerdomain.LedgerAccount
	if err := tx.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&existing).Error; err != nil {
		return nil, err
	}

	accounts := make(map[ledgerdomain.LedgerAccountCode]snowflake.ID, len(ledgerdomain.DefaultAccounts))
	for _, account := range existing {
		accounts[account.Code] = account.ID
	}
	if len(accounts) == len(ledgerdomain.DefaultAccounts) {
		return accounts, nil
	}

	now := s.clock.Now()
	for code, name := range ledgerdomain.DefaultAccounts {
		if _, ok := accounts[code]; ok {
			continue
		}
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger_accounts (id, tenant_id, code, name, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (tenant_id, code) DO NOTHING`,
			s.genID.Generate(),
			tenantID,
			string(code),
			name,
			now,
		).Error; err != nil {
			return nil, err
		}
	}

	existing = existing[:0]
	if err := tx.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&existing).Error; err != nil {
		return nil, err
	}
	for _, account := range existing {
		accounts[account.Code] = account.ID
	}
	return accounts, nil
}

func normalizeDirection(direction ledgerdomain.LedgerEntryDirection) (ledgerdomain.LedgerEntryDirection, error) {
	normalized := strings.ToLower(strings.TrimSpace(string(direction)))
	switch normalized {
	case string(ledgerdomain.LedgerEntryDirectionDebit):
		return ledgerdomain.LedgerEntryDirectionDebit, nil
	case string(ledgerdomain.LedgerEntryDirectionCredit):
		return ledgerdomain.LedgerEntryDirectionCredit, nil
	default:
		return "", ledgerdomain.ErrInvalidLineDirection
	}
}
