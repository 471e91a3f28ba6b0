package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/dashboard/domain"
	billdomain "github.com/smallbiznis/bursary/internal/demandbill/domain"
	feepaymentdomain "github.com/smallbiznis/bursary/internal/feepayment/domain"
	ledgerdomain "github.com/smallbiznis/bursary/internal/ledger/domain"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        domain.Repository
	BillRepo    billdomain.Repository
	StudentRepo studentdomain.Repository
	SessionRepo sessiondomain.Repository
	Ledger      ledgerdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	billRepo    billdomain.Repository
	studentRepo studentdomain.Repository
	sessionRepo sessiondomain.Repository
	ledger      ledgerdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("dashboard.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		billRepo:    p.BillRepo,
		studentRepo: p.StudentRepo,
		sessionRepo: p.SessionRepo,
		ledger:      p.Ledger,
	}
}

// Summary aggregates billing and collection figures for one session.
// Cancelled bills are left out of every amount but still counted by status.
func (s *Service) Summary(ctx context.Context, sessionID snowflake.ID) (domain.Summary, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.Summary{}, apperr.ErrInvalidTenant
	}
	if sessionID == 0 {
		return domain.Summary{}, domain.ErrInvalidSession
	}
	session, err := s.sessionRepo.FindByID(ctx, s.db, tenantID, sessionID)
	if err != nil {
		return domain.Summary{}, err
	}
	if session == nil {
		return domain.Summary{}, sessiondomain.ErrNotFound
	}

	summary := domain.Summary{
		SessionID:          sessionID,
		TotalBilled:        decimal.Zero,
		TotalDiscount:      decimal.Zero,
		TotalCollected:     decimal.Zero,
		TotalOutstanding:   decimal.Zero,
		BillsByStatus:      map[string]int{},
		CollectionsByMode:  map[string]decimal.Decimal{},
		CollectedToday:     decimal.Zero,
		MonthlyCollections: make([]domain.MonthlyCollection, 12),
	}
	for slot := range summary.MonthlyCollections {
		summary.MonthlyCollections[slot] = domain.MonthlyCollection{
			Slot:   slot,
			Month:  feepaymentdomain.SlotMonth(slot),
			Amount: decimal.Zero,
		}
	}

	bills, err := s.billRepo.ListBySession(ctx, s.db, tenantID, sessionID)
	if err != nil {
		return domain.Summary{}, err
	}
	for _, bill := range bills {
		summary.BillsByStatus[string(bill.Status)]++
		if bill.Status == billdomain.BillStatusCancelled {
			continue
		}
		summary.TotalBilled = summary.TotalBilled.Add(bill.TotalAmount.Add(bill.LateFee))
		summary.TotalDiscount = summary.TotalDiscount.Add(bill.Discount)
		if bill.CarriedForwardTo == nil {
			summary.TotalOutstanding = summary.TotalOutstanding.Add(bill.Outstanding())
		}
	}

	txns, err := s.repo.ListTransactions(ctx, s.db, tenantID, sessionID)
	if err != nil {
		return domain.Summary{}, err
	}
	dayStart := startOfDay(s.clock.Now())
	dayEnd := dayStart.Add(24 * time.Hour)
	for _, txn := range txns {
		summary.TotalCollected = summary.TotalCollected.Add(txn.Amount)
		mode := string(txn.PaymentMode)
		summary.CollectionsByMode[mode] = summary.CollectionsByMode[mode].Add(txn.Amount)
		paidAt := txn.PaymentDate.UTC()
		if !paidAt.Before(dayStart) && paidAt.Before(dayEnd) {
			summary.CollectedToday = summary.CollectedToday.Add(txn.Amount)
		}
		if slot, err := feepaymentdomain.AcademicMonthSlot(int(paidAt.Month())); err == nil {
			summary.MonthlyCollections[slot].Amount = summary.MonthlyCollections[slot].Amount.Add(txn.Amount)
		}
	}

	counts, err := s.studentRepo.CountByStatus(ctx, s.db, tenantID, sessionID)
	if err != nil {
		return domain.Summary{}, err
	}
	summary.ActiveStudents = counts[studentdomain.StatusActive]
	summary.PassedStudents = counts[studentdomain.StatusPassed]

	balance, err := s.ledger.Balance(ctx, tenantID, ledgerdomain.AccountCodeFeesReceivable)
	if err != nil {
		return domain.Summary{}, err
	}
	summary.ReceivableBalance = balance
	return summary, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
