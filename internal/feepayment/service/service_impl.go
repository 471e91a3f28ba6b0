package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	auditdomain "github.com/smallbiznis/bursary/internal/audit/domain"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/config"
	billdomain "github.com/smallbiznis/bursary/internal/demandbill/domain"
	discountdomain "github.com/smallbiznis/bursary/internal/discount/domain"
	"github.com/smallbiznis/bursary/internal/feepayment/domain"
	feetypedomain "github.com/smallbiznis/bursary/internal/feetype/domain"
	ledgerdomain "github.com/smallbiznis/bursary/internal/ledger/domain"
	"github.com/smallbiznis/bursary/internal/observability/metrics"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Billing      *config.BillingConfigHolder
	Repo         domain.Repository
	BillRepo     billdomain.Repository
	DiscountRepo discountdomain.Repository
	FeeTypeRepo  feetypedomain.Repository
	StudentRepo  studentdomain.Repository
	SessionRepo  sessiondomain.Repository
	Ledger       ledgerdomain.Service
	Metrics      *metrics.Metrics    `optional:"true"`
	AuditSvc     auditdomain.Service `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	billing      *config.BillingConfigHolder
	repo         domain.Repository
	billRepo     billdomain.Repository
	discountRepo discountdomain.Repository
	feeTypeRepo  feetypedomain.Repository
	studentRepo  studentdomain.Repository
	sessionRepo  sessiondomain.Repository
	ledger       ledgerdomain.Service
	metrics      *metrics.Metrics
	auditSvc     auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("feepayment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		billing:      p.Billing,
		repo:         p.Repo,
		billRepo:     p.BillRepo,
		discountRepo: p.DiscountRepo,
		feeTypeRepo:  p.FeeTypeRepo,
		studentRepo:  p.StudentRepo,
		sessionRepo:  p.SessionRepo,
		ledger:       p.Ledger,
		metrics:      p.Metrics,
		auditSvc:     p.AuditSvc,
	}
}

// Collect records a payment. When a bill number is given the bill is locked
// and its paid amount and status move with the payment in the same
// transaction.
func (s *Service) Collect(ctx context.Context, req domain.CollectRequest) (domain.FeeTransaction, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.FeeTransaction{}, apperr.ErrInvalidTenant
	}
	mode, details, err := validateCollect(req)
	if err != nil {
		return domain.FeeTransaction{}, err
	}
	if err := s.ensureParties(ctx, tenantID, req.StudentID, req.SessionID); err != nil {
		return domain.FeeTransaction{}, err
	}
	if err := s.ensureFeeTypes(ctx, tenantID, details); err != nil {
		return domain.FeeTransaction{}, err
	}

	now := s.clock.Now()
	paymentDate := now
	if req.PaymentDate != nil && !req.PaymentDate.IsZero() {
		paymentDate = req.PaymentDate.UTC()
	}
	amount := req.Amount.Round(2)
	txn := &domain.FeeTransaction{
		ID:            s.genID.Generate(),
		TenantID:      tenantID,
		TransactionID: ulid.Make().String(),
		StudentID:     req.StudentID,
		SessionID:     req.SessionID,
		Kind:          domain.TransactionKindPayment,
		Amount:        amount,
		PaymentMode:   mode,
		PaymentDate:   paymentDate,
		CollectedBy:   tenantcontext.ResolveActor(ctx, req.CollectedBy),
		CreatedAt:     now,
	}
	txn.ReceiptNo = s.receiptNumber()
	if billNo := strings.TrimSpace(req.BillNo); billNo != "" {
		txn.BillNo = &billNo
	}
	if remarks := strings.TrimSpace(req.Remarks); remarks != "" {
		txn.Remarks = &remarks
	}
	if len(req.Metadata) > 0 {
		txn.Metadata = datatypes.JSONMap(req.Metadata)
	}
	for _, detail := range details {
		detail.ID = s.genID.Generate()
		detail.TenantID = tenantID
		detail.TxnID = txn.ID
		detail.CreatedAt = now
		txn.Details = append(txn.Details, *detail)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if txn.BillNo != nil {
			if err := s.applyPayment(ctx, tx, tenantID, txn, now); err != nil {
				return err
			}
		}
		if err := s.repo.Insert(ctx, tx, txn); err != nil {
			return err
		}
		if err := s.repo.InsertDetails(ctx, tx, details); err != nil {
			return err
		}
		_, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			TenantID:   tenantID,
			SourceType: ledgerdomain.SourceTypeFeePayment,
			SourceID:   txn.ID.String(),
			OccurredAt: now,
			Lines: []ledgerdomain.PostingLine{
				{Account: ledgerdomain.AccountCodeCash, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: amount},
				{Account: ledgerdomain.AccountCodeFeesReceivable, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: amount},
			},
		})
		return err
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.FeeTransaction{}, domain.ErrDuplicateTransaction
		}
		return domain.FeeTransaction{}, err
	}

	s.metrics.RecordPayment(ctx, string(mode), string(domain.TransactionKindPayment), amount.InexactFloat64())
	s.log.Info("payment collected",
		zap.String("transaction_id", txn.TransactionID),
		zap.String("receipt_no", txn.ReceiptNo),
		zap.String("student_id", txn.StudentID.String()),
		zap.String("amount", amount.StringFixed(2)),
	)
	if s.auditSvc != nil {
		metadata := map[string]any{
			"receipt_no":   txn.ReceiptNo,
			"student_id":   txn.StudentID.String(),
			"session_id":   txn.SessionID.String(),
			"amount":       amount.StringFixed(2),
			"payment_mode": string(mode),
		}
		if txn.BillNo != nil {
			metadata["bill_no"] = *txn.BillNo
		}
		_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionPaymentCollect, "fee_transaction", &txn.TransactionID, metadata)
	}
	return *txn, nil
}

// applyPayment adds the payment to its bill. The bill row is locked and the
// write is guarded by the version read under that lock.
func (s *Service) applyPayment(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, txn *domain.FeeTransaction, now time.Time) error {
	bill, err := s.billRepo.FindByNoForUpdate(ctx, tx, tenantID, *txn.BillNo)
	if err != nil {
		return err
	}
	if bill == nil {
		return billdomain.ErrNotFound
	}
	if bill.StudentID != txn.StudentID || bill.SessionID != txn.SessionID {
		return domain.ErrBillStudentMismatch
	}
	if bill.Status == billdomain.BillStatusCancelled {
		return domain.ErrBillCancelled
	}
	if bill.CarriedForwardTo != nil {
		return domain.ErrBillCarriedForward
	}
	if bill.Status == billdomain.BillStatusPaid || !bill.Outstanding().IsPositive() {
		return domain.ErrBillAlreadyPaid
	}
	if txn.Amount.GreaterThan(bill.Outstanding()) {
		return domain.ErrAmountExceedsBalance
	}

	bill.PaidAmount = bill.PaidAmount.Add(txn.Amount)
	bill.Status = billdomain.DeriveStatus(bill.Status, bill.PaidAmount, bill.NetAmount, bill.DueDate, now)
	bill.UpdatedAt = now
	return s.billRepo.Save(ctx, tx, bill)
}

// Reverse writes a compensating transaction for a payment. The original row
// is never changed beyond recording who reversed it.
func (s *Service) Reverse(ctx context.Context, req domain.ReverseRequest) (domain.FeeTransaction, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.FeeTransaction{}, apperr.ErrInvalidTenant
	}
	transactionID := strings.TrimSpace(req.TransactionID)
	if transactionID == "" {
		return domain.FeeTransaction{}, domain.ErrInvalidTransactionID
	}
	reason := strings.TrimSpace(req.Reason)
	actor := tenantcontext.ResolveActor(ctx, req.ReversedBy)
	now := s.clock.Now()

	var reversal *domain.FeeTransaction
	var original *domain.FeeTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		original, err = s.repo.FindByTransactionIDForUpdate(ctx, tx, tenantID, transactionID)
		if err != nil {
			return err
		}
		if original == nil {
			return domain.ErrNotFound
		}
		if original.Kind == domain.TransactionKindReversal {
			return domain.ErrReversalNotReversible
		}
		if original.ReversedBy != nil {
			return domain.ErrAlreadyReversed
		}

		if original.BillNo != nil {
			if err := s.withdrawPayment(ctx, tx, tenantID, original, now); err != nil {
				return err
			}
		} else {
			available, err := s.billRepo.AvailableAdvance(ctx, tx, tenantID, original.StudentID, original.SessionID)
			if err != nil {
				return err
			}
			if available.LessThan(original.Amount) {
				return domain.ErrAdvanceApplied
			}
		}

		details, err := s.repo.ListDetails(ctx, tx, tenantID, []snowflake.ID{original.ID})
		if err != nil {
			return err
		}

		reversal = &domain.FeeTransaction{
			ID:            s.genID.Generate(),
			TenantID:      tenantID,
			TransactionID: ulid.Make().String(),
			ReceiptNo:     s.receiptNumber(),
			StudentID:     original.StudentID,
			SessionID:     original.SessionID,
			BillNo:        original.BillNo,
			Kind:          domain.TransactionKindReversal,
			Amount:        original.Amount.Neg(),
			PaymentMode:   original.PaymentMode,
			PaymentDate:   now,
			ReversalOf:    &original.TransactionID,
			CollectedBy:   actor,
			CreatedAt:     now,
		}
		if reason != "" {
			reversal.Reason = &reason
		}

		negated := make([]*domain.FeePaymentDetail, 0, len(details))
		for _, detail := range details {
			item := &domain.FeePaymentDetail{
				ID:             s.genID.Generate(),
				TenantID:       tenantID,
				TxnID:          reversal.ID,
				FeeTypeID:      detail.FeeTypeID,
				Amount:         detail.Amount.Neg(),
				DiscountAmount: detail.DiscountAmount.Neg(),
				NetAmount:      detail.NetAmount.Neg(),
				CreatedAt:      now,
			}
			negated = append(negated, item)
			reversal.Details = append(reversal.Details, *item)
		}

		if err := s.repo.Insert(ctx, tx, reversal); err != nil {
			return err
		}
		if err := s.repo.InsertDetails(ctx, tx, negated); err != nil {
			return err
		}
		marked, err := s.repo.MarkReversed(ctx, tx, tenantID, original.ID, reversal.TransactionID)
		if err != nil {
			return err
		}
		if !marked {
			return domain.ErrAlreadyReversed
		}

		_, err = s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			TenantID:   tenantID,
			SourceType: ledgerdomain.SourceTypeFeePaymentReversal,
			SourceID:   original.ID.String(),
			OccurredAt: now,
			Lines: []ledgerdomain.PostingLine{
				{Account: ledgerdomain.AccountCodeFeesReceivable, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: original.Amount},
				{Account: ledgerdomain.AccountCodeCash, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: original.Amount},
			},
		})
		return err
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.FeeTransaction{}, domain.ErrAlreadyReversed
		}
		return domain.FeeTransaction{}, err
	}

	s.metrics.RecordPayment(ctx, string(reversal.PaymentMode), string(domain.TransactionKindReversal), reversal.Amount.InexactFloat64())
	s.log.Info("payment reversed",
		zap.String("transaction_id", original.TransactionID),
		zap.String("reversal_id", reversal.TransactionID),
	)
	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionPaymentReverse, "fee_transaction", &original.TransactionID, map[string]any{
			"reversal_id": reversal.TransactionID,
			"amount":      original.Amount.StringFixed(2),
			"reason":      reason,
		})
	}
	return *reversal, nil
}

// withdrawPayment takes a reversed payment back off its bill.
func (s *Service) withdrawPayment(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, original *domain.FeeTransaction, now time.Time) error {
	bill, err := s.billRepo.FindByNoForUpdate(ctx, tx, tenantID, *original.BillNo)
	if err != nil {
		return err
	}
	if bill == nil {
		return billdomain.ErrNotFound
	}
	if bill.CarriedForwardTo != nil {
		return domain.ErrBillCarriedForward
	}

	bill.PaidAmount = bill.PaidAmount.Sub(original.Amount)
	if bill.PaidAmount.IsNegative() {
		bill.PaidAmount = decimal.Zero
	}
	current := bill.Status
	if bill.SentAt != nil && current != billdomain.BillStatusCancelled {
		current = billdomain.BillStatusSent
	}
	bill.Status = billdomain.DeriveStatus(current, bill.PaidAmount, bill.NetAmount, bill.DueDate, now)
	bill.UpdatedAt = now
	return s.billRepo.Save(ctx, tx, bill)
}

func (s *Service) Get(ctx context.Context, transactionID string) (domain.FeeTransaction, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.FeeTransaction{}, apperr.ErrInvalidTenant
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.FeeTransaction{}, domain.ErrInvalidTransactionID
	}

	txn, err := s.repo.FindByTransactionID(ctx, s.db, tenantID, transactionID)
	if err != nil {
		return domain.FeeTransaction{}, err
	}
	if txn == nil {
		return domain.FeeTransaction{}, domain.ErrNotFound
	}
	if err := s.attachDetails(ctx, tenantID, []*domain.FeeTransaction{txn}); err != nil {
		return domain.FeeTransaction{}, err
	}
	return *txn, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, apperr.ErrInvalidTenant
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}
	page := req.Pagination
	page.PageSize = pageSize

	items, err := s.repo.List(ctx, s.db, tenantID, req.ListFilter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(txn *domain.FeeTransaction) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        txn.ID.String(),
			CreatedAt: txn.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}
	if err := s.attachDetails(ctx, tenantID, items); err != nil {
		return domain.ListResponse{}, err
	}

	resp := domain.ListResponse{Transactions: make([]domain.FeeTransaction, 0, len(items))}
	for _, item := range items {
		resp.Transactions = append(resp.Transactions, *item)
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// Statement aggregates a student's bills, payments and discounts for one
// session. Months are laid out April to March.
func (s *Service) Statement(ctx context.Context, studentID, sessionID snowflake.ID) (domain.Statement, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.Statement{}, apperr.ErrInvalidTenant
	}
	if studentID == 0 {
		return domain.Statement{}, domain.ErrInvalidStudent
	}
	if sessionID == 0 {
		return domain.Statement{}, domain.ErrInvalidSession
	}
	if err := s.ensureParties(ctx, tenantID, studentID, sessionID); err != nil {
		return domain.Statement{}, err
	}

	bills, err := s.billRepo.ListByStudentSession(ctx, s.db, tenantID, studentID, sessionID)
	if err != nil {
		return domain.Statement{}, err
	}
	txns, err := s.repo.ListByStudentSession(ctx, s.db, tenantID, studentID, sessionID)
	if err != nil {
		return domain.Statement{}, err
	}
	if err := s.attachDetails(ctx, tenantID, txns); err != nil {
		return domain.Statement{}, err
	}
	discounts, err := s.discountRepo.ListByStudent(ctx, s.db, tenantID, studentID, &sessionID)
	if err != nil {
		return domain.Statement{}, err
	}

	statement := domain.Statement{
		StudentID:      studentID,
		SessionID:      sessionID,
		TotalBilled:    decimal.Zero,
		TotalDiscount:  decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalDue:       decimal.Zero,
		AdvanceBalance: decimal.Zero,
		Months:         make([]domain.MonthBreakdown, 12),
		Bills:          make([]billdomain.DemandBill, 0, len(bills)),
		Transactions:   make([]domain.FeeTransaction, 0, len(txns)),
		Discounts:      make([]discountdomain.DiscountView, 0, len(discounts)),
	}
	for slot := range statement.Months {
		statement.Months[slot] = domain.MonthBreakdown{
			Slot:     slot,
			Month:    domain.SlotMonth(slot),
			Billed:   decimal.Zero,
			Discount: decimal.Zero,
			Paid:     decimal.Zero,
		}
	}

	for _, bill := range bills {
		statement.Bills = append(statement.Bills, *bill)
		if bill.Status == billdomain.BillStatusCancelled {
			continue
		}
		charged := bill.TotalAmount.Add(bill.LateFee)
		statement.TotalBilled = statement.TotalBilled.Add(charged)
		statement.TotalDiscount = statement.TotalDiscount.Add(bill.Discount)
		if slot, err := domain.AcademicMonthSlot(bill.Month); err == nil {
			statement.Months[slot].Billed = statement.Months[slot].Billed.Add(charged)
			statement.Months[slot].Discount = statement.Months[slot].Discount.Add(bill.Discount)
		}
	}
	for _, txn := range txns {
		statement.Transactions = append(statement.Transactions, *txn)
		statement.TotalPaid = statement.TotalPaid.Add(txn.Amount)
		if slot, err := domain.AcademicMonthSlot(int(txn.PaymentDate.Month())); err == nil {
			statement.Months[slot].Paid = statement.Months[slot].Paid.Add(txn.Amount)
		}
	}
	for _, discount := range discounts {
		statement.Discounts = append(statement.Discounts, *discount)
	}

	payable := statement.TotalBilled.Sub(statement.TotalDiscount)
	if due := payable.Sub(statement.TotalPaid); due.IsPositive() {
		statement.TotalDue = due
	}
	if advance := statement.TotalPaid.Sub(payable); advance.IsPositive() {
		statement.AdvanceBalance = advance
	}
	return statement, nil
}

func (s *Service) attachDetails(ctx context.Context, tenantID snowflake.ID, txns []*domain.FeeTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(txns))
	byID := make(map[snowflake.ID]*domain.FeeTransaction, len(txns))
	for _, txn := range txns {
		ids = append(ids, txn.ID)
		byID[txn.ID] = txn
		txn.Details = []domain.FeePaymentDetail{}
	}
	details, err := s.repo.ListDetails(ctx, s.db, tenantID, ids)
	if err != nil {
		return err
	}
	for _, detail := range details {
		if txn, ok := byID[detail.TxnID]; ok {
			txn.Details = append(txn.Details, *detail)
		}
	}
	return nil
}

func (s *Service) ensureParties(ctx context.Context, tenantID, studentID, sessionID snowflake.ID) error {
	session, err := s.sessionRepo.FindByID(ctx, s.db, tenantID, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return sessiondomain.ErrNotFound
	}
	student, err := s.studentRepo.FindByID(ctx, s.db, tenantID, studentID)
	if err != nil {
		return err
	}
	if student == nil {
		return studentdomain.ErrNotFound
	}
	return nil
}

func (s *Service) ensureFeeTypes(ctx context.Context, tenantID snowflake.ID, details []*domain.FeePaymentDetail) error {
	ids := make([]snowflake.ID, 0, len(details))
	for _, detail := range details {
		ids = append(ids, detail.FeeTypeID)
	}
	found, err := s.feeTypeRepo.FindByIDs(ctx, s.db, tenantID, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return feetypedomain.ErrNotFound
		}
	}
	return nil
}

func (s *Service) receiptNumber() string {
	prefix := strings.TrimSpace(s.billing.Get().ReceiptPrefix)
	if prefix == "" {
		prefix = "RCPT"
	}
	return fmt.Sprintf("%s-%s", prefix, s.genID.Generate().String())
}

// validateCollect checks the request shape and returns the payment details
// with their net amounts filled in. The net amounts must add up to the
// transaction amount.
func validateCollect(req domain.CollectRequest) (domain.PaymentMode, []*domain.FeePaymentDetail, error) {
	if req.StudentID == 0 {
		return "", nil, domain.ErrInvalidStudent
	}
	if req.SessionID == 0 {
		return "", nil, domain.ErrInvalidSession
	}
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return "", nil, domain.ErrInvalidAmount
	}
	mode, err := domain.ParsePaymentMode(req.PaymentMode)
	if err != nil {
		return "", nil, err
	}
	if len(req.Details) == 0 {
		return "", nil, domain.ErrInvalidDetails
	}

	seen := make(map[snowflake.ID]struct{}, len(req.Details))
	details := make([]*domain.FeePaymentDetail, 0, len(req.Details))
	sum := decimal.Zero
	for _, input := range req.Details {
		if input.FeeTypeID == 0 {
			return "", nil, domain.ErrInvalidDetails
		}
		if _, dup := seen[input.FeeTypeID]; dup {
			return "", nil, domain.ErrDuplicateDetail
		}
		seen[input.FeeTypeID] = struct{}{}

		if !input.Amount.IsPositive() || input.DiscountAmount.IsNegative() || input.DiscountAmount.GreaterThan(input.Amount) {
			return "", nil, domain.ErrInvalidDetails
		}
		amount := input.Amount.Round(2)
		discount := input.DiscountAmount.Round(2)
		net := amount.Sub(discount)
		sum = sum.Add(net)
		details = append(details, &domain.FeePaymentDetail{
			FeeTypeID:      input.FeeTypeID,
			Amount:         amount,
			DiscountAmount: discount,
			NetAmount:      net,
		})
	}
	if !sum.Equal(req.Amount.Round(2)) {
		return "", nil, domain.ErrDetailSumMismatch
	}
	return mode, details, nil
}
