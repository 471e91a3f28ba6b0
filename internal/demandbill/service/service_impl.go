package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	auditdomain "github.com/smallbiznis/bursary/internal/audit/domain"
	"github.com/smallbiznis/bursary/internal/batchlock"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/config"
	"github.com/smallbiznis/bursary/internal/demandbill/domain"
	discountdomain "github.com/smallbiznis/bursary/internal/discount/domain"
	feestructuredomain "github.com/smallbiznis/bursary/internal/feestructure/domain"
	ledgerdomain "github.com/smallbiznis/bursary/internal/ledger/domain"
	"github.com/smallbiznis/bursary/internal/observability/metrics"
	"github.com/smallbiznis/bursary/internal/observability/tracing"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/smallbiznis/bursary/pkg/db/pagination"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("bursary/demandbill")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Billing      *config.BillingConfigHolder
	Repo         domain.Repository
	Structures   feestructuredomain.Service
	DiscountRepo discountdomain.Repository
	StudentRepo  studentdomain.Repository
	SessionRepo  sessiondomain.Repository
	Ledger       ledgerdomain.Service
	LateFee      domain.LateFeePolicy  `optional:"true"`
	Locker       *batchlock.Locker     `optional:"true"`
	Metrics      *metrics.Metrics      `optional:"true"`
	BatchMetrics *metrics.BatchMetrics `optional:"true"`
	AuditSvc     auditdomain.Service   `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	billing      *config.BillingConfigHolder
	repo         domain.Repository
	structures   feestructuredomain.Service
	discountRepo discountdomain.Repository
	studentRepo  studentdomain.Repository
	sessionRepo  sessiondomain.Repository
	ledger       ledgerdomain.Service
	lateFee      domain.LateFeePolicy
	locker       *batchlock.Locker
	metrics      *metrics.Metrics
	batchMetrics *metrics.BatchMetrics
	auditSvc     auditdomain.Service
}

func New(p Params) domain.Service {
	lateFee := p.LateFee
	if lateFee == nil {
		lateFee = NewFlatLateFeePolicy(p.Billing)
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("demandbill.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		billing:      p.Billing,
		repo:         p.Repo,
		structures:   p.Structures,
		discountRepo: p.DiscountRepo,
		studentRepo:  p.StudentRepo,
		sessionRepo:  p.SessionRepo,
		ledger:       p.Ledger,
		lateFee:      lateFee,
		locker:       p.Locker,
		metrics:      p.Metrics,
		batchMetrics: p.BatchMetrics,
		auditSvc:     p.AuditSvc,
	}
}

// target is the student set of one generation run plus the failures found
// while resolving it.
type target struct {
	students []*studentdomain.StudentDetails
	errors   []apperr.ItemError
	lockKey  string
}

// Generate creates one bill per targeted student. Every student commits in
// its own transaction so a failure never rolls back bills of other students.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.GenerateResult{}, apperr.ErrInvalidTenant
	}
	if err := validateGenerate(req); err != nil {
		return domain.GenerateResult{}, err
	}
	session, err := s.sessionRepo.FindByID(ctx, s.db, tenantID, req.SessionID)
	if err != nil {
		return domain.GenerateResult{}, err
	}
	if session == nil {
		return domain.GenerateResult{}, sessiondomain.ErrNotFound
	}

	ctx, span := tracer.Start(ctx, "demandbill.generate", trace.WithAttributes(tracing.SafeAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("session_id", req.SessionID.String()),
		attribute.Int("month", req.Month),
		attribute.Int("year", req.Year),
		attribute.String("class_name", req.ClassName),
	)...))
	defer span.End()

	started := s.clock.Now()
	tgt, err := s.resolveTarget(ctx, tenantID, req)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		return domain.GenerateResult{}, err
	}

	if tgt.lockKey != "" {
		waitStarted := time.Now()
		release, err := s.locker.Acquire(ctx, tgt.lockKey)
		s.batchMetrics.ObserveLockWait("bill_batch", time.Since(waitStarted))
		if err != nil {
			span.RecordError(tracing.SafeError(err))
			return domain.GenerateResult{}, err
		}
		defer release()
	}

	actor := tenantcontext.ResolveActor(ctx, req.GeneratedBy)
	cfg := s.billing.Get()
	dueDate := defaultDueDate(req.Year, req.Month, cfg.DefaultDueDay)
	if req.DueDate != nil {
		dueDate = req.DueDate.UTC()
	}
	subset := subsetOf(req.FeeTypeIDs)
	resolutions := make(map[string]feestructuredomain.Resolution)

	result := domain.GenerateResult{
		Bills:  []domain.DemandBill{},
		Errors: append([]apperr.ItemError{}, tgt.errors...),
	}
	result.Failed = len(tgt.errors)

	for i, student := range tgt.students {
		if ctx.Err() != nil {
			s.cancelRemaining(&result, tgt.students[i:])
			break
		}

		resolution, ok := resolutions[student.ClassName]
		if !ok {
			resolution, err = s.structures.Resolve(ctx, req.SessionID, student.ClassName)
			if err != nil {
				s.recordFailure(ctx, &result, student.ID, err)
				continue
			}
			resolutions[student.ClassName] = resolution
		}

		bill, err := s.generateForStudent(ctx, tenantID, req, student, resolution, subset, dueDate, actor, cfg)
		if err != nil {
			if ctx.Err() != nil {
				s.cancelRemaining(&result, tgt.students[i:])
				break
			}
			s.recordFailure(ctx, &result, student.ID, err)
			continue
		}
		result.Generated++
		result.Bills = append(result.Bills, *bill)
	}
	result.Success = result.Failed == 0 && !result.Cancelled

	s.batchMetrics.ObserveRun(metrics.BatchBillGeneration, s.clock.Now().Sub(started))
	s.batchMetrics.AddItems(metrics.BatchBillGeneration, "generated", result.Generated)
	s.batchMetrics.AddItems(metrics.BatchBillGeneration, "failed", result.Failed)
	if result.Cancelled {
		s.batchMetrics.IncCancelled(metrics.BatchBillGeneration)
	}
	s.metrics.RecordBillsGenerated(ctx, result.Generated, result.Failed)

	span.SetAttributes(
		attribute.Int("bills.generated", result.Generated),
		attribute.Int("bills.failed", result.Failed),
		attribute.Bool("batch.cancelled", result.Cancelled),
	)
	if !result.Success {
		span.SetStatus(codes.Error, "bill generation incomplete")
	}

	s.log.Info("bill batch finished",
		zap.String("tenant_id", tenantID.String()),
		zap.String("session_id", req.SessionID.String()),
		zap.Int("month", req.Month),
		zap.Int("year", req.Year),
		zap.Int("generated", result.Generated),
		zap.Int("failed", result.Failed),
		zap.Bool("cancelled", result.Cancelled),
	)

	if s.auditSvc != nil {
		sessionID := req.SessionID.String()
		_ = s.auditSvc.AuditLog(context.WithoutCancel(ctx), auditdomain.ActionBillBatch, "academic_session", &sessionID, map[string]any{
			"month":     req.Month,
			"year":      req.Year,
			"class":     req.ClassName,
			"section":   req.Section,
			"generated": result.Generated,
			"failed":    result.Failed,
			"cancelled": result.Cancelled,
			"actor":     actor,
		})
	}
	return result, nil
}

func (s *Service) recordFailure(ctx context.Context, result *domain.GenerateResult, studentID snowflake.ID, err error) {
	result.Failed++
	result.Errors = append(result.Errors, apperr.NewItemError(studentID.String(), err))
	s.batchMetrics.IncItemError(metrics.BatchBillGeneration, err)
	s.log.Warn("bill generation failed",
		zap.String("student_id", studentID.String()),
		zap.String("code", apperr.CodeOf(err)),
		zap.Error(err),
	)
}

func (s *Service) cancelRemaining(result *domain.GenerateResult, remaining []*studentdomain.StudentDetails) {
	result.Cancelled = true
	for _, student := range remaining {
		result.Failed++
		result.Errors = append(result.Errors, apperr.NewItemError(student.ID.String(), apperr.ErrCancelled))
	}
	s.log.Warn("bill generation cancelled", zap.Int("remaining", len(remaining)))
}

func (s *Service) resolveTarget(ctx context.Context, tenantID snowflake.ID, req domain.GenerateRequest) (target, error) {
	var tgt target
	period := fmt.Sprintf("%04d-%02d", req.Year, req.Month)

	switch {
	case req.StudentID != nil:
		student, err := s.studentRepo.FindByID(ctx, s.db, tenantID, *req.StudentID)
		if err != nil {
			return target{}, err
		}
		if student == nil {
			return target{}, domain.ErrStudentNotFound
		}
		if err := checkPlacement(student, req.SessionID); err != nil {
			return target{}, err
		}
		tgt.students = []*studentdomain.StudentDetails{student}

	case strings.TrimSpace(req.ClassName) != "":
		students, err := s.studentRepo.ListByPlacement(ctx, s.db, tenantID, studentdomain.PlacementFilter{
			SessionID: req.SessionID,
			ClassName: strings.TrimSpace(req.ClassName),
			Section:   strings.TrimSpace(req.Section),
			Status:    studentdomain.StatusActive,
		})
		if err != nil {
			return target{}, err
		}
		tgt.students = students
		tgt.lockKey = batchlock.Key(tenantID, "bills", req.SessionID.String(), period, "class", strings.TrimSpace(req.ClassName), strings.TrimSpace(req.Section))

	default:
		found, err := s.studentRepo.FindByIDs(ctx, s.db, tenantID, req.StudentIDs)
		if err != nil {
			return target{}, err
		}
		byID := make(map[snowflake.ID]*studentdomain.StudentDetails, len(found))
		for _, student := range found {
			byID[student.ID] = student
		}
		seen := make(map[snowflake.ID]struct{}, len(req.StudentIDs))
		for _, id := range req.StudentIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			student, ok := byID[id]
			if !ok {
				tgt.errors = append(tgt.errors, apperr.NewItemError(id.String(), domain.ErrStudentNotFound))
				continue
			}
			if err := checkPlacement(student, req.SessionID); err != nil {
				tgt.errors = append(tgt.errors, apperr.NewItemError(id.String(), err))
				continue
			}
			tgt.students = append(tgt.students, student)
		}
		tgt.lockKey = batchlock.Key(tenantID, "bills", req.SessionID.String(), period, "list")
	}
	return tgt, nil
}

func checkPlacement(student *studentdomain.StudentDetails, sessionID snowflake.ID) error {
	if student.SessionID != sessionID {
		return domain.ErrStudentNotInSession
	}
	if student.Status != studentdomain.StatusActive {
		return domain.ErrStudentNotActive
	}
	return nil
}

func (s *Service) generateForStudent(
	ctx context.Context,
	tenantID snowflake.ID,
	req domain.GenerateRequest,
	student *studentdomain.StudentDetails,
	resolution feestructuredomain.Resolution,
	subset map[snowflake.ID]struct{},
	dueDate time.Time,
	actor string,
	cfg config.BillingConfig,
) (*domain.DemandBill, error) {
	now := s.clock.Now()
	var bill *domain.DemandBill

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByPeriod(ctx, tx, tenantID, student.ID, req.SessionID, req.Month, req.Year)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrBillExists
		}

		billed, err := s.repo.BilledFeeTypes(ctx, tx, tenantID, student.ID, req.SessionID)
		if err != nil {
			return err
		}
		discounts, err := s.discountRepo.MapForStudent(ctx, tx, tenantID, student.ID, req.SessionID)
		if err != nil {
			return err
		}

		bill = &domain.DemandBill{
			ID:             s.genID.Generate(),
			TenantID:       tenantID,
			StudentID:      student.ID,
			SessionID:      req.SessionID,
			Month:          req.Month,
			Year:           req.Year,
			ClassName:      student.ClassName,
			Section:        student.Section,
			BillDate:       now,
			DueDate:        dueDate,
			TotalAmount:    decimal.Zero,
			CarriedDues:    decimal.Zero,
			AdvanceApplied: decimal.Zero,
			PreviousDues:   decimal.Zero,
			LateFee:        decimal.Zero,
			Discount:       decimal.Zero,
			PaidAmount:     decimal.Zero,
			Status:         domain.BillStatusPending,
			GeneratedBy:    actor,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		bill.BillNo = billNumber(cfg.BillNumberPrefix, req.Year, req.Month, bill.ID)

		for _, item := range selectItems(resolution.Items, subset, cfg.BillOptionalItems, billed) {
			discountAmount := decimal.Zero
			if discount, ok := discounts[item.FeeTypeID]; ok {
				discountAmount = discountdomain.Compute(discount, item.Amount)
			}
			bill.Items = append(bill.Items, domain.DemandBillItem{
				ID:             s.genID.Generate(),
				TenantID:       tenantID,
				BillID:         bill.ID,
				FeeTypeID:      item.FeeTypeID,
				FeeTypeName:    item.FeeTypeName,
				Position:       len(bill.Items),
				Amount:         item.Amount,
				DiscountAmount: discountAmount,
				CreatedAt:      now,
			})
			bill.TotalAmount = bill.TotalAmount.Add(item.Amount)
			bill.Discount = bill.Discount.Add(discountAmount)
		}

		var prior []*domain.DemandBill
		if req.CarryForwardDues || req.AutoLateFee {
			prior, err = s.repo.ListOpenBefore(ctx, tx, tenantID, student.ID, req.SessionID, domain.Period(req.Year, req.Month))
			if err != nil {
				return err
			}
		}
		if req.AutoLateFee {
			bill.LateFee = s.lateFee.LateFee(domain.LateFeeInput{Now: now, PriorUnpaid: prior}).Round(2)
		}

		gross := bill.TotalAmount.Add(bill.LateFee).Sub(bill.Discount)
		var carriedIDs []snowflake.ID
		if req.CarryForwardDues {
			for _, previous := range prior {
				bill.CarriedDues = bill.CarriedDues.Add(previous.Outstanding())
				carriedIDs = append(carriedIDs, previous.ID)
			}
			gross = gross.Add(bill.CarriedDues)

			available, err := s.repo.AvailableAdvance(ctx, tx, tenantID, student.ID, req.SessionID)
			if err != nil {
				return err
			}
			bill.AdvanceApplied = decimal.Min(available, gross)
			if bill.AdvanceApplied.IsNegative() {
				bill.AdvanceApplied = decimal.Zero
			}
		}
		bill.PreviousDues = bill.CarriedDues.Sub(bill.AdvanceApplied)
		bill.NetAmount = gross.Sub(bill.AdvanceApplied).Round(2)

		if err := s.repo.Insert(ctx, tx, bill); err != nil {
			return err
		}
		items := make([]*domain.DemandBillItem, 0, len(bill.Items))
		for i := range bill.Items {
			items = append(items, &bill.Items[i])
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}
		if err := s.repo.MarkCarried(ctx, tx, tenantID, carriedIDs, bill.BillNo, now); err != nil {
			return err
		}

		_, err = s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			TenantID:   tenantID,
			SourceType: ledgerdomain.SourceTypeDemandBill,
			SourceID:   bill.ID.String(),
			OccurredAt: now,
			Lines:      billPostingLines(bill),
		})
		return err
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrBillExists
		}
		return nil, err
	}

	s.log.Debug("bill generated",
		zap.String("bill_no", bill.BillNo),
		zap.String("student_id", student.ID.String()),
		zap.String("net_amount", bill.NetAmount.StringFixed(2)),
	)
	return bill, nil
}

// selectItems keeps the requested subset, or the mandatory items plus the
// optional ones when configured. Fee types that are not monthly are billed
// once per session.
func selectItems(items []feestructuredomain.ResolvedItem, subset map[snowflake.ID]struct{}, billOptional bool, billed map[snowflake.ID]struct{}) []feestructuredomain.ResolvedItem {
	selected := make([]feestructuredomain.ResolvedItem, 0, len(items))
	for _, item := range items {
		if subset != nil {
			if _, ok := subset[item.FeeTypeID]; !ok {
				continue
			}
		} else if item.IsOptional && !billOptional {
			continue
		}
		if !item.Frequency.Recurring() {
			if _, ok := billed[item.FeeTypeID]; ok {
				continue
			}
		}
		selected = append(selected, item)
	}
	return selected
}

// billPostingLines books the bill's own charges. Carried dues and applied
// advance were booked by the bills and payments they came from.
func billPostingLines(bill *domain.DemandBill) []ledgerdomain.PostingLine {
	income := bill.TotalAmount.Add(bill.LateFee)
	return []ledgerdomain.PostingLine{
		{Account: ledgerdomain.AccountCodeFeesReceivable, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: income.Sub(bill.Discount)},
		{Account: ledgerdomain.AccountCodeDiscountAllowed, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: bill.Discount},
		{Account: ledgerdomain.AccountCodeFeeIncome, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: income},
	}
}

func billNumber(prefix string, year, month int, id snowflake.ID) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "BILL"
	}
	return fmt.Sprintf("%s-%04d%02d-%s", prefix, year, month, id.String())
}

// defaultDueDate clamps the configured day to the length of the month.
func defaultDueDate(year, month, day int) time.Time {
	if day < 1 {
		day = 1
	}
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, 23, 59, 59, 0, time.UTC)
}

func subsetOf(ids []snowflake.ID) map[snowflake.ID]struct{} {
	if len(ids) == 0 {
		return nil
	}
	subset := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		subset[id] = struct{}{}
	}
	return subset
}

func validateGenerate(req domain.GenerateRequest) error {
	targets := 0
	if req.StudentID != nil {
		if *req.StudentID == 0 {
			return domain.ErrInvalidTarget
		}
		targets++
	}
	if strings.TrimSpace(req.ClassName) != "" {
		targets++
	} else if strings.TrimSpace(req.Section) != "" {
		return domain.ErrInvalidTarget
	}
	if len(req.StudentIDs) > 0 {
		targets++
	}
	if targets != 1 {
		return domain.ErrInvalidTarget
	}
	if req.SessionID == 0 {
		return domain.ErrInvalidSession
	}
	if req.Month < 1 || req.Month > 12 || req.Year < 2000 || req.Year > 9999 {
		return domain.ErrInvalidPeriod
	}
	return nil
}

func (s *Service) Get(ctx context.Context, billNo string) (domain.DemandBill, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.DemandBill{}, apperr.ErrInvalidTenant
	}
	billNo = strings.TrimSpace(billNo)
	if billNo == "" {
		return domain.DemandBill{}, domain.ErrInvalidBillNo
	}

	bill, err := s.repo.FindByNo(ctx, s.db, tenantID, billNo)
	if err != nil {
		return domain.DemandBill{}, err
	}
	if bill == nil {
		return domain.DemandBill{}, domain.ErrNotFound
	}
	if err := s.attachItems(ctx, tenantID, []*domain.DemandBill{bill}); err != nil {
		return domain.DemandBill{}, err
	}
	return *bill, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, apperr.ErrInvalidTenant
	}
	if req.Status != "" && !req.Status.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidStatus
	}
	if req.Month < 0 || req.Month > 12 {
		return domain.ListResponse{}, domain.ErrInvalidPeriod
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

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(bill *domain.DemandBill) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        bill.ID.String(),
			CreatedAt: bill.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}
	if err := s.attachItems(ctx, tenantID, items); err != nil {
		return domain.ListResponse{}, err
	}

	resp := domain.ListResponse{Bills: make([]domain.DemandBill, 0, len(items))}
	for _, item := range items {
		resp.Bills = append(resp.Bills, *item)
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) attachItems(ctx context.Context, tenantID snowflake.ID, bills []*domain.DemandBill) error {
	if len(bills) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(bills))
	byID := make(map[snowflake.ID]*domain.DemandBill, len(bills))
	for _, bill := range bills {
		ids = append(ids, bill.ID)
		byID[bill.ID] = bill
		bill.Items = []domain.DemandBillItem{}
	}
	items, err := s.repo.ListItems(ctx, s.db, tenantID, ids)
	if err != nil {
		return err
	}
	for _, item := range items {
		if bill, ok := byID[item.BillID]; ok {
			bill.Items = append(bill.Items, *item)
		}
	}
	return nil
}

func (s *Service) MarkSent(ctx context.Context, billNo string) (domain.DemandBill, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.DemandBill{}, apperr.ErrInvalidTenant
	}
	billNo = strings.TrimSpace(billNo)
	if billNo == "" {
		return domain.DemandBill{}, domain.ErrInvalidBillNo
	}

	now := s.clock.Now()
	var updated domain.DemandBill
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.repo.FindByNoForUpdate(ctx, tx, tenantID, billNo)
		if err != nil {
			return err
		}
		if bill == nil {
			return domain.ErrNotFound
		}
		switch bill.Status {
		case domain.BillStatusCancelled, domain.BillStatusPaid:
			return domain.ErrBillNotSendable
		}
		if bill.CarriedForwardTo != nil {
			return domain.ErrBillCarriedForward
		}
		if bill.Status == domain.BillStatusPending {
			bill.Status = domain.BillStatusSent
		}
		bill.SentAt = &now
		bill.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, bill); err != nil {
			return err
		}
		updated = *bill
		return nil
	})
	if err != nil {
		return domain.DemandBill{}, err
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionBillSent, "demand_bill", &updated.BillNo, nil)
	}
	return updated, nil
}

// Cancel voids an unpaid bill. Bills it absorbed are reopened and its ledger
// posting is reversed.
func (s *Service) Cancel(ctx context.Context, billNo string, reason string) (domain.DemandBill, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.DemandBill{}, apperr.ErrInvalidTenant
	}
	billNo = strings.TrimSpace(billNo)
	if billNo == "" {
		return domain.DemandBill{}, domain.ErrInvalidBillNo
	}
	reason = strings.TrimSpace(reason)

	now := s.clock.Now()
	var cancelled domain.DemandBill
	var released int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.repo.FindByNoForUpdate(ctx, tx, tenantID, billNo)
		if err != nil {
			return err
		}
		if bill == nil {
			return domain.ErrNotFound
		}
		if bill.Status == domain.BillStatusCancelled {
			return domain.ErrBillCancelled
		}
		if bill.CarriedForwardTo != nil {
			return domain.ErrBillCarriedForward
		}
		if bill.PaidAmount.IsPositive() {
			return domain.ErrBillHasPayments
		}

		released, err = s.repo.ReleaseCarried(ctx, tx, tenantID, bill.BillNo, now)
		if err != nil {
			return err
		}

		bill.Status = domain.BillStatusCancelled
		bill.CancelledAt = &now
		if reason != "" {
			bill.CancelReason = &reason
		}
		bill.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, bill); err != nil {
			return err
		}

		_, err = s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			TenantID:   tenantID,
			SourceType: ledgerdomain.SourceTypeDemandBillCancel,
			SourceID:   bill.ID.String(),
			OccurredAt: now,
			Lines:      ledgerdomain.Reverse(billPostingLines(bill)),
		})
		if err != nil {
			return err
		}
		cancelled = *bill
		return nil
	})
	if err != nil {
		return domain.DemandBill{}, err
	}

	s.log.Info("bill cancelled",
		zap.String("bill_no", cancelled.BillNo),
		zap.Int64("released", released),
	)
	if s.auditSvc != nil {
		_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionBillCancel, "demand_bill", &cancelled.BillNo, map[string]any{
			"reason":         reason,
			"released_bills": released,
		})
	}
	return cancelled, nil
}

// MarkOverdue moves unpaid PENDING and SENT bills whose due date passed
// before asOf to OVERDUE.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (domain.OverdueSweepResult, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.OverdueSweepResult{}, apperr.ErrInvalidTenant
	}
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	started := s.clock.Now()

	candidates, err := s.repo.ListOverdueCandidates(ctx, s.db, tenantID)
	if err != nil {
		return domain.OverdueSweepResult{}, err
	}

	result := domain.OverdueSweepResult{BillNos: []string{}}
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			s.batchMetrics.IncCancelled(metrics.BatchOverdueSweep)
			return result, apperr.ErrCancelled
		}
		if candidate.PaidAmount.IsPositive() {
			continue
		}
		if domain.DeriveStatus(candidate.Status, candidate.PaidAmount, candidate.NetAmount, candidate.DueDate, asOf) != domain.BillStatusOverdue {
			continue
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			bill, err := s.repo.FindByNoForUpdate(ctx, tx, tenantID, candidate.BillNo)
			if err != nil || bill == nil {
				return err
			}
			if bill.Status != domain.BillStatusPending && bill.Status != domain.BillStatusSent {
				return nil
			}
			if bill.PaidAmount.IsPositive() {
				return nil
			}
			bill.Status = domain.BillStatusOverdue
			bill.UpdatedAt = s.clock.Now()
			if err := s.repo.Save(ctx, tx, bill); err != nil {
				return err
			}
			result.Updated++
			result.BillNos = append(result.BillNos, bill.BillNo)
			return nil
		})
		if err != nil {
			s.batchMetrics.IncItemError(metrics.BatchOverdueSweep, err)
			s.log.Warn("overdue sweep failed for bill", zap.String("bill_no", candidate.BillNo), zap.Error(err))
		}
	}

	s.batchMetrics.ObserveRun(metrics.BatchOverdueSweep, s.clock.Now().Sub(started))
	s.batchMetrics.AddItems(metrics.BatchOverdueSweep, "updated", result.Updated)
	if s.auditSvc != nil && result.Updated > 0 {
		_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionBillOverdueSweep, "demand_bill", nil, map[string]any{
			"as_of":   asOf.UTC().Format(time.RFC3339),
			"updated": result.Updated,
		})
	}
	return result, nil
}
