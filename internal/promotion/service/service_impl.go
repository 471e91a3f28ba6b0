package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	auditdomain "github.com/smallbiznis/bursary/internal/audit/domain"
	"github.com/smallbiznis/bursary/internal/batchlock"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/observability/metrics"
	"github.com/smallbiznis/bursary/internal/observability/tracing"
	"github.com/smallbiznis/bursary/internal/promotion/domain"
	classdomain "github.com/smallbiznis/bursary/internal/schoolclass/domain"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("bursary/promotion")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	StudentRepo  studentdomain.Repository
	SessionRepo  sessiondomain.Repository
	ClassRepo    classdomain.Repository
	Classes      classdomain.Service
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
	studentRepo  studentdomain.Repository
	sessionRepo  sessiondomain.Repository
	classRepo    classdomain.Repository
	classes      classdomain.Service
	locker       *batchlock.Locker
	metrics      *metrics.Metrics
	batchMetrics *metrics.BatchMetrics
	auditSvc     auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("promotion.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		studentRepo:  p.StudentRepo,
		sessionRepo:  p.SessionRepo,
		classRepo:    p.ClassRepo,
		classes:      p.Classes,
		locker:       p.Locker,
		metrics:      p.Metrics,
		batchMetrics: p.BatchMetrics,
		auditSvc:     p.AuditSvc,
	}
}

func (s *Service) Preview(ctx context.Context, req domain.PreviewRequest) (domain.Preview, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.Preview{}, apperr.ErrInvalidTenant
	}
	className := strings.TrimSpace(req.ClassName)
	if req.SessionID == 0 {
		return domain.Preview{}, domain.ErrInvalidSession
	}
	if className == "" {
		return domain.Preview{}, domain.ErrInvalidClassName
	}
	if err := s.ensureSession(ctx, tenantID, req.SessionID); err != nil {
		return domain.Preview{}, err
	}

	next, err := s.classes.Next(ctx, className)
	if err != nil {
		return domain.Preview{}, err
	}

	students, err := s.studentRepo.ListByPlacement(ctx, s.db, tenantID, studentdomain.PlacementFilter{
		SessionID: req.SessionID,
		ClassName: className,
		Section:   strings.TrimSpace(req.Section),
	})
	if err != nil {
		return domain.Preview{}, err
	}

	preview := domain.Preview{Students: make([]domain.PreviewStudent, 0, len(students))}
	for _, student := range students {
		item := domain.PreviewStudent{StudentDetails: *student, Reason: domain.ReasonEligible}
		if student.Status == studentdomain.StatusActive {
			item.Eligible = true
			preview.Meta.Eligible++
		} else {
			item.Reason = domain.ReasonNotActive
			preview.Meta.Ineligible++
		}
		preview.Students = append(preview.Students, item)
	}
	preview.Meta.Total = len(students)
	if next == nil {
		preview.Meta.IsPassoutClass = true
	} else {
		name := next.Name
		preview.Meta.NextClass = &name
	}
	return preview, nil
}

func (s *Service) Execute(ctx context.Context, req domain.ExecuteRequest) (domain.ExecuteResult, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.ExecuteResult{}, apperr.ErrInvalidTenant
	}
	ids, err := s.preflight(ctx, tenantID, &req)
	if err != nil {
		return domain.ExecuteResult{}, err
	}

	ctx, span := tracer.Start(ctx, "promotion.execute", trace.WithAttributes(tracing.SafeAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.String("current_session_id", req.CurrentSessionID.String()),
		attribute.String("next_session_id", req.NextSessionID.String()),
		attribute.Bool("mark_as_passout", req.MarkAsPassout),
		attribute.Int("students", len(ids)),
	)...))
	defer span.End()

	release, err := s.locker.Acquire(ctx, batchlock.Key(tenantID, "promotion", req.CurrentSessionID.String()))
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		return domain.ExecuteResult{}, err
	}
	defer release()

	started := s.clock.Now()
	actor := tenantcontext.ResolveActor(ctx, req.PromotedBy)
	result := domain.ExecuteResult{Errors: []apperr.ItemError{}}

	for i, id := range ids {
		if ctx.Err() != nil {
			s.cancelRemaining(&result, ids[i:])
			break
		}
		if err := s.promoteOne(ctx, tenantID, id, req, actor); err != nil {
			if ctx.Err() != nil {
				s.cancelRemaining(&result, ids[i:])
				break
			}
			result.Failed++
			result.Errors = append(result.Errors, apperr.NewItemError(id.String(), err))
			s.batchMetrics.IncItemError(metrics.BatchPromotion, err)
			s.log.Warn("promotion failed",
				zap.String("student_id", id.String()),
				zap.String("code", apperr.CodeOf(err)),
				zap.Error(err),
			)
			continue
		}
		result.Promoted++
	}
	result.Success = result.Failed == 0 && !result.Cancelled

	outcome := domain.OutcomePromoted
	if req.MarkAsPassout {
		outcome = domain.OutcomePassedOut
	}
	s.metrics.RecordPromotion(ctx, outcome, result.Promoted)
	s.metrics.RecordPromotion(ctx, "failed", result.Failed)
	s.batchMetrics.ObserveRun(metrics.BatchPromotion, s.clock.Now().Sub(started))
	s.batchMetrics.AddItems(metrics.BatchPromotion, outcome, result.Promoted)
	s.batchMetrics.AddItems(metrics.BatchPromotion, "failed", result.Failed)
	if result.Cancelled {
		s.batchMetrics.IncCancelled(metrics.BatchPromotion)
	}

	span.SetAttributes(
		attribute.Int("promotion.promoted", result.Promoted),
		attribute.Int("promotion.failed", result.Failed),
	)
	if !result.Success {
		span.SetStatus(codes.Error, "promotion incomplete")
	}

	s.log.Info("promotion batch finished",
		zap.String("current_session_id", req.CurrentSessionID.String()),
		zap.String("next_session_id", req.NextSessionID.String()),
		zap.Int("promoted", result.Promoted),
		zap.Int("failed", result.Failed),
		zap.Bool("cancelled", result.Cancelled),
	)
	if s.auditSvc != nil {
		sessionID := req.CurrentSessionID.String()
		_ = s.auditSvc.AuditLog(context.WithoutCancel(ctx), auditdomain.ActionPromotionExecute, "academic_session", &sessionID, map[string]any{
			"next_session_id": req.NextSessionID.String(),
			"next_class":      req.NextClass,
			"next_section":    req.NextSection,
			"mark_as_passout": req.MarkAsPassout,
			"promoted":        result.Promoted,
			"failed":          result.Failed,
			"actor":           actor,
		})
	}
	return result, nil
}

// preflight validates the whole batch before any student is touched and
// returns the student ids in request order without duplicates.
func (s *Service) preflight(ctx context.Context, tenantID snowflake.ID, req *domain.ExecuteRequest) ([]snowflake.ID, error) {
	if len(req.StudentIDs) == 0 {
		return nil, domain.ErrInvalidStudentIDs
	}
	seen := make(map[snowflake.ID]struct{}, len(req.StudentIDs))
	ids := make([]snowflake.ID, 0, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		if id == 0 {
			return nil, domain.ErrInvalidStudentIDs
		}
		if _, dup := seen[id]; dup {
			return nil, domain.ErrInvalidStudentIDs
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if req.CurrentSessionID == 0 {
		return nil, domain.ErrInvalidSession
	}
	if err := s.ensureSession(ctx, tenantID, req.CurrentSessionID); err != nil {
		return nil, err
	}
	if req.NextSessionID == 0 && !req.MarkAsPassout {
		return nil, domain.ErrInvalidSession
	}
	if req.NextSessionID != 0 {
		if req.NextSessionID == req.CurrentSessionID {
			return nil, domain.ErrSameSession
		}
		if err := s.ensureSession(ctx, tenantID, req.NextSessionID); err != nil {
			return nil, err
		}
	}

	req.NextClass = strings.TrimSpace(req.NextClass)
	req.NextSection = strings.TrimSpace(req.NextSection)
	if !req.MarkAsPassout {
		if req.NextClass == "" {
			return nil, domain.ErrInvalidClassName
		}
		class, err := s.classRepo.FindOne(ctx, &classdomain.SchoolClass{TenantID: tenantID, Name: req.NextClass})
		if err != nil {
			return nil, err
		}
		if class == nil {
			return nil, classdomain.ErrNotFound
		}
	}
	return ids, nil
}

// promoteOne snapshots the student's placement and then moves it, both in
// one transaction.
func (s *Service) promoteOne(ctx context.Context, tenantID, studentID snowflake.ID, req domain.ExecuteRequest, actor string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student, err := s.studentRepo.FindByIDForUpdate(ctx, tx, tenantID, studentID)
		if err != nil {
			return err
		}
		if student == nil {
			return studentdomain.ErrNotFound
		}
		if student.SessionID != req.CurrentSessionID || student.Status != studentdomain.StatusActive {
			return domain.ErrStudentNotEligible
		}

		now := s.clock.Now()
		history := &studentdomain.StudentAcademicHistory{
			ID:         s.genID.Generate(),
			TenantID:   tenantID,
			StudentID:  student.ID,
			SessionID:  student.SessionID,
			ClassName:  student.ClassName,
			Section:    student.Section,
			Status:     student.Status,
			Outcome:    domain.OutcomePromoted,
			RecordedBy: actor,
			CreatedAt:  now,
		}
		if req.NextSessionID != 0 {
			nextSession := req.NextSessionID
			history.NextSessionID = &nextSession
		}

		if req.MarkAsPassout {
			history.Outcome = domain.OutcomePassedOut
			student.Status = studentdomain.StatusPassed
		} else {
			nextClass := req.NextClass
			nextSection := req.NextSection
			if nextSection == "" {
				nextSection = student.Section
			}
			history.NextClassName = &nextClass
			history.NextSection = &nextSection

			student.SessionID = req.NextSessionID
			student.ClassName = nextClass
			student.Section = nextSection
		}

		if err := s.studentRepo.InsertHistory(ctx, tx, history); err != nil {
			return err
		}
		student.UpdatedAt = now
		return s.studentRepo.UpdatePlacement(ctx, tx, student)
	})
}

func (s *Service) cancelRemaining(result *domain.ExecuteResult, remaining []snowflake.ID) {
	result.Cancelled = true
	for _, id := range remaining {
		result.Failed++
		result.Errors = append(result.Errors, apperr.NewItemError(id.String(), apperr.ErrCancelled))
	}
	s.log.Warn("promotion cancelled", zap.Int("remaining", len(remaining)))
}

func (s *Service) ensureSession(ctx context.Context, tenantID, sessionID snowflake.ID) error {
	session, err := s.sessionRepo.FindByID(ctx, s.db, tenantID, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return sessiondomain.ErrNotFound
	}
	return nil
}
