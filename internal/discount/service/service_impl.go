package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	auditdomain "github.com/smallbiznis/bursary/internal/audit/domain"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/discount/domain"
	feetypedomain "github.com/smallbiznis/bursary/internal/feetype/domain"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	SessionRepo sessiondomain.Repository
	FeeTypeRepo feetypedomain.Repository
	StudentRepo studentdomain.Repository
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	sessionRepo sessiondomain.Repository
	feeTypeRepo feetypedomain.Repository
	studentRepo studentdomain.Repository
	auditSvc    auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("discount.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		feeTypeRepo: p.FeeTypeRepo,
		studentRepo: p.StudentRepo,
		auditSvc:    p.AuditSvc,
	}
}

// Create records a discount. A second discount for the same key is a
// conflict; callers update the existing one instead.
func (s *Service) Create(ctx context.Context, req domain.CreateDiscountRequest) (domain.StudentFeeDiscount, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.StudentFeeDiscount{}, apperr.ErrInvalidTenant
	}
	if req.StudentID == 0 || req.FeeTypeID == 0 || req.SessionID == 0 {
		return domain.StudentFeeDiscount{}, domain.ErrInvalidKey
	}
	discountType, err := domain.ParseDiscountType(req.DiscountType)
	if err != nil {
		return domain.StudentFeeDiscount{}, err
	}
	value := req.Value.Round(2)
	if err := domain.Validate(discountType, value); err != nil {
		return domain.StudentFeeDiscount{}, err
	}
	if err := s.ensureReferences(ctx, tenantID, req); err != nil {
		return domain.StudentFeeDiscount{}, err
	}

	existing, err := s.repo.FindByKey(ctx, s.db, tenantID, req.StudentID, req.FeeTypeID, req.SessionID)
	if err != nil {
		return domain.StudentFeeDiscount{}, err
	}
	if existing != nil {
		return domain.StudentFeeDiscount{}, domain.ErrDiscountExists
	}

	now := s.clock.Now()
	discount := domain.StudentFeeDiscount{
		ID:            s.genID.Generate(),
		TenantID:      tenantID,
		StudentID:     req.StudentID,
		FeeTypeID:     req.FeeTypeID,
		SessionID:     req.SessionID,
		DiscountType:  discountType,
		DiscountValue: value,
		Reason:        strings.TrimSpace(req.Reason),
		ApprovedBy:    tenantcontext.ResolveActor(ctx, req.ApprovedBy),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, &discount); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.StudentFeeDiscount{}, domain.ErrDiscountExists
		}
		return domain.StudentFeeDiscount{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionDiscountCreate, discount)
	return discount, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateDiscountRequest) (domain.StudentFeeDiscount, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.StudentFeeDiscount{}, apperr.ErrInvalidTenant
	}

	var updated domain.StudentFeeDiscount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		discount, err := s.repo.FindByID(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if discount == nil {
			return domain.ErrNotFound
		}

		if req.DiscountType != nil {
			discountType, err := domain.ParseDiscountType(*req.DiscountType)
			if err != nil {
				return err
			}
			discount.DiscountType = discountType
		}
		if req.Value != nil {
			discount.DiscountValue = req.Value.Round(2)
		}
		if err := domain.Validate(discount.DiscountType, discount.DiscountValue); err != nil {
			return err
		}
		if req.Reason != nil {
			discount.Reason = strings.TrimSpace(*req.Reason)
		}
		if req.ApprovedBy != nil {
			discount.ApprovedBy = tenantcontext.ResolveActor(ctx, *req.ApprovedBy)
		}
		discount.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, discount); err != nil {
			return err
		}
		updated = *discount
		return nil
	})
	if err != nil {
		return domain.StudentFeeDiscount{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionDiscountUpdate, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return apperr.ErrInvalidTenant
	}
	discount, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return err
	}
	if discount == nil {
		return domain.ErrNotFound
	}
	if err := s.repo.Delete(ctx, s.db, tenantID, id); err != nil {
		return err
	}

	s.emitAudit(ctx, auditdomain.ActionDiscountDelete, *discount)
	return nil
}

func (s *Service) FindByStudent(ctx context.Context, studentID snowflake.ID, sessionID *snowflake.ID) ([]domain.DiscountView, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrInvalidTenant
	}
	if studentID == 0 {
		return nil, domain.ErrInvalidKey
	}
	items, err := s.repo.ListByStudent(ctx, s.db, tenantID, studentID, sessionID)
	if err != nil {
		return nil, err
	}
	views := make([]domain.DiscountView, 0, len(items))
	for _, item := range items {
		views = append(views, *item)
	}
	return views, nil
}

func (s *Service) ensureReferences(ctx context.Context, tenantID snowflake.ID, req domain.CreateDiscountRequest) error {
	session, err := s.sessionRepo.FindByID(ctx, s.db, tenantID, req.SessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return sessiondomain.ErrNotFound
	}
	feeType, err := s.feeTypeRepo.FindByID(ctx, s.db, tenantID, req.FeeTypeID)
	if err != nil {
		return err
	}
	if feeType == nil {
		return feetypedomain.ErrNotFound
	}
	student, err := s.studentRepo.FindByID(ctx, s.db, tenantID, req.StudentID)
	if err != nil {
		return err
	}
	if student == nil {
		return studentdomain.ErrNotFound
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action string, discount domain.StudentFeeDiscount) {
	if s.auditSvc == nil {
		return
	}
	targetID := discount.ID.String()
	_ = s.auditSvc.AuditLog(ctx, action, "student_fee_discount", &targetID, map[string]any{
		"student_id":     discount.StudentID.String(),
		"fee_type_id":    discount.FeeTypeID.String(),
		"session_id":     discount.SessionID.String(),
		"discount_type":  string(discount.DiscountType),
		"discount_value": discount.DiscountValue.StringFixed(2),
	})
}
