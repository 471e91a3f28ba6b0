package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/bursary/internal/audit/domain"
	"github.com/smallbiznis/bursary/internal/clock"
	referencedomain "github.com/smallbiznis/bursary/internal/reference/domain"
	"github.com/smallbiznis/bursary/internal/schoolclass/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db"
	"github.com/smallbiznis/bursary/pkg/db/option"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Reference referencedomain.Repository
	AuditSvc  auditdomain.Service `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	reference referencedomain.Repository
	auditSvc  auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("schoolclass.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		reference: p.Reference,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClassRequest) (domain.SchoolClass, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.SchoolClass{}, apperr.ErrInvalidTenant
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.SchoolClass{}, domain.ErrInvalidName
	}
	if req.Order <= 0 {
		return domain.SchoolClass{}, domain.ErrInvalidOrder
	}
	if req.Capacity < 0 {
		return domain.SchoolClass{}, domain.ErrInvalidCapacity
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = name
	}

	existing, err := s.repo.FindOne(ctx, &domain.SchoolClass{TenantID: tenantID, Name: name})
	if err != nil {
		return domain.SchoolClass{}, err
	}
	if existing != nil {
		return domain.SchoolClass{}, domain.ErrClassExists
	}
	existing, err = s.repo.FindOne(ctx, &domain.SchoolClass{TenantID: tenantID, Order: req.Order})
	if err != nil {
		return domain.SchoolClass{}, err
	}
	if existing != nil {
		return domain.SchoolClass{}, domain.ErrOrderTaken
	}

	now := s.clock.Now()
	class := domain.SchoolClass{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Name:        name,
		DisplayName: displayName,
		Order:       req.Order,
		Capacity:    req.Capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, &class); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.SchoolClass{}, domain.ErrClassExists
		}
		return domain.SchoolClass{}, err
	}

	if s.auditSvc != nil {
		targetID := class.ID.String()
		_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionClassCreate, "school_class", &targetID, map[string]any{
			"name":  class.Name,
			"order": class.Order,
		})
	}
	return class, nil
}

func (s *Service) List(ctx context.Context) ([]domain.SchoolClass, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrInvalidTenant
	}

	items, err := s.repo.Find(ctx, &domain.SchoolClass{TenantID: tenantID}, option.WithOrder("sort_order asc"))
	if err != nil {
		return nil, err
	}
	classes := make([]domain.SchoolClass, 0, len(items))
	for _, item := range items {
		classes = append(classes, *item)
	}
	return classes, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (domain.SchoolClass, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.SchoolClass{}, apperr.ErrInvalidTenant
	}
	class, err := s.find(ctx, tenantID, name)
	if err != nil {
		return domain.SchoolClass{}, err
	}
	return *class, nil
}

func (s *Service) Next(ctx context.Context, name string) (*domain.SchoolClass, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrInvalidTenant
	}
	current, err := s.find(ctx, tenantID, name)
	if err != nil {
		return nil, err
	}

	return s.repo.FindOne(ctx, &domain.SchoolClass{TenantID: tenantID},
		option.WithWhere("sort_order > ?", current.Order),
		option.WithOrder("sort_order asc"),
	)
}

func (s *Service) Delete(ctx context.Context, name string) error {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return apperr.ErrInvalidTenant
	}
	class, err := s.find(ctx, tenantID, name)
	if err != nil {
		return err
	}

	usage, err := s.reference.FirstUsage(ctx, s.db, tenantID, class.Name, referencedomain.ClassUsages)
	if err != nil {
		return err
	}
	if usage != nil {
		s.log.Debug("class delete blocked", zap.String("class_name", class.Name), zap.String("usage", usage.String()))
		return domain.ErrClassInUse
	}

	if _, err := s.repo.Delete(ctx, &domain.SchoolClass{TenantID: tenantID, ID: class.ID}); err != nil {
		return err
	}

	if s.auditSvc != nil {
		targetID := class.ID.String()
		_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionClassDelete, "school_class", &targetID, map[string]any{"name": class.Name})
	}
	return nil
}

func (s *Service) find(ctx context.Context, tenantID snowflake.ID, name string) (*domain.SchoolClass, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	class, err := s.repo.FindOne(ctx, &domain.SchoolClass{TenantID: tenantID, Name: name})
	if err != nil {
		return nil, err
	}
	if class == nil {
		return nil, domain.ErrNotFound
	}
	return class, nil
}
