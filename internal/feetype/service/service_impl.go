package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/bursary/internal/audit/domain"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/feetype/domain"
	referencedomain "github.com/smallbiznis/bursary/internal/reference/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db"
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
		log:       p.Log.Named("feetype.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		reference: p.Reference,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateFeeTypeRequest) (domain.FeeType, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.FeeType{}, apperr.ErrInvalidTenant
	}

	feeType, err := s.create(ctx, tenantID, req)
	if err != nil {
		return domain.FeeType{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionFeeTypeCreate, feeType, nil)
	return feeType, nil
}

func (s *Service) create(ctx context.Context, tenantID snowflake.ID, req domain.CreateFeeTypeRequest) (domain.FeeType, error) {
	name, code, err := normalizeName(req.Name)
	if err != nil {
		return domain.FeeType{}, err
	}
	frequency, err := domain.ParseFrequency(req.Frequency)
	if err != nil {
		return domain.FeeType{}, err
	}

	existing, err := s.repo.FindByCode(ctx, s.db, tenantID, code)
	if err != nil {
		return domain.FeeType{}, err
	}
	if existing != nil {
		return domain.FeeType{}, domain.ErrFeeTypeExists
	}

	now := s.clock.Now()
	feeType := domain.FeeType{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Name:        name,
		Code:        code,
		Description: strings.TrimSpace(req.Description),
		IsDefault:   req.IsDefault,
		IsActive:    true,
		Frequency:   frequency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &feeType); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.FeeType{}, domain.ErrFeeTypeExists
		}
		return domain.FeeType{}, err
	}
	return feeType, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateFeeTypeRequest) (domain.FeeType, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.FeeType{}, apperr.ErrInvalidTenant
	}
	feeType, err := s.find(ctx, tenantID, id)
	if err != nil {
		return domain.FeeType{}, err
	}

	if req.Name != nil {
		name, code, err := normalizeName(*req.Name)
		if err != nil {
			return domain.FeeType{}, err
		}
		if code != feeType.Code {
			existing, err := s.repo.FindByCode(ctx, s.db, tenantID, code)
			if err != nil {
				return domain.FeeType{}, err
			}
			if existing != nil && existing.ID != feeType.ID {
				return domain.FeeType{}, domain.ErrFeeTypeExists
			}
		}
		feeType.Name = name
		feeType.Code = code
	}
	if req.Description != nil {
		feeType.Description = strings.TrimSpace(*req.Description)
	}
	if req.Frequency != nil {
		frequency, err := domain.ParseFrequency(*req.Frequency)
		if err != nil {
			return domain.FeeType{}, err
		}
		feeType.Frequency = frequency
	}
	feeType.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, feeType); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.FeeType{}, domain.ErrFeeTypeExists
		}
		return domain.FeeType{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionFeeTypeUpdate, *feeType, nil)
	return *feeType, nil
}

func (s *Service) SetActive(ctx context.Context, id snowflake.ID, active bool) (domain.FeeType, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.FeeType{}, apperr.ErrInvalidTenant
	}

	var updated domain.FeeType
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		feeType, err := s.repo.FindByID(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if feeType == nil {
			return domain.ErrNotFound
		}
		if feeType.IsActive == active {
			updated = *feeType
			return nil
		}
		if !active {
			usage, err := s.reference.FirstUsage(ctx, tx, tenantID, id, referencedomain.FeeTypeActiveUsages)
			if err != nil {
				return err
			}
			if usage != nil {
				return domain.ErrFeeTypeInUse
			}
		}

		feeType.IsActive = active
		feeType.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, feeType); err != nil {
			return err
		}
		updated = *feeType
		return nil
	})
	if err != nil {
		return domain.FeeType{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionFeeTypeUpdate, updated, map[string]any{"is_active": active})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return apperr.ErrInvalidTenant
	}

	var deleted domain.FeeType
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		feeType, err := s.repo.FindByID(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if feeType == nil {
			return domain.ErrNotFound
		}
		if feeType.IsDefault {
			return domain.ErrFeeTypeDefault
		}

		usage, err := s.reference.FirstUsage(ctx, tx, tenantID, id, referencedomain.FeeTypeDeleteUsages)
		if err != nil {
			return err
		}
		if usage != nil {
			s.log.Debug("fee type delete blocked", zap.String("fee_type_id", id.String()), zap.String("usage", usage.String()))
			return domain.ErrFeeTypeInUse
		}

		deleted = *feeType
		return s.repo.Delete(ctx, tx, tenantID, id)
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, auditdomain.ActionFeeTypeDelete, deleted, nil)
	return nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.FeeType, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrInvalidTenant
	}
	items, err := s.repo.List(ctx, s.db, tenantID, activeOnly)
	if err != nil {
		return nil, err
	}
	feeTypes := make([]domain.FeeType, 0, len(items))
	for _, item := range items {
		feeTypes = append(feeTypes, *item)
	}
	return feeTypes, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.FeeType, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.FeeType{}, apperr.ErrInvalidTenant
	}
	feeType, err := s.find(ctx, tenantID, id)
	if err != nil {
		return domain.FeeType{}, err
	}
	return *feeType, nil
}

// SeedDefaults creates the system fee types that are missing for the tenant.
func (s *Service) SeedDefaults(ctx context.Context, tenantID snowflake.ID) (domain.SeedResult, error) {
	if tenantID == 0 {
		return domain.SeedResult{}, apperr.ErrInvalidTenant
	}

	result := domain.SeedResult{Created: []string{}, Skipped: []string{}}
	for _, def := range domain.DefaultFeeTypes {
		_, err := s.create(ctx, tenantID, domain.CreateFeeTypeRequest{
			Name:        def.Name,
			Description: def.Description,
			Frequency:   string(def.Frequency),
			IsDefault:   true,
		})
		switch {
		case err == nil:
			result.Created = append(result.Created, def.Name)
		case apperr.Is(err, apperr.KindConflict):
			result.Skipped = append(result.Skipped, def.Name)
		default:
			return result, err
		}
	}

	if len(result.Created) > 0 {
		s.log.Info("default fee types seeded",
			zap.String("tenant_id", tenantID.String()),
			zap.Strings("created", result.Created),
		)
	}
	return result, nil
}

func (s *Service) find(ctx context.Context, tenantID, id snowflake.ID) (*domain.FeeType, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	feeType, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	if feeType == nil {
		return nil, domain.ErrNotFound
	}
	return feeType, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, feeType domain.FeeType, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"name": feeType.Name,
		"code": feeType.Code,
	}
	for key, value := range extra {
		metadata[key] = value
	}
	targetID := feeType.ID.String()
	_ = s.auditSvc.AuditLog(ctx, action, "fee_type", &targetID, metadata)
}

// normalizeName returns the trimmed display name and its slug code. Names
// differing only in case or punctuation share a code.
func normalizeName(raw string) (string, string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return "", "", domain.ErrInvalidName
	}
	code := slug.Make(name)
	if code == "" {
		return "", "", domain.ErrInvalidName
	}
	return name, code, nil
}
