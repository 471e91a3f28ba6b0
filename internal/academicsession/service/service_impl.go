package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/academicsession/domain"
	auditdomain "github.com/smallbiznis/bursary/internal/audit/domain"
	"github.com/smallbiznis/bursary/internal/clock"
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
		log:       p.Log.Named("academicsession.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		reference: p.Reference,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateSessionRequest) (domain.AcademicSession, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.AcademicSession{}, apperr.ErrInvalidTenant
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.AcademicSession{}, domain.ErrInvalidName
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() || !req.EndDate.After(req.StartDate) {
		return domain.AcademicSession{}, domain.ErrInvalidDateRange
	}

	existing, err := s.repo.FindByName(ctx, s.db, tenantID, name)
	if err != nil {
		return domain.AcademicSession{}, err
	}
	if existing != nil {
		return domain.AcademicSession{}, domain.ErrSessionExists
	}

	now := s.clock.Now()
	session := domain.AcademicSession{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Name:        name,
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		IsActive:    false,
		IsSetupMode: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &session); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.AcademicSession{}, domain.ErrSessionExists
		}
		return domain.AcademicSession{}, err
	}

	s.emitAudit(ctx, auditdomain.ActionSessionCreate, session.ID, map[string]any{"name": name})
	return session, nil
}

func (s *Service) List(ctx context.Context) ([]domain.AcademicSession, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrInvalidTenant
	}

	items, err := s.repo.List(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	sessions := make([]domain.AcademicSession, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, *item)
	}
	return sessions, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.AcademicSession, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.AcademicSession{}, apperr.ErrInvalidTenant
	}
	if id == 0 {
		return domain.AcademicSession{}, domain.ErrInvalidID
	}

	session, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return domain.AcademicSession{}, err
	}
	if session == nil {
		return domain.AcademicSession{}, domain.ErrNotFound
	}
	return *session, nil
}

func (s *Service) GetActive(ctx context.Context) (domain.AcademicSession, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.AcademicSession{}, apperr.ErrInvalidTenant
	}

	pointer, err := s.repo.FindPointer(ctx, s.db, tenantID)
	if err != nil {
		return domain.AcademicSession{}, err
	}
	if pointer == nil {
		return domain.AcademicSession{}, domain.ErrNoActiveSession
	}
	session, err := s.repo.FindByID(ctx, s.db, tenantID, pointer.SessionID)
	if err != nil {
		return domain.AcademicSession{}, err
	}
	if session == nil {
		return domain.AcademicSession{}, domain.ErrNoActiveSession
	}
	return *session, nil
}

// Activate makes id the only active session of the tenant. Concurrent
// activations serialize on the tenant's pointer row.
func (s *Service) Activate(ctx context.Context, id snowflake.ID) (domain.AcademicSession, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.AcademicSession{}, apperr.ErrInvalidTenant
	}
	if id == 0 {
		return domain.AcademicSession{}, domain.ErrInvalidID
	}
	actor := tenantcontext.ResolveActor(ctx, "")

	var activated domain.AcademicSession
	var previous snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.repo.FindByID(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if target == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		pointer, created, err := s.repo.LockPointer(ctx, tx, tenantID, id, actor, now)
		if err != nil {
			return err
		}
		if !created {
			previous = pointer.SessionID
		}

		if err := s.repo.SetActive(ctx, tx, tenantID, id, now); err != nil {
			return err
		}

		pointer.SessionID = id
		pointer.ActivatedBy = actor
		pointer.ActivatedAt = now
		if err := s.repo.UpdatePointer(ctx, tx, pointer); err != nil {
			return err
		}

		target.IsActive = true
		target.IsSetupMode = false
		target.UpdatedAt = now
		activated = *target
		return nil
	})
	if err != nil {
		return domain.AcademicSession{}, err
	}

	fields := []zap.Field{
		zap.String("tenant_id", tenantID.String()),
		zap.String("session_id", id.String()),
	}
	metadata := map[string]any{}
	if previous != 0 {
		fields = append(fields, zap.String("previous_session_id", previous.String()))
		metadata["previous_session_id"] = previous.String()
	}
	s.log.Info("academic session activated", fields...)
	s.emitAudit(ctx, auditdomain.ActionSessionActivate, id, metadata)
	return activated, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return apperr.ErrInvalidTenant
	}
	if id == 0 {
		return domain.ErrInvalidID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := s.repo.FindByID(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrNotFound
		}

		pointer, err := s.repo.FindPointer(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		if session.IsActive || (pointer != nil && pointer.SessionID == id) {
			return domain.ErrSessionActive
		}

		usage, err := s.reference.FirstUsage(ctx, tx, tenantID, id, referencedomain.SessionUsages)
		if err != nil {
			return err
		}
		if usage != nil {
			s.log.Debug("session delete blocked", zap.String("session_id", id.String()), zap.String("usage", usage.String()))
			return domain.ErrSessionInUse
		}

		return s.repo.Delete(ctx, tx, tenantID, id)
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, auditdomain.ActionSessionDelete, id, nil)
	return nil
}

func (s *Service) emitAudit(ctx context.Context, action string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := id.String()
	_ = s.auditSvc.AuditLog(ctx, action, "academic_session", &targetID, metadata)
}
