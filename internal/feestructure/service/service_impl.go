package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	auditdomain "github.com/smallbiznis/bursary/internal/audit/domain"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/feestructure/domain"
	feetypedomain "github.com/smallbiznis/bursary/internal/feetype/domain"
	classdomain "github.com/smallbiznis/bursary/internal/schoolclass/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/smallbiznis/bursary/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	SessionRepo sessiondomain.Repository
	ClassRepo   classdomain.Repository
	FeeTypeRepo feetypedomain.Repository
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	sessionRepo sessiondomain.Repository
	classRepo   classdomain.Repository
	feeTypeRepo feetypedomain.Repository
	auditSvc    auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("feestructure.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		classRepo:   p.ClassRepo,
		feeTypeRepo: p.FeeTypeRepo,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Service) Resolve(ctx context.Context, sessionID snowflake.ID, className string) (domain.Resolution, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.Resolution{}, apperr.ErrInvalidTenant
	}
	className = strings.TrimSpace(className)
	if sessionID == 0 {
		return domain.Resolution{}, domain.ErrInvalidSession
	}
	if className == "" {
		return domain.Resolution{}, domain.ErrInvalidClassName
	}

	resolution := domain.Resolution{
		SessionID:   sessionID,
		ClassName:   className,
		Items:       []domain.ResolvedItem{},
		TotalAmount: decimal.Zero,
	}

	structure, err := s.repo.FindByKey(ctx, s.db, tenantID, sessionID, className)
	if err != nil {
		return domain.Resolution{}, err
	}
	if structure == nil {
		return resolution, nil
	}
	resolution.Configured = true

	items, err := s.repo.ListItems(ctx, s.db, tenantID, []snowflake.ID{structure.ID})
	if err != nil {
		return domain.Resolution{}, err
	}
	feeTypeIDs := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		feeTypeIDs = append(feeTypeIDs, item.FeeTypeID)
	}
	feeTypes, err := s.feeTypeRepo.FindByIDs(ctx, s.db, tenantID, feeTypeIDs)
	if err != nil {
		return domain.Resolution{}, err
	}

	for _, item := range items {
		resolved := domain.ResolvedItem{
			FeeTypeID:  item.FeeTypeID,
			Amount:     item.Amount.Round(2),
			IsOptional: item.IsOptional,
			Frequency:  item.Frequency,
			Position:   item.Position,
		}
		if feeType, ok := feeTypes[item.FeeTypeID]; ok {
			resolved.FeeTypeName = feeType.Name
			if resolved.Frequency == nil {
				resolved.Frequency = feeType.Frequency
			}
		}
		resolution.Items = append(resolution.Items, resolved)
		resolution.TotalAmount = resolution.TotalAmount.Add(resolved.Amount)
	}
	return resolution, nil
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest) (domain.FeeStructure, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.FeeStructure{}, apperr.ErrInvalidTenant
	}
	className := strings.TrimSpace(req.ClassName)
	if req.SessionID == 0 {
		return domain.FeeStructure{}, domain.ErrInvalidSession
	}
	if className == "" {
		return domain.FeeStructure{}, domain.ErrInvalidClassName
	}
	if err := s.ensureSession(ctx, tenantID, req.SessionID); err != nil {
		return domain.FeeStructure{}, err
	}
	class, err := s.classRepo.FindOne(ctx, &classdomain.SchoolClass{TenantID: tenantID, Name: className})
	if err != nil {
		return domain.FeeStructure{}, err
	}
	if class == nil {
		return domain.FeeStructure{}, classdomain.ErrNotFound
	}

	items, err := s.validateItems(ctx, tenantID, req.Items)
	if err != nil {
		return domain.FeeStructure{}, err
	}

	actor := tenantcontext.ResolveActor(ctx, "")
	var stored domain.FeeStructure
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		structure, err := s.replace(ctx, tx, tenantID, req.SessionID, className, items, actor)
		if err != nil {
			return err
		}
		stored = *structure
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.FeeStructure{}, domain.ErrStructureExists
		}
		return domain.FeeStructure{}, err
	}

	if s.auditSvc != nil {
		targetID := stored.ID.String()
		_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionFeeStructureUpsert, "fee_structure", &targetID, map[string]any{
			"session_id":   req.SessionID.String(),
			"class_name":   className,
			"item_count":   len(stored.Items),
			"total_amount": stored.TotalAmount.StringFixed(2),
		})
	}
	return stored, nil
}

// Copy clones the source session's structures into the target session,
// scaling every amount by the percentage increase.
func (s *Service) Copy(ctx context.Context, req domain.CopyRequest) (domain.CopyResult, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.CopyResult{}, apperr.ErrInvalidTenant
	}
	if req.SourceSessionID == 0 || req.TargetSessionID == 0 {
		return domain.CopyResult{}, domain.ErrInvalidSession
	}
	if req.SourceSessionID == req.TargetSessionID {
		return domain.CopyResult{}, domain.ErrSameSession
	}
	if req.PercentageIncrease.LessThan(hundred.Neg()) {
		return domain.CopyResult{}, domain.ErrInvalidPercentage
	}
	if err := s.ensureSession(ctx, tenantID, req.SourceSessionID); err != nil {
		return domain.CopyResult{}, err
	}
	if err := s.ensureSession(ctx, tenantID, req.TargetSessionID); err != nil {
		return domain.CopyResult{}, err
	}

	sources, err := s.repo.ListBySession(ctx, s.db, tenantID, req.SourceSessionID)
	if err != nil {
		return domain.CopyResult{}, err
	}
	byClass := make(map[string]*domain.FeeStructure, len(sources))
	for _, source := range sources {
		byClass[source.ClassName] = source
	}

	wanted := make([]string, 0, len(sources))
	if len(req.Classes) == 0 {
		for _, source := range sources {
			wanted = append(wanted, source.ClassName)
		}
	} else {
		seen := make(map[string]struct{}, len(req.Classes))
		for _, className := range req.Classes {
			className = strings.TrimSpace(className)
			if className == "" {
				continue
			}
			if _, dup := seen[className]; dup {
				continue
			}
			seen[className] = struct{}{}
			wanted = append(wanted, className)
		}
	}

	multiplier := decimal.NewFromInt(1).Add(req.PercentageIncrease.Div(hundred))
	actor := tenantcontext.ResolveActor(ctx, "")
	result := domain.CopyResult{Copied: []string{}, Skipped: []string{}}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, className := range wanted {
			source, ok := byClass[className]
			if !ok {
				result.Skipped = append(result.Skipped, className)
				continue
			}
			sourceItems, err := s.repo.ListItems(ctx, tx, tenantID, []snowflake.ID{source.ID})
			if err != nil {
				return err
			}
			items := make([]domain.ItemInput, 0, len(sourceItems))
			for _, item := range sourceItems {
				input := domain.ItemInput{
					FeeTypeID:  item.FeeTypeID,
					Amount:     item.Amount.Mul(multiplier).Round(2),
					IsOptional: item.IsOptional,
				}
				if item.Frequency != nil {
					input.Frequency = string(*item.Frequency)
				}
				items = append(items, input)
			}
			if _, err := s.replace(ctx, tx, tenantID, req.TargetSessionID, className, items, actor); err != nil {
				return err
			}
			result.Copied = append(result.Copied, className)
		}
		return nil
	})
	if err != nil {
		return domain.CopyResult{}, err
	}

	s.log.Info("fee structures copied",
		zap.String("source_session_id", req.SourceSessionID.String()),
		zap.String("target_session_id", req.TargetSessionID.String()),
		zap.Int("copied", len(result.Copied)),
		zap.Int("skipped", len(result.Skipped)),
	)
	if s.auditSvc != nil {
		targetID := req.TargetSessionID.String()
		_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionFeeStructureCopy, "academic_session", &targetID, map[string]any{
			"source_session_id":   req.SourceSessionID.String(),
			"percentage_increase": req.PercentageIncrease.String(),
			"copied":              result.Copied,
			"skipped":             result.Skipped,
		})
	}
	return result, nil
}

func (s *Service) List(ctx context.Context, sessionID snowflake.ID) ([]domain.FeeStructure, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrInvalidTenant
	}
	if sessionID == 0 {
		return nil, domain.ErrInvalidSession
	}

	structures, err := s.repo.ListBySession(ctx, s.db, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(structures))
	for _, structure := range structures {
		ids = append(ids, structure.ID)
	}
	items, err := s.repo.ListItems(ctx, s.db, tenantID, ids)
	if err != nil {
		return nil, err
	}
	grouped := make(map[snowflake.ID][]domain.FeeStructureItem, len(structures))
	for _, item := range items {
		grouped[item.StructureID] = append(grouped[item.StructureID], *item)
	}

	result := make([]domain.FeeStructure, 0, len(structures))
	for _, structure := range structures {
		structure.Items = grouped[structure.ID]
		if structure.Items == nil {
			structure.Items = []domain.FeeStructureItem{}
		}
		result = append(result, *structure)
	}
	return result, nil
}

func (s *Service) Delete(ctx context.Context, sessionID snowflake.ID, className string) error {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return apperr.ErrInvalidTenant
	}
	className = strings.TrimSpace(className)
	if sessionID == 0 {
		return domain.ErrInvalidSession
	}
	if className == "" {
		return domain.ErrInvalidClassName
	}

	var deletedID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		structure, err := s.repo.FindByKeyForUpdate(ctx, tx, tenantID, sessionID, className)
		if err != nil {
			return err
		}
		if structure == nil {
			return domain.ErrStructureNotFound
		}
		if err := s.repo.DeleteItems(ctx, tx, tenantID, structure.ID); err != nil {
			return err
		}
		deletedID = structure.ID
		return s.repo.Delete(ctx, tx, tenantID, structure.ID)
	})
	if err != nil {
		return err
	}

	if s.auditSvc != nil {
		targetID := deletedID.String()
		_ = s.auditSvc.AuditLog(ctx, auditdomain.ActionFeeStructureDelete, "fee_structure", &targetID, map[string]any{
			"session_id": sessionID.String(),
			"class_name": className,
		})
	}
	return nil
}

// replace deletes every item of the keyed structure and recreates it from
// items, creating the structure when missing.
func (s *Service) replace(ctx context.Context, tx *gorm.DB, tenantID, sessionID snowflake.ID, className string, items []domain.ItemInput, actor string) (*domain.FeeStructure, error) {
	now := s.clock.Now()
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount.Round(2))
	}

	structure, err := s.repo.FindByKeyForUpdate(ctx, tx, tenantID, sessionID, className)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		structure = &domain.FeeStructure{
			ID:          s.genID.Generate(),
			TenantID:    tenantID,
			SessionID:   sessionID,
			ClassName:   className,
			TotalAmount: total,
			UpdatedBy:   actor,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.Insert(ctx, tx, structure); err != nil {
			return nil, err
		}
	} else {
		if err := s.repo.DeleteItems(ctx, tx, tenantID, structure.ID); err != nil {
			return nil, err
		}
		structure.TotalAmount = total
		structure.UpdatedBy = actor
		structure.UpdatedAt = now
		if err := s.repo.UpdateTotals(ctx, tx, structure); err != nil {
			return nil, err
		}
	}

	rows := make([]*domain.FeeStructureItem, 0, len(items))
	for position, item := range items {
		frequency, err := feetypedomain.ParseFrequency(item.Frequency)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &domain.FeeStructureItem{
			ID:          s.genID.Generate(),
			TenantID:    tenantID,
			StructureID: structure.ID,
			FeeTypeID:   item.FeeTypeID,
			Position:    position,
			Amount:      item.Amount.Round(2),
			IsOptional:  item.IsOptional,
			Frequency:   frequency,
			CreatedAt:   now,
		})
	}
	if err := s.repo.InsertItems(ctx, tx, rows); err != nil {
		return nil, err
	}

	structure.Items = make([]domain.FeeStructureItem, 0, len(rows))
	for _, row := range rows {
		structure.Items = append(structure.Items, *row)
	}
	return structure, nil
}

func (s *Service) validateItems(ctx context.Context, tenantID snowflake.ID, items []domain.ItemInput) ([]domain.ItemInput, error) {
	seen := make(map[snowflake.ID]struct{}, len(items))
	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		if item.FeeTypeID == 0 {
			return nil, domain.ErrInvalidFeeType
		}
		if item.Amount.IsNegative() {
			return nil, domain.ErrInvalidAmount
		}
		if _, dup := seen[item.FeeTypeID]; dup {
			return nil, domain.ErrDuplicateFeeType
		}
		if _, err := feetypedomain.ParseFrequency(item.Frequency); err != nil {
			return nil, err
		}
		seen[item.FeeTypeID] = struct{}{}
		ids = append(ids, item.FeeTypeID)
	}

	feeTypes, err := s.feeTypeRepo.FindByIDs(ctx, s.db, tenantID, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		feeType, ok := feeTypes[id]
		if !ok {
			return nil, feetypedomain.ErrNotFound
		}
		if !feeType.IsActive {
			return nil, feetypedomain.ErrFeeTypeInactive
		}
	}
	return items, nil
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
