package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	"github.com/smallbiznis/bursary/internal/clock"
	classdomain "github.com/smallbiznis/bursary/internal/schoolclass/domain"
	"github.com/smallbiznis/bursary/internal/student/domain"
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
	ClassRepo   classdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	sessionRepo sessiondomain.Repository
	classRepo   classdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("student.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		classRepo:   p.ClassRepo,
	}
}

// Admit places a new active student. Full student records live outside the
// fee engine; only placement is kept here.
func (s *Service) Admit(ctx context.Context, req domain.AdmitRequest) (domain.StudentDetails, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.StudentDetails{}, apperr.ErrInvalidTenant
	}

	admissionNo := strings.TrimSpace(req.AdmissionNo)
	name := strings.TrimSpace(req.Name)
	className := strings.TrimSpace(req.ClassName)
	if admissionNo == "" || name == "" || className == "" || req.SessionID == 0 {
		return domain.StudentDetails{}, domain.ErrInvalidStudent
	}

	session, err := s.sessionRepo.FindByID(ctx, s.db, tenantID, req.SessionID)
	if err != nil {
		return domain.StudentDetails{}, err
	}
	if session == nil {
		return domain.StudentDetails{}, sessiondomain.ErrNotFound
	}
	class, err := s.classRepo.FindOne(ctx, &classdomain.SchoolClass{TenantID: tenantID, Name: className})
	if err != nil {
		return domain.StudentDetails{}, err
	}
	if class == nil {
		return domain.StudentDetails{}, classdomain.ErrNotFound
	}

	now := s.clock.Now()
	student := domain.StudentDetails{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		AdmissionNo: admissionNo,
		Name:        name,
		SessionID:   session.ID,
		ClassName:   class.Name,
		Section:     strings.TrimSpace(req.Section),
		Status:      domain.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &student); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.StudentDetails{}, domain.ErrAdmissionExists
		}
		return domain.StudentDetails{}, err
	}
	return student, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.StudentDetails, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return domain.StudentDetails{}, apperr.ErrInvalidTenant
	}
	student, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return domain.StudentDetails{}, err
	}
	if student == nil {
		return domain.StudentDetails{}, domain.ErrNotFound
	}
	return *student, nil
}

func (s *Service) List(ctx context.Context, filter domain.PlacementFilter) ([]domain.StudentDetails, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrInvalidTenant
	}
	items, err := s.repo.ListByPlacement(ctx, s.db, tenantID, filter)
	if err != nil {
		return nil, err
	}
	students := make([]domain.StudentDetails, 0, len(items))
	for _, item := range items {
		students = append(students, *item)
	}
	return students, nil
}

func (s *Service) History(ctx context.Context, id snowflake.ID) ([]domain.StudentAcademicHistory, error) {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrInvalidTenant
	}
	items, err := s.repo.ListHistory(ctx, s.db, tenantID, id)
	if err != nil {
		return nil, err
	}
	history := make([]domain.StudentAcademicHistory, 0, len(items))
	for _, item := range items {
		history = append(history, *item)
	}
	return history, nil
}
