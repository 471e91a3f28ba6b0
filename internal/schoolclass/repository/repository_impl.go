package repository

import (
	"github.com/smallbiznis/bursary/internal/schoolclass/domain"
	"github.com/smallbiznis/bursary/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) domain.Repository {
	return repository.ProvideStore[domain.SchoolClass](db)
}
