package domain

import "github.com/smallbiznis/bursary/pkg/repository"

type Repository = repository.Repository[SchoolClass]
