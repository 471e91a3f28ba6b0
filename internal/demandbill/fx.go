package demandbill

import (
	"github.com/smallbiznis/bursary/internal/demandbill/repository"
	"github.com/smallbiznis/bursary/internal/demandbill/service"
	"go.uber.org/fx"
)

var Module = fx.Module("demandbill.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewFlatLateFeePolicy),
	fx.Provide(service.New),
)
