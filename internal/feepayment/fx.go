package feepayment

import (
	"github.com/smallbiznis/bursary/internal/feepayment/repository"
	"github.com/smallbiznis/bursary/internal/feepayment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feepayment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
