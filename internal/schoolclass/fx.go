package schoolclass

import (
	"github.com/smallbiznis/bursary/internal/schoolclass/repository"
	"github.com/smallbiznis/bursary/internal/schoolclass/service"
	"go.uber.org/fx"
)

var Module = fx.Module("schoolclass.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
