package feetype

import (
	"github.com/smallbiznis/bursary/internal/feetype/repository"
	"github.com/smallbiznis/bursary/internal/feetype/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feetype.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
