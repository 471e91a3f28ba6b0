package promotion

import (
	"github.com/smallbiznis/bursary/internal/promotion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("promotion.service",
	fx.Provide(service.New),
)
