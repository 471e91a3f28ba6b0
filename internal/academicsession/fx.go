package academicsession

import (
	"github.com/smallbiznis/bursary/internal/academicsession/repository"
	"github.com/smallbiznis/bursary/internal/academicsession/service"
	"go.uber.org/fx"
)

var Module = fx.Module("academicsession.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
