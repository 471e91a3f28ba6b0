package batchlock

import "go.uber.org/fx"

var Module = fx.Module("batch.lock",
	fx.Provide(New),
)
