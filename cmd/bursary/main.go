package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursary/internal/clock"
	"github.com/smallbiznis/bursary/internal/config"
	"github.com/smallbiznis/bursary/internal/migration"
	"github.com/smallbiznis/bursary/internal/observability"
	"github.com/smallbiznis/bursary/internal/scheduler"
	"github.com/smallbiznis/bursary/internal/seed"
	"github.com/smallbiznis/bursary/internal/server"
	"github.com/smallbiznis/bursary/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema before anything touches the tables.
		migration.Module,

		// Fee domains and HTTP API
		server.Module,
		seed.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
