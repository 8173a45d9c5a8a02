package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/channelpass/channelpass/internal/access"
	"github.com/channelpass/channelpass/internal/bot"
	"github.com/channelpass/channelpass/internal/clock"
	"github.com/channelpass/channelpass/internal/config"
	"github.com/channelpass/channelpass/internal/logger"
	"github.com/channelpass/channelpass/internal/metrics"
	"github.com/channelpass/channelpass/internal/migration"
	"github.com/channelpass/channelpass/internal/payment"
	"github.com/channelpass/channelpass/internal/provider"
	"github.com/channelpass/channelpass/internal/server"
	"github.com/channelpass/channelpass/internal/telegram"
	"github.com/channelpass/channelpass/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		clock.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// External surfaces
		telegram.Module,
		provider.Module,
		access.Module,

		// Functional domains
		payment.Module,
		server.Module,
		bot.Module,
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
