package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hospitality/internal/clock"
	"github.com/smallbiznis/hospitality/internal/config"
	"github.com/smallbiznis/hospitality/internal/migration"
	"github.com/smallbiznis/hospitality/internal/observability"
	"github.com/smallbiznis/hospitality/internal/rewards"
	"github.com/smallbiznis/hospitality/internal/seed"
	"github.com/smallbiznis/hospitality/internal/server"
	"github.com/smallbiznis/hospitality/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		fx.Invoke(func(conn *gorm.DB, node *snowflake.Node, cfg config.Config) error {
			if err := migration.RunMigrations(conn); err != nil {
				return err
			}
			if !cfg.IsProduction() && cfg.Bootstrap.SeedPromotions {
				return seed.EnsureDefaultPromotions(conn, node)
			}
			return nil
		}),

		rewards.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterRoutes()
		}),
		fx.Invoke(server.RunHTTP),
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
