package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/nexuscore/nexuscore/internal/audit"
	"github.com/nexuscore/nexuscore/internal/clock"
	"github.com/nexuscore/nexuscore/internal/config"
	"github.com/nexuscore/nexuscore/internal/consent"
	"github.com/nexuscore/nexuscore/internal/dsar"
	"github.com/nexuscore/nexuscore/internal/idempotency"
	"github.com/nexuscore/nexuscore/internal/invoice"
	"github.com/nexuscore/nexuscore/internal/migration"
	"github.com/nexuscore/nexuscore/internal/observability"
	"github.com/nexuscore/nexuscore/internal/retention"
	"github.com/nexuscore/nexuscore/internal/scheduler"
	"github.com/nexuscore/nexuscore/internal/seed"
	"github.com/nexuscore/nexuscore/internal/server"
	"github.com/nexuscore/nexuscore/internal/tax"
	"github.com/nexuscore/nexuscore/pkg/db"
	"go.uber.org/fx"
)

func newSnowflakeNode() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			nodeID = parsed
		}
	}
	return snowflake.NewNode(nodeID)
}

func main() {
	fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		audit.Module,
		tax.Module,
		seed.Module,
		invoice.Module,
		idempotency.Module,
		retention.Module,
		consent.Module,
		dsar.Module,
		scheduler.Module,
		server.Module,
	).Run()
}
