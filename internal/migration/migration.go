// Package migration applies the database schema before any service
// starts serving.
package migration

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/nexuscore/nexuscore/internal/audit/domain"
	"github.com/nexuscore/nexuscore/internal/config"
	consentdomain "github.com/nexuscore/nexuscore/internal/consent/domain"
	dsardomain "github.com/nexuscore/nexuscore/internal/dsar/domain"
	idempotencydomain "github.com/nexuscore/nexuscore/internal/idempotency/domain"
	invoicedomain "github.com/nexuscore/nexuscore/internal/invoice/domain"
	taxdomain "github.com/nexuscore/nexuscore/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Run applies versioned SQL migrations on postgres. Other dialects
// (sqlite in dev and tests) fall back to gorm auto-migration, which
// covers the same models without tracking a schema version.
func Run(cfg config.Config, db *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")

	if cfg.DBType != "postgres" {
		log.Info("auto-migrating schema", zap.String("db_type", cfg.DBType))
		return db.AutoMigrate(
			&taxdomain.TaxRule{},
			&invoicedomain.Invoice{},
			&invoicedomain.InvoiceLine{},
			&invoicedomain.InvoiceTaxLine{},
			&consentdomain.ConsentEvent{},
			&consentdomain.PersonalDataRecord{},
			&dsardomain.Request{},
			&idempotencydomain.Record{},
			&auditdomain.AuditLog{},
		)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("schema up to date")
			return nil
		}
		return err
	}
	version, _, _ := m.Version()
	log.Info("schema migrated", zap.Uint("version", version))
	return nil
}

var Module = fx.Module("migration",
	fx.Invoke(Run),
)
