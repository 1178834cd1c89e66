package migrations

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mongodb"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Source is an embedded set of migration files contributed by a package.
// Each source is versioned independently under its own migrations collection.
type Source struct {
	// Name identifies the source and suffixes the migrations collection.
	Name string
	// FS holds the migration files, usually an embed.FS.
	FS fs.FS
	// Dir is the directory inside FS containing the files.
	Dir string
}

type Migrator interface {
	// Apply runs all pending migrations of the source.
	Apply(source Source) error
	// Rollback rolls back all migrations of the source.
	Rollback(source Source) error
	// Version returns the current version and dirty flag of the source.
	Version(source Source) (uint, bool, error)
}

type migrator struct {
	database *mongodriver.Database
	conf     Config
	log      *zap.Logger
}

func newMigrator(database *mongodriver.Database, conf Config, log *zap.Logger) Migrator {
	return &migrator{
		database: database,
		conf:     conf,
		log:      log,
	}
}

func (m *migrator) createMigrateInstance(source Source) (*migrate.Migrate, error) {
	if source.Name == "" {
		return nil, fmt.Errorf("migration source name is required")
	}
	if source.FS == nil {
		return nil, fmt.Errorf("migration source filesystem is required")
	}

	driver, err := mongodb.WithInstance(m.database.Client(), &mongodb.Config{
		DatabaseName:         m.database.Name(),
		MigrationsCollection: m.conf.CollectionName + "_" + source.Name,
		Locking: mongodb.Locking{
			Enabled: true,
			Timeout: m.conf.LockingTimeout, // minutes
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mongodb driver: %w", err)
	}

	sourceDriver, err := iofs.New(source.FS, source.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source: %w", err)
	}

	mi, err := migrate.NewWithInstance("iofs", sourceDriver, m.database.Name(), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return mi, nil
}

func (m *migrator) Apply(source Source) error {
	m.log.Info("running migrations up",
		zap.String("source", source.Name),
		zap.String("dir", source.Dir))

	mi, err := m.createMigrateInstance(source)
	if err != nil {
		return err
	}

	err = mi.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("no migrations to apply", zap.String("source", source.Name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations up: %w", err)
	}

	version, dirty, err := mi.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	m.log.Info("migrations completed successfully",
		zap.String("source", source.Name),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)

	return nil
}

func (m *migrator) Rollback(source Source) error {
	m.log.Warn("rolling back all migrations", zap.String("source", source.Name))

	mi, err := m.createMigrateInstance(source)
	if err != nil {
		return err
	}

	err = mi.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("no migrations to rollback", zap.String("source", source.Name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations down: %w", err)
	}

	m.log.Info("migrations rolled back successfully", zap.String("source", source.Name))
	return nil
}

func (m *migrator) Version(source Source) (uint, bool, error) {
	mi, err := m.createMigrateInstance(source)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := mi.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, fmt.Errorf("failed to get version: %w", err)
	}
	return version, dirty, nil
}
