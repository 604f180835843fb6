package postgres

import (
	"architect/internal/config"
	"architect/internal/logger"
	"architect/internal/repository/db"
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// Ensure PostgresDB implements db.Database interface
var _ db.Database = (*PostgresDB)(nil)

// PostgresDB implements the db.Database interface
type PostgresDB struct {
	conn *sql.DB
}

// NewPostgresDB opens a connection, verifies it and applies pending migrations
func NewPostgresDB(ctx context.Context, dbConfig config.DatabaseConfig) (*PostgresDB, error) {
	conn, err := Open(ctx, dbConfig)
	if err != nil {
		return nil, err
	}

	p := NewFromConn(conn)

	if err = p.RunMigrations(dbConfig.MigrationsPath); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	logger.Log.Info("Migrations completed successfully")

	return p, nil
}

// Open connects to PostgreSQL without touching the schema
func Open(ctx context.Context, dbConfig config.DatabaseConfig) (*sql.DB, error) {
	logger.Log.WithField("host", dbConfig.Host).WithField("database", dbConfig.Name).Info("Connecting to PostgreSQL")

	conn, err := sql.Open("postgres", dbConfig.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if dbConfig.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(dbConfig.MaxOpenConns)
	}

	// Test the connection
	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, classify("error connecting to database", err)
	}

	logger.Log.Info("Successfully connected to PostgreSQL")
	return conn, nil
}

// NewFromConn wraps an existing connection
func NewFromConn(conn *sql.DB) *PostgresDB {
	return &PostgresDB{conn: conn}
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// RunMigrations applies the file migrations found in dir
func (p *PostgresDB) RunMigrations(dir string) error {
	driver, err := postgres.WithInstance(p.conn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("error creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("error creating migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("error running migrations: %w", err)
	}

	logger.Log.Info("Database migrations applied successfully")
	return nil
}

// Migrate runs migrations in the given direction against a database URL.
// steps == 0 means all the way.
func Migrate(dir, databaseURL string, down bool, steps int) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return fmt.Errorf("error creating migration instance: %w", err)
	}
	defer m.Close()

	switch {
	case steps > 0 && down:
		err = m.Steps(-steps)
	case steps > 0:
		err = m.Steps(steps)
	case down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("error running migrations: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && verr != migrate.ErrNilVersion {
		return fmt.Errorf("error reading migration version: %w", verr)
	}
	logger.Log.WithField("version", version).WithField("dirty", dirty).Info("Migrations finished")
	return nil
}
