// Package postgres provides the relational storage of the service. PostgreSQL is the
// production dialect, reached through a pgx pool; sqlite serves local runs and tests.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/turtacn/touristsafety/internal/config"
	"github.com/turtacn/touristsafety/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DBConnection manages the database handle lifecycle.
type DBConnection struct {
	db     *gorm.DB
	pool   *pgxpool.Pool
	config *config.DatabaseConfig
	logger logger.Logger
}

// NewDBConnection opens the configured database and migrates the schema.
func NewDBConnection(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	log = log.WithComponent("database")

	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	conn := &DBConnection{config: cfg, logger: log}
	switch cfg.Driver {
	case "postgres":
		log.Info(ctx, "Initializing PostgreSQL connection pool", logger.Fields{
			"host":      cfg.Host,
			"port":      cfg.Port,
			"database":  cfg.Database,
			"max_conns": cfg.MaxConns,
		})

		poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("parse database config: %w", err)
		}
		if cfg.MaxConns > 0 {
			poolConfig.MaxConns = cfg.MaxConns
		}
		poolConfig.MinConns = cfg.MinConns
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("create connection pool: %w", err)
		}
		if err := pool.Ping(connectCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}

		db, err := gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), gormCfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("open gorm: %w", err)
		}
		conn.db, conn.pool = db, pool

	case "sqlite":
		log.Info(ctx, "Opening sqlite database", logger.Fields{"path": cfg.Path})
		db, err := gorm.Open(sqlite.Open(cfg.Path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		conn.db = db

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if err := AutoMigrate(conn.db); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// AutoMigrate creates or updates every table owned by this package.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&assessmentDBM{}, &tripDBM{}, &trainingRunDBM{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// DB returns the gorm handle used by repositories.
func (c *DBConnection) DB() *gorm.DB {
	return c.db
}

// Ping verifies database connectivity.
func (c *DBConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if c.pool != nil {
		return c.pool.Ping(pingCtx)
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(pingCtx)
}

// HealthCheck pings the database and reports pool statistics when a pgx pool is in use.
func (c *DBConnection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	info := map[string]interface{}{"status": "healthy", "driver": c.config.Driver}
	if c.pool != nil {
		stats := c.pool.Stat()
		info["total_connections"] = stats.TotalConns()
		info["idle_connections"] = stats.IdleConns()
		info["acquired_connections"] = stats.AcquiredConns()
		info["max_connections"] = stats.MaxConns()
	}
	return info, nil
}

// Close releases the database handle and pool.
func (c *DBConnection) Close() {
	if sqlDB, err := c.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if c.pool != nil {
		c.pool.Close()
	}
	c.logger.Info(context.Background(), "Database connection closed")
}
