package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/pkg/config"
	"github.com/eun-legal/backend/pkg/logger"
)

// ErrNotFound is returned by repository reads when no row matches.
var ErrNotFound = errors.New("record not found")

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

type Client struct {
	pool *pgxpool.Pool
}

// Bootstrap provisions the application role and database using the admin
// credentials. Safe to call on every startup: existing role/database are
// left alone.
func Bootstrap(ctx context.Context, cfg config.PostgresConfig) error {
	adminDSN := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.AdminUser, cfg.AdminPassword, cfg.Host, cfg.Port, cfg.AdminDatabase)

	conn, err := pgx.Connect(ctx, adminDSN)
	if err != nil {
		return fmt.Errorf("failed to open admin connection: %w", err)
	}
	defer conn.Close(ctx)

	var roleExists bool
	err = conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", cfg.User).Scan(&roleExists)
	if err != nil {
		return fmt.Errorf("failed to check role: %w", err)
	}
	if !roleExists {
		user, err := quoteIdentifier(cfg.User)
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf("CREATE ROLE %s LOGIN PASSWORD '%s'", user, strings.ReplaceAll(cfg.Password, "'", "''"))
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}
		logger.Info("Database role created", zap.String("role", cfg.User))
	}

	var dbExists bool
	err = conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", cfg.Database).Scan(&dbExists)
	if err != nil {
		return fmt.Errorf("failed to check database: %w", err)
	}
	if !dbExists {
		db, err := quoteIdentifier(cfg.Database)
		if err != nil {
			return err
		}
		user, err := quoteIdentifier(cfg.User)
		if err != nil {
			return err
		}
		if _, err := conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s OWNER %s", db, user)); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		if _, err := conn.Exec(ctx, fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s", db, user)); err != nil {
			return fmt.Errorf("failed to grant privileges: %w", err)
		}
		logger.Info("Database created", zap.String("database", cfg.Database))
	}

	return nil
}

// Connect opens the application connection pool. The pool is lazily
// populated and kept for the process lifetime.
func Connect(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	logger.Info("Postgres client initialized",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
	)

	return &Client{pool: pool}, nil
}

func (c *Client) Close() {
	c.pool.Close()
}

func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

func (c *Client) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := c.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)",
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return exists, nil
}

// CreateTable runs a CREATE TABLE IF NOT EXISTS with the given body.
func (c *Client) CreateTable(ctx context.Context, name, body string) error {
	table, err := quoteIdentifier(name)
	if err != nil {
		return err
	}
	if _, err := c.pool.Exec(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, body)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return nil
}

func (c *Client) DropTable(ctx context.Context, name string) error {
	table, err := quoteIdentifier(name)
	if err != nil {
		return err
	}
	if _, err := c.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	logger.Info("Table dropped", zap.String("table", name))
	return nil
}

// IsUniqueViolation reports whether err is a duplicate-key insert failure.
// The pipelines rely on it to collapse insert-or-update into try/fallback.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func quoteIdentifier(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("invalid identifier: %q", name)
	}
	return `"` + name + `"`, nil
}
