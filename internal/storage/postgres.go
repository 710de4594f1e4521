// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const registrySchema = `
	CREATE TABLE IF NOT EXISTS organizations (
		id UUID PRIMARY KEY,
		organization_name TEXT NOT NULL,
		namespace_id TEXT NOT NULL,
		namespace_schema TEXT NOT NULL,
		admin_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT organizations_organization_name_key UNIQUE (organization_name),
		CONSTRAINT organizations_namespace_schema_key UNIQUE (namespace_schema)
	);
	CREATE TABLE IF NOT EXISTS admin_users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL,
		hashed_password TEXT NOT NULL,
		organization_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT admin_users_email_key UNIQUE (email)
	);
	CREATE INDEX IF NOT EXISTS admin_users_organization_id_idx ON admin_users (organization_id);
`

// Storage owns the single connection pool shared by the registry and the tenant namespaces.
type Storage struct {
	DB *sql.DB
}

func NewStorage(dsn string, maxOpenConns int) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{DB: db}, nil
}

// Bootstrap creates the registry tables and unique indexes if they are missing.
func (s *Storage) Bootstrap(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, registrySchema); err != nil {
		return fmt.Errorf("failed to bootstrap registry schema: %w", err)
	}
	return nil
}

func (s *Storage) Registry() *Registry {
	return NewRegistry(s.DB)
}

func (s *Storage) Namespaces() *Namespaces {
	return NewNamespaces(s.DB)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.DB.Close()
}
