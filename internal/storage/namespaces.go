// internal/storage/namespaces.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tenant-registry/internal/model"
)

// Namespaces manages tenant namespaces as PostgreSQL schemas, one table per collection.
type Namespaces struct {
	db *sql.DB
}

func NewNamespaces(db *sql.DB) *Namespaces {
	return &Namespaces{db: db}
}

func table(schema, collection string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(collection)
}

func (n *Namespaces) NamespaceExists(ctx context.Context, schema string) (bool, error) {
	var exists bool
	err := n.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = $1)`, schema).Scan(&exists)
	if err != nil {
		return false, &model.NamespaceError{Op: "lookup", Namespace: schema, Err: err}
	}
	return exists, nil
}

func (n *Namespaces) CreateNamespace(ctx context.Context, schema string) error {
	_, err := n.db.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS `+pq.QuoteIdentifier(schema))
	if err != nil {
		return &model.NamespaceError{Op: "create", Namespace: schema, Err: err}
	}
	return nil
}

func (n *Namespaces) CreateCollection(ctx context.Context, schema, collection string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			body JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, table(schema, collection))
	if _, err := n.db.ExecContext(ctx, query); err != nil {
		return &model.NamespaceError{Op: "create collection " + collection, Namespace: schema, Err: err}
	}
	return nil
}

// CopyAllDocuments copies every document from src into dst, creating dst if needed.
// Documents already present in dst are left untouched. It returns the number copied.
func (n *Namespaces) CopyAllDocuments(ctx context.Context, srcSchema, srcCollection, dstSchema, dstCollection string) (int64, error) {
	if err := n.CreateCollection(ctx, dstSchema, dstCollection); err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, body, created_at)
		SELECT id, body, created_at FROM %s
		ON CONFLICT (id) DO NOTHING`, table(dstSchema, dstCollection), table(srcSchema, srcCollection))
	res, err := n.db.ExecContext(ctx, query)
	if err != nil {
		return 0, &model.NamespaceError{Op: "copy from " + srcCollection, Namespace: dstSchema, Err: err}
	}
	copied, err := res.RowsAffected()
	if err != nil {
		return 0, &model.NamespaceError{Op: "copy from " + srcCollection, Namespace: dstSchema, Err: err}
	}
	return copied, nil
}

// DropNamespace removes the schema and every collection version in it.
func (n *Namespaces) DropNamespace(ctx context.Context, schema string) error {
	_, err := n.db.ExecContext(ctx, `DROP SCHEMA IF EXISTS `+pq.QuoteIdentifier(schema)+` CASCADE`)
	if err != nil {
		return &model.NamespaceError{Op: "drop", Namespace: schema, Err: err}
	}
	return nil
}

func (n *Namespaces) InsertDocument(ctx context.Context, schema, collection string, doc *model.Document) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, body, created_at) VALUES ($1, $2, $3)`, table(schema, collection))
	if _, err := n.db.ExecContext(ctx, query, doc.ID, []byte(doc.Body), doc.CreatedAt); err != nil {
		return &model.NamespaceError{Op: "insert into " + collection, Namespace: schema, Err: err}
	}
	return nil
}

// ListDocuments retrieves documents using cursor-based pagination on id.
func (n *Namespaces) ListDocuments(ctx context.Context, schema, collection, cursor string, limit int) ([]model.Document, string, error) {
	query := fmt.Sprintf(`
		SELECT id, body, created_at
		FROM %s
		WHERE ($1::uuid IS NULL OR id > $1::uuid)
		ORDER BY id
		LIMIT $2`, table(schema, collection))

	var after any
	if cursor != "" {
		id, err := uuid.Parse(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("%w %q: %v", model.ErrInvalidCursor, cursor, err)
		}
		after = id
	}

	rows, err := n.db.QueryContext(ctx, query, after, limit)
	if err != nil {
		return nil, "", &model.NamespaceError{Op: "list " + collection, Namespace: schema, Err: err}
	}
	defer rows.Close()

	var docs []model.Document
	var lastID uuid.UUID
	for rows.Next() {
		var d model.Document
		var body []byte
		if err := rows.Scan(&d.ID, &body, &d.CreatedAt); err != nil {
			return nil, "", &model.NamespaceError{Op: "scan " + collection, Namespace: schema, Err: err}
		}
		d.Body = body
		lastID = d.ID
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, "", &model.NamespaceError{Op: "list " + collection, Namespace: schema, Err: err}
	}

	nextCursor := ""
	if len(docs) == limit {
		nextCursor = lastID.String()
	}
	return docs, nextCursor, nil
}
