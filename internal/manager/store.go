package manager

import (
	"context"

	"github.com/google/uuid"

	"tenant-registry/internal/model"
)

// Registry is the shared organization catalog. Reads return model.ErrNotFound when absent;
// inserts return *model.DuplicateKeyError when a unique index rejects the row.
type Registry interface {
	FindOrgByName(ctx context.Context, name string) (*model.Organization, error)
	FindOrgByID(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	FindOrgBySchema(ctx context.Context, schema string) (*model.Organization, error)
	InsertOrg(ctx context.Context, org *model.Organization) error
	UpdateOrgNamespace(ctx context.Context, orgID uuid.UUID, namespaceID string) error
	DeleteOrg(ctx context.Context, orgID uuid.UUID) error

	FindAdminByEmail(ctx context.Context, email string) (*model.AdminCredential, error)
	FindAdminByID(ctx context.Context, id uuid.UUID) (*model.AdminCredential, error)
	InsertAdmin(ctx context.Context, admin *model.AdminCredential) error
	UpdateAdminPassword(ctx context.Context, orgID uuid.UUID, email, hash string) (bool, error)
	RebindAdmin(ctx context.Context, orgID uuid.UUID, email, hash string) (bool, error)
	DeleteAdminsByOrg(ctx context.Context, orgID uuid.UUID) (int64, error)
}

// Namespaces is the tenant namespace store. Its failures are *model.NamespaceError.
type Namespaces interface {
	NamespaceExists(ctx context.Context, schema string) (bool, error)
	CreateNamespace(ctx context.Context, schema string) error
	DropNamespace(ctx context.Context, schema string) error
	CreateCollection(ctx context.Context, schema, collection string) error
	CopyAllDocuments(ctx context.Context, srcSchema, srcCollection, dstSchema, dstCollection string) (int64, error)
	InsertDocument(ctx context.Context, schema, collection string, doc *model.Document) error
	ListDocuments(ctx context.Context, schema, collection, cursor string, limit int) ([]model.Document, string, error)
}

// Notifier hands failed best-effort steps to the remediation workers.
type Notifier interface {
	Notify(ctx context.Context, task model.RemediationTask) error
}
