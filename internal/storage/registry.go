// internal/storage/registry.go
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tenant-registry/internal/model"
	"tenant-registry/internal/naming"
)

const uniqueViolation = pq.ErrorCode("23505")

var constraintKeys = map[string]model.UniqueKey{
	"organizations_organization_name_key": model.KeyOrganizationName,
	"organizations_namespace_schema_key":  model.KeyNamespace,
	"admin_users_email_key":               model.KeyEmail,
}

// Registry is the shared catalog of organizations and administrator credentials.
type Registry struct {
	db *sql.DB
}

func NewRegistry(db *sql.DB) *Registry {
	return &Registry{db: db}
}

func storeErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if key, ok := constraintKeys[pqErr.Constraint]; ok {
			return &model.DuplicateKeyError{Key: key}
		}
	}
	return &model.StoreError{Op: op, Err: err}
}

const orgColumns = `id, organization_name, namespace_id, admin_id, created_at`

func (r *Registry) findOrg(ctx context.Context, op, where string, arg any) (*model.Organization, error) {
	var org model.Organization
	err := r.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations WHERE `+where+` = $1`, arg).Scan(
		&org.ID,
		&org.Name,
		&org.NamespaceID,
		&org.AdminID,
		&org.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, storeErr(op, err)
	}
	return &org, nil
}

func (r *Registry) FindOrgByName(ctx context.Context, name string) (*model.Organization, error) {
	return r.findOrg(ctx, "find organization by name", "organization_name", name)
}

func (r *Registry) FindOrgByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	return r.findOrg(ctx, "find organization by id", "id", id)
}

// FindOrgBySchema returns the organization whose namespace, in any version, lives in schema.
func (r *Registry) FindOrgBySchema(ctx context.Context, schema string) (*model.Organization, error) {
	return r.findOrg(ctx, "find organization by schema", "namespace_schema", schema)
}

func (r *Registry) InsertOrg(ctx context.Context, org *model.Organization) error {
	ns, err := naming.Parse(org.NamespaceID)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, organization_name, namespace_id, namespace_schema, admin_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, org.ID, org.Name, org.NamespaceID, ns.Schema, org.AdminID, org.CreatedAt)
	if err != nil {
		return storeErr("insert organization", err)
	}
	return nil
}

func (r *Registry) UpdateOrgNamespace(ctx context.Context, orgID uuid.UUID, namespaceID string) error {
	ns, err := naming.Parse(namespaceID)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE organizations
		SET namespace_id = $1, namespace_schema = $2
		WHERE id = $3
	`, namespaceID, ns.Schema, orgID)
	if err != nil {
		return storeErr("update organization namespace", err)
	}
	return expectRow(res, "update organization namespace")
}

func (r *Registry) DeleteOrg(ctx context.Context, orgID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, orgID)
	if err != nil {
		return storeErr("delete organization", err)
	}
	return expectRow(res, "delete organization")
}

const adminColumns = `id, email, hashed_password, organization_id, created_at`

func (r *Registry) findAdmin(ctx context.Context, op, where string, arg any) (*model.AdminCredential, error) {
	var a model.AdminCredential
	err := r.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE `+where+` = $1`, arg).Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.OrganizationID,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, storeErr(op, err)
	}
	return &a, nil
}

func (r *Registry) FindAdminByEmail(ctx context.Context, email string) (*model.AdminCredential, error) {
	return r.findAdmin(ctx, "find admin by email", "email", email)
}

func (r *Registry) FindAdminByID(ctx context.Context, id uuid.UUID) (*model.AdminCredential, error) {
	return r.findAdmin(ctx, "find admin by id", "id", id)
}

func (r *Registry) InsertAdmin(ctx context.Context, a *model.AdminCredential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_users (id, email, hashed_password, organization_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.Email, a.PasswordHash, a.OrganizationID, a.CreatedAt)
	if err != nil {
		return storeErr("insert admin", err)
	}
	return nil
}

// UpdateAdminPassword replaces the hash of the credential matching (orgID, email).
// It reports whether any credential matched.
func (r *Registry) UpdateAdminPassword(ctx context.Context, orgID uuid.UUID, email, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE admin_users
		SET hashed_password = $1
		WHERE organization_id = $2 AND email = $3
	`, hash, orgID, email)
	if err != nil {
		return false, storeErr("update admin password", err)
	}
	return affected(res, "update admin password")
}

// RebindAdmin moves the organization's administrator credential to a new email and hash.
func (r *Registry) RebindAdmin(ctx context.Context, orgID uuid.UUID, email, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE admin_users
		SET email = $1, hashed_password = $2
		WHERE organization_id = $3
	`, email, hash, orgID)
	if err != nil {
		return false, storeErr("rebind admin", err)
	}
	return affected(res, "rebind admin")
}

func (r *Registry) DeleteAdminsByOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admin_users WHERE organization_id = $1`, orgID)
	if err != nil {
		return 0, storeErr("delete admins", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("delete admins", err)
	}
	return n, nil
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(op, err)
	}
	return n > 0, nil
}

func expectRow(res sql.Result, op string) error {
	ok, err := affected(res, op)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrNotFound
	}
	return nil
}
