// internal/manager/tenant_manager.go
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tenant-registry/internal/auth"
	"tenant-registry/internal/lock"
	"tenant-registry/internal/metrics"
	"tenant-registry/internal/model"
	"tenant-registry/internal/naming"
)

const (
	StepCreateNamespace  = "create_namespace"
	StepCopyDocuments    = "copy_documents"
	StepUpdateCredential = "update_credential"
	StepDropNamespace    = "drop_namespace"
)

const (
	DefaultDocumentLimit = 10
	MaxDocumentLimit     = 100
)

// Result is a completed provisioning operation. Warnings list best-effort steps
// that failed without undoing the registry writes.
type Result struct {
	Organization *model.Organization
	Warnings     []model.Warning
}

// TenantManager runs the create, update and delete sagas across the registry and
// the tenant namespace store. Only the *Owned variants check the caller's organization.
type TenantManager struct {
	registry   Registry
	namespaces Namespaces
	hasher     auth.PasswordHasher
	locker     lock.Locker
	notifier   Notifier
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*TenantManager)

func WithLocker(l lock.Locker) Option {
	return func(tm *TenantManager) { tm.locker = l }
}

func WithNotifier(n Notifier) Option {
	return func(tm *TenantManager) { tm.notifier = n }
}

func NewTenantManager(
	registry Registry,
	namespaces Namespaces,
	hasher auth.PasswordHasher,
	logger *slog.Logger,
	opts ...Option,
) *TenantManager {
	tm := &TenantManager{
		registry:   registry,
		namespaces: namespaces,
		hasher:     hasher,
		locker:     lock.NewLocal(),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// lockKey maps an organization name onto the schema it owns, so names that
// derive the same schema serialize against each other.
func lockKey(name string) string {
	if schema, err := naming.Derive(name); err == nil {
		return schema
	}
	return name
}

func (tm *TenantManager) lock(ctx context.Context, key string) (func(), error) {
	unlock, err := tm.locker.Lock(ctx, key)
	if err != nil {
		return nil, &model.StoreError{Op: "acquire organization lock", Err: err}
	}
	return unlock, nil
}

func (tm *TenantManager) timestamp() time.Time {
	return tm.now().UTC().Truncate(time.Microsecond)
}

// Create registers the organization and its administrator, then provisions the
// tenant namespace. A namespace failure is returned as a warning.
func (tm *TenantManager) Create(ctx context.Context, name, email, password string) (res *Result, err error) {
	defer func() { observe("create", res, err) }()

	if !naming.Validate(name) {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidName, name)
	}
	ns, err := naming.New(name)
	if err != nil {
		return nil, err
	}
	email = auth.NormalizeEmail(email)

	unlock, err := tm.lock(ctx, ns.Schema)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := tm.registry.FindOrgByName(ctx, name); err == nil {
		return nil, &model.DuplicateKeyError{Key: model.KeyOrganizationName}
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	if _, err := tm.registry.FindAdminByEmail(ctx, email); err == nil {
		return nil, &model.DuplicateKeyError{Key: model.KeyEmail}
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	if err := tm.reclaim(ctx, ns); err != nil {
		return nil, err
	}

	hash, err := tm.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := tm.timestamp()
	org := &model.Organization{
		ID:          uuid.New(),
		Name:        name,
		NamespaceID: ns.ID(),
		AdminID:     uuid.New(),
		CreatedAt:   now,
	}
	admin := &model.AdminCredential{
		ID:             org.AdminID,
		Email:          email,
		PasswordHash:   hash,
		OrganizationID: org.ID,
		CreatedAt:      now,
	}

	// The unique indexes are the only guard against a concurrent create on another replica.
	if err := tm.registry.InsertOrg(ctx, org); err != nil {
		return nil, err
	}
	if err := tm.registry.InsertAdmin(ctx, admin); err != nil {
		return nil, tm.removeOrphan(ctx, org, err)
	}

	res = &Result{Organization: org}
	if err := tm.provision(ctx, ns, ns); err != nil {
		tm.warn(ctx, res, "create", model.Warning{Step: StepCreateNamespace, Namespace: ns.ID(), Err: err},
			model.TaskCreateNamespace, "")
	}

	tm.logger.Info("organization created", "organization", name, "organization_id", org.ID, "namespace", ns.ID())
	return res, nil
}

// reclaim makes sure ns.Schema is unowned and empty before a new organization
// takes it. A schema left behind by a failed drop is removed here.
func (tm *TenantManager) reclaim(ctx context.Context, ns naming.Namespace) error {
	if _, err := tm.registry.FindOrgBySchema(ctx, ns.Schema); err == nil {
		return &model.DuplicateKeyError{Key: model.KeyNamespace}
	} else if !errors.Is(err, model.ErrNotFound) {
		return err
	}

	exists, err := tm.namespaces.NamespaceExists(ctx, ns.Schema)
	if err != nil || !exists {
		return err
	}
	if err := tm.namespaces.DropNamespace(ctx, ns.Schema); err != nil {
		tm.logger.Error("leftover namespace could not be dropped", "namespace", ns.Schema, "error", err)
		return err
	}
	tm.logger.Warn("dropped leftover namespace before reuse", "namespace", ns.Schema)
	return nil
}

// removeOrphan deletes an organization whose administrator insert failed.
func (tm *TenantManager) removeOrphan(ctx context.Context, org *model.Organization, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := tm.registry.DeleteOrg(ctx, org.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
		tm.logger.Error("failed to remove orphaned organization",
			"organization", org.Name, "organization_id", org.ID, "error", err)
		return fmt.Errorf("%w (orphaned organization %s left in registry: %v)", cause, org.ID, err)
	}
	tm.logger.Warn("removed orphaned organization after admin insert failed",
		"organization", org.Name, "organization_id", org.ID, "cause", cause)
	return cause
}

// provision makes sure target's schema and collection exist, copying from src when it differs.
func (tm *TenantManager) provision(ctx context.Context, src, target naming.Namespace) error {
	if err := tm.namespaces.CreateNamespace(ctx, target.Schema); err != nil {
		return err
	}
	if err := tm.namespaces.CreateCollection(ctx, target.Schema, target.Collection()); err != nil {
		return err
	}
	if src == target {
		return nil
	}
	copied, err := tm.namespaces.CopyAllDocuments(ctx, src.Schema, src.Collection(), target.Schema, target.Collection())
	if err != nil {
		return err
	}
	tm.logger.Info("documents migrated", "from", src.ID(), "to", target.ID(), "count", copied)
	return nil
}

func (tm *TenantManager) Get(ctx context.Context, name string) (*model.Organization, error) {
	return tm.registry.FindOrgByName(ctx, name)
}

// checkOwner rejects org when owner is set and differs from it.
func checkOwner(org *model.Organization, owner uuid.UUID) error {
	if owner != uuid.Nil && org.ID != owner {
		return fmt.Errorf("%w: %q", model.ErrForbidden, org.Name)
	}
	return nil
}

// Update migrates the organization to a new namespace version and replaces its
// administrator credential. A failed document copy does not stop the repoint.
func (tm *TenantManager) Update(ctx context.Context, name, email, password string) (*Result, error) {
	return tm.update(ctx, uuid.Nil, name, email, password)
}

// UpdateOwned is Update on behalf of the organization with ID owner. It fails with
// model.ErrForbidden when name now belongs to another organization.
func (tm *TenantManager) UpdateOwned(ctx context.Context, owner uuid.UUID, name, email, password string) (*Result, error) {
	return tm.update(ctx, owner, name, email, password)
}

func (tm *TenantManager) update(ctx context.Context, owner uuid.UUID, name, email, password string) (res *Result, err error) {
	defer func() { observe("update", res, err) }()

	email = auth.NormalizeEmail(email)

	unlock, err := tm.lock(ctx, lockKey(name))
	if err != nil {
		return nil, err
	}
	defer unlock()

	org, err := tm.registry.FindOrgByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(org, owner); err != nil {
		return nil, err
	}
	current, err := naming.Parse(org.NamespaceID)
	if err != nil {
		return nil, &model.StoreError{Op: "read organization namespace", Err: err}
	}

	holder, err := tm.registry.FindAdminByEmail(ctx, email)
	switch {
	case err == nil && holder.OrganizationID != org.ID:
		return nil, &model.DuplicateKeyError{Key: model.KeyEmail}
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return nil, err
	}

	hash, err := tm.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	next := current.Next()
	res = &Result{Organization: org}
	if err := tm.provision(ctx, current, next); err != nil {
		tm.warn(ctx, res, "update", model.Warning{Step: StepCopyDocuments, Namespace: next.ID(), Err: err},
			model.TaskCopyDocuments, current.ID())
	}

	if err := tm.registry.UpdateOrgNamespace(ctx, org.ID, next.ID()); err != nil {
		return nil, err
	}
	org.NamespaceID = next.ID()

	matched, err := tm.registry.UpdateAdminPassword(ctx, org.ID, email, hash)
	if err != nil {
		tm.logger.Error("namespace repointed but credential update failed",
			"organization", name, "namespace", next.ID(), "error", err)
		return nil, err
	}
	if !matched {
		// One administrator per organization: a new email replaces the old one.
		matched, err = tm.registry.RebindAdmin(ctx, org.ID, email, hash)
		if err != nil {
			tm.logger.Error("namespace repointed but credential rebind failed",
				"organization", name, "namespace", next.ID(), "error", err)
			return nil, err
		}
	}
	if !matched {
		tm.warn(ctx, res, "update", model.Warning{
			Step: StepUpdateCredential,
			Err:  fmt.Errorf("%w: no administrator credential for organization %s", model.ErrNotFound, org.ID),
		}, "", "")
	}

	tm.logger.Info("organization updated", "organization", name, "from", current.ID(), "to", next.ID())
	return res, nil
}

// Delete removes the registry records, then drops the tenant namespace. A failed
// drop leaves an orphaned namespace and is returned as a warning.
func (tm *TenantManager) Delete(ctx context.Context, name string) (*Result, error) {
	return tm.delete(ctx, uuid.Nil, name)
}

// DeleteOwned is Delete on behalf of the organization with ID owner.
func (tm *TenantManager) DeleteOwned(ctx context.Context, owner uuid.UUID, name string) (*Result, error) {
	return tm.delete(ctx, owner, name)
}

func (tm *TenantManager) delete(ctx context.Context, owner uuid.UUID, name string) (res *Result, err error) {
	defer func() { observe("delete", res, err) }()

	unlock, err := tm.lock(ctx, lockKey(name))
	if err != nil {
		return nil, err
	}
	defer unlock()

	org, err := tm.registry.FindOrgByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(org, owner); err != nil {
		return nil, err
	}

	removed, err := tm.registry.DeleteAdminsByOrg(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	if err := tm.registry.DeleteOrg(ctx, org.ID); err != nil {
		return nil, err
	}

	res = &Result{Organization: org}
	ns, err := naming.Parse(org.NamespaceID)
	if err != nil {
		// A retry would fail the same parse, so nothing is queued.
		tm.warn(ctx, res, "delete", model.Warning{
			Step:      StepDropNamespace,
			Namespace: org.NamespaceID,
			Err:       &model.NamespaceError{Op: "drop", Namespace: org.NamespaceID, Err: err},
		}, "", "")
	} else if err := tm.namespaces.DropNamespace(ctx, ns.Schema); err != nil {
		tm.warn(ctx, res, "delete", model.Warning{Step: StepDropNamespace, Namespace: org.NamespaceID, Err: err},
			model.TaskDropNamespace, "")
	}

	tm.logger.Info("organization deleted", "organization", name, "organization_id", org.ID, "admins_removed", removed)
	return res, nil
}

func (tm *TenantManager) active(ctx context.Context, orgID uuid.UUID) (naming.Namespace, error) {
	org, err := tm.registry.FindOrgByID(ctx, orgID)
	if err != nil {
		return naming.Namespace{}, err
	}
	ns, err := naming.Parse(org.NamespaceID)
	if err != nil {
		return naming.Namespace{}, &model.StoreError{Op: "read organization namespace", Err: err}
	}
	return ns, nil
}

// PutDocument stores body in the active collection of the organization with ID orgID.
func (tm *TenantManager) PutDocument(ctx context.Context, orgID uuid.UUID, body json.RawMessage) (*model.Document, error) {
	org, err := tm.registry.FindOrgByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	unlock, err := tm.lock(ctx, lockKey(org.Name))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Re-read under the lock: an update may have repointed the namespace.
	ns, err := tm.active(ctx, orgID)
	if err != nil {
		return nil, err
	}
	doc := &model.Document{ID: uuid.New(), Body: body, CreatedAt: tm.timestamp()}
	if err := tm.namespaces.InsertDocument(ctx, ns.Schema, ns.Collection(), doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments pages through the active collection of the organization with ID
// orgID. limit is clamped to (0, MaxDocumentLimit]; zero or less means DefaultDocumentLimit.
func (tm *TenantManager) ListDocuments(ctx context.Context, orgID uuid.UUID, cursor string, limit int) ([]model.Document, string, error) {
	switch {
	case limit <= 0:
		limit = DefaultDocumentLimit
	case limit > MaxDocumentLimit:
		limit = MaxDocumentLimit
	}
	ns, err := tm.active(ctx, orgID)
	if err != nil {
		return nil, "", err
	}
	return tm.namespaces.ListDocuments(ctx, ns.Schema, ns.Collection(), cursor, limit)
}

func (tm *TenantManager) warn(ctx context.Context, res *Result, op string, w model.Warning, kind model.TaskKind, source string) {
	if kind != "" && tm.notifier != nil {
		task := model.RemediationTask{
			ID:                uuid.New(),
			Kind:              kind,
			NamespaceID:       w.Namespace,
			SourceNamespaceID: source,
			CreatedAt:         tm.timestamp(),
		}
		if res.Organization != nil {
			task.OrganizationID = res.Organization.ID
			task.OrganizationName = res.Organization.Name
		}
		if err := tm.notifier.Notify(ctx, task); err != nil {
			tm.logger.Error("failed to queue remediation", "operation", op, "step", w.Step, "error", err)
		} else {
			w.Queued = true
		}
	}

	res.Warnings = append(res.Warnings, w)
	metrics.ProvisioningWarnings.WithLabelValues(op, w.Step).Inc()
	tm.logger.Warn("best-effort step failed",
		"operation", op, "step", w.Step, "namespace", w.Namespace, "queued", w.Queued, "error", w.Err)
}

func observe(op string, res *Result, err error) {
	outcome := "success"
	switch {
	case errors.Is(err, model.ErrInvalidName):
		outcome = "invalid_name"
	case errors.Is(err, model.ErrAlreadyExists):
		outcome = "already_exists"
	case errors.Is(err, model.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, model.ErrForbidden):
		outcome = "forbidden"
	case err != nil:
		outcome = "failure"
	case res != nil && len(res.Warnings) > 0:
		outcome = "success_with_warnings"
	}
	metrics.ProvisioningOperations.WithLabelValues(op, outcome).Inc()
}
