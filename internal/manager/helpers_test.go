package manager

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tenant-registry/internal/auth"
	"tenant-registry/internal/model"
	"tenant-registry/internal/storage/memstore"
)

var errDisk = errors.New("disk full")

// faultyStore wraps the in-memory store, counts writes, and fails chosen steps.
type faultyStore struct {
	*memstore.Store
	writes atomic.Int32

	createNamespaceErr error
	copyErr            error
	dropErr            error
	insertAdminErr     error

	// beforeDrop, when set, runs at the start of every DropNamespace.
	beforeDrop func(schema string)
	// storedNamespace, when set, replaces NamespaceID on organizations read by name.
	storedNamespace string
}

func (f *faultyStore) write() { f.writes.Add(1) }

func (f *faultyStore) FindOrgByName(ctx context.Context, name string) (*model.Organization, error) {
	org, err := f.Store.FindOrgByName(ctx, name)
	if err == nil && f.storedNamespace != "" {
		org.NamespaceID = f.storedNamespace
	}
	return org, err
}

func (f *faultyStore) InsertOrg(ctx context.Context, org *model.Organization) error {
	f.write()
	return f.Store.InsertOrg(ctx, org)
}

func (f *faultyStore) UpdateOrgNamespace(ctx context.Context, id uuid.UUID, ns string) error {
	f.write()
	return f.Store.UpdateOrgNamespace(ctx, id, ns)
}

func (f *faultyStore) DeleteOrg(ctx context.Context, id uuid.UUID) error {
	f.write()
	return f.Store.DeleteOrg(ctx, id)
}

func (f *faultyStore) InsertAdmin(ctx context.Context, a *model.AdminCredential) error {
	f.write()
	if f.insertAdminErr != nil {
		return f.insertAdminErr
	}
	return f.Store.InsertAdmin(ctx, a)
}

func (f *faultyStore) UpdateAdminPassword(ctx context.Context, id uuid.UUID, email, hash string) (bool, error) {
	f.write()
	return f.Store.UpdateAdminPassword(ctx, id, email, hash)
}

func (f *faultyStore) RebindAdmin(ctx context.Context, id uuid.UUID, email, hash string) (bool, error) {
	f.write()
	return f.Store.RebindAdmin(ctx, id, email, hash)
}

func (f *faultyStore) DeleteAdminsByOrg(ctx context.Context, id uuid.UUID) (int64, error) {
	f.write()
	return f.Store.DeleteAdminsByOrg(ctx, id)
}

func (f *faultyStore) CreateNamespace(ctx context.Context, schema string) error {
	f.write()
	if f.createNamespaceErr != nil {
		return &model.NamespaceError{Op: "create", Namespace: schema, Err: f.createNamespaceErr}
	}
	return f.Store.CreateNamespace(ctx, schema)
}

func (f *faultyStore) CopyAllDocuments(ctx context.Context, ss, sc, ds, dc string) (int64, error) {
	f.write()
	if f.copyErr != nil {
		return 0, &model.NamespaceError{Op: "copy", Namespace: ds, Err: f.copyErr}
	}
	return f.Store.CopyAllDocuments(ctx, ss, sc, ds, dc)
}

func (f *faultyStore) DropNamespace(ctx context.Context, schema string) error {
	f.write()
	if f.beforeDrop != nil {
		f.beforeDrop(schema)
	}
	if f.dropErr != nil {
		return &model.NamespaceError{Op: "drop", Namespace: schema, Err: f.dropErr}
	}
	return f.Store.DropNamespace(ctx, schema)
}

// orgID returns the ID of the organization currently registered under name.
func (f *fixture) orgID(t *testing.T, name string) uuid.UUID {
	t.Helper()
	org, err := f.store.Store.FindOrgByName(context.Background(), name)
	require.NoError(t, err)
	return org.ID
}

type recordingNotifier struct {
	mu    sync.Mutex
	tasks []model.RemediationTask
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, task model.RemediationTask) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.tasks = append(n.tasks, task)
	return nil
}

type noLock struct{}

func (noLock) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type fixture struct {
	tm       *TenantManager
	store    *faultyStore
	notifier *recordingNotifier
	creds    *auth.CredentialService
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher := auth.NewBcrypt(bcrypt.MinCost)
	store := &faultyStore{Store: memstore.New()}
	notifier := &recordingNotifier{}

	creds, err := auth.NewCredentialService(store, hasher, logger)
	require.NoError(t, err)

	opts = append([]Option{WithNotifier(notifier)}, opts...)
	return &fixture{
		tm:       NewTenantManager(store, store, hasher, logger, opts...),
		store:    store,
		notifier: notifier,
		creds:    creds,
	}
}
