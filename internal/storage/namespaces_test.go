package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-registry/internal/model"
)

func newMockNamespaces(t *testing.T) (*Namespaces, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewNamespaces(db), mock
}

func TestNamespaces_CreateAndDrop(t *testing.T) {
	ctx := context.Background()
	ns, mock := newMockNamespaces(t)

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "org_acme"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "org_acme"\."data"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP SCHEMA IF EXISTS "org_acme" CASCADE`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, ns.CreateNamespace(ctx, "org_acme"))
	require.NoError(t, ns.CreateCollection(ctx, "org_acme", "data"))
	require.NoError(t, ns.DropNamespace(ctx, "org_acme"))
}

func TestNamespaces_NamespaceExists(t *testing.T) {
	ctx := context.Background()
	ns, mock := newMockNamespaces(t)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM pg_namespace WHERE nspname = \$1\)`).
		WithArgs("org_acme").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`FROM pg_namespace`).
		WithArgs("org_gone").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`FROM pg_namespace`).WillReturnError(errDB)

	exists, err := ns.NamespaceExists(ctx, "org_acme")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = ns.NamespaceExists(ctx, "org_gone")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = ns.NamespaceExists(ctx, "org_acme")
	assert.ErrorIs(t, err, model.ErrNamespaceFailure)
}

func TestNamespaces_FailuresAreNamespaceErrors(t *testing.T) {
	ns, mock := newMockNamespaces(t)
	mock.ExpectExec("CREATE SCHEMA").WillReturnError(errDB)

	err := ns.CreateNamespace(context.Background(), "org_acme")
	assert.ErrorIs(t, err, model.ErrNamespaceFailure)
	assert.NotErrorIs(t, err, model.ErrStoreFailure)
}

func TestNamespaces_CopyAllDocuments(t *testing.T) {
	ns, mock := newMockNamespaces(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "org_acme"\."data_v2"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "org_acme"\."data_v2" .*FROM "org_acme"\."data"\s+ON CONFLICT`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := ns.CopyAllDocuments(context.Background(), "org_acme", "data", "org_acme", "data_v2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestNamespaces_ListDocuments(t *testing.T) {
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()
	now := time.Now().UTC()

	t.Run("full page yields cursor", func(t *testing.T) {
		ns, mock := newMockNamespaces(t)
		mock.ExpectQuery(`FROM "org_acme"\."data"`).
			WithArgs(nil, 2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "body", "created_at"}).
				AddRow(first.String(), []byte(`{"a":1}`), now).
				AddRow(second.String(), []byte(`{"a":2}`), now))

		docs, next, err := ns.ListDocuments(ctx, "org_acme", "data", "", 2)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.JSONEq(t, `{"a":2}`, string(docs[1].Body))
		assert.Equal(t, second.String(), next)
	})

	t.Run("short page ends", func(t *testing.T) {
		ns, mock := newMockNamespaces(t)
		mock.ExpectQuery(`FROM "org_acme"\."data_v2"`).
			WithArgs(first, 10).
			WillReturnRows(sqlmock.NewRows([]string{"id", "body", "created_at"}).
				AddRow(second.String(), []byte(`{}`), now))

		docs, next, err := ns.ListDocuments(ctx, "org_acme", "data_v2", first.String(), 10)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
		assert.Empty(t, next)
	})

	t.Run("bad cursor", func(t *testing.T) {
		ns, _ := newMockNamespaces(t)
		_, _, err := ns.ListDocuments(ctx, "org_acme", "data", "not-a-uuid", 10)
		assert.ErrorIs(t, err, model.ErrInvalidCursor)
	})
}

func TestNamespaces_InsertDocument(t *testing.T) {
	ns, mock := newMockNamespaces(t)
	doc := &model.Document{ID: uuid.New(), Body: json.RawMessage(`{"k":"v"}`), CreatedAt: time.Now()}
	mock.ExpectExec(`INSERT INTO "org_acme"\."data"`).
		WithArgs(doc.ID, []byte(`{"k":"v"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, ns.InsertDocument(context.Background(), "org_acme", "data", doc))
}
