package manager

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-registry/internal/model"
)

func newRemediator(f *fixture) *Remediator {
	return NewRemediator(f.store, f.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRemediator_CreateNamespace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.createNamespaceErr = errDisk
	res, err := f.tm.Create(ctx, "Acme", "a@x.com", "pw12345678")
	require.NoError(t, err)
	require.Len(t, f.notifier.tasks, 1)
	assert.False(t, f.store.HasNamespace("org_acme"))

	f.store.createNamespaceErr = nil
	body, err := json.Marshal(f.notifier.tasks[0])
	require.NoError(t, err)
	require.NoError(t, newRemediator(f).HandleMessage(ctx, body))

	assert.True(t, f.store.HasNamespace("org_acme"))
	assert.Equal(t, []string{"data"}, f.store.Collections("org_acme"))
	_, err = f.tm.PutDocument(ctx, res.Organization.ID, json.RawMessage(`{}`))
	assert.NoError(t, err)
}

func TestRemediator_SkipsObsoleteTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := newRemediator(f)

	t.Run("organization gone", func(t *testing.T) {
		err := r.Handle(ctx, model.RemediationTask{ID: uuid.New(), Kind: model.TaskCreateNamespace,
			OrganizationID: uuid.New(), NamespaceID: "org_ghost"})
		require.NoError(t, err)
		assert.False(t, f.store.HasNamespace("org_ghost"))
	})

	t.Run("schema reclaimed before drop", func(t *testing.T) {
		_, err := f.tm.Create(ctx, "Acme", "a@x.com", "pw12345678")
		require.NoError(t, err)

		err = r.Handle(ctx, model.RemediationTask{ID: uuid.New(), Kind: model.TaskDropNamespace,
			OrganizationID: uuid.New(), NamespaceID: "org_acme"})
		require.NoError(t, err)
		assert.True(t, f.store.HasNamespace("org_acme"))
	})

	t.Run("copy superseded by later update", func(t *testing.T) {
		org, err := f.tm.Get(ctx, "Acme")
		require.NoError(t, err)

		err = r.Handle(ctx, model.RemediationTask{ID: uuid.New(), Kind: model.TaskCopyDocuments,
			OrganizationID: org.ID, NamespaceID: "org_acme__v5", SourceNamespaceID: "org_acme"})
		require.NoError(t, err)
		assert.NotContains(t, f.store.Collections("org_acme"), "data_v5")
	})
}

func TestRemediator_CopyAndDrop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := newRemediator(f)

	created, err := f.tm.Create(ctx, "Acme", "a@x.com", "pw12345678")
	require.NoError(t, err)
	id := created.Organization.ID
	_, err = f.tm.PutDocument(ctx, id, json.RawMessage(`{"keep":true}`))
	require.NoError(t, err)

	f.store.copyErr = errDisk
	_, err = f.tm.Update(ctx, "Acme", "a@x.com", "pw12345678")
	require.NoError(t, err)
	docs, _, err := f.tm.ListDocuments(ctx, id, "", 10)
	require.NoError(t, err)
	assert.Empty(t, docs, "copy failed, new version starts empty")

	f.store.copyErr = nil
	require.Len(t, f.notifier.tasks, 1)
	require.NoError(t, r.Handle(ctx, f.notifier.tasks[0]))
	docs, _, err = f.tm.ListDocuments(ctx, id, "", 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	f.store.dropErr = errDisk
	_, err = f.tm.Delete(ctx, "Acme")
	require.NoError(t, err)
	f.store.dropErr = nil
	require.Len(t, f.notifier.tasks, 2)
	require.NoError(t, r.Handle(ctx, f.notifier.tasks[1]))
	assert.False(t, f.store.HasNamespace("org_acme"))
}

func TestRemediator_RejectsBadTasks(t *testing.T) {
	f := newFixture(t)
	r := newRemediator(f)
	ctx := context.Background()

	assert.Error(t, r.HandleMessage(ctx, []byte("not json")))
	assert.Error(t, r.Handle(ctx, model.RemediationTask{Kind: "bogus", NamespaceID: "org_acme"}))
	assert.ErrorIs(t, r.Handle(ctx, model.RemediationTask{Kind: model.TaskDropNamespace, NamespaceID: "bad id"}), model.ErrInvalidName)
}
