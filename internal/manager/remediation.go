package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"tenant-registry/internal/metrics"
	"tenant-registry/internal/model"
	"tenant-registry/internal/naming"
)

// Remediator re-runs failed best-effort steps once the registry confirms they still apply.
type Remediator struct {
	registry   Registry
	namespaces Namespaces
	logger     *slog.Logger
}

func NewRemediator(registry Registry, namespaces Namespaces, logger *slog.Logger) *Remediator {
	return &Remediator{registry: registry, namespaces: namespaces, logger: logger}
}

// HandleMessage decodes a queued task and handles it.
func (r *Remediator) HandleMessage(ctx context.Context, body []byte) error {
	var task model.RemediationTask
	if err := json.Unmarshal(body, &task); err != nil {
		metrics.RemediationProcessed.WithLabelValues("unknown", "failed").Inc()
		return fmt.Errorf("decode remediation task: %w", err)
	}
	return r.Handle(ctx, task)
}

func (r *Remediator) Handle(ctx context.Context, task model.RemediationTask) error {
	applied, err := r.handle(ctx, task)
	outcome := "applied"
	switch {
	case err != nil:
		outcome = "failed"
	case !applied:
		outcome = "skipped"
	}
	metrics.RemediationProcessed.WithLabelValues(string(task.Kind), outcome).Inc()

	log := r.logger.With("task_id", task.ID, "kind", task.Kind, "organization", task.OrganizationName, "namespace", task.NamespaceID)
	if err != nil {
		log.Error("remediation failed", "attempt", task.Attempt, "error", err)
		return err
	}
	log.Info("remediation done", "outcome", outcome)
	return nil
}

func (r *Remediator) handle(ctx context.Context, task model.RemediationTask) (bool, error) {
	target, err := naming.Parse(task.NamespaceID)
	if err != nil {
		return false, err
	}

	switch task.Kind {
	case model.TaskCreateNamespace:
		org, err := r.owner(ctx, task)
		if org == nil || err != nil {
			return false, err
		}
		active, err := naming.Parse(org.NamespaceID)
		if err != nil || active.Schema != target.Schema {
			return false, err
		}
		if err := r.namespaces.CreateNamespace(ctx, active.Schema); err != nil {
			return false, err
		}
		return true, r.namespaces.CreateCollection(ctx, active.Schema, active.Collection())

	case model.TaskCopyDocuments:
		org, err := r.owner(ctx, task)
		if org == nil || err != nil {
			return false, err
		}
		if org.NamespaceID != target.ID() {
			return false, nil
		}
		src, err := naming.Parse(task.SourceNamespaceID)
		if err != nil {
			return false, err
		}
		if err := r.namespaces.CreateNamespace(ctx, target.Schema); err != nil {
			return false, err
		}
		_, err = r.namespaces.CopyAllDocuments(ctx, src.Schema, src.Collection(), target.Schema, target.Collection())
		return err == nil, err

	case model.TaskDropNamespace:
		// A new organization may have claimed the schema since the delete.
		_, err := r.registry.FindOrgBySchema(ctx, target.Schema)
		switch {
		case err == nil:
			return false, nil
		case !errors.Is(err, model.ErrNotFound):
			return false, err
		}
		return true, r.namespaces.DropNamespace(ctx, target.Schema)
	}

	return false, fmt.Errorf("unknown remediation task kind %q", task.Kind)
}

// owner returns the organization the task was raised for, or nil if it no longer exists.
func (r *Remediator) owner(ctx context.Context, task model.RemediationTask) (*model.Organization, error) {
	org, err := r.registry.FindOrgByID(ctx, task.OrganizationID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	return org, err
}
