// internal/model/task.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type TaskKind string

const (
	TaskCreateNamespace TaskKind = "create_namespace"
	TaskCopyDocuments   TaskKind = "copy_documents"
	TaskDropNamespace   TaskKind = "drop_namespace"
)

// RemediationTask asks a worker to re-run a best-effort provisioning step that failed.
type RemediationTask struct {
	ID                uuid.UUID `json:"id"`
	Kind              TaskKind  `json:"kind"`
	OrganizationID    uuid.UUID `json:"organization_id"`
	OrganizationName  string    `json:"organization_name"`
	NamespaceID       string    `json:"namespace_id"`
	SourceNamespaceID string    `json:"source_namespace_id,omitempty"`
	Attempt           int       `json:"attempt"`
	CreatedAt         time.Time `json:"created_at"`
}
