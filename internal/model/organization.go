// internal/model/organization.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant record in the shared registry.
// NamespaceID always names the currently active namespace version.
type Organization struct {
	ID          uuid.UUID `db:"id" json:"organization_id"`
	Name        string    `db:"organization_name" json:"organization_name"`
	NamespaceID string    `db:"namespace_id" json:"collection_name"`
	AdminID     uuid.UUID `db:"admin_id" json:"admin_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AdminCredential is the administrator login owned by exactly one organization.
type AdminCredential struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	PasswordHash   string    `db:"hashed_password"`
	OrganizationID uuid.UUID `db:"organization_id"`
	CreatedAt      time.Time `db:"created_at"`
}

// Identity is what a successful login resolves to. The routing layer encodes it into a token.
type Identity struct {
	AdminID          uuid.UUID `json:"admin_id"`
	OrganizationID   uuid.UUID `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	Email            string    `json:"email"`
}
