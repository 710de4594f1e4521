// internal/model/document.go
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document is a single record inside a tenant collection.
type Document struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Body      json.RawMessage `db:"body" json:"body"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
