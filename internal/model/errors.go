// internal/model/errors.go
package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidName        = errors.New("invalid organization name")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("organization belongs to another tenant")
	ErrStoreFailure       = errors.New("registry store failure")
	ErrNamespaceFailure   = errors.New("tenant namespace failure")
	ErrInvalidCursor      = errors.New("invalid cursor")
)

// UniqueKey names the registry unique index that rejected a write.
type UniqueKey string

const (
	KeyOrganizationName UniqueKey = "organization_name"
	KeyEmail            UniqueKey = "email"
	KeyNamespace        UniqueKey = "namespace"
)

// DuplicateKeyError is returned by registry inserts that violate a unique index.
type DuplicateKeyError struct {
	Key UniqueKey
}

func (e *DuplicateKeyError) Error() string {
	switch e.Key {
	case KeyOrganizationName:
		return "organization already exists"
	case KeyEmail:
		return "email already registered"
	case KeyNamespace:
		return "organization namespace already taken"
	}
	return "duplicate key"
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// StoreError wraps a registry I/O failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("registry %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }

// NamespaceError wraps a tenant namespace I/O failure.
type NamespaceError struct {
	Op        string
	Namespace string
	Err       error
}

func (e *NamespaceError) Error() string {
	return fmt.Sprintf("namespace %s %s: %v", e.Namespace, e.Op, e.Err)
}

func (e *NamespaceError) Unwrap() error { return e.Err }

func (e *NamespaceError) Is(target error) bool { return target == ErrNamespaceFailure }

// Warning reports a best-effort step that failed after the operation's durable writes succeeded.
type Warning struct {
	Step      string `json:"step"`
	Namespace string `json:"namespace,omitempty"`
	// Queued is set when the step was handed to the remediation workers.
	Queued bool  `json:"queued"`
	Err    error `json:"-"`
}

func (w Warning) Error() string {
	if w.Namespace == "" {
		return fmt.Sprintf("%s: %v", w.Step, w.Err)
	}
	return fmt.Sprintf("%s (%s): %v", w.Step, w.Namespace, w.Err)
}
