// Package naming derives tenant namespace identifiers from organization names.
// It is the only place that builds or parses those identifiers.
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"tenant-registry/internal/model"
)

const (
	// Prefix marks every tenant namespace.
	Prefix = "org_"

	// DefaultCollection holds the tenant's data in version 1 of its namespace.
	DefaultCollection = "data"

	// PostgreSQL truncates identifiers at 63 bytes. Leaving room for "__v" plus
	// eight version digits keeps every versioned identifier under that limit.
	maxSchemaLen = 52

	versionMarker = "__v"
)

var (
	validName    = regexp.MustCompile(`^[A-Za-z0-9 _-]{1,100}$`)
	invalidChars = regexp.MustCompile(`[^a-z0-9_]`)
	underscores  = regexp.MustCompile(`_+`)
	derivedName  = regexp.MustCompile(`^org_[a-z0-9]+(_[a-z0-9]+)*$`)
)

// Validate reports whether raw is an acceptable organization display name.
func Validate(raw string) bool {
	return validName.MatchString(raw)
}

func sanitize(raw string) string {
	s := invalidChars.ReplaceAllString(strings.ToLower(raw), "_")
	s = strings.Trim(s, "_")
	return underscores.ReplaceAllString(s, "_")
}

// Derive maps an organization name to its schema identifier. Applying Derive to
// its own output returns the output unchanged.
func Derive(raw string) (string, error) {
	s := sanitize(raw)
	if s == "" {
		return "", fmt.Errorf("%w: %q has no usable characters", model.ErrInvalidName, raw)
	}
	if !strings.HasPrefix(s, Prefix) {
		s = Prefix + s
	}
	if len(s) > maxSchemaLen {
		sum := uint32(xxhash.Sum64String(s))
		s = strings.TrimRight(s[:maxSchemaLen-9], "_") + fmt.Sprintf("_%08x", sum)
	}
	return s, nil
}

// Namespace is one version of an organization's tenant namespace.
// All versions share a schema; each version owns its own collection.
type Namespace struct {
	Schema  string
	Version int
}

// New returns version 1 of the namespace for an organization name.
func New(raw string) (Namespace, error) {
	schema, err := Derive(raw)
	if err != nil {
		return Namespace{}, err
	}
	return Namespace{Schema: schema, Version: 1}, nil
}

// Parse reads an identifier previously produced by Namespace.ID.
func Parse(id string) (Namespace, error) {
	schema, version, versioned := strings.Cut(id, versionMarker)
	if !derivedName.MatchString(schema) || len(schema) > maxSchemaLen {
		return Namespace{}, fmt.Errorf("%w: malformed namespace id %q", model.ErrInvalidName, id)
	}
	if !versioned {
		return Namespace{Schema: schema, Version: 1}, nil
	}
	v, err := strconv.Atoi(version)
	if err != nil || v < 2 || strconv.Itoa(v) != version {
		return Namespace{}, fmt.Errorf("%w: malformed namespace version in %q", model.ErrInvalidName, id)
	}
	return Namespace{Schema: schema, Version: v}, nil
}

// ID is the identifier stored on the organization record.
func (n Namespace) ID() string {
	if n.Version <= 1 {
		return n.Schema
	}
	return n.Schema + versionMarker + strconv.Itoa(n.Version)
}

// Collection is the table holding this version's documents.
func (n Namespace) Collection() string {
	if n.Version <= 1 {
		return DefaultCollection
	}
	return DefaultCollection + "_v" + strconv.Itoa(n.Version)
}

// Next returns the version an update migrates to.
func (n Namespace) Next() Namespace {
	return Namespace{Schema: n.Schema, Version: max(n.Version, 1) + 1}
}

func (n Namespace) String() string {
	return n.ID()
}
