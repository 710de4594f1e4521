// Package memstore keeps the registry and tenant namespaces in process memory.
// It enforces the same unique keys as the PostgreSQL store.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"tenant-registry/internal/model"
	"tenant-registry/internal/naming"
)

type namespace struct {
	collections map[string]map[uuid.UUID]model.Document
}

type Store struct {
	mu         sync.RWMutex
	orgs       map[uuid.UUID]model.Organization
	admins     map[uuid.UUID]model.AdminCredential
	namespaces map[string]*namespace
}

func New() *Store {
	return &Store{
		orgs:       make(map[uuid.UUID]model.Organization),
		admins:     make(map[uuid.UUID]model.AdminCredential),
		namespaces: make(map[string]*namespace),
	}
}

func schemaOf(namespaceID string) string {
	ns, err := naming.Parse(namespaceID)
	if err != nil {
		return namespaceID
	}
	return ns.Schema
}

func (s *Store) findOrg(match func(model.Organization) bool) (*model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, org := range s.orgs {
		if match(org) {
			o := org
			return &o, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *Store) FindOrgByName(_ context.Context, name string) (*model.Organization, error) {
	return s.findOrg(func(o model.Organization) bool { return o.Name == name })
}

func (s *Store) FindOrgByID(_ context.Context, id uuid.UUID) (*model.Organization, error) {
	return s.findOrg(func(o model.Organization) bool { return o.ID == id })
}

func (s *Store) FindOrgBySchema(_ context.Context, schema string) (*model.Organization, error) {
	return s.findOrg(func(o model.Organization) bool { return schemaOf(o.NamespaceID) == schema })
}

func (s *Store) InsertOrg(_ context.Context, org *model.Organization) error {
	ns, err := naming.Parse(org.NamespaceID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orgs {
		if o.Name == org.Name {
			return &model.DuplicateKeyError{Key: model.KeyOrganizationName}
		}
		if schemaOf(o.NamespaceID) == ns.Schema {
			return &model.DuplicateKeyError{Key: model.KeyNamespace}
		}
	}
	if _, ok := s.orgs[org.ID]; ok {
		return &model.StoreError{Op: "insert organization", Err: fmt.Errorf("duplicate id %s", org.ID)}
	}
	s.orgs[org.ID] = *org
	return nil
}

func (s *Store) UpdateOrgNamespace(_ context.Context, orgID uuid.UUID, namespaceID string) error {
	ns, err := naming.Parse(namespaceID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return model.ErrNotFound
	}
	for id, o := range s.orgs {
		if id != orgID && schemaOf(o.NamespaceID) == ns.Schema {
			return &model.DuplicateKeyError{Key: model.KeyNamespace}
		}
	}
	org.NamespaceID = namespaceID
	s.orgs[orgID] = org
	return nil
}

func (s *Store) DeleteOrg(_ context.Context, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[orgID]; !ok {
		return model.ErrNotFound
	}
	delete(s.orgs, orgID)
	return nil
}

func (s *Store) findAdmin(match func(model.AdminCredential) bool) (*model.AdminCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.admins {
		if match(a) {
			c := a
			return &c, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *Store) FindAdminByEmail(_ context.Context, email string) (*model.AdminCredential, error) {
	return s.findAdmin(func(a model.AdminCredential) bool { return a.Email == email })
}

func (s *Store) FindAdminByID(_ context.Context, id uuid.UUID) (*model.AdminCredential, error) {
	return s.findAdmin(func(a model.AdminCredential) bool { return a.ID == id })
}

func (s *Store) emailTaken(email string, except uuid.UUID) bool {
	for id, a := range s.admins {
		if id != except && a.Email == email {
			return true
		}
	}
	return false
}

func (s *Store) InsertAdmin(_ context.Context, a *model.AdminCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(a.Email, uuid.Nil) {
		return &model.DuplicateKeyError{Key: model.KeyEmail}
	}
	s.admins[a.ID] = *a
	return nil
}

func (s *Store) UpdateAdminPassword(_ context.Context, orgID uuid.UUID, email, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := false
	for id, a := range s.admins {
		if a.OrganizationID == orgID && a.Email == email {
			a.PasswordHash = hash
			s.admins[id] = a
			matched = true
		}
	}
	return matched, nil
}

func (s *Store) RebindAdmin(_ context.Context, orgID uuid.UUID, email, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := false
	for id, a := range s.admins {
		if a.OrganizationID != orgID {
			continue
		}
		if s.emailTaken(email, id) {
			return false, &model.DuplicateKeyError{Key: model.KeyEmail}
		}
		a.Email = email
		a.PasswordHash = hash
		s.admins[id] = a
		matched = true
	}
	return matched, nil
}

func (s *Store) DeleteAdminsByOrg(_ context.Context, orgID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.admins {
		if a.OrganizationID == orgID {
			delete(s.admins, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) NamespaceExists(_ context.Context, schema string) (bool, error) {
	return s.HasNamespace(schema), nil
}

func (s *Store) CreateNamespace(_ context.Context, schema string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.namespaces[schema]; !ok {
		s.namespaces[schema] = &namespace{collections: make(map[string]map[uuid.UUID]model.Document)}
	}
	return nil
}

func (s *Store) collection(schema, name string) (map[uuid.UUID]model.Document, error) {
	ns, ok := s.namespaces[schema]
	if !ok {
		return nil, &model.NamespaceError{Op: "lookup", Namespace: schema, Err: fmt.Errorf("schema does not exist")}
	}
	c, ok := ns.collections[name]
	if !ok {
		return nil, &model.NamespaceError{Op: "lookup " + name, Namespace: schema, Err: fmt.Errorf("collection does not exist")}
	}
	return c, nil
}

func (s *Store) CreateCollection(_ context.Context, schema, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.namespaces[schema]
	if !ok {
		return &model.NamespaceError{Op: "create collection " + name, Namespace: schema, Err: fmt.Errorf("schema does not exist")}
	}
	if _, ok := ns.collections[name]; !ok {
		ns.collections[name] = make(map[uuid.UUID]model.Document)
	}
	return nil
}

func (s *Store) CopyAllDocuments(ctx context.Context, srcSchema, srcCollection, dstSchema, dstCollection string) (int64, error) {
	if err := s.CreateCollection(ctx, dstSchema, dstCollection); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src, err := s.collection(srcSchema, srcCollection)
	if err != nil {
		return 0, err
	}
	dst, err := s.collection(dstSchema, dstCollection)
	if err != nil {
		return 0, err
	}
	var n int64
	for id, d := range src {
		if _, exists := dst[id]; exists {
			continue
		}
		d.Body = bytes.Clone(d.Body)
		dst[id] = d
		n++
	}
	return n, nil
}

func (s *Store) DropNamespace(_ context.Context, schema string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, schema)
	return nil
}

func (s *Store) InsertDocument(_ context.Context, schema, name string, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(schema, name)
	if err != nil {
		return err
	}
	if _, exists := c[doc.ID]; exists {
		return &model.NamespaceError{Op: "insert into " + name, Namespace: schema, Err: fmt.Errorf("duplicate document id %s", doc.ID)}
	}
	d := *doc
	d.Body = bytes.Clone(doc.Body)
	c[doc.ID] = d
	return nil
}

func (s *Store) ListDocuments(_ context.Context, schema, name, cursor string, limit int) ([]model.Document, string, error) {
	var after uuid.UUID
	if cursor != "" {
		id, err := uuid.Parse(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("%w %q: %v", model.ErrInvalidCursor, cursor, err)
		}
		after = id
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(schema, name)
	if err != nil {
		return nil, "", err
	}

	docs := make([]model.Document, 0, len(c))
	for id, d := range c {
		if cursor == "" || bytes.Compare(id[:], after[:]) > 0 {
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return bytes.Compare(docs[i].ID[:], docs[j].ID[:]) < 0 })

	if limit < 0 {
		limit = 0
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}
	next := ""
	if len(docs) == limit && limit > 0 {
		next = docs[len(docs)-1].ID.String()
	}
	return docs, next, nil
}

// HasNamespace reports whether schema currently exists.
func (s *Store) HasNamespace(schema string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.namespaces[schema]
	return ok
}

// Collections lists the collection names in schema.
func (s *Store) Collections(schema string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[schema]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(ns.collections))
	for name := range ns.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
