package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"cognetex/api/internal/content"
	"cognetex/api/internal/store"
)

var (
	ErrNotConfigured = store.ErrNotConfigured
	ErrKindMismatch  = errors.New("payload does not match collection")
)

// DocumentStore is the document database the admin panel writes to.
type DocumentStore interface {
	ListDocuments(ctx context.Context, collection string) ([]store.Document, error)
	GetDocument(ctx context.Context, collection, id string) (store.Document, error)
	InsertDocument(ctx context.Context, collection string, body json.RawMessage) (string, error)
	MergeDocument(ctx context.Context, collection, id string, patch json.RawMessage) error
	DeleteDocument(ctx context.Context, collection, id string) error
}

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes a completed write. Body is the stored record after the
// write, or nil for deletes.
type Change struct {
	Kind   content.Kind
	ID     string
	Op     Op
	Body   json.RawMessage
	Author string
}

// Observer is told about every successful write. Observers must not block.
type Observer interface {
	ContentChanged(ctx context.Context, change Change)
}

type ObserverFunc func(ctx context.Context, change Change)

func (f ObserverFunc) ContentChanged(ctx context.Context, change Change) { f(ctx, change) }

type authorKey struct{}

// WithAuthor tags ctx with the admin performing a write.
func WithAuthor(ctx context.Context, author string) context.Context {
	return context.WithValue(ctx, authorKey{}, author)
}

func authorFrom(ctx context.Context) string {
	author, _ := ctx.Value(authorKey{}).(string)
	return author
}

// AdminRepository creates, updates and deletes records. Callers are expected
// to have passed the authentication gate already.
type AdminRepository struct {
	store     DocumentStore
	observers []Observer
}

// NewAdminRepository returns a repository over s. A nil s makes every call
// fail with ErrNotConfigured.
func NewAdminRepository(s DocumentStore, observers ...Observer) *AdminRepository {
	return &AdminRepository{store: s, observers: observers}
}

func (r *AdminRepository) Configured() bool {
	return r != nil && r.store != nil
}

func (r *AdminRepository) Observe(observer Observer) {
	r.observers = append(r.observers, observer)
}

// Create stores draft and returns the assigned id.
func (r *AdminRepository) Create(ctx context.Context, kind content.Kind, draft content.Draft) (string, error) {
	if !r.Configured() {
		return "", ErrNotConfigured
	}
	if draft.Kind() != kind {
		return "", fmt.Errorf("%w: %s payload for %s", ErrKindMismatch, draft.Kind(), kind)
	}
	if err := draft.Validate(); err != nil {
		return "", err
	}
	body, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", kind.Noun(), err)
	}
	id, err := r.store.InsertDocument(ctx, string(kind), body)
	if err != nil {
		return "", err
	}
	r.notify(ctx, kind, id, OpCreate)
	return id, nil
}

// Update merges the supplied fields of patch into the stored record.
func (r *AdminRepository) Update(ctx context.Context, kind content.Kind, id string, patch content.Patch) error {
	if !r.Configured() {
		return ErrNotConfigured
	}
	if patch.Kind() != kind {
		return fmt.Errorf("%w: %s payload for %s", ErrKindMismatch, patch.Kind(), kind)
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind.Noun(), err)
	}
	if err := r.store.MergeDocument(ctx, string(kind), id, body); err != nil {
		return err
	}
	r.notify(ctx, kind, id, OpUpdate)
	return nil
}

// Delete removes a record. Deleting an id that does not exist succeeds.
func (r *AdminRepository) Delete(ctx context.Context, kind content.Kind, id string) error {
	if !r.Configured() {
		return ErrNotConfigured
	}
	if err := r.store.DeleteDocument(ctx, string(kind), id); err != nil {
		return err
	}
	r.notify(ctx, kind, id, OpDelete)
	return nil
}

// List returns the stored records of kind in insertion order.
func (r *AdminRepository) List(ctx context.Context, kind content.Kind) ([]content.Entity, error) {
	switch kind {
	case content.KindServices:
		items, err := Services(r).List(ctx)
		return asEntities(items, err)
	case content.KindProjects:
		items, err := Projects(r).List(ctx)
		return asEntities(items, err)
	case content.KindTeam:
		items, err := Team(r).List(ctx)
		return asEntities(items, err)
	case content.KindTechStack:
		items, err := TechStack(r).List(ctx)
		return asEntities(items, err)
	}
	return nil, fmt.Errorf("%w: %q", content.ErrUnknownKind, kind)
}

func (r *AdminRepository) notify(ctx context.Context, kind content.Kind, id string, op Op) {
	if len(r.observers) == 0 {
		return
	}
	change := Change{Kind: kind, ID: id, Op: op, Author: authorFrom(ctx)}
	if op != OpDelete {
		doc, err := r.store.GetDocument(ctx, string(kind), id)
		if err != nil {
			log.Printf("repository: snapshot %s/%s after %s: %v", kind, id, op, err)
		} else {
			change.Body = doc.Body
		}
	}
	for _, observer := range r.observers {
		observer.ContentChanged(ctx, change)
	}
}

// Collection is a typed view of one collection.
type Collection[E content.Entity] struct {
	kind content.Kind
	repo *AdminRepository
}

func Services(r *AdminRepository) Collection[content.Service] {
	return Collection[content.Service]{kind: content.KindServices, repo: r}
}

func Projects(r *AdminRepository) Collection[content.Project] {
	return Collection[content.Project]{kind: content.KindProjects, repo: r}
}

func Team(r *AdminRepository) Collection[content.TeamMember] {
	return Collection[content.TeamMember]{kind: content.KindTeam, repo: r}
}

func TechStack(r *AdminRepository) Collection[content.TechCategory] {
	return Collection[content.TechCategory]{kind: content.KindTechStack, repo: r}
}

func (c Collection[E]) Kind() content.Kind { return c.kind }

func (c Collection[E]) List(ctx context.Context) ([]E, error) {
	if !c.repo.Configured() {
		return nil, ErrNotConfigured
	}
	docs, err := c.repo.store.ListDocuments(ctx, string(c.kind))
	if err != nil {
		return nil, err
	}
	return decodeDocuments[E](docs)
}

func (c Collection[E]) Create(ctx context.Context, draft content.Draft) (string, error) {
	return c.repo.Create(ctx, c.kind, draft)
}

func (c Collection[E]) Update(ctx context.Context, id string, patch content.Patch) error {
	return c.repo.Update(ctx, c.kind, id, patch)
}

func (c Collection[E]) Delete(ctx context.Context, id string) error {
	return c.repo.Delete(ctx, c.kind, id)
}

func asEntities[E content.Entity](items []E, err error) ([]content.Entity, error) {
	if err != nil {
		return nil, err
	}
	out := make([]content.Entity, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out, nil
}
