// Package repository holds the read path serving public content and the
// write path used by the admin panel.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"cognetex/api/internal/content"
	"cognetex/api/internal/store"
	"golang.org/x/sync/singleflight"
)

// ContentSource lists the documents of one collection.
type ContentSource interface {
	ListDocuments(ctx context.Context, collection string) ([]store.Document, error)
}

// ContentRepository resolves the public content bundle once and serves the
// cached copy until Invalidate is called.
type ContentRepository struct {
	source   ContentSource
	defaults content.Bundle
	timeout  time.Duration

	group      singleflight.Group
	mu         sync.RWMutex
	cached     *content.Bundle
	generation uint64
	origin     Origin
}

// Origin records where the cached bundle came from.
type Origin string

const (
	OriginNone     Origin = ""
	OriginDatabase Origin = "database"
	OriginDefaults Origin = "defaults"
)

// NewContentRepository returns a repository over source. A nil source means
// no database is configured and the defaults are always served.
func NewContentRepository(source ContentSource, defaults content.Bundle) *ContentRepository {
	return &ContentRepository{
		source:   source,
		defaults: defaults,
		timeout:  10 * time.Second,
	}
}

// GetContent never fails. Concurrent first calls share one fetch, which is
// not cancelled when the caller that started it goes away.
func (r *ContentRepository) GetContent(ctx context.Context) content.Bundle {
	r.mu.RLock()
	if r.cached != nil {
		bundle := r.cached.Clone()
		r.mu.RUnlock()
		return bundle
	}
	generation := r.generation
	r.mu.RUnlock()

	value, _, _ := r.group.Do("content", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		bundle, origin := r.resolve(fetchCtx)

		r.mu.Lock()
		if r.generation == generation {
			r.cached = &bundle
			r.origin = origin
		}
		r.mu.Unlock()
		return bundle, nil
	})
	return value.(content.Bundle).Clone()
}

// Invalidate drops the cached bundle; the next GetContent fetches again.
func (r *ContentRepository) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.origin = OriginNone
	r.generation++
	r.mu.Unlock()
	r.group.Forget("content")
}

// Origin reports the source of the cached bundle, or OriginNone when nothing
// is cached.
func (r *ContentRepository) Origin() Origin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.origin
}

func (r *ContentRepository) resolve(ctx context.Context) (content.Bundle, Origin) {
	if r.source == nil {
		log.Printf("content: database not configured, serving bundled defaults")
		return r.defaults.Clone(), OriginDefaults
	}

	bundle, err := r.fetch(ctx)
	if err != nil {
		log.Printf("content: load from database failed, serving bundled defaults: %v", err)
		return r.defaults.Clone(), OriginDefaults
	}
	return bundle, OriginDatabase
}

func (r *ContentRepository) fetch(ctx context.Context) (content.Bundle, error) {
	bundle := r.defaults.Clone()

	services, err := fetchCollection[content.Service](ctx, r.source, content.KindServices)
	if err != nil {
		return content.Bundle{}, err
	}
	projects, err := fetchCollection[content.Project](ctx, r.source, content.KindProjects)
	if err != nil {
		return content.Bundle{}, err
	}
	team, err := fetchCollection[content.TeamMember](ctx, r.source, content.KindTeam)
	if err != nil {
		return content.Bundle{}, err
	}
	techStack, err := fetchCollection[content.TechCategory](ctx, r.source, content.KindTechStack)
	if err != nil {
		return content.Bundle{}, err
	}

	bundle.Services = orDefault(services, bundle.Services, content.KindServices)
	bundle.Projects = orDefault(projects, bundle.Projects, content.KindProjects)
	bundle.Team = orDefault(team, bundle.Team, content.KindTeam)
	bundle.TechStack = orDefault(techStack, bundle.TechStack, content.KindTechStack)
	return bundle, nil
}

func fetchCollection[E content.Entity](ctx context.Context, source ContentSource, kind content.Kind) ([]E, error) {
	docs, err := source.ListDocuments(ctx, string(kind))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", kind, err)
	}
	items, err := decodeDocuments[E](docs)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	if err := content.ValidateList(kind, items); err != nil {
		return nil, err
	}
	return items, nil
}

func orDefault[E any](fetched, fallback []E, kind content.Kind) []E {
	if len(fetched) > 0 {
		return fetched
	}
	log.Printf("content: %s collection is empty, serving bundled defaults for it", kind)
	return fallback
}

func decodeDocuments[E content.Entity](docs []store.Document) ([]E, error) {
	items := make([]E, 0, len(docs))
	for _, doc := range docs {
		item, err := decodeDocument[E](doc)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// decodeDocument fills an entity from the stored body and takes the id from
// the document itself.
func decodeDocument[E content.Entity](doc store.Document) (E, error) {
	var item E
	if err := json.Unmarshal(doc.Body, &item); err != nil {
		return item, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	idField, err := json.Marshal(map[string]string{"id": doc.ID})
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal(idField, &item); err != nil {
		return item, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	return item, nil
}
