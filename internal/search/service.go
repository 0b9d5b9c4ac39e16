package search

import (
	"context"
	"log"
	"strings"

	"cognetex/api/internal/repository"
)

const (
	SourceMeili    = "meilisearch"
	SourcePostgres = "postgres"
	SourceContent  = "content"
	SourceNone     = "none"
)

const maxLimit = 50

// Service is the facade that tries Meilisearch first, falls back to PG FTS,
// and finally scans the resolved content bundle.
type Service struct {
	meili *Meili
	pgfts *PgFTS
	scan  *Scan
}

// NewService creates a search service. Any backend may be nil.
func NewService(meili *Meili, pgfts *PgFTS, scan *Scan) *Service {
	return &Service{meili: meili, pgfts: pgfts, scan: scan}
}

// Search never fails; a blank query or no reachable backend yields an empty
// response.
func (s *Service) Search(ctx context.Context, q Query) Response {
	q = normalizeQuery(q)
	if q.Text == "" {
		return Response{Results: []Result{}, Query: q.Text, Source: SourceNone}
	}

	backends := []struct {
		name     string
		searcher Searcher
	}{
		{SourceMeili, s.meili},
		{SourcePostgres, s.pgfts},
		{SourceContent, s.scan},
	}
	for _, backend := range backends {
		if !backend.searcher.Healthy() {
			continue
		}
		results, total, err := backend.searcher.Search(ctx, q)
		if err != nil {
			log.Printf("search: %s error, falling back: %v", backend.name, err)
			continue
		}
		return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: backend.name}
	}
	return Response{Results: []Result{}, Query: q.Text, Source: SourceNone}
}

// ContentChanged keeps the Meilisearch index in step with admin writes
// (fire-and-forget).
func (s *Service) ContentChanged(ctx context.Context, change repository.Change) {
	if !s.meili.Healthy() {
		return
	}
	key := recordKey(change.Kind, change.ID)
	if change.Op == repository.OpDelete {
		go func() {
			if err := s.meili.Delete(key); err != nil {
				log.Printf("search: delete %s: %v", key, err)
			}
		}()
		return
	}
	if change.Body == nil {
		return
	}
	record, err := RecordFromBody(change.Kind, change.ID, change.Body)
	if err != nil {
		log.Printf("search: index %s: %v", key, err)
		return
	}
	go func() {
		if err := s.meili.Index([]Record{record}); err != nil {
			log.Printf("search: index %s: %v", key, err)
		}
	}()
}

// Reindex pushes the records of the resolved content bundle, plus anything
// stored in Postgres, into Meilisearch.
func (s *Service) Reindex(ctx context.Context, bundle BundleSource) {
	if !s.meili.Healthy() {
		return
	}
	records := RecordsFromBundle(bundle.GetContent(ctx))
	if s.pgfts.Healthy() {
		stored, err := s.pgfts.LoadAllRecords(ctx)
		if err != nil {
			log.Printf("search: reindex load failed: %v", err)
		}
		records = append(records, stored...)
	}
	if err := s.meili.Index(dedupe(records)); err != nil {
		log.Printf("search: reindex: %v", err)
		return
	}
	log.Printf("search: reindexed %d records", len(records))
}

// Healthy reports whether any backend can answer.
func (s *Service) Healthy() bool {
	return s.meili.Healthy() || s.pgfts.Healthy() || s.scan.Healthy()
}

// MeiliHealthy reports whether the Meilisearch backend is up.
func (s *Service) MeiliHealthy() bool {
	return s.meili.Healthy()
}

func normalizeQuery(q Query) Query {
	q.Text = strings.TrimSpace(q.Text)
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

func dedupe(records []Record) []Record {
	seen := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, record := range records {
		if i, ok := seen[record.Key]; ok {
			out[i] = record
			continue
		}
		seen[record.Key] = len(out)
		out = append(out, record)
	}
	return out
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
