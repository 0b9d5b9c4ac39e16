package search

import (
	"context"
	"strings"

	"cognetex/api/internal/content"
)

// BundleSource supplies the content currently shown on the public site.
type BundleSource interface {
	GetContent(ctx context.Context) content.Bundle
}

// Scan implements Searcher by matching every query term, case-insensitively,
// against the records of the resolved content bundle. It is the last resort
// when neither Meilisearch nor Postgres can answer.
type Scan struct {
	source BundleSource
}

func NewScan(source BundleSource) *Scan {
	return &Scan{source: source}
}

func (s *Scan) Healthy() bool {
	return s != nil && s.source != nil
}

func (s *Scan) Search(ctx context.Context, q Query) ([]Result, int, error) {
	terms := strings.Fields(strings.ToLower(q.Text))
	if len(terms) == 0 {
		return nil, 0, nil
	}

	var matches []Result
	for _, record := range RecordsFromBundle(s.source.GetContent(ctx)) {
		if q.Collection != "" && record.Collection != q.Collection {
			continue
		}
		haystack := strings.ToLower(record.Title + " " + record.Text)
		if containsAll(haystack, terms) {
			matches = append(matches, record.result())
		}
	}

	total := len(matches)
	if q.Offset >= total {
		return nil, total, nil
	}
	end := total
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matches[q.Offset:end], total, nil
}

func containsAll(haystack string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
