package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cognetex/api/internal/content"
	"cognetex/api/internal/store"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Collection content.Kind `json:"collection"`
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Snippet    string       `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text       string
	Collection content.Kind // empty = all collections
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Source  string   `json:"source"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Record is the data we index for one content record.
type Record struct {
	Key        string       `json:"key"`
	ID         string       `json:"id"`
	Collection content.Kind `json:"collection"`
	Title      string       `json:"title"`
	Text       string       `json:"text"`
}

func (r Record) result() Result {
	return Result{Collection: r.Collection, ID: r.ID, Title: r.Title, Snippet: snippet(r.Text)}
}

func recordKey(kind content.Kind, id string) string {
	return string(kind) + "_" + id
}

// RecordFor flattens an entity into its searchable text.
func RecordFor(entity content.Entity) Record {
	record := Record{ID: entity.EntityID(), Collection: entity.Kind()}
	switch e := entity.(type) {
	case content.Service:
		record.Title = e.Title
		record.Text = joinText(e.Tagline, e.Description, e.Capabilities.String())
	case content.Project:
		record.Title = e.Title
		record.Text = joinText(e.ClientSector, e.Challenge, e.Solution, e.Stats.String())
	case content.TeamMember:
		record.Title = e.Name
		record.Text = joinText(e.Role, e.Bio)
	case content.TechCategory:
		record.Title = e.Title
		record.Text = e.Items.String()
	}
	record.Key = recordKey(record.Collection, record.ID)
	return record
}

// RecordsFromBundle lists every editable record of b.
func RecordsFromBundle(b content.Bundle) []Record {
	records := make([]Record, 0, len(b.Services)+len(b.Projects)+len(b.Team)+len(b.TechStack))
	for _, item := range b.Services {
		records = append(records, RecordFor(item))
	}
	for _, item := range b.Projects {
		records = append(records, RecordFor(item))
	}
	for _, item := range b.Team {
		records = append(records, RecordFor(item))
	}
	for _, item := range b.TechStack {
		records = append(records, RecordFor(item))
	}
	return records
}

// RecordFromBody decodes a stored document body of kind.
func RecordFromBody(kind content.Kind, id string, body json.RawMessage) (Record, error) {
	var entity content.Entity
	var err error
	switch kind {
	case content.KindServices:
		entity, err = decodeEntity[content.Service](body)
	case content.KindProjects:
		entity, err = decodeEntity[content.Project](body)
	case content.KindTeam:
		entity, err = decodeEntity[content.TeamMember](body)
	case content.KindTechStack:
		entity, err = decodeEntity[content.TechCategory](body)
	default:
		return Record{}, fmt.Errorf("%w: %q", content.ErrUnknownKind, kind)
	}
	if err != nil {
		return Record{}, fmt.Errorf("decode %s %s: %w", kind.Noun(), id, err)
	}
	record := RecordFor(entity)
	record.ID = id
	record.Key = recordKey(kind, id)
	return record, nil
}

func recordFromDocument(doc store.Document) (Record, error) {
	return RecordFromBody(content.Kind(doc.Collection), doc.ID, doc.Body)
}

func decodeEntity[E content.Entity](body json.RawMessage) (content.Entity, error) {
	var entity E
	if err := json.Unmarshal(body, &entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func joinText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, strings.TrimSpace(part))
		}
	}
	return strings.Join(kept, " · ")
}

func snippet(text string) string {
	const maxRunes = 160
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
