package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"cognetex/api/internal/store"
)

// PgFTS implements Searcher using PostgreSQL full-text search over the
// generated search_vector column of content_documents.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

func (p *PgFTS) Healthy() bool {
	return p != nil && p.db != nil
}

// Search ranks matching documents with ts_rank and counts all matches in the
// same query.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	where := "d.search_vector @@ q.query"
	args := []any{q.Text}
	if q.Collection != "" {
		where += " AND d.collection = $2"
		args = append(args, string(q.Collection))
	}

	dataSQL := fmt.Sprintf(`SELECT d.collection, d.id, d.body, count(*) OVER () AS total
		FROM content_documents d, plainto_tsquery('english', $1) AS q(query)
		WHERE %s
		ORDER BY ts_rank(d.search_vector, q.query) DESC, d.created_at, d.seq
		LIMIT %d OFFSET %d`, where, q.Limit, q.Offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	total := 0
	for rows.Next() {
		var doc store.Document
		var body []byte
		if err := rows.Scan(&doc.Collection, &doc.ID, &body, &total); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		doc.Body = json.RawMessage(body)
		record, err := recordFromDocument(doc)
		if err != nil {
			log.Printf("search: skip %s/%s: %v", doc.Collection, doc.ID, err)
			continue
		}
		results = append(results, record.result())
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every stored record for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT collection, id, body
		FROM content_documents
		ORDER BY created_at, seq
	`)
	if err != nil {
		return nil, fmt.Errorf("load content documents: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var doc store.Document
		var body []byte
		if err := rows.Scan(&doc.Collection, &doc.ID, &body); err != nil {
			return nil, fmt.Errorf("scan content document: %w", err)
		}
		doc.Body = json.RawMessage(body)
		record, err := recordFromDocument(doc)
		if err != nil {
			log.Printf("search: skip %s/%s: %v", doc.Collection, doc.ID, err)
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content documents: %w", err)
	}
	return records, nil
}
