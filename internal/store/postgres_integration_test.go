package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func TestPostgresDocumentLifecycle(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	exerciseDocumentStore(t, NewPostgresStore(db))
}

func TestPostgresAdminAccounts(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	s := NewPostgresStore(db)

	if _, err := s.GetAdminAccount(ctx, "admin@cognetex.test"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
	if err := s.UpsertAdminAccount(ctx, "Admin@Cognetex.test", "hash-1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertAdminAccount(ctx, "admin@cognetex.test", "hash-2"); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	account, err := s.GetAdminAccount(ctx, "ADMIN@cognetex.test")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.PasswordHash != "hash-2" {
		t.Fatalf("expected latest hash, got %q", account.PasswordHash)
	}

	saved, err := s.InsertInquiry(ctx, ContactInquiry{Name: "Ada", Email: "ada@example.com", ProjectType: "Consultation", Budget: "$50k+"})
	if err != nil {
		t.Fatalf("insert inquiry: %v", err)
	}
	inquiries, err := s.ListInquiries(ctx, 10)
	if err != nil {
		t.Fatalf("list inquiries: %v", err)
	}
	if len(inquiries) != 1 || inquiries[0].ID != saved.ID {
		t.Fatalf("unexpected inquiries %+v", inquiries)
	}
}

type documentStore interface {
	ListDocuments(ctx context.Context, collection string) ([]Document, error)
	InsertDocument(ctx context.Context, collection string, body json.RawMessage) (string, error)
	PutDocument(ctx context.Context, collection, id string, body json.RawMessage) error
	MergeDocument(ctx context.Context, collection, id string, patch json.RawMessage) error
	DeleteDocument(ctx context.Context, collection, id string) error
}

func exerciseDocumentStore(t *testing.T, s documentStore) {
	t.Helper()
	ctx := context.Background()

	id, err := s.InsertDocument(ctx, "services", json.RawMessage(`{"id":"ignored","title":"Data","tagline":"Signal"}`))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == "" || id == "ignored" {
		t.Fatalf("expected assigned id, got %q", id)
	}
	if err := s.PutDocument(ctx, "services", "agentic-ai", json.RawMessage(`{"title":"Agentic"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := s.MergeDocument(ctx, "services", id, json.RawMessage(`{"title":"Data Engineering"}`)); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := s.MergeDocument(ctx, "services", "missing", json.RawMessage(`{"title":"x"}`)); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows merging missing id, got %v", err)
	}

	docs, err := s.ListDocuments(ctx, "services")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != id || docs[1].ID != "agentic-ai" {
		t.Fatalf("expected insertion order, got %+v", docs)
	}
	var body map[string]string
	if err := json.Unmarshal(docs[0].Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["title"] != "Data Engineering" || body["tagline"] != "Signal" {
		t.Fatalf("merge should keep unsupplied fields, got %v", body)
	}
	if _, ok := body["id"]; ok {
		t.Fatalf("id must not be stored in the body: %v", body)
	}

	if err := s.DeleteDocument(ctx, "services", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteDocument(ctx, "services", id); err != nil {
		t.Fatalf("second delete should succeed: %v", err)
	}
	docs, _ = s.ListDocuments(ctx, "services")
	if len(docs) != 1 {
		t.Fatalf("expected one document after delete, got %d", len(docs))
	}

	if _, err := s.InsertDocument(ctx, "services", json.RawMessage(`["not","an","object"]`)); err == nil {
		t.Fatal("expected non-object body to be rejected")
	}
}
