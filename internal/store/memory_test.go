package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreDocumentLifecycle(t *testing.T) {
	exerciseDocumentStore(t, NewMemoryStore())
}

func TestMemoryStoreFail(t *testing.T) {
	s := NewMemoryStore()
	boom := errors.New("unreachable")
	s.Fail(boom)

	ctx := context.Background()
	if _, err := s.ListDocuments(ctx, "team"); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected injected ping error, got %v", err)
	}

	s.Fail(nil)
	if _, err := s.ListDocuments(ctx, "team"); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}

func TestMemoryStoreListReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.PutDocument(ctx, "team", "a", []byte(`{"name":"Abbas"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	docs, _ := s.ListDocuments(ctx, "team")
	docs[0].Body[2] = 'X'

	again, _ := s.ListDocuments(ctx, "team")
	if string(again[0].Body) != `{"name":"Abbas"}` {
		t.Fatalf("stored body was mutated: %s", again[0].Body)
	}
}
