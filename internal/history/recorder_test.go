package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cognetex/api/internal/content"
	"cognetex/api/internal/repository"
)

func change(op repository.Op, id, body string) repository.Change {
	c := repository.Change{Kind: content.KindServices, ID: id, Op: op, Author: "admin@cognetex.test"}
	if body != "" {
		c.Body = json.RawMessage(body)
	}
	return c
}

func TestRecordCreateUpdateDelete(t *testing.T) {
	recorder := New(t.TempDir())

	created, err := recorder.Record(change(repository.OpCreate, "svc1", `{"title":"Agents","description":"First"}`))
	if err != nil {
		t.Fatalf("Record(create) error = %v", err)
	}
	if created.Hash == "" || created.Op != repository.OpCreate || created.Collection != content.KindServices || created.ID != "svc1" {
		t.Fatalf("unexpected create commit %+v", created)
	}
	if created.Author != "admin" {
		t.Fatalf("expected author name from email, got %q", created.Author)
	}

	if _, err := recorder.Record(change(repository.OpUpdate, "svc1", `{"title":"Agents","description":"Second"}`)); err != nil {
		t.Fatalf("Record(update) error = %v", err)
	}
	if _, err := recorder.Record(change(repository.OpDelete, "svc1", "")); err != nil {
		t.Fatalf("Record(delete) error = %v", err)
	}

	commits, err := recorder.Log("", "", 0)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if len(commits) != 3 {
		t.Fatalf("expected 3 commits, got %d", len(commits))
	}
	if commits[0].Op != repository.OpDelete || commits[2].Op != repository.OpCreate {
		t.Fatalf("expected newest first, got %+v", commits)
	}
	if commits[1].Message != "update services/svc1" {
		t.Fatalf("unexpected message %q", commits[1].Message)
	}

	first, err := recorder.Snapshot(created.Hash, content.KindServices, "svc1")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	var body struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(first, &body); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if body.Description != "First" {
		t.Fatalf("expected first revision, got %q", body.Description)
	}

	if _, err := recorder.Snapshot(commits[0].Hash, content.KindServices, "svc1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRecordSkipsUnchangedWrites(t *testing.T) {
	recorder := New(t.TempDir())
	body := `{"title":"Agents"}`
	if _, err := recorder.Record(change(repository.OpCreate, "svc1", body)); err != nil {
		t.Fatalf("Record(create) error = %v", err)
	}
	again, err := recorder.Record(change(repository.OpUpdate, "svc1", body))
	if err != nil {
		t.Fatalf("Record(update) error = %v", err)
	}
	if again.Hash != "" {
		t.Fatalf("expected no commit for identical body, got %+v", again)
	}
	missing, err := recorder.Record(change(repository.OpDelete, "never", ""))
	if err != nil || missing.Hash != "" {
		t.Fatalf("expected delete of unknown record to be a no-op, got %+v %v", missing, err)
	}
}

func TestLogFiltersByRecordAndCollection(t *testing.T) {
	recorder := New(t.TempDir())
	writes := []repository.Change{
		change(repository.OpCreate, "a", `{"title":"A"}`),
		change(repository.OpCreate, "b", `{"title":"B"}`),
		change(repository.OpUpdate, "a", `{"title":"A2"}`),
		{Kind: content.KindTeam, ID: "m1", Op: repository.OpCreate, Body: json.RawMessage(`{"name":"Ada"}`)},
	}
	for _, w := range writes {
		if _, err := recorder.Record(w); err != nil {
			t.Fatalf("Record(%s %s) error = %v", w.Op, w.ID, err)
		}
	}

	one, err := recorder.Log(content.KindServices, "a", 0)
	if err != nil {
		t.Fatalf("Log(record) error = %v", err)
	}
	if len(one) != 2 {
		t.Fatalf("expected 2 commits for services/a, got %+v", one)
	}
	services, err := recorder.Log(content.KindServices, "", 0)
	if err != nil {
		t.Fatalf("Log(collection) error = %v", err)
	}
	if len(services) != 3 {
		t.Fatalf("expected 3 services commits, got %d", len(services))
	}
	limited, err := recorder.Log("", "", 2)
	if err != nil {
		t.Fatalf("Log(limit) error = %v", err)
	}
	if len(limited) != 2 || limited[0].Collection != content.KindTeam {
		t.Fatalf("unexpected limited log %+v", limited)
	}
	if limited[0].Author != "admin" {
		t.Fatalf("expected fallback author, got %q", limited[0].Author)
	}
}

func TestLogOnEmptyRepository(t *testing.T) {
	recorder := New(t.TempDir())
	commits, err := recorder.Log("", "", 10)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if commits == nil || len(commits) != 0 {
		t.Fatalf("expected empty log, got %+v", commits)
	}
}

func TestRecordKeepsIDsInsideCollection(t *testing.T) {
	dir := t.TempDir()
	recorder := New(dir)
	if _, err := recorder.Record(repository.Change{Kind: content.KindTeam, ID: "../../escape", Op: repository.OpCreate, Body: json.RawMessage(`{"name":"X"}`)}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "team"))
	if err != nil {
		t.Fatalf("read team dir: %v", err)
	}
	if len(entries) != 1 || strings.Contains(entries[0].Name(), "/") {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestDisabledRecorder(t *testing.T) {
	recorder := New("")
	if recorder.Enabled() {
		t.Fatal("expected disabled recorder")
	}
	recorder.ContentChanged(context.Background(), change(repository.OpCreate, "a", `{}`))
	if _, err := recorder.Log("", "", 0); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	var nilRecorder *Recorder
	nilRecorder.ContentChanged(context.Background(), change(repository.OpCreate, "a", `{}`))
}

func TestConcurrentRecordsAllCommit(t *testing.T) {
	recorder := New(t.TempDir())
	const writers = 6

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			id := fmt.Sprintf("svc%d", i)
			recorder.ContentChanged(context.Background(), change(repository.OpCreate, id, fmt.Sprintf(`{"title":"T%d"}`, i)))
		}(i)
	}
	close(start)
	wg.Wait()

	commits, err := recorder.Log("", "", 0)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if len(commits) != writers {
		t.Fatalf("expected %d commits, got %d", writers, len(commits))
	}
}
