package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cognetex/api/internal/content"
	"cognetex/api/internal/store"
)

type fakeSource struct {
	listFn func(ctx context.Context, collection string) ([]store.Document, error)
	calls  atomic.Int32
}

func (f *fakeSource) ListDocuments(ctx context.Context, collection string) ([]store.Document, error) {
	f.calls.Add(1)
	return f.listFn(ctx, collection)
}

func doc(id, body string) store.Document {
	return store.Document{ID: id, Body: json.RawMessage(body)}
}

func TestGetContentWithoutDatabaseServesDefaults(t *testing.T) {
	defaults := content.Defaults()
	repo := NewContentRepository(nil, defaults)

	bundle := repo.GetContent(context.Background())
	if len(bundle.Services) != len(defaults.Services) || bundle.Services[0].ID != defaults.Services[0].ID {
		t.Fatalf("expected default services, got %+v", bundle.Services)
	}
	if repo.Origin() != OriginDefaults {
		t.Fatalf("expected defaults origin, got %q", repo.Origin())
	}
}

func TestGetContentUnreachableDatabaseFallsBackEntirely(t *testing.T) {
	defaults := content.Defaults()
	source := &fakeSource{listFn: func(ctx context.Context, collection string) ([]store.Document, error) {
		if collection == string(content.KindTeam) {
			return nil, errors.New("connection refused")
		}
		return []store.Document{doc("x", `{"title":"Only"}`)}, nil
	}}
	repo := NewContentRepository(source, defaults)

	bundle := repo.GetContent(context.Background())
	for _, kind := range content.Kinds() {
		if bundle.Count(kind) != defaults.Count(kind) {
			t.Fatalf("expected default %s, got %d records", kind, bundle.Count(kind))
		}
	}
	if len(bundle.Services) == 0 {
		t.Fatal("services must never be empty while defaults are non-empty")
	}
	if bundle.Services[0].ID != defaults.Services[0].ID {
		t.Fatalf("expected all collections from defaults, got %+v", bundle.Services[0])
	}
}

func TestGetContentReplacesEmptyCollectionsOnly(t *testing.T) {
	defaults := content.Defaults()
	source := &fakeSource{listFn: func(ctx context.Context, collection string) ([]store.Document, error) {
		switch collection {
		case "services":
			return []store.Document{doc("svc-1", `{"title":"Edge AI","tagline":"Fast","description":"On-device inference","capabilities":["ONNX"],"iconName":"Rocket"}`)}, nil
		case "team":
			return []store.Document{doc("m-1", `{"name":"Ada","role":"CTO","bio":"Builds things","image":"cognetex/team/ada"}`)}, nil
		}
		return nil, nil
	}}
	repo := NewContentRepository(source, defaults)

	bundle := repo.GetContent(context.Background())
	if len(bundle.Services) != 1 || bundle.Services[0].ID != "svc-1" {
		t.Fatalf("expected stored services, got %+v", bundle.Services)
	}
	if bundle.Services[0].Icon() != content.DefaultIcon {
		t.Fatalf("expected unknown icon to resolve to fallback")
	}
	if bundle.Team[0].Image != content.CDNImage("cognetex/team/ada") {
		t.Fatalf("expected CDN image, got %+v", bundle.Team[0].Image)
	}
	if len(bundle.Projects) != len(defaults.Projects) || len(bundle.TechStack) != len(defaults.TechStack) {
		t.Fatal("expected empty collections to be replaced by defaults")
	}
	if len(bundle.Courses) != len(defaults.Courses) {
		t.Fatal("expected static collections from defaults")
	}
	if repo.Origin() != OriginDatabase {
		t.Fatalf("expected database origin, got %q", repo.Origin())
	}
}

func TestGetContentRejectsInvalidRecords(t *testing.T) {
	defaults := content.Defaults()
	source := &fakeSource{listFn: func(ctx context.Context, collection string) ([]store.Document, error) {
		if collection == "projects" {
			return []store.Document{doc("p-1", `{"title":""}`)}, nil
		}
		return nil, nil
	}}
	repo := NewContentRepository(source, defaults)

	bundle := repo.GetContent(context.Background())
	if bundle.Projects[0].ID != defaults.Projects[0].ID {
		t.Fatalf("expected invalid records to trigger defaults, got %+v", bundle.Projects)
	}
	if repo.Origin() != OriginDefaults {
		t.Fatalf("expected defaults origin, got %q", repo.Origin())
	}
}

func TestGetContentCachesFirstResolution(t *testing.T) {
	source := &fakeSource{listFn: func(ctx context.Context, collection string) ([]store.Document, error) {
		return nil, nil
	}}
	repo := NewContentRepository(source, content.Defaults())

	first := repo.GetContent(context.Background())
	first.Services[0].Title = "mutated"
	second := repo.GetContent(context.Background())

	if got := source.calls.Load(); got != 4 {
		t.Fatalf("expected one fetch sequence of 4 calls, got %d", got)
	}
	if second.Services[0].Title == "mutated" {
		t.Fatal("callers must receive private copies of the cached bundle")
	}

	repo.Invalidate()
	if repo.Origin() != OriginNone {
		t.Fatalf("expected empty cache after invalidate")
	}
	repo.GetContent(context.Background())
	if got := source.calls.Load(); got != 8 {
		t.Fatalf("expected refetch after invalidate, got %d calls", got)
	}
}

func TestGetContentCoalescesConcurrentFirstCalls(t *testing.T) {
	release := make(chan struct{})
	source := &fakeSource{listFn: func(ctx context.Context, collection string) ([]store.Document, error) {
		<-release
		return nil, nil
	}}
	repo := NewContentRepository(source, content.Defaults())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.GetContent(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := source.calls.Load(); got != 4 {
		t.Fatalf("expected a single fetch sequence, got %d list calls", got)
	}
}

func TestGetContentSurvivesCallerCancellation(t *testing.T) {
	source := &fakeSource{listFn: func(ctx context.Context, collection string) ([]store.Document, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []store.Document{doc("c-1", `{"title":"Edge","items":["Go"]}`)}, nil
	}}
	repo := NewContentRepository(source, content.Defaults())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bundle := repo.GetContent(ctx)
	if len(bundle.TechStack) != 1 || bundle.TechStack[0].ID != "c-1" {
		t.Fatalf("expected fetch to ignore caller cancellation, got %+v", bundle.TechStack)
	}
}
