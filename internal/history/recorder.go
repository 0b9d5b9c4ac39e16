// Package history keeps a git revision log of every admin content write.
// Each record lives at <collection>/<id>.json in a single repository.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cognetex/api/internal/content"
	"cognetex/api/internal/repository"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	ErrDisabled = errors.New("content history is not configured")
	ErrNotFound = errors.New("record not present in revision")
)

// Commit is one recorded write.
type Commit struct {
	Hash       string        `json:"hash"`
	Message    string        `json:"message"`
	Author     string        `json:"author"`
	CreatedAt  time.Time     `json:"createdAt"`
	Collection content.Kind  `json:"collection,omitempty"`
	ID         string        `json:"id,omitempty"`
	Op         repository.Op `json:"op,omitempty"`
}

type Recorder struct {
	baseDir string
	mu      sync.Mutex
	repo    *git.Repository
	now     func() time.Time
}

// New returns a recorder rooted at baseDir. An empty baseDir disables it.
func New(baseDir string) *Recorder {
	return &Recorder{baseDir: baseDir, now: time.Now}
}

func (r *Recorder) Enabled() bool {
	return r != nil && r.baseDir != ""
}

// ContentChanged records change and logs failures; it never fails the write.
func (r *Recorder) ContentChanged(ctx context.Context, change repository.Change) {
	if !r.Enabled() {
		return
	}
	if _, err := r.Record(change); err != nil {
		log.Printf("history: record %s %s/%s: %v", change.Op, change.Kind, change.ID, err)
	}
}

// Record commits the snapshot carried by change, or removes the record for a
// delete. A write that leaves the tree unchanged records nothing and returns
// a zero Commit.
func (r *Recorder) Record(change repository.Change) (Commit, error) {
	if !r.Enabled() {
		return Commit{}, ErrDisabled
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	repo, err := r.open()
	if err != nil {
		return Commit{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Commit{}, fmt.Errorf("open worktree: %w", err)
	}

	rel := recordPath(change.Kind, change.ID)
	abs := filepath.Join(r.baseDir, filepath.FromSlash(rel))
	if change.Op == repository.OpDelete || change.Body == nil {
		if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
			return Commit{}, nil
		}
		if _, err := worktree.Remove(rel); err != nil {
			return Commit{}, fmt.Errorf("git rm %s: %w", rel, err)
		}
	} else {
		payload, err := indent(change.Body)
		if err != nil {
			return Commit{}, fmt.Errorf("format %s: %w", rel, err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return Commit{}, fmt.Errorf("create collection dir: %w", err)
		}
		if err := os.WriteFile(abs, payload, 0o644); err != nil {
			return Commit{}, fmt.Errorf("write %s: %w", rel, err)
		}
		if _, err := worktree.Add(rel); err != nil {
			return Commit{}, fmt.Errorf("git add %s: %w", rel, err)
		}
	}

	status, err := worktree.Status()
	if err != nil {
		return Commit{}, fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		return Commit{}, nil
	}

	hash, err := worktree.Commit(commitMessage(change), &git.CommitOptions{
		Author: signature(change.Author, r.now()),
	})
	if err != nil {
		return Commit{}, fmt.Errorf("commit %s: %w", rel, err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Commit{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommit(commitObj), nil
}

// Log lists recorded writes, newest first. An empty kind lists every record;
// kind and id together narrow the log to one record.
func (r *Recorder) Log(kind content.Kind, id string, limit int) ([]Commit, error) {
	if !r.Enabled() {
		return nil, ErrDisabled
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	repo, err := r.open()
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []Commit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	options := &git.LogOptions{From: head.Hash()}
	switch {
	case kind != "" && id != "":
		name := recordPath(kind, id)
		options.FileName = &name
	case kind != "":
		prefix := string(kind) + "/"
		options.PathFilter = func(p string) bool { return strings.HasPrefix(p, prefix) }
	}

	iter, err := repo.Log(options)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Commit, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommit(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Snapshot returns the stored body of one record as of hash.
func (r *Recorder) Snapshot(hash string, kind content.Kind, id string) (json.RawMessage, error) {
	if !r.Enabled() {
		return nil, ErrDisabled
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	repo, err := r.open()
	if err != nil {
		return nil, err
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return nil, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	file, err := commitObj.File(recordPath(kind, id))
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s/%s from commit: %w", kind, id, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", kind, id, err)
	}
	return json.RawMessage(strings.TrimSpace(contents)), nil
}

// open returns the repository, creating it on first use. Callers hold mu.
func (r *Recorder) open() (*git.Repository, error) {
	if r.repo != nil {
		return r.repo, nil
	}
	repo, err := git.PlainOpen(r.baseDir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(r.baseDir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		repo, err = git.PlainInit(r.baseDir, false)
		if err != nil {
			return nil, fmt.Errorf("init history repo: %w", err)
		}
		if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
			return nil, fmt.Errorf("set HEAD to main: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open history repo: %w", err)
	}
	r.repo = repo
	return repo, nil
}

func recordPath(kind content.Kind, id string) string {
	return path.Join(sanitizeSegment(string(kind)), sanitizeSegment(id)+".json")
}

func indent(body json.RawMessage) ([]byte, error) {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	payload, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(payload, '\n'), nil
}

func commitMessage(change repository.Change) string {
	return fmt.Sprintf("%s %s/%s\n\ncollection: %s\nid: %s\nop: %s\n",
		change.Op, change.Kind, change.ID, change.Kind, change.ID, change.Op)
}

func toCommit(commitObj *object.Commit) Commit {
	commit := Commit{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(strings.SplitN(commitObj.Message, "\n", 2)[0]),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
	for _, line := range strings.Split(commitObj.Message, "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch key {
		case "collection":
			commit.Collection = content.Kind(value)
		case "id":
			commit.ID = value
		case "op":
			commit.Op = repository.Op(value)
		}
	}
	return commit
}

func signature(author string, when time.Time) *object.Signature {
	author = strings.TrimSpace(author)
	if author == "" {
		author = "admin"
	}
	if name, _, ok := strings.Cut(author, "@"); ok && name != "" {
		return &object.Signature{Name: name, Email: author, When: when}
	}
	return &object.Signature{
		Name:  author,
		Email: fmt.Sprintf("%s@local.cognetex.dev", sanitizeEmail(author)),
		When:  when,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

// sanitizeSegment keeps ids from escaping their collection directory.
func sanitizeSegment(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, input)
	cleaned = strings.Trim(cleaned, ".")
	if cleaned == "" {
		return "_"
	}
	return cleaned
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
