package media

import (
	"time"

	"cognetex/api/internal/util"
)

type ownedPipeline struct {
	owner    string
	pipeline *Pipeline
}

// SessionRegistry holds the in-progress pipelines of admin sessions. A
// pipeline is only visible to the session that started it and is dropped
// after ttl without access.
type SessionRegistry struct {
	uploader  Uploader
	ratio     Ratio
	folder    string
	maxPixels int64
	pipelines *util.Registry[ownedPipeline]
}

// NewSessionRegistry opens pipelines that refuse images larger than
// maxPixels; zero means DefaultMaxPixels.
func NewSessionRegistry(uploader Uploader, folder string, maxPixels int64, ttl time.Duration) *SessionRegistry {
	if maxPixels == 0 {
		maxPixels = DefaultMaxPixels
	}
	return &SessionRegistry{
		uploader:  uploader,
		ratio:     PortraitRatio,
		folder:    folder,
		maxPixels: maxPixels,
		pipelines: util.NewRegistry[ownedPipeline](ttl),
	}
}

// Start opens a new idle pipeline for owner and returns its id.
func (r *SessionRegistry) Start(owner string) (string, *Pipeline) {
	id := util.NewID("upl")
	pipeline := NewPipeline(r.uploader, r.ratio, r.folder)
	pipeline.maxPixels = r.maxPixels
	r.pipelines.Put(id, ownedPipeline{owner: owner, pipeline: pipeline})
	return id, pipeline
}

// Len counts live pipelines across all sessions.
func (r *SessionRegistry) Len() int {
	return r.pipelines.Len()
}

func (r *SessionRegistry) Get(owner, id string) (*Pipeline, bool) {
	entry, ok := r.pipelines.Get(id)
	if !ok || entry.owner != owner {
		return nil, false
	}
	return entry.pipeline, true
}

// Discard cancels and forgets a pipeline.
func (r *SessionRegistry) Discard(owner, id string) bool {
	entry, ok := r.pipelines.Get(id)
	if !ok || entry.owner != owner {
		return false
	}
	entry.pipeline.Cancel()
	r.pipelines.Delete(id)
	return true
}
