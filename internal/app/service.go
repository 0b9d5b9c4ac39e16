package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"cognetex/api/internal/auth"
	"cognetex/api/internal/authpw"
	"cognetex/api/internal/config"
	"cognetex/api/internal/contact"
	"cognetex/api/internal/content"
	"cognetex/api/internal/history"
	"cognetex/api/internal/media"
	"cognetex/api/internal/repository"
	"cognetex/api/internal/search"
	"cognetex/api/internal/session"
	"cognetex/api/internal/store"
	"cognetex/api/internal/workflow"
)

// editorIdleTTL is how long an admin's open forms and uploads survive
// without a request.
const editorIdleTTL = 30 * time.Minute

var portraitTransform = media.Transform{Width: 480, Height: 600}

// DataStore is the document database plus the calls seeding and readiness need.
type DataStore interface {
	repository.DocumentStore
	PutDocument(ctx context.Context, collection, id string, body json.RawMessage) error
	Ping(ctx context.Context) error
}

type InquiryStore interface {
	contact.InquiryStore
	ListInquiries(ctx context.Context, limit int) ([]store.ContactInquiry, error)
}

// Deps are the collaborators built from configuration. Leave a field nil
// (untyped) when the backing service is not configured.
type Deps struct {
	Store     DataStore
	Inquiries InquiryStore
	Accounts  authpw.AccountStore
	Sessions  session.Store
	Uploader  media.Uploader
	Meili     *search.Meili
	FullText  *search.PgFTS
	History   *history.Recorder
	Notifier  contact.Notifier
}

type Service struct {
	cfg         config.Config
	store       DataStore
	inquiries   InquiryStore
	sessions    session.Store
	content     *repository.ContentRepository
	admin       *repository.AdminRepository
	gate        *auth.Gate
	workbenches *workflow.WorkbenchRegistry
	uploads     *media.SessionRegistry
	uploader    media.Uploader
	resolver    media.Resolver
	search      *search.Service
	history     *history.Recorder
	contact     *contact.Service
}

func New(cfg config.Config, deps Deps) *Service {
	var source repository.ContentSource
	var documents repository.DocumentStore
	if deps.Store != nil {
		source = deps.Store
		documents = deps.Store
	}
	contentRepo := repository.NewContentRepository(source, content.Defaults())

	searchService := search.NewService(deps.Meili, deps.FullText, search.NewScan(contentRepo))

	admin := repository.NewAdminRepository(documents, searchService)
	if deps.History.Enabled() {
		admin.Observe(deps.History)
	}

	sessions := deps.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	var backend auth.PasswordBackend
	if deps.Accounts != nil {
		backend = authpw.NewService(deps.Accounts)
	}
	gate := auth.NewGate(auth.GateConfig{
		AdminEmail: cfg.AdminEmail,
		Secret:     cfg.JWTSecret,
		TTL:        cfg.SessionTTL,
	}, backend, sessions)

	folder := strings.TrimSpace(cfg.UploadFolder)
	if folder == "" {
		folder = media.DefaultFolder
	}
	var resolver media.Resolver
	if based, ok := deps.Uploader.(interface{ BaseURL() string }); ok {
		resolver = media.NewResolver("", based.BaseURL())
	} else {
		resolver = media.NewResolver(cfg.CloudinaryCloudName, "")
	}

	var inquiries contact.InquiryStore
	if deps.Inquiries != nil {
		inquiries = deps.Inquiries
	}

	return &Service{
		cfg:         cfg,
		store:       deps.Store,
		inquiries:   deps.Inquiries,
		sessions:    sessions,
		content:     contentRepo,
		admin:       admin,
		gate:        gate,
		workbenches: workflow.NewWorkbenchRegistry(admin, editorIdleTTL),
		uploads:     media.NewSessionRegistry(deps.Uploader, folder, cfg.MaxImagePixels, editorIdleTTL),
		uploader:    deps.Uploader,
		resolver:    resolver,
		search:      searchService,
		history:     deps.History,
		contact:     contact.NewService(inquiries, deps.Notifier, cfg.ContactRecipient),
	}
}

// Bootstrap resolves the public content once and pushes it into the search
// index.
func (s *Service) Bootstrap(ctx context.Context) {
	bundle := s.content.GetContent(ctx)
	log.Printf("content: serving %d services, %d projects, %d team members, %d tech categories (%s)",
		len(bundle.Services), len(bundle.Projects), len(bundle.Team), len(bundle.TechStack), s.content.Origin())
	s.search.Reindex(ctx, s.content)
}

// Ready runs the readiness checks. Unconfigured optional services are
// reported but do not fail readiness.
func (s *Service) Ready(ctx context.Context) (bool, map[string]any) {
	ready := true
	checks := map[string]any{}

	if s.store == nil {
		checks["database"] = map[string]any{"status": "not_configured"}
	} else if err := s.store.Ping(ctx); err != nil {
		ready = false
		checks["database"] = map[string]any{"status": "error", "error": err.Error()}
	} else {
		checks["database"] = map[string]any{"status": "ok"}
	}

	if err := s.sessions.Ping(ctx); err != nil {
		ready = false
		checks["sessions"] = map[string]any{"status": "error", "error": err.Error()}
	} else {
		checks["sessions"] = map[string]any{"status": "ok"}
	}

	switch {
	case s.search.MeiliHealthy():
		checks["search"] = map[string]any{"status": "ok", "backend": search.SourceMeili}
	case s.search.Healthy():
		checks["search"] = map[string]any{"status": "degraded"}
	default:
		checks["search"] = map[string]any{"status": "not_configured"}
	}

	if s.uploader == nil {
		checks["media"] = map[string]any{"status": "not_configured"}
	} else if pinger, ok := s.uploader.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			checks["media"] = map[string]any{"status": "error", "error": err.Error()}
		} else {
			checks["media"] = map[string]any{"status": "ok"}
		}
	} else {
		checks["media"] = map[string]any{"status": "ok"}
	}

	return ready, checks
}

// TeamMemberView is a team member with its portrait resolved for display.
type TeamMemberView struct {
	content.TeamMember
	media.Resolved
}

// PublicContent is the bundle as the public pages consume it.
type PublicContent struct {
	content.Bundle
	Team []TeamMemberView `json:"team"`
}

func (s *Service) PublicContent(ctx context.Context) PublicContent {
	bundle := s.content.GetContent(ctx)
	services := make([]content.Service, len(bundle.Services))
	for i, service := range bundle.Services {
		service.IconName = service.Icon()
		services[i] = service
	}
	bundle.Services = services
	return PublicContent{Bundle: bundle, Team: s.teamViews(bundle.Team)}
}

// PublicCollection returns one named collection of the public bundle.
func (s *Service) PublicCollection(ctx context.Context, name string) (any, error) {
	public := s.PublicContent(ctx)
	switch name {
	case "trustLogos":
		return public.TrustLogos, nil
	case "uniqueApproach":
		return public.UniqueApproach, nil
	case "aiSolutionPillars":
		return public.AISolutionPillars, nil
	case "aiServices":
		return public.AIServices, nil
	case "courses":
		return public.Courses, nil
	}
	kind, err := content.ParseKind(name)
	if err != nil {
		return nil, err
	}
	switch kind {
	case content.KindServices:
		return public.Services, nil
	case content.KindProjects:
		return public.Projects, nil
	case content.KindTeam:
		return public.Team, nil
	default:
		return public.TechStack, nil
	}
}

func (s *Service) teamViews(members []content.TeamMember) []TeamMemberView {
	views := make([]TeamMemberView, 0, len(members))
	for _, member := range members {
		views = append(views, TeamMemberView{
			TeamMember: member,
			Resolved:   s.resolver.Resolve(member.Image, portraitTransform),
		})
	}
	return views
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	return s.search.Search(ctx, q)
}

func (s *Service) SubmitInquiry(ctx context.Context, inquiry contact.Inquiry) (contact.Receipt, error) {
	return s.contact.Submit(ctx, inquiry)
}

func (s *Service) ListInquiries(ctx context.Context, limit int) ([]store.ContactInquiry, error) {
	if s.inquiries == nil {
		return nil, repository.ErrNotConfigured
	}
	return s.inquiries.ListInquiries(ctx, limit)
}

func (s *Service) AuthConfigured() bool {
	return s.gate.Configured()
}

func (s *Service) Login(ctx context.Context, password string) (auth.Session, error) {
	return s.gate.Login(ctx, password)
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (auth.Session, error) {
	return s.gate.Authenticate(ctx, token)
}

// Logout ends the session and forgets its open forms and uploads.
func (s *Service) Logout(ctx context.Context, token string) {
	if current, err := s.gate.Authenticate(ctx, token); err == nil {
		s.workbenches.Drop(current.ID)
	}
	s.gate.Logout(ctx, token)
}

// Form returns the admin form for a collection name or tab alias.
func (s *Service) Form(sess auth.Session, name string) (workflow.Controller, error) {
	kind, err := content.ParseKind(name)
	if err != nil {
		return nil, err
	}
	return s.workbenches.For(sess.ID).Form(kind)
}

// AdminOverview refreshes every list of the session's workbench.
func (s *Service) AdminOverview(ctx context.Context, sess auth.Session) (map[string]any, error) {
	bench := s.workbenches.For(sess.ID)
	err := bench.RefreshAll(ctx)
	overview := map[string]any{}
	for _, kind := range content.Kinds() {
		form, _ := bench.Form(kind)
		overview[string(kind)] = form.Snapshot()
	}
	return overview, err
}

// AttachUpload puts the reference of a finished upload on the team form.
func (s *Service) AttachUpload(sess auth.Session, uploadID string) (workflow.Controller, error) {
	pipeline, err := s.Upload(sess, uploadID)
	if err != nil {
		return nil, err
	}
	asset, ok := pipeline.Uploaded()
	if !ok {
		return nil, domainError(http.StatusConflict, "UPLOAD_INCOMPLETE", "Upload the cropped image first.", nil)
	}
	return s.AttachImage(sess, asset.Ref()), nil
}

// AttachImage puts ref on the team form without submitting it.
func (s *Service) AttachImage(sess auth.Session, ref content.ImageRef) workflow.Controller {
	bench := s.workbenches.For(sess.ID)
	bench.AttachImage(ref)
	return bench.Team
}

// StartUpload opens a crop pipeline on an uploaded file. A file that cannot
// be opened leaves no pipeline behind and no id is returned.
func (s *Service) StartUpload(sess auth.Session, filename string, file io.Reader) (string, media.View, error) {
	id, pipeline := s.uploads.Start(sess.ID)
	if err := pipeline.SelectFile(filename, file); err != nil {
		view := pipeline.Snapshot()
		s.uploads.Discard(sess.ID, id)
		return "", view, err
	}
	return id, pipeline.Snapshot(), nil
}

func (s *Service) Upload(sess auth.Session, id string) (*media.Pipeline, error) {
	pipeline, ok := s.uploads.Get(sess.ID, id)
	if !ok {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Upload not found", nil)
	}
	return pipeline, nil
}

func (s *Service) DiscardUpload(sess auth.Session, id string) error {
	if !s.uploads.Discard(sess.ID, id) {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Upload not found", nil)
	}
	return nil
}

// RelayUpload sends an image to the CDN unchanged.
func (s *Service) RelayUpload(ctx context.Context, upload media.Upload) (media.Asset, error) {
	if s.uploader == nil {
		return media.Asset{}, media.ErrUploaderNotConfigured
	}
	if strings.TrimSpace(upload.Folder) == "" {
		upload.Folder = s.uploadFolder()
	}
	return s.uploader.Upload(ctx, upload)
}

func (s *Service) uploadFolder() string {
	if folder := strings.TrimSpace(s.cfg.UploadFolder); folder != "" {
		return folder
	}
	return media.DefaultFolder
}

func (s *Service) History(kind content.Kind, id string, limit int) ([]history.Commit, error) {
	return s.history.Log(kind, id, limit)
}

func (s *Service) HistorySnapshot(hash, collection, id string) (json.RawMessage, error) {
	kind, err := content.ParseKind(collection)
	if err != nil {
		return nil, err
	}
	return s.history.Snapshot(hash, kind, id)
}

// InvalidateContent makes the next public read fetch from the database.
func (s *Service) InvalidateContent(ctx context.Context) {
	s.content.Invalidate()
	go s.search.Reindex(context.WithoutCancel(ctx), s.content)
}

// Seed copies the bundled defaults into every empty collection, keeping the
// bundled ids. A dry run only counts.
func (s *Service) Seed(ctx context.Context, dryRun bool) (map[content.Kind]int, error) {
	if s.store == nil {
		return nil, repository.ErrNotConfigured
	}
	defaults := content.Defaults()
	seeded := make(map[content.Kind]int, len(content.Kinds()))
	for _, kind := range content.Kinds() {
		existing, err := s.store.ListDocuments(ctx, string(kind))
		if err != nil {
			return seeded, fmt.Errorf("list %s: %w", kind, err)
		}
		if len(existing) > 0 {
			log.Printf("seed: %s already has %d records, skipping", kind, len(existing))
			continue
		}
		records, err := seedRecords(defaults, kind)
		if err != nil {
			return seeded, err
		}
		for _, record := range records {
			if !dryRun {
				if err := s.store.PutDocument(ctx, string(kind), record.id, record.body); err != nil {
					return seeded, fmt.Errorf("seed %s %s: %w", kind, record.id, err)
				}
			}
			seeded[kind]++
		}
	}
	if !dryRun {
		s.content.Invalidate()
	}
	return seeded, nil
}

type seedRecord struct {
	id   string
	body json.RawMessage
}

func seedRecords(bundle content.Bundle, kind content.Kind) ([]seedRecord, error) {
	switch kind {
	case content.KindServices:
		return encodeRecords(bundle.Services)
	case content.KindProjects:
		return encodeRecords(bundle.Projects)
	case content.KindTeam:
		return encodeRecords(bundle.Team)
	case content.KindTechStack:
		return encodeRecords(bundle.TechStack)
	}
	return nil, fmt.Errorf("%w: %q", content.ErrUnknownKind, kind)
}

func encodeRecords[E content.Entity](items []E) ([]seedRecord, error) {
	records := make([]seedRecord, 0, len(items))
	for _, item := range items {
		body, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", item.Kind(), item.EntityID(), err)
		}
		records = append(records, seedRecord{id: item.EntityID(), body: body})
	}
	return records, nil
}
