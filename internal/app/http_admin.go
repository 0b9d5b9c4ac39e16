package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"cognetex/api/internal/content"
	"cognetex/api/internal/media"
	"cognetex/api/internal/workflow"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleAdminOverview(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	overview, err := s.service.AdminOverview(r.Context(), sess)
	response := map[string]any{"email": sess.Email, "forms": overview}
	if err != nil {
		response["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.service.InvalidateContent(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var kind content.Kind
	if collection := strings.TrimSpace(query.Get("collection")); collection != "" {
		parsed, err := content.ParseKind(collection)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		kind = parsed
	}
	id := strings.TrimSpace(query.Get("id"))
	if id != "" && kind == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "collection is required with id", nil)
		return
	}
	limit := 50
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer", nil)
			return
		}
		limit = min(parsed, 500)
	}

	commits, err := s.service.History(kind, id, limit)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": commits})
}

func (s *HTTPServer) handleHistorySnapshot(w http.ResponseWriter, r *http.Request) {
	body, err := s.service.HistorySnapshot(
		chi.URLParam(r, "hash"),
		chi.URLParam(r, "collection"),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hash": chi.URLParam(r, "hash"), "document": body})
}

func (s *HTTPServer) handleInquiries(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if parsed, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && parsed > 0 {
		limit = min(parsed, 500)
	}
	items, err := s.service.ListInquiries(r.Context(), limit)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *HTTPServer) handleUploadStart(w http.ResponseWriter, r *http.Request) {
	upload, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	id, view, err := s.service.StartUpload(sessionFrom(r.Context()), upload.Filename, bytes.NewReader(upload.Data))
	if err != nil {
		writeUploadResult(w, http.StatusCreated, id, view, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "upload": view})
}

func (s *HTTPServer) handleUploadGet(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := s.pipeline(w, r)
	if !ok {
		return
	}
	writeUploadResult(w, http.StatusOK, chi.URLParam(r, "uploadID"), pipeline.Snapshot(), nil)
}

type cropRequest struct {
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	UseSuggested  bool    `json:"useSuggested"`
}

func (s *HTTPServer) handleUploadCrop(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := s.pipeline(w, r)
	if !ok {
		return
	}
	var body cropRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	id := chi.URLParam(r, "uploadID")
	if body.DisplayWidth > 0 || body.DisplayHeight > 0 {
		size := media.Size{Width: body.DisplayWidth, Height: body.DisplayHeight}
		if err := pipeline.SetDisplaySize(size); err != nil {
			writeUploadResult(w, http.StatusOK, id, pipeline.Snapshot(), err)
			return
		}
	}
	var err error
	if body.UseSuggested {
		_, err = pipeline.AcceptSuggestedCrop()
	} else if body.Width > 0 && body.Height > 0 {
		_, err = pipeline.AdjustCrop(media.Rect{X: body.X, Y: body.Y, Width: body.Width, Height: body.Height})
	}
	writeUploadResult(w, http.StatusOK, id, pipeline.Snapshot(), err)
}

func (s *HTTPServer) handleUploadApply(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := s.pipeline(w, r)
	if !ok {
		return
	}
	err := pipeline.ApplyCrop()
	writeUploadResult(w, http.StatusOK, chi.URLParam(r, "uploadID"), pipeline.Snapshot(), err)
}

func (s *HTTPServer) handleUploadPreview(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := s.pipeline(w, r)
	if !ok {
		return
	}
	preview, err := pipeline.Preview()
	if err != nil {
		writeError(w, http.StatusNotFound, "NO_PREVIEW", "No cropped image yet.", nil)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(preview)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(preview)
}

func (s *HTTPServer) handleUploadSend(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := s.pipeline(w, r)
	if !ok {
		return
	}
	_, err := pipeline.UploadCropped(r.Context())
	writeUploadResult(w, http.StatusOK, chi.URLParam(r, "uploadID"), pipeline.Snapshot(), err)
}

func (s *HTTPServer) handleUploadCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DiscardUpload(sessionFrom(r.Context()), chi.URLParam(r, "uploadID")); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) pipeline(w http.ResponseWriter, r *http.Request) (*media.Pipeline, bool) {
	pipeline, err := s.service.Upload(sessionFrom(r.Context()), chi.URLParam(r, "uploadID"))
	if err != nil {
		writeMappedError(w, err)
		return nil, false
	}
	return pipeline, true
}

// writeUploadResult reports the pipeline after a step. A failed step keeps
// the pipeline's own message and carries its view in the details.
func writeUploadResult(w http.ResponseWriter, status int, id string, view media.View, err error) {
	if err == nil {
		writeJSON(w, status, map[string]any{"id": id, "upload": view})
		return
	}
	errStatus, code, message, _ := mapError(err)
	if view.Error != "" {
		message = view.Error
	}
	if code == "SERVER_ERROR" {
		errStatus, code = http.StatusBadGateway, "UPLOAD_FAILED"
		message = media.UserMessage(err)
	}
	details := map[string]any{"upload": view}
	if id != "" {
		details["id"] = id
	}
	writeError(w, errStatus, code, message, details)
}

type teamImageRequest struct {
	UploadID string            `json:"uploadId"`
	Image    *content.ImageRef `json:"image"`
	ImageURL string            `json:"imageUrl"`
}

func (s *HTTPServer) handleTeamImage(w http.ResponseWriter, r *http.Request) {
	var body teamImageRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess := sessionFrom(r.Context())
	switch {
	case strings.TrimSpace(body.UploadID) != "":
		form, err := s.service.AttachUpload(sess, strings.TrimSpace(body.UploadID))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeFormResult(w, form, nil)
	case body.Image != nil:
		writeFormResult(w, s.service.AttachImage(sess, *body.Image), nil)
	case strings.TrimSpace(body.ImageURL) != "":
		writeFormResult(w, s.service.AttachImage(sess, content.ClassifyImage(body.ImageURL)), nil)
	default:
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "uploadId, image or imageUrl is required", nil)
	}
}

func (s *HTTPServer) form(w http.ResponseWriter, r *http.Request) (workflow.Controller, bool) {
	form, err := s.service.Form(sessionFrom(r.Context()), chi.URLParam(r, "kind"))
	if err != nil {
		writeMappedError(w, err)
		return nil, false
	}
	return form, true
}

func (s *HTTPServer) handleFormGet(w http.ResponseWriter, r *http.Request) {
	form, ok := s.form(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("refresh") == "false" {
		writeFormResult(w, form, nil)
		return
	}
	writeFormResult(w, form, form.Refresh(r.Context()))
}

func (s *HTTPServer) handleFormValues(w http.ResponseWriter, r *http.Request) {
	form, ok := s.form(w, r)
	if !ok {
		return
	}
	var raw json.RawMessage
	if err := decodeBody(r, &raw); err != nil || len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body", nil)
		return
	}
	writeFormResult(w, form, form.SetValuesJSON(raw))
}

func (s *HTTPServer) handleFormEdit(w http.ResponseWriter, r *http.Request) {
	form, ok := s.form(w, r)
	if !ok {
		return
	}
	writeFormResult(w, form, form.SelectByID(r.Context(), chi.URLParam(r, "id")))
}

func (s *HTTPServer) handleFormReset(w http.ResponseWriter, r *http.Request) {
	form, ok := s.form(w, r)
	if !ok {
		return
	}
	form.Reset()
	writeFormResult(w, form, nil)
}

func (s *HTTPServer) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	form, ok := s.form(w, r)
	if !ok {
		return
	}
	writeFormResult(w, form, form.Submit(r.Context()))
}

func (s *HTTPServer) handleFormDelete(w http.ResponseWriter, r *http.Request) {
	form, ok := s.form(w, r)
	if !ok {
		return
	}
	writeFormResult(w, form, form.Delete(r.Context(), chi.URLParam(r, "id")))
}

// writeFormResult answers with the form as it stands. A failed action uses
// the message the form shows the admin.
func writeFormResult(w http.ResponseWriter, form workflow.Controller, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"form": form.Snapshot()})
		return
	}
	status, code, message, fields := mapError(err)
	if shown := form.LastError(); shown != "" {
		message = shown
	}
	if code == "SERVER_ERROR" {
		status, code = http.StatusBadGateway, "WRITE_FAILED"
	}
	details := map[string]any{"form": form.Snapshot()}
	if fields != nil {
		details["fields"] = fields
	}
	writeError(w, status, code, message, details)
}
