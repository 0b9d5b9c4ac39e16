package app

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"cognetex/api/internal/auth"
	"cognetex/api/internal/contact"
	"cognetex/api/internal/content"
	"cognetex/api/internal/media"
	"cognetex/api/internal/search"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleContent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.PublicContent(r.Context()))
}

func (s *HTTPServer) handleContentCollection(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.PublicCollection(r.Context(), chi.URLParam(r, "collection"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *HTTPServer) handleIcons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"icons":    content.Icons(),
		"fallback": content.DefaultIcon,
	})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := search.Query{Text: query.Get("q")}
	if collection := strings.TrimSpace(query.Get("collection")); collection != "" {
		kind, err := content.ParseKind(collection)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		q.Collection = kind
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		q.Limit = limit
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil {
		q.Offset = offset
	}
	writeJSON(w, http.StatusOK, s.service.Search(r.Context(), q))
}

func (s *HTTPServer) handleContact(w http.ResponseWriter, r *http.Request) {
	var body contact.Inquiry
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	receipt, err := s.service.SubmitInquiry(r.Context(), body)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	configured := s.service.AuthConfigured()
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"state": auth.StateUnauthenticated, "email": nil, "configured": configured})
		return
	}
	sess, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"state": auth.StateUnauthenticated, "email": nil, "configured": configured})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":      auth.StateAuthenticated,
		"email":      sess.Email,
		"expiresAt":  sess.ExpiresAt,
		"configured": configured,
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sess, err := s.service.Login(r.Context(), body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrNotConfigured) || errors.Is(err, auth.ErrInvalidCredentials) {
			writeMappedError(w, err)
			return
		}
		log.Printf("auth: login failed: %v", err)
		writeError(w, http.StatusInternalServerError, "LOGIN_FAILED", "Login failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":     auth.StateAuthenticated,
		"token":     sess.Token,
		"email":     sess.Email,
		"expiresAt": sess.ExpiresAt,
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.service.Logout(r.Context(), bearerToken(r))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "state": auth.StateUnauthenticated})
}

// handleUploadRelay uploads one image to the CDN with the server-held
// credentials. GET is a health check.
func (s *HTTPServer) handleUploadRelay(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	case http.MethodPost:
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed.", nil)
		return
	}

	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	if s.service.uploader == nil {
		writeMappedError(w, media.ErrUploaderNotConfigured)
		return
	}

	upload, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	upload.Folder = strings.TrimSpace(r.FormValue("folder"))
	asset, err := s.service.RelayUpload(r.Context(), upload)
	if err != nil {
		log.Printf("media: relay upload %s: %v", upload.Filename, err)
		writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", media.UserMessage(err), nil)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// readUpload reads the multipart "file" part. It writes the error response
// itself and reports false when there is no usable file.
func (s *HTTPServer) readUpload(w http.ResponseWriter, r *http.Request) (media.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Image file is too large.", nil)
			return media.Upload{}, false
		}
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "Missing image file.", nil)
		return media.Upload{}, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "Missing image file.", nil)
		return media.Upload{}, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "Missing image file.", nil)
		return media.Upload{}, false
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return media.Upload{Filename: header.Filename, ContentType: contentType, Data: data}, true
}
