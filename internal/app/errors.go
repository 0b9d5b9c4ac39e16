package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"cognetex/api/internal/auth"
	"cognetex/api/internal/contact"
	"cognetex/api/internal/content"
	"cognetex/api/internal/history"
	"cognetex/api/internal/media"
	"cognetex/api/internal/repository"
	"cognetex/api/internal/workflow"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validation *content.ValidationError
	if errors.As(err, &validation) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", validation.Fields
	}
	var inquiryErr *contact.ValidationError
	if errors.As(err, &inquiryErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", inquiryErr.Fields
	}
	var remote *media.RemoteError
	if errors.As(err, &remote) {
		return http.StatusBadGateway, "UPLOAD_FAILED", media.UserMessage(err), nil
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, auth.ErrNotConfigured):
		return http.StatusServiceUnavailable, "AUTH_NOT_CONFIGURED", "Admin login is not configured.", nil
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials.", nil
	case errors.Is(err, repository.ErrNotConfigured):
		return http.StatusServiceUnavailable, "DATABASE_NOT_CONFIGURED", "The content database is not configured.", nil
	case errors.Is(err, repository.ErrKindMismatch):
		return http.StatusBadRequest, "KIND_MISMATCH", "Payload does not match the collection", nil
	case errors.Is(err, content.ErrUnknownKind):
		return http.StatusNotFound, "UNKNOWN_COLLECTION", "Unknown collection", nil
	case errors.Is(err, workflow.ErrSaving):
		return http.StatusConflict, "SAVE_IN_PROGRESS", "A save is already in progress.", nil
	case errors.Is(err, workflow.ErrUnknownEntity):
		return http.StatusNotFound, "NOT_FOUND", "Record not found", nil
	case errors.Is(err, workflow.ErrInvalidValues):
		return http.StatusBadRequest, "INVALID_BODY", "Form values could not be read", nil
	case errors.Is(err, media.ErrNoCrop):
		return http.StatusUnprocessableEntity, "NO_CROP", "Select a crop area first.", nil
	case errors.Is(err, media.ErrTooManyPixels):
		return http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE", "Image is too large.", nil
	case errors.Is(err, media.ErrDecode):
		return http.StatusUnprocessableEntity, "INVALID_IMAGE", "Could not read image file.", nil
	case errors.Is(err, media.ErrNoSurface):
		return http.StatusUnprocessableEntity, "EMPTY_CROP", "The crop area is empty.", nil
	case errors.Is(err, media.ErrInvalidState), errors.Is(err, media.ErrCancelled):
		return http.StatusConflict, "INVALID_STATE", "That step is not available right now.", nil
	case errors.Is(err, media.ErrUploaderNotConfigured):
		return http.StatusInternalServerError, "UPLOAD_NOT_CONFIGURED", "Missing image CDN credentials.", nil
	case errors.Is(err, history.ErrDisabled):
		return http.StatusServiceUnavailable, "HISTORY_NOT_CONFIGURED", "Content history is not configured.", nil
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Record not present in that revision", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
