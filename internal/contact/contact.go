// Package contact accepts project inquiries from the public contact form.
package contact

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"cognetex/api/internal/email"
	"cognetex/api/internal/store"
	"cognetex/api/internal/util"
)

const (
	msgRequired = "REQUIRED_FIELD"
	msgInvalid  = "INVALID_FORMAT"
)

var (
	ProjectTypes = []string{"AI Integration", "Full Stack Build", "Consultation"}
	Budgets      = []string{"<$10k", "$10k-$50k", "$50k+"}
)

type Inquiry struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	ProjectType string `json:"projectType"`
	Budget      string `json:"budget"`
	Message     string `json:"message,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "invalid inquiry: " + strings.Join(parts, "; ")
}

// Normalize trims every field. The email address is reduced to its bare
// address form.
func (i Inquiry) Normalize() Inquiry {
	i.Name = strings.TrimSpace(i.Name)
	i.Email = strings.TrimSpace(i.Email)
	i.ProjectType = strings.TrimSpace(i.ProjectType)
	i.Budget = strings.TrimSpace(i.Budget)
	i.Message = strings.TrimSpace(i.Message)
	if addr, err := mail.ParseAddress(i.Email); err == nil {
		i.Email = addr.Address
	}
	return i
}

// Validate expects a normalized inquiry.
func (i Inquiry) Validate() error {
	var fields []FieldError
	if utf8.RuneCountInString(i.Name) < 2 {
		fields = append(fields, FieldError{Field: "name", Message: msgRequired})
	}
	if addr, err := mail.ParseAddress(i.Email); err != nil || addr.Address != i.Email || !strings.Contains(i.Email, "@") {
		fields = append(fields, FieldError{Field: "email", Message: msgInvalid})
	}
	if !oneOf(i.ProjectType, ProjectTypes) {
		fields = append(fields, FieldError{Field: "projectType", Message: msgInvalid})
	}
	if !oneOf(i.Budget, Budgets) {
		fields = append(fields, FieldError{Field: "budget", Message: msgInvalid})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func oneOf(value string, options []string) bool {
	for _, option := range options {
		if value == option {
			return true
		}
	}
	return false
}

type InquiryStore interface {
	InsertInquiry(ctx context.Context, inquiry store.ContactInquiry) (store.ContactInquiry, error)
}

type Notifier interface {
	IsConfigured() bool
	SendInquiryNotification(to string, data email.InquiryData) error
}

// Receipt reports where an accepted inquiry went.
type Receipt struct {
	ID         string    `json:"id"`
	Stored     bool      `json:"stored"`
	Notified   bool      `json:"notified"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type Service struct {
	store     InquiryStore
	notifier  Notifier
	recipient string
	now       func() time.Time
}

// NewService accepts a nil store and a nil notifier; an inquiry that can go
// nowhere is logged.
func NewService(inquiries InquiryStore, notifier Notifier, recipient string) *Service {
	return &Service{store: inquiries, notifier: notifier, recipient: strings.TrimSpace(recipient), now: time.Now}
}

// Submit validates and records an inquiry. A storage failure fails the
// submission; a notification failure is logged only.
func (s *Service) Submit(ctx context.Context, inquiry Inquiry) (Receipt, error) {
	inquiry = inquiry.Normalize()
	if err := inquiry.Validate(); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{ID: util.NewID("inq"), ReceivedAt: s.now().UTC()}
	if s.store != nil {
		saved, err := s.store.InsertInquiry(ctx, store.ContactInquiry{
			ID:          receipt.ID,
			Name:        inquiry.Name,
			Email:       inquiry.Email,
			ProjectType: inquiry.ProjectType,
			Budget:      inquiry.Budget,
			Message:     inquiry.Message,
		})
		if err != nil {
			return Receipt{}, fmt.Errorf("store inquiry: %w", err)
		}
		receipt.Stored = true
		if !saved.CreatedAt.IsZero() {
			receipt.ReceivedAt = saved.CreatedAt.UTC()
		}
	}

	if s.notifier != nil && s.notifier.IsConfigured() && s.recipient != "" {
		err := s.notifier.SendInquiryNotification(s.recipient, email.InquiryData{
			Name:        inquiry.Name,
			Email:       inquiry.Email,
			ProjectType: inquiry.ProjectType,
			Budget:      inquiry.Budget,
			Message:     inquiry.Message,
			SubmittedAt: receipt.ReceivedAt,
		})
		if err != nil {
			log.Printf("contact: notify %s failed: %v", receipt.ID, err)
		} else {
			receipt.Notified = true
		}
	}

	if !receipt.Stored && !receipt.Notified {
		log.Printf("contact: inquiry %s from %s <%s> (%s, %s) not stored or sent", receipt.ID, inquiry.Name, inquiry.Email, inquiry.ProjectType, inquiry.Budget)
	}
	return receipt, nil
}
