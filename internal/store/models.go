package store

import (
	"encoding/json"
	"time"
)

// Document is one record of a content collection. Body holds the record
// fields as a JSON object without the id.
type Document struct {
	ID         string
	Collection string
	Body       json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ContactInquiry struct {
	ID          string
	Name        string
	Email       string
	ProjectType string
	Budget      string
	Message     string
	CreatedAt   time.Time
}

type AdminAccount struct {
	Email        string
	PasswordHash string
	UpdatedAt    time.Time
}
