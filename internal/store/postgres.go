package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("database not configured")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) ListDocuments(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, body, created_at, updated_at
		FROM content_documents
		WHERE collection = $1
		ORDER BY created_at, seq
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		var body []byte
		if err := rows.Scan(&item.ID, &item.Collection, &body, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan %s document: %w", collection, err)
		}
		item.Body = json.RawMessage(body)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return items, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	var item Document
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, collection, body, created_at, updated_at
		FROM content_documents
		WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&item.ID, &item.Collection, &body, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	item.Body = json.RawMessage(body)
	return item, nil
}

// InsertDocument stores body under a freshly assigned id.
func (s *PostgresStore) InsertDocument(ctx context.Context, collection string, body json.RawMessage) (string, error) {
	normalized, err := normalizeBody(body)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_documents (collection, id, body)
		VALUES ($1, $2, $3::jsonb)
	`, collection, id, string(normalized))
	if err != nil {
		return "", fmt.Errorf("insert %s document: %w", collection, err)
	}
	return id, nil
}

// PutDocument writes body under a caller chosen id, replacing any existing
// record. Seeding uses it to keep the bundled ids stable.
func (s *PostgresStore) PutDocument(ctx context.Context, collection, id string, body json.RawMessage) error {
	normalized, err := normalizeBody(body)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO content_documents (collection, id, body)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()
	`, collection, id, string(normalized))
	if err != nil {
		return fmt.Errorf("put %s document: %w", collection, err)
	}
	return nil
}

// MergeDocument applies a top-level merge of patch into the stored body.
// A missing record yields sql.ErrNoRows.
func (s *PostgresStore) MergeDocument(ctx context.Context, collection, id string, patch json.RawMessage) error {
	normalized, err := normalizeBody(patch)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE content_documents
		SET body = body || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`, collection, id, string(normalized))
	if err != nil {
		return fmt.Errorf("merge %s document: %w", collection, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("merge %s document: %w", collection, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteDocument removes a record. Deleting a missing id succeeds.
func (s *PostgresStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM content_documents WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		return fmt.Errorf("delete %s document: %w", collection, err)
	}
	return nil
}

func (s *PostgresStore) InsertInquiry(ctx context.Context, inquiry ContactInquiry) (ContactInquiry, error) {
	if inquiry.ID == "" {
		inquiry.ID = uuid.NewString()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO contact_inquiries (id, name, email, project_type, budget, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, inquiry.ID, inquiry.Name, inquiry.Email, inquiry.ProjectType, inquiry.Budget, inquiry.Message).Scan(&inquiry.CreatedAt)
	if err != nil {
		return ContactInquiry{}, fmt.Errorf("insert inquiry: %w", err)
	}
	return inquiry, nil
}

func (s *PostgresStore) ListInquiries(ctx context.Context, limit int) ([]ContactInquiry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, project_type, budget, message, created_at
		FROM contact_inquiries
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	defer rows.Close()

	items := make([]ContactInquiry, 0)
	for rows.Next() {
		var item ContactInquiry
		if err := rows.Scan(&item.ID, &item.Name, &item.Email, &item.ProjectType, &item.Budget, &item.Message, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inquiry: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inquiries: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetAdminAccount(ctx context.Context, email string) (AdminAccount, error) {
	var account AdminAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT email, password_hash, updated_at
		FROM admin_accounts
		WHERE email = LOWER($1)
	`, strings.TrimSpace(email)).Scan(&account.Email, &account.PasswordHash, &account.UpdatedAt)
	if err != nil {
		return AdminAccount{}, err
	}
	return account, nil
}

func (s *PostgresStore) UpsertAdminAccount(ctx context.Context, email, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_accounts (email, password_hash)
		VALUES (LOWER($1), $2)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = NOW()
	`, strings.TrimSpace(email), passwordHash)
	if err != nil {
		return fmt.Errorf("upsert admin account: %w", err)
	}
	return nil
}

// normalizeBody checks that raw is a JSON object and drops any "id" key; the
// id lives beside the body, never inside it.
func normalizeBody(raw json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("document body must be a JSON object: %w", err)
	}
	if fields == nil {
		return nil, errors.New("document body must be a JSON object")
	}
	delete(fields, "id")
	normalized, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode document body: %w", err)
	}
	return normalized, nil
}
