// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"civicdocs/internal/models"
)

// PageStore manages document pages. Pages are numbered from 1; numbers are
// assigned monotonically and never reused.
type PageStore struct {
	db *sql.DB
}

// NewPageStore returns a new PageStore.
func NewPageStore(db *sql.DB) *PageStore {
	return &PageStore{db: db}
}

const pageColumns = `id, document_id, page, content, deleted_at, created_at, updated_at`

// scanPage scans a row into a DocumentPage struct.
func scanPage(scanner interface{ Scan(...any) error }) (*models.DocumentPage, error) {
	var p models.DocumentPage
	err := scanner.Scan(
		&p.ID, &p.DocumentID, &p.Page, &p.Content,
		&p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByDocument returns the document's non-deleted pages in page order.
func (s *PageStore) ListByDocument(docID uuid.UUID) ([]models.DocumentPage, error) {
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT %s FROM document_pages
		WHERE document_id = $1 AND deleted_at IS NULL
		ORDER BY page`, pageColumns), docID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var items []models.DocumentPage
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// Find retrieves one page of a document by page number. Returns nil if the
// page does not exist or is soft-deleted.
func (s *PageStore) Find(docID uuid.UUID, page int) (*models.DocumentPage, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM document_pages
		WHERE document_id = $1 AND page = $2 AND deleted_at IS NULL`, pageColumns), docID, page)

	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find page: %w", err)
	}
	return p, nil
}

// UpdateContent replaces the content of one page.
func (s *PageStore) UpdateContent(docID uuid.UUID, page int, content string) error {
	res, err := s.db.Exec(`
		UPDATE document_pages SET content = $1, updated_at = NOW()
		WHERE document_id = $2 AND page = $3 AND deleted_at IS NULL
	`, content, docID, page)
	if err != nil {
		return fmt.Errorf("update page content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Append adds a new page numbered one past the current maximum, deleted
// pages included so a number is never handed out twice. The max lookup and
// the insert run in one statement, so concurrent appends serialize on the
// unique (document_id, page) constraint rather than both computing the
// same number.
func (s *PageStore) Append(docID uuid.UUID, content string) (*models.DocumentPage, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		INSERT INTO document_pages (document_id, page, content)
		SELECT $1, COALESCE(MAX(page), 0) + 1, $2
		FROM document_pages WHERE document_id = $1
		RETURNING %s`, pageColumns), docID, content)

	p, err := scanPage(row)
	if err != nil {
		return nil, fmt.Errorf("append page: %w", err)
	}
	return p, nil
}

// MaxPage returns the highest page number ever assigned for the document,
// or 0 when it has no pages.
func (s *PageStore) MaxPage(docID uuid.UUID) (int, error) {
	var max int
	err := s.db.QueryRow(`
		SELECT COALESCE(MAX(page), 0) FROM document_pages WHERE document_id = $1
	`, docID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max page: %w", err)
	}
	return max, nil
}
