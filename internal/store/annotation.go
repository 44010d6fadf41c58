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

// AnnotationStore manages inline annotations on documents: creation,
// listing for the document payload, and the moderation flag. Rendering
// lives elsewhere.
type AnnotationStore struct {
	db *sql.DB
}

// NewAnnotationStore returns a new AnnotationStore.
func NewAnnotationStore(db *sql.DB) *AnnotationStore {
	return &AnnotationStore{db: db}
}

const annotationColumns = `id, document_id, user_id, quote, comment, hidden, deleted_at, created_at, updated_at`

// Create inserts a new annotation.
func (s *AnnotationStore) Create(docID, userID uuid.UUID, quote, comment string, hidden bool) (*models.Annotation, error) {
	a := &models.Annotation{}
	err := s.db.QueryRow(fmt.Sprintf(`
		INSERT INTO annotations (document_id, user_id, quote, comment, hidden)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, annotationColumns),
		docID, userID, quote, comment, hidden,
	).Scan(
		&a.ID, &a.DocumentID, &a.UserID, &a.Quote, &a.Comment,
		&a.Hidden, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create annotation: %w", err)
	}
	return a, nil
}

// SetHidden flips an annotation's moderation flag. Returns ErrNotFound
// when the annotation does not exist or is soft-deleted.
func (s *AnnotationStore) SetHidden(id uuid.UUID, hidden bool) error {
	res, err := s.db.Exec(`
		UPDATE annotations SET hidden = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, hidden, id)
	if err != nil {
		return fmt.Errorf("set annotation hidden: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListByDocument returns the document's annotations. Hidden and deleted
// rows are excluded unless requested — the delete/restore cascade covers
// them regardless.
func (s *AnnotationStore) ListByDocument(docID uuid.UUID, includeHidden, includeDeleted bool) ([]models.Annotation, error) {
	q := fmt.Sprintf(`SELECT %s FROM annotations WHERE document_id = $1`, annotationColumns)
	if !includeHidden {
		q += ` AND hidden = FALSE`
	}
	if !includeDeleted {
		q += ` AND deleted_at IS NULL`
	}
	q += ` ORDER BY created_at`

	rows, err := s.db.Query(q, docID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var items []models.Annotation
	for rows.Next() {
		var a models.Annotation
		if err := rows.Scan(
			&a.ID, &a.DocumentID, &a.UserID, &a.Quote, &a.Comment,
			&a.Hidden, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
