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

// SupportStore manages the per-user support/oppose vote on a document.
// A vote is a document_meta row with key "support"; absence of the row is
// the third state, "no opinion".
type SupportStore struct {
	db *sql.DB
}

// NewSupportStore returns a new SupportStore.
func NewSupportStore(db *sql.DB) *SupportStore {
	return &SupportStore{db: db}
}

// metaValue encodes a vote for storage.
func metaValue(support bool) string {
	if support {
		return "1"
	}
	return "0"
}

// Find returns the user's current vote on the document, or nil when they
// hold no opinion.
func (s *SupportStore) Find(docID, userID uuid.UUID) (*bool, error) {
	var raw string
	err := s.db.QueryRow(`
		SELECT meta_value FROM document_meta
		WHERE document_id = $1 AND user_id = $2 AND meta_key = $3 AND deleted_at IS NULL
	`, docID, userID, models.MetaKeySupport).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find support vote: %w", err)
	}

	v := raw == "1"
	return &v, nil
}

// Toggle applies the tri-state vote transition for (document, user):
//
//   - no existing row: create one with the given value
//   - existing row with the same value: delete it (toggle-off)
//   - existing row with the opposite value: flip it
//
// Returns the previous and new values, nil meaning "no opinion". The read
// and the write run in one transaction with the row locked FOR UPDATE, so
// two concurrent identical toggles cannot both delete or both create.
//
// FOR UPDATE cannot lock a row that does not exist yet, so two concurrent
// first votes can both take the insert path; the loser hits the unique
// index and the transaction is retried once, now seeing the winner's row.
func (s *SupportStore) Toggle(docID, userID uuid.UUID, support bool) (previous, current *bool, err error) {
	previous, current, err = s.toggleOnce(docID, userID, support)
	if err != nil && IsUniqueViolation(err) {
		previous, current, err = s.toggleOnce(docID, userID, support)
	}
	return previous, current, err
}

func (s *SupportStore) toggleOnce(docID, userID uuid.UUID, support bool) (previous, current *bool, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("toggle support: begin: %w", err)
	}
	defer tx.Rollback()

	var id uuid.UUID
	var raw string
	err = tx.QueryRow(`
		SELECT id, meta_value FROM document_meta
		WHERE document_id = $1 AND user_id = $2 AND meta_key = $3 AND deleted_at IS NULL
		FOR UPDATE
	`, docID, userID, models.MetaKeySupport).Scan(&id, &raw)

	switch {
	case err == sql.ErrNoRows:
		// First vote.
		if _, err := tx.Exec(`
			INSERT INTO document_meta (document_id, user_id, meta_key, meta_value)
			VALUES ($1, $2, $3, $4)
		`, docID, userID, models.MetaKeySupport, metaValue(support)); err != nil {
			return nil, nil, fmt.Errorf("insert support vote: %w", err)
		}
		current = &support

	case err != nil:
		return nil, nil, fmt.Errorf("lock support vote: %w", err)

	default:
		old := raw == "1"
		previous = &old

		if old == support {
			// Same vote twice removes it entirely.
			if _, err := tx.Exec(`DELETE FROM document_meta WHERE id = $1`, id); err != nil {
				return nil, nil, fmt.Errorf("delete support vote: %w", err)
			}
		} else {
			if _, err := tx.Exec(`
				UPDATE document_meta SET meta_value = $1, updated_at = NOW() WHERE id = $2
			`, metaValue(support), id); err != nil {
				return nil, nil, fmt.Errorf("update support vote: %w", err)
			}
			current = &support
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("toggle support: commit: %w", err)
	}
	return previous, current, nil
}

// Counts returns the document's support and oppose tallies. They are
// recomputed from the rows on every read; nothing is cached or maintained
// incrementally.
func (s *SupportStore) Counts(docID uuid.UUID) (support, oppose int, err error) {
	err = s.db.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE meta_value = '1'),
			COUNT(*) FILTER (WHERE meta_value = '0')
		FROM document_meta
		WHERE document_id = $1 AND meta_key = $2 AND deleted_at IS NULL
	`, docID, models.MetaKeySupport).Scan(&support, &oppose)
	if err != nil {
		return 0, 0, fmt.Errorf("support counts: %w", err)
	}
	return support, oppose, nil
}
