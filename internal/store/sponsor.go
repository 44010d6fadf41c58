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

// SponsorStore manages sponsors and their membership rosters. It doubles
// as the membership directory the visibility resolver consumes.
type SponsorStore struct {
	db *sql.DB
}

// NewSponsorStore returns a new SponsorStore.
func NewSponsorStore(db *sql.DB) *SponsorStore {
	return &SponsorStore{db: db}
}

const sponsorColumns = `id, name, slug, status, created_at, updated_at`

// scanSponsor scans a row into a Sponsor struct.
func scanSponsor(scanner interface{ Scan(...any) error }) (*models.Sponsor, error) {
	var sp models.Sponsor
	err := scanner.Scan(&sp.ID, &sp.Name, &sp.Slug, &sp.Status, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// SponsorIDs returns the ids of every sponsor in the system.
func (s *SponsorStore) SponsorIDs() ([]uuid.UUID, error) {
	rows, err := s.db.Query(`SELECT id FROM sponsors`)
	if err != nil {
		return nil, fmt.Errorf("sponsor ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sponsor id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MemberSponsorIDs returns the ids of the sponsors the user is a member of.
func (s *SponsorStore) MemberSponsorIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(`
		SELECT sponsor_id FROM sponsor_members WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("member sponsor ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sponsor id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListActive returns all active sponsors ordered by name. Listing
// responses include them so clients can build sponsor filters.
func (s *SponsorStore) ListActive() ([]models.Sponsor, error) {
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT %s FROM sponsors WHERE status = 'active' ORDER BY name`, sponsorColumns))
	if err != nil {
		return nil, fmt.Errorf("list active sponsors: %w", err)
	}
	defer rows.Close()

	var items []models.Sponsor
	for rows.Next() {
		sp, err := scanSponsor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sponsor: %w", err)
		}
		items = append(items, *sp)
	}
	return items, rows.Err()
}

// FindByID retrieves a sponsor by id. Returns nil if not found.
func (s *SponsorStore) FindByID(id uuid.UUID) (*models.Sponsor, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM sponsors WHERE id = $1`, sponsorColumns), id)

	sp, err := scanSponsor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find sponsor by id: %w", err)
	}
	return sp, nil
}

// Create inserts a new sponsor.
func (s *SponsorStore) Create(name, slug string, status models.SponsorStatus) (*models.Sponsor, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		INSERT INTO sponsors (name, slug, status)
		VALUES ($1, $2, $3)
		RETURNING %s`, sponsorColumns), name, slug, status)

	sp, err := scanSponsor(row)
	if err != nil {
		return nil, fmt.Errorf("create sponsor: %w", err)
	}
	return sp, nil
}

// AddMember links a user to a sponsor. Adding an existing member is a no-op.
func (s *SponsorStore) AddMember(sponsorID, userID uuid.UUID) error {
	_, err := s.db.Exec(`
		INSERT INTO sponsor_members (sponsor_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, sponsorID, userID)
	if err != nil {
		return fmt.Errorf("add sponsor member: %w", err)
	}
	return nil
}

// IsMember reports whether the user belongs to the sponsor.
func (s *SponsorStore) IsMember(sponsorID, userID uuid.UUID) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sponsor_members WHERE sponsor_id = $1 AND user_id = $2
	`, sponsorID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is member: %w", err)
	}
	return n > 0, nil
}
