package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data: an admin, a
// regular user who belongs to one sponsor, two sponsors, and a published
// sample document owned by the first sponsor.
func Seed(db *sql.DB) error {
	// Check if any users exist already.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	adminHash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}
	memberHash, err := bcrypt.GenerateFromPassword([]byte("member"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	var adminID, memberID string
	if err := db.QueryRow(`
		INSERT INTO users (email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4) RETURNING id
	`, "admin@civicdocs.local", string(adminHash), "Admin", "admin").Scan(&adminID); err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}
	if err := db.QueryRow(`
		INSERT INTO users (email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4) RETURNING id
	`, "member@civicdocs.local", string(memberHash), "Member", "user").Scan(&memberID); err != nil {
		return fmt.Errorf("seed insert member: %w", err)
	}

	var cityID, libraryID string
	if err := db.QueryRow(`
		INSERT INTO sponsors (name, slug, status)
		VALUES ('City Council', 'city-council', 'active') RETURNING id
	`).Scan(&cityID); err != nil {
		return fmt.Errorf("seed insert sponsor: %w", err)
	}
	if err := db.QueryRow(`
		INSERT INTO sponsors (name, slug, status)
		VALUES ('Library Board', 'library-board', 'active') RETURNING id
	`).Scan(&libraryID); err != nil {
		return fmt.Errorf("seed insert sponsor: %w", err)
	}

	if _, err := db.Exec(`
		INSERT INTO sponsor_members (sponsor_id, user_id) VALUES ($1, $2)
	`, cityID, memberID); err != nil {
		return fmt.Errorf("seed sponsor member: %w", err)
	}

	var docID string
	if err := db.QueryRow(`
		INSERT INTO documents (title, slug, publish_state, discussion_state, intro_text)
		VALUES ('Open Data Ordinance', 'open-data-ordinance', 'published', 'open',
		        'A proposal to publish city datasets under an open license.')
		RETURNING id
	`).Scan(&docID); err != nil {
		return fmt.Errorf("seed insert document: %w", err)
	}
	if _, err := db.Exec(`
		INSERT INTO document_sponsors (document_id, sponsor_id) VALUES ($1, $2)
	`, docID, cityID); err != nil {
		return fmt.Errorf("seed document sponsor: %w", err)
	}
	if _, err := db.Exec(`
		INSERT INTO document_pages (document_id, page, content)
		VALUES ($1, 1, 'Section 1. All non-sensitive datasets shall be published.')
	`, docID); err != nil {
		return fmt.Errorf("seed document page: %w", err)
	}

	slog.Info("database seeded with development data",
		"admin", "admin@civicdocs.local",
		"member", "member@civicdocs.local",
	)

	return nil
}
