// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"civicdocs/internal/database"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "civicdocs")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "civicdocs")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	// Run migrations to ensure the schema is current.
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanUsers removes test users by email. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec("DELETE FROM users WHERE email = $1", email)
	}
}

// cleanDocuments removes test documents by slug; child rows cascade.
// Call in t.Cleanup().
func cleanDocuments(t *testing.T, db *sql.DB, slugs ...string) {
	t.Helper()
	for _, slug := range slugs {
		db.Exec("DELETE FROM documents WHERE slug = $1", slug)
	}
}

// cleanSponsors removes test sponsors by slug. Call in t.Cleanup().
func cleanSponsors(t *testing.T, db *sql.DB, slugs ...string) {
	t.Helper()
	for _, slug := range slugs {
		db.Exec("DELETE FROM sponsors WHERE slug = $1", slug)
	}
}

// testUserID inserts a throwaway user and returns its ID. The row is
// removed when the test finishes.
func testUserID(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	email := "test-" + uuid.NewString()[:8] + "@example.com"
	t.Cleanup(func() { cleanUsers(t, db, email) })

	var id uuid.UUID
	err := db.QueryRow(
		"INSERT INTO users (email, password_hash, display_name) VALUES ($1, 'x', 'Test User') RETURNING id",
		email,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert test user: %v", err)
	}
	return id
}

// testSponsorID inserts a throwaway active sponsor and returns its ID.
func testSponsorID(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	slug := "test-sponsor-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanSponsors(t, db, slug) })

	var id uuid.UUID
	err := db.QueryRow(
		"INSERT INTO sponsors (name, slug) VALUES ('Test Sponsor', $1) RETURNING id",
		slug,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert test sponsor: %v", err)
	}
	return id
}
