// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"civicdocs/internal/activity"
	"civicdocs/internal/cache"
	"civicdocs/internal/database"
	"civicdocs/internal/events"
	"civicdocs/internal/flash"
	"civicdocs/internal/lifecycle"
	"civicdocs/internal/listing"
	"civicdocs/internal/middleware"
	"civicdocs/internal/models"
	"civicdocs/internal/session"
	"civicdocs/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "civicdocs")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "civicdocs")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		// Clean up test session, notice and activity keys.
		for _, pattern := range []string{"session:*", "flash:*", "activity:*", "render:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB          *sql.DB
	Valkey      *redis.Client
	Sessions    *session.Store
	Docs        *store.DocumentStore
	Pages       *store.PageStore
	Votes       *store.SupportStore
	Sponsors    *store.SponsorStore
	Users       *store.UserStore
	Annotations *store.AnnotationStore
	Sink        *events.Recorder
	Lifecycle   *lifecycle.Service
	Listing     *listing.Service
	Documents   *Documents
	Auth        *Auth
}

// newTestEnv creates a complete test environment with all handler dependencies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	sessions := session.NewStore(vk, false)
	docs := store.NewDocumentStore(db)
	pages := store.NewPageStore(db)
	votes := store.NewSupportStore(db)
	sponsors := store.NewSponsorStore(db)
	users := store.NewUserStore(db)
	annotations := store.NewAnnotationStore(db)

	sink := events.NewRecorder()
	ranker := activity.NewRanker(vk)
	flashes := flash.NewStore(vk)

	lifecycleSvc := lifecycle.NewService(docs, pages, votes, sink, ranker)
	listingSvc := listing.NewService(docs, sponsors, ranker, flashes)

	return &testEnv{
		DB:          db,
		Valkey:      vk,
		Sessions:    sessions,
		Docs:        docs,
		Pages:       pages,
		Votes:       votes,
		Sponsors:    sponsors,
		Users:       users,
		Annotations: annotations,
		Sink:        sink,
		Lifecycle:   lifecycleSvc,
		Listing:     listingSvc,
		Documents:   NewDocuments(listingSvc, lifecycleSvc, docs, pages, votes, sponsors, annotations, flashes, cache.NewRenderCache(vk, 0)),
		Auth:        NewAuth(sessions, users),
	}
}

// seedSponsor inserts a throwaway active sponsor.
func seedSponsor(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	sponsorSlug := "test-h-sponsor-" + uuid.NewString()[:8]
	t.Cleanup(func() { db.Exec("DELETE FROM sponsors WHERE slug = $1", sponsorSlug) })

	var id uuid.UUID
	err := db.QueryRow(
		"INSERT INTO sponsors (name, slug) VALUES ('Handler Sponsor', $1) RETURNING id", sponsorSlug,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert sponsor: %v", err)
	}
	return id
}

// seedUser creates a user through the store so the password hash is real.
func seedUser(t *testing.T, env *testEnv, role models.Role) *models.User {
	t.Helper()
	email := "test-h-" + uuid.NewString()[:8] + "@example.com"
	t.Cleanup(func() { env.DB.Exec("DELETE FROM users WHERE email = $1", email) })

	u, err := env.Users.Create(email, "secret123", "Handler User", role)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// sessionData builds session state for a user without a round trip.
func sessionData(u *models.User) *session.Data {
	return &session.Data{
		ID:          "test-session-" + u.ID.String(),
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
	}
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withChiURLParamAndSession adds both chi URL param and session to a request.
func withChiURLParamAndSession(r *http.Request, key, value string, sess *session.Data) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.SessionKey, sess)
	return r.WithContext(ctx)
}

// cleanDocuments removes test documents by slug.
func cleanDocuments(t *testing.T, db *sql.DB, slugs ...string) {
	t.Helper()
	for _, s := range slugs {
		db.Exec("DELETE FROM documents WHERE slug = $1", s)
	}
}
