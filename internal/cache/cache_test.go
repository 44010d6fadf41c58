// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client for tests.
// Skips if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "render:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestConnectValkey(t *testing.T) {
	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client, err := ConnectValkey(host, port, "")
	if err != nil {
		t.Skipf("skipping: Valkey not available: %v", err)
	}
	defer client.Close()

	// Verify connection.
	ctx := context.Background()
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if pong != "PONG" {
		t.Errorf("expected PONG, got %q", pong)
	}
}

func TestRenderCacheSetAndGet(t *testing.T) {
	client := testValkeyClient(t)
	rc := NewRenderCache(client, 1*time.Minute)

	ctx := context.Background()
	docID := uuid.New()

	// Miss.
	html, ok := rc.Get(ctx, docID, 1)
	if ok {
		t.Error("expected cache miss")
	}
	if html != "" {
		t.Error("expected empty HTML on miss")
	}

	// Set.
	rendered := "<h1>Section One</h1><p>Body text.</p>"
	rc.Set(ctx, docID, 1, rendered)

	// Hit.
	html, ok = rc.Get(ctx, docID, 1)
	if !ok {
		t.Error("expected cache hit")
	}
	if html != rendered {
		t.Errorf("HTML mismatch: got %q, want %q", html, rendered)
	}

	// A different page of the same document is still a miss.
	if _, ok := rc.Get(ctx, docID, 2); ok {
		t.Error("expected miss for uncached page")
	}
}

func TestRenderCacheInvalidateDocument(t *testing.T) {
	client := testValkeyClient(t)
	rc := NewRenderCache(client, 1*time.Minute)

	ctx := context.Background()
	docID := uuid.New()
	otherID := uuid.New()

	rc.Set(ctx, docID, 1, "<p>one</p>")
	rc.Set(ctx, docID, 2, "<p>two</p>")
	rc.Set(ctx, otherID, 1, "<p>other</p>")

	rc.InvalidateDocument(ctx, docID)

	for _, page := range []int{1, 2} {
		if _, ok := rc.Get(ctx, docID, page); ok {
			t.Errorf("expected miss for page %d after invalidation", page)
		}
	}

	// Other documents are untouched.
	if _, ok := rc.Get(ctx, otherID, 1); !ok {
		t.Error("expected other document's pages to survive invalidation")
	}
}

func TestNewRenderCacheDefaultTTL(t *testing.T) {
	client := testValkeyClient(t)

	// TTL = 0 should use default.
	rc := NewRenderCache(client, 0)
	if rc.ttl != DefaultRenderTTL {
		t.Errorf("expected DefaultRenderTTL (%v), got %v", DefaultRenderTTL, rc.ttl)
	}
}
