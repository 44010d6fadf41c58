// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// render.go provides a Valkey-backed cache for rendered document pages.
// Converting Markdown with syntax highlighting is the expensive part of
// serving a document, and the output is identical for every viewer, so the
// HTML of each page is cached and reused until the page content changes.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// renderKeyPrefix is the Valkey key prefix for cached page HTML.
	renderKeyPrefix = "render:"

	// DefaultRenderTTL is how long rendered HTML stays cached.
	DefaultRenderTTL = 15 * time.Minute
)

// RenderCache stores rendered document page HTML in Valkey.
type RenderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRenderCache creates a render cache backed by the given Valkey client.
func NewRenderCache(client *redis.Client, ttl time.Duration) *RenderCache {
	if ttl == 0 {
		ttl = DefaultRenderTTL
	}
	return &RenderCache{client: client, ttl: ttl}
}

// pageKey builds the key for one page of one document.
func pageKey(docID uuid.UUID, page int) string {
	return fmt.Sprintf("%s%s:%d", renderKeyPrefix, docID, page)
}

// Get retrieves cached HTML for a document page. Returns false on miss.
func (rc *RenderCache) Get(ctx context.Context, docID uuid.UUID, page int) (string, bool) {
	val, err := rc.client.Get(ctx, pageKey(docID, page)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		slog.Warn("render cache get error", "document", docID, "page", page, "error", err)
		return "", false
	}
	return val, true
}

// Set stores rendered HTML for a document page with the configured TTL.
func (rc *RenderCache) Set(ctx context.Context, docID uuid.UUID, page int, html string) {
	if err := rc.client.Set(ctx, pageKey(docID, page), html, rc.ttl).Err(); err != nil {
		slog.Warn("render cache set error", "document", docID, "page", page, "error", err)
	}
}

// InvalidateDocument removes every cached page of a document. Called when
// page content changes or the document is deleted.
func (rc *RenderCache) InvalidateDocument(ctx context.Context, docID uuid.UUID) {
	pattern := renderKeyPrefix + docID.String() + ":*"
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := rc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("render cache scan error", "document", docID, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("render cache delete error", "document", docID, "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Debug("render cache invalidated", "document", docID, "pages", deleted)
	}
}
