// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package flash provides per-session user-facing notifications, stored in
// Valkey and drained on the next read. The listing engine uses it to warn
// about degraded requests, e.g. relevance ordering without a search term.
package flash

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix namespaces flash keys in Valkey.
	keyPrefix = "flash:"

	// ttl bounds how long an undelivered notification survives.
	ttl = 15 * time.Minute
)

// Level classifies a notification for display.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Message is one user-facing notification.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Notifier accepts user-facing notifications keyed by session.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, level Level, text string)
}

// Store is a Valkey-backed Notifier. Messages accumulate in a list per
// session and are drained in order.
type Store struct {
	client *redis.Client
}

// NewStore returns a flash store backed by the given Valkey client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Notify appends a notification for the session. Failures are logged and
// dropped; flash messages are best-effort.
func (s *Store) Notify(ctx context.Context, sessionID string, level Level, text string) {
	if sessionID == "" {
		return
	}

	payload, err := json.Marshal(Message{Level: level, Text: text})
	if err != nil {
		slog.Error("flash marshal failed", "error", err)
		return
	}

	key := keyPrefix + sessionID
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("flash store failed", "error", err)
	}
}

// Drain returns and removes all pending notifications for the session.
func (s *Store) Drain(ctx context.Context, sessionID string) ([]Message, error) {
	if sessionID == "" {
		return nil, nil
	}

	key := keyPrefix + sessionID
	pipe := s.client.TxPipeline()
	items := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("flash drain: %w", err)
	}

	var msgs []Message
	for _, raw := range items.Val() {
		var m Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			slog.Warn("flash unmarshal failed", "error", err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Recorder is an in-memory Notifier for tests.
type Recorder struct {
	Messages []Message
}

// Notify records the notification.
func (r *Recorder) Notify(_ context.Context, _ string, level Level, text string) {
	r.Messages = append(r.Messages, Message{Level: level, Text: text})
}
