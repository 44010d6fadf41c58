// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package events defines the domain events the document core emits and the
// sinks that deliver them. Events are fire-and-forget: delivery failure is
// logged, never surfaced to the mutation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the Valkey pub/sub channel document events are published on.
const Channel = "civicdocs:events"

// Event is a domain event with a stable name for consumers to switch on.
type Event interface {
	Name() string
}

// DocumentPublished fires exactly once per crossing into the published
// state. Repeated saves that keep a document published do not re-fire it.
type DocumentPublished struct {
	DocumentID uuid.UUID `json:"document_id"`
	Slug       string    `json:"slug"`
	ActorID    uuid.UUID `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (DocumentPublished) Name() string { return "document.published" }

// SupportVoteChanged fires on every vote transition. Previous and Current
// are nil for the "no opinion" state; by construction they always differ.
type SupportVoteChanged struct {
	DocumentID uuid.UUID `json:"document_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	Previous   *bool     `json:"previous"`
	Current    *bool     `json:"current"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (SupportVoteChanged) Name() string { return "document.support_vote_changed" }

// Sink accepts emitted events.
type Sink interface {
	Publish(ctx context.Context, e Event)
}

// envelope is the wire format published to Valkey.
type envelope struct {
	Name    string `json:"name"`
	Payload Event  `json:"payload"`
}

// ValkeySink publishes events as JSON on a Valkey pub/sub channel, where
// notifier processes (mailers, webhooks) subscribe.
type ValkeySink struct {
	client *redis.Client
}

// NewValkeySink returns a sink publishing on Channel.
func NewValkeySink(client *redis.Client) *ValkeySink {
	return &ValkeySink{client: client}
}

// Publish marshals and publishes the event. Errors are logged and dropped.
func (s *ValkeySink) Publish(ctx context.Context, e Event) {
	payload, err := json.Marshal(envelope{Name: e.Name(), Payload: e})
	if err != nil {
		slog.Error("event marshal failed", "event", e.Name(), "error", err)
		return
	}
	if err := s.client.Publish(ctx, Channel, payload).Err(); err != nil {
		slog.Warn("event publish failed", "event", e.Name(), "error", err)
		return
	}
	slog.Debug("event published", "event", e.Name())
}

// Recorder is an in-memory sink that remembers every event it receives,
// in order. Tests assert against it.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records the event.
func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
