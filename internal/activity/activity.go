// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package activity tracks document engagement and provides the
// activity-based ordering the listing engine offers. Scores live in a
// Valkey sorted set; a document with no score has no computable activity
// and is excluded from activity-ordered listings entirely.
package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"civicdocs/internal/models"
)

// rankKey is the sorted set holding document engagement scores.
const rankKey = "activity:documents"

// Ranker reads and maintains document activity scores.
type Ranker struct {
	client *redis.Client
}

// NewRanker returns a Ranker backed by the given Valkey client.
func NewRanker(client *redis.Client) *Ranker {
	return &Ranker{client: client}
}

// ActiveIDs returns the ids of every document with recorded activity,
// most active first.
func (r *Ranker) ActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	members, err := r.client.ZRevRange(ctx, rankKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("active ids: %w", err)
	}

	var ids []uuid.UUID
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			// A malformed member is operator damage, not a request error.
			slog.Warn("activity rank holds malformed id", "member", m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Sort orders the given documents by their activity rank, most active
// first. Documents without a recorded score sort last in input order.
func (r *Ranker) Sort(ids []uuid.UUID, docs []models.Document) []models.Document {
	rank := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}

	out := make([]models.Document, len(docs))
	copy(out, docs)

	// Insertion sort keeps the input order stable for unranked documents.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(rank, out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func less(rank map[uuid.UUID]int, a, b models.Document) bool {
	ra, oka := rank[a.ID]
	rb, okb := rank[b.ID]
	if oka && okb {
		return ra < rb
	}
	return oka && !okb
}

// Touch raises a document's activity score. Called when discussion
// happens: votes, annotations, comments.
func (r *Ranker) Touch(ctx context.Context, docID uuid.UUID, delta float64) {
	if err := r.client.ZIncrBy(ctx, rankKey, delta, docID.String()).Err(); err != nil {
		slog.Warn("activity touch failed", "document_id", docID, "error", err)
	}
}

// Forget drops a document from the ranking, e.g. when it is soft-deleted.
func (r *Ranker) Forget(ctx context.Context, docID uuid.UUID) {
	if err := r.client.ZRem(ctx, rankKey, docID.String()).Err(); err != nil {
		slog.Warn("activity forget failed", "document_id", docID, "error", err)
	}
}
