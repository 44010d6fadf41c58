// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package lifecycle implements the document state machine: create,
// update with the one-time publish transition, the two soft-delete
// variants with their cascades, guarded restore, page appending, and the
// support vote toggle. Every transition is an explicit call; nothing
// moves a document between states implicitly.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"civicdocs/internal/events"
	"civicdocs/internal/models"
	"civicdocs/internal/slug"
	"civicdocs/internal/store"
)

// maxSlugAttempts bounds how many random suffixes are tried before a
// title is rejected as invalid.
const maxSlugAttempts = 10

// initialPageContent is the placeholder body of a new document's first page.
const initialPageContent = "New Document Content"

// ActivityTracker is the engagement-score collaborator. May be nil when
// activity tracking is not configured.
type ActivityTracker interface {
	Touch(ctx context.Context, docID uuid.UUID, delta float64)
	Forget(ctx context.Context, docID uuid.UUID)
}

// Service is the lifecycle manager.
type Service struct {
	docs    *store.DocumentStore
	pages   *store.PageStore
	votes   *store.SupportStore
	sink    events.Sink
	tracker ActivityTracker
}

// NewService wires the lifecycle manager. tracker may be nil.
func NewService(docs *store.DocumentStore, pages *store.PageStore, votes *store.SupportStore, sink events.Sink, tracker ActivityTracker) *Service {
	return &Service{docs: docs, pages: pages, votes: votes, sink: sink, tracker: tracker}
}

// Create makes a new unpublished document owned by the given sponsor,
// with a slug derived from the title and one placeholder first page.
//
// When the plain slug is taken, random 8-character suffixes are tried up
// to maxSlugAttempts times. The pre-check keeps the common path cheap,
// but the insert is the authority: a unique violation at insert time —
// a concurrent create won the slug — draws a fresh suffix and retries
// instead of surfacing raw.
func (s *Service) Create(ctx context.Context, title string, sponsorID uuid.UUID) (*models.Document, error) {
	base := slug.Generate(title)
	if base == "" {
		return nil, &models.ValidationError{Message: "title invalid"}
	}

	candidate := base
	taken, err := s.docs.SlugExists(candidate)
	if err != nil {
		return nil, err
	}
	if taken {
		found := false
		for i := 0; i < maxSlugAttempts; i++ {
			candidate = slug.WithRandomSuffix(base)
			taken, err = s.docs.SlugExists(candidate)
			if err != nil {
				return nil, err
			}
			if !taken {
				found = true
				break
			}
		}
		if !found {
			return nil, &models.ValidationError{Message: "title invalid"}
		}
	}

	var doc *models.Document
	backoff := retry.WithMaxRetries(maxSlugAttempts, retry.NewConstant(10*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var insertErr error
		doc, insertErr = s.docs.Create(title, candidate, sponsorID, initialPageContent)
		if store.IsUniqueViolation(insertErr) {
			// Lost the slug race after the pre-check; try a new suffix.
			candidate = slug.WithRandomSuffix(base)
			return retry.RetryableError(insertErr)
		}
		return insertErr
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, &models.ValidationError{Message: "title invalid"}
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	return doc, nil
}

// UpdateParams are the optional fields an update may change. Nil fields
// are left untouched.
type UpdateParams struct {
	Title           *string
	PublishState    *models.PublishState
	DiscussionState *models.DiscussionState
	IntroText       *string

	// PageContent replaces the body of page Page (1 when zero).
	Page        int
	PageContent *string
}

// Update applies the given changes. Crossing into the published state
// from any other state emits DocumentPublished once; saves that keep the
// state published emit nothing.
func (s *Service) Update(ctx context.Context, actor *models.User, docID uuid.UUID, p UpdateParams) (*models.Document, error) {
	doc, err := s.docs.FindByID(docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, models.ErrNotFound
	}

	oldState := doc.PublishState

	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.PublishState != nil {
		if !models.IsValidPublishState(*p.PublishState) {
			return nil, &models.ValidationError{Message: fmt.Sprintf("unknown publish state %q", *p.PublishState)}
		}
		doc.PublishState = *p.PublishState
	}
	if p.DiscussionState != nil {
		doc.DiscussionState = *p.DiscussionState
	}
	if p.IntroText != nil {
		doc.IntroText = p.IntroText
	}

	if err := s.docs.Update(doc); err != nil {
		return nil, err
	}

	if oldState != models.PublishStatePublished && doc.PublishState == models.PublishStatePublished {
		s.sink.Publish(ctx, events.DocumentPublished{
			DocumentID: doc.ID,
			Slug:       doc.Slug,
			ActorID:    actor.ID,
			OccurredAt: time.Now(),
		})
	}

	if p.PageContent != nil {
		page := p.Page
		if page < 1 {
			page = 1
		}
		err := s.pages.UpdateContent(doc.ID, page, *p.PageContent)
		if err != nil && err != models.ErrNotFound {
			return nil, err
		}
	}

	return doc, nil
}

// Delete soft-deletes the document, recording who deleted it: admins
// produce the admin-deleted variant, everyone else the user-deleted one.
// Annotations (hidden ones included), metadata and pages are cascaded in
// the same transaction.
func (s *Service) Delete(ctx context.Context, actor *models.User, docID uuid.UUID) error {
	state := models.PublishStateDeletedUser
	if actor.IsAdmin() {
		state = models.PublishStateDeletedAdmin
	}

	if err := s.docs.SoftDelete(docID, state); err != nil {
		return err
	}

	if s.tracker != nil {
		s.tracker.Forget(ctx, docID)
	}
	return nil
}

// Restore un-deletes the document and its cascaded dependents. A document
// deleted by an admin may only be restored by an admin; restore always
// lands in the unpublished state, never the state held before deletion.
func (s *Service) Restore(ctx context.Context, actor *models.User, docID uuid.UUID) (*models.Document, error) {
	doc, err := s.docs.FindByID(docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, models.ErrNotFound
	}

	if doc.PublishState == models.PublishStateDeletedAdmin && !actor.IsAdmin() {
		return nil, models.ErrUnauthorized
	}

	if err := s.docs.Restore(docID); err != nil {
		return nil, err
	}

	return s.docs.FindByID(docID)
}

// AddPage appends a new page numbered one past the document's current
// maximum. Page numbers are never reused or renumbered.
func (s *Service) AddPage(_ context.Context, docID uuid.UUID, content string) (*models.DocumentPage, error) {
	doc, err := s.docs.FindByID(docID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, models.ErrNotFound
	}

	return s.pages.Append(docID, content)
}

// ToggleSupport applies the tri-state support vote transition and emits
// SupportVoteChanged with the before and after values. Casting the same
// vote twice removes it, so the two values always differ.
func (s *Service) ToggleSupport(ctx context.Context, actor *models.User, docID uuid.UUID, support bool) (previous, current *bool, err error) {
	doc, err := s.docs.FindByID(docID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, models.ErrNotFound
	}

	previous, current, err = s.votes.Toggle(docID, actor.ID, support)
	if err != nil {
		return nil, nil, err
	}

	s.sink.Publish(ctx, events.SupportVoteChanged{
		DocumentID: docID,
		ActorID:    actor.ID,
		Previous:   previous,
		Current:    current,
		OccurredAt: time.Now(),
	})

	if s.tracker != nil {
		s.tracker.Touch(ctx, docID, 1)
	}

	return previous, current, nil
}
