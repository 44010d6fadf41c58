// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// PublishState represents the lifecycle state of a document. The two
// deleted variants record who soft-deleted the document; only one of
// them applies at a time.
type PublishState string

const (
	PublishStatePublished    PublishState = "published"
	PublishStateUnpublished  PublishState = "unpublished"
	PublishStatePrivate      PublishState = "private"
	PublishStateDeletedAdmin PublishState = "deleted-admin"
	PublishStateDeletedUser  PublishState = "deleted-user"
)

// ValidPublishStates returns the closed set of publish states, deleted
// variants included. Callers must not mutate the returned slice.
func ValidPublishStates() []PublishState {
	return []PublishState{
		PublishStatePublished,
		PublishStateUnpublished,
		PublishStatePrivate,
		PublishStateDeletedAdmin,
		PublishStateDeletedUser,
	}
}

// IsValidPublishState reports whether s is a member of the publish-state enum.
func IsValidPublishState(s PublishState) bool {
	for _, v := range ValidPublishStates() {
		if v == s {
			return true
		}
	}
	return false
}

// DiscussionState controls whether a document accepts public discussion.
type DiscussionState string

const (
	DiscussionStateOpen   DiscussionState = "open"
	DiscussionStateClosed DiscussionState = "closed"
	DiscussionStateHidden DiscussionState = "hidden"
)

// ValidDiscussionStates returns the closed set of discussion states.
func ValidDiscussionStates() []DiscussionState {
	return []DiscussionState{
		DiscussionStateOpen,
		DiscussionStateClosed,
		DiscussionStateHidden,
	}
}

// IsValidDiscussionState reports whether s is a member of the
// discussion-state enum.
func IsValidDiscussionState(s DiscussionState) bool {
	for _, v := range ValidDiscussionStates() {
		if v == s {
			return true
		}
	}
	return false
}

// Document represents a publishable document owned by one or more sponsors.
type Document struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	PublishState    PublishState    `json:"publish_state"`
	DiscussionState DiscussionState `json:"discussion_state"`
	IntroText       *string         `json:"intro_text,omitempty"`
	IsTemplate      bool            `json:"is_template"`
	SponsorIDs      []uuid.UUID     `json:"sponsor_ids,omitempty"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsDeleted returns true if the document is in either deleted variant.
func (d *Document) IsDeleted() bool {
	return d.PublishState == PublishStateDeletedAdmin ||
		d.PublishState == PublishStateDeletedUser
}

// IsPublished returns true if the document is publicly visible.
func (d *Document) IsPublished() bool {
	return d.PublishState == PublishStatePublished
}

// DocumentPage is one page of a document's body. Pages are numbered from 1
// and page numbers are never reused or renumbered.
type DocumentPage struct {
	ID         uuid.UUID  `json:"id"`
	DocumentID uuid.UUID  `json:"document_id"`
	Page       int        `json:"page"`
	Content    string     `json:"content"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// DocumentMeta is a key/value entry scoped to a document and optionally a
// user. Support votes are meta rows with key "support"; absence of a row
// means the user holds no opinion.
type DocumentMeta struct {
	ID         uuid.UUID  `json:"id"`
	DocumentID uuid.UUID  `json:"document_id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Key        string     `json:"key"`
	Value      string     `json:"value"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MetaKeySupport is the meta key under which support votes are stored.
const MetaKeySupport = "support"

// Annotation is an inline note attached to a document. Annotations are
// created and moderated elsewhere; the lifecycle manager only cascades
// soft-delete and restore through them.
type Annotation struct {
	ID         uuid.UUID  `json:"id"`
	DocumentID uuid.UUID  `json:"document_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Quote      string     `json:"quote"`
	Comment    string     `json:"comment"`
	Hidden     bool       `json:"hidden"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
