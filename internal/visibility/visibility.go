// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package visibility computes which documents a viewer is allowed to see.
//
// Anyone can see a sponsor's published documents. Members of a sponsor can
// additionally see that sponsor's documents in every other publish state,
// and admins are treated as members of every sponsor. The package resolves
// a viewer's memberships and compiles the per-sponsor allowed-state sets
// into an immutable Predicate value that the document store translates
// into SQL. Nothing here executes a query.
package visibility

import (
	"github.com/google/uuid"

	"civicdocs/internal/models"
)

// Directory is the sponsor/user membership lookup the resolver needs.
type Directory interface {
	// SponsorIDs returns the ids of all sponsors in the system.
	SponsorIDs() ([]uuid.UUID, error)
	// MemberSponsorIDs returns the ids of the sponsors the user belongs to.
	MemberSponsorIDs(userID uuid.UUID) ([]uuid.UUID, error)
}

// Memberships resolves the set of sponsor ids in which the viewer has full
// visibility. An anonymous viewer gets an empty set, an admin gets every
// sponsor, and everyone else gets the sponsors they are linked to.
func Memberships(dir Directory, viewer *models.User) (map[uuid.UUID]bool, error) {
	member := make(map[uuid.UUID]bool)
	if viewer == nil {
		return member, nil
	}

	var ids []uuid.UUID
	var err error
	if viewer.IsAdmin() {
		ids, err = dir.SponsorIDs()
	} else {
		ids, err = dir.MemberSponsorIDs(viewer.ID)
	}
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		member[id] = true
	}
	return member, nil
}

// Clause grants visibility into one sponsor's documents for a set of
// publish states.
type Clause struct {
	SponsorID uuid.UUID
	States    []models.PublishState
}

// Predicate is the compiled visibility filter: a document is visible iff it
// belongs to some clause's sponsor and its publish state is in that
// clause's state set. An empty predicate matches nothing.
type Predicate struct {
	Clauses []Clause

	// IncludeDeleted instructs the query layer to include soft-deleted
	// rows. Set when any clause grants visibility into a deleted variant.
	IncludeDeleted bool
}

// Empty reports whether the predicate matches no documents at all.
func (p Predicate) Empty() bool {
	return len(p.Clauses) == 0
}

// Matches evaluates the predicate in memory against a document's sponsor
// set and publish state. The store compiles the same semantics to SQL;
// this form exists for tests and callers holding loaded documents.
func (p Predicate) Matches(sponsorIDs []uuid.UUID, state models.PublishState) bool {
	for _, c := range p.Clauses {
		for _, id := range sponsorIDs {
			if id != c.SponsorID {
				continue
			}
			for _, s := range c.States {
				if s == state {
					return true
				}
			}
		}
	}
	return false
}

// StateAll is the sentinel a caller may pass to request every publish
// state, deleted variants included.
const StateAll = "all"

// DefaultStates returns the publish states a listing considers when the
// caller specifies none: every non-deleted state.
func DefaultStates() []models.PublishState {
	return []models.PublishState{
		models.PublishStatePublished,
		models.PublishStateUnpublished,
		models.PublishStatePrivate,
	}
}

// NormalizeStates converts raw requested state strings into the publish
// state set to consider. An empty input yields the defaults, the "all"
// sentinel expands to the full enum, and unknown values are dropped.
func NormalizeStates(raw []string) []models.PublishState {
	if len(raw) == 0 {
		return DefaultStates()
	}

	var states []models.PublishState
	for _, r := range raw {
		if r == StateAll {
			return models.ValidPublishStates()
		}
		s := models.PublishState(r)
		if models.IsValidPublishState(s) {
			states = append(states, s)
		}
	}
	if len(states) == 0 {
		return DefaultStates()
	}
	return states
}

// Build compiles the visibility predicate for the given candidate sponsors,
// requested publish states, and resolved memberships.
//
// For each sponsor the allowed states are the requested set intersected
// with what the viewer may see there: the full enum for sponsors the
// viewer is a member of, only published otherwise. Sponsors whose allowed
// set comes out empty contribute nothing and are dropped.
func Build(sponsorIDs []uuid.UUID, requested []models.PublishState, memberships map[uuid.UUID]bool) Predicate {
	var p Predicate

	for _, sponsorID := range sponsorIDs {
		possible := []models.PublishState{models.PublishStatePublished}
		if memberships[sponsorID] {
			possible = models.ValidPublishStates()
		}

		allowed := intersect(possible, requested)
		if len(allowed) == 0 {
			continue
		}

		p.Clauses = append(p.Clauses, Clause{SponsorID: sponsorID, States: allowed})

		for _, s := range allowed {
			if s == models.PublishStateDeletedAdmin || s == models.PublishStateDeletedUser {
				p.IncludeDeleted = true
			}
		}
	}

	return p
}

// intersect returns the members of a that also appear in b, preserving
// a's order.
func intersect(a, b []models.PublishState) []models.PublishState {
	want := make(map[models.PublishState]bool, len(b))
	for _, s := range b {
		want[s] = true
	}

	var out []models.PublishState
	for _, s := range a {
		if want[s] {
			out = append(out, s)
		}
	}
	return out
}
