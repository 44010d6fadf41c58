// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package listing orchestrates access-control-aware document listings.
//
// A request names sponsors, publish states, discussion states, a search
// term, an ordering and a page window. The orchestrator resolves the
// viewer's memberships, compiles the visibility predicate, picks one of
// two ranking strategies — database ordering (field or full-text
// relevance) or external activity ranking — and returns a uniform page
// result whichever path ran. The listing path is forgiving: malformed
// paging or unknown sort fields degrade to defaults, they never error.
package listing

import (
	"context"

	"github.com/google/uuid"

	"civicdocs/internal/flash"
	"civicdocs/internal/models"
	"civicdocs/internal/store"
	"civicdocs/internal/visibility"
)

// DefaultLimit is the page size used when the caller supplies none.
const DefaultLimit = 12

// Ordering sentinels beyond plain column names.
const (
	OrderActivity  = "activity"
	OrderRelevance = "relevance"
)

// RelevanceWarning is surfaced when relevance ordering is requested
// without a search term.
const RelevanceWarning = "Relevance ordering requires a search term; showing most recently updated instead."

// DocumentSource is the filtered document query collaborator.
type DocumentSource interface {
	List(q store.ListQuery) ([]models.Document, error)
	Count(q store.ListQuery) (int, error)
}

// ActivityRanker supplies the externally computed activity ordering.
type ActivityRanker interface {
	ActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	Sort(ids []uuid.UUID, docs []models.Document) []models.Document
}

// Service is the listing orchestrator.
type Service struct {
	docs     DocumentSource
	dir      visibility.Directory
	ranker   ActivityRanker
	notifier flash.Notifier
}

// NewService wires the orchestrator's collaborators.
func NewService(docs DocumentSource, dir visibility.Directory, ranker ActivityRanker, notifier flash.Notifier) *Service {
	return &Service{docs: docs, dir: dir, ranker: ranker, notifier: notifier}
}

// Params are the listing request inputs. All fields are optional; zero
// values select the documented defaults.
type Params struct {
	OrderField       string // column name, "activity", "relevance", or empty
	OrderDir         string // "asc" or "desc"; default desc
	DiscussionStates []string
	Search           string
	SponsorIDs       []uuid.UUID // empty = all sponsors
	PublishStates    []string    // empty = non-deleted defaults; "all" = full enum
	Page             int
	Limit            int

	// SessionID routes user-facing warnings to the caller's session.
	SessionID string
}

// Page is the uniform paginated result both strategies produce.
type Page struct {
	Items   []models.Document `json:"items"`
	Total   int               `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
}

// List executes a listing request for the given viewer (nil = anonymous).
func (s *Service) List(ctx context.Context, viewer *models.User, p Params) (*Page, error) {
	page, limit := clampPaging(p.Page, p.Limit)

	sponsorIDs := p.SponsorIDs
	if len(sponsorIDs) == 0 {
		var err error
		if sponsorIDs, err = s.dir.SponsorIDs(); err != nil {
			return nil, err
		}
	}

	memberships, err := visibility.Memberships(s.dir, viewer)
	if err != nil {
		return nil, err
	}

	pred := visibility.Build(sponsorIDs, visibility.NormalizeStates(p.PublishStates), memberships)

	q := store.ListQuery{
		Predicate:        pred,
		DiscussionStates: normalizeDiscussion(p.DiscussionStates),
		Search:           p.Search,
	}

	if p.OrderField == OrderActivity {
		return s.listByActivity(ctx, q, page, limit)
	}
	return s.listStandard(ctx, q, p, page, limit)
}

// listStandard counts against the filtered, unordered query, then fetches
// one database-ordered window.
func (s *Service) listStandard(ctx context.Context, q store.ListQuery, p Params, page, limit int) (*Page, error) {
	// The count must ignore ordering entirely: relevance ranking adds
	// computed columns a plain COUNT cannot carry.
	total, err := s.docs.Count(q)
	if err != nil {
		return nil, err
	}

	switch {
	case p.Search != "" && (p.OrderField == "" || p.OrderField == OrderRelevance):
		// A search without an explicit order means order by relevance.
		q.ByRelevance = true
	case p.OrderField == OrderRelevance:
		// Relevance without a search term has no meaning; fall back to
		// newest-updated-first and tell the user.
		s.notifier.Notify(ctx, p.SessionID, flash.LevelWarning, RelevanceWarning)
	default:
		q.OrderBy = p.OrderField
		q.OrderDesc = p.OrderDir != "asc"
	}

	q.Limit = limit
	q.Offset = (page - 1) * limit

	items, err := s.docs.List(q)
	if err != nil {
		return nil, err
	}

	return &Page{Items: items, Total: total, Page: page, PerPage: limit}, nil
}

// listByActivity restricts the query to the activity-eligible documents,
// fetches that set in full, applies the external ordering in memory, and
// windows the ordered sequence. The database cannot express the final
// order, so offset/limit must happen after the sort. The total is the
// count of all activity-eligible ids: documents without computable
// activity are excluded, not sorted last.
func (s *Service) listByActivity(ctx context.Context, q store.ListQuery, page, limit int) (*Page, error) {
	ids, err := s.ranker.ActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	if ids == nil {
		ids = []uuid.UUID{}
	}
	q.RestrictIDs = ids

	docs, err := s.docs.List(q)
	if err != nil {
		return nil, err
	}

	ordered := s.ranker.Sort(ids, docs)

	start := (page - 1) * limit
	if start > len(ordered) {
		start = len(ordered)
	}
	end := start + limit
	if end > len(ordered) {
		end = len(ordered)
	}

	return &Page{Items: ordered[start:end], Total: len(ids), Page: page, PerPage: limit}, nil
}

// clampPaging replaces non-positive paging inputs with the defaults.
func clampPaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return page, limit
}

// normalizeDiscussion maps raw discussion-state strings to the enum,
// dropping unknown values.
func normalizeDiscussion(raw []string) []models.DiscussionState {
	var out []models.DiscussionState
	for _, r := range raw {
		s := models.DiscussionState(r)
		for _, v := range models.ValidDiscussionStates() {
			if s == v {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
