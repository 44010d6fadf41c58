// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"civicdocs/internal/models"
	"civicdocs/internal/visibility"
)

// DocumentStore handles all document-related database operations, including
// the compilation of visibility predicates into SQL.
type DocumentStore struct {
	db *sql.DB
}

// NewDocumentStore creates a new DocumentStore with the given database connection.
func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `d.id, d.title, d.slug, d.publish_state, d.discussion_state,
	d.intro_text, d.is_template, d.deleted_at, d.created_at, d.updated_at`

// orderableFields whitelists the columns a listing may order by. Anything
// else falls back to updated_at.
var orderableFields = map[string]string{
	"title":      "d.title",
	"created_at": "d.created_at",
	"updated_at": "d.updated_at",
}

// scanDocument scans a row into a Document struct.
func scanDocument(scanner interface{ Scan(...any) error }) (*models.Document, error) {
	var d models.Document
	err := scanner.Scan(
		&d.ID, &d.Title, &d.Slug, &d.PublishState, &d.DiscussionState,
		&d.IntroText, &d.IsTemplate, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListQuery carries everything the document store needs to execute a
// visibility-scoped listing. Ordering and windowing are ignored by Count.
type ListQuery struct {
	Predicate        visibility.Predicate
	DiscussionStates []models.DiscussionState
	Search           string

	// RestrictIDs limits results to the given document ids when non-nil.
	// Used by the activity strategy.
	RestrictIDs []uuid.UUID

	// OrderBy names a whitelisted column; ByRelevance overrides it and
	// orders by full-text rank against Search.
	OrderBy     string
	OrderDesc   bool
	ByRelevance bool

	Limit  int
	Offset int
}

// whereClause compiles the query's filters into SQL. Templates are always
// excluded, soft-deleted rows only included when the predicate grants a
// deleted state.
func (q ListQuery) whereClause(args *[]any) string {
	var conds []string

	conds = append(conds, "d.is_template = FALSE")

	if !q.Predicate.IncludeDeleted {
		conds = append(conds, "d.deleted_at IS NULL")
	}

	if len(q.DiscussionStates) > 0 {
		var ph []string
		for _, s := range q.DiscussionStates {
			*args = append(*args, string(s))
			ph = append(ph, fmt.Sprintf("$%d", len(*args)))
		}
		conds = append(conds, "d.discussion_state IN ("+strings.Join(ph, ", ")+")")
	}

	if q.Search != "" {
		*args = append(*args, q.Search)
		conds = append(conds, fmt.Sprintf("d.fts @@ plainto_tsquery('english', $%d)", len(*args)))
	}

	if q.RestrictIDs != nil {
		if len(q.RestrictIDs) == 0 {
			conds = append(conds, "FALSE")
		} else {
			var ph []string
			for _, id := range q.RestrictIDs {
				*args = append(*args, id)
				ph = append(ph, fmt.Sprintf("$%d", len(*args)))
			}
			conds = append(conds, "d.id IN ("+strings.Join(ph, ", ")+")")
		}
	}

	conds = append(conds, compilePredicate(q.Predicate, args))

	return strings.Join(conds, "\n		  AND ")
}

// compilePredicate turns a visibility predicate into a disjunction over
// sponsor clauses: one EXISTS-plus-state check per sponsor. An empty
// predicate compiles to FALSE so it matches nothing.
func compilePredicate(p visibility.Predicate, args *[]any) string {
	if p.Empty() {
		return "FALSE"
	}

	var ors []string
	for _, c := range p.Clauses {
		*args = append(*args, c.SponsorID)
		sponsorArg := len(*args)

		var ph []string
		for _, s := range c.States {
			*args = append(*args, string(s))
			ph = append(ph, fmt.Sprintf("$%d", len(*args)))
		}

		ors = append(ors, fmt.Sprintf(
			"(EXISTS (SELECT 1 FROM document_sponsors ds WHERE ds.document_id = d.id AND ds.sponsor_id = $%d) AND d.publish_state IN (%s))",
			sponsorArg, strings.Join(ph, ", ")))
	}

	return "(" + strings.Join(ors, " OR ") + ")"
}

// List executes a visibility-scoped listing query.
func (s *DocumentStore) List(q ListQuery) ([]models.Document, error) {
	var args []any
	where := q.whereClause(&args)

	order := "d.updated_at DESC"
	switch {
	case q.ByRelevance && q.Search != "":
		args = append(args, q.Search)
		order = fmt.Sprintf("ts_rank(d.fts, plainto_tsquery('english', $%d)) DESC", len(args))
	case q.OrderBy != "":
		if col, ok := orderableFields[q.OrderBy]; ok {
			dir := "ASC"
			if q.OrderDesc {
				dir = "DESC"
			}
			order = col + " " + dir
		}
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM documents d
		WHERE %s
		ORDER BY %s`, documentColumns, where, order)

	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf("\n		LIMIT $%d", len(args))
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var items []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}

// Count returns the number of documents matching the query's filters,
// ignoring ordering and windowing. Relevance ranking involves computed
// columns the count must not carry.
func (s *DocumentStore) Count(q ListQuery) (int, error) {
	var args []any
	where := q.whereClause(&args)

	var count int
	err := s.db.QueryRow(fmt.Sprintf(`
		SELECT COUNT(*)
		FROM documents d
		WHERE %s`, where), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// FindByID retrieves a document by id, sponsor ids included. Soft-deleted
// documents are returned as well so lifecycle operations can act on them.
// Returns nil if not found.
func (s *DocumentStore) FindByID(id uuid.UUID) (*models.Document, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM documents d WHERE d.id = $1`, documentColumns), id)

	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find document by id: %w", err)
	}

	if d.SponsorIDs, err = s.sponsorIDs(d.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// FindBySlug retrieves a document by slug, deleted or not. Returns nil if
// not found.
func (s *DocumentStore) FindBySlug(slug string) (*models.Document, error) {
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT %s FROM documents d WHERE d.slug = $1`, documentColumns), slug)

	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find document by slug: %w", err)
	}

	if d.SponsorIDs, err = s.sponsorIDs(d.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// sponsorIDs loads the sponsor ids a document belongs to.
func (s *DocumentStore) sponsorIDs(docID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.Query(`
		SELECT sponsor_id FROM document_sponsors WHERE document_id = $1`, docID)
	if err != nil {
		return nil, fmt.Errorf("document sponsors: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sponsor id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SlugExists reports whether any document, soft-deleted ones included,
// already uses the given slug.
func (s *DocumentStore) SlugExists(slug string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM documents WHERE slug = $1`, slug).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("slug exists: %w", err)
	}
	return n > 0, nil
}

// IsUniqueViolation reports whether err is the Postgres unique-constraint
// violation (23505). The slug pre-check is racy; the insert is the
// authority and this is how a lost race surfaces.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new document in the unpublished state with its sponsor
// association and an initial first page, all in one transaction. A slug
// collision at insert time rolls everything back and surfaces as a
// unique-violation error the caller retries with a fresh suffix.
func (s *DocumentStore) Create(title, slug string, sponsorID uuid.UUID, firstPageContent string) (*models.Document, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("create document: begin: %w", err)
	}
	defer tx.Rollback()

	d := &models.Document{}
	err = tx.QueryRow(`
		INSERT INTO documents (title, slug, publish_state, discussion_state)
		VALUES ($1, $2, 'unpublished', 'open')
		RETURNING id, title, slug, publish_state, discussion_state,
		          intro_text, is_template, deleted_at, created_at, updated_at
	`, title, slug).Scan(
		&d.ID, &d.Title, &d.Slug, &d.PublishState, &d.DiscussionState,
		&d.IntroText, &d.IsTemplate, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO document_sponsors (document_id, sponsor_id) VALUES ($1, $2)
	`, d.ID, sponsorID); err != nil {
		return nil, fmt.Errorf("insert document sponsor: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO document_pages (document_id, page, content) VALUES ($1, 1, $2)
	`, d.ID, firstPageContent); err != nil {
		return nil, fmt.Errorf("insert first page: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create document: commit: %w", err)
	}

	d.SponsorIDs = []uuid.UUID{sponsorID}
	return d, nil
}

// Update persists mutable document fields. The publish-state crossing
// logic lives in the lifecycle service; the store just writes.
func (s *DocumentStore) Update(d *models.Document) error {
	_, err := s.db.Exec(`
		UPDATE documents SET
			title = $1, publish_state = $2, discussion_state = $3,
			intro_text = $4, updated_at = NOW()
		WHERE id = $5
	`, d.Title, d.PublishState, d.DiscussionState, d.IntroText, d.ID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// SetSponsors replaces a document's sponsor associations.
func (s *DocumentStore) SetSponsors(docID uuid.UUID, sponsorIDs []uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("set sponsors: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM document_sponsors WHERE document_id = $1`, docID); err != nil {
		return fmt.Errorf("clear sponsors: %w", err)
	}
	for _, id := range sponsorIDs {
		if _, err := tx.Exec(`
			INSERT INTO document_sponsors (document_id, sponsor_id) VALUES ($1, $2)
		`, docID, id); err != nil {
			return fmt.Errorf("insert sponsor: %w", err)
		}
	}

	return tx.Commit()
}

// SoftDelete marks the document with the given deleted variant and cascades
// the soft delete to its annotations (hidden ones included), metadata and
// pages in a single transaction. A partial cascade is never persisted.
func (s *DocumentStore) SoftDelete(docID uuid.UUID, state models.PublishState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("soft delete: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE documents SET publish_state = $1, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`, state, docID)
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	for _, q := range []string{
		`UPDATE annotations SET deleted_at = NOW(), updated_at = NOW() WHERE document_id = $1 AND deleted_at IS NULL`,
		`UPDATE document_meta SET deleted_at = NOW(), updated_at = NOW() WHERE document_id = $1 AND deleted_at IS NULL`,
		`UPDATE document_pages SET deleted_at = NOW(), updated_at = NOW() WHERE document_id = $1 AND deleted_at IS NULL`,
	} {
		if _, err := tx.Exec(q, docID); err != nil {
			return fmt.Errorf("soft delete cascade: %w", err)
		}
	}

	return tx.Commit()
}

// Restore un-deletes the document and everything the delete cascaded
// through, landing the document in the unpublished state. Re-publishing is
// always an explicit follow-up step.
func (s *DocumentStore) Restore(docID uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("restore: begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`UPDATE document_meta SET deleted_at = NULL, updated_at = NOW() WHERE document_id = $1 AND deleted_at IS NOT NULL`,
		`UPDATE document_pages SET deleted_at = NULL, updated_at = NOW() WHERE document_id = $1 AND deleted_at IS NOT NULL`,
		`UPDATE annotations SET deleted_at = NULL, updated_at = NOW() WHERE document_id = $1 AND deleted_at IS NOT NULL`,
	} {
		if _, err := tx.Exec(q, docID); err != nil {
			return fmt.Errorf("restore cascade: %w", err)
		}
	}

	res, err := tx.Exec(`
		UPDATE documents SET publish_state = 'unpublished', deleted_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, docID)
	if err != nil {
		return fmt.Errorf("restore document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	return tx.Commit()
}
