package store

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"

	"civicdocs/internal/models"
	"civicdocs/internal/visibility"
)

// publishedOnly builds a predicate granting the published state for one sponsor.
func publishedOnly(sponsorID uuid.UUID) visibility.Predicate {
	return visibility.Predicate{Clauses: []visibility.Clause{
		{SponsorID: sponsorID, States: []models.PublishState{models.PublishStatePublished}},
	}}
}

// memberView builds a predicate granting every state for one sponsor.
func memberView(sponsorID uuid.UUID) visibility.Predicate {
	return visibility.Predicate{
		Clauses: []visibility.Clause{
			{SponsorID: sponsorID, States: models.ValidPublishStates()},
		},
		IncludeDeleted: true,
	}
}

// createDoc inserts a document through the store and moves it to the given
// state directly.
func createDoc(t *testing.T, db *sql.DB, s *DocumentStore, title, slug string, sponsorID uuid.UUID, state models.PublishState) *models.Document {
	t.Helper()
	t.Cleanup(func() { cleanDocuments(t, db, slug) })

	doc, err := s.Create(title, slug, sponsorID, "body")
	if err != nil {
		t.Fatalf("Create %q: %v", slug, err)
	}
	if state != models.PublishStateUnpublished {
		if _, err := db.Exec("UPDATE documents SET publish_state = $1 WHERE id = $2", state, doc.ID); err != nil {
			t.Fatalf("set state: %v", err)
		}
		doc.PublishState = state
	}
	return doc
}

func TestDocumentStoreCreateAndFind(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	sponsorID := testSponsorID(t, db)

	slug := "test-doc-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanDocuments(t, db, slug) })

	doc, err := s.Create("Housing Levy", slug, sponsorID, "First page body")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if doc.ID == uuid.Nil {
		t.Error("expected non-nil UUID")
	}
	if doc.PublishState != models.PublishStateUnpublished {
		t.Errorf("publish state: got %q, want %q", doc.PublishState, models.PublishStateUnpublished)
	}
	if doc.DiscussionState != models.DiscussionStateOpen {
		t.Errorf("discussion state: got %q, want %q", doc.DiscussionState, models.DiscussionStateOpen)
	}

	// The sponsor link and first page are part of the same create.
	found, err := s.FindBySlug(slug)
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if found == nil {
		t.Fatal("expected document, got nil")
	}
	if len(found.SponsorIDs) != 1 || found.SponsorIDs[0] != sponsorID {
		t.Errorf("sponsor ids: got %v, want [%s]", found.SponsorIDs, sponsorID)
	}

	var page int
	var content string
	err = db.QueryRow("SELECT page, content FROM document_pages WHERE document_id = $1", doc.ID).Scan(&page, &content)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if page != 1 || content != "First page body" {
		t.Errorf("first page: got (%d, %q)", page, content)
	}
}

func TestDocumentStoreCreateSlugCollision(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	sponsorID := testSponsorID(t, db)

	slug := "test-collide-" + uuid.NewString()[:8]
	t.Cleanup(func() { cleanDocuments(t, db, slug) })

	if _, err := s.Create("First", slug, sponsorID, "a"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := s.Create("Second", slug, sponsorID, "b")
	if err == nil {
		t.Fatal("expected unique violation, got nil")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}

	// The failed insert must not leave partial rows behind.
	var n int
	db.QueryRow("SELECT COUNT(*) FROM documents WHERE slug = $1", slug).Scan(&n)
	if n != 1 {
		t.Errorf("documents with slug: got %d, want 1", n)
	}
}

func TestDocumentStoreListVisibility(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	sponsorA := testSponsorID(t, db)
	sponsorB := testSponsorID(t, db)

	prefix := uuid.NewString()[:8]
	pub := createDoc(t, db, s, "Public Plan", "test-pub-"+prefix, sponsorA, models.PublishStatePublished)
	priv := createDoc(t, db, s, "Private Plan", "test-priv-"+prefix, sponsorA, models.PublishStatePrivate)
	other := createDoc(t, db, s, "Other Plan", "test-other-"+prefix, sponsorB, models.PublishStatePublished)

	inResult := func(items []models.Document, id uuid.UUID) bool {
		for _, d := range items {
			if d.ID == id {
				return true
			}
		}
		return false
	}

	// Outsider view of sponsor A: only the published document.
	items, err := s.List(ListQuery{Predicate: publishedOnly(sponsorA)})
	if err != nil {
		t.Fatalf("List (outsider): %v", err)
	}
	if !inResult(items, pub.ID) {
		t.Error("expected published document in outsider listing")
	}
	if inResult(items, priv.ID) {
		t.Error("private document leaked into outsider listing")
	}
	if inResult(items, other.ID) {
		t.Error("other sponsor's document leaked into listing")
	}

	// Member view of sponsor A: both documents.
	items, err = s.List(ListQuery{Predicate: memberView(sponsorA)})
	if err != nil {
		t.Fatalf("List (member): %v", err)
	}
	if !inResult(items, pub.ID) || !inResult(items, priv.ID) {
		t.Error("expected both sponsor A documents in member listing")
	}

	// Count agrees with the same filters.
	count, err := s.Count(ListQuery{Predicate: publishedOnly(sponsorA)})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count: got %d, want 1", count)
	}
}

func TestDocumentStoreListEmptyPredicate(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	sponsorID := testSponsorID(t, db)

	createDoc(t, db, s, "Invisible", "test-inv-"+uuid.NewString()[:8], sponsorID, models.PublishStatePublished)

	items, err := s.List(ListQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("empty predicate matched %d documents, want 0", len(items))
	}
}

func TestDocumentStoreListRestrictIDs(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	sponsorID := testSponsorID(t, db)

	doc := createDoc(t, db, s, "Ranked", "test-rank-"+uuid.NewString()[:8], sponsorID, models.PublishStatePublished)

	// A non-nil empty restriction matches nothing.
	items, err := s.List(ListQuery{Predicate: publishedOnly(sponsorID), RestrictIDs: []uuid.UUID{}})
	if err != nil {
		t.Fatalf("List (empty restrict): %v", err)
	}
	if len(items) != 0 {
		t.Errorf("empty RestrictIDs matched %d documents, want 0", len(items))
	}

	items, err = s.List(ListQuery{Predicate: publishedOnly(sponsorID), RestrictIDs: []uuid.UUID{doc.ID}})
	if err != nil {
		t.Fatalf("List (restrict): %v", err)
	}
	if len(items) != 1 || items[0].ID != doc.ID {
		t.Errorf("restricted listing: got %d items", len(items))
	}
}

func TestDocumentStoreSearch(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	sponsorID := testSponsorID(t, db)

	doc := createDoc(t, db, s, "Watershed Protection Ordinance", "test-fts-"+uuid.NewString()[:8], sponsorID, models.PublishStatePublished)
	createDoc(t, db, s, "Unrelated Budget", "test-fts2-"+uuid.NewString()[:8], sponsorID, models.PublishStatePublished)

	items, err := s.List(ListQuery{
		Predicate:   publishedOnly(sponsorID),
		Search:      "watershed",
		ByRelevance: true,
	})
	if err != nil {
		t.Fatalf("List (search): %v", err)
	}
	if len(items) != 1 || items[0].ID != doc.ID {
		t.Errorf("search: got %d items, want the watershed document", len(items))
	}
}

func TestDocumentStoreSoftDeleteAndRestore(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	sponsorID := testSponsorID(t, db)
	userID := testUserID(t, db)

	doc := createDoc(t, db, s, "Doomed", "test-del-"+uuid.NewString()[:8], sponsorID, models.PublishStatePublished)

	// Attach an annotation and a vote so the cascade has something to do.
	if _, err := db.Exec(
		"INSERT INTO annotations (document_id, user_id, quote, comment) VALUES ($1, $2, 'q', 'c')",
		doc.ID, userID); err != nil {
		t.Fatalf("insert annotation: %v", err)
	}
	if _, err := db.Exec(
		"INSERT INTO document_meta (document_id, user_id, meta_key, meta_value) VALUES ($1, $2, 'support', '1')",
		doc.ID, userID); err != nil {
		t.Fatalf("insert meta: %v", err)
	}

	if err := s.SoftDelete(doc.ID, models.PublishStateDeletedUser); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	found, err := s.FindByID(doc.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found == nil {
		t.Fatal("soft-deleted document must remain findable by id")
	}
	if found.PublishState != models.PublishStateDeletedUser {
		t.Errorf("state: got %q, want %q", found.PublishState, models.PublishStateDeletedUser)
	}
	if found.DeletedAt == nil {
		t.Error("expected deleted_at to be set")
	}

	// The cascade touched every dependent row.
	for _, table := range []string{"annotations", "document_meta", "document_pages"} {
		var n int
		db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE document_id = $1 AND deleted_at IS NULL", doc.ID).Scan(&n)
		if n != 0 {
			t.Errorf("%s: %d rows survived the cascade", table, n)
		}
	}

	// Gone from a default listing, visible to a member view.
	items, _ := s.List(ListQuery{Predicate: publishedOnly(sponsorID)})
	for _, d := range items {
		if d.ID == doc.ID {
			t.Error("soft-deleted document leaked into default listing")
		}
	}
	items, _ = s.List(ListQuery{Predicate: memberView(sponsorID)})
	seen := false
	for _, d := range items {
		if d.ID == doc.ID {
			seen = true
		}
	}
	if !seen {
		t.Error("member view should include the soft-deleted document")
	}

	// Deleting again is a not-found.
	if err := s.SoftDelete(doc.ID, models.PublishStateDeletedUser); err != models.ErrNotFound {
		t.Errorf("second SoftDelete: got %v, want ErrNotFound", err)
	}

	// Restore lands in unpublished and revives the cascade.
	if err := s.Restore(doc.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	found, _ = s.FindByID(doc.ID)
	if found.PublishState != models.PublishStateUnpublished {
		t.Errorf("restored state: got %q, want %q", found.PublishState, models.PublishStateUnpublished)
	}
	if found.DeletedAt != nil {
		t.Error("expected deleted_at cleared after restore")
	}
	for _, table := range []string{"annotations", "document_meta", "document_pages"} {
		var n int
		db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE document_id = $1 AND deleted_at IS NOT NULL", doc.ID).Scan(&n)
		if n != 0 {
			t.Errorf("%s: %d rows still deleted after restore", table, n)
		}
	}
}

func TestDocumentStoreSlugExists(t *testing.T) {
	db := testDB(t)
	s := NewDocumentStore(db)
	sponsorID := testSponsorID(t, db)

	slug := "test-exists-" + uuid.NewString()[:8]
	doc := createDoc(t, db, s, "Exists", slug, sponsorID, models.PublishStateUnpublished)

	exists, err := s.SlugExists(slug)
	if err != nil {
		t.Fatalf("SlugExists: %v", err)
	}
	if !exists {
		t.Error("expected slug to exist")
	}

	// Soft-deleted documents still hold their slug.
	if err := s.SoftDelete(doc.ID, models.PublishStateDeletedUser); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	exists, _ = s.SlugExists(slug)
	if !exists {
		t.Error("soft-deleted document must still reserve its slug")
	}

	exists, _ = s.SlugExists("test-no-such-slug-" + uuid.NewString()[:8])
	if exists {
		t.Error("expected unknown slug to not exist")
	}
}
