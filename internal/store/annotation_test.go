// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"civicdocs/internal/models"
)

func TestAnnotationStoreSetHidden(t *testing.T) {
	db := testDB(t)
	docs := NewDocumentStore(db)
	annotations := NewAnnotationStore(db)
	sponsorID := testSponsorID(t, db)
	userID := testUserID(t, db)

	doc := createDoc(t, db, docs, "Annotated", "test-ann-"+uuid.NewString()[:8], sponsorID, models.PublishStatePublished)

	a, err := annotations.Create(doc.ID, userID, "section two", "this wording is unclear", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := annotations.SetHidden(a.ID, true); err != nil {
		t.Fatalf("SetHidden: %v", err)
	}

	visible, err := annotations.ListByDocument(doc.ID, false, false)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("hidden annotation still listed: got %d, want 0", len(visible))
	}

	all, err := annotations.ListByDocument(doc.ID, true, false)
	if err != nil {
		t.Fatalf("ListByDocument includeHidden: %v", err)
	}
	if len(all) != 1 || !all[0].Hidden {
		t.Errorf("expected one hidden annotation, got %+v", all)
	}

	// Unhide restores it to the public listing.
	if err := annotations.SetHidden(a.ID, false); err != nil {
		t.Fatalf("SetHidden unhide: %v", err)
	}
	visible, err = annotations.ListByDocument(doc.ID, false, false)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(visible) != 1 {
		t.Errorf("unhidden annotation missing: got %d, want 1", len(visible))
	}
}

func TestAnnotationStoreSetHiddenMissing(t *testing.T) {
	db := testDB(t)
	annotations := NewAnnotationStore(db)

	if err := annotations.SetHidden(uuid.New(), true); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("SetHidden on missing annotation: got %v, want ErrNotFound", err)
	}
}
