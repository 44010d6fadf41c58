// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"civicdocs/internal/cache"
	"civicdocs/internal/flash"
	"civicdocs/internal/lifecycle"
	"civicdocs/internal/listing"
	"civicdocs/internal/markdown"
	"civicdocs/internal/middleware"
	"civicdocs/internal/models"
	"civicdocs/internal/store"
	"civicdocs/internal/visibility"
)

// Documents groups the document API handlers.
type Documents struct {
	listing     *listing.Service
	lifecycle   *lifecycle.Service
	docs        *store.DocumentStore
	pages       *store.PageStore
	votes       *store.SupportStore
	sponsors    *store.SponsorStore
	annotations *store.AnnotationStore
	flashes     *flash.Store
	renders     *cache.RenderCache
}

// NewDocuments creates a new Documents handler group. flashes and renders
// may be nil when the Valkey-backed notices or render cache are not
// configured.
func NewDocuments(
	listingSvc *listing.Service,
	lifecycleSvc *lifecycle.Service,
	docs *store.DocumentStore,
	pages *store.PageStore,
	votes *store.SupportStore,
	sponsors *store.SponsorStore,
	annotations *store.AnnotationStore,
	flashes *flash.Store,
	renders *cache.RenderCache,
) *Documents {
	return &Documents{
		listing:     listingSvc,
		lifecycle:   lifecycleSvc,
		docs:        docs,
		pages:       pages,
		votes:       votes,
		sponsors:    sponsors,
		annotations: annotations,
		flashes:     flashes,
		renders:     renders,
	}
}

// viewerFromCtx reconstructs the acting user from the session, or nil for
// anonymous requests.
func viewerFromCtx(r *http.Request) *models.User {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return nil
	}
	return &models.User{
		ID:          sess.UserID,
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		Role:        models.Role(sess.Role),
	}
}

// documentView is the JSON shape of a document in listings.
type documentView struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	PublishState    string     `json:"publish_state"`
	DiscussionState string     `json:"discussion_state"`
	IntroText       *string    `json:"intro_text"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toDocumentView(d *models.Document) documentView {
	return documentView{
		ID:              d.ID,
		Title:           d.Title,
		Slug:            d.Slug,
		PublishState:    string(d.PublishState),
		DiscussionState: string(d.DiscussionState),
		IntroText:       d.IntroText,
		DeletedAt:       d.DeletedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// sponsorView is the JSON shape of a sponsor.
type sponsorView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// listResponse is the listing payload: one window of documents plus the
// active sponsors and state vocabularies for filter UIs, and any pending
// notices.
type listResponse struct {
	Items            []documentView  `json:"items"`
	Total            int             `json:"total"`
	Page             int             `json:"page"`
	PerPage          int             `json:"per_page"`
	Sponsors         []sponsorView   `json:"sponsors"`
	PublishStates    []string        `json:"publish_states"`
	DiscussionStates []string        `json:"discussion_states"`
	Notices          []flash.Message `json:"notices,omitempty"`
}

// stateVocabulary returns the valid publish and discussion state names
// clients build filter controls from.
func stateVocabulary() (publish, discussion []string) {
	for _, s := range models.ValidPublishStates() {
		publish = append(publish, string(s))
	}
	for _, s := range models.ValidDiscussionStates() {
		discussion = append(discussion, string(s))
	}
	return publish, discussion
}

// List handles GET /api/documents. Every filter is a query parameter;
// repeated parameters express multi-value filters.
func (h *Documents) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var sponsorIDs []uuid.UUID
	for _, raw := range q["sponsor_id"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid sponsor_id"})
			return
		}
		sponsorIDs = append(sponsorIDs, id)
	}

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	sess := middleware.SessionFromCtx(r.Context())
	params := listing.Params{
		OrderField:       q.Get("order"),
		OrderDir:         q.Get("order_dir"),
		DiscussionStates: q["discussion_state"],
		Search:           q.Get("search"),
		SponsorIDs:       sponsorIDs,
		PublishStates:    q["publish_state"],
		Page:             page,
		Limit:            limit,
	}
	if sess != nil {
		params.SessionID = sess.ID
	}

	result, err := h.listing.List(r.Context(), viewerFromCtx(r), params)
	if err != nil {
		writeError(w, err)
		return
	}

	active, err := h.sponsors.ListActive()
	if err != nil {
		writeError(w, err)
		return
	}

	resp := listResponse{
		Items:    make([]documentView, 0, len(result.Items)),
		Total:    result.Total,
		Page:     result.Page,
		PerPage:  result.PerPage,
		Sponsors: make([]sponsorView, 0, len(active)),
	}
	resp.PublishStates, resp.DiscussionStates = stateVocabulary()
	for i := range result.Items {
		resp.Items = append(resp.Items, toDocumentView(&result.Items[i]))
	}
	for _, sp := range active {
		resp.Sponsors = append(resp.Sponsors, sponsorView{ID: sp.ID, Name: sp.Name, Slug: sp.Slug})
	}

	if h.flashes != nil && sess != nil {
		notices, err := h.flashes.Drain(r.Context(), sess.ID)
		if err != nil {
			slog.Warn("drain notices failed", "error", err)
		}
		resp.Notices = notices
	}

	writeJSON(w, http.StatusOK, resp)
}

// pageView is one rendered document page.
type pageView struct {
	Page int    `json:"page"`
	HTML string `json:"html"`
}

// annotationView is the JSON shape of an annotation.
type annotationView struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Quote     string    `json:"quote"`
	Comment   string    `json:"comment"`
	Hidden    bool      `json:"hidden"`
	CreatedAt time.Time `json:"created_at"`
}

// showResponse is the full document payload.
type showResponse struct {
	documentView
	Pages       []pageView       `json:"pages"`
	Sponsors    []sponsorView    `json:"sponsors"`
	Support     int              `json:"support"`
	Oppose      int              `json:"oppose"`
	MyVote      *bool            `json:"my_vote"`
	Annotations []annotationView `json:"annotations"`
}

// visibleTo reports whether the viewer may see the document at all,
// using the same predicate the listing engine compiles.
func (h *Documents) visibleTo(viewer *models.User, doc *models.Document) (bool, error) {
	memberships, err := visibility.Memberships(h.sponsors, viewer)
	if err != nil {
		return false, err
	}
	pred := visibility.Build(
		doc.SponsorIDs,
		visibility.NormalizeStates([]string{visibility.StateAll}),
		memberships,
	)
	return pred.Matches(doc.SponsorIDs, doc.PublishState), nil
}

// Show handles GET /api/documents/{slug}. Documents the viewer cannot see
// are indistinguishable from documents that do not exist.
func (h *Documents) Show(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.FindBySlug(chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	if doc == nil || doc.IsTemplate {
		writeError(w, models.ErrNotFound)
		return
	}

	viewer := viewerFromCtx(r)
	visible, err := h.visibleTo(viewer, doc)
	if err != nil {
		writeError(w, err)
		return
	}
	if !visible {
		writeError(w, models.ErrNotFound)
		return
	}

	resp := showResponse{documentView: toDocumentView(doc)}

	pages, err := h.pages.ListByDocument(doc.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, p := range pages {
		html, err := h.renderPage(r, doc.ID, p.Page, p.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Pages = append(resp.Pages, pageView{Page: p.Page, HTML: html})
	}

	for _, id := range doc.SponsorIDs {
		sp, err := h.sponsors.FindByID(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if sp != nil {
			resp.Sponsors = append(resp.Sponsors, sponsorView{ID: sp.ID, Name: sp.Name, Slug: sp.Slug})
		}
	}

	if resp.Support, resp.Oppose, err = h.votes.Counts(doc.ID); err != nil {
		writeError(w, err)
		return
	}
	if viewer != nil {
		if resp.MyVote, err = h.votes.Find(doc.ID, viewer.ID); err != nil {
			writeError(w, err)
			return
		}
	}

	// Hidden annotations stay between moderators.
	includeHidden := viewer != nil && viewer.IsAdmin()
	annotations, err := h.annotations.ListByDocument(doc.ID, includeHidden, false)
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Annotations = make([]annotationView, 0, len(annotations))
	for _, a := range annotations {
		resp.Annotations = append(resp.Annotations, annotationView{
			ID: a.ID, UserID: a.UserID, Quote: a.Quote, Comment: a.Comment,
			Hidden: a.Hidden, CreatedAt: a.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// renderPage converts page Markdown to HTML, reusing the Valkey render
// cache when one is configured.
func (h *Documents) renderPage(r *http.Request, docID uuid.UUID, page int, content string) (string, error) {
	if h.renders != nil {
		if html, ok := h.renders.Get(r.Context(), docID, page); ok {
			return html, nil
		}
	}
	html, err := markdown.ToHTML(content)
	if err != nil {
		return "", err
	}
	if h.renders != nil {
		h.renders.Set(r.Context(), docID, page, html)
	}
	return html, nil
}

// invalidateRender drops cached HTML after a content mutation.
func (h *Documents) invalidateRender(r *http.Request, docID uuid.UUID) {
	if h.renders != nil {
		h.renders.InvalidateDocument(r.Context(), docID)
	}
}

// canModify reports whether the user may mutate the document: admins
// always, everyone else only as a member of one of its sponsors.
func (h *Documents) canModify(user *models.User, sponsorIDs []uuid.UUID) (bool, error) {
	if user.IsAdmin() {
		return true, nil
	}
	for _, id := range sponsorIDs {
		member, err := h.sponsors.IsMember(id, user.ID)
		if err != nil {
			return false, err
		}
		if member {
			return true, nil
		}
	}
	return false, nil
}

// createRequest is the POST /api/documents body.
type createRequest struct {
	Title     string    `json:"title"`
	SponsorID uuid.UUID `json:"sponsor_id"`
}

// Create handles POST /api/documents. The caller must belong to the
// sponsor the document is created under.
func (h *Documents) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if msg := validateTitle(req.Title); msg != "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: msg})
		return
	}

	user := viewerFromCtx(r)
	sponsor, err := h.sponsors.FindByID(req.SponsorID)
	if err != nil {
		writeError(w, err)
		return
	}
	if sponsor == nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "unknown sponsor"})
		return
	}

	allowed, err := h.canModify(user, []uuid.UUID{req.SponsorID})
	if err != nil {
		writeError(w, err)
		return
	}
	if !allowed {
		writeError(w, models.ErrUnauthorized)
		return
	}

	doc, err := h.lifecycle.Create(r.Context(), req.Title, req.SponsorID)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("document created", "id", doc.ID, "slug", doc.Slug, "user", user.ID)
	writeJSON(w, http.StatusCreated, toDocumentView(doc))
}

// updateRequest is the PUT /api/documents/{id} body. Absent fields are
// left unchanged.
type updateRequest struct {
	Title           *string `json:"title"`
	PublishState    *string `json:"publish_state"`
	DiscussionState *string `json:"discussion_state"`
	IntroText       *string `json:"intro_text"`
	Page            int     `json:"page"`
	PageContent     *string `json:"page_content"`
}

// loadForModify fetches the document and checks the caller may mutate it.
func (h *Documents) loadForModify(w http.ResponseWriter, r *http.Request) (*models.Document, *models.User, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, models.ErrNotFound)
		return nil, nil, false
	}

	doc, err := h.docs.FindByID(id)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	if doc == nil || doc.IsTemplate {
		writeError(w, models.ErrNotFound)
		return nil, nil, false
	}

	user := viewerFromCtx(r)
	allowed, err := h.canModify(user, doc.SponsorIDs)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	if !allowed {
		writeError(w, models.ErrUnauthorized)
		return nil, nil, false
	}

	return doc, user, true
}

// Update handles PUT /api/documents/{id}.
func (h *Documents) Update(w http.ResponseWriter, r *http.Request) {
	doc, user, ok := h.loadForModify(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Title != nil {
		if msg := validateTitle(*req.Title); msg != "" {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: msg})
			return
		}
	}
	if req.PageContent != nil {
		if msg := validatePageContent(*req.PageContent); msg != "" {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: msg})
			return
		}
	}

	params := lifecycle.UpdateParams{
		Title:       req.Title,
		IntroText:   req.IntroText,
		Page:        req.Page,
		PageContent: req.PageContent,
	}
	if req.PublishState != nil {
		st := models.PublishState(*req.PublishState)
		params.PublishState = &st
	}
	if req.DiscussionState != nil {
		st := models.DiscussionState(*req.DiscussionState)
		if !models.IsValidDiscussionState(st) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "unknown discussion state"})
			return
		}
		params.DiscussionState = &st
	}

	updated, err := h.lifecycle.Update(r.Context(), user, doc.ID, params)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.PageContent != nil {
		h.invalidateRender(r, doc.ID)
	}
	writeJSON(w, http.StatusOK, toDocumentView(updated))
}

// deleteResponse points the caller at the restore endpoint.
type deleteResponse struct {
	RestoreURL string `json:"restore_url"`
}

// Delete handles DELETE /api/documents/{id}. The response carries the
// restore affordance the client surfaces as an undo link.
func (h *Documents) Delete(w http.ResponseWriter, r *http.Request) {
	doc, user, ok := h.loadForModify(w, r)
	if !ok {
		return
	}

	if err := h.lifecycle.Delete(r.Context(), user, doc.ID); err != nil {
		writeError(w, err)
		return
	}

	h.invalidateRender(r, doc.ID)
	slog.Info("document deleted", "id", doc.ID, "user", user.ID, "admin", user.IsAdmin())
	writeJSON(w, http.StatusOK, deleteResponse{
		RestoreURL: "/api/documents/" + doc.ID.String() + "/restore",
	})
}

// Restore handles POST /api/documents/{id}/restore.
func (h *Documents) Restore(w http.ResponseWriter, r *http.Request) {
	doc, user, ok := h.loadForModify(w, r)
	if !ok {
		return
	}

	restored, err := h.lifecycle.Restore(r.Context(), user, doc.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("document restored", "id", doc.ID, "user", user.ID)
	writeJSON(w, http.StatusOK, toDocumentView(restored))
}

// pageRequest is the POST /api/documents/{id}/pages body.
type pageRequest struct {
	Content string `json:"content"`
}

// StorePage handles POST /api/documents/{id}/pages.
func (h *Documents) StorePage(w http.ResponseWriter, r *http.Request) {
	doc, _, ok := h.loadForModify(w, r)
	if !ok {
		return
	}

	var req pageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if msg := validatePageContent(req.Content); msg != "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: msg})
		return
	}

	page, err := h.lifecycle.AddPage(r.Context(), doc.ID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pageView{Page: page.Page, HTML: ""})
}

// supportRequest is the POST /api/documents/{id}/support body.
type supportRequest struct {
	Support bool `json:"support"`
}

// supportResponse reports the vote transition and the fresh tallies.
type supportResponse struct {
	Previous *bool `json:"previous"`
	Current  *bool `json:"current"`
	Support  int   `json:"support"`
	Oppose   int   `json:"oppose"`
}

// Support handles POST /api/documents/{id}/support: the idempotent-toggle
// vote. Any authenticated user may vote on any document they can see.
func (h *Documents) Support(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, models.ErrNotFound)
		return
	}

	doc, err := h.docs.FindByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if doc == nil || doc.IsTemplate {
		writeError(w, models.ErrNotFound)
		return
	}

	user := viewerFromCtx(r)
	visible, err := h.visibleTo(user, doc)
	if err != nil {
		writeError(w, err)
		return
	}
	if !visible {
		writeError(w, models.ErrNotFound)
		return
	}

	var req supportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	prev, cur, err := h.lifecycle.ToggleSupport(r.Context(), user, doc.ID, req.Support)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := supportResponse{Previous: prev, Current: cur}
	if resp.Support, resp.Oppose, err = h.votes.Counts(doc.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// annotationRequest is the POST /api/documents/{id}/annotations body.
type annotationRequest struct {
	Quote   string `json:"quote"`
	Comment string `json:"comment"`
}

// CreateAnnotation handles POST /api/documents/{id}/annotations. Requires
// the document to be visible and its discussion open.
func (h *Documents) CreateAnnotation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, models.ErrNotFound)
		return
	}

	doc, err := h.docs.FindByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if doc == nil || doc.IsTemplate {
		writeError(w, models.ErrNotFound)
		return
	}

	user := viewerFromCtx(r)
	visible, err := h.visibleTo(user, doc)
	if err != nil {
		writeError(w, err)
		return
	}
	if !visible {
		writeError(w, models.ErrNotFound)
		return
	}
	if doc.DiscussionState != models.DiscussionStateOpen {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "discussion is not open"})
		return
	}

	var req annotationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if msg := validateAnnotation(req.Quote, req.Comment); msg != "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: msg})
		return
	}

	a, err := h.annotations.Create(doc.ID, user.ID, req.Quote, req.Comment, false)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, annotationView{
		ID: a.ID, UserID: a.UserID, Quote: a.Quote, Comment: a.Comment,
		Hidden: a.Hidden, CreatedAt: a.CreatedAt,
	})
}

// moderateRequest is the PUT /api/annotations/{id}/hidden body.
type moderateRequest struct {
	Hidden bool `json:"hidden"`
}

// moderateResponse reports the annotation's new moderation state.
type moderateResponse struct {
	ID     uuid.UUID `json:"id"`
	Hidden bool      `json:"hidden"`
}

// ModerateAnnotation handles PUT /api/annotations/{id}/hidden: hide or
// unhide an annotation. The route is admin-only; hidden annotations stay
// visible to admins in the document payload.
func (h *Documents) ModerateAnnotation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, models.ErrNotFound)
		return
	}

	var req moderateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.annotations.SetHidden(id, req.Hidden); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("annotation moderated", "id", id, "hidden", req.Hidden)
	writeJSON(w, http.StatusOK, moderateResponse{ID: id, Hidden: req.Hidden})
}
