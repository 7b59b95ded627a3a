package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoplist/shoplist-go/internal/identity"
	"github.com/shoplist/shoplist-go/internal/list"
	"github.com/shoplist/shoplist-go/internal/store"
)

// ListsHandler serves the list, item, and share endpoints.
type ListsHandler struct {
	store store.ListStore
	users identity.PartyRepo
}

// NewListsHandler creates a lists handler over the given stores.
func NewListsHandler(s store.ListStore, users identity.PartyRepo) *ListsHandler {
	return &ListsHandler{store: s, users: users}
}

func newListID() string { return "list-" + uuid.NewString() }
func newItemID() string { return "item-" + uuid.NewString() }

// userRef resolves a user id to its display reference. Deleted users yield a
// bare reference so lists stay renderable.
func (h *ListsHandler) userRef(r *http.Request, id string) list.UserRef {
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		return list.UserRef{ID: id}
	}
	return list.UserRef{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName}
}

// buildView assembles the full list payload: items in creation order plus
// resolved shared users.
func (h *ListsHandler) buildView(r *http.Request, rec *store.ListRecord) (*list.List, error) {
	ctx := r.Context()

	items, err := h.store.ListItems(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	shares, err := h.store.ListShares(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	owner := h.userRef(r, rec.OwnerID)

	view := &list.List{
		ID:        rec.ID,
		Title:     rec.Title,
		OwnerID:   rec.OwnerID,
		Owner:     owner,
		Items:     make([]list.Item, 0, len(items)),
		Shared:    make([]list.SharedUser, 0, len(shares)),
		CreatedAt: rec.CreatedAt,
	}

	for _, it := range items {
		addedBy := h.userRef(r, it.AddedByID)
		view.Items = append(view.Items, list.Item{
			ID:        it.ID,
			ListID:    it.ListID,
			Name:      it.Name,
			Completed: it.Completed,
			AddedBy:   &addedBy,
		})
	}

	for _, sh := range shares {
		ref := h.userRef(r, sh.UserID)
		view.Shared = append(view.Shared, list.SharedUser{
			ID:          ref.ID,
			Email:       ref.Email,
			DisplayName: ref.DisplayName,
		})
	}

	return view, nil
}

// access classifies the caller's relationship to a list.
type access int

const (
	accessNone access = iota
	accessMember
	accessOwner
)

func (h *ListsHandler) accessFor(r *http.Request, rec *store.ListRecord, userID string) (access, error) {
	if rec.OwnerID == userID {
		return accessOwner, nil
	}
	_, err := h.store.GetShare(r.Context(), rec.ID, userID)
	if err == nil {
		return accessMember, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return accessNone, nil
	}
	return accessNone, err
}

// fetchList loads a list and checks the caller's access. Lists the caller
// cannot see are reported as not found, not forbidden.
func (h *ListsHandler) fetchList(w http.ResponseWriter, r *http.Request) (*store.ListRecord, access, bool) {
	user := UserFromContext(r.Context())
	if user == nil {
		WriteUnauthorized(w, ReasonUnauthenticated, "authentication required")
		return nil, accessNone, false
	}

	listID := chi.URLParam(r, "listID")
	rec, err := h.store.GetList(r.Context(), listID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "list not found")
			return nil, accessNone, false
		}
		WriteInternalError(w, "failed to load list")
		return nil, accessNone, false
	}

	acc, err := h.accessFor(r, rec, user.ID)
	if err != nil {
		WriteInternalError(w, "failed to check access")
		return nil, accessNone, false
	}
	if acc == accessNone {
		WriteNotFound(w, "list not found")
		return nil, accessNone, false
	}

	return rec, acc, true
}

// List handles GET /api/lists.
func (h *ListsHandler) List(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		WriteUnauthorized(w, ReasonUnauthenticated, "authentication required")
		return
	}

	recs, err := h.store.ListsForUser(r.Context(), user.ID)
	if err != nil {
		WriteInternalError(w, "failed to load lists")
		return
	}

	views := make([]*list.List, 0, len(recs))
	for _, rec := range recs {
		view, err := h.buildView(r, rec)
		if err != nil {
			WriteInternalError(w, "failed to load lists")
			return
		}
		views = append(views, view)
	}

	WriteJSON(w, http.StatusOK, views)
}

// Create handles POST /api/lists.
func (h *ListsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		WriteUnauthorized(w, ReasonUnauthenticated, "authentication required")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := list.ValidateTitle(req.Title); err != nil {
		WriteBadRequest(w, ReasonInvalidField, err.Error())
		return
	}

	now := time.Now().Unix()
	rec := &store.ListRecord{
		ID:        newListID(),
		Title:     req.Title,
		OwnerID:   user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateList(r.Context(), rec); err != nil {
		WriteInternalError(w, "failed to create list")
		return
	}

	view, err := h.buildView(r, rec)
	if err != nil {
		WriteInternalError(w, "failed to load list")
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

// Get handles GET /api/lists/{listID}.
func (h *ListsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, _, ok := h.fetchList(w, r)
	if !ok {
		return
	}

	view, err := h.buildView(r, rec)
	if err != nil {
		WriteInternalError(w, "failed to load list")
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// Update handles PATCH /api/lists/{listID} (rename, owner only).
func (h *ListsHandler) Update(w http.ResponseWriter, r *http.Request) {
	rec, acc, ok := h.fetchList(w, r)
	if !ok {
		return
	}
	if acc != accessOwner {
		WriteForbidden(w, ReasonNotOwner, "only the owner can rename a list")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := list.ValidateTitle(req.Title); err != nil {
		WriteBadRequest(w, ReasonInvalidField, err.Error())
		return
	}

	rec.Title = req.Title
	rec.UpdatedAt = time.Now().Unix()
	if err := h.store.UpdateList(r.Context(), rec); err != nil {
		WriteInternalError(w, "failed to rename list")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/lists/{listID} (owner only, cascades).
func (h *ListsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rec, acc, ok := h.fetchList(w, r)
	if !ok {
		return
	}
	if acc != accessOwner {
		WriteForbidden(w, ReasonNotOwner, "only the owner can delete a list")
		return
	}

	if err := h.store.DeleteList(r.Context(), rec.ID); err != nil {
		WriteInternalError(w, "failed to delete list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Leave handles POST /api/lists/{listID}/leave (shared users only).
func (h *ListsHandler) Leave(w http.ResponseWriter, r *http.Request) {
	rec, acc, ok := h.fetchList(w, r)
	if !ok {
		return
	}
	if acc == accessOwner {
		WriteBadRequest(w, ReasonInvalidField, "the owner cannot leave their own list")
		return
	}

	user := UserFromContext(r.Context())
	if err := h.store.DeleteShare(r.Context(), rec.ID, user.ID); err != nil {
		WriteInternalError(w, "failed to leave list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateItem handles POST /api/lists/{listID}/items.
func (h *ListsHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	rec, _, ok := h.fetchList(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := list.ValidateItemName(req.Name); err != nil {
		WriteBadRequest(w, ReasonInvalidField, err.Error())
		return
	}

	user := UserFromContext(r.Context())
	now := time.Now().Unix()
	item := &store.ItemRecord{
		ID:        newItemID(),
		ListID:    rec.ID,
		Name:      req.Name,
		AddedByID: user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateItem(r.Context(), item); err != nil {
		WriteInternalError(w, "failed to add item")
		return
	}

	addedBy := h.userRef(r, user.ID)
	WriteJSON(w, http.StatusCreated, list.Item{
		ID:        item.ID,
		ListID:    item.ListID,
		Name:      item.Name,
		Completed: item.Completed,
		AddedBy:   &addedBy,
	})
}

// UpdateItem handles PATCH /api/lists/{listID}/items/{itemID}.
// Absent fields are left unchanged.
func (h *ListsHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	rec, _, ok := h.fetchList(w, r)
	if !ok {
		return
	}

	item, ok := h.fetchItem(w, r, rec.ID)
	if !ok {
		return
	}

	var req struct {
		Name      *string `json:"name"`
		Completed *bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}
	if req.Name == nil && req.Completed == nil {
		WriteBadRequest(w, ReasonMissingField, "nothing to update")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := list.ValidateItemName(name); err != nil {
			WriteBadRequest(w, ReasonInvalidField, err.Error())
			return
		}
		item.Name = name
	}
	if req.Completed != nil {
		item.Completed = *req.Completed
	}
	item.UpdatedAt = time.Now().Unix()

	if err := h.store.UpdateItem(r.Context(), item); err != nil {
		WriteInternalError(w, "failed to update item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteItem handles DELETE /api/lists/{listID}/items/{itemID}.
func (h *ListsHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	rec, _, ok := h.fetchList(w, r)
	if !ok {
		return
	}

	item, ok := h.fetchItem(w, r, rec.ID)
	if !ok {
		return
	}

	if err := h.store.DeleteItem(r.Context(), item.ID); err != nil {
		WriteInternalError(w, "failed to delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListsHandler) fetchItem(w http.ResponseWriter, r *http.Request, listID string) (*store.ItemRecord, bool) {
	itemID := chi.URLParam(r, "itemID")
	item, err := h.store.GetItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "item not found")
			return nil, false
		}
		WriteInternalError(w, "failed to load item")
		return nil, false
	}
	// Items are addressed under their list; reject cross-list access.
	if item.ListID != listID {
		WriteNotFound(w, "item not found")
		return nil, false
	}
	return item, true
}

// CreateShare handles POST /api/lists/{listID}/shares (invite, owner only).
func (h *ListsHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	rec, acc, ok := h.fetchList(w, r)
	if !ok {
		return
	}
	if acc != accessOwner {
		WriteForbidden(w, ReasonNotOwner, "only the owner can share a list")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := list.ValidateEmail(req.Email); err != nil {
		WriteBadRequest(w, ReasonInvalidField, "invalid email address")
		return
	}

	invitee, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			WriteNotFound(w, "no registered user with this email")
			return
		}
		WriteInternalError(w, "failed to resolve user")
		return
	}

	if invitee.ID == rec.OwnerID {
		WriteConflict(w, "cannot share a list with its owner")
		return
	}

	share := &store.ShareRecord{
		ListID:    rec.ID,
		UserID:    invitee.ID,
		CreatedAt: time.Now().Unix(),
	}
	if err := h.store.CreateShare(r.Context(), share); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			WriteConflict(w, "user already has access to this list")
			return
		}
		WriteInternalError(w, "failed to share list")
		return
	}

	WriteJSON(w, http.StatusCreated, list.SharedUser{
		ID:          invitee.ID,
		Email:       invitee.Email,
		DisplayName: invitee.DisplayName,
	})
}

// DeleteShare handles DELETE /api/lists/{listID}/shares/{userID} (owner only).
func (h *ListsHandler) DeleteShare(w http.ResponseWriter, r *http.Request) {
	rec, acc, ok := h.fetchList(w, r)
	if !ok {
		return
	}
	if acc != accessOwner {
		WriteForbidden(w, ReasonNotOwner, "only the owner can revoke access")
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.store.DeleteShare(r.Context(), rec.ID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "share not found")
			return
		}
		WriteInternalError(w, "failed to revoke access")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
