package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hoffkamp/bureau/internal/auth"
	"github.com/hoffkamp/bureau/internal/email"
	"github.com/hoffkamp/bureau/internal/model"
	"github.com/hoffkamp/bureau/internal/notes"
	"github.com/hoffkamp/bureau/internal/store"
	"github.com/hoffkamp/bureau/internal/websocket"
)

type ShareHandler struct {
	shareStore  *store.ShareStore
	noteStore   *store.NoteStore
	userStore   *store.UserStore
	emailClient *email.Client
	engines     *notes.Manager
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewShareHandler(
	ss *store.ShareStore,
	ns *store.NoteStore,
	us *store.UserStore,
	ec *email.Client,
	engines *notes.Manager,
	hub *websocket.Hub,
	logger *slog.Logger,
) *ShareHandler {
	return &ShareHandler{
		shareStore:  ss,
		noteStore:   ns,
		userStore:   us,
		emailClient: ec,
		engines:     engines,
		hub:         hub,
		logger:      logger,
	}
}

// notify reloads the affected engines and pushes a share event to the
// two parties involved. Nobody else can see the grant, so nobody else
// hears about it.
func (h *ShareHandler) notify(action string, noteID, ownerID, granteeID int64) {
	h.engines.NotifyChange(ownerID, 0)
	if h.hub != nil {
		h.hub.BroadcastTo([]int64{ownerID, granteeID},
			websocket.NewMessage("share", action, noteID, ownerID))
	}
}

// requireOwnedNote loads the note and verifies the acting user owns it,
// answering the request itself on failure.
func (h *ShareHandler) requireOwnedNote(w http.ResponseWriter, r *http.Request) (*model.Note, int64, bool) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil, 0, false
	}

	n, err := h.noteStore.GetByID(id)
	if err != nil {
		h.logger.Error("load note for share", "note_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load note"})
		return nil, 0, false
	}
	if n == nil || n.DeletedAt != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "note not found"})
		return nil, 0, false
	}
	if n.OwnerID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only the owner can manage shares"})
		return nil, 0, false
	}
	return n, userID, true
}

type shareWithProfile struct {
	model.NoteShare
	Grantee model.Profile `json:"grantee"`
}

// ListNoteShares handles GET /api/notes/{id}/shares
func (h *ShareHandler) ListNoteShares(w http.ResponseWriter, r *http.Request) {
	n, _, ok := h.requireOwnedNote(w, r)
	if !ok {
		return
	}

	shares, err := h.shareStore.SharesForNotes([]int64{n.ID})
	if err != nil {
		h.logger.Error("list note shares", "note_id", n.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list shares"})
		return
	}

	granteeIDs := make([]int64, 0, len(shares))
	for _, sh := range shares {
		granteeIDs = append(granteeIDs, sh.GranteeID)
	}
	profiles, err := h.userStore.ProfilesByIDs(granteeIDs)
	if err != nil {
		h.logger.Error("resolve grantee profiles", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list shares"})
		return
	}

	out := make([]shareWithProfile, 0, len(shares))
	for _, sh := range shares {
		out = append(out, shareWithProfile{NoteShare: sh, Grantee: profiles[sh.GranteeID]})
	}
	writeJSON(w, http.StatusOK, out)
}

type createShareRequest struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

// CreateNoteShare handles POST /api/notes/{id}/shares. Re-sharing with
// the same person replaces the old permission.
func (h *ShareHandler) CreateNoteShare(w http.ResponseWriter, r *http.Request) {
	n, userID, ok := h.requireOwnedNote(w, r)
	if !ok {
		return
	}

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Permission != model.PermissionView && req.Permission != model.PermissionEdit {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "permission must be view or edit"})
		return
	}

	grantee, err := h.userStore.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("grantee lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to share note"})
		return
	}
	if grantee == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no account with that email"})
		return
	}
	if grantee.ID == userID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot share a note with yourself"})
		return
	}

	sh, err := h.shareStore.CreateNoteShare(n.ID, grantee.ID, req.Permission)
	if err != nil {
		h.logger.Error("create note share", "note_id", n.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to share note"})
		return
	}

	owner, err := h.userStore.GetByID(userID)
	if err == nil && owner != nil && h.emailClient.Configured() {
		// The grant stands even if the notice cannot be delivered.
		if err := h.emailClient.SendShareNotice(grantee.Email, owner.Name, *n, req.Permission); err != nil {
			h.logger.Error("send share notice", "error", err)
		}
	}

	h.notify("created", n.ID, userID, grantee.ID)
	writeJSON(w, http.StatusCreated, shareWithProfile{NoteShare: *sh, Grantee: grantee.Profile()})
}

// DeleteNoteShare handles DELETE /api/notes/{id}/shares/{granteeID}
func (h *ShareHandler) DeleteNoteShare(w http.ResponseWriter, r *http.Request) {
	n, userID, ok := h.requireOwnedNote(w, r)
	if !ok {
		return
	}
	granteeID, err := parsePathID(r, "granteeID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid grantee id"})
		return
	}

	if err := h.shareStore.DeleteNoteShare(n.ID, granteeID); err != nil {
		h.logger.Error("delete note share", "note_id", n.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to remove share"})
		return
	}

	h.notify("deleted", n.ID, userID, granteeID)
	w.WriteHeader(http.StatusNoContent)
}

type globalShareWithProfile struct {
	model.GlobalShare
	Grantee model.Profile `json:"grantee"`
}

// ListGlobalShares handles GET /api/shares/global
func (h *ShareHandler) ListGlobalShares(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	shares, err := h.shareStore.GlobalSharesByGranter(userID)
	if err != nil {
		h.logger.Error("list global shares", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list shares"})
		return
	}

	granteeIDs := make([]int64, 0, len(shares))
	for _, gs := range shares {
		granteeIDs = append(granteeIDs, gs.GranteeID)
	}
	profiles, err := h.userStore.ProfilesByIDs(granteeIDs)
	if err != nil {
		h.logger.Error("resolve grantee profiles", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list shares"})
		return
	}

	out := make([]globalShareWithProfile, 0, len(shares))
	for _, gs := range shares {
		out = append(out, globalShareWithProfile{GlobalShare: gs, Grantee: profiles[gs.GranteeID]})
	}
	writeJSON(w, http.StatusOK, out)
}

type createGlobalShareRequest struct {
	Email string `json:"email"`
}

// CreateGlobalShare handles POST /api/shares/global, opening all of the
// acting user's notes to the grantee.
func (h *ShareHandler) CreateGlobalShare(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req createGlobalShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	grantee, err := h.userStore.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("grantee lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create share"})
		return
	}
	if grantee == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no account with that email"})
		return
	}
	if grantee.ID == userID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot share notes with yourself"})
		return
	}

	gs, err := h.shareStore.CreateGlobalShare(userID, grantee.ID)
	if err != nil {
		h.logger.Error("create global share", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create share"})
		return
	}

	granter, err := h.userStore.GetByID(userID)
	if err == nil && granter != nil && h.emailClient.Configured() {
		if err := h.emailClient.SendGlobalShareNotice(grantee.Email, granter.Name); err != nil {
			h.logger.Error("send global share notice", "error", err)
		}
	}

	h.notify("created", 0, userID, grantee.ID)
	writeJSON(w, http.StatusCreated, globalShareWithProfile{GlobalShare: *gs, Grantee: grantee.Profile()})
}

// DeleteGlobalShare handles DELETE /api/shares/global/{granteeID}
func (h *ShareHandler) DeleteGlobalShare(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	granteeID, err := parsePathID(r, "granteeID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid grantee id"})
		return
	}

	if err := h.shareStore.DeleteGlobalShare(userID, granteeID); err != nil {
		h.logger.Error("delete global share", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to remove share"})
		return
	}

	h.notify("deleted", 0, userID, granteeID)
	w.WriteHeader(http.StatusNoContent)
}
