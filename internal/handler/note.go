package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hoffkamp/bureau/internal/auth"
	"github.com/hoffkamp/bureau/internal/model"
	"github.com/hoffkamp/bureau/internal/notes"
	"github.com/hoffkamp/bureau/internal/store"
	"github.com/hoffkamp/bureau/internal/websocket"
)

type NoteHandler struct {
	engines   *notes.Manager
	noteStore *store.NoteStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewNoteHandler(engines *notes.Manager, ns *store.NoteStore, hub *websocket.Hub, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{engines: engines, noteStore: ns, hub: hub, logger: logger}
}

func (h *NoteHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// engine resolves the acting user's engine, answering the request itself
// on failure.
func (h *NoteHandler) engine(w http.ResponseWriter, r *http.Request) (*notes.Engine, int64, bool) {
	userID := auth.UserID(r.Context())
	eng, err := h.engines.Engine(userID)
	if err != nil {
		h.logger.Error("load engine", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load notes"})
		return nil, 0, false
	}
	return eng, userID, true
}

// respond writes the mutation outcome and fans the change out. Noop
// results change nothing and are not broadcast.
func (h *NoteHandler) respond(w http.ResponseWriter, actorID int64, res notes.Result, err error) {
	if err != nil {
		writeMutationError(w, err)
		return
	}
	if !res.Noop {
		h.broadcast(websocket.NewMessage("note", "updated", res.Note.ID, res.Note.OwnerID))
		h.engines.NotifyChange(res.Note.OwnerID, actorID)
	}
	writeJSON(w, http.StatusOK, res)
}

// Groups handles GET /api/notes/groups
func (h *NoteHandler) Groups(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, eng.Groups())
}

// List handles GET /api/notes
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engine(w, r)
	if !ok {
		return
	}
	ns := eng.Notes()
	if ns == nil {
		ns = []model.Note{}
	}
	writeJSON(w, http.StatusOK, ns)
}

// Get handles GET /api/notes/{id}
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	n, found := eng.Note(id)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "note not found"})
		return
	}
	writeJSON(w, http.StatusOK, n)
}

type createNoteRequest struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Color         *string `json:"color"`
	PriorityLevel int     `json:"priority_level"`
}

// Create handles POST /api/notes
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "note needs a title or content"})
		return
	}
	if req.PriorityLevel < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "priority level must be >= 0"})
		return
	}

	n, err := h.noteStore.Create(model.Note{
		OwnerID:       userID,
		Title:         req.Title,
		Content:       req.Content,
		Color:         req.Color,
		ColorFullCard: eng.Preferences().DefaultColorFullCard,
		PriorityLevel: req.PriorityLevel,
	})
	if err != nil {
		h.logger.Error("create note", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create note"})
		return
	}

	// The actor's engine has no optimistic state for a brand-new note, so
	// it reloads too.
	eng.HandleRemoteChange(userID)
	h.engines.NotifyChange(userID, userID)
	h.broadcast(websocket.NewMessage("note", "created", n.ID, userID))
	writeJSON(w, http.StatusCreated, n)
}

type updateContentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateContent handles PUT /api/notes/{id}
func (h *NoteHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req updateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	res, err := eng.UpdateContent(id, req.Title, req.Content)
	h.respond(w, userID, res, err)
}

type priorityRequest struct {
	Level int `json:"level"`
}

// SetPriority handles PUT /api/notes/{id}/priority
func (h *NoteHandler) SetPriority(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req priorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	res, err := eng.SetPriority(id, req.Level)
	h.respond(w, userID, res, err)
}

type followUpRequest struct {
	FollowUpAt *time.Time `json:"follow_up_at"`
}

// SetFollowUp handles PUT /api/notes/{id}/follow-up. A null date clears
// the follow-up.
func (h *NoteHandler) SetFollowUp(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req followUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	res, err := eng.SetFollowUp(id, req.FollowUpAt)
	h.respond(w, userID, res, err)
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

// SetPinned handles PUT /api/notes/{id}/pin
func (h *NoteHandler) SetPinned(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	res, err := eng.SetPinned(id, req.Pinned)
	h.respond(w, userID, res, err)
}

type colorRequest struct {
	Color *string `json:"color"`
}

// SetColor handles PUT /api/notes/{id}/color. A null color clears the tag.
func (h *NoteHandler) SetColor(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req colorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	res, err := eng.SetColor(id, req.Color)
	h.respond(w, userID, res, err)
}

type colorModeRequest struct {
	FullCard bool `json:"full_card"`
}

// SetColorMode handles PUT /api/notes/{id}/color-mode
func (h *NoteHandler) SetColorMode(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req colorModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	res, err := eng.SetColorMode(id, req.FullCard)
	h.respond(w, userID, res, err)
}

type archiveRequest struct {
	Archived bool `json:"archived"`
}

// Archive handles PUT /api/notes/{id}/archive
func (h *NoteHandler) Archive(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	res, err := eng.Archive(id, req.Archived)
	h.respond(w, userID, res, err)
}

type reorderRequest struct {
	FromGroup string `json:"from_group"`
	ToGroup   string `json:"to_group"`
}

// Reorder handles POST /api/notes/{id}/reorder, the drag-end event. A
// drop on the note's own group comes back as a noop the frontend can
// surface as an informational message.
func (h *NoteHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	res, err := eng.Reorder(id, req.FromGroup, req.ToGroup)
	h.respond(w, userID, res, err)
}

// Delete handles DELETE /api/notes/{id}. Notes are soft-deleted and stay
// recoverable until their purge deadline.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	res, err := eng.SoftDelete(id)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	h.broadcast(websocket.NewMessage("note", "deleted", id, userID))
	h.engines.NotifyChange(userID, userID)
	writeJSON(w, http.StatusOK, res)
}

// Trash handles GET /api/notes/trash
func (h *NoteHandler) Trash(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	deleted, err := h.noteStore.ListDeleted(userID)
	if err != nil {
		h.logger.Error("list deleted notes", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list deleted notes"})
		return
	}
	if deleted == nil {
		deleted = []model.Note{}
	}
	writeJSON(w, http.StatusOK, deleted)
}

// Restore handles POST /api/notes/{id}/restore, undoing a soft delete.
// The note is gone from the engine's collection while deleted, so the
// restore goes straight to the store.
func (h *NoteHandler) Restore(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	affected, err := h.noteStore.Update(id, userID, model.NotePatch{SetDeleted: true})
	if err != nil {
		h.logger.Error("restore note", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to restore note"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "note not found"})
		return
	}

	eng.HandleRemoteChange(userID)
	h.engines.NotifyChange(userID, userID)
	h.broadcast(websocket.NewMessage("note", "restored", id, userID))

	n, err := h.noteStore.GetByID(id)
	if err != nil || n == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Versions handles GET /api/notes/{id}/versions
func (h *NoteHandler) Versions(w http.ResponseWriter, r *http.Request) {
	eng, _, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if _, found := eng.Note(id); !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "note not found"})
		return
	}

	versions, err := eng.Versions(id)
	if err != nil {
		h.logger.Error("list versions", "note_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list versions"})
		return
	}
	if versions == nil {
		versions = []model.NoteVersion{}
	}
	writeJSON(w, http.StatusOK, versions)
}

// RestoreVersion handles POST /api/notes/{id}/versions/{versionID}/restore
func (h *NoteHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	eng, userID, ok := h.engine(w, r)
	if !ok {
		return
	}
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	versionID, err := parsePathID(r, "versionID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid version id"})
		return
	}

	res, err := eng.RestoreVersion(id, versionID)
	h.respond(w, userID, res, err)
}
