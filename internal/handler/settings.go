package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hoffkamp/bureau/internal/auth"
	"github.com/hoffkamp/bureau/internal/model"
	"github.com/hoffkamp/bureau/internal/notes"
	"github.com/hoffkamp/bureau/internal/store"
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	engines       *notes.Manager
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, engines *notes.Manager, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, engines: engines, logger: logger}
}

// GetPreferences handles GET /api/preferences
func (h *SettingsHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	prefs, err := h.settingsStore.Preferences(userID)
	if err != nil {
		h.logger.Error("load preferences", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load preferences"})
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /api/preferences. The user's engine is
// dropped so the next request rebuilds it with the new view preferences.
func (h *SettingsHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var prefs model.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.settingsStore.SavePreferences(userID, prefs); err != nil {
		h.logger.Error("save preferences", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save preferences"})
		return
	}

	h.engines.Drop(userID)
	writeJSON(w, http.StatusOK, prefs)
}
