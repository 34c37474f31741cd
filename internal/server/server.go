package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hoffkamp/bureau/internal/backup"
	"github.com/hoffkamp/bureau/internal/email"
	"github.com/hoffkamp/bureau/internal/handler"
	"github.com/hoffkamp/bureau/internal/middleware"
	"github.com/hoffkamp/bureau/internal/notes"
	"github.com/hoffkamp/bureau/internal/push"
	"github.com/hoffkamp/bureau/internal/store"
	ws "github.com/hoffkamp/bureau/internal/websocket"
)

// PushConfig holds the VAPID key pair. Push notifications stay off when
// either key is missing.
type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

type Server struct {
	db      *sql.DB
	hub     *ws.Hub
	engines *notes.Manager

	authH     *handler.AuthHandler
	noteH     *handler.NoteHandler
	shareH    *handler.ShareHandler
	settingsH *handler.SettingsHandler
	pushH     *handler.PushHandler

	sessionStore *store.SessionStore
	noteStore    *store.NoteStore
	rateLimiter  *middleware.RateLimiter

	backupManager *backup.Manager
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

func New(db *sql.DB, emailClient *email.Client, backupCfg backup.Config, pushCfg PushConfig, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	noteStore := store.NewNoteStore(db)
	shareStore := store.NewShareStore(db)
	settingsStore := store.NewSettingsStore(db)
	pushStore := store.NewPushStore(db)

	// One engine per signed-in user, loaded with their view preferences.
	persist := store.NewPersist(db)
	engineLogger := logger.With("component", "engine")
	engines := notes.NewManager(func(userID int64) (*notes.Engine, error) {
		prefs, err := settingsStore.Preferences(userID)
		if err != nil {
			return nil, err
		}
		return notes.NewEngine(userID, prefs, persist, engineLogger), nil
	})

	backupMgr := backup.NewManager(backupCfg, db, logger, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
		})
	})

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
		pushSched = push.NewScheduler(pushSvc, pushStore, noteStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		engines:       engines,
		authH:         handler.NewAuthHandler(userStore, sessionStore, engines, logger.With("component", "auth")),
		noteH:         handler.NewNoteHandler(engines, noteStore, hub, logger.With("component", "note")),
		shareH:        handler.NewShareHandler(shareStore, noteStore, userStore, emailClient, engines, hub, logger.With("component", "share")),
		settingsH:     handler.NewSettingsHandler(settingsStore, engines, logger.With("component", "settings")),
		pushH:         pushH,
		sessionStore:  sessionStore,
		noteStore:     noteStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		pushScheduler: pushSched,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// NoteStore returns the note store for cleanup tasks.
func (s *Server) NoteStore() *store.NoteStore {
	return s.noteStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the follow-up reminder scheduler, or nil when
// push is not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

// Engines returns the engine manager, for graceful shutdown.
func (s *Server) Engines() *notes.Manager {
	return s.engines
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Notes API routes
	mux.HandleFunc("POST /api/notes", s.noteH.Create)
	mux.HandleFunc("GET /api/notes", s.noteH.List)
	mux.HandleFunc("GET /api/notes/groups", s.noteH.Groups)
	mux.HandleFunc("GET /api/notes/trash", s.noteH.Trash)
	mux.HandleFunc("GET /api/notes/{id}", s.noteH.Get)
	mux.HandleFunc("PUT /api/notes/{id}", s.noteH.UpdateContent)
	mux.HandleFunc("DELETE /api/notes/{id}", s.noteH.Delete)
	mux.HandleFunc("POST /api/notes/{id}/restore", s.noteH.Restore)
	mux.HandleFunc("PUT /api/notes/{id}/priority", s.noteH.SetPriority)
	mux.HandleFunc("PUT /api/notes/{id}/follow-up", s.noteH.SetFollowUp)
	mux.HandleFunc("PUT /api/notes/{id}/pin", s.noteH.SetPinned)
	mux.HandleFunc("PUT /api/notes/{id}/color", s.noteH.SetColor)
	mux.HandleFunc("PUT /api/notes/{id}/color-mode", s.noteH.SetColorMode)
	mux.HandleFunc("PUT /api/notes/{id}/archive", s.noteH.Archive)
	mux.HandleFunc("POST /api/notes/{id}/reorder", s.noteH.Reorder)

	// Version history
	mux.HandleFunc("GET /api/notes/{id}/versions", s.noteH.Versions)
	mux.HandleFunc("POST /api/notes/{id}/versions/{versionID}/restore", s.noteH.RestoreVersion)

	// Sharing
	mux.HandleFunc("GET /api/notes/{id}/shares", s.shareH.ListNoteShares)
	mux.HandleFunc("POST /api/notes/{id}/shares", s.shareH.CreateNoteShare)
	mux.HandleFunc("DELETE /api/notes/{id}/shares/{granteeID}", s.shareH.DeleteNoteShare)
	mux.HandleFunc("GET /api/shares/global", s.shareH.ListGlobalShares)
	mux.HandleFunc("POST /api/shares/global", s.shareH.CreateGlobalShare)
	mux.HandleFunc("DELETE /api/shares/global/{granteeID}", s.shareH.DeleteGlobalShare)

	// View preferences
	mux.HandleFunc("GET /api/preferences", s.settingsH.GetPreferences)
	mux.HandleFunc("PUT /api/preferences", s.settingsH.UpdatePreferences)

	// Push notification API routes
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}

	// Real-time change feed
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
