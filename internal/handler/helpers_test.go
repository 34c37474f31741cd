package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hoffkamp/bureau/internal/auth"
	"github.com/hoffkamp/bureau/internal/database"
	"github.com/hoffkamp/bureau/internal/model"
	"github.com/hoffkamp/bureau/internal/notes"
	"github.com/hoffkamp/bureau/internal/store"
)

// env wires real stores and a real engine manager over an in-memory
// database, so handler tests exercise the full stack below HTTP.
type env struct {
	db       *sql.DB
	users    *store.UserStore
	sessions *store.SessionStore
	notes    *store.NoteStore
	shares   *store.ShareStore
	settings *store.SettingsStore
	engines  *notes.Manager
	logger   *slog.Logger
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	settings := store.NewSettingsStore(db)
	persist := store.NewPersist(db)

	engines := notes.NewManager(func(userID int64) (*notes.Engine, error) {
		prefs, err := settings.Preferences(userID)
		if err != nil {
			return nil, err
		}
		return notes.NewEngine(userID, prefs, persist, logger), nil
	})
	t.Cleanup(engines.Shutdown)

	return &env{
		db:       db,
		users:    store.NewUserStore(db),
		sessions: store.NewSessionStore(db),
		notes:    store.NewNoteStore(db),
		shares:   store.NewShareStore(db),
		settings: settings,
		engines:  engines,
		logger:   logger,
	}
}

func (e *env) noteHandler() *NoteHandler {
	return NewNoteHandler(e.engines, e.notes, nil, e.logger)
}

func (e *env) shareHandler() *ShareHandler {
	return NewShareHandler(e.shares, e.notes, e.users, nil, e.engines, nil, e.logger)
}

func (e *env) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u, err := e.users.Create(email, "Test User", hash)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *env) createNote(t *testing.T, ownerID int64, title string) *model.Note {
	t.Helper()
	n, err := e.notes.Create(model.Note{OwnerID: ownerID, Title: title, Content: "body"})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	return n
}

// request builds an authenticated request with an optional JSON body and
// path values.
func request(t *testing.T, userID int64, method, target string, body any, pathValues map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	if userID != 0 {
		r = r.WithContext(auth.WithAuth(context.Background(), auth.AuthContext{UserID: userID}))
	}
	for k, v := range pathValues {
		r.SetPathValue(k, v)
	}
	return r
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}
