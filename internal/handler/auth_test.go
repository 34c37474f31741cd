package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hoffkamp/bureau/internal/auth"
	"github.com/hoffkamp/bureau/internal/model"
)

func (e *env) authHandler() *AuthHandler {
	return NewAuthHandler(e.users, e.sessions, e.engines, e.logger)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "bureau_session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	e := newTestEnv(t)
	h := e.authHandler()

	w := httptest.NewRecorder()
	h.Register(w, request(t, 0, "POST", "/api/auth/register",
		registerRequest{Email: "Alice@Example.com", Name: "Alice", Password: "hunter2hunter2"}, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	user := decodeBody[model.User](t, w)
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}

	c := sessionCookie(t, w)
	sess, err := e.sessions.GetByToken(c.Value)
	if err != nil || sess == nil {
		t.Fatalf("session lookup = %v, %v; want a live session", sess, err)
	}
	if sess.UserID != user.ID {
		t.Errorf("session user = %d, want %d", sess.UserID, user.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	h := e.authHandler()
	e.createUser(t, "alice@example.com")

	w := httptest.NewRecorder()
	h.Register(w, request(t, 0, "POST", "/api/auth/register",
		registerRequest{Email: "alice@example.com", Name: "Alice", Password: "hunter2hunter2"}, nil))
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	e := newTestEnv(t)
	h := e.authHandler()

	w := httptest.NewRecorder()
	h.Register(w, request(t, 0, "POST", "/api/auth/register",
		registerRequest{Email: "alice@example.com", Name: "Alice", Password: "short"}, nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLoginRightAndWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	h := e.authHandler()
	e.createUser(t, "alice@example.com") // password hunter2hunter2

	w := httptest.NewRecorder()
	h.Login(w, request(t, 0, "POST", "/api/auth/login",
		loginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	sessionCookie(t, w)

	w = httptest.NewRecorder()
	h.Login(w, request(t, 0, "POST", "/api/auth/login",
		loginRequest{Email: "alice@example.com", Password: "wrong"}, nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for wrong password", w.Code)
	}

	// Unknown email gets the same answer as a wrong password.
	w = httptest.NewRecorder()
	h.Login(w, request(t, 0, "POST", "/api/auth/login",
		loginRequest{Email: "nobody@example.com", Password: "hunter2hunter2"}, nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for unknown email", w.Code)
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	e := newTestEnv(t)
	h := e.authHandler()
	user := e.createUser(t, "alice@example.com")

	w := httptest.NewRecorder()
	h.Login(w, request(t, 0, "POST", "/api/auth/login",
		loginRequest{Email: "alice@example.com", Password: "hunter2hunter2"}, nil))
	token := sessionCookie(t, w).Value

	r := request(t, 0, "POST", "/api/auth/logout", nil, nil)
	sess, _ := e.sessions.GetByToken(token)
	r = r.WithContext(auth.WithAuth(context.Background(), auth.AuthContext{
		UserID: user.ID, SessionID: sess.ID, SessionToken: token,
	}))

	w = httptest.NewRecorder()
	h.Logout(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	if sess, _ := e.sessions.GetByToken(token); sess != nil {
		t.Error("session still valid after logout")
	}
	if c := sessionCookie(t, w); c.MaxAge != -1 {
		t.Errorf("cookie max-age = %d, want -1", c.MaxAge)
	}
}

func TestMeReturnsProfile(t *testing.T) {
	e := newTestEnv(t)
	h := e.authHandler()
	user := e.createUser(t, "alice@example.com")

	w := httptest.NewRecorder()
	h.Me(w, request(t, user.ID, "GET", "/api/auth/me", nil, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	got := decodeBody[model.User](t, w)
	if got.ID != user.ID || got.Email != "alice@example.com" {
		t.Errorf("me = %+v, want the acting user", got)
	}
}
