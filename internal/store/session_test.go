package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/hoffkamp/bureau/internal/database"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db), db
}

func TestSessionCreateAndGet(t *testing.T) {
	s, db := setupSessionTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	created, err := s.Create(user, "tok-abc", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	sess, err := s.GetByToken("tok-abc")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ID != created.ID || sess.UserID != user {
		t.Errorf("session = %+v", sess)
	}
}

func TestSessionExpired(t *testing.T) {
	s, db := setupSessionTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	if _, err := s.Create(user, "tok-old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create session: %v", err)
	}

	sess, err := s.GetByToken("tok-old")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess != nil {
		t.Error("expired session must not resolve")
	}
}

func TestSessionDelete(t *testing.T) {
	s, db := setupSessionTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	if _, err := s.Create(user, "tok-abc", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := s.Delete("tok-abc"); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	sess, err := s.GetByToken("tok-abc")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess != nil {
		t.Error("deleted session must not resolve")
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	s, db := setupSessionTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	if _, err := s.Create(user, "tok-live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create live session: %v", err)
	}
	if _, err := s.Create(user, "tok-dead", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("create dead session: %v", err)
	}

	count, err := s.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if count != 1 {
		t.Errorf("deleted = %d, want 1", count)
	}

	sess, err := s.GetByToken("tok-live")
	if err != nil {
		t.Fatalf("get live session: %v", err)
	}
	if sess == nil {
		t.Error("live session must survive the sweep")
	}
}
