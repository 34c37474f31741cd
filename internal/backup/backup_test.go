package backup

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/hoffkamp/bureau/internal/database"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

func configuredManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	return NewManager(cfg, nil, slog.New(slog.DiscardHandler), nil)
}

func TestManagerStateLifecycle(t *testing.T) {
	// Without S3 config -> disabled
	m := configuredManager(t, Config{})
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}

	// Missing passphrase -> still disabled
	m = configuredManager(t, Config{
		S3: S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
	})
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q without passphrase", m.Status().State, StateDisabled)
	}

	// Full config -> idle
	m = configuredManager(t, Config{
		S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "correct horse",
	})
	if m.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m.Status().State, StateIdle)
	}
}

func TestManagerStatusCallback(t *testing.T) {
	var received []Status
	var mu sync.Mutex
	cb := func(s Status) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}

	m := NewManager(Config{
		S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "pw",
	}, nil, slog.New(slog.DiscardHandler), cb)

	m.setStatus(Status{State: StateRunning, InProgress: true})
	m.setStatus(Status{State: StateIdle})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d callbacks, want 2", len(received))
	}
	if received[0].State != StateRunning {
		t.Errorf("first callback state = %q, want %q", received[0].State, StateRunning)
	}
	if received[1].State != StateIdle {
		t.Errorf("second callback state = %q, want %q", received[1].State, StateIdle)
	}
}

func TestManagerStopSafety(t *testing.T) {
	m := configuredManager(t, Config{
		S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "pw",
		Interval:   time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerDisabledNoStart(t *testing.T) {
	m := configuredManager(t, Config{})

	m.Start(context.Background()) // no-op for disabled state
	m.Stop()                      // should not block
}

func TestRunNowAndRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "bureau.db")

	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock := newMockS3()
	m := NewManager(Config{
		S3:         S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "correct horse",
		DBPath:     dbPath,
	}, db, slog.New(slog.DiscardHandler), nil)
	m.client = mock

	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if key == "" {
		t.Fatal("expected a backup key")
	}

	mock.mu.Lock()
	data, ok := mock.objects[key]
	mock.mu.Unlock()
	if !ok || len(data) == 0 {
		t.Fatal("expected uploaded object")
	}

	st := m.Status()
	if st.State != StateIdle || st.LastBackup == nil || st.LastKey != key {
		t.Errorf("status = %+v, want idle with last backup set", st)
	}

	// The uploaded backup decrypts back to a database that passes the
	// integrity check and replaces the current file.
	if err := m.Restore(context.Background(), key); err != nil {
		t.Fatalf("restore: %v", err)
	}
}

func TestRunNowUnconfigured(t *testing.T) {
	m := configuredManager(t, Config{})
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected error for unconfigured manager")
	}
}
