package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hoffkamp/bureau/internal/backup"
	"github.com/hoffkamp/bureau/internal/database"
	"github.com/hoffkamp/bureau/internal/email"
	"github.com/hoffkamp/bureau/internal/logging"
	"github.com/hoffkamp/bureau/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("BUREAU_LOG_LEVEL"))

	port := os.Getenv("BUREAU_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("BUREAU_DB_PATH")
	if dbPath == "" {
		dbPath = "bureau.db"
	}

	baseURL := os.Getenv("BUREAU_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", port)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("BUREAU_POSTMARK_TOKEN"),
		os.Getenv("BUREAU_FROM_EMAIL"),
		baseURL,
	)

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("BUREAU_S3_ENDPOINT"),
			Bucket:    os.Getenv("BUREAU_S3_BUCKET"),
			Region:    os.Getenv("BUREAU_S3_REGION"),
			AccessKey: os.Getenv("BUREAU_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("BUREAU_S3_SECRET_KEY"),
		},
		DBPath:     dbPath,
		Passphrase: os.Getenv("BUREAU_BACKUP_PASSPHRASE"),
	}
	if interval := os.Getenv("BUREAU_BACKUP_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			slog.Error("invalid BUREAU_BACKUP_INTERVAL", "value", interval, "error", err)
			os.Exit(1)
		}
		backupCfg.Interval = d
	}

	pushCfg := server.PushConfig{
		VAPIDPublicKey:  os.Getenv("BUREAU_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("BUREAU_VAPID_PRIVATE_KEY"),
	}

	srv := server.New(db, emailClient, backupCfg, pushCfg, logger)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	srv.BackupManager().Start(rootCtx)
	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(rootCtx)
	}

	// Hourly housekeeping: expired sessions, purge-overdue notes, rate
	// limiter buckets.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				if n, err := srv.NoteStore().PurgeExpired(); err != nil {
					slog.Error("purge deleted notes", "error", err)
				} else if n > 0 {
					slog.Info("purged deleted notes", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-rootCtx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("bureau starting", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	rootCancel()
	srv.BackupManager().Stop()
	if sched := srv.PushScheduler(); sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	// Let in-flight reconciliations land before the process exits.
	srv.Engines().Shutdown()
}
