package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/yacnet/signupd/internal/config"
	"github.com/yacnet/signupd/internal/domain/project"
	"github.com/yacnet/signupd/internal/domain/signup"
	"github.com/yacnet/signupd/internal/domain/slot"
	"github.com/yacnet/signupd/internal/sqlite"
	"github.com/yacnet/signupd/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	projectsTable := sqlite.NewTableStore(db, "Projects")
	slotsTable := sqlite.NewTableStore(db, "Slots")
	volunteersTable := sqlite.NewTableStore(db, "SlotVolunteers")

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
	}

	projectSvc := project.NewService(projectsTable, slotsTable, logger)
	slotSvc := slot.NewService(slotsTable, volunteersTable, logger)
	signupSvc := signup.NewService(slotsTable, volunteersTable, logger, registerer(registry))

	var verifier transport.AdminVerifier
	if cfg.Auth.Enabled {
		verifier = &staticKeyVerifier{hashes: cfg.Auth.AdminKeyHashes}
	}

	router := transport.NewServer(transport.Options{
		Projects: projectSvc,
		Slots:    slotSvc,
		Signups:  signupSvc,
		Verifier: verifier,
		Gatherer: gatherer(registry),
		Logger:   logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", addr, "auth", cfg.Auth.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func registerer(registry *prometheus.Registry) prometheus.Registerer {
	if registry == nil {
		return nil
	}
	return registry
}

func gatherer(registry *prometheus.Registry) prometheus.Gatherer {
	if registry == nil {
		return nil
	}
	return registry
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// staticKeyVerifier accepts bearer keys whose sha256 digest appears in the
// configured hash list. The subject is the digest itself.
type staticKeyVerifier struct {
	hashes []string
}

func (v *staticKeyVerifier) VerifyAdmin(_ context.Context, token string) (string, error) {
	hash := hashToken(token)
	for _, h := range v.hashes {
		if h == hash {
			return hash, nil
		}
	}
	return "", fmt.Errorf("unauthorized: invalid token")
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
