package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/erazemk/shelfkeeper/internal/api"
	"github.com/erazemk/shelfkeeper/internal/auth"
	"github.com/erazemk/shelfkeeper/internal/config"
	"github.com/erazemk/shelfkeeper/internal/db"
	"github.com/erazemk/shelfkeeper/internal/inventory"
	"github.com/erazemk/shelfkeeper/internal/metrics"
	"github.com/erazemk/shelfkeeper/internal/store"
	"github.com/erazemk/shelfkeeper/internal/web"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. With a log path, all levels are also written to a size-rotated file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(cfg *config.Config) func() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	cleanup := func() {}

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if cfg.LogPath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		}
		cleanup = func() { rotator.Close() }
		stdoutW = io.MultiWriter(os.Stdout, rotator)
		stderrW = io.MultiWriter(os.Stderr, rotator)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup
}

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog := setupLogger(cfg)
	defer closeLog()

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	if err := ensureAdmin(ctx, database, cfg.AdminUser); err != nil {
		return err
	}

	jwtSecret, err := store.GetSecret(ctx, database, store.SettingJWTSecret)
	if err != nil {
		return err
	}
	sessionKey, err := store.GetSecret(ctx, database, store.SettingSessionKey)
	if err != nil {
		return err
	}

	m := metrics.New()
	sessions := auth.NewSessions([]byte(sessionKey), cfg.SessionMaxAge, cfg.SecureCookies)
	containers := &inventory.Containers{DB: database, Events: m}
	products := &inventory.Products{DB: database}

	templates, err := web.LoadTemplates()
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	mux := http.NewServeMux()
	api.Register(mux, api.Deps{
		DB:         database,
		Sessions:   sessions,
		JWTSecret:  jwtSecret,
		Containers: containers,
		Products:   products,
		Clock:      time.Now,
	})
	err = web.Register(mux, &web.Server{
		DB:         database,
		Templates:  templates,
		Sessions:   sessions,
		Containers: containers,
		Products:   products,
		Clock:      time.Now,
	})
	if err != nil {
		return fmt.Errorf("registering pages: %w", err)
	}
	mux.Handle("GET /metrics", m.Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(m.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// ensureAdmin creates the first account when the database has no users and
// prints its generated password once.
func ensureAdmin(ctx context.Context, database *sql.DB, username string) error {
	n, err := store.CountUsers(ctx, database)
	if err != nil {
		return err
	}
	if n > 0 || username == "" {
		return nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, username, string(hash)); err != nil {
		return fmt.Errorf("creating first user: %w", err)
	}

	fmt.Println("Account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password. It cannot be recovered.")
	fmt.Println()
	return nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
