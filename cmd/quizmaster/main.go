package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quizmasterpro/quizmaster/internal/apiclient"
	"github.com/quizmasterpro/quizmaster/internal/auth"
	"github.com/quizmasterpro/quizmaster/internal/handler"
	appI18n "github.com/quizmasterpro/quizmaster/internal/i18n"
	"github.com/quizmasterpro/quizmaster/internal/model"
	"github.com/quizmasterpro/quizmaster/internal/store"
	"github.com/quizmasterpro/quizmaster/internal/workspace"
)

const (
	workspaceIdleTTL = 30 * time.Minute
	evictInterval    = time.Minute
	janitorInterval  = 10 * time.Minute
	shutdownTimeout  = 10 * time.Second
)

func main() {
	// A missing .env is fine; flags and the environment still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizmaster",
		Short: "Quiz Master Pro web front end",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportScoresCmd(), importQuestionsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizmaster --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP front end",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("api-url", "http://localhost:5000", "Quiz Master API base URL")
	f.Duration("api-timeout", 15*time.Second, "Timeout for a single API call")
	f.String("db", "quizmaster.db", "SQLite path for browser local storage")
	f.String("redis-url", "", "Redis URL for browser local storage (overrides --db)")
	f.StringP("lang", "l", "en", "Default UI language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /quiz)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.Int("page-size", 10, "Rows per page in score and user lists")
	f.Duration("session-ttl", store.DefaultTTL, "How long an untouched browser's storage survives")
	f.StringSlice("allowed-origins", nil, "Origins allowed to open the quiz websocket (empty allows all)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZMASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizmaster")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizmaster")
	v.AddConfigPath("/etc/quizmaster")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// openLocalStorage picks Redis when a URL is configured, SQLite otherwise.
// The returned cleanup closes the backend.
func openLocalStorage(ctx context.Context, v *viper.Viper) (store.LocalStorage, func(), error) {
	ttl := v.GetDuration("session-ttl")
	if url := v.GetString("redis-url"); url != "" {
		rdb, err := store.NewRedis(ctx, url, ttl)
		if err != nil {
			return nil, nil, err
		}
		return rdb, func() { rdb.Close() }, nil
	}

	db, err := store.New(v.GetString("db"), ttl)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	go store.Janitor(ctx, db, janitorInterval)
	return db, func() { db.Close() }, nil
}

func normalizeBasePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ls, closeStorage, err := openLocalStorage(ctx, v)
	if err != nil {
		return err
	}
	defer closeStorage()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	basePath := normalizeBasePath(v.GetString("base-path"))
	cfg := model.FrontendConfig{
		APIURL:         strings.TrimRight(v.GetString("api-url"), "/"),
		BasePath:       basePath,
		SecureCookies:  v.GetBool("secure-cookies"),
		PageSize:       v.GetInt("page-size"),
		AllowedOrigins: v.GetStringSlice("allowed-origins"),
	}

	api := apiclient.New(cfg.APIURL, apiclient.WithTimeout(v.GetDuration("api-timeout")))

	workspaces := workspace.NewRegistry(workspaceIdleTTL)
	defer workspaces.CloseAll()
	go workspaces.Run(ctx, evictInterval)

	h, err := handler.New(cfg, api, auth.New(ls), workspaces, nil)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(handler.BasePathMiddleware(basePath))
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(handler.BasePathMiddleware(""))
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"api_url", cfg.APIURL,
			"lang", lang,
			"base_path", basePath,
			"page_size", cfg.PageSize,
			"redis", v.GetString("redis-url") != "",
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
