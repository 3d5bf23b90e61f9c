package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"matching-pairs/api"
	"matching-pairs/config"
	"matching-pairs/events"
	"matching-pairs/lobby"
	"matching-pairs/loghandler"
	"matching-pairs/storage"
	"matching-pairs/ws"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stderr, level)))

	if envErr != nil {
		slog.Debug("no .env file found; using environment variables", "tag", "config")
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "tag", "config", "err", err)
		os.Exit(1)
	}
	if cfg.AuthBaseURL == "" {
		slog.Info("AUTH_BASE_URL is not set; playing anonymously", "tag", "config")
	}
	slog.Info("configuration", "tag", "config", "pairs", cfg.Pairs, "match_delay_ms", cfg.MatchDelayMS,
		"ws_port", cfg.WSPort, "storage", cfg.DatabaseURL != "", "nats", cfg.NATSURL != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connecting to Postgres", "tag", "storage", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	publisher, err := events.Connect(cfg.NATSURL)
	if err != nil {
		// Rounds are still played and stored without the broker.
		slog.Error("connecting to NATS", "tag", "events", "err", err)
	}
	defer publisher.Close()

	roundStore, roundPublisher := roundSinks(store, publisher)
	handler, lb := newServer(ctx, cfg, roundStore, roundPublisher)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WSPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown", "tag", "http", "err", err)
		}
	}()

	slog.Info("matching pairs server listening", "tag", "http", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server", "tag", "http", "err", err)
		os.Exit(1)
	}
	lb.Wait()
	slog.Info("server stopped", "tag", "http")
}

// roundSinks converts the optional backends to interfaces that are nil when
// the backend is not configured.
func roundSinks(store *storage.Store, publisher *events.Publisher) (storage.RoundStore, lobby.RoundPublisher) {
	var rs storage.RoundStore
	if store != nil {
		rs = store
	}
	var rp lobby.RoundPublisher
	if publisher != nil {
		rp = publisher
	}
	return rs, rp
}

// newServer wires the lobby, websocket hub and API onto one mux. Sessions and
// the hub stop when ctx is cancelled.
func newServer(ctx context.Context, cfg *config.Config, store storage.RoundStore, publisher lobby.RoundPublisher) (http.Handler, *lobby.Lobby) {
	lb := lobby.New(ctx, cfg, store, publisher)

	hub := ws.NewHub(cfg, lb)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	api.NewHandler(cfg, store, lb).Register(mux)
	return mux, lb
}
