// Package server wires the whispden runtime and HTTP lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/perttula/whispden/internal/api"
	"github.com/perttula/whispden/internal/game/service"
	"github.com/perttula/whispden/internal/game/storage"
	"github.com/perttula/whispden/internal/game/storage/postgres"
	"github.com/perttula/whispden/internal/game/storage/sqlite"
	"github.com/perttula/whispden/internal/platform/config"
	"github.com/perttula/whispden/internal/platform/timeouts"
	"github.com/perttula/whispden/internal/relay"
)

type serverEnv struct {
	DBDriver     string        `env:"WHISPDEN_DB_DRIVER"`
	DBPath       string        `env:"WHISPDEN_DB_PATH"`
	DBURL        string        `env:"WHISPDEN_DB_URL"`
	Strategy     string        `env:"WHISPDEN_SELECTION_STRATEGY"`
	CleanupDelay time.Duration `env:"WHISPDEN_CLEANUP_DELAY"`
	SessionIdle  time.Duration `env:"WHISPDEN_SESSION_IDLE"`
	ExpirySweep  time.Duration `env:"WHISPDEN_EXPIRY_SWEEP"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBDriver) == "" {
		cfg.DBDriver = "sqlite"
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "whispden.db")
	}
	if cfg.CleanupDelay <= 0 {
		cfg.CleanupDelay = timeouts.CleanupDelay
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = timeouts.SessionIdle
	}
	if cfg.ExpirySweep <= 0 {
		cfg.ExpirySweep = timeouts.ExpirySweep
	}
	return cfg
}

// Server hosts the whispden HTTP API, the websocket relay, and the storage
// lifecycle, including the idle-session expiry sweep.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      storage.Store
	cleaner    *service.Cleaner
	rounds     *service.RoundService
	idle       time.Duration
	sweep      time.Duration
}

// New creates a configured whispden server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured whispden server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env := loadServerEnv()
	store, err := openGameStore(env)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	strategy, err := service.NewStrategy(env.Strategy, store, nil)
	if err != nil {
		_ = store.Close()
		_ = listener.Close()
		return nil, err
	}

	cleaner := service.NewCleaner(store, env.CleanupDelay)
	lobby := service.NewLobbyService(store, nil, nil, nil)
	turns := service.NewTurnService(store, strategy, nil, nil)
	rounds := service.NewRoundService(store, cleaner, nil)
	guesses := service.NewGuessService(store, service.NewScoreLedger(store), rounds, nil, nil)
	hub := relay.NewHub()

	mux := api.NewRouter(lobby, turns, guesses, rounds, hub)
	httpServer := &http.Server{
		Handler:           otelhttp.NewHandler(mux, "whispden"),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	return &Server{
		listener:   listener,
		httpServer: httpServer,
		store:      store,
		cleaner:    cleaner,
		rounds:     rounds,
		idle:       env.SessionIdle,
		sweep:      env.ExpirySweep,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a whispden server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// RunWithAddr creates and serves a whispden server on addr until context
// cancellation.
func RunWithAddr(ctx context.Context, addr string) error {
	server, err := NewWithAddr(addr)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server and the expiry sweep until context
// cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.sweepIdleSessions(sweepCtx)

	log.Printf("whispden server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown http server: %v", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// sweepIdleSessions periodically expires sessions that have gone quiet.
func (s *Server) sweepIdleSessions(ctx context.Context) {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.rounds.ExpireIdleSessions(ctx, time.Now().Add(-s.idle))
			if err != nil {
				log.Printf("expire idle sessions: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("expired %d idle sessions", expired)
			}
		}
	}
}

// Close releases whispden server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.cleaner != nil {
		s.cleaner.Stop()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close game store: %v", err)
		}
	}
}

func openGameStore(env serverEnv) (storage.Store, error) {
	switch strings.ToLower(strings.TrimSpace(env.DBDriver)) {
	case "sqlite":
		if dir := filepath.Dir(env.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(env.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := postgres.Open(env.DBURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", env.DBDriver)
	}
}
