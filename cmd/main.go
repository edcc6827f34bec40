package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studysync/study-service/config"
	"github.com/studysync/study-service/internal/postgres"
	"github.com/studysync/study-service/internal/security"
	"github.com/studysync/study-service/internal/service"
	httpx "github.com/studysync/study-service/internal/transport/http"
	httpmw "github.com/studysync/study-service/internal/transport/http/middleware"
	"github.com/studysync/study-service/internal/transport/ws"
	"github.com/studysync/study-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting study-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		ApplicationName: cfg.Logging.Service,
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// --- auth ---
	pub, err := security.LoadRSAPublicKeyFromPEM(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("load jwt public key: %v", err)
	}
	verifier := security.NewTokenVerifier(pub, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.AuthClockSkew())

	// --- repos ---
	roomRepo := postgres.NewRoomRepository(db.Pool)
	sessionRepo := postgres.NewSessionRepository(db.Pool)
	userRepo := postgres.NewUserRepository(db.Pool)

	// --- services ---
	bcryptCfg := &security.BcryptConfig{
		Cost:      cfg.Security.BcryptCost,
		MinLength: cfg.Security.MinPasswordLen,
	}
	roomSvc := service.NewRoomService(roomRepo, userRepo, bcryptCfg)
	sessionSvc := service.NewSessionService(sessionRepo)

	// --- signaling relay ---
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, sessionSvc, cfg.WSPingInterval())

	// --- HTTP ---
	handler := httpx.NewHandler(roomSvc, sessionSvc)
	auth := httpmw.Auth(verifier, userRepo)
	router := httpx.NewRouter(handler, auth, wsServer, httpx.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
