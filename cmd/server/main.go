package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voltora-energy/be-install-workflow/internal/client"
	"github.com/voltora-energy/be-install-workflow/internal/handler"
	"github.com/voltora-energy/be-install-workflow/internal/platform/config"
	"github.com/voltora-energy/be-install-workflow/internal/platform/database"
	"github.com/voltora-energy/be-install-workflow/internal/platform/logger"
	"github.com/voltora-energy/be-install-workflow/internal/platform/middleware"
	natsclient "github.com/voltora-energy/be-install-workflow/internal/platform/nats"
	"github.com/voltora-energy/be-install-workflow/internal/repository"
	"github.com/voltora-energy/be-install-workflow/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Int("http_port", cfg.Server.Port).
		Msg("Starting installation workflow service")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Str("database", cfg.Database.Database).Msg("Connected to database")

	// NATS is optional; the service runs without notifications when no URL
	// is configured.
	var nc *natsclient.Client
	if cfg.NATS.URL != "" {
		nc, err = natsclient.Connect(cfg.NATS.URL, cfg.NATS.StreamName, cfg.NATS.SubjectPrefix)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, notifications disabled")
		} else {
			defer nc.Close()
			log.Info().Str("url", cfg.NATS.URL).Msg("Connected to NATS")
		}
	}
	notifier := client.NewNotificationPublisher(nc, cfg.NATS.SubjectPrefix, log.Logger)

	stepRepo := repository.NewStepRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	customerRepo := repository.NewCustomerRepository(db)

	gate := service.NewPaymentGate(paymentRepo)
	installationSvc := service.NewInstallationService(db, stepRepo, customerRepo, auditRepo, gate, notifier, log)
	quotationSvc := service.NewQuotationService(db, quotationRepo, approvalRepo, notifier, log)
	orchestrator := service.NewOrchestrator(db, installationSvc, quotationSvc, quotationRepo, customerRepo, auditRepo, notifier, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := db.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  status,
			"service": cfg.Service.Name,
			"version": cfg.Service.Version,
		})
	})

	httpHandler := handler.NewHTTPHandler(installationSvc, quotationSvc, orchestrator, gate, log)
	httpHandler.Register(mux)

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger(&log.Logger),
		middleware.Recovery(&log.Logger),
		middleware.CORS([]string{"*"}),
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.Issuer, "/health"),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
