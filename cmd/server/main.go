package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/dasmlab/parlance/pkg/config"
	"github.com/dasmlab/parlance/pkg/monitor"
	"github.com/dasmlab/parlance/pkg/server"
	"github.com/dasmlab/parlance/pkg/service"
	"github.com/dasmlab/parlance/pkg/translate"
	"github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "", "Path to a YAML config file")

	// Listener overrides
	host     = flag.String("host", "", "HTTP listen host (overrides HOST)")
	port     = flag.Int("port", 0, "HTTP listen port (overrides PORT)")
	grpcPort = flag.Int("grpc-port", 0, "gRPC health port (overrides GRPC_PORT)")

	// Provider overrides
	provider   = flag.String("provider", "", "Translation provider: google, huggingface or proxy (overrides TRANSLATION_PROVIDER)")
	apiBaseURL = flag.String("api-base-url", "", "Base URL of the translation proxy (overrides API_BASE_URL)")

	logLevel = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.WithFields(logrus.Fields{
		"addr":      cfg.Addr(),
		"grpc_port": cfg.GRPCPort,
		"provider":  cfg.Provider,
		"log_level": level.String(),
	}).Info("Starting Parlance translation server")

	tc, err := cfg.TranslatorConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to parse translation provider")
	}
	tc.Logger = logger

	translator, err := translate.NewTranslator(tc)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create translator")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	logger.Info("Checking translator health...")
	if err := translator.CheckHealth(ctx); err != nil {
		logger.WithError(err).Warn("Translator health check failed, but continuing anyway")
		logger.Warn("Server will start, but translation requests may fail until the provider is ready")
	} else {
		logger.Info("Translator health check passed")
	}
	cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	store := monitor.New(monitor.WithMetrics(monitor.NewMetrics(reg, string(tc.Provider))))

	translationService := service.NewTranslationService(translator, tc.Provider, store, logger)
	httpServer := server.NewHTTPServer(translationService, logger, server.Options{
		Addr:        cfg.Addr(),
		CORSOrigins: cfg.CORSOrigins,
		Gatherer:    reg,
	})

	grpcServer, healthServer := newGRPCServer(logger)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"port": cfg.GRPCPort,
		}).Fatal("Failed to listen on port")
	}

	// Periodic usage summary
	statsCtx, statsCancel := context.WithCancel(context.Background())
	defer statsCancel()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				st := store.Snapshot()
				logger.WithFields(logrus.Fields{
					"translations":   st.Translations,
					"detections":     st.Detections,
					"errors":         st.Errors,
					"characters":     st.Characters,
					"avg_latency_ms": st.AvgLatencyMs,
				}).Debug("Monitor stats")
			case <-statsCtx.Done():
				return
			}
		}
	}()

	errChan := make(chan error, 2)
	go func() {
		logger.WithFields(logrus.Fields{
			"port": cfg.GRPCPort,
		}).Info("gRPC health server listening")
		if err := grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("failed to serve gRPC: %w", err)
		}
	}()
	go func() {
		if err := httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.WithError(err).Fatal("Server error")
	case sig := <-sigChan:
		logger.WithFields(logrus.Fields{
			"signal": sig.String(),
		}).Info("Received signal, shutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		if err := httpServer.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Warn("HTTP server shutdown incomplete")
		}

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
			logger.Info("Server stopped gracefully")
		case <-ctx.Done():
			logger.Warn("Graceful shutdown timeout, forcing stop...")
			grpcServer.Stop()
		}
	}
}

// applyFlags lets explicitly set flags win over file and environment values.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = *host
		case "port":
			cfg.Port = *port
		case "grpc-port":
			cfg.GRPCPort = *grpcPort
		case "provider":
			cfg.Provider = *provider
		case "api-base-url":
			cfg.APIBaseURL = *apiBaseURL
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
}

// newGRPCServer builds the gRPC server that carries the standard health
// service, so orchestrators can probe readiness without HTTP.
func newGRPCServer(logger *logrus.Logger) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{
		grpc.Creds(insecure.NewCredentials()),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             15 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  30 * time.Second,
			Timeout:               10 * time.Second,
		}),
	}
	logger.WithFields(logrus.Fields{
		"min_time":            "15s",
		"max_connection_idle": "5m",
		"max_connection_age":  "30m",
	}).Debug("Configured gRPC server keepalive settings")

	s := grpc.NewServer(opts...)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	// Reflection for grpcurl
	reflection.Register(s)

	return s, healthServer
}
