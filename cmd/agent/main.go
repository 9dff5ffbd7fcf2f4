// Package main is the entry point for the DeFi route agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shivam-V8/defi-agent/business/marketdata"
	"github.com/shivam-V8/defi-agent/business/permit"
	permitDI "github.com/shivam-V8/defi-agent/business/permit/di"
	"github.com/shivam-V8/defi-agent/business/policy"
	"github.com/shivam-V8/defi-agent/business/quoting"
	quotingDI "github.com/shivam-V8/defi-agent/business/quoting/di"
	"github.com/shivam-V8/defi-agent/business/simulation"
	simulationDI "github.com/shivam-V8/defi-agent/business/simulation/di"
	"github.com/shivam-V8/defi-agent/internal/apm"
	"github.com/shivam-V8/defi-agent/internal/config"
	"github.com/shivam-V8/defi-agent/internal/health"
	"github.com/shivam-V8/defi-agent/internal/logger"
	"github.com/shivam-V8/defi-agent/internal/metrics"
	"github.com/shivam-V8/defi-agent/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("defi-agent %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting defi agent",
		"version", version,
		"environment", cfg.App.Environment,
		"chains", len(cfg.Chains),
	)

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.OTLPProvider, log))
		log.Info(ctx, "tracing initialized", "endpoint", cfg.Telemetry.OTLPEndpoint)

		if _, err := metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		); err != nil {
			log.Warn(ctx, "failed to initialize metrics", "error", err)
		} else {
			port := cfg.Telemetry.PrometheusPort
			if port == 0 {
				port = 9090
			}
			go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
			log.Info(ctx, "prometheus metrics server started", "port", port)
		}
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Modules in dependency order: marketdata feeds quoting, policy scores it.
	modules := []monolith.Module{
		&marketdata.Module{},
		&policy.Module{},
		&quoting.Module{},
		&permit.Module{},
		&simulation.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	healthServer := health.NewServer(cfg.App.HealthPort, version)
	registerHealthChecks(healthServer, mono)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.App.HealthPort)
	}
	defer healthServer.Stop(ctx)

	log.Info(ctx, "all modules started, agent ready")

	<-ctx.Done()
	log.Info(ctx, "shutting down")
	return nil
}

func registerHealthChecks(srv *health.Server, mono monolith.Monolith) {
	services := mono.Services()

	srv.RegisterCheck("venues", func(ctx context.Context) (bool, string) {
		agg := quotingDI.GetAggregator(services)
		for name, ok := range agg.HealthCheck(ctx) {
			if !ok {
				return false, fmt.Sprintf("venue %s unavailable", name)
			}
		}
		return true, "all venues reachable"
	})

	srv.RegisterCheck("permit", func(ctx context.Context) (bool, string) {
		status := permitDI.GetService(services).HealthCheck(ctx)
		return status.Status != "unhealthy", "builders " + status.Status
	})

	srv.RegisterCheck("simulator", func(ctx context.Context) (bool, string) {
		if err := simulationDI.GetService(services).HealthCheck(ctx); err != nil {
			return false, err.Error()
		}
		return true, "simulator reachable"
	})
}
