// solminerd polls a LuxOS/CGMiner Antminer, derives a solar power signal,
// journals snapshots, and exposes metrics for power-curtailment automation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/solminer/solminer/pkg/coordinator"
	"github.com/solminer/solminer/pkg/history"
	"github.com/solminer/solminer/pkg/luxos"
	"github.com/solminer/solminer/pkg/solar"
)

const usage = `solminerd - Solar-aware Antminer control daemon

Usage:
  solminerd [command]

Commands:
  start       Start the polling daemon and metrics endpoint (default)
  check       Validate connectivity and authentication, then exit
  help        Show this help message

Environment Variables (or set in .env file):
  MINER_HOST          Miner IP or hostname (required)
  MINER_USERNAME      Firmware username (default: root)
  MINER_PASSWORD      Firmware password (default: root)
  UPDATE_INTERVAL     Polling interval (default: 30s)
  HISTORY_DB          SQLite snapshot journal path (default: solminer.db)
  METRICS_PORT        Prometheus metrics port (default: 9177)
  LOG_FILE            Log file path with rotation (default: stderr)
  LOG_LEVEL           debug, info, warn, error (default: info)
  STARTUP_PROFILE     Profile or power mode applied at startup (e.g. balanced, +2, eco_mode)
`

func main() {
	cmd := "start"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
	}

	cfg := LoadConfig()
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		cancel()
	}()

	switch cmd {
	case "start":
		runStart(ctx, cfg)
	case "check":
		runCheck(ctx, cfg)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func setupLogging(cfg *Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxAge:     30,
			MaxBackups: 3,
		})
	}
}

func runStart(ctx context.Context, cfg *Config) {
	if cfg.MinerHost == "" {
		log.Fatal("MINER_HOST is required")
	}

	client := luxos.NewClient(cfg.MinerHost, cfg.Username, cfg.Password)

	var store *history.Store
	if cfg.HistoryDB != "" {
		var err error
		store, err = history.Open(cfg.HistoryDB)
		if err != nil {
			log.Fatalf("failed to open history database: %v", err)
		}
		defer store.Close()
	}

	m := newMetrics()

	coord := coordinator.New(client, coordinator.Config{
		RefreshInterval: cfg.UpdateInterval,
		OnUpdate: func(snap *coordinator.Snapshot) {
			m.observe(cfg.MinerHost, snap)
			if store == nil {
				return
			}
			if err := store.Insert(ctx, snap); err != nil {
				log.WithError(err).Warn("failed to journal snapshot")
			}
		},
	})

	log.Infof("solminerd starting: miner=%s interval=%s metrics=:%d",
		cfg.MinerHost, cfg.UpdateInterval, cfg.MetricsPort)

	coord.Start()

	if cfg.StartupProfile != "" {
		applyStartupPreset(ctx, coord, cfg.StartupProfile)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	coord.Shutdown(shutdownCtx)
}

// applyStartupPreset resolves a startup preset: a power mode name maps to a
// power limit or curtailment fraction, anything else to a profile step.
func applyStartupPreset(ctx context.Context, coord *coordinator.Coordinator, name string) {
	if target, ok := solar.PowerModes[name]; ok {
		applied := false
		if target >= 1 {
			applied = coord.SetPowerLimit(ctx, int(target))
		} else {
			applied = coord.CurtailPower(ctx, target)
		}
		if applied {
			log.Infof("applied startup power mode %s", name)
		}
		return
	}

	profile := name
	if step, ok := solar.Profiles[name]; ok {
		profile = step
	}
	if coord.SetPowerProfile(ctx, profile) {
		log.Infof("applied startup profile %s", profile)
	}
}

func runCheck(ctx context.Context, cfg *Config) {
	if cfg.MinerHost == "" {
		log.Fatal("MINER_HOST is required")
	}

	client := luxos.NewClient(cfg.MinerHost, cfg.Username, cfg.Password)
	defer client.Close(ctx)

	if err := client.TestConnection(ctx); err != nil {
		log.Fatalf("connectivity check failed: %v", err)
	}

	version, err := client.GetVersion(ctx)
	if err == nil {
		log.Infof("miner reachable: %v", version)
	}
	fmt.Println("OK")
}
