package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/motionlab/kinema/internal/cache"
	"github.com/motionlab/kinema/internal/config"
	"github.com/motionlab/kinema/internal/dispatcher"
	"github.com/motionlab/kinema/internal/geo"
	"github.com/motionlab/kinema/internal/handlers"
	"github.com/motionlab/kinema/internal/influx"
	"github.com/motionlab/kinema/internal/logging"
	"github.com/motionlab/kinema/internal/monitor"
	"github.com/motionlab/kinema/internal/preset"
	"github.com/motionlab/kinema/internal/server"
	"github.com/motionlab/kinema/internal/session"
	"github.com/motionlab/kinema/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and simulation engine",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	defer backend.Close()

	var influxManager *influx.Manager
	if config.GetBool("influx.enabled") {
		zlog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		backupPath := filepath.Join(config.GetString("logsDir"), "influx_backup.gz")
		influxManager = influx.NewManager(zlog, backupPath)
		if err := influxManager.Connect(); err != nil {
			logger.Warn("InfluxDB unavailable, metrics export disabled", "error", err)
			influxManager = nil
		} else {
			defer influxManager.Close()
		}
	}

	workerManager := worker.NewManager(worker.Dependencies{
		RunIndex:      cache.NewRunIndex(),
		LogManager:    slogManager,
		Influx:        influxManager,
		WriteInterval: config.GetDuration("worker.writeInterval"),
	}, backend)
	workerManager.RegisterHandlers(eventDispatcher)
	workerManager.Start()
	defer workerManager.Stop()

	hub := server.NewHub(logger)
	sessions := session.NewManager(server.NewPublisher(hub, eventDispatcher), logger)

	if origin := config.GetString("geo.origin"); origin != "" {
		scene, err := geo.OriginFromString(origin)
		if err != nil {
			logger.Warn("Ignoring invalid geo.origin", "value", origin, "error", err)
		} else {
			scene.Name = config.GetString("geo.name")
			sessions.SetScene(&scene)
			logger.Info("Projectile runs anchored",
				"lat", scene.OriginLat, "lon", scene.OriginLon, "azimuth", scene.AzimuthDeg)
		}
	}

	monitorService := monitor.NewService(monitor.Dependencies{
		SessionManager: sessions,
		WorkerManager:  workerManager,
		Dispatcher:     eventDispatcher,
		LogManager:     slogManager,
		Influx:         influxManager,
		Interval:       config.GetDuration("monitor.interval"),
	})
	if err := monitorService.Start(); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}
	defer monitorService.Stop()

	presets, err := preset.Load(config.GetString("presets.path"))
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}

	svc := handlers.NewService(handlers.Dependencies{
		Classifier: newClassifier(),
		Sessions:   sessions,
		Status:     monitorService,
		Publisher:  eventDispatcher,
		LogManager: slogManager,
	})

	srv := server.New(server.Config{
		Addr:            config.GetString("server.addr"),
		ShutdownTimeout: config.GetDuration("server.shutdownTimeout"),
	}, server.Dependencies{
		Service: svc,
		Presets: presets,
		Hub:     hub,
		Logger:  logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	logger.Info("Listening", "addr", config.GetString("server.addr"), "storage", storageCfg.Type)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("Shutting down", "signal", sig.String())
	}

	sessions.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration("server.shutdownTimeout"))
	defer cancel()
	return srv.Shutdown(ctx)
}
