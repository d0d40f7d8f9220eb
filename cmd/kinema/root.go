package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/motionlab/kinema/internal/api"
	"github.com/motionlab/kinema/internal/classify"
	"github.com/motionlab/kinema/internal/config"
	"github.com/motionlab/kinema/internal/logging"
	intotel "github.com/motionlab/kinema/internal/otel"
)

const serviceName = "kinema"

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

var (
	configDir string

	sessionStart = time.Now()

	slogManager  *logging.SlogManager
	logger       *slog.Logger
	otelProvider *intotel.Provider
	logFile      *os.File
)

var rootCmd = &cobra.Command{
	Use:   "kinema",
	Short: "Physics simulation service for natural-language motion demos",
	Long: `kinema turns free-text prompts into running physics simulations.
It serves an HTTP/websocket API, records simulation runs to a
configurable storage backend, and ships an offline terminal client.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() == "version" {
			return
		}
		teardown()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "kinema %s (built %s)\n", Version, BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", ".", "directory containing kinema.json")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration and initializes logging, OTel, and the
// optional GELF handler. It never fails the command over a missing
// config file; defaults cover every key.
func setup(cmd *cobra.Command) error {
	cfgErr := config.Load(configDir)

	slogManager = logging.NewSlogManager()

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err == nil {
		logPath := logging.LogFilePath(logsDir, serviceName, sessionStart)
		logFile, _ = os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled && logFile != nil {
		p, err := intotel.New(intotel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err == nil {
			otelProvider = p
		}
	}

	var extra []slog.Handler
	if config.GetBool("graylog.enabled") {
		h, err := logging.NewGELFHandler(config.GetString("graylog.addr"), nil)
		if err == nil {
			extra = append(extra, h)
		}
	}

	var logProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		logProvider = otelProvider.LoggerProvider()
	}

	// The terminal client owns the screen, so its logs go to file only.
	var out io.Writer
	switch {
	case logFile == nil:
		out = nil
	case cmd.Name() == "tui":
		out = logFile
	default:
		out = io.MultiWriter(os.Stdout, logFile)
	}
	slogManager.Setup(out, config.GetString("logLevel"), logProvider, extra...)
	logger = slogManager.Logger()

	if cfgErr != nil {
		logger.Warn("No config file loaded, using defaults", "error", cfgErr)
	} else {
		logger.Info("Loaded config", "dir", configDir)
	}
	return nil
}

func teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if otelProvider != nil {
		if err := otelProvider.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	_ = slogManager.Flush(ctx)
	if logFile != nil {
		_ = logFile.Close()
	}
}

// newClassifier builds the prompt classifier: the hosted model with
// keyword fallback when configured, keyword matching alone otherwise.
func newClassifier() classify.Backend {
	keyword := classify.NewKeyword()

	llmCfg := config.GetLLMConfig()
	if !llmCfg.Enabled || llmCfg.APIKey == "" {
		logger.Info("LLM classifier disabled, using keyword matching")
		return keyword
	}

	client := api.NewLLM(api.LLMConfig{
		URL:         llmCfg.URL,
		APIKey:      llmCfg.APIKey,
		Model:       llmCfg.Model,
		MaxTokens:   llmCfg.MaxTokens,
		Temperature: llmCfg.Temperature,
		Timeout:     llmCfg.Timeout,
	})
	return classify.NewFallback(classify.NewLLM(client, logger), keyword, logger)
}
