package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stmigrate/internal/core/config"
)

var (
	configPath  = flag.String("config", "./stmigrate.toml", "Path to config file")
	once        = flag.Bool("once", false, "Run single analysis and exit")
	target      = flag.String("target", "", "Override target language for the AI context package")
	format      = flag.String("format", "json", "Report format: json or markdown")
	outPath     = flag.String("out", "", "Write the report to a file instead of stdout")
	withContext = flag.Bool("ai-context", false, "Include the AI translation context in the report")
	metricsAddr = flag.String("metrics", "", "Serve Prometheus metrics on this address (e.g. :9190)")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("stmigrate v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./stmigrate.toml" && errors.Is(err, fs.ErrNotExist) {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if flag.NArg() > 0 {
		cfg.Scan.Roots = flag.Args()
	}
	if *target != "" {
		cfg.AI.TargetLanguage = *target
		if err := config.Validate(cfg); err != nil {
			slog.Error("invalid target override", "error", err)
			os.Exit(1)
		}
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	app, err := NewApp(cfg, appOptions{
		Format:         *format,
		OutPath:        *outPath,
		IncludeContext: *withContext,
	})
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunOnce(ctx); err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	if *once || !cfg.Watch.Enabled {
		return
	}

	if err := app.WatchLoop(ctx); err != nil {
		slog.Error("watch mode failed", "error", err)
		os.Exit(1)
	}
}
