// Command echod is the Echo sidecar process: it ingests Claude Code hook
// and transcript events, narrates them over text-to-speech, and optionally
// captures a spoken reply back into the assistant's terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"go.opentelemetry.io/otel"

	"github.com/echo-copilot/echo/internal/bus"
	"github.com/echo-copilot/echo/internal/config"
	"github.com/echo-copilot/echo/internal/device"
	"github.com/echo-copilot/echo/internal/health"
	"github.com/echo-copilot/echo/internal/ingest"
	"github.com/echo-copilot/echo/internal/logging"
	"github.com/echo-copilot/echo/internal/model"
	"github.com/echo-copilot/echo/internal/summarize"
	"github.com/echo-copilot/echo/internal/voicein"
	"github.com/echo-copilot/echo/internal/voiceout"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	pretty := flag.Bool("pretty-log", false, "use human-readable console logging instead of JSON")
	noEnvFile := flag.Bool("no-env-file", false, "skip loading a local .env file")
	flag.Parse()

	if !*noEnvFile {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "echod: no .env file found, using process environment")
		}
	}

	cfg := config.Load()

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "echod: failed to create state directory %s: %v\n", cfg.StateDir, err)
		os.Exit(1)
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.StateDir, "server.log"), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	var logWriter io.Writer = os.Stderr
	if err == nil {
		defer logFile.Close()
		logWriter = io.MultiWriter(os.Stderr, logFile)
	}
	log := logging.New(logWriter, *pretty)

	if err := writePIDFile(cfg.StateDir); err != nil {
		log.Warn("echod: failed to write pid file", "error", err)
	}
	defer removePIDFile(cfg.StateDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := health.InitMeterProvider()
	if err != nil {
		log.Warn("echod: failed to initialize metrics — continuing without them", "error", err)
		shutdownMetrics = func(context.Context) error { return nil }
	}
	defer shutdownMetrics(context.Background())

	app := buildApp(cfg, log)
	defer app.Close()

	go func() {
		events := make(chan model.ActivityEvent, bus.DefaultBufferSize)
		go func() {
			for ev := range events {
				app.activity.Emit(ev)
			}
		}()
		if err := app.transcriptWatcher.Run(ctx, events); err != nil {
			log.Warn("echod: transcript watcher stopped", "error", err)
		}
		close(events)
	}()

	go app.summarizeWorker.Run(ctx)
	go app.voiceoutEngine.Run(ctx, app.narration)
	if app.voiceinEngine != nil {
		go app.voiceinEngine.Run(ctx, app.activity)
	}
	go app.player.Run()

	metrics, err := health.NewMetrics(otel.GetMeterProvider(), app.collector)
	if err != nil {
		log.Warn("echod: failed to register metrics instruments", "error", err)
	}
	_ = metrics

	mux := newMux(&server{
		hooks:     app.hooks,
		activity:  app.activity,
		narration: app.narration,
		response:  app.response,
		collector: app.collector,
		sttEngine: app.voiceinEngine,
		ttsEngine: app.voiceoutEngine,
		log:       log,
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := ":" + strconv.Itoa(cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info("echod: listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("echod: http server error", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("echod: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("echod: http server shutdown error", "error", err)
	}
	app.player.Close()
}

func writePIDFile(stateDir string) error {
	return os.WriteFile(filepath.Join(stateDir, "server.pid"), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removePIDFile(stateDir string) {
	_ = os.Remove(filepath.Join(stateDir, "server.pid"))
}

// application bundles every long-lived component cmd/echod wires
// together, so main can start/stop them without a sprawling local
// variable list.
type application struct {
	hooks             *ingest.HookAdapter
	transcriptWatcher *ingest.TranscriptWatcher

	activity  *bus.Bus[model.ActivityEvent]
	narration *bus.Bus[model.NarrationEvent]
	response  *bus.Bus[model.ResponseEvent]

	summarizeWorker *summarize.Worker
	voiceoutEngine  *voiceout.Engine
	voiceinEngine   *voicein.Engine
	player          *voiceout.Player

	deviceCtx *device.Context
	collector *health.Collector
}

func (a *application) Close() {
	if a.deviceCtx != nil {
		a.deviceCtx.Close()
	}
}
