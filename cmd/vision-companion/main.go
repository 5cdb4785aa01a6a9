package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	visioncompanion "github.com/menta2k/vision-companion"
	"github.com/menta2k/vision-companion/internal/capture"
	"github.com/menta2k/vision-companion/internal/config"
	"github.com/menta2k/vision-companion/internal/console"
	"github.com/menta2k/vision-companion/internal/logging"
	"github.com/menta2k/vision-companion/internal/tui"
	"github.com/menta2k/vision-companion/pkg/orchestrator"
	"github.com/menta2k/vision-companion/pkg/session"
)

func main() {
	var configPath, backend, endpoint, resolution string
	var trainingKey, predictionKey string
	var pick string
	var showVersion bool

	flag.StringVar(&configPath, "config", config.GetConfigPath(), "configuration file (JSON)")
	flag.StringVar(&backend, "backend", "", "classification backend: customvision or ollama")
	flag.StringVar(&endpoint, "endpoint", "", "service endpoint URL")
	flag.StringVar(&resolution, "resolution", "", "capture quality: Large3M|MediumXGA|SmallVGA|VeryLarge5M|HighestAvailable")

	flag.StringVar(&trainingKey, "set-training-key", "", "store a new training key")
	flag.StringVar(&predictionKey, "set-prediction-key", "", "store a new prediction key")

	flag.StringVar(&pick, "pick", "", "classify this photo and exit instead of starting the terminal UI")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")

	flag.Parse()
	if showVersion {
		fmt.Println(visioncompanion.GetVersion())
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatal(err)
	}
	if backend != "" {
		cfg.Service.Backend = backend
	}
	if endpoint != "" {
		cfg.Service.Endpoint = endpoint
	}
	if resolution != "" {
		res, err := capture.ParseResolution(resolution)
		if err != nil {
			log.Fatal(err)
		}
		cfg.Capture.Resolution = res
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds := session.Credentials{TrainingKey: trainingKey, PredictionKey: predictionKey}
	if pick != "" || creds != (session.Credentials{}) {
		err = runHeadless(ctx, cfg, creds, pick, logger)
	} else {
		err = runTUI(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("Exited with error", zap.Error(err))
		log.Fatal(err)
	}
}

// runHeadless prints to stdout. Updated keys are stored and verified before
// the optional photo is classified.
func runHeadless(ctx context.Context, cfg *config.Config, creds session.Credentials, pick string, logger *zap.Logger) error {
	view := console.NewView(os.Stdout)
	companion, err := visioncompanion.New(ctx, cfg, view, logger)
	if err != nil {
		return err
	}
	defer companion.Close()

	orch := companion.Orchestrator()
	if creds != (session.Credentials{}) {
		err = orch.UpdateCredentials(ctx, creds)
	} else {
		err = orch.Initialize(ctx)
	}
	if err != nil {
		return err
	}
	if pick == "" {
		return nil
	}
	if !view.CaptureEnabled() {
		return errors.New("no projects available")
	}

	_, err = orch.Capture(ctx, companion.Picker(pick), cfg.Capture.Resolution)
	return err
}

func runTUI(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	adapter := tui.NewAdapter()
	companion, err := visioncompanion.New(ctx, cfg, adapter, logger)
	if err != nil {
		return err
	}
	defer companion.Close()

	model := tui.NewModel(tui.Options{
		Controller: companion.Orchestrator(),
		Camera:     companion.Camera(),
		Picker:     companion.Picker,
		Resolution: cfg.Capture.Resolution,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	adapter.Attach(p.Send)

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// newLogger creates the directories of file outputs before building the logger.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	for _, out := range cfg.Output {
		if out == "stdout" || out == "stderr" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return nil, err
		}
	}
	return logging.NewLogger(logging.Options{Level: cfg.Level, OutputPaths: cfg.Output})
}

var _ tui.Controller = (*orchestrator.Orchestrator)(nil)
