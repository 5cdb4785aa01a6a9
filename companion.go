// Package visioncompanion classifies photos with a remote image
// classification service.
//
// A photo is captured or picked, decoded into a canonical bitmap for the
// preview, and its original bytes are submitted to the selected project.
// The returned tags are rendered as "tag: probability%" lines.
//
// Basic usage:
//
//	cfg := config.Default()
//	view := console.NewView(os.Stdout)
//	c, err := visioncompanion.New(ctx, cfg, view, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	orch := c.Orchestrator()
//	if err := orch.Initialize(ctx); err != nil {
//		return
//	}
//	orch.Capture(ctx, c.Picker("photo.jpg"), cfg.Capture.Resolution)
//
// The package consists of these components:
//
//  1. Normalizer (pkg/normalizer): decodes any supported encoding to BGRA8 premultiplied
//  2. Prediction (pkg/prediction): client contract, results and error taxonomy
//  3. Backends (pkg/customvision, pkg/ollama): remote classification clients
//  4. Session (pkg/session): credentials, project list and selection
//  5. Orchestrator (pkg/orchestrator): one capture to render run at a time
package visioncompanion

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/menta2k/vision-companion/internal/capture"
	"github.com/menta2k/vision-companion/internal/config"
	"github.com/menta2k/vision-companion/internal/settings"
	"github.com/menta2k/vision-companion/pkg/customvision"
	"github.com/menta2k/vision-companion/pkg/ollama"
	"github.com/menta2k/vision-companion/pkg/orchestrator"
	"github.com/menta2k/vision-companion/pkg/prediction"
	"github.com/menta2k/vision-companion/pkg/session"
)

// Version of the vision companion
const Version = "1.0.0"

// Companion wires configuration, settings, session and orchestrator together.
type Companion struct {
	config       *config.Config
	store        settings.Store
	session      *session.Session
	orchestrator *orchestrator.Orchestrator
	logger       *zap.Logger
}

// New opens the settings store, seeds it from the environment and builds
// the orchestrator around view.
func New(ctx context.Context, cfg *config.Config, view orchestrator.View, logger *zap.Logger) (*Companion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := settings.Open(ctx, settings.Options{
		Backend:   cfg.Settings.Backend,
		Path:      cfg.Settings.Path,
		RedisAddr: cfg.Settings.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}

	trainingKey, predictionKey := config.EnvCredentials()
	if err := settings.Seed(ctx, store, map[string]string{
		settings.TrainingKey:   trainingKey,
		settings.PredictionKey: predictionKey,
	}); err != nil {
		store.Close()
		return nil, err
	}

	sess := session.New(NewClientFactory(cfg.Service, nil, logger), logger)
	orch := orchestrator.New(sess, store, view, orchestrator.Config{
		PreviewMaxWidth:  cfg.Preview.MaxWidth,
		PreviewMaxHeight: cfg.Preview.MaxHeight,
	}, logger)

	return &Companion{
		config:       cfg,
		store:        store,
		session:      sess,
		orchestrator: orch,
		logger:       logger,
	}, nil
}

// NewClientFactory returns a factory building the configured backend.
func NewClientFactory(svc config.ServiceConfig, httpClient *http.Client, logger *zap.Logger) session.ClientFactory {
	return func(creds session.Credentials) (prediction.Client, error) {
		switch svc.Backend {
		case "ollama":
			client, err := ollama.NewClient(svc.Endpoint, svc.ModelHint, httpClient, logger)
			if err != nil {
				return nil, err
			}
			return client, nil
		case "customvision":
			client, err := customvision.NewClient(customvision.Config{
				Endpoint:           svc.Endpoint,
				PredictionEndpoint: svc.PredictionEndpoint,
				TrainingKey:        creds.TrainingKey,
				PredictionKey:      creds.PredictionKey,
				PublishedName:      svc.PublishedName,
				HTTPClient:         httpClient,
			}, logger)
			if err != nil {
				return nil, err
			}
			return client, nil
		default:
			return nil, fmt.Errorf("unknown backend: %s (use 'customvision' or 'ollama')", svc.Backend)
		}
	}
}

// Orchestrator returns the run coordinator
func (c *Companion) Orchestrator() *orchestrator.Orchestrator {
	return c.orchestrator
}

// Session returns the shared session state
func (c *Companion) Session() *session.Session {
	return c.session
}

// Settings returns the settings store
func (c *Companion) Settings() settings.Store {
	return c.store
}

// Camera returns the configured camera source
func (c *Companion) Camera() capture.Source {
	return capture.NewCamera(c.config.Capture.CameraDevice, c.logger)
}

// Picker returns a source reading the photo at path
func (c *Companion) Picker(path string) capture.Source {
	return capture.NewFilePicker(path, c.logger)
}

// Close releases the settings store
func (c *Companion) Close() error {
	return c.store.Close()
}

// GetVersion returns the version of the vision companion
func GetVersion() string {
	return Version
}
