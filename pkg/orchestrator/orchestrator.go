// Package orchestrator drives one capture, normalize, classify and render
// run at a time, and keeps the View consistent on every exit path.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menta2k/vision-companion/internal/capture"
	"github.com/menta2k/vision-companion/internal/logging"
	"github.com/menta2k/vision-companion/internal/settings"
	"github.com/menta2k/vision-companion/internal/utils"
	"github.com/menta2k/vision-companion/pkg/normalizer"
	"github.com/menta2k/vision-companion/pkg/prediction"
	"github.com/menta2k/vision-companion/pkg/session"
)

// IterationNotConfiguredMessage is shown when the project has no default
// iteration and the backend attached no guidance of its own.
const IterationNotConfiguredMessage = "You need to set a default iteration in the 'Performance' tab of the Custom Vision Portal."

var (
	// ErrBusy rejects an action while another run or the startup load is active.
	ErrBusy = errors.New("a run is already in progress")
	// ErrNoProjectSelected fails a run when the session has no project.
	ErrNoProjectSelected = errors.New("no project selected")
)

// State of the current run.
type State int

const (
	Idle State = iota
	Initializing
	Capturing
	Normalizing
	Submitting
	Rendering
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Capturing:
		return "capturing"
	case Normalizing:
		return "normalizing"
	case Submitting:
		return "submitting"
	case Rendering:
		return "rendering"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Action is what the user ended up seeing.
type Action int

const (
	ActionNone Action = iota
	ActionRendered
	ActionSettings
	ActionMessage
)

// Outcome describes a finished run.
type Outcome struct {
	RunID   string
	Action  Action
	Caption string
	Lines   []string
	Message string
}

// Normalizer converts raw bytes to the canonical bitmap.
type Normalizer interface {
	Normalize(raw []byte) (*normalizer.Bitmap, error)
}

// SettingsStore is the getSetting/setSetting contract.
type SettingsStore interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
}

// Config tunes the orchestrator.
type Config struct {
	PreviewMaxWidth  int
	PreviewMaxHeight int
	// Normalizer defaults to normalizer.New().
	Normalizer Normalizer
}

type Orchestrator struct {
	session    *session.Session
	settings   SettingsStore
	view       View
	normalizer Normalizer
	config     Config
	logger     *zap.Logger

	mu    sync.Mutex
	state State
}

func New(sess *session.Session, store SettingsStore, view View, config Config, logger *zap.Logger) *Orchestrator {
	if config.Normalizer == nil {
		config.Normalizer = normalizer.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		session:    sess,
		settings:   store,
		view:       view,
		normalizer: config.Normalizer,
		config:     config,
		logger:     logger.Named("orchestrator"),
	}
}

// State reports the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) acquire(s State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Idle {
		return ErrBusy
	}
	o.state = s
	return nil
}

// Initialize loads credentials, rebuilds the client and fetches projects.
// Capture is enabled only when at least one project is available.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	if err := o.acquire(Initializing); err != nil {
		return err
	}
	runID := uuid.NewString()
	logger := logging.WithOperation(o.logger, "initialize", runID)

	o.view.SetCaptureEnabled(false)
	o.view.SetBusy(true)
	enabled := false
	defer func() {
		o.view.SetBusy(false)
		o.view.SetCaptureEnabled(enabled)
		o.setState(Idle)
	}()

	creds, err := o.readCredentials(ctx)
	if err != nil {
		return o.report(logger, "initialize", runID, err)
	}
	if err := o.session.SetCredentials(creds); err != nil {
		return o.report(logger, "initialize", runID, err)
	}
	projects, err := o.session.RefreshProjects(ctx)
	if err != nil {
		return o.report(logger, "initialize", runID, err)
	}

	selected, _ := o.session.Selected()
	o.view.ShowProjects(projects, selected.ID)
	enabled = len(projects) > 0

	logger.Info("Session initialized",
		zap.Int("projects", len(projects)),
		zap.String("selected", string(selected.ID)))
	return nil
}

func (o *Orchestrator) readCredentials(ctx context.Context) (session.Credentials, error) {
	training, err := o.settings.Get(ctx, settings.TrainingKey)
	if err != nil {
		return session.Credentials{}, fmt.Errorf("read training key: %w", err)
	}
	predictionKey, err := o.settings.Get(ctx, settings.PredictionKey)
	if err != nil {
		return session.Credentials{}, fmt.Errorf("read prediction key: %w", err)
	}
	return session.Credentials{TrainingKey: training, PredictionKey: predictionKey}, nil
}

// UpdateCredentials stores the non-empty keys and initializes again.
func (o *Orchestrator) UpdateCredentials(ctx context.Context, creds session.Credentials) error {
	if o.State() != Idle {
		return ErrBusy
	}
	for name, value := range map[string]string{
		settings.TrainingKey:   creds.TrainingKey,
		settings.PredictionKey: creds.PredictionKey,
	} {
		if value == "" {
			continue
		}
		if err := o.settings.Set(ctx, name, value); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
	}
	return o.Initialize(ctx)
}

// OpenSettings routes to the credential screen on request.
func (o *Orchestrator) OpenSettings() {
	o.view.ShowSettings()
}

// OnProjectSelected changes the project used by the next run.
func (o *Orchestrator) OnProjectSelected(id prediction.ProjectID) error {
	if err := o.session.Select(id); err != nil {
		return err
	}
	o.logger.Debug("Project selected", zap.String("project_id", string(id)))
	return nil
}

// Capture asks src for a photo and runs the pipeline on it.
func (o *Orchestrator) Capture(ctx context.Context, src capture.Source, res capture.Resolution) (*Outcome, error) {
	if err := o.acquire(Capturing); err != nil {
		return nil, err
	}
	raw, err := o.captureFrom(ctx, src, res)
	return o.run(ctx, raw, err)
}

// captureFrom turns a panicking source into an ordinary capture failure so
// the run still releases the busy state.
func (o *Orchestrator) captureFrom(ctx context.Context, src capture.Source, res capture.Resolution) (raw []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, fmt.Errorf("capture source failed: %v", r)
		}
	}()
	return src.Capture(ctx, res)
}

// OnCapture runs the pipeline on bytes delivered by a capture or pick.
// Empty input is a cancelled capture and changes nothing.
func (o *Orchestrator) OnCapture(ctx context.Context, raw []byte) (*Outcome, error) {
	if err := o.acquire(Capturing); err != nil {
		return nil, err
	}
	return o.run(ctx, raw, nil)
}

func (o *Orchestrator) run(ctx context.Context, raw []byte, captureErr error) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString()}
	logger := logging.WithOperation(o.logger, "capture", out.RunID)

	if captureErr == nil && len(raw) == 0 {
		o.setState(Idle)
		logger.Debug("Capture cancelled")
		return out, nil
	}

	o.view.SetCaptureEnabled(false)
	o.view.SetBusy(true)
	defer func() {
		o.view.SetBusy(false)
		o.view.SetCaptureEnabled(true)
		o.setState(Idle)
	}()

	if captureErr != nil {
		return o.fail(logger, out, captureErr)
	}

	o.view.Clear()

	o.setState(Normalizing)
	bitmap, err := o.normalizer.Normalize(raw)
	if err != nil {
		return o.fail(logger, out, err)
	}
	out.Caption = fmt.Sprintf("%dx%d (%s)", bitmap.Width, bitmap.Height, utils.FormatFileSize(int64(len(raw))))
	o.view.ShowPreview(normalizer.Renderable(bitmap, o.config.PreviewMaxWidth, o.config.PreviewMaxHeight), out.Caption)

	o.setState(Submitting)
	project, ok := o.session.Selected()
	if !ok {
		return o.fail(logger, out, ErrNoProjectSelected)
	}
	client, err := o.session.Client()
	if err != nil {
		return o.fail(logger, out, err)
	}
	logger.Info("Submitting photo",
		zap.String("project_id", string(project.ID)),
		zap.Int("bytes", len(raw)),
		zap.Int("width", bitmap.Width),
		zap.Int("height", bitmap.Height))

	// the raw bytes go out as captured, the bitmap is only for the preview
	result, err := client.Predict(ctx, project.ID, raw)
	if err != nil {
		return o.fail(logger, out, err)
	}

	o.setState(Rendering)
	out.Action = ActionRendered
	out.Lines = result.Lines()
	o.view.ShowResults(out.Lines)

	logger.Info("Prediction rendered", zap.Int("tags", len(out.Lines)))
	return out, nil
}

func (o *Orchestrator) fail(logger *zap.Logger, out *Outcome, err error) (*Outcome, error) {
	o.setState(Failed)
	out.Action, out.Message = o.present(err)
	logger.Warn("Run failed",
		zap.String("kind", prediction.KindOf(err).String()),
		zap.Error(err))
	return out, logging.NewOperationError("capture", out.RunID, err)
}

// report handles a startup failure: rejected keys route to settings and
// everything else shows the raw message.
func (o *Orchestrator) report(logger *zap.Logger, operation, runID string, err error) error {
	action := ActionMessage
	if prediction.KindOf(err) == prediction.KindUnauthorized {
		o.view.ShowSettings()
		action = ActionSettings
	} else {
		o.view.ShowMessage(err.Error())
	}
	logger.Warn("Operation failed",
		zap.String("kind", prediction.KindOf(err).String()),
		zap.Bool("routed_to_settings", action == ActionSettings),
		zap.Error(err))
	return logging.NewOperationError(operation, runID, err)
}

// present maps a failure to exactly one user-visible reaction.
func (o *Orchestrator) present(err error) (Action, string) {
	switch prediction.KindOf(err) {
	case prediction.KindUnauthorized:
		o.view.ShowSettings()
		return ActionSettings, ""
	case prediction.KindIterationNotConfigured:
		message := prediction.GuidanceOf(err)
		if message == "" {
			message = IterationNotConfiguredMessage
		}
		o.view.ShowMessage(message)
		return ActionMessage, message
	default:
		message := err.Error()
		o.view.ShowMessage(message)
		return ActionMessage, message
	}
}
