package tui

import (
	"context"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/vision-companion/internal/capture"
	"github.com/menta2k/vision-companion/pkg/orchestrator"
	"github.com/menta2k/vision-companion/pkg/prediction"
	"github.com/menta2k/vision-companion/pkg/session"
)

type fakeController struct {
	mu          sync.Mutex
	initialized int
	captured    []capture.Source
	resolutions []capture.Resolution
	selected    []prediction.ProjectID
	credentials []session.Credentials
	settings    int
	captureErr  error
	selectErr   error
}

func (c *fakeController) Initialize(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized++
	return nil
}

func (c *fakeController) Capture(_ context.Context, src capture.Source, res capture.Resolution) (*orchestrator.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.captured = append(c.captured, src)
	c.resolutions = append(c.resolutions, res)
	return &orchestrator.Outcome{}, c.captureErr
}

func (c *fakeController) OnProjectSelected(id prediction.ProjectID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectErr != nil {
		return c.selectErr
	}
	c.selected = append(c.selected, id)
	return nil
}

func (c *fakeController) UpdateCredentials(_ context.Context, creds session.Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credentials = append(c.credentials, creds)
	return nil
}

func (c *fakeController) OpenSettings() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings++
}

type namedSource string

func (s namedSource) Capture(context.Context, capture.Resolution) ([]byte, error) { return nil, nil }

func newTestModel(ctrl *fakeController) Model {
	return NewModel(Options{
		Controller: ctrl,
		Camera:     namedSource("camera"),
		Picker:     func(path string) capture.Source { return namedSource(path) },
		Resolution: capture.Large3M,
	})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = update(t, m, runes(string(r)))
	}
	return m
}

func projectsFixture() projectsMsg {
	return projectsMsg{
		projects: []prediction.Project{{ID: "a", Name: "Cats"}, {ID: "b", Name: "Dogs"}},
		selected: "a",
	}
}

func TestViewMessagesUpdateState(t *testing.T) {
	m := newTestModel(&fakeController{})

	m, _ = update(t, m, captureEnabledMsg{enabled: true})
	m, _ = update(t, m, busyMsg{busy: true})
	m, _ = update(t, m, projectsMsg{projects: projectsFixture().projects, selected: "b"})
	m, _ = update(t, m, previewMsg{img: image.NewRGBA(image.Rect(0, 0, 4, 4)), caption: "4x4 (90 B)"})
	m, _ = update(t, m, resultsMsg{lines: []string{"cat: 87.3%"}})
	m, _ = update(t, m, messageMsg{text: "boom"})

	assert.True(t, m.captureEnabled)
	assert.True(t, m.busy)
	assert.Equal(t, 1, m.cursor, "cursor follows the selected project")
	assert.Equal(t, prediction.ProjectID("b"), m.selected)
	assert.Equal(t, "4x4 (90 B)", m.caption)
	assert.NotEmpty(t, m.previewText)
	assert.Equal(t, []string{"cat: 87.3%"}, m.lines)

	view := m.View()
	assert.Contains(t, view, "cat: 87.3%")
	assert.Contains(t, view, "boom")
	assert.Contains(t, view, "Dogs")

	m, _ = update(t, m, clearMsg{})
	assert.Nil(t, m.preview)
	assert.Empty(t, m.previewText)
	assert.Empty(t, m.caption)
	assert.Empty(t, m.lines)
	assert.Empty(t, m.message)
}

func TestTakePhotoRequiresEnabledCapture(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)

	_, cmd := update(t, m, runes("t"))
	assert.Nil(t, cmd, "capture is disabled until projects load")

	m, _ = update(t, m, captureEnabledMsg{enabled: true})
	_, cmd = update(t, m, runes("t"))
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, ctrl.captured, 1)
	assert.Equal(t, namedSource("camera"), ctrl.captured[0])
	assert.Equal(t, capture.Large3M, ctrl.resolutions[0])
}

func TestQualityCyclesSelectableOptions(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)
	m, _ = update(t, m, captureEnabledMsg{enabled: true})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, capture.MediumXGA, m.resolution())

	_, cmd := update(t, m, runes("t"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, capture.MediumXGA, ctrl.resolutions[0])

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, capture.Large3M, m.resolution())
}

func TestPickPhotoFlow(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)
	m, _ = update(t, m, captureEnabledMsg{enabled: true})

	m, _ = update(t, m, runes("p"))
	assert.Equal(t, ScreenPick, m.screen)

	m = typeText(t, m, "/tmp/cat.jpg")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ScreenMain, m.screen)
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, ctrl.captured, 1)
	assert.Equal(t, namedSource("/tmp/cat.jpg"), ctrl.captured[0])
}

func TestPickPhotoCancel(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)
	m, _ = update(t, m, captureEnabledMsg{enabled: true})
	m, _ = update(t, m, runes("p"))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ScreenMain, m.screen)
	assert.Nil(t, cmd)
	assert.Empty(t, ctrl.captured)
}

func TestProjectSelection(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)
	m, _ = update(t, m, projectsFixture())

	m, _ = update(t, m, runes("j"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []prediction.ProjectID{"b"}, ctrl.selected)
	assert.Equal(t, prediction.ProjectID("b"), m.selected)

	m, _ = update(t, m, runes("k"))
	m, _ = update(t, m, runes("k"))
	assert.Equal(t, 0, m.cursor)
}

func TestSettingsRoutingAndSave(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)

	m, _ = update(t, m, settingsMsg{})
	assert.Equal(t, ScreenSettings, m.screen)

	m = typeText(t, m, "train-key")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "predict-key")
	assert.NotContains(t, m.View(), "train-key", "keys are masked")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ScreenMain, m.screen)
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, []session.Credentials{{TrainingKey: "train-key", PredictionKey: "predict-key"}}, ctrl.credentials)
}

func TestSettingsKeyAsksController(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)

	_, cmd := update(t, m, runes("s"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, ctrl.settings)
}

func TestBusyOperationShowsHint(t *testing.T) {
	m := newTestModel(&fakeController{})
	m, _ = update(t, m, operationDoneMsg{err: orchestrator.ErrBusy})
	assert.NotEmpty(t, m.message)
}

func TestRefreshReinitializes(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl)

	_, cmd := update(t, m, runes("r"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, ctrl.initialized)
}

func TestAdapterPostsMessages(t *testing.T) {
	a := NewAdapter()
	a.ShowMessage("dropped before attach")

	var got []tea.Msg
	a.Attach(func(msg tea.Msg) { got = append(got, msg) })

	a.SetCaptureEnabled(true)
	a.SetBusy(false)
	a.Clear()
	a.ShowResults([]string{"cat: 87.3%"})
	a.ShowSettings()

	require.Len(t, got, 5)
	assert.Equal(t, captureEnabledMsg{enabled: true}, got[0])
	assert.Equal(t, busyMsg{busy: false}, got[1])
	assert.Equal(t, clearMsg{}, got[2])
	assert.Equal(t, resultsMsg{lines: []string{"cat: 87.3%"}}, got[3])
	assert.Equal(t, settingsMsg{}, got[4])
}

func TestRenderHalfBlocks(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}

	out := renderHalfBlocks(img, 10, 10)
	rows := strings.Split(out, "\n")
	assert.Len(t, rows, 3, "10x5 pixels fit in 10 columns and 3 half-block rows")
	assert.Equal(t, 10, strings.Count(rows[0], "▀"))

	assert.Empty(t, renderHalfBlocks(nil, 10, 10))
}
