// Package tui is the terminal front end. It renders the orchestrator's
// View calls and turns key presses into orchestrator actions.
package tui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/menta2k/vision-companion/internal/capture"
	"github.com/menta2k/vision-companion/pkg/orchestrator"
	"github.com/menta2k/vision-companion/pkg/prediction"
	"github.com/menta2k/vision-companion/pkg/session"
)

// Controller is the orchestrator surface the model drives.
type Controller interface {
	Initialize(ctx context.Context) error
	Capture(ctx context.Context, src capture.Source, res capture.Resolution) (*orchestrator.Outcome, error)
	OnProjectSelected(id prediction.ProjectID) error
	UpdateCredentials(ctx context.Context, creds session.Credentials) error
	OpenSettings()
}

// Screen is the active view mode
type Screen int

const (
	ScreenMain Screen = iota
	ScreenPick
	ScreenSettings
)

// operationDoneMsg reports the end of a controller call.
type operationDoneMsg struct {
	err error
}

// Options wires the model to the rest of the application.
type Options struct {
	Controller Controller
	Camera     capture.Source
	// Picker builds a source for a path typed by the user.
	Picker     func(path string) capture.Source
	Resolution capture.Resolution
}

// Model is the root bubbletea model
type Model struct {
	width  int
	height int
	screen Screen

	ctrl   Controller
	camera capture.Source
	picker func(path string) capture.Source

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	showHelp bool

	pathInput       textinput.Model
	trainingInput   textinput.Model
	predictionInput textinput.Model
	settingsFocus   int

	projects    []prediction.Project
	cursor      int
	selected    prediction.ProjectID
	resolutions []capture.Resolution
	resIdx      int

	captureEnabled bool
	busy           bool

	preview     image.Image
	previewText string
	caption     string
	lines       []string
	message     string
}

// NewModel creates the root model
func NewModel(opts Options) Model {
	pathInput := textinput.New()
	pathInput.Placeholder = "/path/to/photo.jpg"
	pathInput.Prompt = "Photo: "
	pathInput.PromptStyle = InputPromptStyle
	pathInput.Width = 60

	trainingInput := textinput.New()
	trainingInput.Placeholder = "leave empty to keep the stored key"
	trainingInput.Prompt = "Training key:   "
	trainingInput.PromptStyle = InputPromptStyle
	trainingInput.EchoMode = textinput.EchoPassword
	trainingInput.Width = 48

	predictionInput := textinput.New()
	predictionInput.Placeholder = "leave empty to keep the stored key"
	predictionInput.Prompt = "Prediction key: "
	predictionInput.PromptStyle = InputPromptStyle
	predictionInput.EchoMode = textinput.EchoPassword
	predictionInput.Width = 48

	resolutions := capture.Selectable()
	resIdx := 0
	for i, r := range resolutions {
		if r == opts.Resolution {
			resIdx = i
		}
	}

	return Model{
		screen:          ScreenMain,
		ctrl:            opts.Controller,
		camera:          opts.Camera,
		picker:          opts.Picker,
		keys:            DefaultKeyMap(),
		help:            help.New(),
		spinner:         spinner.New(spinner.WithSpinner(spinner.Dot)),
		pathInput:       pathInput,
		trainingInput:   trainingInput,
		predictionInput: predictionInput,
		resolutions:     resolutions,
		resIdx:          resIdx,
	}
}

// Init starts the spinner and loads projects
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initializeCmd())
}

func (m Model) initializeCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return operationDoneMsg{err: ctrl.Initialize(context.Background())}
	}
}

func (m Model) captureCmd(src capture.Source) tea.Cmd {
	ctrl, res := m.ctrl, m.resolution()
	return func() tea.Msg {
		_, err := ctrl.Capture(context.Background(), src, res)
		return operationDoneMsg{err: err}
	}
}

func (m Model) saveCredentialsCmd(creds session.Credentials) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return operationDoneMsg{err: ctrl.UpdateCredentials(context.Background(), creds)}
	}
}

func (m Model) openSettingsCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.OpenSettings()
		return nil
	}
}

func (m Model) resolution() capture.Resolution {
	return m.resolutions[m.resIdx]
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.previewText = m.renderPreview()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case captureEnabledMsg:
		m.captureEnabled = msg.enabled
		return m, nil

	case busyMsg:
		m.busy = msg.busy
		return m, nil

	case clearMsg:
		m.preview = nil
		m.previewText = ""
		m.caption = ""
		m.lines = nil
		m.message = ""
		return m, nil

	case projectsMsg:
		m.projects = msg.projects
		m.selected = msg.selected
		m.cursor = 0
		for i, p := range m.projects {
			if p.ID == msg.selected {
				m.cursor = i
			}
		}
		return m, nil

	case previewMsg:
		m.preview = msg.img
		m.caption = msg.caption
		m.previewText = m.renderPreview()
		return m, nil

	case resultsMsg:
		m.lines = msg.lines
		return m, nil

	case messageMsg:
		m.message = msg.text
		return m, nil

	case settingsMsg:
		return m.enterSettings()

	case operationDoneMsg:
		if errors.Is(msg.err, orchestrator.ErrBusy) {
			m.message = "Please wait for the current photo to finish."
		}
		return m, nil

	case tea.KeyMsg:
		switch m.screen {
		case ScreenPick:
			return m.updatePick(msg)
		case ScreenSettings:
			return m.updateSettings(msg)
		default:
			return m.updateMain(msg)
		}
	}

	return m, nil
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.projects)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Select):
		if len(m.projects) == 0 {
			break
		}
		id := m.projects[m.cursor].ID
		if err := m.ctrl.OnProjectSelected(id); err != nil {
			m.message = err.Error()
			break
		}
		m.selected = id

	case key.Matches(msg, m.keys.Quality):
		m.resIdx = (m.resIdx + 1) % len(m.resolutions)

	case key.Matches(msg, m.keys.Take):
		if m.captureEnabled && m.camera != nil {
			return m, m.captureCmd(m.camera)
		}

	case key.Matches(msg, m.keys.Pick):
		if m.captureEnabled && m.picker != nil {
			m.screen = ScreenPick
			m.pathInput.SetValue("")
			return m, m.pathInput.Focus()
		}

	case key.Matches(msg, m.keys.Settings):
		return m, m.openSettingsCmd()

	case key.Matches(msg, m.keys.Refresh):
		if !m.busy {
			return m, m.initializeCmd()
		}
	}
	return m, nil
}

func (m Model) updatePick(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.screen = ScreenMain
		m.pathInput.Blur()
		return m, nil

	case msg.Type == tea.KeyEnter:
		m.screen = ScreenMain
		m.pathInput.Blur()
		return m, m.captureCmd(m.picker(m.pathInput.Value()))
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m Model) enterSettings() (tea.Model, tea.Cmd) {
	m.screen = ScreenSettings
	m.settingsFocus = 0
	m.trainingInput.SetValue("")
	m.predictionInput.SetValue("")
	m.predictionInput.Blur()
	return m, m.trainingInput.Focus()
}

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.screen = ScreenMain
		m.trainingInput.Blur()
		m.predictionInput.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Next):
		m.settingsFocus = 1 - m.settingsFocus
		if m.settingsFocus == 0 {
			m.predictionInput.Blur()
			return m, m.trainingInput.Focus()
		}
		m.trainingInput.Blur()
		return m, m.predictionInput.Focus()

	case key.Matches(msg, m.keys.Submit):
		creds := session.Credentials{
			TrainingKey:   strings.TrimSpace(m.trainingInput.Value()),
			PredictionKey: strings.TrimSpace(m.predictionInput.Value()),
		}
		m.screen = ScreenMain
		m.trainingInput.Blur()
		m.predictionInput.Blur()
		return m, m.saveCredentialsCmd(creds)
	}

	var cmd tea.Cmd
	if m.settingsFocus == 0 {
		m.trainingInput, cmd = m.trainingInput.Update(msg)
	} else {
		m.predictionInput, cmd = m.predictionInput.Update(msg)
	}
	return m, cmd
}

func (m Model) previewSize() (cols, rows int) {
	cols, rows = 48, 16
	if m.width > 0 {
		cols = max(m.width-40, 8)
	}
	if m.height > 0 {
		rows = max(m.height-16, 4)
	}
	return cols, rows
}

func (m Model) renderPreview() string {
	cols, rows := m.previewSize()
	return renderHalfBlocks(m.preview, cols, rows)
}

// View renders the active screen
func (m Model) View() string {
	switch m.screen {
	case ScreenSettings:
		return m.settingsView()
	case ScreenPick:
		return m.pickView()
	default:
		return m.mainView()
	}
}

func (m Model) renderHeader() string {
	header := HeaderStyle.Render("Vision Companion")
	if m.busy {
		header += " " + m.spinner.View()
	}
	return header
}

func (m Model) renderProjects() string {
	var sb strings.Builder
	sb.WriteString(PanelTitleStyle.Render("Projects"))
	sb.WriteString("\n")
	if len(m.projects) == 0 {
		sb.WriteString(MutedStyle.Render("no projects"))
	}
	for i, p := range m.projects {
		cursor := "  "
		if i == m.cursor {
			cursor = CursorStyle.Render("> ")
		}
		name := ProjectStyle.Render(p.Name)
		if p.ID == m.selected {
			name = ActiveOptionStyle.Render(p.Name)
		}
		sb.WriteString(cursor + name + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(PanelTitleStyle.Render("Quality"))
	sb.WriteString("\n")
	for i, r := range m.resolutions {
		if i == m.resIdx {
			sb.WriteString(ActiveOptionStyle.Render("● " + r.String()))
		} else {
			sb.WriteString(MutedStyle.Render("○ " + r.String()))
		}
		sb.WriteString("\n")
	}
	return PanelStyle.Width(30).Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) renderOutput() string {
	var sections []string
	if m.previewText != "" {
		sections = append(sections, m.previewText)
	}
	if m.caption != "" {
		sections = append(sections, MutedStyle.Render(m.caption))
	}
	for _, line := range m.lines {
		sections = append(sections, ResultStyle.Render(line))
	}
	if m.message != "" {
		sections = append(sections, MessageStyle.Render(m.message))
	}
	if len(sections) == 0 {
		hint := "Take or pick a photo to classify it."
		if !m.captureEnabled {
			hint = "Waiting for projects..."
		}
		sections = append(sections, MutedStyle.Render(hint))
	}
	return PanelStyle.Render(strings.Join(sections, "\n"))
}

func (m Model) renderFooter() string {
	if m.showHelp {
		return m.help.FullHelpView(m.keys.FullHelp())
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

func (m Model) mainView() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderProjects(), m.renderOutput())
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) pickView() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		PanelStyle.Render(PanelTitleStyle.Render("Pick a photo")+"\n"+m.pathInput.View()),
		MutedStyle.Render(fmt.Sprintf("enter confirm • esc cancel • quality %s", m.resolution())),
	)
}

func (m Model) settingsView() string {
	form := strings.Join([]string{
		PanelTitleStyle.Render("Settings"),
		m.trainingInput.View(),
		m.predictionInput.View(),
	}, "\n")
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		PanelStyle.Render(form),
		MutedStyle.Render("enter save • tab next field • esc back"),
	)
}
