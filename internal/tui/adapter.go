package tui

import (
	"image"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/menta2k/vision-companion/pkg/orchestrator"
	"github.com/menta2k/vision-companion/pkg/prediction"
)

// Messages the adapter delivers to the model.
type (
	captureEnabledMsg struct{ enabled bool }
	busyMsg           struct{ busy bool }
	clearMsg          struct{}
	projectsMsg       struct {
		projects []prediction.Project
		selected prediction.ProjectID
	}
	previewMsg struct {
		img     image.Image
		caption string
	}
	resultsMsg  struct{ lines []string }
	messageMsg  struct{ text string }
	settingsMsg struct{}
)

// Adapter implements orchestrator.View by posting messages to a running
// program. Calls made before Attach are dropped.
type Adapter struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

func NewAdapter() *Adapter {
	return &Adapter{}
}

// Attach routes messages to send, typically (*tea.Program).Send.
func (a *Adapter) Attach(send func(tea.Msg)) {
	a.mu.Lock()
	a.send = send
	a.mu.Unlock()
}

func (a *Adapter) post(msg tea.Msg) {
	a.mu.RLock()
	send := a.send
	a.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

func (a *Adapter) SetCaptureEnabled(enabled bool) { a.post(captureEnabledMsg{enabled: enabled}) }
func (a *Adapter) SetBusy(busy bool)              { a.post(busyMsg{busy: busy}) }
func (a *Adapter) Clear()                         { a.post(clearMsg{}) }

func (a *Adapter) ShowProjects(projects []prediction.Project, selected prediction.ProjectID) {
	a.post(projectsMsg{projects: append([]prediction.Project(nil), projects...), selected: selected})
}

func (a *Adapter) ShowPreview(img image.Image, caption string) {
	a.post(previewMsg{img: img, caption: caption})
}

func (a *Adapter) ShowResults(lines []string) {
	a.post(resultsMsg{lines: append([]string(nil), lines...)})
}

func (a *Adapter) ShowMessage(message string) { a.post(messageMsg{text: message}) }
func (a *Adapter) ShowSettings()              { a.post(settingsMsg{}) }

var _ orchestrator.View = (*Adapter)(nil)
