// Package console implements a line-oriented orchestrator.View for
// headless runs. Output is plain text unless the writer is a terminal.
package console

import (
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/menta2k/vision-companion/pkg/orchestrator"
	"github.com/menta2k/vision-companion/pkg/prediction"
)

// SettingsHint is printed when the service rejects the stored keys.
const SettingsHint = "Credentials were rejected. Update them with -set-training-key and -set-prediction-key."

type View struct {
	out io.Writer

	heading lipgloss.Style
	muted   lipgloss.Style
	alert   lipgloss.Style

	mu                sync.Mutex
	captureEnabled    bool
	settingsRequested bool
	lines             []string
	message           string
}

func NewView(out io.Writer) *View {
	r := lipgloss.NewRenderer(out)
	return &View{
		out:     out,
		heading: r.NewStyle().Bold(true),
		muted:   r.NewStyle().Faint(true),
		alert:   r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (v *View) SetCaptureEnabled(enabled bool) {
	v.mu.Lock()
	v.captureEnabled = enabled
	v.mu.Unlock()
}

func (v *View) SetBusy(bool) {}

func (v *View) Clear() {
	v.mu.Lock()
	v.lines = nil
	v.message = ""
	v.mu.Unlock()
}

func (v *View) ShowProjects(projects []prediction.Project, selected prediction.ProjectID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, v.heading.Render("Projects"))
	for _, p := range projects {
		marker := " "
		if p.ID == selected {
			marker = "*"
		}
		fmt.Fprintf(v.out, "%s %s %s\n", marker, p.Name, v.muted.Render("("+string(p.ID)+")"))
	}
}

func (v *View) ShowPreview(img image.Image, caption string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "%s %s\n", v.heading.Render("Photo"), caption)
}

func (v *View) ShowResults(lines []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines = append([]string(nil), lines...)
	for _, line := range lines {
		fmt.Fprintln(v.out, line)
	}
}

func (v *View) ShowMessage(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.message = message
	fmt.Fprintln(v.out, v.alert.Render(message))
}

func (v *View) ShowSettings() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.settingsRequested = true
	fmt.Fprintln(v.out, v.alert.Render(SettingsHint))
}

// CaptureEnabled reports the last affordance state.
func (v *View) CaptureEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.captureEnabled
}

// SettingsRequested reports whether a run routed to the settings surface.
func (v *View) SettingsRequested() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settingsRequested
}

// Lines returns the last rendered result list.
func (v *View) Lines() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.lines...)
}

var _ orchestrator.View = (*View)(nil)
