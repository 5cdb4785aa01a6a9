package orchestrator

import (
	"image"

	"github.com/menta2k/vision-companion/pkg/prediction"
)

// View is the UI surface a run drives. Implementations must tolerate calls
// from any goroutine.
type View interface {
	// SetCaptureEnabled toggles the take/pick photo affordances.
	SetCaptureEnabled(enabled bool)
	// SetBusy shows or hides the progress indicator.
	SetBusy(busy bool)
	// Clear removes the preview, its caption and the result list.
	Clear()
	ShowProjects(projects []prediction.Project, selected prediction.ProjectID)
	ShowPreview(img image.Image, caption string)
	ShowResults(lines []string)
	ShowMessage(message string)
	// ShowSettings routes the user to the credential screen.
	ShowSettings()
}
