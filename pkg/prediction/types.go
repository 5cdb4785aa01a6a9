package prediction

import (
	"context"
	"fmt"
)

// ProjectID is the opaque identifier a service assigns to a project.
type ProjectID string

// Project is a named container of tags and trained iterations on the remote service.
type Project struct {
	ID   ProjectID `json:"id"`
	Name string    `json:"name"`
}

// Prediction is one tag with the probability the service assigned to it.
type Prediction struct {
	Tag         string  `json:"tag"`
	Probability float64 `json:"probability"`
}

// String renders the prediction as "tag: 87.3%".
func (p Prediction) String() string {
	return fmt.Sprintf("%s: %.1f%%", p.Tag, p.Probability*100)
}

// Result holds predictions in the order the service returned them.
type Result struct {
	Predictions []Prediction `json:"predictions"`
}

// Lines renders every prediction, preserving service order.
func (r *Result) Lines() []string {
	if r == nil {
		return nil
	}
	lines := make([]string, 0, len(r.Predictions))
	for _, p := range r.Predictions {
		lines = append(lines, p.String())
	}
	return lines
}

// Client is implemented by every classification backend. Errors returned
// from both methods are *Error values.
type Client interface {
	ListProjects(ctx context.Context) ([]Project, error)
	Predict(ctx context.Context, projectID ProjectID, image []byte) (*Result, error)
}
