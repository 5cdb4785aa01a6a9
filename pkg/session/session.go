// Package session holds the state shared by every run: the credentials,
// the client built from them, the available projects and the selection.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/menta2k/vision-companion/pkg/prediction"
)

var (
	// ErrNoClient is returned before credentials have been applied.
	ErrNoClient = errors.New("no prediction client configured")
	// ErrUnknownProject is returned when selecting an id that is not listed.
	ErrUnknownProject = errors.New("unknown project")
)

// Credentials are the two keys the remote service expects.
type Credentials struct {
	TrainingKey   string
	PredictionKey string
}

// ClientFactory builds a client for a set of credentials.
type ClientFactory func(Credentials) (prediction.Client, error)

// Session is safe for concurrent use.
type Session struct {
	factory ClientFactory
	logger  *zap.Logger

	mu          sync.RWMutex
	credentials Credentials
	client      prediction.Client
	projects    []prediction.Project
	selected    prediction.ProjectID
	hasSelected bool
}

func New(factory ClientFactory, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{factory: factory, logger: logger.Named("session")}
}

// SetCredentials replaces the credentials and rebuilds the client. The
// project list is left alone until the next RefreshProjects.
func (s *Session) SetCredentials(creds Credentials) error {
	client, err := s.factory(creds)
	if err != nil {
		return fmt.Errorf("create prediction client: %w", err)
	}

	s.mu.Lock()
	s.credentials = creds
	s.client = client
	s.mu.Unlock()
	return nil
}

// Credentials returns the credentials currently in use.
func (s *Session) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentials
}

// Client returns the active client, or ErrNoClient.
func (s *Session) Client() (prediction.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, ErrNoClient
	}
	return s.client, nil
}

// RefreshProjects fetches the project list and swaps it in as a whole. The
// first project becomes selected when nothing was selected or the previous
// selection is gone. Errors are returned unchanged and leave state as it was.
func (s *Session) RefreshProjects(ctx context.Context) ([]prediction.Project, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}

	projects, err := client.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	fresh := append([]prediction.Project(nil), projects...)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects = fresh
	if !s.hasSelected || indexOf(fresh, s.selected) < 0 {
		s.hasSelected = len(fresh) > 0
		s.selected = ""
		if s.hasSelected {
			s.selected = fresh[0].ID
		}
	}

	s.logger.Debug("Projects refreshed",
		zap.Int("count", len(fresh)),
		zap.String("selected", string(s.selected)))
	return append([]prediction.Project(nil), fresh...), nil
}

// Projects returns a copy of the current list.
func (s *Session) Projects() []prediction.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]prediction.Project(nil), s.projects...)
}

// Selected returns the selected project, if any.
func (s *Session) Selected() (prediction.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasSelected {
		return prediction.Project{}, false
	}
	i := indexOf(s.projects, s.selected)
	if i < 0 {
		return prediction.Project{}, false
	}
	return s.projects[i], true
}

// Select changes the selection to a listed project.
func (s *Session) Select(id prediction.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.projects, id) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownProject, id)
	}
	s.selected = id
	s.hasSelected = true
	return nil
}

func indexOf(projects []prediction.Project, id prediction.ProjectID) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}
