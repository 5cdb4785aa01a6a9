package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/menta2k/vision-companion/pkg/prediction"
)

type stubClient struct {
	projects []prediction.Project
	err      error
	calls    int
}

func (c *stubClient) ListProjects(context.Context) ([]prediction.Project, error) {
	c.calls++
	return c.projects, c.err
}

func (c *stubClient) Predict(context.Context, prediction.ProjectID, []byte) (*prediction.Result, error) {
	return &prediction.Result{}, nil
}

func makeProjects(n int) []prediction.Project {
	projects := make([]prediction.Project, n)
	for i := range projects {
		projects[i] = prediction.Project{
			ID:   prediction.ProjectID(fmt.Sprintf("p-%d", i)),
			Name: fmt.Sprintf("Project %d", i),
		}
	}
	return projects
}

func newSession(t *testing.T, client *stubClient) *Session {
	t.Helper()
	s := New(func(Credentials) (prediction.Client, error) { return client, nil }, zap.NewNop())
	require.NoError(t, s.SetCredentials(Credentials{TrainingKey: "t", PredictionKey: "p"}))
	return s
}

func TestRefreshSelectsFirstProject(t *testing.T) {
	client := &stubClient{projects: makeProjects(10)}
	s := newSession(t, client)

	projects, err := s.RefreshProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, projects, 10)

	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, prediction.ProjectID("p-0"), selected.ID)
}

func TestRefreshKeepsExistingSelection(t *testing.T) {
	client := &stubClient{projects: makeProjects(3)}
	s := newSession(t, client)
	_, err := s.RefreshProjects(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Select("p-2"))

	_, err = s.RefreshProjects(context.Background())
	require.NoError(t, err)

	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, prediction.ProjectID("p-2"), selected.ID)
}

func TestRefreshReselectsWhenSelectionVanishes(t *testing.T) {
	client := &stubClient{projects: makeProjects(3)}
	s := newSession(t, client)
	_, err := s.RefreshProjects(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Select("p-2"))

	client.projects = makeProjects(2)
	_, err = s.RefreshProjects(context.Background())
	require.NoError(t, err)

	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, prediction.ProjectID("p-0"), selected.ID)
}

func TestRefreshEmptyListClearsSelection(t *testing.T) {
	client := &stubClient{projects: makeProjects(2)}
	s := newSession(t, client)
	_, err := s.RefreshProjects(context.Background())
	require.NoError(t, err)

	client.projects = nil
	_, err = s.RefreshProjects(context.Background())
	require.NoError(t, err)

	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Empty(t, s.Projects())
}

func TestRefreshFailurePropagatesWithoutRetry(t *testing.T) {
	client := &stubClient{projects: makeProjects(2)}
	s := newSession(t, client)
	_, err := s.RefreshProjects(context.Background())
	require.NoError(t, err)

	client.err = prediction.ClassifyStatus(prediction.OpListProjects, 401, "")
	_, err = s.RefreshProjects(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, prediction.ErrUnauthorized)
	assert.Equal(t, 2, client.calls)
	assert.Len(t, s.Projects(), 2, "failed refresh keeps the previous list")
}

func TestRefreshWithoutCredentials(t *testing.T) {
	s := New(func(Credentials) (prediction.Client, error) { return &stubClient{}, nil }, nil)
	_, err := s.RefreshProjects(context.Background())
	assert.ErrorIs(t, err, ErrNoClient)
}

func TestSelectRejectsUnknownProject(t *testing.T) {
	s := newSession(t, &stubClient{projects: makeProjects(2)})
	_, err := s.RefreshProjects(context.Background())
	require.NoError(t, err)

	err = s.Select("missing")
	assert.ErrorIs(t, err, ErrUnknownProject)

	selected, _ := s.Selected()
	assert.Equal(t, prediction.ProjectID("p-0"), selected.ID)
}

func TestSetCredentialsRebuildsClient(t *testing.T) {
	var seen []Credentials
	s := New(func(c Credentials) (prediction.Client, error) {
		seen = append(seen, c)
		if c.TrainingKey == "" {
			return nil, errors.New("training key required")
		}
		return &stubClient{}, nil
	}, zap.NewNop())

	require.Error(t, s.SetCredentials(Credentials{}))
	_, err := s.Client()
	assert.ErrorIs(t, err, ErrNoClient)

	require.NoError(t, s.SetCredentials(Credentials{TrainingKey: "a"}))
	require.NoError(t, s.SetCredentials(Credentials{TrainingKey: "b"}))
	assert.Equal(t, "b", s.Credentials().TrainingKey)
	assert.Len(t, seen, 3)
}
