package prediction

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   Kind
	}{
		{"unauthorized", http.StatusUnauthorized, KindUnauthorized},
		{"forbidden", http.StatusForbidden, KindUnauthorized},
		{"not found", http.StatusNotFound, KindIterationNotConfigured},
		{"bad request", http.StatusBadRequest, KindGeneric},
		{"server error", http.StatusInternalServerError, KindGeneric},
		{"throttled", http.StatusTooManyRequests, KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyStatus(OpPredict, tt.status, "")
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.status, err.Status)
			assert.Contains(t, err.Error(), http.StatusText(tt.status))
		})
	}
}

func TestClassifyStatusListingNotFoundIsGeneric(t *testing.T) {
	err := ClassifyStatus(OpListProjects, http.StatusNotFound, "Resource not found")
	assert.Equal(t, KindGeneric, err.Kind)
	assert.Equal(t, "Resource not found (status 404)", err.Error())
	assert.NotErrorIs(t, err, ErrIterationNotConfigured)

	assert.Equal(t, KindUnauthorized, ClassifyStatus(OpListProjects, http.StatusUnauthorized, "").Kind)
}

func TestGuidanceOf(t *testing.T) {
	err := &Error{Kind: KindIterationNotConfigured, Guidance: "pull the model"}
	assert.Equal(t, "pull the model", GuidanceOf(fmt.Errorf("wrapped: %w", err)))
	assert.Empty(t, GuidanceOf(ClassifyStatus(OpPredict, http.StatusNotFound, "")))
	assert.Empty(t, GuidanceOf(errors.New("plain")))
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("predict: %w", ClassifyStatus(OpPredict, http.StatusUnauthorized, "Access denied"))

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrIterationNotConfigured)
	assert.ErrorIs(t, ClassifyStatus(OpPredict, http.StatusNotFound, ""), ErrIterationNotConfigured)
	assert.False(t, errors.Is(ClassifyStatus(OpPredict, 500, ""), &Error{Kind: KindGeneric}))
}

func TestClassifyWrapsUnknownErrors(t *testing.T) {
	base := errors.New("connection refused")
	got := Classify(base)
	require.NotNil(t, got)
	assert.Equal(t, KindGeneric, got.Kind)
	assert.Equal(t, "connection refused", got.Error())
	assert.ErrorIs(t, got, base)

	assert.Nil(t, Classify(nil))
}

func TestClassifyKeepsExistingClassification(t *testing.T) {
	original := ClassifyStatus(OpPredict, http.StatusNotFound, "no default iteration")
	got := Classify(fmt.Errorf("wrapped: %w", original))
	assert.Same(t, original, got)
	assert.Equal(t, KindIterationNotConfigured, KindOf(got))
}

func TestResultLinesKeepServiceOrder(t *testing.T) {
	result := &Result{Predictions: []Prediction{
		{Tag: "cat", Probability: 0.873},
		{Tag: "dog", Probability: 0.05},
	}}
	assert.Equal(t, []string{"cat: 87.3%", "dog: 5.0%"}, result.Lines())

	unsorted := &Result{Predictions: []Prediction{
		{Tag: "low", Probability: 0.1},
		{Tag: "high", Probability: 0.9},
	}}
	assert.Equal(t, []string{"low: 10.0%", "high: 90.0%"}, unsorted.Lines())

	var empty *Result
	assert.Nil(t, empty.Lines())
}
