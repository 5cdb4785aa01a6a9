package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/menta2k/vision-companion/pkg/prediction"
)

// ClassifyPrompt asks the model for tag probabilities in a fixed JSON shape.
const ClassifyPrompt = `You are an image classifier.

Return JSON only:
{
  "predictions": [
    {"tag": "string", "probability": 0.0}
  ]
}

HARD RULES
- Up to 5 tags, most probable first.
- Tags: lowercase, concise, no punctuation or duplicates.
- probability is a number in [0,1].
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

const missingModelGuidance = "The model %[1]s is not installed. Run 'ollama pull %[1]s' and try again."

// Client wraps the Ollama API client. Each locally installed model is
// exposed as a project.
type Client struct {
	client    *api.Client
	modelHint string
	logger    *zap.Logger
}

// NewClient creates a new Ollama client. When modelHint is set only models
// whose name contains it are listed.
func NewClient(ollamaURL, modelHint string, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q", ollamaURL)
	}

	// Strip any path like /api/chat, the API client appends its own
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		client:    api.NewClient(baseURL, httpClient),
		modelHint: strings.ToLower(modelHint),
		logger:    logger.Named("ollama"),
	}, nil
}

// ListProjects lists installed models.
func (c *Client) ListProjects(ctx context.Context) ([]prediction.Project, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, classify(prediction.OpListProjects, err)
	}

	projects := make([]prediction.Project, 0, len(resp.Models))
	for _, m := range resp.Models {
		if c.modelHint != "" && !strings.Contains(strings.ToLower(m.Name), c.modelHint) {
			continue
		}
		projects = append(projects, prediction.Project{ID: prediction.ProjectID(m.Name), Name: m.Name})
	}
	return projects, nil
}

// Predict sends the image bytes to the model named by projectID.
func (c *Client) Predict(ctx context.Context, projectID prediction.ProjectID, image []byte) (*prediction.Result, error) {
	streamFalse := false
	req := &api.ChatRequest{
		Model: string(projectID),
		Messages: []api.Message{
			{
				Role:    "user",
				Content: ClassifyPrompt,
				Images:  []api.ImageData{api.ImageData(image)},
			},
		},
		Stream: &streamFalse,
		Format: json.RawMessage(`"json"`),
		Options: map[string]any{
			"temperature": 0,
		},
	}

	var responseContent string
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		classified := prediction.Classify(classify(prediction.OpPredict, err))
		if classified.Kind == prediction.KindIterationNotConfigured {
			classified.Guidance = fmt.Sprintf(missingModelGuidance, projectID)
		}
		return nil, classified
	}
	if strings.TrimSpace(responseContent) == "" {
		return nil, prediction.Classify(errors.New("empty response from ollama"))
	}

	result, err := parseResult(responseContent)
	if err != nil {
		return nil, prediction.Classify(err)
	}
	c.logger.Debug("prediction received", zap.String("model", string(projectID)), zap.Int("predictions", len(result.Predictions)))
	return result, nil
}

// classify maps API failures onto the prediction taxonomy. A missing model
// is reported with 404, which means there is nothing trained to serve the
// project.
func classify(op prediction.Operation, err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		return prediction.ClassifyStatus(op, statusErr.StatusCode, msg)
	}
	if strings.Contains(strings.ToLower(err.Error()), "unauthorized") {
		return &prediction.Error{Kind: prediction.KindUnauthorized, Status: http.StatusUnauthorized, Message: err.Error(), Err: err}
	}
	return prediction.Classify(fmt.Errorf("ollama: %w", err))
}

type modelResult struct {
	Predictions []prediction.Prediction `json:"predictions"`
}

// parseResult parses the JSON response from the vision model
func parseResult(raw string) (*prediction.Result, error) {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, fmt.Errorf("model returned non-JSON response")
	}

	var parsed modelResult
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	result := &prediction.Result{Predictions: make([]prediction.Prediction, 0, len(parsed.Predictions))}
	for _, p := range parsed.Predictions {
		tag := strings.TrimSpace(p.Tag)
		if tag == "" {
			continue
		}
		result.Predictions = append(result.Predictions, prediction.Prediction{Tag: tag, Probability: clamp(p.Probability, 0, 1)})
	}
	return result, nil
}

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ prediction.Client = (*Client)(nil)
