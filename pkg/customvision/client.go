// Package customvision implements prediction.Client against the Custom
// Vision REST API. Projects are listed with the training key and images are
// classified with the prediction key.
package customvision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menta2k/vision-companion/pkg/prediction"
)

const (
	trainingKeyHeader   = "Training-Key"
	predictionKeyHeader = "Prediction-Key"
)

// Config describes how to reach the service.
type Config struct {
	// Endpoint is the training resource base URL, e.g.
	// https://westeurope.api.cognitive.microsoft.com
	Endpoint string
	// PredictionEndpoint defaults to Endpoint.
	PredictionEndpoint string
	TrainingKey        string
	PredictionKey      string
	// PublishedName selects a published iteration. When empty the project's
	// default iteration is used.
	PublishedName string
	HTTPClient    *http.Client
}

type Client struct {
	trainingURL   string
	predictionURL string
	trainingKey   string
	predictionKey string
	publishedName string
	httpClient    *http.Client
	logger        *zap.Logger
}

type projectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type imagePrediction struct {
	ID          string           `json:"id"`
	Project     string           `json:"project"`
	Iteration   string           `json:"iteration"`
	Predictions []tagProbability `json:"predictions"`
}

type tagProbability struct {
	TagID       string  `json:"tagId"`
	TagName     string  `json:"tagName"`
	Probability float64 `json:"probability"`
}

// errorResponse covers both the service's own error body and the gateway
// envelope used for key failures.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("custom vision endpoint is required")
	}
	trainingURL, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	predictionURL := trainingURL
	if cfg.PredictionEndpoint != "" {
		if predictionURL, err = normalizeEndpoint(cfg.PredictionEndpoint); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		trainingURL:   trainingURL,
		predictionURL: predictionURL,
		trainingKey:   cfg.TrainingKey,
		predictionKey: cfg.PredictionKey,
		publishedName: cfg.PublishedName,
		httpClient:    httpClient,
		logger:        logger.Named("customvision"),
	}, nil
}

func normalizeEndpoint(endpoint string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported endpoint scheme: %q", parsed.Scheme)
	}
	return strings.TrimSuffix(parsed.String(), "/"), nil
}

// ListProjects returns every project visible to the training key.
func (c *Client) ListProjects(ctx context.Context) ([]prediction.Project, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.trainingURL+"/customvision/v3.0/training/projects", nil)
	if err != nil {
		return nil, prediction.Classify(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set(trainingKeyHeader, c.trainingKey)

	body, err := c.sendRequest(prediction.OpListProjects, req)
	if err != nil {
		return nil, err
	}

	var raw []projectResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, prediction.Classify(fmt.Errorf("failed to parse projects: %w", err))
	}

	projects := make([]prediction.Project, 0, len(raw))
	for _, p := range raw {
		projects = append(projects, prediction.Project{ID: prediction.ProjectID(p.ID), Name: p.Name})
	}
	c.logger.Debug("listed projects", zap.Int("count", len(projects)))
	return projects, nil
}

// Predict classifies image with the project's default or configured
// published iteration. The bytes are sent as-is.
func (c *Client) Predict(ctx context.Context, projectID prediction.ProjectID, image []byte) (*prediction.Result, error) {
	id, err := uuid.Parse(string(projectID))
	if err != nil {
		return nil, prediction.Classify(fmt.Errorf("invalid project id %q: %w", projectID, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.predictURL(id), bytes.NewReader(image))
	if err != nil {
		return nil, prediction.Classify(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set(predictionKeyHeader, c.predictionKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	body, err := c.sendRequest(prediction.OpPredict, req)
	if err != nil {
		return nil, err
	}

	var resp imagePrediction
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, prediction.Classify(fmt.Errorf("failed to parse prediction: %w", err))
	}

	result := &prediction.Result{Predictions: make([]prediction.Prediction, 0, len(resp.Predictions))}
	for _, p := range resp.Predictions {
		result.Predictions = append(result.Predictions, prediction.Prediction{Tag: p.TagName, Probability: p.Probability})
	}
	c.logger.Debug("prediction received",
		zap.String("project_id", id.String()),
		zap.String("iteration", resp.Iteration),
		zap.Int("predictions", len(result.Predictions)))
	return result, nil
}

func (c *Client) predictURL(projectID uuid.UUID) string {
	if c.publishedName != "" {
		return fmt.Sprintf("%s/customvision/v3.0/Prediction/%s/classify/iterations/%s/image",
			c.predictionURL, projectID, url.PathEscape(c.publishedName))
	}
	return fmt.Sprintf("%s/customvision/v2.0/Prediction/%s/image", c.predictionURL, projectID)
}

func (c *Client) sendRequest(op prediction.Operation, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, prediction.Classify(fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, prediction.Classify(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		classified := prediction.ClassifyStatus(op, resp.StatusCode, errorMessage(body))
		c.logger.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Stringer("kind", classified.Kind))
		return nil, classified
	}

	return body, nil
}

func errorMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Error != nil && er.Error.Message != "" {
			return er.Error.Message
		}
		if er.Message != "" {
			return er.Message
		}
	}
	return strings.TrimSpace(string(body))
}

var _ prediction.Client = (*Client)(nil)
