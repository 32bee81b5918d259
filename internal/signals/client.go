package signals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider is the signal-service surface the pipeline consumes:
// label-disagreement predictions, anomaly scores, and retraining.
type Provider interface {
	Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error)
	AnomalyScores(ctx context.Context, req *AnomalyRequest) (*AnomalyResponse, error)
	Train(ctx context.Context, req *TrainRequest) (*TrainResponse, error)
	Health(ctx context.Context) (*HealthResponse, error)
}

// Client is a client for the signal service API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// PredictSample is one sample submitted for disagreement scoring
type PredictSample struct {
	ID           int64     `json:"id"`
	Features     []float64 `json:"features"`
	CurrentLabel int       `json:"current_label"`
}

// PredictRequest asks the classifier to score every sample against its
// current label
type PredictRequest struct {
	DatasetID int64           `json:"dataset_id"`
	Samples   []PredictSample `json:"samples"`
}

// Prediction carries the alternative label and the model's confidence
// that the current label is wrong
type Prediction struct {
	SampleID       int64   `json:"sample_id"`
	PredictedLabel int     `json:"predicted_label"`
	Confidence     float64 `json:"confidence"`
}

// PredictResponse represents the disagreement scoring result
type PredictResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// AnomalySample is one sample submitted for outlier scoring
type AnomalySample struct {
	ID       int64     `json:"id"`
	Features []float64 `json:"features"`
}

// AnomalyRequest asks the outlier detector to score a batch of samples
type AnomalyRequest struct {
	DatasetID int64           `json:"dataset_id"`
	Samples   []AnomalySample `json:"samples"`
}

// AnomalyScore is the outlier score for a single sample
type AnomalyScore struct {
	SampleID     int64   `json:"sample_id"`
	AnomalyScore float64 `json:"anomaly_score"`
}

// AnomalyResponse represents the outlier scoring result
type AnomalyResponse struct {
	Scores []AnomalyScore `json:"scores"`
}

// TrainSample is one labeled sample in a training request
type TrainSample struct {
	Features []float64 `json:"features"`
	Label    int       `json:"label"`
}

// TrainRequest asks the signal service to fit a fresh classifier on the
// given samples
type TrainRequest struct {
	DatasetID int64         `json:"dataset_id"`
	Samples   []TrainSample `json:"samples"`
	TestSize  float64       `json:"test_size"`
}

// TrainResponse represents the metrics of a freshly trained classifier
type TrainResponse struct {
	ModelType         string                 `json:"model_type"`
	Hyperparameters   map[string]interface{} `json:"hyperparameters"`
	TrainAccuracy     float64                `json:"train_accuracy"`
	TestAccuracy      float64                `json:"test_accuracy"`
	Precision         float64                `json:"precision"`
	Recall            float64                `json:"recall"`
	F1Score           float64                `json:"f1_score"`
	TrainSeconds      float64                `json:"train_seconds"`
	NumSamplesTrained int                    `json:"num_samples_trained"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// NewClient creates a new signal service client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Predict scores every sample's current label against the classifier
func (c *Client) Predict(ctx context.Context, reqBody *PredictRequest) (*PredictResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/signals/predict", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("signal service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// AnomalyScores fetches outlier scores for a batch of samples
func (c *Client) AnomalyScores(ctx context.Context, reqBody *AnomalyRequest) (*AnomalyResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/signals/anomaly", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("signal service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result AnomalyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Train fits a fresh classifier on the given samples and returns its
// metrics without persisting anything on this side
func (c *Client) Train(ctx context.Context, reqBody *TrainRequest) (*TrainResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/train", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("signal service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result TrainResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Health checks if the signal service is healthy
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("signal service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
