package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("transcribe-client")

// Client est le client HTTP du provider de transcription.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type submitRequest struct {
	AudioURL string `json:"audioUrl"`
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

type statusResponse struct {
	Status      string `json:"status"`
	SubtitleURL string `json:"subtitleUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Submit envoie l'URL de l'audio joint et renvoie le jobId du provider.
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe_submit")
	defer span.End()

	body, err := json.Marshal(submitRequest{AudioURL: audioURL})
	if err != nil {
		return "", fmt.Errorf("marshal submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transcriptions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("submit transcription: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transcription provider returned status %d: %s", resp.StatusCode, respBody)
	}

	var result submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if result.JobID == "" {
		return "", fmt.Errorf("transcription provider returned empty jobId")
	}
	span.SetAttributes(attribute.String("transcribe.job_id", result.JobID))
	return result.JobID, nil
}

// Status interroge l'endpoint de statut du job.
func (c *Client) Status(ctx context.Context, jobID string) (StatusInfo, error) {
	ctx, span := tracer.Start(ctx, "transcribe_status")
	defer span.End()
	span.SetAttributes(attribute.String("transcribe.job_id", jobID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/transcriptions/%s", c.baseURL, jobID), nil)
	if err != nil {
		return StatusInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return StatusInfo{}, fmt.Errorf("get transcription status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return StatusInfo{}, fmt.Errorf("transcription provider returned status %d: %s", resp.StatusCode, respBody)
	}

	var result statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		span.RecordError(err)
		return StatusInfo{}, fmt.Errorf("decode status response: %w", err)
	}
	return StatusInfo{
		Status:      result.Status,
		SubtitleURL: result.SubtitleURL,
		Message:     result.Error,
	}, nil
}
