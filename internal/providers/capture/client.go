// Package capture est le client du service de capture : il reçoit l'URL
// d'une page et renvoie les panels découpés sous forme d'URLs d'images.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("capture-client")

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute, // capture + découpage côté service
		},
	}
}

type captureRequest struct {
	URL string `json:"url"`
}

type captureResponse struct {
	ImageURLs []string `json:"imageUrls"`
}

// CapturePanels capture la page et renvoie les URLs des panels, dans
// l'ordre de lecture.
func (c *Client) CapturePanels(ctx context.Context, pageURL string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "capture_panels")
	defer span.End()
	span.SetAttributes(attribute.String("capture.page_url", pageURL))

	body, err := json.Marshal(captureRequest{URL: pageURL})
	if err != nil {
		return nil, fmt.Errorf("marshal capture request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/capture", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("capture request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("capture provider returned status %d: %s", resp.StatusCode, respBody)
	}

	var result captureResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("decode capture response: %w", err)
	}
	if len(result.ImageURLs) == 0 {
		return nil, fmt.Errorf("capture: aucun panel détecté sur la page")
	}
	span.SetAttributes(attribute.Int("capture.panel_count", len(result.ImageURLs)))
	return result.ImageURLs, nil
}
