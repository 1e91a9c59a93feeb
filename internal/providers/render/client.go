// Package render est le client HTTP du moteur de rendu vidéo. La soumission
// transfère la propriété de la RenderRequest au provider ; on ne fait ensuite
// que du polling de statut, même forme de machine à états que la
// transcription mais avec son propre vocabulaire.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Luksuz/anime-content-creator/pkg/model"
)

var tracer = otel.Tracer("render-client")

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 120 // le rendu est plus lent que la transcription
)

// ErrTimedOut : le rendu n'a pas atteint d'état terminal dans le budget.
var ErrTimedOut = errors.New("render polling timed out")

// vocabulaire observé du moteur de rendu -> progression estimée ; done et
// failed sont les états terminaux
var renderProgress = map[string]int{
	"queued":    10,
	"fetching":  30,
	"rendering": 70,
	"saving":    90,
	"done":      100,
}

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
			Timeout: 30 * time.Second,
		},
	}
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

// StatusInfo est la réponse de statut du moteur de rendu.
type StatusInfo struct {
	Status   string `json:"status"`
	VideoURL string `json:"videoUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Submit envoie la timeline déclarative et renvoie le jobId du provider.
func (c *Client) Submit(ctx context.Context, req *model.RenderRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "render_submit")
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/render", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("submit render: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("render provider returned status %d: %s", resp.StatusCode, respBody)
	}

	var result submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if result.JobID == "" {
		return "", fmt.Errorf("render provider returned empty jobId")
	}
	span.SetAttributes(attribute.String("render.job_id", result.JobID))
	return result.JobID, nil
}

// Status interroge le statut du job de rendu.
func (c *Client) Status(ctx context.Context, jobID string) (StatusInfo, error) {
	ctx, span := tracer.Start(ctx, "render_status")
	defer span.End()
	span.SetAttributes(attribute.String("render.job_id", jobID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/render/%s", c.baseURL, jobID), nil)
	if err != nil {
		return StatusInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return StatusInfo{}, fmt.Errorf("get render status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return StatusInfo{}, fmt.Errorf("render provider returned status %d: %s", resp.StatusCode, respBody)
	}

	var result StatusInfo
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		span.RecordError(err)
		return StatusInfo{}, fmt.Errorf("decode status response: %w", err)
	}
	return result, nil
}

// WaitForVideo poll le job jusqu'à l'état terminal, borné par maxPolls.
// onProgress reçoit une progression qui ne décroît jamais.
func (c *Client) WaitForVideo(ctx context.Context, jobID string, interval time.Duration, maxPolls int, onProgress func(status string, percent int)) (string, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}

	best := 0
	for i := 0; i < maxPolls; i++ {
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}

		info, err := c.Status(ctx, jobID)
		if err != nil {
			fmt.Printf("warning: poll render %s: %v\n", jobID, err)
			continue
		}

		status := strings.ToLower(strings.TrimSpace(info.Status))
		if pct, ok := renderProgress[status]; ok && pct > best {
			best = pct
		}
		if onProgress != nil {
			onProgress(status, best)
		}

		switch status {
		case "done":
			if info.VideoURL == "" {
				return "", fmt.Errorf("render done but no video url")
			}
			return info.VideoURL, nil
		case "failed", "error":
			msg := info.Error
			if msg == "" {
				msg = status
			}
			return "", fmt.Errorf("render failed: %s", msg)
		}
	}
	return "", fmt.Errorf("%w after %d polls", ErrTimedOut, maxPolls)
}
