// Package tts est le client HTTP du provider de synthèse vocale.
package tts

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

var tracer = otel.Tracer("tts-client")

// APIError porte le statut HTTP et le corps renvoyé par le provider, pour
// classification (rate-limit / auth / permanent) côté exécuteur.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tts provider returned status %d: %s", e.Status, e.Body)
}

func (e *APIError) HTTPStatus() int { return e.Status }

func (e *APIError) ProviderMessage() string { return e.Body }

// Client appelle le provider avec {text, voiceId, modelId}. La clé API est
// fournie par appel : elle vient du pool de credentials, pas du client.
type Client struct {
	baseURL    string
	voiceID    string
	modelID    string
	httpClient *http.Client
}

func NewClient(baseURL, voiceID, modelID string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		voiceID: voiceID,
		modelID: modelID,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

type speakRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize envoie le texte et renvoie les octets audio (mp3) bruts, ou
// une APIError classifiable en cas de refus du provider.
func (c *Client) Synthesize(ctx context.Context, apiKey, text string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "tts_synthesize")
	defer span.End()
	span.SetAttributes(attribute.Int("tts.text_len", len(text)))

	body, err := json.Marshal(speakRequest{Text: text, ModelID: c.modelID})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		span.RecordError(apiErr)
		return nil, apiErr
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read tts audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts provider returned empty audio")
	}
	span.SetAttributes(attribute.Int("tts.audio_bytes", len(audio)))
	return audio, nil
}
