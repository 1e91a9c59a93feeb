// Package vision est le client du collaborateur d'analyse d'images : il
// envoie les panels et un prompt, et reçoit les chunks de narration.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Luksuz/anime-content-creator/pkg/model"
)

var tracer = otel.Tracer("vision-client")

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
			Timeout: 3 * time.Minute, // l'analyse LLM de plusieurs panels est lente
		},
	}
}

type analyzeRequest struct {
	ImageURLs []string `json:"imageUrls"`
	Prompt    string   `json:"prompt"`
}

type analyzeResponse struct {
	Chunks []model.NarrationChunk `json:"chunks"`
}

// Narrate demande une narration par panel. La réponse est validée (texte non
// vide, un chunk par image) et renvoyée triée par imageIndex croissant —
// l'ordre de la liste doit suivre l'index, le provider n'en garantit rien.
func (c *Client) Narrate(ctx context.Context, imageURLs []string, prompt string) ([]model.NarrationChunk, error) {
	ctx, span := tracer.Start(ctx, "vision_narrate")
	defer span.End()
	span.SetAttributes(attribute.Int("vision.image_count", len(imageURLs)))

	if len(imageURLs) == 0 {
		return nil, fmt.Errorf("vision: aucune image à analyser")
	}

	body, err := json.Marshal(analyzeRequest{ImageURLs: imageURLs, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("vision provider returned status %d: %s", resp.StatusCode, respBody)
	}

	var result analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}

	chunks := result.Chunks
	for i, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			return nil, fmt.Errorf("vision: chunk %d (image %d) sans texte", i, ch.ImageIndex)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ImageIndex < chunks[j].ImageIndex })

	// l'imageRef est renseignée depuis la liste soumise si le provider
	// ne la renvoie pas
	for i := range chunks {
		if chunks[i].ImageRef == "" && chunks[i].ImageIndex < len(imageURLs) {
			chunks[i].ImageRef = imageURLs[chunks[i].ImageIndex]
		}
	}
	return chunks, nil
}
