package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultFallbackDuration est la durée utilisée quand ffprobe échoue. Valeur
// unique et configurable : une durée approchée qui garde le pipeline vivant
// vaut mieux qu'un abandon complet pour un clip non mesurable.
const DefaultFallbackDuration = 5.0

const defaultProbeTimeout = 15 * time.Second

// Prober mesure la durée de lecture exacte d'un artefact audio via ffprobe.
type Prober struct {
	runner   *Runner
	Fallback float64
	Timeout  time.Duration
}

func NewProber(runner *Runner, fallback float64) *Prober {
	if fallback <= 0 {
		fallback = DefaultFallbackDuration
	}
	return &Prober{runner: runner, Fallback: fallback}
}

// Duration mesure la durée du fichier path. Ne fait jamais échouer
// l'appelant : indisponibilité, timeout ou valeur non positive -> fallback
// avec un warning.
func (p *Prober) Duration(ctx context.Context, path string) float64 {
	d, err := p.probe(ctx, path)
	if err != nil {
		fmt.Printf("warning: ffprobe a échoué sur %s (%v), fallback %.1fs\n", path, err, p.Fallback)
		return p.Fallback
	}
	return d
}

// DurationOfBytes écrit data dans un fichier temporaire puis mesure sa durée.
// Même politique de fallback que Duration ; le fichier temporaire est
// supprimé sur tous les chemins de sortie.
func (p *Prober) DurationOfBytes(ctx context.Context, data []byte) float64 {
	tmp := filepath.Join(os.TempDir(), "probe-"+uuid.NewString()+".mp3")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		fmt.Printf("warning: écriture du fichier de probe impossible (%v), fallback %.1fs\n", err, p.Fallback)
		return p.Fallback
	}
	defer os.Remove(tmp)
	return p.Duration(ctx, tmp)
}

func (p *Prober) probe(ctx context.Context, path string) (float64, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, stderr, err := p.runner.run(ctx, p.runner.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w, stderr: %s", err, stderr)
	}
	return ParseProbeDuration([]byte(stdout))
}

// ParseProbeDuration extrait format.duration de la sortie JSON de ffprobe.
// Une valeur absente, non numérique ou non positive est une erreur.
func ParseProbeDuration(out []byte) (float64, error) {
	var payload struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return 0, fmt.Errorf("sortie ffprobe illisible: %w", err)
	}
	if payload.Format.Duration == "" {
		return 0, fmt.Errorf("sortie ffprobe sans format.duration")
	}
	d, err := strconv.ParseFloat(payload.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("durée ffprobe non numérique %q: %w", payload.Format.Duration, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("durée ffprobe non positive: %g", d)
	}
	return d, nil
}
