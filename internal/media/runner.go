// Package media enveloppe les utilitaires locaux d'inspection (ffprobe) et
// de concaténation (ffmpeg) invoqués en sous-processus.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Runner connaît les chemins des binaires et exécute les commandes.
type Runner struct {
	FFmpegPath  string
	FFprobePath string
}

// NewRunner construit une instance ; chemins vides -> résolution via PATH.
func NewRunner(ffmpegPath, ffprobePath string) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Runner{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// CheckBinaries vérifie que ffmpeg et ffprobe sont invocables.
func (r *Runner) CheckBinaries(ctx context.Context) error {
	for _, bin := range []string{r.FFmpegPath, r.FFprobePath} {
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		_, _, err := r.run(cctx, bin, "-version")
		cancel()
		if err != nil {
			return fmt.Errorf("binaire média introuvable ou non exécutable (%s): %w", bin, err)
		}
	}
	return nil
}

// run exécute la commande et capture stdout/stderr séparément.
func (r *Runner) run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// copyFile copie src vers dst (création des parents non nécessaire ici,
// les appelants écrivent dans des répertoires déjà créés).
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
