package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Luksuz/anime-content-creator/internal/fetch"
	"github.com/Luksuz/anime-content-creator/internal/fsutil"
	"github.com/Luksuz/anime-content-creator/internal/storage"
)

// budget raisonnable pour un fichier de sous-titres
const maxSubtitleBytes = 5_000_000

// makePersistSubtitle fabrique la PersistFunc du poller de transcription :
// téléchargement de l'URL éphémère du provider puis upload vers le stockage
// durable sous le préfixe du run. Le résultat est l'URL permanente.
func (a *App) makePersistSubtitle(store *storage.Client, runID string) func(ctx context.Context, subtitleURL string) (string, error) {
	return func(ctx context.Context, subtitleURL string) (string, error) {
		if subtitleURL == "" {
			return "", fmt.Errorf("le provider n'a pas fourni d'URL de transcript")
		}
		data, err := fetch.FetchBytesWithTimeout(ctx, subtitleURL, 0, maxSubtitleBytes)
		if err != nil {
			return "", fmt.Errorf("download transcript: %w", err)
		}
		durable, err := store.Upload(ctx, "runs/"+runID+"/captions.srt", data, "application/x-subrip")
		if err != nil {
			return "", fmt.Errorf("upload transcript: %w", err)
		}
		return durable, nil
	}
}

// fetchArtifact télécharge un artefact volumineux avec le budget par défaut.
func (a *App) fetchArtifact(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	return fetch.FetchBytesWithTimeout(ctx, url, timeout, fetch.DefaultMaxBytes)
}

// saveVideo écrit la vidéo dans outDir sans jamais écraser un fichier
// existant (suffixes _1, _2, ...).
func (a *App) saveVideo(outDir, runID string, data []byte) (string, error) {
	base := fsutil.SanitizeFilename("episode-" + runID)
	ext := "." + a.cfg.Render.Format
	outPath, err := fsutil.SaveArtifactAtomic(outDir, base, ext, data, false)
	if err != nil {
		return "", fmt.Errorf("cannot save video to disk: %w", err)
	}
	return outPath, nil
}
