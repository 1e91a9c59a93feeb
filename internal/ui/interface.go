package ui

import (
	"context"

	"github.com/Luksuz/anime-content-creator/internal/synth"
)

type Interface interface {
	// GetPageURL doit renvoyer une URL http(s) valide.
	// Implémentation terminale : priorité clipboard -> prompt
	GetPageURL(ctx context.Context) (string, error)

	// WaitForExit bloque jusqu'à ce qu'un signal d'annulation soit reçu via ctx (Ctrl+C).
	WaitForExit(ctx context.Context) error

	PrintInfo(ctx context.Context, s string)
	PrintError(ctx context.Context, s string)

	// OnJobStateChange reçoit les transitions d'état des jobs de synthèse.
	// Même signature que synth.Observer : un terminal UI est un observateur.
	OnJobStateChange(index int, state synth.State, attempt int, err error)

	// OnStage rapporte la progression d'une étape longue (transcription, rendu).
	OnStage(stage string, percent int)
}
