package transcribe

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 60 // 5 minutes au rythme par défaut
)

// ErrTimedOut : aucun état terminal atteint dans le budget de polling.
var ErrTimedOut = errors.New("transcription polling timed out")

// PersistError : le provider a produit le transcript mais le re-hébergement
// (download + upload durable) a échoué. Distinct d'un échec de transcription
// côté provider.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("download or persist of transcript failed: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// StatusInfo est la réponse de statut du provider.
type StatusInfo struct {
	Status      string
	SubtitleURL string
	Message     string
}

// JobAPI est le contrat minimal du provider de transcription.
type JobAPI interface {
	Submit(ctx context.Context, audioURL string) (string, error)
	Status(ctx context.Context, jobID string) (StatusInfo, error)
}

// PersistFunc re-héberge l'artefact de sous-titres du provider vers le
// stockage durable de l'appelant et renvoie l'URL permanente. On ne rend
// jamais une URL éphémère tierce comme résultat définitif.
type PersistFunc func(ctx context.Context, subtitleURL string) (string, error)

// ProgressFunc reçoit l'état et la progression estimée à chaque poll.
type ProgressFunc func(state State, percent int)

// Poller pilote la machine à états Submitted -> Processing -> {Ready|Failed}.
type Poller struct {
	API        JobAPI
	Persist    PersistFunc
	Interval   time.Duration // défaut 5s
	MaxPolls   int           // défaut 60
	OnProgress ProgressFunc
}

// Run soumet le job puis poll jusqu'à l'état terminal, borné par le budget
// de polling. Sur Ready, télécharge le transcript exactement une fois et le
// re-héberge ; renvoie l'URL durable. La progression rapportée ne décroît
// jamais tant que le job est en cours.
func (p *Poller) Run(ctx context.Context, audioURL string) (string, error) {
	jobID, err := p.API.Submit(ctx, audioURL)
	if err != nil {
		return "", fmt.Errorf("submit transcription: %w", err)
	}
	p.report(StateSubmitted, 5)

	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxPolls := p.MaxPolls
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}

	best := 5
	for i := 0; i < maxPolls; i++ {
		if err := sleep(ctx, interval); err != nil {
			return "", err
		}

		info, err := p.API.Status(ctx, jobID)
		if err != nil {
			// erreur de poll isolée : on consomme une tentative et on continue
			fmt.Printf("warning: poll transcription %s: %v\n", jobID, err)
			continue
		}

		state, pct := TranslateStatus(info.Status)
		if pct > best {
			best = pct
		}

		switch state {
		case StateFailed:
			msg := info.Message
			if msg == "" {
				msg = info.Status
			}
			return "", fmt.Errorf("transcription failed: %s", msg)
		case StateReady:
			p.report(StateReady, 100)
			durable, perr := p.Persist(ctx, info.SubtitleURL)
			if perr != nil {
				return "", &PersistError{Err: perr}
			}
			return durable, nil
		default:
			p.report(StateProcessing, best)
		}
	}
	return "", fmt.Errorf("%w after %d polls", ErrTimedOut, maxPolls)
}

func (p *Poller) report(state State, percent int) {
	if p.OnProgress != nil {
		p.OnProgress(state, percent)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
