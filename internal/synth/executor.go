package synth

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Luksuz/anime-content-creator/internal/chunk"
	"github.com/Luksuz/anime-content-creator/internal/keypool"
)

const (
	defaultConcurrency = 3
	defaultMaxRetries  = 5
	defaultMaxAttempts = 10
	defaultBaseDelay   = 2 * time.Second
	defaultMaxDelay    = 30 * time.Second
)

// SynthesizeFunc appelle le provider TTS avec la clé API fournie.
type SynthesizeFunc func(ctx context.Context, apiKey string, text string) ([]byte, error)

// CombineFunc concatène les audios des sous-chunks d'un même job.
type CombineFunc func(ctx context.Context, parts [][]byte) ([]byte, error)

// Executor exécute une liste de jobs indépendants avec un plafond de
// concurrence fixe. Chaque job peut être découpé en sous-chunks ordonnés
// (texte au-delà de la limite dure du provider) exécutés strictement en
// séquence puis concaténés avant que le job parent soit considéré complet.
type Executor struct {
	Synthesize SynthesizeFunc
	Combine    CombineFunc
	Pool       keypool.Store
	Observer   Observer

	Concurrency   int           // fan-out maximal (défaut 3)
	MaxRetries    int           // budget retries rate-limit (défaut 5)
	MaxAttempts   int           // plafond global, garantit la terminaison (défaut 10)
	BaseDelay     time.Duration // backoff initial (défaut 2s)
	MaxDelay      time.Duration // plafond de backoff (défaut 30s)
	MaxChunkChars int           // limite dure du provider, 0 = pas de découpage
}

// Run exécute tous les jobs et renvoie les succès et les échecs, chacun
// étiqueté de son index d'origine. Un échec individuel ne fait jamais
// échouer l'appel : seule la décision de l'appelant (p. ex. zéro succès)
// convertit l'agrégat en erreur dure. L'ordre des listes renvoyées est
// l'ordre d'achèvement, PAS l'ordre des index.
func (e *Executor) Run(ctx context.Context, jobs []Job) ([]Result, []Failure) {
	obs := e.Observer
	if obs == nil {
		obs = noopObserver{}
	}

	sem := make(chan struct{}, e.concurrency())
	var wg sync.WaitGroup
	var mu sync.Mutex
	var results []Result
	var failures []Failure

	for _, job := range jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				failures = append(failures, Failure{Index: job.Index, Err: ctx.Err()})
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			obs.OnJobStateChange(job.Index, StateRunning, 1, nil)
			audio, err := e.runJob(ctx, job)
			mu.Lock()
			if err != nil {
				failures = append(failures, Failure{Index: job.Index, Err: err})
			} else {
				results = append(results, Result{Index: job.Index, Audio: audio})
			}
			mu.Unlock()
			if err != nil {
				obs.OnJobStateChange(job.Index, StateFailed, 0, err)
			} else {
				obs.OnJobStateChange(job.Index, StateSucceeded, 0, nil)
			}
		}(job)
	}
	wg.Wait()
	return results, failures
}

// runJob pilote les tentatives d'un job : rotation de clé sur erreur d'auth
// (sans consommer le budget rate-limit), backoff exponentiel sur rate-limit,
// échec immédiat sur toute autre erreur.
func (e *Executor) runJob(ctx context.Context, job Job) ([]byte, error) {
	var lastErr error
	rateRetries := 0

	for attempt := 1; attempt <= e.maxAttempts(); attempt++ {
		cred, err := e.Pool.AcquireLeastUsed(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, &PoolExhaustedError{Index: job.Index, Last: lastErr}
		}

		audio, err := e.synthesizeChunks(ctx, cred.Secret, job.Text)
		if err == nil {
			return audio, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		switch Classify(err) {
		case ClassRateLimit:
			rateRetries++
			if rateRetries >= e.maxRetries() {
				return nil, &RateLimitError{Index: job.Index, Attempts: rateRetries, Last: err}
			}
			if werr := wait(ctx, Delay(rateRetries, e.baseDelay(), e.maxDelay())); werr != nil {
				return nil, werr
			}
		case ClassAuth:
			// clé grillée : on l'écarte du pool et la tentative suivante en
			// prendra une autre — le plafond global borne la boucle même si
			// tout le pool finit invalidé
			_ = e.Pool.MarkInvalid(ctx, cred.ID)
		default:
			return nil, err
		}
	}
	return nil, &PoolExhaustedError{Index: job.Index, Last: lastErr}
}

// synthesizeChunks traite le texte du job : appel direct sous la limite,
// sinon découpage, synthèse séquentielle des sous-chunks et concaténation.
func (e *Executor) synthesizeChunks(ctx context.Context, apiKey, text string) ([]byte, error) {
	max := e.MaxChunkChars
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return e.Synthesize(ctx, apiKey, text)
	}

	parts := chunk.Split(text, max)
	audios := make([][]byte, 0, len(parts))
	for _, p := range parts {
		b, err := e.Synthesize(ctx, apiKey, p)
		if err != nil {
			return nil, err
		}
		audios = append(audios, b)
	}
	if len(audios) == 1 {
		return audios[0], nil
	}
	if e.Combine == nil {
		return nil, errors.New("synth: Combine requis pour les textes au-delà de la limite provider")
	}
	return e.Combine(ctx, audios)
}

func (e *Executor) concurrency() int {
	if e.Concurrency > 0 {
		return e.Concurrency
	}
	return defaultConcurrency
}

func (e *Executor) maxRetries() int {
	if e.MaxRetries > 0 {
		return e.MaxRetries
	}
	return defaultMaxRetries
}

func (e *Executor) maxAttempts() int {
	if e.MaxAttempts > 0 {
		return e.MaxAttempts
	}
	return defaultMaxAttempts
}

func (e *Executor) baseDelay() time.Duration {
	if e.BaseDelay > 0 {
		return e.BaseDelay
	}
	return defaultBaseDelay
}

func (e *Executor) maxDelay() time.Duration {
	if e.MaxDelay > 0 {
		return e.MaxDelay
	}
	return defaultMaxDelay
}
