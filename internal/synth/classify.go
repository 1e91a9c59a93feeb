package synth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Class répartit les erreurs provider en familles de traitement.
type Class int

const (
	ClassPermanent Class = iota // non réessayable, échec immédiat
	ClassRateLimit              // transitoire : retry avec backoff
	ClassAuth                   // credential invalide : rotation de clé
)

// StatusError est implémentée par les erreurs des clients provider qui
// portent le statut HTTP et le message renvoyé.
type StatusError interface {
	error
	HTTPStatus() int
	ProviderMessage() string
}

// indices textuels observés dans les messages provider
var (
	rateLimitHints = []string{"rate limit", "too many requests", "quota exceeded"}
	authHints      = []string{"invalid api key", "unauthorized", "api key expired", "invalid_api_key", "permission denied"}
)

// Classify détermine la famille d'une erreur de synthèse : d'abord le statut
// HTTP quand il est disponible, sinon le vocabulaire du message.
func Classify(err error) Class {
	msg := strings.ToLower(err.Error())

	var se StatusError
	if errors.As(err, &se) {
		switch se.HTTPStatus() {
		case http.StatusTooManyRequests:
			return ClassRateLimit
		case http.StatusUnauthorized, http.StatusForbidden:
			return ClassAuth
		}
		msg = strings.ToLower(se.ProviderMessage())
	}

	for _, h := range rateLimitHints {
		if strings.Contains(msg, h) {
			return ClassRateLimit
		}
	}
	for _, h := range authHints {
		if strings.Contains(msg, h) {
			return ClassAuth
		}
	}
	return ClassPermanent
}

// RateLimitError : budget de retries épuisé sur erreurs transitoires.
type RateLimitError struct {
	Index    int
	Attempts int
	Last     error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("job %d: rate limit retries exhausted after %d attempts: %v", e.Index, e.Attempts, e.Last)
}

func (e *RateLimitError) Unwrap() error { return e.Last }

// PoolExhaustedError : plus de credential utilisable, ou plafond global de
// tentatives atteint pendant la rotation.
type PoolExhaustedError struct {
	Index int
	Last  error
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("job %d: credential pool exhausted: %v", e.Index, e.Last)
}

func (e *PoolExhaustedError) Unwrap() error { return e.Last }
