// Package keypool gère le pool de clés API interchangeables du provider TTS.
// C'est le seul état mutable partagé entre jobs concurrents : toute mutation
// (sélection, incrément d'usage, invalidation) passe par un point d'accès
// unique et se fait sous verrou, jamais en read-modify-write séparé.
package keypool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrExhausted : plus aucune clé valide disponible dans le pool.
var ErrExhausted = errors.New("credential pool exhausted")

// Credential est une clé utilisable pour un appel provider.
type Credential struct {
	ID     string
	Secret string
}

// Store est l'abstraction de stockage du pool. AcquireLeastUsed combine la
// sélection de la clé valide la moins utilisée ET l'incrément de son compteur
// en une seule opération atomique.
type Store interface {
	AcquireLeastUsed(ctx context.Context) (Credential, error)
	MarkInvalid(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error
}

type entry struct {
	cred    Credential
	usage   int64
	invalid bool
}

// MemoryStore est l'implémentation en mémoire, sérialisée par mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries []*entry
}

// NewMemoryStore construit le pool depuis une liste de secrets (une clé par
// entrée non vide). Les IDs sont key-1, key-2, ... dans l'ordre fourni.
func NewMemoryStore(secrets []string) *MemoryStore {
	s := &MemoryStore{}
	for _, sec := range secrets {
		sec = strings.TrimSpace(sec)
		if sec == "" {
			continue
		}
		s.entries = append(s.entries, &entry{
			cred: Credential{ID: fmt.Sprintf("key-%d", len(s.entries)+1), Secret: sec},
		})
	}
	return s
}

// AcquireLeastUsed renvoie la clé valide la moins utilisée et incrémente son
// compteur sous le même verrou. ErrExhausted si tout le pool est invalide.
func (s *MemoryStore) AcquireLeastUsed(ctx context.Context) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var best *entry
	for _, e := range s.entries {
		if e.invalid {
			continue
		}
		if best == nil || e.usage < best.usage {
			best = e
		}
	}
	if best == nil {
		return Credential{}, ErrExhausted
	}
	best.usage++
	return best.cred, nil
}

// MarkInvalid écarte définitivement une clé du pool (credential expiré ou
// révoqué côté provider). Une clé invalidée n'est plus jamais sélectionnée.
func (s *MemoryStore) MarkInvalid(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.cred.ID == id {
			e.invalid = true
			return nil
		}
	}
	return fmt.Errorf("keypool: clé inconnue %q", id)
}

// IncrementUsage incrémente le compteur d'usage d'une clé.
func (s *MemoryStore) IncrementUsage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.cred.ID == id {
			e.usage++
			return nil
		}
	}
	return fmt.Errorf("keypool: clé inconnue %q", id)
}

// ValidCount renvoie le nombre de clés encore utilisables.
func (s *MemoryStore) ValidCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if !e.invalid {
			n++
		}
	}
	return n
}
