package synth

import (
	"context"
	"time"
)

// Delay calcule le délai avant la tentative attempt (base 1) :
// min(base * 2^(attempt-1), max). Fonction pure, testable indépendamment de
// l'appel réseau qu'elle encadre.
func Delay(attempt int, base, max time.Duration) time.Duration {
	if base > max {
		return max
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}

// wait bloque pendant d ou jusqu'à l'annulation du contexte.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
