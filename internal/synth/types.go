// Package synth exécute les jobs de synthèse vocale avec un plafond de
// concurrence fixe, retry/backoff par job et rotation de credentials.
package synth

// State est l'état observable d'un job de synthèse.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Job est une unité de synthèse, créée une pour une depuis un chunk de
// narration. Index reprend l'imageIndex d'origine.
type Job struct {
	Index int
	Text  string
}

// Result est un job réussi, étiqueté de son index d'origine.
type Result struct {
	Index int
	Audio []byte
}

// Failure est un job en échec terminal, étiqueté de son index d'origine.
type Failure struct {
	Index int
	Err   error
}

// Observer reçoit les transitions d'état des jobs, au minimum l'entrée en
// Running et l'état terminal. Appelé de façon synchrone depuis les workers.
type Observer interface {
	OnJobStateChange(index int, state State, attempt int, err error)
}

type noopObserver struct{}

func (noopObserver) OnJobStateChange(int, State, int, error) {}
