// Package transcribe soumet la piste audio jointe au provider de
// transcription et poll jusqu'à l'état terminal, en traduisant le
// vocabulaire du provider vers un état canonique uniforme.
package transcribe

import "strings"

// State est l'état canonique d'un job de transcription.
type State string

const (
	StateSubmitted  State = "submitted"
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

type stage struct {
	State    State
	Progress int
}

// providerStages : table de correspondance explicite entre le vocabulaire
// observé du provider et l'état canonique + progression estimée. Le
// bucketing n'existe que pour donner un retour qui monte régulièrement
// malgré un provider au reporting grossier.
var providerStages = map[string]stage{
	"queued":       {StateProcessing, 10},
	"uploading":    {StateProcessing, 25},
	"preparing":    {StateProcessing, 40},
	"analyzing":    {StateProcessing, 60},
	"transcribing": {StateProcessing, 90},
	"downloading":  {StateProcessing, 95},
	"completed":    {StateReady, 100},
	"ready":        {StateReady, 100},
	"failed":       {StateFailed, 0},
	"error":        {StateFailed, 0},
}

// TranslateStatus mappe un statut provider vers (état canonique, progression
// estimée). Un statut inconnu est traité comme un démarrage de traitement.
func TranslateStatus(providerStatus string) (State, int) {
	s := strings.ToLower(strings.TrimSpace(providerStatus))
	if info, ok := providerStages[s]; ok {
		return info.State, info.Progress
	}
	return StateProcessing, 10
}
