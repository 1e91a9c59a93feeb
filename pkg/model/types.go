package model

import "fmt"

// Rect décrit la région source d'un panel dans la page capturée (optionnel).
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NarrationChunk est l'unité produite par le collaborateur d'analyse d'images :
// un panel, son texte de narration, et son index d'origine. Immuable une fois
// créé. L'ordre de la liste doit suivre ImageIndex croissant.
type NarrationChunk struct {
	ImageIndex int    `json:"imageIndex"`
	ImageRef   string `json:"imageRef"`
	Text       string `json:"text"`
	Region     *Rect  `json:"region,omitempty"`
}

// AudioSegment est le triplet {audio, durée, texte} d'un panel après synthèse
// et mesure. Index reprend NarrationChunk.ImageIndex.
type AudioSegment struct {
	Index    int
	Audio    []byte
	Duration float64 // secondes, mesurée (ou fallback)
	Text     string
}

// JoinedAudio est la piste narration finale. Invariant : Duration égale la
// somme des durées de Segments (tolérance flottante), Segments trié par Index.
type JoinedAudio struct {
	Audio    []byte
	Duration float64
	Segments []AudioSegment
}

// TimelineSegment est dérivé : l'offset cumulé auquel l'image du segment doit
// apparaître. Les Start forment la somme préfixe des durées précédentes.
type TimelineSegment struct {
	ImageRef string  `json:"imageRef"`
	Start    float64 `json:"start"`
	Duration float64 `json:"length"`
}

// Timestamp formate un offset en secondes en "HH:MM:SS" pour l'affichage.
func Timestamp(seconds float64) string {
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
