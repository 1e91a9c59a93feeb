package model

// Structures déclaratives envoyées au moteur de rendu. La propriété de la
// requête est transférée entièrement au provider à la soumission.

type ImageAsset struct {
	Type string `json:"type"` // toujours "image"
	Src  string `json:"src"`
}

type Clip struct {
	Asset  ImageAsset `json:"asset"`
	Start  float64    `json:"start"`
	Length float64    `json:"length"`
}

type Track struct {
	Clips []Clip `json:"clips"`
}

type Soundtrack struct {
	Src    string `json:"src"`
	Effect string `json:"effect,omitempty"`
}

type CaptionTrack struct {
	Src string `json:"src"`
}

type Timeline struct {
	Tracks     []Track       `json:"tracks"`
	Soundtrack *Soundtrack   `json:"soundtrack,omitempty"`
	Captions   *CaptionTrack `json:"captions,omitempty"`
}

// OutputSpec décrit le format de sortie demandé au moteur de rendu.
type OutputSpec struct {
	Format     string `json:"format"`
	Resolution string `json:"resolution"`
}

// RenderRequest est la sortie finale du pipeline côté coeur.
type RenderRequest struct {
	Timeline Timeline   `json:"timeline"`
	Output   OutputSpec `json:"output"`
}
