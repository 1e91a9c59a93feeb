// Package timeline traduit les segments réconciliés en requête déclarative
// pour le moteur de rendu. Aucune réorganisation : l'ordre croissant des
// offsets est garanti en amont par la réconciliation.
package timeline

import (
	"fmt"

	"github.com/Luksuz/anime-content-creator/pkg/model"
)

// Build assemble la requête de rendu depuis les segments, la piste audio et
// l'éventuelle piste de sous-titres. Échec rapide si un segment a une durée
// non positive ou si les offsets ne sont pas monotones non décroissants —
// garde-fou contre un amont défaillant, pas un cas attendu.
func Build(segments []model.TimelineSegment, audioURL, captionURL string, out model.OutputSpec) (*model.RenderRequest, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("timeline: aucun segment")
	}
	if audioURL == "" {
		return nil, fmt.Errorf("timeline: URL audio manquante")
	}

	clips := make([]model.Clip, 0, len(segments))
	prev := 0.0
	for i, seg := range segments {
		if seg.Duration <= 0 {
			return nil, fmt.Errorf("timeline: segment %d a une durée non positive (%g)", i, seg.Duration)
		}
		if seg.Start < 0 {
			return nil, fmt.Errorf("timeline: segment %d a un offset négatif (%g)", i, seg.Start)
		}
		if seg.Start < prev {
			return nil, fmt.Errorf("timeline: offsets non monotones au segment %d (%g < %g)", i, seg.Start, prev)
		}
		prev = seg.Start
		clips = append(clips, model.Clip{
			Asset:  model.ImageAsset{Type: "image", Src: seg.ImageRef},
			Start:  seg.Start,
			Length: seg.Duration,
		})
	}

	req := &model.RenderRequest{
		Timeline: model.Timeline{
			Tracks:     []model.Track{{Clips: clips}},
			Soundtrack: &model.Soundtrack{Src: audioURL},
		},
		Output: out,
	}
	if captionURL != "" {
		req.Timeline.Captions = &model.CaptionTrack{Src: captionURL}
	}
	return req, nil
}
