// Package segment est le coeur du pipeline : il rétablit la correspondance
// d'index entre les N chunks de narration soumis et les M <= N audios
// revenus dans un ordre d'achèvement quelconque, puis calcule les offsets
// cumulés de la timeline et produit la piste audio jointe.
package segment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Luksuz/anime-content-creator/internal/synth"
	"github.com/Luksuz/anime-content-creator/pkg/model"
)

// ErrNoSegments : aucune synthèse n'a abouti, rien à assembler.
var ErrNoSegments = errors.New("no segments produced")

// IncompleteError : certains segments manquent alors que l'appelant exige un
// mapping complet image-audio. Les index manquants sont exposés pour
// permettre une relance ciblée.
type IncompleteError struct {
	Missing []int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("processing incomplete: missing segment indices %v", e.Missing)
}

// ProbeFunc mesure la durée d'un artefact audio (jamais d'échec : fallback).
type ProbeFunc func(ctx context.Context, audio []byte) float64

// JoinFunc concatène des artefacts audio dans l'ordre fourni.
type JoinFunc func(ctx context.Context, parts [][]byte) ([]byte, error)

// Options par appel de Reconcile.
type Options struct {
	// RequireComplete : un trou dans la séquence d'index (job échoué) est
	// fatal — une vidéo ne peut pas avoir de scène muette. Faux pour les
	// appelants « best-effort » qui acceptent un résultat partiel.
	RequireComplete bool
}

// Outcome est le résultat d'une réconciliation.
type Outcome struct {
	Joined   model.JoinedAudio
	Timeline []model.TimelineSegment
	Failures []synth.Failure // échecs terminaux observés, étiquetés par index
}

// Reconciler assemble les triples {audio, durée, texte} en séquence fidèle
// aux index d'origine.
type Reconciler struct {
	Exec  *synth.Executor
	Probe ProbeFunc
	Join  JoinFunc
}

// Reconcile soumet un job de synthèse par chunk, mesure chaque audio produit,
// trie par index (l'ordre d'achèvement du fan-out n'est PAS l'ordre des
// index), vérifie la complétude si demandée, calcule les offsets cumulés et
// joint les audios dans l'ordre des index.
//
// Invariant central : Joined.Duration est la somme des durées par segment —
// les mêmes durées qui produisent les offsets. Toute divergence entre les
// deux dérivations se traduirait par une désynchronisation audible entre la
// narration et le changement d'image.
func (r *Reconciler) Reconcile(ctx context.Context, chunks []model.NarrationChunk, opts Options) (*Outcome, error) {
	jobs := make([]synth.Job, 0, len(chunks))
	refByIndex := make(map[int]string, len(chunks))
	textByIndex := make(map[int]string, len(chunks))
	for _, c := range chunks {
		jobs = append(jobs, synth.Job{Index: c.ImageIndex, Text: c.Text})
		refByIndex[c.ImageIndex] = c.ImageRef
		textByIndex[c.ImageIndex] = c.Text
	}

	results, failures := r.Exec.Run(ctx, jobs)
	if len(results) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %d jobs failed", ErrNoSegments, len(failures))
	}

	// mesure immédiate de chaque résultat, puis tri par index
	segments := make([]model.AudioSegment, 0, len(results))
	for _, res := range results {
		segments = append(segments, model.AudioSegment{
			Index:    res.Index,
			Audio:    res.Audio,
			Duration: r.Probe(ctx, res.Audio),
			Text:     textByIndex[res.Index],
		})
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Index < segments[j].Index })

	if opts.RequireComplete {
		if missing := missingIndices(segments, len(chunks)); len(missing) > 0 {
			return nil, &IncompleteError{Missing: missing}
		}
	}

	// offsets cumulés : offset[0] = 0, offset[i] = offset[i-1] + durée[i-1].
	// Les trous éventuels (mode best-effort) ne sont PAS renumérotés : les
	// index d'origine sont conservés dans Joined.Segments.
	timeline := make([]model.TimelineSegment, len(segments))
	var offset float64
	for i, s := range segments {
		timeline[i] = model.TimelineSegment{
			ImageRef: refByIndex[s.Index],
			Start:    offset,
			Duration: s.Duration,
		}
		offset += s.Duration
	}

	parts := make([][]byte, len(segments))
	for i, s := range segments {
		parts[i] = s.Audio
	}
	joinedBytes, err := r.Join(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("join segments: %w", err)
	}

	return &Outcome{
		Joined: model.JoinedAudio{
			Audio:    joinedBytes,
			Duration: offset, // somme des durées par segment, même source que les offsets
			Segments: segments,
		},
		Timeline: timeline,
		Failures: failures,
	}, nil
}

// missingIndices compare la séquence d'index produite à 0..n-1.
func missingIndices(segments []model.AudioSegment, n int) []int {
	have := make(map[int]bool, len(segments))
	for _, s := range segments {
		have[s.Index] = true
	}
	var missing []int
	for i := 0; i < n; i++ {
		if !have[i] {
			missing = append(missing, i)
		}
	}
	return missing
}
