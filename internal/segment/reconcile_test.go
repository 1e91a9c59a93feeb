package segment

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Luksuz/anime-content-creator/internal/keypool"
	"github.com/Luksuz/anime-content-creator/internal/synth"
	"github.com/Luksuz/anime-content-creator/pkg/model"
)

const tolerance = 1e-9

// harnais : synthèse = texte en octets, durées fixées par texte, jonction
// par concaténation brute
func newHarness(durations map[string]float64, failTexts map[string]bool) *Reconciler {
	synthFn := func(ctx context.Context, key, text string) ([]byte, error) {
		if failTexts[text] {
			return nil, errors.New("voice not found")
		}
		return []byte(text), nil
	}
	exec := &synth.Executor{
		Synthesize: synthFn,
		Pool:       keypool.NewMemoryStore([]string{"sk-test"}),
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
	}
	return &Reconciler{
		Exec: exec,
		Probe: func(ctx context.Context, audio []byte) float64 {
			return durations[string(audio)]
		},
		Join: func(ctx context.Context, parts [][]byte) ([]byte, error) {
			var out []byte
			for _, p := range parts {
				out = append(out, p...)
			}
			return out, nil
		},
	}
}

func threeChunks() []model.NarrationChunk {
	return []model.NarrationChunk{
		{ImageIndex: 0, ImageRef: "img-0.png", Text: "Hello world."},
		{ImageIndex: 1, ImageRef: "img-1.png", Text: "Scene two text."},
		{ImageIndex: 2, ImageRef: "img-2.png", Text: "Final scene."},
	}
}

func TestFullRunOffsetsAndTotal(t *testing.T) {
	r := newHarness(map[string]float64{
		"Hello world.":    2.0,
		"Scene two text.": 3.5,
		"Final scene.":    1.2,
	}, nil)

	out, err := r.Reconcile(context.Background(), threeChunks(), Options{RequireComplete: true})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	// séquence d'index exactement 0..N-1
	for i, s := range out.Joined.Segments {
		if s.Index != i {
			t.Fatalf("segment %d has index %d", i, s.Index)
		}
	}

	wantStarts := []float64{0, 2.0, 5.5}
	wantDurations := []float64{2.0, 3.5, 1.2}
	if len(out.Timeline) != 3 {
		t.Fatalf("want 3 timeline segments, got %d", len(out.Timeline))
	}
	for i, seg := range out.Timeline {
		if math.Abs(seg.Start-wantStarts[i]) > tolerance {
			t.Fatalf("offset %d: want %g, got %g", i, wantStarts[i], seg.Start)
		}
		if math.Abs(seg.Duration-wantDurations[i]) > tolerance {
			t.Fatalf("duration %d: want %g, got %g", i, wantDurations[i], seg.Duration)
		}
	}

	// invariant central : durée totale = somme des durées par segment
	var sum float64
	for _, s := range out.Joined.Segments {
		sum += s.Duration
	}
	if math.Abs(out.Joined.Duration-sum) > tolerance {
		t.Fatalf("total duration %g != segment sum %g", out.Joined.Duration, sum)
	}
	if math.Abs(out.Joined.Duration-6.7) > tolerance {
		t.Fatalf("total duration: want 6.7, got %g", out.Joined.Duration)
	}

	// offset[i] = somme des durées 0..i-1
	for i := range out.Timeline {
		var prefix float64
		for j := 0; j < i; j++ {
			prefix += out.Joined.Segments[j].Duration
		}
		if math.Abs(out.Timeline[i].Start-prefix) > tolerance {
			t.Fatalf("offset %d: want prefix sum %g, got %g", i, prefix, out.Timeline[i].Start)
		}
	}
}

func TestPartialFailureRequireComplete(t *testing.T) {
	r := newHarness(map[string]float64{
		"Hello world.": 2.0,
		"Final scene.": 1.2,
	}, map[string]bool{"Scene two text.": true})

	_, err := r.Reconcile(context.Background(), threeChunks(), Options{RequireComplete: true})
	var inc *IncompleteError
	if !errors.As(err, &inc) {
		t.Fatalf("want IncompleteError, got %v", err)
	}
	if len(inc.Missing) != 1 || inc.Missing[0] != 1 {
		t.Fatalf("missing indices: want [1], got %v", inc.Missing)
	}
}

func TestPartialFailureBestEffortKeepsGap(t *testing.T) {
	r := newHarness(map[string]float64{
		"Hello world.": 2.0,
		"Final scene.": 1.2,
	}, map[string]bool{"Scene two text.": true})

	out, err := r.Reconcile(context.Background(), threeChunks(), Options{})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(out.Joined.Segments) != 2 {
		t.Fatalf("want 2 segments, got %d", len(out.Joined.Segments))
	}
	// trou préservé, pas de renumérotation
	if out.Joined.Segments[0].Index != 0 || out.Joined.Segments[1].Index != 2 {
		t.Fatalf("want index sequence [0 2], got [%d %d]",
			out.Joined.Segments[0].Index, out.Joined.Segments[1].Index)
	}
	if math.Abs(out.Joined.Duration-3.2) > tolerance {
		t.Fatalf("total: want 3.2, got %g", out.Joined.Duration)
	}
	if len(out.Failures) != 1 || out.Failures[0].Index != 1 {
		t.Fatalf("want failure for index 1, got %v", out.Failures)
	}
	// l'offset du segment survivant suit la durée du précédent survivant
	if math.Abs(out.Timeline[1].Start-2.0) > tolerance {
		t.Fatalf("second surviving offset: want 2.0, got %g", out.Timeline[1].Start)
	}
}

func TestAllFailuresIsHardError(t *testing.T) {
	r := newHarness(nil, map[string]bool{
		"Hello world.":    true,
		"Scene two text.": true,
		"Final scene.":    true,
	})

	_, err := r.Reconcile(context.Background(), threeChunks(), Options{})
	if !errors.Is(err, ErrNoSegments) {
		t.Fatalf("want ErrNoSegments, got %v", err)
	}
}

func TestCompletionOrderDoesNotLeakIntoOutput(t *testing.T) {
	// des durées de synthèse inégales réordonnent les achèvements ; la
	// sortie doit rester triée par index
	synthFn := func(ctx context.Context, key, text string) ([]byte, error) {
		switch text {
		case "Hello world.":
			time.Sleep(30 * time.Millisecond)
		case "Scene two text.":
			time.Sleep(10 * time.Millisecond)
		}
		return []byte(text), nil
	}
	exec := &synth.Executor{
		Synthesize:  synthFn,
		Pool:        keypool.NewMemoryStore([]string{"sk-test"}),
		Concurrency: 3,
	}
	r := &Reconciler{
		Exec:  exec,
		Probe: func(ctx context.Context, audio []byte) float64 { return 1.0 },
		Join: func(ctx context.Context, parts [][]byte) ([]byte, error) {
			var out []byte
			for _, p := range parts {
				out = append(out, p...)
			}
			return out, nil
		},
	}

	out, err := r.Reconcile(context.Background(), threeChunks(), Options{RequireComplete: true})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	want := "Hello world.Scene two text.Final scene."
	if string(out.Joined.Audio) != want {
		t.Fatalf("joined audio out of index order:\nwant %q\ngot  %q", want, out.Joined.Audio)
	}
}
