package media

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestParseProbeDuration(t *testing.T) {
	out := []byte(`{"format":{"duration":"6.702041"}}`)
	d, err := ParseProbeDuration(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d < 6.70 || d > 6.71 {
		t.Fatalf("duration: want ~6.702, got %g", d)
	}
}

func TestParseProbeDurationRejectsBadOutput(t *testing.T) {
	cases := []string{
		`not json`,
		`{"format":{}}`,
		`{"format":{"duration":"abc"}}`,
		`{"format":{"duration":"0"}}`,
		`{"format":{"duration":"-3.5"}}`,
	}
	for _, c := range cases {
		if _, err := ParseProbeDuration([]byte(c)); err == nil {
			t.Fatalf("expected error for output %q", c)
		}
	}
}

func TestConcatManifestFormat(t *testing.T) {
	got := string(ConcatManifest([]string{"/tmp/a.mp3", "/tmp/b.mp3"}))
	want := "file '/tmp/a.mp3'\nfile '/tmp/b.mp3'\n"
	if got != want {
		t.Fatalf("manifest mismatch:\nwant %q\ngot  %q", want, got)
	}
}

func TestConcatManifestEscapesQuotes(t *testing.T) {
	got := string(ConcatManifest([]string{"/tmp/l'oeil.mp3"}))
	if !strings.Contains(got, `l'\''oeil`) {
		t.Fatalf("single quote not escaped: %q", got)
	}
}

func TestJoinSingleInputIdentity(t *testing.T) {
	// un seul élément : renvoyé tel quel, ffmpeg jamais invoqué
	j := NewJoiner(NewRunner("/nonexistent/ffmpeg", "/nonexistent/ffprobe"))
	in := []byte("fake-mp3-bytes")
	out, err := j.Join(context.Background(), [][]byte{in})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Fatalf("single-input join must be identity")
	}
}

func TestJoinEmptyInputFails(t *testing.T) {
	j := NewJoiner(NewRunner("", ""))
	if _, err := j.Join(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestProberFallbackOnUnavailableBinary(t *testing.T) {
	p := NewProber(NewRunner("/nonexistent/ffmpeg", "/nonexistent/ffprobe"), 5.0)
	d := p.Duration(context.Background(), "/nonexistent/audio.mp3")
	if d != 5.0 {
		t.Fatalf("want fallback 5.0, got %g", d)
	}
	// idempotence du fallback : deux mesures échouent de la même façon
	if again := p.Duration(context.Background(), "/nonexistent/audio.mp3"); again != d {
		t.Fatalf("fallback not stable: %g vs %g", d, again)
	}
}
