package transcribe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeAPI rejoue une séquence de statuts provider
type fakeAPI struct {
	statuses []StatusInfo
	calls    int
}

func (f *fakeAPI) Submit(ctx context.Context, audioURL string) (string, error) {
	return "job-42", nil
}

func (f *fakeAPI) Status(ctx context.Context, jobID string) (StatusInfo, error) {
	i := f.calls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.calls++
	return f.statuses[i], nil
}

func fastPoller(api JobAPI, persist PersistFunc) *Poller {
	return &Poller{
		API:      api,
		Persist:  persist,
		Interval: time.Millisecond,
	}
}

func TestTranslateStatusVocabulary(t *testing.T) {
	cases := []struct {
		in      string
		want    State
		wantPct int
	}{
		{"queued", StateProcessing, 10},
		{"uploading", StateProcessing, 25},
		{"preparing", StateProcessing, 40},
		{"analyzing", StateProcessing, 60},
		{"transcribing", StateProcessing, 90},
		{"downloading", StateProcessing, 95},
		{"completed", StateReady, 100},
		{"ready", StateReady, 100},
		{"failed", StateFailed, 0},
		{"error", StateFailed, 0},
		{"Transcribing", StateProcessing, 90}, // insensible à la casse
		{"something-new", StateProcessing, 10},
	}
	for _, c := range cases {
		state, pct := TranslateStatus(c.in)
		if state != c.want || pct != c.wantPct {
			t.Fatalf("TranslateStatus(%q): want (%s, %d), got (%s, %d)", c.in, c.want, c.wantPct, state, pct)
		}
	}
}

func TestRunHappyPathMonotonicProgress(t *testing.T) {
	api := &fakeAPI{statuses: []StatusInfo{
		{Status: "uploading"},
		{Status: "preparing"},
		{Status: "analyzing"},
		{Status: "transcribing"},
		{Status: "completed", SubtitleURL: "https://provider/tmp/subs.srt"},
	}}

	var persisted string
	persist := func(ctx context.Context, subtitleURL string) (string, error) {
		persisted = subtitleURL
		return "https://store/runs/1/captions.srt", nil
	}

	p := fastPoller(api, persist)
	var progress []int
	p.OnProgress = func(state State, pct int) {
		progress = append(progress, pct)
	}

	got, err := p.Run(context.Background(), "https://store/audio.mp3")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != "https://store/runs/1/captions.srt" {
		t.Fatalf("want durable url, got %q", got)
	}
	if persisted != "https://provider/tmp/subs.srt" {
		t.Fatalf("provider artifact not downloaded once: %q", persisted)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress decreased: %v", progress)
		}
	}
	if progress[len(progress)-1] != 100 {
		t.Fatalf("final progress: want 100, got %v", progress)
	}
}

func TestRunTimesOut(t *testing.T) {
	api := &fakeAPI{statuses: []StatusInfo{{Status: "transcribing"}}}
	p := fastPoller(api, nil)
	p.MaxPolls = 3

	_, err := p.Run(context.Background(), "https://store/audio.mp3")
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("want ErrTimedOut, got %v", err)
	}
	if api.calls != 3 {
		t.Fatalf("want exactly 3 polls, got %d", api.calls)
	}
}

func TestRunProviderFailure(t *testing.T) {
	api := &fakeAPI{statuses: []StatusInfo{
		{Status: "analyzing"},
		{Status: "failed", Message: "audio unreadable"},
	}}
	p := fastPoller(api, nil)

	_, err := p.Run(context.Background(), "https://store/audio.mp3")
	if err == nil {
		t.Fatal("expected provider failure")
	}
	var pe *PersistError
	if errors.As(err, &pe) {
		t.Fatalf("provider failure must not be a PersistError: %v", err)
	}
}

func TestRunPersistFailureIsDistinct(t *testing.T) {
	api := &fakeAPI{statuses: []StatusInfo{
		{Status: "completed", SubtitleURL: "https://provider/tmp/subs.srt"},
	}}
	persist := func(ctx context.Context, subtitleURL string) (string, error) {
		return "", fmt.Errorf("upload refused")
	}
	p := fastPoller(api, persist)

	_, err := p.Run(context.Background(), "https://store/audio.mp3")
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("want PersistError, got %v", err)
	}
}

func TestRunCancellation(t *testing.T) {
	api := &fakeAPI{statuses: []StatusInfo{{Status: "transcribing"}}}
	p := fastPoller(api, nil)
	p.Interval = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Run(ctx, "https://store/audio.mp3")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want context deadline error, got %v", err)
	}
}
