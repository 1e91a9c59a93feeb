package synth

import (
	"testing"
	"time"
)

func TestDelaySchedule(t *testing.T) {
	base := 2 * time.Second
	max := 30 * time.Second

	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // 32s plafonné
		30 * time.Second,
	}
	for i, w := range want {
		if got := Delay(i+1, base, max); got != w {
			t.Fatalf("Delay(%d): want %v, got %v", i+1, w, got)
		}
	}
}

func TestDelayBaseAboveCap(t *testing.T) {
	if got := Delay(1, time.Minute, 30*time.Second); got != 30*time.Second {
		t.Fatalf("want cap, got %v", got)
	}
}
