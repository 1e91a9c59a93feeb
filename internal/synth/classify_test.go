package synth

import (
	"errors"
	"fmt"
	"testing"
)

type fakeStatusErr struct {
	status int
	body   string
}

func (e *fakeStatusErr) Error() string           { return fmt.Sprintf("provider status %d: %s", e.status, e.body) }
func (e *fakeStatusErr) HTTPStatus() int         { return e.status }
func (e *fakeStatusErr) ProviderMessage() string { return e.body }

func TestClassifyByStatus(t *testing.T) {
	if got := Classify(&fakeStatusErr{status: 429}); got != ClassRateLimit {
		t.Fatalf("429: want ClassRateLimit, got %v", got)
	}
	if got := Classify(&fakeStatusErr{status: 401}); got != ClassAuth {
		t.Fatalf("401: want ClassAuth, got %v", got)
	}
	if got := Classify(&fakeStatusErr{status: 403}); got != ClassAuth {
		t.Fatalf("403: want ClassAuth, got %v", got)
	}
	if got := Classify(&fakeStatusErr{status: 500, body: "internal"}); got != ClassPermanent {
		t.Fatalf("500: want ClassPermanent, got %v", got)
	}
}

func TestClassifyByMessage(t *testing.T) {
	cases := []struct {
		msg  string
		want Class
	}{
		{"Rate limit exceeded, slow down", ClassRateLimit},
		{"too many requests", ClassRateLimit},
		{"quota exceeded for this billing period", ClassRateLimit},
		{"Invalid API key provided", ClassAuth},
		{"request unauthorized", ClassAuth},
		{"api key expired", ClassAuth},
		{"voice not found", ClassPermanent},
	}
	for _, c := range cases {
		if got := Classify(errors.New(c.msg)); got != c.want {
			t.Fatalf("Classify(%q): want %v, got %v", c.msg, c.want, got)
		}
	}
}

func TestClassifyStatusErrorBodyHints(t *testing.T) {
	// statut ambigu (400) mais message rate-limit du provider
	err := &fakeStatusErr{status: 400, body: "You hit the rate limit"}
	if got := Classify(err); got != ClassRateLimit {
		t.Fatalf("want ClassRateLimit from body hint, got %v", got)
	}
}
