package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Luksuz/anime-content-creator/internal/keypool"
)

func newPool(n int) *keypool.MemoryStore {
	secrets := make([]string, n)
	for i := range secrets {
		secrets[i] = fmt.Sprintf("sk-%d", i+1)
	}
	return keypool.NewMemoryStore(secrets)
}

func fastExecutor(pool keypool.Store, fn SynthesizeFunc) *Executor {
	return &Executor{
		Synthesize: fn,
		Pool:       pool,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
}

func jobsN(n int) []Job {
	jobs := make([]Job, n)
	for i := range jobs {
		jobs[i] = Job{Index: i, Text: fmt.Sprintf("scene %d", i)}
	}
	return jobs
}

func TestConcurrencyCeiling(t *testing.T) {
	var running, peak int64
	fn := func(ctx context.Context, key, text string) ([]byte, error) {
		cur := atomic.AddInt64(&running, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if cur <= p || atomic.CompareAndSwapInt64(&peak, p, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&running, -1)
		return []byte(text), nil
	}

	e := fastExecutor(newPool(1), fn)
	e.Concurrency = 3
	results, failures := e.Run(context.Background(), jobsN(12))

	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(results) != 12 {
		t.Fatalf("want 12 results, got %d", len(results))
	}
	if got := atomic.LoadInt64(&peak); got > 3 {
		t.Fatalf("concurrency ceiling violated: peak %d > 3", got)
	}
}

func TestRateLimitRetriesThenSuccess(t *testing.T) {
	var calls int32
	fn := func(ctx context.Context, key, text string) ([]byte, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, &fakeStatusErr{status: 429, body: "too many requests"}
		}
		return []byte("ok"), nil
	}

	e := fastExecutor(newPool(1), fn)
	results, failures := e.Run(context.Background(), []Job{{Index: 0, Text: "hello"}})
	if len(failures) != 0 || len(results) != 1 {
		t.Fatalf("want 1 result after retries, got results=%d failures=%v", len(results), failures)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("want 3 calls, got %d", got)
	}
}

func TestRateLimitBudgetExhausted(t *testing.T) {
	fn := func(ctx context.Context, key, text string) ([]byte, error) {
		return nil, &fakeStatusErr{status: 429, body: "too many requests"}
	}

	e := fastExecutor(newPool(1), fn)
	e.MaxRetries = 3
	_, failures := e.Run(context.Background(), []Job{{Index: 4, Text: "hello"}})
	if len(failures) != 1 {
		t.Fatalf("want 1 failure, got %d", len(failures))
	}
	var rle *RateLimitError
	if !errors.As(failures[0].Err, &rle) {
		t.Fatalf("want RateLimitError, got %v", failures[0].Err)
	}
	if rle.Index != 4 || rle.Attempts != 3 {
		t.Fatalf("error context: want index 4 / 3 attempts, got %+v", rle)
	}
}

func TestAuthRotationUsesLastValidKey(t *testing.T) {
	// pool de 3 clés dont les 2 premières sont invalides côté provider :
	// le job doit aboutir avec la 3e, sans re-sélectionner une clé écartée
	pool := newPool(3)
	var mu sync.Mutex
	seen := map[string]int{}

	fn := func(ctx context.Context, key, text string) ([]byte, error) {
		mu.Lock()
		seen[key]++
		mu.Unlock()
		if key != "sk-3" {
			return nil, &fakeStatusErr{status: 401, body: "invalid api key"}
		}
		return []byte("ok"), nil
	}

	e := fastExecutor(pool, fn)
	results, failures := e.Run(context.Background(), []Job{{Index: 0, Text: "hello"}})
	if len(failures) != 0 || len(results) != 1 {
		t.Fatalf("want success via third key, got results=%d failures=%v", len(results), failures)
	}
	mu.Lock()
	defer mu.Unlock()
	for key, n := range seen {
		if key != "sk-3" && n != 1 {
			t.Fatalf("invalidated key %s retried %d times", key, n)
		}
	}
	if got := pool.ValidCount(); got != 1 {
		t.Fatalf("want 2 keys marked invalid, valid count %d", got)
	}
}

func TestPoolExhaustion(t *testing.T) {
	fn := func(ctx context.Context, key, text string) ([]byte, error) {
		return nil, &fakeStatusErr{status: 401, body: "invalid api key"}
	}

	e := fastExecutor(newPool(2), fn)
	_, failures := e.Run(context.Background(), []Job{{Index: 0, Text: "hello"}})
	if len(failures) != 1 {
		t.Fatalf("want 1 failure, got %d", len(failures))
	}
	var pe *PoolExhaustedError
	if !errors.As(failures[0].Err, &pe) {
		t.Fatalf("want PoolExhaustedError, got %v", failures[0].Err)
	}
}

func TestPermanentErrorFailsImmediately(t *testing.T) {
	var calls int32
	fn := func(ctx context.Context, key, text string) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("voice not found")
	}

	e := fastExecutor(newPool(1), fn)
	_, failures := e.Run(context.Background(), []Job{{Index: 0, Text: "hello"}})
	if len(failures) != 1 {
		t.Fatalf("want 1 failure, got %d", len(failures))
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("permanent error must not be retried: %d calls", got)
	}
}

func TestAggregationNeverPanicsOnPartialFailure(t *testing.T) {
	fn := func(ctx context.Context, key, text string) ([]byte, error) {
		if strings.Contains(text, "1") {
			return nil, errors.New("voice not found")
		}
		return []byte(text), nil
	}

	e := fastExecutor(newPool(1), fn)
	results, failures := e.Run(context.Background(), jobsN(3))
	if len(results) != 2 {
		t.Fatalf("want 2 results, got %d", len(results))
	}
	if len(failures) != 1 || failures[0].Index != 1 {
		t.Fatalf("want failure tagged with index 1, got %v", failures)
	}
}

func TestLongTextSplitSequentialAndCombined(t *testing.T) {
	var mu sync.Mutex
	var order []string
	fn := func(ctx context.Context, key, text string) ([]byte, error) {
		mu.Lock()
		order = append(order, text)
		mu.Unlock()
		return []byte(text), nil
	}
	combine := func(ctx context.Context, parts [][]byte) ([]byte, error) {
		var out []byte
		for _, p := range parts {
			out = append(out, p...)
			out = append(out, ' ')
		}
		return out, nil
	}

	e := fastExecutor(newPool(1), fn)
	e.MaxChunkChars = 12
	e.Combine = combine
	results, failures := e.Run(context.Background(), []Job{{Index: 0, Text: "First one. Second one! Third one?"}})
	if len(failures) != 0 || len(results) != 1 {
		t.Fatalf("want combined result, got results=%d failures=%v", len(results), failures)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"First one.", "Second one!", "Third one?"}
	if len(order) != len(want) {
		t.Fatalf("want %d sequential sub-chunk calls, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("sub-chunk %d out of order: want %q, got %q", i, want[i], order[i])
		}
	}
}

func TestObserverSeesRunningAndTerminalStates(t *testing.T) {
	fn := func(ctx context.Context, key, text string) ([]byte, error) {
		return []byte(text), nil
	}

	var mu sync.Mutex
	states := map[State]int{}
	obs := observerFunc(func(index int, state State, attempt int, err error) {
		mu.Lock()
		states[state]++
		mu.Unlock()
	})

	e := fastExecutor(newPool(1), fn)
	e.Observer = obs
	e.Run(context.Background(), jobsN(4))

	mu.Lock()
	defer mu.Unlock()
	if states[StateRunning] != 4 || states[StateSucceeded] != 4 {
		t.Fatalf("observer transitions: %v", states)
	}
}

type observerFunc func(index int, state State, attempt int, err error)

func (f observerFunc) OnJobStateChange(index int, state State, attempt int, err error) {
	f(index, state, attempt, err)
}
