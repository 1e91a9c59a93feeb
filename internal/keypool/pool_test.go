package keypool

import (
	"context"
	"errors"
	"testing"
)

func TestAcquireRotatesOnUsage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore([]string{"sk-a", "sk-b"})

	// deux acquisitions successives doivent répartir l'usage
	first, err := s.AcquireLeastUsed(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	second, err := s.AcquireLeastUsed(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected least-used rotation, got %s twice", first.ID)
	}
}

func TestMarkInvalidExcludesKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore([]string{"sk-a", "sk-b"})

	if err := s.MarkInvalid(ctx, "key-1"); err != nil {
		t.Fatalf("mark invalid: %v", err)
	}
	for i := 0; i < 5; i++ {
		c, err := s.AcquireLeastUsed(ctx)
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if c.ID == "key-1" {
			t.Fatalf("invalidated key reselected on acquire %d", i)
		}
	}
	if got := s.ValidCount(); got != 1 {
		t.Fatalf("valid count: want 1, got %d", got)
	}
}

func TestExhaustedPool(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore([]string{"sk-a"})

	if err := s.MarkInvalid(ctx, "key-1"); err != nil {
		t.Fatalf("mark invalid: %v", err)
	}
	if _, err := s.AcquireLeastUsed(ctx); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestBlankSecretsIgnored(t *testing.T) {
	s := NewMemoryStore([]string{" ", "sk-a", ""})
	if got := s.ValidCount(); got != 1 {
		t.Fatalf("want 1 usable key, got %d", got)
	}
}

func TestMarkInvalidUnknownID(t *testing.T) {
	s := NewMemoryStore([]string{"sk-a"})
	if err := s.MarkInvalid(context.Background(), "key-9"); err == nil {
		t.Fatal("expected error for unknown id")
	}
}
