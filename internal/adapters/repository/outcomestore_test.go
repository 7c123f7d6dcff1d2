package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/talksched/internal/domain/scoring"
	"github.com/okian/talksched/internal/solver"
)

func outcome(start, hard, soft int) solver.Outcome {
	return solver.Outcome{Start: start, Score: scoring.Score{Hard: hard, Soft: soft}}
}

func TestOutcomeStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewOutcomeStore()

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
	if _, err := store.Best(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	won, err := store.Put(ctx, outcome(0, -1, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !won {
		t.Error("expected the first outcome to win")
	}

	won, _ = store.Put(ctx, outcome(1, 0, -5))
	if !won {
		t.Error("expected a feasible outcome to beat an infeasible one")
	}

	won, _ = store.Put(ctx, outcome(2, 0, -7))
	if won {
		t.Error("expected a worse soft score not to win")
	}

	best, err := store.Best(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.Start != 1 {
		t.Errorf("expected start 1 to win, got %d", best.Start)
	}

	entries, err := store.TopN(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last := entries[len(entries)-1]; last.Outcome.Start != 0 || last.Rank != 3 {
		t.Errorf("expected start 0 at rank 3, got %+v", last)
	}
}

func TestOutcomeStore_TieBreaksByStart(t *testing.T) {
	ctx := context.Background()
	store := NewOutcomeStore()

	for _, start := range []int{3, 1, 2} {
		if _, err := store.Put(ctx, outcome(start, 0, -2)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := store.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []int{1, 2, 3} {
		if entries[i].Outcome.Start != want || entries[i].Rank != i+1 {
			t.Errorf("entry %d: expected start %d rank %d, got %+v", i, want, i+1, entries[i])
		}
	}
}

func TestOutcomeStore_ReplaceAndRetain(t *testing.T) {
	ctx := context.Background()
	store := NewOutcomeStore(WithRetain(2))

	_, _ = store.Put(ctx, outcome(0, 0, -3))
	_, _ = store.Put(ctx, outcome(0, 0, -1))
	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected a repeated start to replace, got count %d", count)
	}

	_, _ = store.Put(ctx, outcome(1, 0, -2))
	_, _ = store.Put(ctx, outcome(2, -1, 0))
	if count := store.Count(ctx); count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
	entries, _ := store.TopN(ctx, 10)
	for _, e := range entries {
		if e.Outcome.Start == 2 {
			t.Errorf("expected the worst outcome to be dropped, got %+v", e)
		}
	}
}

func TestOutcomeStore_InvalidLimit(t *testing.T) {
	store := NewOutcomeStore()
	if _, err := store.TopN(context.Background(), 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestOutcomeStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewOutcomeStore()
	if _, err := store.Put(ctx, outcome(0, 0, 0)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if count := store.Count(context.Background()); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
}

func TestOutcomeStore_ConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	store := NewOutcomeStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			if _, err := store.Put(ctx, outcome(start, 0, -(start % 4))); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if count := store.Count(ctx); count != 32 {
		t.Errorf("expected count 32, got %d", count)
	}
	best, _ := store.Best(ctx)
	if best.Start != 0 {
		t.Errorf("expected start 0 to win, got %d", best.Start)
	}
}
