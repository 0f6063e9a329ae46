package decode

import (
	"errors"
	"testing"
)

// scriptModel returns canned logits and can enforce a context window.
type scriptModel struct {
	vocab  int
	window int
	calls  int
}

func (m *scriptModel) Forward(tokens []int, cache *Cache) ([]float32, error) {
	m.calls++
	if m.window > 0 && cache.Len()+len(tokens) > m.window {
		return nil, &ModelError{Reason: "context window exceeded"}
	}
	logits := make([]float32, m.vocab)
	return logits, nil
}

func TestCacheGrowthInvariant(t *testing.T) {
	d := NewDecoder(&scriptModel{vocab: 8})

	prompt := []int{1, 2, 3, 4, 5}
	if _, err := d.Prefill(prompt); err != nil {
		t.Fatalf("prefill: %v", err)
	}
	if d.CacheLen() != len(prompt) {
		t.Fatalf("cache length after prefill: got %d, want %d", d.CacheLen(), len(prompt))
	}

	const steps = 7
	for i := 0; i < steps; i++ {
		if _, err := d.Step(0); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if want := len(prompt) + steps; d.CacheLen() != want {
		t.Fatalf("cache length after %d steps: got %d, want %d", steps, d.CacheLen(), want)
	}
}

func TestPrefillRequiresFreshCache(t *testing.T) {
	d := NewDecoder(&scriptModel{vocab: 4})
	if _, err := d.Prefill([]int{1}); err != nil {
		t.Fatalf("prefill: %v", err)
	}
	_, err := d.Prefill([]int{2})
	var modelErr *ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected ModelError for second prefill, got %v", err)
	}
}

func TestStepBeforePrefill(t *testing.T) {
	d := NewDecoder(&scriptModel{vocab: 4})
	_, err := d.Step(1)
	var modelErr *ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected ModelError, got %v", err)
	}
}

func TestContextWindowOverflowIsModelError(t *testing.T) {
	d := NewDecoder(&scriptModel{vocab: 4, window: 3})
	if _, err := d.Prefill([]int{1, 2, 3}); err != nil {
		t.Fatalf("prefill: %v", err)
	}
	_, err := d.Step(0)
	var modelErr *ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected ModelError on overflow, got %v", err)
	}
	// A failed step must not grow the cache.
	if d.CacheLen() != 3 {
		t.Fatalf("cache grew on failed step: %d", d.CacheLen())
	}
}

func TestDiscardRejectsFurtherUse(t *testing.T) {
	d := NewDecoder(&scriptModel{vocab: 4})
	if _, err := d.Prefill([]int{1}); err != nil {
		t.Fatalf("prefill: %v", err)
	}
	d.Discard()
	if _, err := d.Step(0); !errors.Is(err, ErrCacheDiscarded) {
		t.Fatalf("expected ErrCacheDiscarded, got %v", err)
	}
	if _, err := d.Prefill([]int{1}); !errors.Is(err, ErrCacheDiscarded) {
		t.Fatalf("expected ErrCacheDiscarded, got %v", err)
	}
}

func TestForwardWrapsForeignErrors(t *testing.T) {
	d := NewDecoder(failModel{})
	_, err := d.Prefill([]int{1})
	var modelErr *ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected wrapped ModelError, got %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("underlying cause lost: %v", err)
	}
}

var errBoom = errors.New("boom")

type failModel struct{}

func (failModel) Forward(tokens []int, cache *Cache) ([]float32, error) {
	return nil, errBoom
}
