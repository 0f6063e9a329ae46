// Package decode drives incremental next-token inference against a
// model-execution backend and owns the per-session cache bookkeeping.
package decode

import (
	"errors"
	"fmt"
)

// Model is the model-execution collaborator. Forward consumes the newest
// tokens together with the session cache and returns next-token logits for
// the final position. Implementations keep whatever per-layer state they
// need inside the cache via State/SetState; they must not retain it
// elsewhere, so independent sessions never share decode state.
//
// Implementations are not required to be safe for concurrent use; callers
// that share one Model across sessions serialise access themselves.
type Model interface {
	Forward(tokens []int, cache *Cache) ([]float32, error)
}

// Cache is the per-session decode state: a position counter plus the
// model's opaque per-layer buffers. Exactly one session owns a cache, it
// only ever grows, and it is discarded rather than reused once the session
// ends.
type Cache struct {
	n     int
	state any
}

func NewCache() *Cache { return &Cache{} }

// Len is the number of positions the model has seen through this cache.
func (c *Cache) Len() int { return c.n }

// State returns the model-owned portion of the cache.
func (c *Cache) State() any { return c.state }

// SetState stores the model-owned portion of the cache.
func (c *Cache) SetState(s any) { c.state = s }

// ModelError reports an execution step the backend rejected, such as a
// sequence exceeding the model's context window. It is fatal for the
// session; steps are never retried.
type ModelError struct {
	Reason string
	Err    error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model: %s: %v", e.Reason, e.Err)
	}
	return "model: " + e.Reason
}

func (e *ModelError) Unwrap() error { return e.Err }

// ErrCacheDiscarded is returned when a decoder is used after Discard.
var ErrCacheDiscarded = errors.New("decode: cache discarded")

// Decoder owns the two-phase decode state machine: one prefill over the
// whole prompt, then one-token steps. It enforces that the cache grows by
// exactly the number of tokens submitted in each call.
type Decoder struct {
	model     Model
	cache     *Cache
	prefilled bool
	discarded bool
}

func NewDecoder(m Model) *Decoder {
	return &Decoder{model: m, cache: NewCache()}
}

// Prefill submits the full prompt against the fresh cache and returns the
// logits for the final prompt position.
func (d *Decoder) Prefill(ids []int) ([]float32, error) {
	if d.discarded {
		return nil, ErrCacheDiscarded
	}
	if d.prefilled {
		return nil, &ModelError{Reason: "prefill on a used cache"}
	}
	if len(ids) == 0 {
		return nil, &ModelError{Reason: "empty prompt"}
	}
	logits, err := d.forward(ids)
	if err != nil {
		return nil, err
	}
	d.prefilled = true
	return logits, nil
}

// Step submits exactly one new token and returns the logits for the next
// position. The cache grows by one.
func (d *Decoder) Step(id int) ([]float32, error) {
	if d.discarded {
		return nil, ErrCacheDiscarded
	}
	if !d.prefilled {
		return nil, &ModelError{Reason: "step before prefill"}
	}
	return d.forward([]int{id})
}

// CacheLen reports how many positions the model has seen in this session.
func (d *Decoder) CacheLen() int {
	if d.cache == nil {
		return 0
	}
	return d.cache.Len()
}

// Discard drops the cache. Any further use of the decoder is rejected; a
// new session needs a new decoder.
func (d *Decoder) Discard() {
	d.discarded = true
	d.cache = nil
}

func (d *Decoder) forward(tokens []int) ([]float32, error) {
	before := d.cache.Len()
	logits, err := d.model.Forward(tokens, d.cache)
	if err != nil {
		var modelErr *ModelError
		if errors.As(err, &modelErr) {
			return nil, err
		}
		return nil, &ModelError{Reason: "forward failed", Err: err}
	}
	d.cache.n = before + len(tokens)
	return logits, nil
}
