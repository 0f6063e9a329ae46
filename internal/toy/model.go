// Package toy provides a tiny deterministic language model for exercising
// the generation loop without real weights. It backs tests, benchmarks, and
// the demo backend of the CLI.
package toy

import (
	"math/rand"

	"github.com/kigichang/mospeada/internal/decode"
)

// LM combines an embedding matrix with a projection back to vocab logits.
// The hidden state accumulated across steps lives in the session cache, so
// concurrent sessions over one LM never observe each other.
type LM struct {
	vocab  int
	hidden int
	window int

	emb  [][]float32 // [vocab][hidden]
	w    [][]float32 // [hidden][vocab]
	bias []float32   // [vocab]
}

// decayed running sum of embeddings seen so far
type hiddenState []float32

// New constructs a model with the given vocabulary and hidden size. The
// weights derive deterministically from the seed. window limits the context
// length; 0 means unlimited.
func New(vocab, hidden int, seed int64, window int) *LM {
	rng := rand.New(rand.NewSource(seed))
	fill := func(rows, cols int) [][]float32 {
		m := make([][]float32, rows)
		for i := range m {
			row := make([]float32, cols)
			for j := range row {
				row[j] = rng.Float32()*2 - 1
			}
			m[i] = row
		}
		return m
	}
	return &LM{
		vocab:  vocab,
		hidden: hidden,
		window: window,
		emb:    fill(vocab, hidden),
		w:      fill(hidden, vocab),
		bias:   make([]float32, vocab),
	}
}

func (m *LM) VocabSize() int { return m.vocab }

// Forward folds each token embedding into the cached hidden state and
// projects it to logits. Token ids are reduced modulo the vocabulary so any
// tokenizer can drive the model.
func (m *LM) Forward(tokens []int, cache *decode.Cache) ([]float32, error) {
	if m.window > 0 && cache.Len()+len(tokens) > m.window {
		return nil, &decode.ModelError{Reason: "sequence exceeds context window"}
	}

	h, ok := cache.State().(hiddenState)
	if !ok {
		h = make(hiddenState, m.hidden)
		cache.SetState(h)
	}

	for _, tok := range tokens {
		tok %= m.vocab
		if tok < 0 {
			tok += m.vocab
		}
		row := m.emb[tok]
		for i := range h {
			h[i] = h[i]*0.9 + row[i]
		}
	}

	logits := make([]float32, m.vocab)
	copy(logits, m.bias)
	for i := 0; i < m.hidden; i++ {
		hi := h[i]
		row := m.w[i]
		for j := 0; j < m.vocab; j++ {
			logits[j] += hi * row[j]
		}
	}
	return logits, nil
}
