package logits

import (
	"math"
	"math/rand"
	"sort"
)

// Config configures the behaviour of a Sampler.
//
// Temperature == 0 selects greedy decoding. TopK <= 0 and TopP outside (0,1)
// disable the respective filters. RepetitionPenalty <= 1 disables the
// penalty. RepeatLastN <= 0 penalises over the entire history.
type Config struct {
	Seed              int64
	Temperature       float32
	TopK              int
	TopP              float32
	RepetitionPenalty float32
	RepeatLastN       int
}

type Sampler struct {
	rng    *rand.Rand
	cfg    Config
	greedy bool

	topIdx    []int
	topVal    []float32
	prob      []float64
	seenMark  []uint32
	seenEpoch uint32
	seenList  []int
}

// NewSampler returns a new sampler with the provided configuration.
func NewSampler(cfg Config) *Sampler {
	greedy := cfg.Temperature <= 0
	if greedy {
		cfg.Temperature = 1
	}
	if cfg.TopP <= 0 || cfg.TopP >= 1 {
		cfg.TopP = 1
	}
	if cfg.RepetitionPenalty <= 0 {
		cfg.RepetitionPenalty = 1
	}
	return &Sampler{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		cfg:    cfg,
		greedy: greedy,
	}
}

// Greedy reports whether the sampler always picks the argmax.
func (s *Sampler) Greedy() bool { return s.greedy }

// Sample draws a single index from the provided logits vector. The logits
// are modified in place. The steps run in a fixed order so the same seed and
// the same sequence of calls reproduce the same choices:
//
//  1. Scale the logits of history tokens by the repetition penalty, once per
//     distinct token id regardless of how often it occurs.
//  2. Greedy mode (temperature zero) returns the argmax of the penalised
//     logits directly.
//  3. Scale all logits by the inverse temperature.
//  4. If TopK is set, shortlist the k highest logits.
//  5. Softmax over the shortlist, then if TopP is set keep the smallest
//     descending prefix whose cumulative probability reaches TopP.
//  6. Draw from the resulting categorical distribution.
//
// If filtering leaves no usable candidate (numerical underflow), the argmax
// of the penalised logits is returned instead of an error.
func (s *Sampler) Sample(logits []float32, history []int) int {
	s.applyRepetitionPenalty(logits, history)

	if s.greedy {
		return argmax(logits)
	}

	invTemp := float32(1.0) / s.cfg.Temperature

	var topIdx []int
	var topVal []float32
	if s.cfg.TopK > 0 {
		topIdx, topVal = s.topK(logits, min(s.cfg.TopK, len(logits)), invTemp)
	} else {
		topIdx, topVal = s.scaleAll(logits, invTemp)
		if s.cfg.TopP < 1 {
			sort.Sort(&byValDesc{idx: topIdx, val: topVal})
		}
	}
	if len(topVal) == 0 {
		return argmax(logits)
	}

	maxv := topVal[0]
	for i := 1; i < len(topVal); i++ {
		if topVal[i] > maxv {
			maxv = topVal[i]
		}
	}

	if cap(s.prob) < len(topVal) {
		s.prob = make([]float64, len(topVal))
	}
	prob := s.prob[:len(topVal)]
	var sum float64
	for i := range topVal {
		e := math.Exp(float64(topVal[i] - maxv))
		prob[i] = e
		sum += e
	}
	if sum == 0 {
		return argmax(logits)
	}
	invSum := 1.0 / sum
	for i := range prob {
		prob[i] *= invSum
	}

	// The shortlist is sorted descending whenever TopP is active, so the
	// smallest covering prefix is a contiguous cut.
	cut := len(prob)
	var kept float64
	if s.cfg.TopP < 1 {
		var c float64
		for i := range prob {
			c += prob[i]
			if float32(c) >= s.cfg.TopP {
				cut = i + 1
				break
			}
		}
		kept = c
		if cut < len(prob) {
			kept = 0
			for i := 0; i < cut; i++ {
				kept += prob[i]
			}
		}
	} else {
		kept = 1
	}

	r := s.rng.Float64() * kept
	var c float64
	for i := 0; i < cut; i++ {
		c += prob[i]
		if r <= c {
			return topIdx[i]
		}
	}
	return topIdx[cut-1]
}

// applyRepetitionPenalty divides positive logits and multiplies negative
// logits of history tokens by the penalty, keeping the scaling
// sign-consistent for both signs. Each distinct id is penalised exactly once
// per call.
func (s *Sampler) applyRepetitionPenalty(logits []float32, history []int) {
	if s.cfg.RepetitionPenalty <= 1 || len(history) == 0 {
		return
	}
	window := history
	if s.cfg.RepeatLastN > 0 && len(history) > s.cfg.RepeatLastN {
		window = history[len(history)-s.cfg.RepeatLastN:]
	}

	if len(s.seenMark) < len(logits) {
		s.seenMark = make([]uint32, len(logits))
	}
	s.seenEpoch++
	if s.seenEpoch == 0 {
		for i := range s.seenMark {
			s.seenMark[i] = 0
		}
		s.seenEpoch = 1
	}
	s.seenList = s.seenList[:0]

	for _, id := range window {
		if id >= 0 && id < len(logits) && s.seenMark[id] != s.seenEpoch {
			s.seenMark[id] = s.seenEpoch
			s.seenList = append(s.seenList, id)
		}
	}

	for _, id := range s.seenList {
		if logits[id] > 0 {
			logits[id] /= s.cfg.RepetitionPenalty
		} else {
			logits[id] *= s.cfg.RepetitionPenalty
		}
	}
}

// argmax returns the index of the maximum value in the slice. If the slice is empty it panics.
func argmax(x []float32) int {
	if len(x) == 0 {
		panic("argmax: empty slice")
	}
	bestI := 0
	bestV := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > bestV {
			bestV = x[i]
			bestI = i
		}
	}
	return bestI
}

// topK returns the indices and values of the k largest elements in logits,
// scaled by invTemp, ordered from largest to smallest.
// This is an O(V*K) algorithm suitable for small K.
func (s *Sampler) topK(logits []float32, k int, invTemp float32) ([]int, []float32) {
	if cap(s.topIdx) < k+1 {
		s.topIdx = make([]int, 0, k+1)
		s.topVal = make([]float32, 0, k+1)
	}
	topIdx := s.topIdx[:0]
	topVal := s.topVal[:0]

	for i, l := range logits {
		v := l * invTemp

		pos := len(topVal)
		for pos > 0 && topVal[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}

		topIdx = append(topIdx, 0)
		topVal = append(topVal, 0)

		copy(topIdx[pos+1:], topIdx[pos:])
		copy(topVal[pos+1:], topVal[pos:])
		topIdx[pos] = i
		topVal[pos] = v

		if len(topVal) > k {
			topIdx = topIdx[:k]
			topVal = topVal[:k]
		}
	}
	s.topIdx = topIdx
	s.topVal = topVal
	return topIdx, topVal
}

// scaleAll returns every index with its temperature-scaled logit, unsorted.
func (s *Sampler) scaleAll(logits []float32, invTemp float32) ([]int, []float32) {
	if cap(s.topIdx) < len(logits) {
		s.topIdx = make([]int, len(logits))
		s.topVal = make([]float32, len(logits))
	}
	topIdx := s.topIdx[:len(logits)]
	topVal := s.topVal[:len(logits)]
	for i, l := range logits {
		topIdx[i] = i
		topVal[i] = l * invTemp
	}
	s.topIdx = topIdx
	s.topVal = topVal
	return topIdx, topVal
}

type byValDesc struct {
	idx []int
	val []float32
}

func (b *byValDesc) Len() int           { return len(b.idx) }
func (b *byValDesc) Less(i, j int) bool { return b.val[i] > b.val[j] }
func (b *byValDesc) Swap(i, j int) {
	b.idx[i], b.idx[j] = b.idx[j], b.idx[i]
	b.val[i], b.val[j] = b.val[j], b.val[i]
}
