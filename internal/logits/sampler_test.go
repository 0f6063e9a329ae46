package logits

import (
	"math"
	"testing"
)

// TestSamplerDeterminism ensures that two samplers configured identically
// produce identical results when sampling the same logits vector.
func TestSamplerDeterminism(t *testing.T) {
	s1 := NewSampler(Config{Seed: 42, Temperature: 0.9, TopK: 4, TopP: 0.95})
	s2 := NewSampler(Config{Seed: 42, Temperature: 0.9, TopK: 4, TopP: 0.95})
	for i := 0; i < 20; i++ {
		logsA := []float32{0, 1, 2, 3, 4, 5}
		logsB := []float32{0, 1, 2, 3, 4, 5}
		a := s1.Sample(logsA, nil)
		b := s2.Sample(logsB, nil)
		if a != b {
			t.Fatalf("call %d: expected deterministic sample, got %d vs %d", i, a, b)
		}
	}
}

// TestSamplerGreedyTemperatureZero tests that temperature zero picks the
// argmax regardless of seed.
func TestSamplerGreedyTemperatureZero(t *testing.T) {
	for _, seed := range []int64{0, 7, 99, 12345} {
		logs := []float32{-1, 5, 3, 7, 2}
		s := NewSampler(Config{Seed: seed, Temperature: 0})
		idx := s.Sample(logs, nil)
		if idx != 3 {
			t.Fatalf("seed %d: expected greedy index 3, got %d", seed, idx)
		}
	}
}

// TestSamplerGreedyAppliesPenalty verifies greedy decoding still honours the
// repetition penalty: the dominant logit belongs to a history token and is
// scaled below the runner-up.
func TestSamplerGreedyAppliesPenalty(t *testing.T) {
	logs := []float32{1, 10, 9, 0}
	s := NewSampler(Config{Seed: 1, Temperature: 0, RepetitionPenalty: 2.0})
	idx := s.Sample(logs, []int{1})
	if idx != 2 {
		t.Fatalf("expected penalised argmax 2, got %d", idx)
	}
}

// TestSamplerTopP ensures that setting TopP less than 1 restricts sampling to
// the smallest covering prefix. The first candidate alone covers the
// threshold, so only index 0 may ever be returned.
func TestSamplerTopP(t *testing.T) {
	s := NewSampler(Config{Seed: 7, Temperature: 1.0, TopK: 5, TopP: 0.5})
	for i := 0; i < 25; i++ {
		logs := []float32{10, 0, 0, 0, 0}
		idx := s.Sample(logs, nil)
		if idx != 0 {
			t.Fatalf("top-p sampling returned unexpected index %d", idx)
		}
	}
}

// TestSamplerTopPWithoutTopK exercises the sort-based path used when no
// top-k shortlist is configured.
func TestSamplerTopPWithoutTopK(t *testing.T) {
	s := NewSampler(Config{Seed: 3, Temperature: 1.0, TopP: 0.6})
	for i := 0; i < 25; i++ {
		logs := []float32{0, 0, 12, 0}
		idx := s.Sample(logs, nil)
		if idx != 2 {
			t.Fatalf("expected dominant index 2, got %d", idx)
		}
	}
}

// TestTopPMinimalCoveringPrefix checks the cut boundary directly: the
// retained prefix must reach the threshold and the previous prefix must not.
func TestTopPMinimalCoveringPrefix(t *testing.T) {
	logits := []float32{2.0, 1.5, 1.0, 0.5, 0.0}
	probs := softmax64(logits)

	topP := float32(0.7)
	cut := 0
	var c float64
	for i, p := range probs {
		c += p
		if float32(c) >= topP {
			cut = i + 1
			break
		}
	}
	if cut == 0 {
		t.Fatal("threshold never reached")
	}
	var covered float64
	for i := 0; i < cut; i++ {
		covered += probs[i]
	}
	if float32(covered) < topP {
		t.Fatalf("prefix of %d covers %.4f, below top-p %.2f", cut, covered, topP)
	}
	if float32(covered-probs[cut-1]) >= topP {
		t.Fatalf("prefix is not minimal: dropping last candidate still covers %.2f", topP)
	}

	// Every sampled index must come from the covering prefix.
	s := NewSampler(Config{Seed: 11, Temperature: 1.0, TopK: 5, TopP: topP})
	for i := 0; i < 50; i++ {
		scratch := append([]float32(nil), logits...)
		idx := s.Sample(scratch, nil)
		if idx >= cut {
			t.Fatalf("sampled index %d outside covering prefix of %d", idx, cut)
		}
	}
}

// TestRepetitionPenaltyOncePerDistinct verifies the penalty divides the
// logit of a repeated history token exactly once, not once per occurrence.
func TestRepetitionPenaltyOncePerDistinct(t *testing.T) {
	s := NewSampler(Config{Seed: 0, Temperature: 1, RepetitionPenalty: 1.2})
	logits := []float32{0, 0, 0, 6, 0}
	s.applyRepetitionPenalty(logits, []int{3, 3, 3})
	want := float32(6) / 1.2
	if math.Abs(float64(logits[3]-want)) > 1e-6 {
		t.Fatalf("expected logit 3 to be %f, got %f", want, logits[3])
	}
}

// TestRepetitionPenaltyNegativeLogit checks sign-consistent scaling:
// negative logits are multiplied so the token stays penalised.
func TestRepetitionPenaltyNegativeLogit(t *testing.T) {
	s := NewSampler(Config{Seed: 0, Temperature: 1, RepetitionPenalty: 1.5})
	logits := []float32{-2, 0}
	s.applyRepetitionPenalty(logits, []int{0})
	if logits[0] != -3 {
		t.Fatalf("expected -3, got %f", logits[0])
	}
}

// TestRepetitionPenaltyWindow ensures RepeatLastN limits the penalised
// window to the most recent history tokens.
func TestRepetitionPenaltyWindow(t *testing.T) {
	s := NewSampler(Config{Seed: 0, Temperature: 1, RepetitionPenalty: 2, RepeatLastN: 2})
	logits := []float32{4, 4, 4}
	s.applyRepetitionPenalty(logits, []int{0, 1, 2})
	if logits[0] != 4 {
		t.Fatalf("token outside window was penalised: %f", logits[0])
	}
	if logits[1] != 2 || logits[2] != 2 {
		t.Fatalf("window tokens not penalised: %v", logits)
	}
}

func softmax64(logits []float32) []float64 {
	maxv := logits[0]
	for _, v := range logits[1:] {
		if v > maxv {
			maxv = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(float64(v - maxv))
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
