package inference

import (
	"strings"

	"github.com/kigichang/mospeada/internal/tokenizer"
)

// BuildStopTokens collects the end-of-sequence token ids for a model: the
// generation config's ids when present, otherwise the tokenizer's. The
// result is deduplicated and never contains negative ids.
func BuildStopTokens(gc *GenerationConfig, tok tokenizer.Tokenizer) []int {
	ids := gc.EOSTokenIDs()
	if len(ids) == 0 {
		if id := tok.EOSID(); id >= 0 {
			ids = []int{id}
		}
	}
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id < 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func isStopToken(stop []int, id int) bool {
	for _, s := range stop {
		if s == id {
			return true
		}
	}
	return false
}

// hasStopSuffix reports whether text ends with any of the stop strings and
// returns the matched string.
func hasStopSuffix(text string, stops []string) (string, bool) {
	for _, s := range stops {
		if s != "" && strings.HasSuffix(text, s) {
			return s, true
		}
	}
	return "", false
}
