package tokenizer

import (
	"sort"
	"strings"
)

// Pair is an adjacent token pair considered for a BPE merge.
type Pair struct {
	A string
	B string
}

// textPart is a slice of input text, either a literal special token or a
// run of ordinary text between specials.
type textPart struct {
	text      string
	isSpecial bool
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// getPairs returns the set of adjacent pairs in word.
func getPairs(word []string) map[Pair]struct{} {
	pairs := make(map[Pair]struct{}, len(word))
	for i := 1; i < len(word); i++ {
		pairs[Pair{A: word[i-1], B: word[i]}] = struct{}{}
	}
	return pairs
}

// mergePair rewrites word with every occurrence of pair joined into one
// symbol.
func mergePair(word []string, pair Pair) []string {
	out := make([]string, 0, len(word))
	for i := 0; i < len(word); i++ {
		if i+1 < len(word) && word[i] == pair.A && word[i+1] == pair.B {
			out = append(out, word[i]+word[i+1])
			i++
		} else {
			out = append(out, word[i])
		}
	}
	return out
}

// collectSpecials filters the special tokens out of the vocabulary,
// longest first so splitSpecials always takes the longest match.
func collectSpecials(tokens []string) []string {
	out := make([]string, 0, 32)
	for _, t := range tokens {
		if isSpecialToken(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func isSpecialToken(s string) bool {
	return len(s) >= 4 && strings.HasPrefix(s, "<|") && strings.HasSuffix(s, "|>")
}

// splitSpecials cuts text into literal special tokens and the plain runs
// between them, preserving order.
func splitSpecials(text string, specials []string) []textPart {
	if len(specials) == 0 || !strings.Contains(text, "<|") {
		return []textPart{{text: text}}
	}
	var parts []textPart
	var plain strings.Builder
	flush := func() {
		if plain.Len() > 0 {
			parts = append(parts, textPart{text: plain.String()})
			plain.Reset()
		}
	}
	for i := 0; i < len(text); {
		matched := false
		for _, sp := range specials {
			if sp != "" && strings.HasPrefix(text[i:], sp) {
				flush()
				parts = append(parts, textPart{text: sp, isSpecial: true})
				i += len(sp)
				matched = true
				break
			}
		}
		if !matched {
			plain.WriteByte(text[i])
			i++
		}
	}
	flush()
	return parts
}

// bytesToUnicode maps bytes to printable unicode strings so byte-level BPE
// stays reversible. Printable latin bytes map to themselves; the rest are
// relocated to the code points starting at U+0100, in byte order.
func bytesToUnicode() (map[byte]string, map[string]byte) {
	byteEncoder := make(map[byte]string, 256)
	byteDecoder := make(map[string]byte, 256)

	printable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= '¡' && b <= '¬') || (b >= '®' && b <= 'ÿ')
	}

	next := 256
	for b := 0; b < 256; b++ {
		r := rune(b)
		if !printable(b) {
			r = rune(next)
			next++
		}
		s := string(r)
		byteEncoder[byte(b)] = s
		byteDecoder[s] = byte(b)
	}
	return byteEncoder, byteDecoder
}
