package tokenizer

import (
	"unicode"
	"unicode/utf8"
)

// Stream incrementally decodes a growing token sequence into text fragments.
//
// Byte-level BPE can split a single character across several ids, so a
// fragment is only released once the decoded tail grows and ends on a
// complete alphanumeric rune. Held-back bytes are flushed by Rest at the end
// of generation. The algorithm follows the text-generation-inference
// detokenizer.
type Stream struct {
	tok          Tokenizer
	tokens       []int
	prevIndex    int
	currentIndex int
}

func NewStream(tok Tokenizer) *Stream {
	return &Stream{tok: tok}
}

// Push appends one token id and returns the newly stable text fragment, or
// "" while the tail is still ambiguous.
func (s *Stream) Push(id int) (string, error) {
	prevText := ""
	if len(s.tokens) > 0 {
		t, err := s.tok.Decode(s.tokens[s.prevIndex:s.currentIndex])
		if err != nil {
			return "", err
		}
		prevText = t
	}
	s.tokens = append(s.tokens, id)
	text, err := s.tok.Decode(s.tokens[s.prevIndex:])
	if err != nil {
		return "", err
	}
	if len(text) > len(prevText) && endsOnStableRune(text) {
		s.prevIndex = s.currentIndex
		s.currentIndex = len(s.tokens)
		return text[len(prevText):], nil
	}
	return "", nil
}

// Rest flushes whatever tail Push has held back.
func (s *Stream) Rest() (string, error) {
	prevText := ""
	if len(s.tokens) > 0 {
		t, err := s.tok.Decode(s.tokens[s.prevIndex:s.currentIndex])
		if err != nil {
			return "", err
		}
		prevText = t
	}
	text, err := s.tok.Decode(s.tokens[s.prevIndex:])
	if err != nil {
		return "", err
	}
	if len(text) > len(prevText) {
		return text[len(prevText):], nil
	}
	return "", nil
}

// Tokens returns the ids pushed so far. The slice is owned by the stream.
func (s *Stream) Tokens() []int { return s.tokens }

// Text decodes everything pushed so far.
func (s *Stream) Text() (string, error) {
	return s.tok.Decode(s.tokens)
}

func (s *Stream) Reset() {
	s.tokens = s.tokens[:0]
	s.prevIndex = 0
	s.currentIndex = 0
}

func endsOnStableRune(text string) bool {
	r, size := utf8.DecodeLastRuneInString(text)
	if r == utf8.RuneError && size <= 1 {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
