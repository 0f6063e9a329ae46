package tokenizer

import "testing"

// fixedTokenizer decodes ids through a fixed table, concatenating raw bytes
// the way byte-level BPE does.
type fixedTokenizer struct {
	table []string
	eos   int
}

func (f fixedTokenizer) Encode(text string) ([]int, error) { return nil, nil }

func (f fixedTokenizer) Decode(ids []int) (string, error) {
	var b []byte
	for _, id := range ids {
		if id < 0 || id >= len(f.table) {
			return "", &DecodeError{ID: id}
		}
		b = append(b, f.table[id]...)
	}
	return string(b), nil
}

func (f fixedTokenizer) EOSID() int { return f.eos }

func TestStreamEmitsOnStableBoundary(t *testing.T) {
	s := NewStream(newTestBPE(t))

	frag, err := s.Push(3) // "hi"
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if frag != "hi" {
		t.Fatalf("expected fragment %q, got %q", "hi", frag)
	}

	frag, err = s.Push(2) // " " held back, not alphanumeric
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if frag != "" {
		t.Fatalf("expected held-back fragment, got %q", frag)
	}

	frag, err = s.Push(3) // flushes " hi"
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if frag != " hi" {
		t.Fatalf("expected fragment %q, got %q", " hi", frag)
	}

	rest, err := s.Rest()
	if err != nil {
		t.Fatalf("rest: %v", err)
	}
	if rest != "" {
		t.Fatalf("expected empty rest, got %q", rest)
	}
}

// TestStreamHoldsSplitCharacter drives a character whose UTF-8 bytes are
// split across two ids and checks no partial bytes leak out.
func TestStreamHoldsSplitCharacter(t *testing.T) {
	tok := fixedTokenizer{table: []string{"\xc3", "\xa9"}} // 0xC3 0xA9 = é
	s := NewStream(tok)

	frag, err := s.Push(0)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if frag != "" {
		t.Fatalf("partial byte leaked: %q", frag)
	}

	frag, err = s.Push(1)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if frag != "é" {
		t.Fatalf("expected %q, got %q", "é", frag)
	}
}

func TestStreamRestFlushesTail(t *testing.T) {
	tok := fixedTokenizer{table: []string{"hi", "!"}}
	s := NewStream(tok)

	if frag, _ := s.Push(0); frag != "hi" {
		t.Fatalf("expected %q, got %q", "hi", frag)
	}
	// "!" never ends on an alphanumeric rune, so only Rest releases it.
	if frag, _ := s.Push(1); frag != "" {
		t.Fatalf("expected hold-back, got %q", frag)
	}
	rest, err := s.Rest()
	if err != nil {
		t.Fatalf("rest: %v", err)
	}
	if rest != "!" {
		t.Fatalf("expected %q, got %q", "!", rest)
	}
}

func TestStreamReset(t *testing.T) {
	tok := fixedTokenizer{table: []string{"a"}}
	s := NewStream(tok)
	if _, err := s.Push(0); err != nil {
		t.Fatalf("push: %v", err)
	}
	s.Reset()
	if len(s.Tokens()) != 0 {
		t.Fatalf("expected empty token history after reset")
	}
}
