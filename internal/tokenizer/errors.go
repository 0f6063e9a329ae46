package tokenizer

import "fmt"

// EncodeError reports text that cannot be mapped into the vocabulary.
type EncodeError struct {
	Token string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode: token %q not in vocabulary", e.Token)
}

// DecodeError reports a token id outside the vocabulary range.
type DecodeError struct {
	ID int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: token id %d out of range", e.ID)
}
