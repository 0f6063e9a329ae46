package tokenizer

// Tokenizer converts text to and from ordered token id sequences and exposes
// the end-of-sequence id used to detect generation stops.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	EOSID() int
}

// Padded is implemented by tokenizers that define a padding token.
type Padded interface {
	PadID() int
}
