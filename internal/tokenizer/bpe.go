package tokenizer

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"
)

// BPE is a byte-level BPE tokenizer loaded from a Hugging Face
// tokenizer.json, optionally refined by tokenizer_config.json.
//
// Decode concatenates the raw bytes behind each id, so a character split
// across several ids only becomes valid text once all of its ids are decoded
// together. Stream provides the fragment-safe incremental form.
type BPE struct {
	encoder      map[string]int
	decoder      []string
	bpeRanks     map[Pair]int
	cache        map[string][]string
	byteEncoder  map[byte]string
	byteDecoder  map[string]byte
	pattern      *regexp.Regexp
	addBOS       bool
	addEOS       bool
	bosID        int
	eosID        int
	padID        int
	unkID        int
	ignoreMerges bool
	special      []string
	chatTemplate string
}

type bpeJSON struct {
	Model struct {
		Type         string         `json:"type"`
		Vocab        map[string]int `json:"vocab"`
		Merges       []any          `json:"merges"`
		IgnoreMerges bool           `json:"ignore_merges"`
		UnkToken     string         `json:"unk_token"`
	} `json:"model"`
	PreTokenizer  preTokenizerJSON `json:"pre_tokenizer"`
	PostProcessor struct {
		Type       string `json:"type"`
		Processors []struct {
			Type          string `json:"type"`
			SpecialTokens map[string]struct {
				IDs []int `json:"ids"`
			} `json:"special_tokens"`
		} `json:"processors"`
	} `json:"post_processor"`
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

type preTokenizerJSON struct {
	Type          string `json:"type"`
	Pretokenizers []struct {
		Type    string `json:"type"`
		Pattern struct {
			Regex string `json:"Regex"`
		} `json:"pattern"`
	} `json:"pretokenizers"`
}

type bpeConfigJSON struct {
	AddBOS       bool   `json:"add_bos_token"`
	AddEOS       bool   `json:"add_eos_token"`
	BOS          string `json:"bos_token"`
	EOS          string `json:"eos_token"`
	Pad          string `json:"pad_token"`
	ChatTemplate string `json:"chat_template"`
}

// LoadBPE reads tokenizer.json and an optional tokenizer_config.json from
// disk. A missing or unreadable config file is ignored.
func LoadBPE(tokJSON, tokConfig string) (*BPE, error) {
	data, err := os.ReadFile(tokJSON)
	if err != nil {
		return nil, err
	}
	var cfg []byte
	if tokConfig != "" {
		if raw, err := os.ReadFile(tokConfig); err == nil {
			cfg = raw
		}
	}
	return LoadBPEBytes(data, cfg)
}

// LoadBPEBytes builds a tokenizer from raw tokenizer.json and
// tokenizer_config.json contents.
func LoadBPEBytes(tokJSON, tokConfig []byte) (*BPE, error) {
	var tj bpeJSON
	if err := json.Unmarshal(tokJSON, &tj); err != nil {
		return nil, fmt.Errorf("parse tokenizer.json: %w", err)
	}
	if strings.ToUpper(tj.Model.Type) != "BPE" {
		return nil, fmt.Errorf("unsupported tokenizer model: %s", tj.Model.Type)
	}

	encoder := make(map[string]int, len(tj.Model.Vocab))
	maxID := -1
	for tok, id := range tj.Model.Vocab {
		encoder[tok] = id
		if id > maxID {
			maxID = id
		}
	}
	for _, at := range tj.AddedTokens {
		if at.ID > maxID {
			maxID = at.ID
		}
	}
	decoder := make([]string, maxID+1)
	for tok, id := range tj.Model.Vocab {
		decoder[id] = tok
	}
	for _, at := range tj.AddedTokens {
		decoder[at.ID] = at.Content
		encoder[at.Content] = at.ID
	}

	bpeRanks := make(map[Pair]int, len(tj.Model.Merges))
	rank := 0
	for _, raw := range tj.Model.Merges {
		line := ""
		switch v := raw.(type) {
		case string:
			line = v
		case []any:
			if len(v) == 2 {
				a, aok := v[0].(string)
				b, bok := v[1].(string)
				if aok && bok {
					line = a + " " + b
				}
			}
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, " ")
		if len(parts) != 2 {
			continue
		}
		p := Pair{A: parts[0], B: parts[1]}
		if _, ok := bpeRanks[p]; !ok {
			bpeRanks[p] = rank
			rank++
		}
	}

	byteEncoder, byteDecoder := bytesToUnicode()

	var cfg bpeConfigJSON
	if len(tokConfig) > 0 {
		_ = json.Unmarshal(tokConfig, &cfg)
	}

	addBOS := cfg.AddBOS
	bosID := -1
	eosID := -1
	padID := -1
	if cfg.BOS != "" {
		if id, ok := encoder[cfg.BOS]; ok {
			bosID = id
		}
	}
	if cfg.EOS != "" {
		if id, ok := encoder[cfg.EOS]; ok {
			eosID = id
		}
	}
	if cfg.Pad != "" {
		if id, ok := encoder[cfg.Pad]; ok {
			padID = id
		}
	}
	// A TemplateProcessing post-processor overrides the BOS behaviour.
	for _, proc := range tj.PostProcessor.Processors {
		if proc.Type == "TemplateProcessing" {
			for _, spec := range proc.SpecialTokens {
				if len(spec.IDs) > 0 {
					bosID = spec.IDs[0]
					addBOS = true
					break
				}
			}
		}
	}

	unkID := -1
	if tj.Model.UnkToken != "" {
		if id, ok := encoder[tj.Model.UnkToken]; ok {
			unkID = id
		}
	}

	return &BPE{
		encoder:      encoder,
		decoder:      decoder,
		bpeRanks:     bpeRanks,
		cache:        make(map[string][]string),
		byteEncoder:  byteEncoder,
		byteDecoder:  byteDecoder,
		pattern:      buildPretokenPattern(tj.PreTokenizer),
		addBOS:       addBOS,
		addEOS:       cfg.AddEOS,
		bosID:        bosID,
		eosID:        eosID,
		padID:        padID,
		unkID:        unkID,
		ignoreMerges: tj.Model.IgnoreMerges,
		special:      collectSpecials(decoder),
		chatTemplate: cfg.ChatTemplate,
	}, nil
}

func (t *BPE) Encode(text string) ([]int, error) {
	var ids []int
	if t.addBOS && t.bosID >= 0 {
		ids = append(ids, t.bosID)
	}
	parts := splitSpecials(text, t.special)
	for _, part := range parts {
		if part.isSpecial {
			id, ok := t.encoder[part.text]
			if !ok {
				return nil, &EncodeError{Token: part.text}
			}
			ids = append(ids, id)
			continue
		}
		for _, token := range t.pattern.FindAllString(part.text, -1) {
			encoded := t.byteEncode(token)
			for _, bpeTok := range t.bpe(encoded) {
				id, ok := t.encoder[bpeTok]
				if !ok {
					if t.unkID >= 0 {
						ids = append(ids, t.unkID)
						continue
					}
					return nil, &EncodeError{Token: bpeTok}
				}
				ids = append(ids, id)
			}
		}
	}
	if t.addEOS && t.eosID >= 0 {
		ids = append(ids, t.eosID)
	}
	return ids, nil
}

func (t *BPE) Decode(ids []int) (string, error) {
	var b []byte
	for _, id := range ids {
		if id < 0 || id >= len(t.decoder) {
			return "", &DecodeError{ID: id}
		}
		token := t.decoder[id]
		if isSpecialToken(token) {
			b = append(b, token...)
			continue
		}
		for _, r := range token {
			if by, ok := t.byteDecoder[string(r)]; ok {
				b = append(b, by)
			} else {
				b = append(b, string(r)...)
			}
		}
	}
	return string(b), nil
}

func (t *BPE) BOSID() int { return t.bosID }
func (t *BPE) EOSID() int { return t.eosID }
func (t *BPE) PadID() int { return t.padID }

func (t *BPE) AddBOS() bool { return t.addBOS }

// VocabSize returns the number of token ids, including added tokens.
func (t *BPE) VocabSize() int { return len(t.decoder) }

// ChatTemplate returns the raw chat_template string from
// tokenizer_config.json, or "" when absent.
func (t *BPE) ChatTemplate() string { return t.chatTemplate }

// TokenString returns the vocabulary string for an id, or "" out of range.
func (t *BPE) TokenString(id int) string {
	if id < 0 || id >= len(t.decoder) {
		return ""
	}
	return t.decoder[id]
}

func (t *BPE) byteEncode(s string) string {
	var b strings.Builder
	for _, by := range []byte(s) {
		b.WriteString(t.byteEncoder[by])
	}
	return b.String()
}

func (t *BPE) bpe(token string) []string {
	if v, ok := t.cache[token]; ok {
		return v
	}
	if t.ignoreMerges {
		if _, ok := t.encoder[token]; ok {
			out := []string{token}
			t.cache[token] = out
			return out
		}
	}
	word := splitRunes(token)
	pairs := getPairs(word)
	for len(pairs) > 0 {
		bestRank := int(^uint(0) >> 1)
		bestPair := Pair{}
		found := false
		for p := range pairs {
			if rank, ok := t.bpeRanks[p]; ok && rank < bestRank {
				bestRank = rank
				bestPair = p
				found = true
			}
		}
		if !found {
			break
		}
		word = mergePair(word, bestPair)
		if len(word) == 1 {
			break
		}
		pairs = getPairs(word)
	}
	t.cache[token] = word
	return word
}

// gpt2SplitPattern is the classic GPT-2 pre-tokenizer split, also the
// fallback when a model ships a Perl regex Go cannot compile.
const gpt2SplitPattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+`

func buildPretokenPattern(pre preTokenizerJSON) *regexp.Regexp {
	pat := gpt2SplitPattern
	if pre.Type == "Sequence" {
		for _, p := range pre.Pretokenizers {
			if p.Type == "Split" && p.Pattern.Regex != "" {
				pat = p.Pattern.Regex
				break
			}
		}
	}
	// Llama3-style regexes use lookahead not supported by Go. Replace with
	// the llama.cpp variant.
	if strings.Contains(pat, "(?!\\S)") || strings.Contains(pat, "(?i:") {
		pat = `(?:'[sS]|'[tT]|'[rR][eE]|'[vV][eE]|'[mM]|'[lL][lL]|'[dD])|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+`
	}
	// Other Perl-only constructs (lookarounds Go's RE2 rejects) fall back
	// to the GPT-2 split rather than failing the load.
	re, err := regexp.Compile(pat)
	if err != nil {
		return regexp.MustCompile(gpt2SplitPattern)
	}
	return re
}
