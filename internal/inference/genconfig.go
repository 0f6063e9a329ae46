package inference

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
)

// Sampling classifies which sampling strategy a configuration selects.
type Sampling int

const (
	SamplingArgMax Sampling = iota
	SamplingAll
	SamplingTopK
	SamplingTopP
	SamplingTopKThenTopP
)

func (s Sampling) String() string {
	switch s {
	case SamplingArgMax:
		return "argmax"
	case SamplingAll:
		return "all"
	case SamplingTopK:
		return "top_k"
	case SamplingTopP:
		return "top_p"
	case SamplingTopKThenTopP:
		return "top_k_top_p"
	}
	return "unknown"
}

// GenerationConfig mirrors a model's generation_config.json. Absent fields
// stay nil so request resolution can tell "unset" from zero.
type GenerationConfig struct {
	BOSTokenID        *int     `json:"bos_token_id"`
	EOSTokenID        eosIDs   `json:"eos_token_id"`
	PadTokenID        *int     `json:"pad_token_id"`
	DoSample          *bool    `json:"do_sample"`
	Temperature       *float64 `json:"temperature"`
	TopK              *int     `json:"top_k"`
	TopP              *float64 `json:"top_p"`
	RepetitionPenalty *float64 `json:"repetition_penalty"`
	MaxNewTokens      *int     `json:"max_new_tokens"`
}

// eosIDs accepts both the single-number and the array form of
// eos_token_id found in the wild.
type eosIDs []int

func (e *eosIDs) UnmarshalJSON(data []byte) error {
	var one int
	if err := json.Unmarshal(data, &one); err == nil {
		*e = eosIDs{one}
		return nil
	}
	var many []int
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("eos_token_id: %w", err)
	}
	*e = eosIDs(many)
	return nil
}

// LoadGenerationConfig reads a generation_config.json from disk.
func LoadGenerationConfig(path string) (*GenerationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGenerationConfig(data)
}

func ParseGenerationConfig(data []byte) (*GenerationConfig, error) {
	var gc GenerationConfig
	if err := json.Unmarshal(data, &gc); err != nil {
		return nil, fmt.Errorf("generation config: %w", err)
	}
	return &gc, nil
}

// EOSTokenIDs returns the configured end-of-sequence ids, possibly empty.
func (gc *GenerationConfig) EOSTokenIDs() []int {
	if gc == nil {
		return nil
	}
	return []int(gc.EOSTokenID)
}

const minTemperature = 1e-7

// Sampling reports the strategy this configuration selects. do_sample=false
// or a near-zero temperature forces greedy decoding regardless of the
// top-k/top-p fields.
func (gc *GenerationConfig) Sampling() Sampling {
	if gc == nil {
		return SamplingArgMax
	}
	if gc.DoSample != nil && !*gc.DoSample {
		return SamplingArgMax
	}
	if gc.Temperature == nil || *gc.Temperature < minTemperature {
		return SamplingArgMax
	}
	hasK := gc.TopK != nil && *gc.TopK > 0
	hasP := gc.TopP != nil && *gc.TopP > 0 && *gc.TopP < 1
	switch {
	case hasK && hasP:
		return SamplingTopKThenTopP
	case hasK:
		return SamplingTopK
	case hasP:
		return SamplingTopP
	}
	return SamplingAll
}
