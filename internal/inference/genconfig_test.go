package inference

import (
	"reflect"
	"testing"
)

func TestParseGenerationConfigSingleEOS(t *testing.T) {
	gc, err := ParseGenerationConfig([]byte(`{
		"bos_token_id": 151643,
		"eos_token_id": 151645,
		"do_sample": true,
		"temperature": 0.7,
		"top_k": 20,
		"top_p": 0.8,
		"repetition_penalty": 1.1
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gc.EOSTokenIDs(), []int{151645}) {
		t.Fatalf("eos ids = %v", gc.EOSTokenIDs())
	}
	if gc.Temperature == nil || *gc.Temperature != 0.7 {
		t.Fatalf("temperature = %v", gc.Temperature)
	}
}

func TestParseGenerationConfigMultiEOS(t *testing.T) {
	gc, err := ParseGenerationConfig([]byte(`{"eos_token_id": [151645, 151643]}`))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gc.EOSTokenIDs(), []int{151645, 151643}) {
		t.Fatalf("eos ids = %v", gc.EOSTokenIDs())
	}
}

func TestParseGenerationConfigAbsentFields(t *testing.T) {
	gc, err := ParseGenerationConfig([]byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if gc.Temperature != nil || gc.TopK != nil || gc.TopP != nil {
		t.Fatalf("absent fields not nil: %+v", gc)
	}
	if len(gc.EOSTokenIDs()) != 0 {
		t.Fatalf("eos ids = %v, want none", gc.EOSTokenIDs())
	}
}

func TestSamplingClassification(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	i := func(v int) *int { return &v }
	b := func(v bool) *bool { return &v }

	tests := []struct {
		name string
		gc   *GenerationConfig
		want Sampling
	}{
		{"nil config", nil, SamplingArgMax},
		{"no temperature", &GenerationConfig{}, SamplingArgMax},
		{"do_sample false", &GenerationConfig{DoSample: b(false), Temperature: f(0.7), TopK: i(20)}, SamplingArgMax},
		{"zero temperature", &GenerationConfig{Temperature: f(0)}, SamplingArgMax},
		{"temperature only", &GenerationConfig{Temperature: f(0.7)}, SamplingAll},
		{"top_k", &GenerationConfig{Temperature: f(0.7), TopK: i(20)}, SamplingTopK},
		{"top_p", &GenerationConfig{Temperature: f(0.7), TopP: f(0.8)}, SamplingTopP},
		{"top_k and top_p", &GenerationConfig{Temperature: f(0.7), TopK: i(20), TopP: f(0.8)}, SamplingTopKThenTopP},
		{"top_p of one is all", &GenerationConfig{Temperature: f(0.7), TopP: f(1.0)}, SamplingAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.gc.Sampling(); got != tt.want {
				t.Fatalf("sampling = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildStopTokens(t *testing.T) {
	tok := newScriptTok() // EOSID 9

	if got := BuildStopTokens(nil, tok); !reflect.DeepEqual(got, []int{9}) {
		t.Fatalf("fallback stop tokens = %v, want [9]", got)
	}

	gc, err := ParseGenerationConfig([]byte(`{"eos_token_id": [5, 7, 5]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := BuildStopTokens(gc, tok); !reflect.DeepEqual(got, []int{5, 7}) {
		t.Fatalf("stop tokens = %v, want [5 7]", got)
	}
}
