// Package hub locates model files, either in a local directory or by
// downloading them from a Hugging Face style model hub into a cache.
package hub

import (
	"context"
	"fmt"
	"os"
	"sort"

	json "github.com/goccy/go-json"
)

// Repo resolves filenames inside one model repository to local paths.
type Repo interface {
	ModelID() string
	// Get returns a local path for filename, fetching it first if the
	// repo is remote. A missing file yields a *FetchError.
	Get(ctx context.Context, filename string) (string, error)
}

// FetchError reports a file that could not be resolved or downloaded.
type FetchError struct {
	ModelID string
	File    string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("hub: %s/%s: %v", e.ModelID, e.File, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Well-known filenames inside a model repo.
const (
	FileConfig           = "config.json"
	FileTokenizer        = "tokenizer.json"
	FileTokenizerConfig  = "tokenizer_config.json"
	FileGenerationConfig = "generation_config.json"
	FileSafetensors      = "model.safetensors"
	FileSafetensorsIndex = "model.safetensors.index.json"
)

func ConfigFile(ctx context.Context, r Repo) (string, error) {
	return r.Get(ctx, FileConfig)
}

func TokenizerFile(ctx context.Context, r Repo) (string, error) {
	return r.Get(ctx, FileTokenizer)
}

func TokenizerConfigFile(ctx context.Context, r Repo) (string, error) {
	return r.Get(ctx, FileTokenizerConfig)
}

// GenerationConfigFile resolves generation_config.json. Some repos ship
// the older generate_config.json name instead, so that is tried second.
func GenerationConfigFile(ctx context.Context, r Repo) (string, error) {
	p, err := r.Get(ctx, FileGenerationConfig)
	if err == nil {
		return p, nil
	}
	if p2, err2 := r.Get(ctx, "generate_config.json"); err2 == nil {
		return p2, nil
	}
	return "", err
}

// SafetensorsFiles resolves the model weights: a single model.safetensors
// when present, otherwise every shard named by the safetensors index.
func SafetensorsFiles(ctx context.Context, r Repo) ([]string, error) {
	if single, err := r.Get(ctx, FileSafetensors); err == nil {
		return []string{single}, nil
	}
	index, err := r.Get(ctx, FileSafetensorsIndex)
	if err != nil {
		return nil, err
	}
	shards, err := readSafetensorsIndex(index)
	if err != nil {
		return nil, &FetchError{ModelID: r.ModelID(), File: FileSafetensorsIndex, Err: err}
	}
	paths := make([]string, 0, len(shards))
	for _, shard := range shards {
		p, err := r.Get(ctx, shard)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// readSafetensorsIndex returns the sorted, deduplicated shard filenames
// from a model.safetensors.index.json weight map.
func readSafetensorsIndex(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var index struct {
		WeightMap map[string]string `json:"weight_map"`
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("safetensors index: %w", err)
	}
	if len(index.WeightMap) == 0 {
		return nil, fmt.Errorf("safetensors index: no weight map")
	}
	seen := make(map[string]struct{}, len(index.WeightMap))
	var files []string
	for _, f := range index.WeightMap {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}
