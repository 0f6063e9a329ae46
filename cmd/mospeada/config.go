package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the optional config file (~/.config/mospeada/config.yaml).
// Sampling fields are pointers so "not set" stays distinguishable from
// zero.
type Config struct {
	Model    string `yaml:"model"`
	Revision string `yaml:"revision"`
	CacheDir string `yaml:"cache_dir"`
	Token    string `yaml:"token"`

	Temperature       *float64 `yaml:"temperature"`
	TopK              *int64   `yaml:"top_k"`
	TopP              *float64 `yaml:"top_p"`
	RepetitionPenalty *float64 `yaml:"repetition_penalty"`
	RepeatLastN       *int64   `yaml:"repeat_last_n"`
	MaxTokens         *int64   `yaml:"max_tokens"`
	Seed              *int64   `yaml:"seed"`

	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mospeada", "config.yaml")
}

// loadConfig reads the config file, returning a zero Config when it is
// absent or unreadable.
func loadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
