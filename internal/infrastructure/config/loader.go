// Package config reads and writes the optional .covprep.yaml file.
package config

import (
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/covprep/internal/application"
)

type Loader struct{}

type fileConfig struct {
	Ignore   []string   `yaml:"ignore,omitempty"`
	TraceDir string     `yaml:"trace_dir,omitempty"`
	NoDelete bool       `yaml:"no_delete,omitempty"`
	Output   fileOutput `yaml:"output,omitempty"`
	History  *bool      `yaml:"history,omitempty"`
}

type fileOutput struct {
	HTML string `yaml:"html,omitempty"`
	LCOV string `yaml:"lcov,omitempty"`
}

func (l Loader) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (l Loader) Load(path string) (application.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return application.Config{}, err
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return application.Config{}, err
	}

	cfg := application.DefaultConfig()
	cfg.Ignore = file.Ignore
	cfg.NoDelete = file.NoDelete
	if file.TraceDir != "" {
		cfg.TraceDir = file.TraceDir
	}
	cfg.Output = application.OutputPaths{HTML: file.Output.HTML, LCOV: file.Output.LCOV}
	if file.History != nil {
		cfg.History.Enabled = *file.History
	}
	return cfg, nil
}

// Write emits the config as YAML, for `covprep init`.
func Write(w io.Writer, cfg application.Config) error {
	enabled := cfg.History.Enabled
	out := fileConfig{
		Ignore:   cfg.Ignore,
		TraceDir: cfg.TraceDir,
		NoDelete: cfg.NoDelete,
		Output:   fileOutput{HTML: cfg.Output.HTML, LCOV: cfg.Output.LCOV},
		History:  &enabled,
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc.Encode(out)
}
