// Package config handles configuration loading for the command line tools.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration file structure.
type Config struct {
	Datasets []Dataset `yaml:"datasets"`
}

// Dataset names one data source to inspect.
type Dataset struct {
	Name   string    `yaml:"name,omitempty"`
	Path   string    `yaml:"path"`
	BBox   []float64 `yaml:"bbox,omitempty,flow"` // west, south, east, north
	Fields []string  `yaml:"fields,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
