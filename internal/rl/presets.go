package rl

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Preset is a named trainer configuration entry in YAML.
type Preset struct {
	Name   string `yaml:"name"`
	Config `yaml:",inline"`
}

// PresetFile is the top-level YAML structure.
type PresetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets reads named trainer configs from a YAML file.
func LoadPresets(path string) (map[string]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file PresetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	out := make(map[string]Config, len(file.Presets))
	for _, p := range file.Presets {
		out[p.Name] = p.Config
	}
	return out, nil
}
