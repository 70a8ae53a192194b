package mixer

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// Rule switches one named layer on or off
type Rule struct {
	Layer string `yaml:"layer"`
	Play  bool   `yaml:"play"`
}

// Entry is one step of a variable's value range, holding the layer rules
// that apply while the variable resolves to it
type Entry struct {
	Rules []Rule `yaml:"rules"`
}

// Variable is one named mix control. Integer variables round their value
// to an entry index; float variables map [FloatMin,FloatMax] onto the
// entry list. With PlayAllAhead set, all entries up to the resolved index
// apply cumulatively.
type Variable struct {
	Name         string  `yaml:"name"`
	Priority     int     `yaml:"priority"`
	Integer      bool    `yaml:"integer"`
	FloatMin     float64 `yaml:"floatMin"`
	FloatMax     float64 `yaml:"floatMax"`
	PlayAllAhead bool    `yaml:"playAllAhead"`
	Initial      float64 `yaml:"initial"`
	Entries      []Entry `yaml:"entries"`

	value float64
}

// LayerConfig binds a named mixer layer to an engine music layer slot
type LayerConfig struct {
	Name   string  `yaml:"name"`
	Index  int     `yaml:"index"`
	Music  string  `yaml:"music"`  // registry name of the layer's music
	Volume float64 `yaml:"volume"` // base volume when the layer plays
}

// Setup is the authored mixer configuration
type Setup struct {
	FadeTime     float64       `yaml:"fadeTime"`
	StartDelay   float64       `yaml:"startDelay"`
	RestartDelay float64       `yaml:"restartDelay"`
	Layers       []LayerConfig `yaml:"layers"`
	Variables    []Variable    `yaml:"variables"`
}

// DefaultSetup returns a setup with usable timing and nothing configured
func DefaultSetup() Setup {
	return Setup{
		FadeTime:     1.5,
		StartDelay:   0,
		RestartDelay: 2,
	}
}

// LoadSetup reads a mixer setup from a YAML file
func LoadSetup(path string) (Setup, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return DefaultSetup(), fmt.Errorf("failed to read mixer setup: %v", err)
	}
	return ParseSetup(data)
}

// ParseSetup parses a YAML mixer setup, filling defaults for omitted
// timing fields
func ParseSetup(data []byte) (Setup, error) {
	s := DefaultSetup()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSetup(), fmt.Errorf("failed to parse mixer setup: %v", err)
	}
	for i := range s.Layers {
		if s.Layers[i].Volume == 0 {
			s.Layers[i].Volume = 1
		}
	}
	for i := range s.Variables {
		v := &s.Variables[i]
		if !v.Integer && v.FloatMin == 0 && v.FloatMax == 0 {
			v.FloatMax = 1
		}
	}
	return s, nil
}

// SaveSetup writes a mixer setup as YAML
func SaveSetup(s Setup, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal mixer setup: %v", err)
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write mixer setup: %v", err)
	}
	return nil
}
