package config

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// Config represents the main configuration
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Audio   AudioConfig   `yaml:"audio"`
	Assets  AssetsConfig  `yaml:"assets"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error, fatal
	File  string `yaml:"file"`  // Optional: empty logs to console only
}

// AudioConfig contains audio engine configuration
type AudioConfig struct {
	Enabled           bool        `yaml:"enabled"`
	Backend           string      `yaml:"backend"` // portaudio, oto, none
	SampleRate        int         `yaml:"sample_rate"`
	BufferSize        int         `yaml:"buffer_size"`
	MasterVolume      float64     `yaml:"master_volume"`
	UpdateHz          int         `yaml:"update_hz"`
	EffectChannels    int         `yaml:"effect_channels"`
	NarrationChannels int         `yaml:"narration_channels"`
	MusicLayers       int         `yaml:"music_layers"`
	DefaultFade       float64     `yaml:"default_fade"` // Seconds
	Seed              int64       `yaml:"seed"`         // Optional: 0 means random
	Buses             []BusConfig `yaml:"buses"`
}

// BusConfig describes a named routing bus and its initial volume
type BusConfig struct {
	Name   string  `yaml:"name"`
	Volume float64 `yaml:"volume"`
}

// AssetsConfig points at the authored data files
type AssetsConfig struct {
	Root       string `yaml:"root"`        // Base directory for clip paths
	Registry   string `yaml:"registry"`    // Sound registry asset
	Timeline   string `yaml:"timeline"`    // Optional timeline asset
	MixerSetup string `yaml:"mixer_setup"` // Optional layered music setup
}

// DefaultConfig creates a default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		Audio: AudioConfig{
			Enabled:           true,
			Backend:           "portaudio",
			SampleRate:        44100,
			BufferSize:        1024,
			MasterVolume:      0.8,
			UpdateHz:          60,
			EffectChannels:    16,
			NarrationChannels: 4,
			MusicLayers:       8,
			DefaultFade:       1.0,
			Seed:              0, // Random seed
			Buses: []BusConfig{
				{Name: "sfx", Volume: 1.0},
				{Name: "music", Volume: 1.0},
				{Name: "voice", Volume: 1.0},
			},
		},
		Assets: AssetsConfig{
			Root:     "assets",
			Registry: "assets/sounds.yaml",
		},
	}
}

// LoadConfig loads the configuration from a file
func LoadConfig(filePath string) (*Config, error) {
	// Create default config
	config := DefaultConfig()

	// Read file
	data, err := ioutil.ReadFile(filePath)
	if err != nil {
		return config, fmt.Errorf("config file not found, using defaults: %v", err)
	}

	// Parse YAML
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return config, fmt.Errorf("error parsing config: %v", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, filePath string) error {
	// Convert to YAML
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error serializing config: %v", err)
	}

	// Write file
	err = ioutil.WriteFile(filePath, data, 0644)
	if err != nil {
		return fmt.Errorf("error writing config file: %v", err)
	}

	return nil
}
