package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Output selects where scheduled tones go.
const (
	OutputAudio = "audio" // built-in synth engine
	OutputMIDI  = "midi"  // external synth over a MIDI port
)

// Config is the startup configuration. Values feed the tuning, sequence
// and scheduler constructors, which do the validating; Load itself only
// parses.
type Config struct {
	Tempo          float64 `json:"tempo"`
	Waveform       string  `json:"waveform"`
	Divisions      int     `json:"divisions"`
	ReferencePitch float64 `json:"referencePitch"`
	Beats          int     `json:"beats"`
	LowOctave      int     `json:"lowOctave"`
	HighOctave     int     `json:"highOctave"`
	Output         string  `json:"output"`
	MIDIPort       string  `json:"midiPort,omitempty"`
}

// Default returns the out-of-the-box setup: 12-EDO at concert pitch, a
// 16-beat grid over three octaves, played on the built-in engine.
func Default() *Config {
	return &Config{
		Tempo:          120,
		Waveform:       "sine",
		Divisions:      12,
		ReferencePitch: 440,
		Beats:          16,
		LowOctave:      3,
		HighOctave:     5,
		Output:         OutputAudio,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "edostep"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a config from an explicit path, falling back to defaults
// when the file does not exist. Fields missing from the file keep their
// default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to an explicit path.
func (c *Config) SaveFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
