package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings files carry hub and journal tuning (see hub.ConfigFrom). Both
// YAML and JSON are accepted; the top level must be a mapping.

// unmarshalFunc decodes raw settings bytes into a destination value.
type unmarshalFunc func([]byte, any) error

// decode parses raw settings with the given format's unmarshaler.
func decode(format string, raw []byte, unmarshal unmarshalFunc) (Config, error) {
	settings := map[string]any{}
	if err := unmarshal(raw, &settings); err != nil {
		return Config{}, fmt.Errorf("decode %s settings: %w", format, err)
	}
	return New(settings), nil
}

// FromYAML parses YAML settings into a Config.
func FromYAML(raw []byte) (Config, error) {
	return decode("yaml", raw, yaml.Unmarshal)
}

// FromJSON parses JSON settings into a Config.
func FromJSON(raw []byte) (Config, error) {
	return decode("json", raw, json.Unmarshal)
}

// FromFile reads a settings file into a Config. The format follows the file
// extension (.yaml and .yml decode as YAML, .json as JSON); any other
// extension is rejected rather than guessed at.
func FromFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read settings file: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = FromYAML(raw)
	case ".json":
		cfg, err = FromJSON(raw)
	default:
		return Config{}, fmt.Errorf("unrecognized settings extension %q (want .yaml, .yml, or .json)", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("settings file %s: %w", path, err)
	}
	return cfg, nil
}
