// Package production provides the pieces a deployed controller needs around
// the machine: configuration files, transition publishing and visualization.

package production

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/comalice/trafficlight"
)

// Format is a configuration file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the encoding from the file extension: .json is JSON,
// anything else YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadConfig reads path on top of trafficlight.DefaultConfig, so a file only
// needs the fields it changes, and validates the result.
func LoadConfig(path string) (trafficlight.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return trafficlight.Config{}, errors.Wrapf(err, "read %s", path)
	}
	cfg, err := DecodeConfig(data, FormatOf(path))
	if err != nil {
		return trafficlight.Config{}, errors.Wrapf(err, "load %s", path)
	}
	return cfg, nil
}

// DecodeConfig decodes data on top of the defaults and validates it.
func DecodeConfig(data []byte, format Format) (trafficlight.Config, error) {
	cfg := trafficlight.DefaultConfig()
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return trafficlight.Config{}, errors.Wrap(err, "json unmarshal")
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return trafficlight.Config{}, errors.Wrap(err, "yaml unmarshal")
		}
	}
	if err := cfg.Validate(); err != nil {
		return trafficlight.Config{}, errors.Wrap(err, "config validation")
	}
	return cfg, nil
}

// EncodeConfig renders cfg in the given format.
func EncodeConfig(cfg trafficlight.Config, format Format) ([]byte, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "json marshal")
		}
		return append(data, '\n'), nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "yaml marshal")
	}
	return data, nil
}

// WriteConfig writes cfg to path, creating the directory if needed.
func WriteConfig(path string, cfg trafficlight.Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config validation")
	}
	data, err := EncodeConfig(cfg, FormatOf(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "mkdir %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
