package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Load reads and validates a config file at path. If the file does not
// exist, it writes out the defaults and returns them.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if writeErr := Save(path, cfg); writeErr != nil {
			logrus.WithError(writeErr).Warn("config: failed to write default config file")
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	return LoadFromReader(f)
}

// LoadFromReader decodes and validates a config from r.
func LoadFromReader(r io.Reader) (Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	cfg := Default()
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks hard requirements and logs soft warnings for optional,
// unset settings.
func Validate(cfg Config) error {
	var errs []error

	if cfg.TranscriptionEndpoint == "" {
		errs = append(errs, errors.New("config: transcription_endpoint must not be empty"))
	}
	if cfg.ResultsDir == "" {
		errs = append(errs, errors.New("config: results_dir must not be empty"))
	}
	if cfg.Keys.Quit == "" {
		errs = append(errs, errors.New("config: keys.quit must be bound"))
	}

	if cfg.Hue.BridgeIP == "" {
		logrus.Warn("config: no hue.bridge_ip configured; the lights consumer will be disabled")
	}
	if cfg.Discord.Enabled && cfg.Discord.Token == "" {
		errs = append(errs, errors.New("config: discord.enabled is true but discord.token is empty"))
	}

	return errors.Join(errs...)
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
