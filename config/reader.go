package config

import (
	"bytes"
	"context"
	"io"
	"path/filepath"

	"github.com/a8m/envsubst"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"go.viam.com/reach/logging"
	"go.viam.com/reach/optimizer"
)

// Read reads a config from the given file, substituting environment variables first.
func Read(ctx context.Context, filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", filePath)
	}
	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies where, if applicable, the file
// the reader originated from.
func FromReader(ctx context.Context, originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := Config{
		Optimization:   optimizer.DefaultParameters(),
		ConfigFilePath: originalPath,
	}
	if err := json.NewDecoder(r).DecodeContext(ctx, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode Config from json")
	}
	if err := cfg.Ensure(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	logger.Debugw("read config", "path", originalPath, "plugins", cfg.String())
	return &cfg, nil
}

// SearchPath returns the directories plugin files are resolved against: the configured entries,
// made relative to the config file's directory, followed by that directory itself.
func (c *Config) SearchPath() []string {
	base := "."
	if c.ConfigFilePath != "" {
		base = filepath.Dir(c.ConfigFilePath)
	}
	path := make([]string, 0, len(c.PluginSearchPath)+1)
	for _, dir := range c.PluginSearchPath {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, dir)
		}
		path = append(path, dir)
	}
	return append(path, base)
}
