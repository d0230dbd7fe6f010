// Package config loads engine settings from YAML or TOML files.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/leengari/tablestore/internal/ndarray"
	"github.com/leengari/tablestore/internal/storage/dialect"
)

type Config struct {
	Store   StoreConfig   `yaml:"store" toml:"store"`
	Read    ReadConfig    `yaml:"read" toml:"read"`
	Array   ArrayConfig   `yaml:"array" toml:"array"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache"`
	Log     LogConfig     `yaml:"log" toml:"log"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

type StoreConfig struct {
	Dialect      string `yaml:"dialect" toml:"dialect" default:"sqlite"`
	DSN          string `yaml:"dsn" toml:"dsn" default:"tablestore.db"`
	MaxOpenConns int    `yaml:"max_open_conns" toml:"max_open_conns" default:"4"`
}

type ReadConfig struct {
	// BatchMemSize is the default batch ceiling in bytes.
	BatchMemSize int64 `yaml:"batch_mem_size" toml:"batch_mem_size" default:"30000000"`
	// SampleRows is how many rows are measured to fix the row size estimate.
	SampleRows int `yaml:"sample_rows" toml:"sample_rows" default:"1"`
}

type ArrayConfig struct {
	Codec string `yaml:"codec" toml:"codec" default:"raw"`
}

type CacheConfig struct {
	Size int `yaml:"size" toml:"size" default:"256"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level" default:"info"`
	Format string `yaml:"format" toml:"format" default:"text"`
	SeqURL string `yaml:"seq_url" toml:"seq_url"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace" toml:"namespace" default:"tablestore"`
}

// Default returns a config with every default applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return cfg, nil
}

// Load reads path, picking the format from its extension. Fields absent from
// the file keep their defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	default:
		return nil, fmt.Errorf("config %s: unsupported extension", path)
	}
	return Parse(bytes.NewReader(raw), format)
}

// Parse decodes a config in the given format ("yaml" or "toml").
func Parse(r io.Reader, format string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	switch format {
	case "yaml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return nil, fmt.Errorf("config yaml: %w", err)
		}
	case "toml":
		md, err := toml.NewDecoder(r).Decode(cfg)
		if err != nil {
			return nil, fmt.Errorf("config toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config toml: unknown key %s", undecoded[0])
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if _, err := dialect.Lookup(c.Store.Dialect); err != nil {
		return fmt.Errorf("store.dialect: %w", err)
	}
	if c.Store.MaxOpenConns < 0 {
		return fmt.Errorf("store.max_open_conns must not be negative")
	}
	if c.Read.BatchMemSize <= 0 {
		return fmt.Errorf("read.batch_mem_size must be positive")
	}
	if c.Read.SampleRows <= 0 {
		return fmt.Errorf("read.sample_rows must be positive")
	}
	if _, ok := ndarray.ByName(c.Array.Codec); !ok {
		return fmt.Errorf("array.codec: unknown codec %q", c.Array.Codec)
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}
