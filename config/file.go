package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pevans/booksrc/chinese"
	"gopkg.in/yaml.v3"
)

// StorageConfig represents storage configuration from config file.
type StorageConfig struct {
	// DSN is the SQLite database holding sources, replace rules and
	// reader preferences.
	DSN string `yaml:"dsn"`
}

// ReaderConfig holds the rendering defaults used until a preference is
// stored.
type ReaderConfig struct {
	ParagraphIndent  string `yaml:"paragraph_indent"`
	ChineseConverter string `yaml:"chinese_converter"`
	ReplaceEnabled   bool   `yaml:"replace_enabled"`
	ReSegment        bool   `yaml:"resegment"`
	IncludeTitle     bool   `yaml:"include_title"`
}

// CacheConfig sizes the replace rule registry.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"` // 0 is unbounded
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// FileConfig represents the structure of ~/.booksrc/config.yaml.
type FileConfig struct {
	Storage StorageConfig `yaml:"storage"`
	Reader  ReaderConfig  `yaml:"reader"`
	Cache   CacheConfig   `yaml:"cache"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// DefaultFileConfig returns the configuration used for anything the file
// and environment leave unset.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Storage: StorageConfig{DSN: "booksrc.db"},
		Reader: ReaderConfig{
			ParagraphIndent:  DefaultParagraphIndent,
			ChineseConverter: chinese.None.String(),
			ReplaceEnabled:   true,
			IncludeTitle:     true,
		},
		Cache:  CacheConfig{MaxEntries: 64},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Console: true},
	}
}

// DefaultConfigPath returns ~/.booksrc/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".booksrc", "config.yaml"), nil
}

// LoadConfigFile loads configuration from path over the defaults. A missing
// file is not an error. Returns error if the file exists but cannot be
// parsed or holds an invalid value.
func LoadConfigFile(path string) (*FileConfig, error) {
	cfg := DefaultFileConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process
// environment. Variables already set are kept. A missing file is ignored.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Environment variables that override the config file.
const (
	EnvDSN              = "BOOKSRC_DSN"
	EnvAddr             = "BOOKSRC_ADDR"
	EnvLogLevel         = "BOOKSRC_LOG_LEVEL"
	EnvCacheMaxEntries  = "BOOKSRC_CACHE_MAX_ENTRIES"
	EnvChineseConverter = "BOOKSRC_CHINESE_CONVERTER"
	EnvParagraphIndent  = "BOOKSRC_PARAGRAPH_INDENT"
)

// ApplyEnv overrides values from environment variables read through
// lookup, normally os.LookupEnv.
func (c *FileConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDSN); ok && v != "" {
		c.Storage.DSN = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvCacheMaxEntries); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvCacheMaxEntries, err)
		}
		c.Cache.MaxEntries = n
	}
	if v, ok := lookup(EnvChineseConverter); ok && v != "" {
		c.Reader.ChineseConverter = v
	}
	if v, ok := lookup(EnvParagraphIndent); ok {
		c.Reader.ParagraphIndent = v
	}
	return c.Validate()
}

// Validate checks values that would otherwise fail later at use.
func (c *FileConfig) Validate() error {
	if _, err := chinese.ParseMode(c.Reader.ChineseConverter); err != nil {
		return fmt.Errorf("invalid reader.chinese_converter: %w", err)
	}
	if c.Cache.MaxEntries < 0 {
		return errors.New("invalid cache.max_entries: must not be negative")
	}
	return nil
}

// Defaults returns the reader section as preference defaults.
func (r ReaderConfig) Defaults() Config {
	return Config{
		ParagraphIndent:  r.ParagraphIndent,
		ChineseConverter: r.ChineseConverter,
		UseReplace:       r.ReplaceEnabled,
		ReSegment:        r.ReSegment,
		IncludeTitle:     r.IncludeTitle,
	}
}
