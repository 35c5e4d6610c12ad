package config

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/booksrc/chinese"
)

// DefaultParagraphIndent is two ideographic spaces.
const DefaultParagraphIndent = "　　"

// Preference keys as stored and as accepted by Set.
const (
	KeyParagraphIndent  = "paragraph_indent"
	KeyChineseConverter = "chinese_converter"
	KeyUseReplace       = "use_replace"
	KeyReSegment        = "resegment"
	KeyIncludeTitle     = "include_title"
)

// Custom errors for configuration operations
var (
	ErrUnknownKey   = errors.New("unknown configuration key")
	ErrInvalidValue = errors.New("invalid configuration value")
)

// ConfigStore manages reader preferences using SQLite. Keys that were never
// set resolve to the store's defaults.
type ConfigStore struct {
	db       *sql.DB
	defaults Config
}

// Config represents the reader preferences that drive chapter rendering.
type Config struct {
	ParagraphIndent  string `json:"paragraph_indent"`
	ChineseConverter string `json:"chinese_converter"`
	UseReplace       bool   `json:"use_replace"`
	ReSegment        bool   `json:"resegment"`
	IncludeTitle     bool   `json:"include_title"`
}

// ConverterMode parses ChineseConverter. An invalid value disables
// conversion.
func (c Config) ConverterMode() chinese.Mode {
	mode, _ := chinese.ParseMode(c.ChineseConverter)
	return mode
}

// ConfigUpdate represents preferences that can be updated. Nil fields are
// left unchanged.
type ConfigUpdate struct {
	ParagraphIndent  *string `json:"paragraph_indent,omitempty"`
	ChineseConverter *string `json:"chinese_converter,omitempty"`
	UseReplace       *bool   `json:"use_replace,omitempty"`
	ReSegment        *bool   `json:"resegment,omitempty"`
	IncludeTitle     *bool   `json:"include_title,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u ConfigUpdate) IsEmpty() bool {
	return u.ParagraphIndent == nil && u.ChineseConverter == nil &&
		u.UseReplace == nil && u.ReSegment == nil && u.IncludeTitle == nil
}

// NewConfigStore creates a new config store with the given database path.
func NewConfigStore(dbPath string, defaults Config) (*ConfigStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &ConfigStore{db: db, defaults: defaults}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the config table if it doesn't exist.
func (c *ConfigStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (c *ConfigStore) Close() error {
	return c.db.Close()
}

// GetConfig retrieves the reader preferences, stored values over defaults.
func (c *ConfigStore) GetConfig() (*Config, error) {
	rows, err := c.db.Query("SELECT key, value FROM config")
	if err != nil {
		return nil, fmt.Errorf("failed to query config: %w", err)
	}
	defer rows.Close()

	cfg := c.defaults
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config: %w", err)
		}
		// Rows written by older versions may hold keys we no longer know.
		_ = cfg.set(key, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query config: %w", err)
	}

	return &cfg, nil
}

// UpdateConfig stores the fields present in update.
func (c *ConfigStore) UpdateConfig(update ConfigUpdate) error {
	values := map[string]string{}
	if update.ParagraphIndent != nil {
		values[KeyParagraphIndent] = *update.ParagraphIndent
	}
	if update.ChineseConverter != nil {
		values[KeyChineseConverter] = *update.ChineseConverter
	}
	if update.UseReplace != nil {
		values[KeyUseReplace] = strconv.FormatBool(*update.UseReplace)
	}
	if update.ReSegment != nil {
		values[KeyReSegment] = strconv.FormatBool(*update.ReSegment)
	}
	if update.IncludeTitle != nil {
		values[KeyIncludeTitle] = strconv.FormatBool(*update.IncludeTitle)
	}
	return c.store(values)
}

// Set stores a single preference given as text, as the CLI receives it.
func (c *ConfigStore) Set(key, value string) error {
	return c.store(map[string]string{key: value})
}

func (c *ConfigStore) store(values map[string]string) error {
	var probe Config
	for key, value := range values {
		if err := probe.set(key, value); err != nil {
			return err
		}
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}
	defer tx.Rollback()

	query := "INSERT OR REPLACE INTO config (key, value) VALUES (?, ?)"
	for key, value := range values {
		if _, err := tx.Exec(query, key, value); err != nil {
			return fmt.Errorf("failed to update config: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}
	return nil
}

// set parses value into the field named by key.
func (c *Config) set(key, value string) error {
	switch key {
	case KeyParagraphIndent:
		c.ParagraphIndent = value
	case KeyChineseConverter:
		mode, err := chinese.ParseMode(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		c.ChineseConverter = mode.String()
	case KeyUseReplace, KeyReSegment, KeyIncludeTitle:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
		}
		switch key {
		case KeyUseReplace:
			c.UseReplace = b
		case KeyReSegment:
			c.ReSegment = b
		default:
			c.IncludeTitle = b
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}
