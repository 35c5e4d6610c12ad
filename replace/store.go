package replace

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Custom errors for rule operations
var (
	ErrRuleNotFound = errors.New("replace rule not found")
	ErrEmptyPattern = errors.New("replace rule pattern must not be empty")
	ErrNoScope      = errors.New("replace rule must apply to titles, content or both")
)

// RuleSource provides the enabled rules for a book. Results are in
// application order.
type RuleSource interface {
	EnabledTitleRules(bookName, origin string) ([]Rule, error)
	EnabledContentRules(bookName, origin string) ([]Rule, error)
}

// Store manages replace rules using SQLite.
type Store struct {
	db *sql.DB
}

var _ RuleSource = (*Store)(nil)

// NewStore creates a new rule store with the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS replace_rules (
		rule_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rule_group TEXT,
		pattern TEXT NOT NULL,
		replacement TEXT NOT NULL DEFAULT '',
		is_regex INTEGER NOT NULL DEFAULT 1,
		scope TEXT,
		scope_title INTEGER NOT NULL DEFAULT 0,
		scope_content INTEGER NOT NULL DEFAULT 1,
		enabled INTEGER NOT NULL DEFAULT 1,
		sort_order INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRule stores a new rule. A zero ID is replaced with a fresh UUID.
func (s *Store) CreateRule(rule Rule) (*Rule, error) {
	if rule.Pattern == "" {
		return nil, ErrEmptyPattern
	}
	if !rule.ScopeTitle && !rule.ScopeContent {
		return nil, ErrNoScope
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if rule.Name == "" {
		rule.Name = rule.Pattern
	}

	query := `
		INSERT INTO replace_rules (
			rule_id, name, rule_group, pattern, replacement, is_regex,
			scope, scope_title, scope_content, enabled, sort_order
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		rule.ID.String(),
		rule.Name,
		nullString(rule.Group),
		rule.Pattern,
		rule.Replacement,
		rule.IsRegex,
		nullString(rule.Scope),
		rule.ScopeTitle,
		rule.ScopeContent,
		rule.Enabled,
		rule.Order,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert replace rule: %w", err)
	}

	return &rule, nil
}

const selectRules = `
	SELECT rule_id, name, rule_group, pattern, replacement, is_regex,
	       scope, scope_title, scope_content, enabled, sort_order
	FROM replace_rules
`

// GetRule retrieves a rule by ID.
func (s *Store) GetRule(ruleID uuid.UUID) (*Rule, error) {
	rows, err := s.db.Query(selectRules+" WHERE rule_id = ?", ruleID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query replace rule: %w", err)
	}
	rules, err := scanRules(rows)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, ErrRuleNotFound
	}
	return &rules[0], nil
}

// ListRules lists every rule in application order.
func (s *Store) ListRules() ([]Rule, error) {
	rows, err := s.db.Query(selectRules + " ORDER BY sort_order, name")
	if err != nil {
		return nil, fmt.Errorf("failed to query replace rules: %w", err)
	}
	return scanRules(rows)
}

// SetEnabled enables or disables a rule.
func (s *Store) SetEnabled(ruleID uuid.UUID, enabled bool) error {
	result, err := s.db.Exec("UPDATE replace_rules SET enabled = ? WHERE rule_id = ?", enabled, ruleID.String())
	if err != nil {
		return fmt.Errorf("failed to update replace rule: %w", err)
	}
	return expectOneRow(result)
}

// DeleteRule deletes a rule.
func (s *Store) DeleteRule(ruleID uuid.UUID) error {
	result, err := s.db.Exec("DELETE FROM replace_rules WHERE rule_id = ?", ruleID.String())
	if err != nil {
		return fmt.Errorf("failed to delete replace rule: %w", err)
	}
	return expectOneRow(result)
}

// EnabledTitleRules returns enabled title-scope rules covering the book.
func (s *Store) EnabledTitleRules(bookName, origin string) ([]Rule, error) {
	return s.enabledRules("scope_title", bookName, origin)
}

// EnabledContentRules returns enabled content-scope rules covering the book.
func (s *Store) EnabledContentRules(bookName, origin string) ([]Rule, error) {
	return s.enabledRules("scope_content", bookName, origin)
}

func (s *Store) enabledRules(scopeColumn, bookName, origin string) ([]Rule, error) {
	query := selectRules + " WHERE enabled = 1 AND " + scopeColumn + " = 1 ORDER BY sort_order, name"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query replace rules: %w", err)
	}
	rules, err := scanRules(rows)
	if err != nil {
		return nil, err
	}

	matched := rules[:0]
	for _, r := range rules {
		if r.Matches(bookName, origin) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func scanRules(rows *sql.Rows) ([]Rule, error) {
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var ruleIDStr string
		var group, scope sql.NullString
		var r Rule

		err := rows.Scan(
			&ruleIDStr, &r.Name, &group, &r.Pattern, &r.Replacement, &r.IsRegex,
			&scope, &r.ScopeTitle, &r.ScopeContent, &r.Enabled, &r.Order,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan replace rule: %w", err)
		}

		r.ID, err = uuid.Parse(ruleIDStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rule ID: %w", err)
		}
		r.Group = group.String
		r.Scope = scope.String
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read replace rules: %w", err)
	}

	return rules, nil
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
