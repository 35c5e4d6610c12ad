package replace

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test rule store
func createTestStore(t *testing.T) *Store {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")
	store, err := NewStore(dbPath)
	require.NoError(t, err, "should create rule store")
	t.Cleanup(func() { store.Close() })
	return store
}

// Test helper: insert a rule and fail the test on error
func mustCreate(t *testing.T, store *Store, rule Rule) *Rule {
	t.Helper()
	created, err := store.CreateRule(rule)
	require.NoError(t, err)
	return created
}

// TestCreateRule_AssignsID verifies new rules get an ID and default name
func TestCreateRule_AssignsID(t *testing.T) {
	store := createTestStore(t)

	rule := mustCreate(t, store, Rule{Pattern: "ad", ScopeContent: true, Enabled: true})

	assert.NotEqual(t, uuid.Nil, rule.ID)
	assert.Equal(t, "ad", rule.Name)

	got, err := store.GetRule(rule.ID)
	require.NoError(t, err)
	assert.Equal(t, *rule, *got)
}

// TestCreateRule_Validation verifies invalid rules are rejected
func TestCreateRule_Validation(t *testing.T) {
	store := createTestStore(t)

	_, err := store.CreateRule(Rule{ScopeContent: true})
	assert.ErrorIs(t, err, ErrEmptyPattern)

	_, err = store.CreateRule(Rule{Pattern: "x"})
	assert.ErrorIs(t, err, ErrNoScope)
}

// TestGetRule_NotFound verifies error for non-existent rule
func TestGetRule_NotFound(t *testing.T) {
	store := createTestStore(t)

	_, err := store.GetRule(uuid.New())
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

// TestEnabledRules_FilterAndOrder verifies scope, enabled flag and order
func TestEnabledRules_FilterAndOrder(t *testing.T) {
	store := createTestStore(t)

	mustCreate(t, store, Rule{Name: "second", Pattern: "b", ScopeContent: true, Enabled: true, Order: 2})
	mustCreate(t, store, Rule{Name: "first", Pattern: "a", ScopeContent: true, Enabled: true, Order: 1})
	mustCreate(t, store, Rule{Name: "disabled", Pattern: "c", ScopeContent: true, Order: 0})
	mustCreate(t, store, Rule{Name: "other book", Pattern: "d", ScopeContent: true, Enabled: true, Scope: "Other"})
	mustCreate(t, store, Rule{Name: "this origin", Pattern: "e", ScopeContent: true, Enabled: true, Scope: "http://src", Order: 3})
	mustCreate(t, store, Rule{Name: "title", Pattern: "f", ScopeTitle: true, Enabled: true})

	content, err := store.EnabledContentRules("Book", "http://src")
	require.NoError(t, err)

	var names []string
	for _, r := range content {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"first", "second", "this origin"}, names)

	title, err := store.EnabledTitleRules("Book", "http://src")
	require.NoError(t, err)
	require.Len(t, title, 1)
	assert.Equal(t, "title", title[0].Name)
}

// TestSetEnabled verifies toggling a rule
func TestSetEnabled(t *testing.T) {
	store := createTestStore(t)
	rule := mustCreate(t, store, Rule{Pattern: "a", ScopeContent: true})

	require.NoError(t, store.SetEnabled(rule.ID, true))
	content, err := store.EnabledContentRules("", "")
	require.NoError(t, err)
	assert.Len(t, content, 1)

	assert.ErrorIs(t, store.SetEnabled(uuid.New(), true), ErrRuleNotFound)
}

// TestDeleteRule verifies deletion
func TestDeleteRule(t *testing.T) {
	store := createTestStore(t)
	rule := mustCreate(t, store, Rule{Pattern: "a", ScopeContent: true})

	require.NoError(t, store.DeleteRule(rule.ID))
	assert.ErrorIs(t, store.DeleteRule(rule.ID), ErrRuleNotFound)

	rules, err := store.ListRules()
	require.NoError(t, err)
	assert.Empty(t, rules)
}
