package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pevans/booksrc/config"
	"github.com/pevans/booksrc/notify"
	"github.com/pevans/booksrc/replace"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: run the CLI against a database in dir
func runCLI(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args,
		"--db", filepath.Join(dir, "test.db"),
		"--config", filepath.Join(dir, "config.yaml"),
		"--env-file", filepath.Join(dir, ".env"),
		"--log-level", "error",
	))
	err := cmd.Execute()
	return out.String(), err
}

var ruleIDPattern = regexp.MustCompile(`[0-9a-f-]{36}`)

// TestMigrateCommands verifies rules and URLs are upgraded from arguments
// and stdin
func TestMigrateCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "", "migrate", "rule", "a#b|c")
	require.NoError(t, err)
	assert.Equal(t, "a##b||c\n", out)

	out, err = runCLI(t, dir, "http://x/s?q=searchKey\n", "migrate", "url")
	require.NoError(t, err)
	assert.Equal(t, "http://x/s?q={{key}}\n", out)

	out, err = runCLI(t, dir, "u1\n\nu2", "migrate", "urls")
	require.NoError(t, err)
	assert.Equal(t, "u1\nu2\n", out)
}

// TestImportAndSourcesCommands verifies the import, list, show and delete
// round trip
func TestImportAndSourcesCommands(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
		{"bookSourceUrl": "http://a", "bookSourceName": "Alpha", "ruleSearchName": "x#y"},
		{"bookSourceName": "orphan"}
	]`), 0o600))

	out, err := runCLI(t, dir, "", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 source(s)")
	assert.Contains(t, out, "Skipped document 1")

	out, err = runCLI(t, dir, "", "sources", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "http://a")

	out, err = runCLI(t, dir, "", "sources", "show", "http://a")
	require.NoError(t, err)
	var shown map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "x##y", shown["ruleSearch"].(map[string]any)["name"])

	_, err = runCLI(t, dir, "", "sources", "delete", "http://a")
	require.NoError(t, err)

	out, err = runCLI(t, dir, "", "sources", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sources configured.")

	_, err = runCLI(t, dir, "", "sources", "show", "http://a")
	assert.Error(t, err)
}

// TestReplaceAndRenderCommands verifies stored rules shape rendered output
func TestReplaceAndRenderCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "", "replace", "add", "cat", "dog", "--literal")
	require.NoError(t, err)
	id := ruleIDPattern.FindString(out)
	require.NotEmpty(t, id)

	out, err = runCLI(t, dir, "Chapter 1\nthe cat sat.\n\n", "render", "--book", "B", "--title", "Chapter 1")
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1\n　　the dog sat.\n", out)

	_, err = runCLI(t, dir, "", "replace", "disable", id)
	require.NoError(t, err)

	out, err = runCLI(t, dir, "the cat", "render", "--title", "T")
	require.NoError(t, err)
	assert.Equal(t, "T\n　　the cat\n", out)

	out, err = runCLI(t, dir, "", "replace", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	_, err = runCLI(t, dir, "", "replace", "delete", id)
	require.NoError(t, err)
	_, err = runCLI(t, dir, "", "replace", "delete", id)
	assert.ErrorIs(t, err, replace.ErrRuleNotFound)
}

// TestRenderCommand_HTML verifies HTML input is flattened before rendering
func TestRenderCommand_HTML(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "", "config", "set", config.KeyParagraphIndent, "> ")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "<p>One</p><p>Two</p>", "render", "--html", "--title", "T")
	require.NoError(t, err)
	assert.Equal(t, "T\n> One\n> Two\n", out)
}

// TestConfigCommands verifies preferences are stored and shown
func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "", "config", "set", config.KeyChineseConverter, "s2t")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "chinese_converter: s2t")
	assert.Contains(t, out, filepath.Join(dir, "test.db"))

	_, err = runCLI(t, dir, "", "config", "set", "volume", "11")
	assert.ErrorIs(t, err, config.ErrUnknownKey)
}

// TestConfigFileIsRead verifies values from the config file are used
func TestConfigFileIsRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("reader:\n  include_title: false\n"), 0o600))

	out, err := runCLI(t, dir, "Body", "render", "--title", "T")
	require.NoError(t, err)
	assert.Equal(t, "　　Body\n", out)
}

// TestRenderHandler verifies the render and refresh endpoints
func TestRenderHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	rules, err := replace.NewStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { rules.Close() })
	prefs, err := config.NewConfigStore(dbPath, config.DefaultFileConfig().Reader.Defaults())
	require.NoError(t, err)
	t.Cleanup(func() { prefs.Close() })

	registry := replace.NewRegistry(rules, 0, zerolog.Nop())
	h := &renderHandler{
		renderer: newRenderer(registry, prefs, notify.Discard{}, zerolog.Nop()),
		registry: registry,
	}
	router := gin.New()
	h.RegisterRoutes(router.Group("/api/v1"))

	render := func() RenderResponse {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/render",
			strings.NewReader(`{"bookName":"B","chapterTitle":"T","content":"T\nold text"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var resp RenderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	assert.Equal(t, []string{"T", "　　old text"}, render().Paragraphs)

	_, err = rules.CreateRule(replace.Rule{Pattern: "old", Replacement: "new", ScopeContent: true, Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"T", "　　old text"}, render().Paragraphs, "cached rules until refresh")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/replace/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"T", "　　new text"}, render().Paragraphs)
}
