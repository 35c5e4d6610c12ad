package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestConfigRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewConfigAPIServer(createTestConfigStore(t)).RegisterRoutes(router.Group("/api/v1"))
	return router
}

// TestHandleUpdateConfig verifies partial updates and validation
func TestHandleUpdateConfig(t *testing.T) {
	router := setupTestConfigRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/config", strings.NewReader(`{"chinese_converter":"t2s"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got Config
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "t2s", got.ChineseConverter)
	assert.Equal(t, DefaultParagraphIndent, got.ParagraphIndent)

	req = httptest.NewRequest(http.MethodPut, "/api/v1/config", strings.NewReader(`{"chinese_converter":"x"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/config", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "t2s", got.ChineseConverter)
}
