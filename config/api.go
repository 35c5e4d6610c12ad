package config

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConfigAPIServer represents the HTTP API server for reader preferences.
type ConfigAPIServer struct {
	store *ConfigStore
}

// NewConfigAPIServer creates a new config API server.
func NewConfigAPIServer(store *ConfigStore) *ConfigAPIServer {
	return &ConfigAPIServer{
		store: store,
	}
}

// RegisterRoutes adds the config routes to an API group.
func (c *ConfigAPIServer) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/config", c.HandleGetConfig)
	api.PUT("/config", c.HandleUpdateConfig)
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// HandleGetConfig handles GET /api/v1/config.
func (c *ConfigAPIServer) HandleGetConfig(ctx *gin.Context) {
	config, err := c.store.GetConfig()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to retrieve configuration"))
		return
	}

	ctx.JSON(http.StatusOK, config)
}

// HandleUpdateConfig handles PUT /api/v1/config.
func (c *ConfigAPIServer) HandleUpdateConfig(ctx *gin.Context) {
	var update ConfigUpdate
	if err := ctx.ShouldBindJSON(&update); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}

	if !update.IsEmpty() {
		if err := c.store.UpdateConfig(update); err != nil {
			if errors.Is(err, ErrInvalidValue) {
				ctx.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
				return
			}
			ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to update configuration"))
			return
		}
	}

	config, err := c.store.GetConfig()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to retrieve configuration"))
		return
	}
	ctx.JSON(http.StatusOK, config)
}
