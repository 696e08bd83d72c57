package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deniz/checklens/internal/llm"
)

// ModelsHandler lists the text models available for analysis.
type ModelsHandler struct {
	client    *llm.Client
	extraDeny []string
}

// NewModelsHandler creates a new models handler.
// Parameters:
//   - client: model-serving client.
//   - extraDeny: extra model denylist entries from configuration.
// Returns:
//   - *ModelsHandler: initialized handler.
func NewModelsHandler(client *llm.Client, extraDeny []string) *ModelsHandler {
	return &ModelsHandler{client: client, extraDeny: extraDeny}
}

// ListModels handles GET /api/v1/models. The optional endpoint query
// parameter redirects the listing to another model server.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ModelsHandler) ListModels(c *gin.Context) {
	baseURL := h.client.ResolveBaseURL(c.Query("endpoint"))

	models, err := h.client.ListModels(c.Request.Context(), baseURL)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Cannot reach model endpoint: " + err.Error(),
		})
		return
	}

	suitable := llm.FilterModels(models, h.extraDeny...)
	if len(suitable) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No suitable text models available at this endpoint",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"models": suitable,
		"total":  len(suitable),
	})
}
