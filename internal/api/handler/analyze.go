package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deniz/checklens/internal/api/middleware"
	"github.com/deniz/checklens/internal/service"
)

// maxImageBytes caps check image uploads at 10 MB.
const maxImageBytes = 10 << 20

var allowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
}

// AnalyzeHandler handles check analysis requests.
type AnalyzeHandler struct {
	analysis *service.AnalysisService
}

// NewAnalyzeHandler creates a new analyze handler.
// Parameters:
//   - analysis: analysis orchestrator.
// Returns:
//   - *AnalyzeHandler: initialized handler.
func NewAnalyzeHandler(analysis *service.AnalysisService) *AnalyzeHandler {
	return &AnalyzeHandler{analysis: analysis}
}

// Analyze handles POST /api/v1/analyze. Blocks until the pipeline
// finishes and returns the full session including the result.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	sess, err := h.analysis.AnalyzeSync(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		var perr *service.PipelineError
		if errors.As(err, &perr) {
			status = perr.Code
		}
		resp := gin.H{"error": err.Error()}
		if sess != nil {
			resp["session_id"] = sess.ID
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, sess)
}

// AnalyzeAsync handles POST /api/v1/analyze/async. Starts the pipeline in
// the background and returns the session id for progress polling.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AnalyzeHandler) AnalyzeAsync(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	sessionID, err := h.analysis.AnalyzeAsync(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		var perr *service.PipelineError
		if errors.As(err, &perr) {
			status = perr.Code
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"session_id": sessionID,
		"message":    "Analysis started. Poll the progress endpoint for updates.",
	})
}

// bindRequest parses the multipart form shared by both analyze endpoints.
// On failure it writes the error response and returns ok=false.
func (h *AnalyzeHandler) bindRequest(c *gin.Context) (*service.AnalysisRequest, bool) {
	log := middleware.GetLogger(c)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Image file is required (multipart field 'image')",
		})
		return nil, false
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Image exceeds the 10 MB size limit",
		})
		return nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read image: " + err.Error(),
		})
		return nil, false
	}
	if len(data) > maxImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Image exceeds the 10 MB size limit",
		})
		return nil, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !allowedContentTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unsupported content type " + contentType + "; expected png, jpeg or webp",
		})
		return nil, false
	}

	var models []string
	rawModels := c.PostForm("models")
	if rawModels == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Form field 'models' is required (JSON array of model names)",
		})
		return nil, false
	}
	if err := json.Unmarshal([]byte(rawModels), &models); err != nil || len(models) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Form field 'models' must be a non-empty JSON array of model names",
		})
		return nil, false
	}

	log.WithField("models", models).Debugf("analyze request: %d byte image, content type %s", len(data), contentType)

	return &service.AnalysisRequest{
		Image:            data,
		ContentType:      contentType,
		Models:           models,
		EndpointOverride: c.Query("endpoint"),
	}, true
}
