package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gurwnx222/research-publication-portal/internal/middleware"
	"github.com/gurwnx222/research-publication-portal/internal/models"
	"github.com/gurwnx222/research-publication-portal/internal/service"
	"github.com/gurwnx222/research-publication-portal/internal/viewer"
	appErrors "github.com/gurwnx222/research-publication-portal/pkg/errors"
	"github.com/gurwnx222/research-publication-portal/pkg/response"
)

type listingExporter interface {
	Export(ctx context.Context, grant models.AccessGrant, searchTerm string, format service.ReportFormat) (*service.ExportResult, error)
}

// PublicationHandler serves the session-scoped publication viewer.
type PublicationHandler struct {
	exports listingExporter
}

// NewPublicationHandler constructs the handler.
func NewPublicationHandler(exports listingExporter) *PublicationHandler {
	return &PublicationHandler{exports: exports}
}

// List godoc
// @Summary Browse publications visible to the session
// @Description Tier-scoped, searched and paginated publication listing as a render model
// @Tags Publications
// @Produce json
// @Param search query string false "Free-text search term"
// @Param page query int false "1-indexed page number"
// @Param retry query bool false "Re-run the last query instead"
// @Param poll query bool false "Return the current state without querying"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /portal/publications [get]
func (h *PublicationHandler) List(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	start := time.Now()

	if c.Query("poll") == "true" {
		h.renderSnapshot(c, session.Viewer.Snapshot(), start)
		return
	}

	if c.Query("retry") == "true" {
		snapshot := session.Viewer.Retry(c.Request.Context())
		h.renderSnapshot(c, snapshot, start)
		return
	}

	searchTerm := strings.TrimSpace(c.Query("search"))

	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid page %q", raw)))
			return
		}
		page = parsed
	}

	snapshot := session.Viewer.Refresh(c.Request.Context(), searchTerm, page)
	h.renderSnapshot(c, snapshot, start)
}

type searchInputRequest struct {
	Term string `json:"term"`
}

// SearchInput godoc
// @Summary Register a search keystroke
// @Description Debounce keystroke-level search input; the refresh fires after the configured interval and is readable via the poll parameter of the listing endpoint
// @Tags Publications
// @Accept json
// @Produce json
// @Param payload body searchInputRequest true "Current search input"
// @Success 202
// @Failure 401 {object} response.Envelope
// @Router /portal/publications/search [post]
func (h *PublicationHandler) SearchInput(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req searchInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid search payload"))
		return
	}

	session.Viewer.SetSearchInput(strings.TrimSpace(req.Term))
	c.Status(http.StatusAccepted)
}

// Export godoc
// @Summary Export the session's publication scope
// @Description Render the visible publications as a CSV or PDF listing report
// @Tags Publications
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf (default csv)"
// @Param search query string false "Free-text search term"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /portal/publications/export [get]
func (h *PublicationHandler) Export(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := service.ReportFormat(c.DefaultQuery("format", string(service.ReportFormatCSV)))
	searchTerm := strings.TrimSpace(c.Query("search"))
	if searchTerm == "" {
		searchTerm = session.Viewer.Snapshot().SearchTerm
	}

	result, err := h.exports.Export(c.Request.Context(), session.Grant, searchTerm, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

func (h *PublicationHandler) renderSnapshot(c *gin.Context, snapshot viewer.Snapshot, start time.Time) {
	pagination := &models.Pagination{
		Page:       snapshot.Page,
		PageSize:   snapshot.PageSize,
		TotalCount: snapshot.TotalCount,
	}
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, snapshot, pagination, meta)
}
