package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gurwnx222/research-publication-portal/internal/middleware"
	"github.com/gurwnx222/research-publication-portal/internal/models"
	appErrors "github.com/gurwnx222/research-publication-portal/pkg/errors"
	"github.com/gurwnx222/research-publication-portal/pkg/response"
)

type accessResolver interface {
	Authenticate(ctx context.Context, req models.AuthenticateRequest) (*models.AccessGrant, error)
}

type sessionRegistry interface {
	Login(grant models.AccessGrant) (*models.SessionToken, error)
	Logout(sessionID string)
}

// PortalHandler wires viewer authentication to HTTP endpoints.
type PortalHandler struct {
	access   accessResolver
	sessions sessionRegistry
}

// NewPortalHandler creates a new handler.
func NewPortalHandler(access accessResolver, sessions sessionRegistry) *PortalHandler {
	return &PortalHandler{access: access, sessions: sessions}
}

// Login godoc
// @Summary Authenticate a publication viewer
// @Description Resolve employee ID, access level and access password into a viewer session
// @Tags Portal
// @Accept json
// @Produce json
// @Param payload body models.AuthenticateRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /portal/login [post]
func (h *PortalHandler) Login(c *gin.Context) {
	var req models.AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	grant, err := h.access.Authenticate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.sessions.Login(*grant)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, token, nil)
}

// Logout godoc
// @Summary End the viewer session
// @Description Revoke the session and reset its viewer state
// @Tags Portal
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /portal/logout [post]
func (h *PortalHandler) Logout(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	h.sessions.Logout(session.ID)
	response.NoContent(c)
}
