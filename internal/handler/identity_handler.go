package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ndvi-gateway/internal/dto"
	"github.com/noah-isme/ndvi-gateway/internal/identity"
	"github.com/noah-isme/ndvi-gateway/internal/middleware"
	"github.com/noah-isme/ndvi-gateway/internal/validation"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
	"github.com/noah-isme/ndvi-gateway/pkg/response"
)

// IdentityHandler manages the caller's client user id.
type IdentityHandler struct{}

// NewIdentityHandler builds a new handler.
func NewIdentityHandler() *IdentityHandler {
	return &IdentityHandler{}
}

// Get godoc
// @Summary Current client user id
// @Description Returns the id scoping the caller's analyses, issuing one on first use.
// @Tags Identity
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /identity [get]
func (h *IdentityHandler) Get(c *gin.Context) {
	id, ok := identity.UserIDFromContext(c.Request.Context())
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "identity middleware not installed"))
		return
	}
	response.JSON(c, http.StatusOK, dto.IdentityResponse{UserID: id}, nil)
}

// Set godoc
// @Summary Replace the client user id
// @Tags Identity
// @Accept json
// @Produce json
// @Param payload body dto.SetIdentityRequest true "New user id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /identity [put]
func (h *IdentityHandler) Set(c *gin.Context) {
	var req dto.SetIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := validation.ValidateUserID(req.UserID); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	provider := middleware.IdentityProvider(c)
	if err := provider.SetUserID(c.Request.Context(), req.UserID); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to store user id"))
		return
	}
	middleware.BindUserID(c, req.UserID)
	response.JSON(c, http.StatusOK, dto.IdentityResponse{UserID: req.UserID}, nil)
}

// Reset godoc
// @Summary Forget the client user id
// @Description The next request is issued a fresh id. Analyses stay on the backend under the old id.
// @Tags Identity
// @Success 204
// @Router /identity [delete]
func (h *IdentityHandler) Reset(c *gin.Context) {
	provider := middleware.IdentityProvider(c)
	if err := provider.ClearUserData(c.Request.Context()); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to clear user id"))
		return
	}
	response.NoContent(c)
}
