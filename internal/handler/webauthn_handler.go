package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/glyph-id/glyph/internal/domain"
	"github.com/glyph-id/glyph/internal/dto"
	"github.com/glyph-id/glyph/internal/repository"
	"github.com/glyph-id/glyph/internal/service"
)

// WebAuthnHandler handles passkey registration and authentication
type WebAuthnHandler struct {
	userService     service.UserService
	issuer          service.IssuerService
	webauthnService *service.WebAuthnService
	accessExpiry    int
	refreshExpiry   int
}

// NewWebAuthnHandler creates a new WebAuthn handler
func NewWebAuthnHandler(
	userService service.UserService,
	issuer service.IssuerService,
	webauthnService *service.WebAuthnService,
	accessExpiry, refreshExpiry int,
) *WebAuthnHandler {
	return &WebAuthnHandler{
		userService:     userService,
		issuer:          issuer,
		webauthnService: webauthnService,
		accessExpiry:    accessExpiry,
		refreshExpiry:   refreshExpiry,
	}
}

// RegisterStart begins passkey registration
// @Summary Start passkey registration
// @Description Create the user if needed and return creation options with a challenge id
// @Tags webauthn
// @Accept json
// @Produce json
// @Param request body dto.WebAuthnStartRequest true "Registration start request"
// @Success 200 {object} dto.WebAuthnStartResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/webauthn/register/start [post]
func (h *WebAuthnHandler) RegisterStart(c *gin.Context) {
	var req dto.WebAuthnStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	user, err := h.userService.GetOrCreateUser(c.Request.Context(), req.Email, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	factors, err := h.userService.ListFactors(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	challengeID, options, err := h.webauthnService.BeginRegistration(c.Request.Context(), user, factors)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.WebAuthnStartResponse{
		ChallengeID: challengeID,
		Options:     options,
	})
}

// RegisterFinish completes passkey registration and issues a credential
// @Summary Finish passkey registration
// @Description Verify the attestation, record the webauthn factor and issue a credential
// @Tags webauthn
// @Accept json
// @Produce json
// @Param request body dto.WebAuthnFinishRequest true "Registration finish request"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/webauthn/register/finish [post]
func (h *WebAuthnHandler) RegisterFinish(c *gin.Context) {
	var req dto.WebAuthnFinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	user, err := h.userService.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	factors, err := h.userService.ListFactors(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	metadata, err := h.webauthnService.FinishRegistration(c.Request.Context(), user, factors, req.ChallengeID, req.Credential)
	if err != nil {
		h.respondCeremonyError(c, err)
		return
	}

	h.recordFactorAndIssue(c, user.ID, metadata)
}

// AuthenticateStart begins passkey authentication
// @Summary Start passkey authentication
// @Description Return assertion options with a challenge id for an enrolled user
// @Tags webauthn
// @Accept json
// @Produce json
// @Param request body dto.WebAuthnStartRequest true "Authentication start request"
// @Success 200 {object} dto.WebAuthnStartResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/webauthn/authenticate/start [post]
func (h *WebAuthnHandler) AuthenticateStart(c *gin.Context) {
	var req dto.WebAuthnStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	user, err := h.userService.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	factors, err := h.userService.ListFactors(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	challengeID, options, err := h.webauthnService.BeginLogin(c.Request.Context(), user, factors)
	if err != nil {
		if errors.Is(err, service.ErrNoCredentials) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "Not found",
				Message: "No passkey registered for this account",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.WebAuthnStartResponse{
		ChallengeID: challengeID,
		Options:     options,
	})
}

// AuthenticateFinish completes passkey authentication and issues a credential
// @Summary Finish passkey authentication
// @Description Verify the assertion, refresh the webauthn factor and issue a credential
// @Tags webauthn
// @Accept json
// @Produce json
// @Param request body dto.WebAuthnFinishRequest true "Authentication finish request"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/webauthn/authenticate/finish [post]
func (h *WebAuthnHandler) AuthenticateFinish(c *gin.Context) {
	var req dto.WebAuthnFinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	user, err := h.userService.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	factors, err := h.userService.ListFactors(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	metadata, err := h.webauthnService.FinishLogin(c.Request.Context(), user, factors, req.ChallengeID, req.Credential)
	if err != nil {
		h.respondCeremonyError(c, err)
		return
	}

	// Re-upsert to persist the advanced signature counter and bump
	// last-used
	h.recordFactorAndIssue(c, user.ID, metadata)
}

func (h *WebAuthnHandler) recordFactorAndIssue(c *gin.Context, userID string, metadata domain.Metadata) {
	if _, err := h.userService.UpsertFactor(
		c.Request.Context(),
		userID, domain.FactorWebAuthn, "", metadata.String("credential_id"),
		metadata,
	); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	pair, _, err := h.issuer.IssueForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.SetCookie("refresh_token", pair.RefreshToken, h.refreshExpiry, refreshCookiePath, "", true, true)

	c.JSON(http.StatusOK, dto.TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   h.accessExpiry,
	})
}

func (h *WebAuthnHandler) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not found",
			Message: "Unknown account",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:   "Internal server error",
		Message: err.Error(),
	})
}

func (h *WebAuthnHandler) respondCeremonyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrChallengeNotFound):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Challenge not found or expired",
		})
	case errors.Is(err, service.ErrVerificationFailed):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Credential verification failed",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
	}
}
