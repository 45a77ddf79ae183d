package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glyph-id/glyph/internal/domain"
	"github.com/glyph-id/glyph/internal/dto"
	"github.com/glyph-id/glyph/internal/service"
	"github.com/google/uuid"
)

const refreshCookiePath = "/api/v1/auth/refresh"

// OAuthHandler handles OAuth login flows and credential refresh
type OAuthHandler struct {
	oauthService  *service.OAuthService
	userService   service.UserService
	issuer        service.IssuerService
	store         *service.ChallengeStore
	stateTTL      time.Duration
	accessExpiry  int
	refreshExpiry int
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(
	oauthService *service.OAuthService,
	userService service.UserService,
	issuer service.IssuerService,
	store *service.ChallengeStore,
	stateTTL time.Duration,
	accessExpiry, refreshExpiry int,
) *OAuthHandler {
	return &OAuthHandler{
		oauthService:  oauthService,
		userService:   userService,
		issuer:        issuer,
		store:         store,
		stateTTL:      stateTTL,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// Login starts an OAuth authorization flow
// @Summary Start OAuth login
// @Description Redirect to the provider's authorization page
// @Tags auth
// @Param provider path string true "OAuth provider"
// @Success 302
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/oauth/{provider}/login [get]
func (h *OAuthHandler) Login(c *gin.Context) {
	provider := c.Param("provider")

	state := uuid.New().String()
	authURL, err := h.oauthService.AuthCodeURL(provider, state)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "Not found",
			Message: "Unknown provider: " + provider,
		})
		return
	}

	// Bind the state nonce to the provider so the callback can verify
	// both in one lookup
	if err := h.store.Put(c.Request.Context(), state, provider, h.stateTTL); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to store login state",
		})
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes an OAuth flow and issues a credential
// @Summary OAuth callback
// @Description Exchange the authorization code, record the auth factor and issue a credential
// @Tags auth
// @Produce json
// @Param provider path string true "OAuth provider"
// @Param code query string true "Authorization code"
// @Param state query string true "State nonce"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /auth/oauth/{provider}/callback [get]
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "Missing code or state parameter",
		})
		return
	}

	boundProvider, err := h.store.Take(c.Request.Context(), state)
	if err != nil || boundProvider != provider {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Invalid or expired state",
		})
		return
	}

	token, err := h.oauthService.Exchange(c.Request.Context(), provider, code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Authorization code exchange failed",
		})
		return
	}

	profile, err := h.oauthService.FetchProfile(c.Request.Context(), provider, token)
	if err != nil {
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Bad gateway",
			Message: "Failed to fetch provider profile",
		})
		return
	}

	user, err := h.userService.GetOrCreateUser(c.Request.Context(), profile.Email, profile.EmailVerified)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	if _, err := h.userService.UpsertFactor(
		c.Request.Context(),
		user.ID, provider, provider, profile.ProviderUserID,
		profile.Metadata(),
	); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	// A provider-verified email is an assurance factor of its own
	if profile.EmailVerified && profile.Email != "" {
		if _, err := h.userService.UpsertFactor(
			c.Request.Context(),
			user.ID, domain.FactorVerifiedEmail, "", profile.Email,
			nil,
		); err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "Internal server error",
				Message: err.Error(),
			})
			return
		}
	}

	pair, _, err := h.issuer.IssueForUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	h.respondWithTokens(c, pair)
}

// Refresh issues a fresh credential pair from a refresh token
// @Summary Refresh credential
// @Description Issue a new credential with recomputed assurance and trust claims
// @Tags auth
// @Produce json
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/refresh [post]
func (h *OAuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie("refresh_token")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "Refresh token not found in cookie",
		})
		return
	}

	pair, err := h.issuer.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Invalid or expired refresh token",
		})
		return
	}

	h.respondWithTokens(c, pair)
}

// respondWithTokens sets the refresh cookie and writes the access token.
// The refresh token travels only in the httpOnly cookie.
func (h *OAuthHandler) respondWithTokens(c *gin.Context, pair *domain.TokenPair) {
	c.SetCookie("refresh_token", pair.RefreshToken, h.refreshExpiry, refreshCookiePath, "", true, true)

	c.JSON(http.StatusOK, dto.TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   h.accessExpiry,
	})
}
