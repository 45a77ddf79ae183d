package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glyph-id/glyph/internal/credential"
	"github.com/glyph-id/glyph/internal/dto"
	"github.com/glyph-id/glyph/internal/repository"
	"github.com/glyph-id/glyph/internal/service"
)

// TrustHandler handles trust signal ingestion, consent and explanation
type TrustHandler struct {
	signalService service.SignalService
	issuer        service.IssuerService
	rateLimiter   *service.RateLimiter
}

// NewTrustHandler creates a new trust handler
func NewTrustHandler(
	signalService service.SignalService,
	issuer service.IssuerService,
	rateLimiter *service.RateLimiter,
) *TrustHandler {
	return &TrustHandler{
		signalService: signalService,
		issuer:        issuer,
		rateLimiter:   rateLimiter,
	}
}

// ReportSignal ingests a trust signal report from an external issuer
// @Summary Report a trust signal
// @Description Record a signal report, accumulating counts for repeated reports
// @Tags trust
// @Accept json
// @Produce json
// @Param request body dto.SignalReportRequest true "Signal report"
// @Success 201 {object} dto.SignalAcceptedResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /trust/signals [post]
func (h *TrustHandler) ReportSignal(c *gin.Context) {
	var req dto.SignalReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	// Per-issuer daily cap, disclosed in every credential's policy block
	allowed, remaining, err := h.rateLimiter.Allow(
		c.Request.Context(),
		"issuer:"+req.Issuer,
		credential.IssuerDailyCap,
		24*time.Hour,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: "Failed to check issuer rate limit",
		})
		return
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(credential.IssuerDailyCap))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

	if !allowed {
		c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error:   "Too Many Requests",
			Message: "Issuer daily report cap exceeded",
		})
		return
	}

	report := &service.SignalReport{
		UserID:             req.UserID,
		Issuer:             req.Issuer,
		Kind:               req.Kind,
		Count:              req.Count,
		Weight:             req.Weight,
		IndependenceFactor: req.IndependenceFactor,
		Credibility:        req.Credibility,
		JWS:                req.JWS,
		ConsentGranted:     req.ConsentGranted,
		ConsentScope:       req.ConsentScope,
		Metadata:           req.Metadata,
	}
	if report.IndependenceFactor == 0 {
		report.IndependenceFactor = 1.0
	}
	if report.Credibility == 0 {
		report.Credibility = 1.0
	}

	if req.Since != nil {
		since, err := time.Parse(time.RFC3339, *req.Since)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Message: "since must be RFC 3339",
			})
			return
		}
		report.Since = &since
	}
	if req.ExpiresAt != nil {
		expiresAt, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Message: "expires_at must be RFC 3339",
			})
			return
		}
		report.ExpiresAt = &expiresAt
	}

	signal, err := h.signalService.Report(c.Request.Context(), report)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "Not found",
				Message: "Unknown user",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, dto.SignalAcceptedResponse{
		Issuer:         signal.Issuer,
		Kind:           signal.Kind,
		Count:          signal.Count,
		ConsentGranted: signal.ConsentGranted,
	})
}

// UpdateConsent updates the caller's sharing decision for one signal
// @Summary Update signal consent
// @Description Grant or revoke sharing consent for one (issuer, kind) signal
// @Tags trust
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.ConsentUpdateRequest true "Consent update"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /me/trust/consent [put]
func (h *TrustHandler) UpdateConsent(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "User ID not found in context",
		})
		return
	}

	var req dto.ConsentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	err := h.signalService.UpdateConsent(c.Request.Context(), userID.(string), req.Issuer, req.Kind, req.Granted, req.Scope)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "Not found",
				Message: "No such signal",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Consent updated",
	})
}

// GetTrust explains the caller's current trust risk
// @Summary Get trust summary
// @Description Return the risk score, band and consented provenance for the caller
// @Tags trust
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.TrustSummary
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /me/trust [get]
func (h *TrustHandler) GetTrust(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "User ID not found in context",
		})
		return
	}

	summary, err := h.issuer.TrustSummary(c.Request.Context(), userID.(string))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Error:   "Not found",
				Message: "Unknown user",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}
