package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glyph-id/glyph/internal/assurance"
	"github.com/glyph-id/glyph/internal/domain"
	"github.com/glyph-id/glyph/internal/dto"
	"github.com/glyph-id/glyph/internal/repository"
	"github.com/glyph-id/glyph/internal/service"
)

// MeHandler handles the authenticated user's own profile
type MeHandler struct {
	userService   service.UserService
	assuranceCalc *assurance.Calculator
}

// NewMeHandler creates a new me handler
func NewMeHandler(userService service.UserService, assuranceCalc *assurance.Calculator) *MeHandler {
	return &MeHandler{
		userService:   userService,
		assuranceCalc: assuranceCalc,
	}
}

// GetMe returns the caller's profile with live assurance
// @Summary Get current user profile
// @Description Return identity, enrolled factors and the assurance a credential minted now would carry
// @Tags me
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.MeResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /me [get]
func (h *MeHandler) GetMe(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "User ID not found in context",
		})
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID.(string))
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

	factors, err := h.userService.ListFactors(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	score, level := h.assuranceCalc.Calculate(factors)

	factorTypes := make([]string, 0, len(factors))
	factorInfos := make([]dto.FactorInfo, 0, len(factors))
	for _, factor := range factors {
		factorTypes = append(factorTypes, factor.FactorType)
		factorInfos = append(factorInfos, factorInfo(factor))
	}

	c.JSON(http.StatusOK, dto.MeResponse{
		ID:            user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.UTC().Format(time.RFC3339),
		Assurance: domain.AssuranceClaim{
			Score:         score,
			Level:         level,
			Factors:       factorTypes,
			FreshnessDays: h.assuranceCalc.FreshnessDays(factors),
		},
		Factors: factorInfos,
	})
}

func factorInfo(factor domain.AuthFactor) dto.FactorInfo {
	info := dto.FactorInfo{
		FactorType: factor.FactorType,
		Provider:   factor.Provider,
		BaseWeight: factor.BaseWeight,
		CreatedAt:  factor.CreatedAt.UTC().Format(time.RFC3339),
	}
	if factor.LastUsedAt != nil {
		lastUsed := factor.LastUsedAt.UTC().Format(time.RFC3339)
		info.LastUsedAt = &lastUsed
	}
	return info
}
