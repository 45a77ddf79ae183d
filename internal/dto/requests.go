package dto

import (
	"encoding/json"

	"github.com/glyph-id/glyph/internal/domain"
)

// WebAuthnStartRequest begins a passkey ceremony for an email identity.
// Registration creates the user on first contact; authentication
// requires an existing user with registered credentials.
type WebAuthnStartRequest struct {
	Email string `json:"email" binding:"required,email" validate:"required,email"`
}

// WebAuthnFinishRequest completes a passkey ceremony. Credential is the
// raw authenticator response, passed through to the verifier unparsed.
type WebAuthnFinishRequest struct {
	Email       string          `json:"email" binding:"required,email" validate:"required,email"`
	ChallengeID string          `json:"challenge_id" binding:"required" validate:"required"`
	Credential  json.RawMessage `json:"credential" binding:"required" validate:"required"`
}

// SignalReportRequest is a trust signal report from an external issuer
type SignalReportRequest struct {
	UserID             string              `json:"user_id" binding:"required,uuid" validate:"required,uuid"`
	Issuer             string              `json:"issuer" binding:"required" validate:"required"`
	Kind               string              `json:"kind" binding:"required" validate:"required"`
	Count              int                 `json:"count" binding:"omitempty,min=1"`
	Weight             float64             `json:"weight" binding:"required,gt=0" validate:"required,gt=0"`
	IndependenceFactor float64             `json:"independence_factor" binding:"omitempty,gt=0,lte=1"`
	Credibility        float64             `json:"credibility" binding:"omitempty,gt=0,lte=1"`
	JWS                string              `json:"jws"`
	Since              *string             `json:"since"`
	ExpiresAt          *string             `json:"expires_at"`
	ConsentGranted     bool                `json:"consent_granted"`
	ConsentScope       domain.ConsentScope `json:"consent_scope"`
	Metadata           domain.Metadata     `json:"metadata"`
}

// ConsentUpdateRequest updates the sharing decision for one signal
type ConsentUpdateRequest struct {
	Issuer  string              `json:"issuer" binding:"required" validate:"required"`
	Kind    string              `json:"kind" binding:"required" validate:"required"`
	Granted bool                `json:"granted"`
	Scope   domain.ConsentScope `json:"scope"`
}

// WebAuthnStartResponse carries the ceremony options and the challenge
// id binding them to one finish call
type WebAuthnStartResponse struct {
	ChallengeID string `json:"challenge_id"`
	Options     any    `json:"options"`
}

// SignalAcceptedResponse acknowledges an ingested trust signal report
type SignalAcceptedResponse struct {
	Issuer         string `json:"issuer"`
	Kind           string `json:"kind"`
	Count          int    `json:"count"`
	ConsentGranted bool   `json:"consent_granted"`
}

// TokenResponse carries an issued credential pair
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// MeResponse describes the caller's identity and current assurance
type MeResponse struct {
	ID            string                `json:"id"`
	Email         string                `json:"email"`
	EmailVerified bool                  `json:"email_verified"`
	CreatedAt     string                `json:"created_at"`
	Assurance     domain.AssuranceClaim `json:"assurance"`
	Factors       []FactorInfo          `json:"factors"`
}

// FactorInfo summarizes one enrolled auth factor
type FactorInfo struct {
	FactorType string  `json:"factor_type"`
	Provider   string  `json:"provider,omitempty"`
	BaseWeight int     `json:"base_weight"`
	LastUsedAt *string `json:"last_used_at"`
	CreatedAt  string  `json:"created_at"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
