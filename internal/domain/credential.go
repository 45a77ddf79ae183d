package domain

import "time"

// Assurance levels, ordered alpha < beta < gamma.
type AssuranceLevel string

const (
	LevelAlpha AssuranceLevel = "alpha"
	LevelBeta  AssuranceLevel = "beta"
	LevelGamma AssuranceLevel = "gamma"
)

// Risk bands derived from the aggregated trust risk score.
type RiskBand string

const (
	BandLow    RiskBand = "low"
	BandMedium RiskBand = "medium"
	BandHigh   RiskBand = "high"
)

// AssuranceClaim is the assurance block of an issued credential.
type AssuranceClaim struct {
	Score         int            `json:"score"`
	Level         AssuranceLevel `json:"level"`
	Factors       []string       `json:"factors"`
	FreshnessDays int            `json:"freshness_days"`
}

// TrustRisk is the scored risk block of an issued credential.
type TrustRisk struct {
	Score     int      `json:"score"`
	Band      RiskBand `json:"band"`
	UpdatedAt string   `json:"updated_at"`
	TTLSec    int      `json:"ttl_sec"`
}

// TrustProvenance is one disclosed contributing signal.
type TrustProvenance struct {
	Issuer    string  `json:"issuer"`
	Kind      string  `json:"kind"`
	Count     int     `json:"count"`
	Since     string  `json:"since"`
	JWS       string  `json:"jws"`
	ExpiresAt string  `json:"expires_at"`
	Weight    float64 `json:"weight"`
}

// TrustClaims is the full trust block: scored risk, bounded provenance
// and the static consent/policy/transparency/legal configuration.
type TrustClaims struct {
	Risk         TrustRisk         `json:"risk"`
	Provenance   []TrustProvenance `json:"provenance"`
	Consent      map[string]any    `json:"consent"`
	Policy       map[string]any    `json:"policy"`
	Transparency map[string]any    `json:"transparency"`
	Legal        map[string]any    `json:"legal"`
}

// Extensions carries non-core credential blocks.
type Extensions struct {
	TrustSignals TrustClaims `json:"trust_signals"`
}

// GlyphClaims is the canonical credential payload embedded into the
// signed access token.
type GlyphClaims struct {
	Assurance  AssuranceClaim `json:"aegis_assurance"`
	Extensions Extensions     `json:"extensions"`
}

// TokenPair is the signed credential handed to the caller.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// TokenClaims are the validated claims of an access token.
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Exp    int64  `json:"exp"`
	Iat    int64  `json:"iat"`
}

// IsExpired reports whether the token claims are past their expiry.
func (tc TokenClaims) IsExpired() bool {
	return time.Now().Unix() > tc.Exp
}
