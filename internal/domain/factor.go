package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Factor types contributing to the assurance score.
const (
	FactorWebAuthn      = "webauthn"
	FactorGoogle        = "google"
	FactorMicrosoft     = "microsoft"
	FactorGitHub        = "github"
	FactorX             = "x"
	FactorTwitter       = "twitter"
	FactorVerifiedEmail = "verified_email"
	FactorKYC           = "kyc"
)

// Metadata is an open, string-keyed map of JSON-safe values carried by
// factors and signals. Stored as JSONB.
type Metadata map[string]any

// Value implements driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("metadata: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, m)
}

// String returns the string value for key, or "" when absent or not a string.
func (m Metadata) String(key string) string {
	v, _ := m[key].(string)
	return v
}

// AuthFactor is one authentication method bound to a user. At most one
// row exists per (user, factor type, provider); re-authentication via
// the same method updates last_used_at and metadata in place.
type AuthFactor struct {
	ID                 string     `json:"id" db:"id"`
	UserID             string     `json:"user_id" db:"user_id"`
	FactorType         string     `json:"factor_type" db:"factor_type"`
	Provider           string     `json:"provider,omitempty" db:"provider"`
	ProviderUserID     string     `json:"provider_user_id,omitempty" db:"provider_user_id"`
	BaseWeight         int        `json:"base_weight" db:"base_weight"`
	IndependenceFactor float64    `json:"independence_factor" db:"independence_factor"`
	Metadata           Metadata   `json:"metadata" db:"metadata"`
	LastUsedAt         *time.Time `json:"last_used_at" db:"last_used_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}
