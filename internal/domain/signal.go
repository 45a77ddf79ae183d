package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Trust signal kinds with dedicated base weights. Other kinds are
// accepted and scored with a default weight.
const (
	SignalBlock = "block"
	SignalMute  = "mute"
)

// KindScope describes per-kind sharing rules inside a consent scope.
// An empty issuer list means every issuer is allowed once sharing is on.
type KindScope struct {
	Share   bool     `json:"share"`
	Issuers []string `json:"issuers,omitempty"`
}

// ConsentScope maps a signal kind to its sharing rules. Stored as JSONB.
type ConsentScope map[string]KindScope

// Value implements driver.Valuer
func (c ConsentScope) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner
func (c *ConsentScope) Scan(src any) error {
	if src == nil {
		*c = ConsentScope{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("consent scope: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, c)
}

// TrustSignal is one reputation report about a user from an external
// issuer. Reports for the same (user, issuer, kind) accumulate into a
// single row. Only consent-granted signals ever reach risk computation
// or provenance disclosure.
type TrustSignal struct {
	ID                 string       `json:"id" db:"id"`
	UserID             string       `json:"user_id" db:"user_id"`
	Issuer             string       `json:"issuer" db:"issuer"`
	Kind               string       `json:"kind" db:"kind"`
	Count              int          `json:"count" db:"count"`
	Weight             float64      `json:"weight" db:"weight"`
	IndependenceFactor float64      `json:"independence_factor" db:"independence_factor"`
	Credibility        float64      `json:"credibility" db:"credibility"`
	JWS                string       `json:"jws,omitempty" db:"jws"`
	ConsentGranted     bool         `json:"consent_granted" db:"consent_granted"`
	ConsentScope       ConsentScope `json:"consent_scope" db:"consent_scope"`
	Metadata           Metadata     `json:"metadata" db:"metadata"`
	Since              time.Time    `json:"since" db:"since"`
	ExpiresAt          *time.Time   `json:"expires_at" db:"expires_at"`
	CreatedAt          time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at" db:"updated_at"`
}
