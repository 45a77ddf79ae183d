// Package credential assembles the signed Glyph credential from the
// assurance and trust engine outputs. The assembler is deterministic
// and stateless: every issuance recomputes from the current factor and
// signal snapshot, and signing is delegated to a collaborator.
package credential

import (
	"time"

	"github.com/glyph-id/glyph/internal/assurance"
	"github.com/glyph-id/glyph/internal/domain"
	"github.com/glyph-id/glyph/internal/trust"
)

// Fixed transparency and legal endpoints disclosed in every credential.
const (
	appealsURL    = "https://glyph.id/appeals"
	receiptsURL   = "https://glyph.id/me/trust/receipts"
	explainURL    = "https://glyph.id/me/trust/explain"
	disclaimerURL = "https://glyph.id/legal/trust-disclaimer"
)

// IssuerDailyCap limits how many reports a single issuer may file per
// day, enforced at ingestion and disclosed in the policy block.
const IssuerDailyCap = 50

// Signer signs the assembled claims. Implemented by utils.JWTManager.
type Signer interface {
	SignAccessToken(userID, email string, claims domain.GlyphClaims) (string, error)
	SignRefreshToken(userID string) (string, error)
}

// Policy carries the static policy knobs disclosed in the trust block.
type Policy struct {
	HalfLifeDays    int
	MinFreshness    float64
	RetentionDays   int
	ProvenanceLimit int
	RiskTTL         time.Duration
}

// Assembler composes calculator outputs into a signed credential.
type Assembler struct {
	assuranceCalc *assurance.Calculator
	trustCalc     *trust.Calculator
	signer        Signer
	policy        Policy
	now           func() time.Time
}

// NewAssembler creates an assembler.
func NewAssembler(
	assuranceCalc *assurance.Calculator,
	trustCalc *trust.Calculator,
	signer Signer,
	policy Policy,
) *Assembler {
	return &Assembler{
		assuranceCalc: assuranceCalc,
		trustCalc:     trustCalc,
		signer:        signer,
		policy:        policy,
		now:           time.Now,
	}
}

// WithClock overrides the clock, for deterministic tests.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// Issue builds the credential payload for the user's current factors
// and signals and signs it. Zero factors is not an error: the
// credential degenerates to score 0, level alpha.
func (a *Assembler) Issue(
	user *domain.User,
	factors []domain.AuthFactor,
	signals []domain.TrustSignal,
) (*domain.TokenPair, *domain.GlyphClaims, error) {
	claims := a.Assemble(factors, signals)

	accessToken, err := a.signer.SignAccessToken(user.ID, user.Email, *claims)
	if err != nil {
		return nil, nil, err
	}

	refreshToken, err := a.signer.SignRefreshToken(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, claims, nil
}

// Assemble builds the unsigned credential payload. Each calculator is
// invoked exactly once.
func (a *Assembler) Assemble(
	factors []domain.AuthFactor,
	signals []domain.TrustSignal,
) *domain.GlyphClaims {
	score, level := a.assuranceCalc.Calculate(factors)
	freshnessDays := a.assuranceCalc.FreshnessDays(factors)

	factorTypes := make([]string, 0, len(factors))
	for _, factor := range factors {
		factorTypes = append(factorTypes, factor.FactorType)
	}

	riskScore, riskBand := a.trustCalc.Risk(signals)
	consented := a.trustCalc.FilterByConsent(signals, "")

	return &domain.GlyphClaims{
		Assurance: domain.AssuranceClaim{
			Score:         score,
			Level:         level,
			Factors:       factorTypes,
			FreshnessDays: freshnessDays,
		},
		Extensions: domain.Extensions{
			TrustSignals: domain.TrustClaims{
				Risk: domain.TrustRisk{
					Score:     riskScore,
					Band:      riskBand,
					UpdatedAt: a.now().UTC().Format(time.RFC3339),
					TTLSec:    int(a.policy.RiskTTL.Seconds()),
				},
				Provenance:   a.buildProvenance(consented),
				Consent:      a.consentBlock(),
				Policy:       a.policyBlock(),
				Transparency: a.transparencyBlock(),
				Legal:        a.legalBlock(),
			},
		},
	}
}

// buildProvenance discloses the first limit consented signals that
// carry both a since and an expiry timestamp, in original order.
// Incomplete signals are passed over and later qualifying signals
// fill their slots.
func (a *Assembler) buildProvenance(consented []domain.TrustSignal) []domain.TrustProvenance {
	provenance := make([]domain.TrustProvenance, 0, a.policy.ProvenanceLimit)

	for _, signal := range consented {
		if len(provenance) >= a.policy.ProvenanceLimit {
			break
		}
		if signal.ExpiresAt == nil || signal.Since.IsZero() {
			continue
		}
		provenance = append(provenance, domain.TrustProvenance{
			Issuer:    signal.Issuer,
			Kind:      signal.Kind,
			Count:     signal.Count,
			Since:     signal.Since.UTC().Format(time.RFC3339),
			JWS:       signal.JWS,
			ExpiresAt: signal.ExpiresAt.UTC().Format(time.RFC3339),
			Weight:    signal.Weight,
		})
	}

	return provenance
}

func (a *Assembler) consentBlock() map[string]any {
	return map[string]any{
		"granted": true,
		"scope": map[string]any{
			domain.SignalBlock: map[string]any{"share": true},
			domain.SignalMute:  map[string]any{"share": false},
		},
		"retention": map[string]any{
			"max_age_days": a.policy.RetentionDays,
			"auto_decay":   true,
		},
	}
}

func (a *Assembler) policyBlock() map[string]any {
	return map[string]any{
		"decay": map[string]any{
			"half_life_days": a.policy.HalfLifeDays,
			"min_factor":     a.policy.MinFreshness,
		},
		"caps":        map[string]any{"issuer_daily_max": IssuerDailyCap},
		"appeals_url": appealsURL,
	}
}

func (a *Assembler) transparencyBlock() map[string]any {
	return map[string]any{
		"receipts_endpoint": receiptsURL,
		"explain_url":       explainURL,
	}
}

func (a *Assembler) legalBlock() map[string]any {
	return map[string]any{
		"disclaimer_url":  disclaimerURL,
		"indemnification": true,
		"liability_cap":   "signals-are-advisory",
	}
}
