// Package assurance computes the assurance score and level from a
// user's authentication factors. The calculator is a pure function of
// the factor snapshot and the clock: no storage, no shared state.
package assurance

import (
	"time"

	"github.com/glyph-id/glyph/internal/domain"
)

// DefaultWeights is the base points table per factor type. Unknown
// types contribute nothing.
var DefaultWeights = map[string]int{
	domain.FactorWebAuthn:      35,
	domain.FactorGoogle:        25,
	domain.FactorMicrosoft:     25,
	domain.FactorGitHub:        15,
	domain.FactorX:             15,
	domain.FactorTwitter:       15,
	domain.FactorVerifiedEmail: 10,
	domain.FactorKYC:           40,
}

// noAuthSentinel is returned by FreshnessDays when no factor has ever
// been used.
const noAuthSentinel = 999

// gammaRecencyDays bounds how stale the most recent authentication may
// be for the gamma level.
const gammaRecencyDays = 30

// Config carries the injected weight table and level thresholds.
type Config struct {
	Weights    map[string]int
	LevelBeta  int
	LevelGamma int
}

// Calculator computes assurance scores. Safe for concurrent use.
type Calculator struct {
	weights    map[string]int
	levelBeta  int
	levelGamma int
	now        func() time.Time
}

// NewCalculator creates a calculator. A nil weight table falls back to
// DefaultWeights.
func NewCalculator(cfg Config) *Calculator {
	weights := cfg.Weights
	if weights == nil {
		weights = DefaultWeights
	}
	return &Calculator{
		weights:    weights,
		levelBeta:  cfg.LevelBeta,
		levelGamma: cfg.LevelGamma,
		now:        time.Now,
	}
}

// WithClock overrides the clock, for deterministic tests.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

// WeightFor returns the base weight for a factor type.
func (c *Calculator) WeightFor(factorType string) int {
	return c.weights[factorType]
}

// Calculate returns the truncated total score and the assurance level
// for a set of factors. An empty set scores 0 at level alpha.
func (c *Calculator) Calculate(factors []domain.AuthFactor) (int, domain.AssuranceLevel) {
	if len(factors) == 0 {
		return 0, domain.LevelAlpha
	}

	now := c.now()

	var totalScore float64
	var mostRecent *time.Time
	factorTypes := make([]string, 0, len(factors))

	for _, factor := range factors {
		weight := float64(c.weights[factor.FactorType])
		weight *= factor.IndependenceFactor

		if factor.LastUsedAt != nil {
			daysSince := daysBetween(*factor.LastUsedAt, now)
			weight *= freshnessMultiplier(daysSince)

			if mostRecent == nil || factor.LastUsedAt.After(*mostRecent) {
				mostRecent = factor.LastUsedAt
			}
		}

		totalScore += weight
		factorTypes = append(factorTypes, factor.FactorType)
	}

	score := int(totalScore)
	return score, c.determineLevel(score, factorTypes, mostRecent, now)
}

// FreshnessDays returns days since the most recent authentication
// across all factors, or 999 when none has a last-used timestamp.
func (c *Calculator) FreshnessDays(factors []domain.AuthFactor) int {
	var mostRecent *time.Time
	for _, factor := range factors {
		if factor.LastUsedAt == nil {
			continue
		}
		if mostRecent == nil || factor.LastUsedAt.After(*mostRecent) {
			mostRecent = factor.LastUsedAt
		}
	}

	if mostRecent == nil {
		return noAuthSentinel
	}

	return daysBetween(*mostRecent, c.now())
}

// determineLevel applies the level rules. Gamma needs the score, a
// webauthn factor and a recent authentication; a stale webauthn factor
// never grants gamma, the score falls through to beta/alpha instead.
func (c *Calculator) determineLevel(
	score int,
	factorTypes []string,
	mostRecent *time.Time,
	now time.Time,
) domain.AssuranceLevel {
	if score >= c.levelGamma {
		if containsFactor(factorTypes, domain.FactorWebAuthn) && mostRecent != nil {
			if daysBetween(*mostRecent, now) <= gammaRecencyDays {
				return domain.LevelGamma
			}
		}
	}

	if score >= c.levelBeta {
		return domain.LevelBeta
	}

	return domain.LevelAlpha
}

// freshnessMultiplier decays a factor's contribution with days since
// last use, in five tiers.
func freshnessMultiplier(daysSince int) float64 {
	switch {
	case daysSince <= 1:
		return 1.0
	case daysSince <= 7:
		return 0.95
	case daysSince <= 30:
		return 0.85
	case daysSince <= 90:
		return 0.7
	default:
		return 0.5
	}
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func containsFactor(factorTypes []string, factorType string) bool {
	for _, ft := range factorTypes {
		if ft == factorType {
			return true
		}
	}
	return false
}
