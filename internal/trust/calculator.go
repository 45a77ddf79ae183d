// Package trust computes the trust risk score from consented
// third-party reputation signals. Like the assurance calculator it is
// pure: it only reads the signal snapshot passed by the caller.
package trust

import (
	"math"
	"time"

	"github.com/glyph-id/glyph/internal/domain"
)

// Base weights per signal kind. Kinds outside this table score with
// defaultKindWeight.
var kindWeights = map[string]float64{
	domain.SignalBlock: 1.0,
	domain.SignalMute:  0.4,
}

const defaultKindWeight = 0.5

// riskScale converts the summed weighted contributions to the 0-100
// score range.
const riskScale = 10

// Band thresholds are deliberately conservative: a false "high" costs
// more than a missed detection.
const (
	bandMedium = 30
	bandHigh   = 70
)

// Config tunes the freshness decay of signal contributions.
type Config struct {
	HalfLifeDays int
	MinFreshness float64
}

// Calculator computes trust risk scores. Safe for concurrent use.
type Calculator struct {
	halfLifeDays float64
	minFreshness float64
	now          func() time.Time
}

// NewCalculator creates a calculator. Zero config values fall back to
// a 90-day half-life with a 0.15 floor.
func NewCalculator(cfg Config) *Calculator {
	halfLife := float64(cfg.HalfLifeDays)
	if halfLife <= 0 {
		halfLife = 90
	}
	minFreshness := cfg.MinFreshness
	if minFreshness <= 0 {
		minFreshness = 0.15
	}
	return &Calculator{
		halfLifeDays: halfLife,
		minFreshness: minFreshness,
		now:          time.Now,
	}
}

// WithClock overrides the clock, for deterministic tests.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

// Risk returns the clamped 0-100 risk score and band for a set of
// signals. Signals without consent contribute nothing; no consented
// signals means score 0, band low.
func (c *Calculator) Risk(signals []domain.TrustSignal) (int, domain.RiskBand) {
	if len(signals) == 0 {
		return 0, domain.BandLow
	}

	now := c.now()

	var totalRisk float64
	consented := 0

	for _, signal := range signals {
		if !signal.ConsentGranted {
			continue
		}
		consented++

		weighted := kindWeight(signal.Kind)
		weighted *= signal.Weight
		weighted *= signal.IndependenceFactor

		if !signal.Since.IsZero() {
			daysOld := daysBetween(signal.Since, now)
			weighted *= c.freshnessDecay(daysOld)
		}

		weighted *= signal.Credibility

		// Raw count multiplies the whole term; a high-count issuer can
		// dominate the pre-clamp sum. Known tuning gap, kept for
		// compatibility with already-issued credentials.
		weighted *= float64(signal.Count)

		totalRisk += weighted
	}

	if consented == 0 {
		return 0, domain.BandLow
	}

	score := int(math.Min(totalRisk*riskScale, 100))
	return score, riskBand(score)
}

// FilterByConsent returns the signals the user has consented to share.
// When issuer is non-empty, the signal's kind-specific scope must have
// sharing enabled and, if the scope carries an issuer allow-list, the
// issuer must be on it.
func (c *Calculator) FilterByConsent(signals []domain.TrustSignal, issuer string) []domain.TrustSignal {
	filtered := make([]domain.TrustSignal, 0, len(signals))

	for _, signal := range signals {
		if !signal.ConsentGranted {
			continue
		}

		if issuer != "" {
			scope := signal.ConsentScope[signal.Kind]
			if !scope.Share {
				continue
			}
			if len(scope.Issuers) > 0 && !containsIssuer(scope.Issuers, issuer) {
				continue
			}
		}

		filtered = append(filtered, signal)
	}

	return filtered
}

// ShouldAutoDecay reports whether a signal has outlived the retention
// horizon. Advisory only: deletion is a housekeeping concern.
func (c *Calculator) ShouldAutoDecay(signal domain.TrustSignal, retentionDays int) bool {
	if signal.Since.IsZero() {
		return false
	}
	return daysBetween(signal.Since, c.now()) > retentionDays
}

// freshnessDecay is exponential with a half-life, floored at the
// configured minimum.
func (c *Calculator) freshnessDecay(daysOld int) float64 {
	if daysOld <= 0 {
		return 1.0
	}
	decay := math.Pow(0.5, float64(daysOld)/c.halfLifeDays)
	return math.Max(decay, c.minFreshness)
}

func riskBand(score int) domain.RiskBand {
	switch {
	case score >= bandHigh:
		return domain.BandHigh
	case score >= bandMedium:
		return domain.BandMedium
	default:
		return domain.BandLow
	}
}

func kindWeight(kind string) float64 {
	if w, ok := kindWeights[kind]; ok {
		return w
	}
	return defaultKindWeight
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func containsIssuer(issuers []string, issuer string) bool {
	for _, i := range issuers {
		if i == issuer {
			return true
		}
	}
	return false
}
