package assurance

import (
	"testing"
	"time"

	"github.com/glyph-id/glyph/internal/domain"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestCalculator() *Calculator {
	return NewCalculator(Config{
		LevelBeta:  70,
		LevelGamma: 85,
	}).WithClock(func() time.Time { return testNow })
}

func factorUsedDaysAgo(factorType string, daysAgo int) domain.AuthFactor {
	lastUsed := testNow.AddDate(0, 0, -daysAgo)
	return domain.AuthFactor{
		FactorType:         factorType,
		BaseWeight:         DefaultWeights[factorType],
		IndependenceFactor: 1.0,
		LastUsedAt:         &lastUsed,
	}
}

func TestCalculateEmpty(t *testing.T) {
	calc := newTestCalculator()

	score, level := calc.Calculate(nil)
	if score != 0 {
		t.Errorf("Expected score 0 for no factors, got %d", score)
	}
	if level != domain.LevelAlpha {
		t.Errorf("Expected level alpha for no factors, got %s", level)
	}
}

func TestCalculateSingleFreshWebAuthn(t *testing.T) {
	calc := newTestCalculator()

	score, level := calc.Calculate([]domain.AuthFactor{
		factorUsedDaysAgo(domain.FactorWebAuthn, 0),
	})

	if score != 35 {
		t.Errorf("Expected score 35 for a fresh webauthn factor, got %d", score)
	}
	if level != domain.LevelAlpha {
		t.Errorf("Expected level alpha at score 35, got %s", level)
	}
}

func TestFreshnessTiers(t *testing.T) {
	calc := newTestCalculator()

	// kyc weighs 40, so each tier boundary is visible in the score
	cases := []struct {
		daysAgo int
		want    int
	}{
		{0, 40},   // same day, full weight
		{1, 40},   // <= 1 day
		{5, 38},   // <= 7 days, x0.95
		{20, 34},  // <= 30 days, x0.85
		{60, 28},  // <= 90 days, x0.7
		{180, 20}, // older, x0.5
	}

	for _, tc := range cases {
		score, _ := calc.Calculate([]domain.AuthFactor{
			factorUsedDaysAgo(domain.FactorKYC, tc.daysAgo),
		})
		if score != tc.want {
			t.Errorf("Expected score %d for kyc used %d days ago, got %d", tc.want, tc.daysAgo, score)
		}
	}
}

func TestNeverUsedFactorKeepsFullWeight(t *testing.T) {
	calc := newTestCalculator()

	factor := domain.AuthFactor{
		FactorType:         domain.FactorKYC,
		IndependenceFactor: 1.0,
	}

	score, _ := calc.Calculate([]domain.AuthFactor{factor})
	if score != 40 {
		t.Errorf("Expected full weight 40 for factor without last-used, got %d", score)
	}
}

func TestUnknownFactorTypeScoresZero(t *testing.T) {
	calc := newTestCalculator()

	score, _ := calc.Calculate([]domain.AuthFactor{
		factorUsedDaysAgo("carrier_pigeon", 0),
	})
	if score != 0 {
		t.Errorf("Expected score 0 for unknown factor type, got %d", score)
	}
}

func TestIndependenceFactorScalesWeight(t *testing.T) {
	calc := newTestCalculator()

	factor := factorUsedDaysAgo(domain.FactorWebAuthn, 0)
	factor.IndependenceFactor = 0.5

	score, _ := calc.Calculate([]domain.AuthFactor{factor})
	if score != 17 {
		t.Errorf("Expected truncated score 17 for half-independence webauthn, got %d", score)
	}
}

func TestBetaWithoutWebAuthn(t *testing.T) {
	calc := newTestCalculator()

	// google 25 + microsoft 25 + kyc 40 = 90, but no webauthn factor
	score, level := calc.Calculate([]domain.AuthFactor{
		factorUsedDaysAgo(domain.FactorGoogle, 0),
		factorUsedDaysAgo(domain.FactorMicrosoft, 0),
		factorUsedDaysAgo(domain.FactorKYC, 0),
	})

	if score != 90 {
		t.Errorf("Expected score 90, got %d", score)
	}
	if level != domain.LevelBeta {
		t.Errorf("Expected beta without webauthn even above the gamma threshold, got %s", level)
	}
}

func TestGammaWithFreshWebAuthn(t *testing.T) {
	calc := newTestCalculator()

	score, level := calc.Calculate([]domain.AuthFactor{
		factorUsedDaysAgo(domain.FactorWebAuthn, 0),
		factorUsedDaysAgo(domain.FactorGoogle, 0),
		factorUsedDaysAgo(domain.FactorMicrosoft, 0),
		factorUsedDaysAgo(domain.FactorKYC, 0),
	})

	if score < 85 {
		t.Fatalf("Expected score above gamma threshold, got %d", score)
	}
	if level != domain.LevelGamma {
		t.Errorf("Expected gamma, got %s", level)
	}
}

func TestNoGammaWhenAllAuthsStale(t *testing.T) {
	calc := newTestCalculator()

	// All factors last used 60 days ago: 125 x 0.7 = 87.5, above the
	// threshold, but the most recent authentication is too old
	score, level := calc.Calculate([]domain.AuthFactor{
		factorUsedDaysAgo(domain.FactorWebAuthn, 60),
		factorUsedDaysAgo(domain.FactorGoogle, 60),
		factorUsedDaysAgo(domain.FactorMicrosoft, 60),
		factorUsedDaysAgo(domain.FactorKYC, 60),
	})

	if score != 87 {
		t.Errorf("Expected score 87, got %d", score)
	}
	if level != domain.LevelBeta {
		t.Errorf("Expected beta when every authentication is stale, got %s", level)
	}
}

func TestGammaWithStaleWebAuthnButRecentOtherFactor(t *testing.T) {
	calc := newTestCalculator()

	// Recency looks at the most recent authentication across all
	// factors, not the webauthn factor specifically
	_, level := calc.Calculate([]domain.AuthFactor{
		factorUsedDaysAgo(domain.FactorWebAuthn, 60),
		factorUsedDaysAgo(domain.FactorGoogle, 0),
		factorUsedDaysAgo(domain.FactorMicrosoft, 0),
		factorUsedDaysAgo(domain.FactorKYC, 0),
	})

	if level != domain.LevelGamma {
		t.Errorf("Expected gamma with a recent non-webauthn authentication, got %s", level)
	}
}

func TestFreshnessDays(t *testing.T) {
	calc := newTestCalculator()

	days := calc.FreshnessDays([]domain.AuthFactor{
		factorUsedDaysAgo(domain.FactorGoogle, 12),
		factorUsedDaysAgo(domain.FactorKYC, 3),
	})
	if days != 3 {
		t.Errorf("Expected freshness of the most recent factor (3 days), got %d", days)
	}
}

func TestFreshnessDaysSentinel(t *testing.T) {
	calc := newTestCalculator()

	days := calc.FreshnessDays([]domain.AuthFactor{
		{FactorType: domain.FactorKYC, IndependenceFactor: 1.0},
	})
	if days != 999 {
		t.Errorf("Expected sentinel 999 when no factor was ever used, got %d", days)
	}
}

func TestWeightFor(t *testing.T) {
	calc := newTestCalculator()

	if w := calc.WeightFor(domain.FactorWebAuthn); w != 35 {
		t.Errorf("Expected weight 35 for webauthn, got %d", w)
	}
	if w := calc.WeightFor("unknown"); w != 0 {
		t.Errorf("Expected weight 0 for unknown type, got %d", w)
	}
}
