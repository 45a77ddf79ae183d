package trust

import (
	"testing"
	"time"

	"github.com/glyph-id/glyph/internal/domain"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestCalculator() *Calculator {
	return NewCalculator(Config{
		HalfLifeDays: 90,
		MinFreshness: 0.15,
	}).WithClock(func() time.Time { return testNow })
}

func signalDaysOld(kind string, weight float64, daysOld int, consented bool) domain.TrustSignal {
	return domain.TrustSignal{
		Issuer:             "moderation.example",
		Kind:               kind,
		Count:              1,
		Weight:             weight,
		IndependenceFactor: 1.0,
		Credibility:        1.0,
		ConsentGranted:     consented,
		Since:              testNow.AddDate(0, 0, -daysOld),
	}
}

func TestRiskEmpty(t *testing.T) {
	calc := newTestCalculator()

	score, band := calc.Risk(nil)
	if score != 0 {
		t.Errorf("Expected score 0 for no signals, got %d", score)
	}
	if band != domain.BandLow {
		t.Errorf("Expected band low for no signals, got %s", band)
	}
}

func TestRiskIgnoresUnconsentedSignals(t *testing.T) {
	calc := newTestCalculator()

	score, band := calc.Risk([]domain.TrustSignal{
		signalDaysOld(domain.SignalBlock, 5.0, 0, false),
	})
	if score != 0 {
		t.Errorf("Expected score 0 when no signal is consented, got %d", score)
	}
	if band != domain.BandLow {
		t.Errorf("Expected band low, got %s", band)
	}
}

func TestRiskSingleFreshBlock(t *testing.T) {
	calc := newTestCalculator()

	// block kind weight 1.0 x weight 1.0 x fresh = 1.0, scaled by 10
	score, band := calc.Risk([]domain.TrustSignal{
		signalDaysOld(domain.SignalBlock, 1.0, 0, true),
	})
	if score != 10 {
		t.Errorf("Expected score 10 for a single fresh block, got %d", score)
	}
	if band != domain.BandLow {
		t.Errorf("Expected band low at score 10, got %s", band)
	}
}

func TestRiskKindWeights(t *testing.T) {
	calc := newTestCalculator()

	blockScore, _ := calc.Risk([]domain.TrustSignal{
		signalDaysOld(domain.SignalBlock, 1.0, 0, true),
	})
	muteScore, _ := calc.Risk([]domain.TrustSignal{
		signalDaysOld(domain.SignalMute, 1.0, 0, true),
	})
	otherScore, _ := calc.Risk([]domain.TrustSignal{
		signalDaysOld("report", 1.0, 0, true),
	})

	if blockScore != 10 {
		t.Errorf("Expected block score 10, got %d", blockScore)
	}
	if muteScore != 4 {
		t.Errorf("Expected mute score 4, got %d", muteScore)
	}
	if otherScore != 5 {
		t.Errorf("Expected unknown-kind score 5, got %d", otherScore)
	}
}

func TestRiskScoreClamped(t *testing.T) {
	calc := newTestCalculator()

	signal := signalDaysOld(domain.SignalBlock, 50.0, 0, true)
	signal.Count = 100

	score, band := calc.Risk([]domain.TrustSignal{signal})
	if score != 100 {
		t.Errorf("Expected score clamped to 100, got %d", score)
	}
	if band != domain.BandHigh {
		t.Errorf("Expected band high at score 100, got %s", band)
	}
}

func TestRiskCountMultiplies(t *testing.T) {
	calc := newTestCalculator()

	signal := signalDaysOld(domain.SignalBlock, 1.0, 0, true)
	signal.Count = 3

	score, _ := calc.Risk([]domain.TrustSignal{signal})
	if score != 30 {
		t.Errorf("Expected score 30 for count 3, got %d", score)
	}
}

func TestRiskCredibilityScales(t *testing.T) {
	calc := newTestCalculator()

	signal := signalDaysOld(domain.SignalBlock, 1.0, 0, true)
	signal.Credibility = 0.5

	score, _ := calc.Risk([]domain.TrustSignal{signal})
	if score != 5 {
		t.Errorf("Expected score 5 at half credibility, got %d", score)
	}
}

func TestFreshnessDecayMonotonic(t *testing.T) {
	calc := newTestCalculator()

	prev := 2.0
	for _, daysOld := range []int{0, 30, 90, 180, 365} {
		decay := calc.freshnessDecay(daysOld)
		if decay > prev {
			t.Errorf("Expected decay to be monotonically non-increasing, got %f after %f at %d days", decay, prev, daysOld)
		}
		prev = decay
	}

	if calc.freshnessDecay(0) != 1.0 {
		t.Errorf("Expected no decay for a same-day signal")
	}

	// Half-life of 90 days
	if d := calc.freshnessDecay(90); d < 0.49 || d > 0.51 {
		t.Errorf("Expected decay ~0.5 at one half-life, got %f", d)
	}

	// Floor at the configured minimum
	if d := calc.freshnessDecay(10000); d != 0.15 {
		t.Errorf("Expected decay floored at 0.15, got %f", d)
	}
}

func TestRiskBandThresholds(t *testing.T) {
	cases := []struct {
		score int
		want  domain.RiskBand
	}{
		{0, domain.BandLow},
		{29, domain.BandLow},
		{30, domain.BandMedium},
		{69, domain.BandMedium},
		{70, domain.BandHigh},
		{100, domain.BandHigh},
	}

	for _, tc := range cases {
		if got := riskBand(tc.score); got != tc.want {
			t.Errorf("Expected band %s at score %d, got %s", tc.want, tc.score, got)
		}
	}
}

func TestFilterByConsentFlagOnly(t *testing.T) {
	calc := newTestCalculator()

	signals := []domain.TrustSignal{
		signalDaysOld(domain.SignalBlock, 1.0, 0, true),
		signalDaysOld(domain.SignalMute, 1.0, 0, false),
	}

	filtered := calc.FilterByConsent(signals, "")
	if len(filtered) != 1 {
		t.Fatalf("Expected 1 consented signal, got %d", len(filtered))
	}
	if filtered[0].Kind != domain.SignalBlock {
		t.Errorf("Expected the block signal to survive, got %s", filtered[0].Kind)
	}
}

func TestFilterByConsentIssuerAllowList(t *testing.T) {
	calc := newTestCalculator()

	signal := signalDaysOld(domain.SignalBlock, 1.0, 0, true)
	signal.ConsentScope = domain.ConsentScope{
		domain.SignalBlock: domain.KindScope{
			Share:   true,
			Issuers: []string{"trusted.example"},
		},
	}

	if got := calc.FilterByConsent([]domain.TrustSignal{signal}, "trusted.example"); len(got) != 1 {
		t.Errorf("Expected allow-listed issuer to pass, got %d signals", len(got))
	}

	if got := calc.FilterByConsent([]domain.TrustSignal{signal}, "other.example"); len(got) != 0 {
		t.Errorf("Expected unlisted issuer to be excluded, got %d signals", len(got))
	}
}

func TestFilterByConsentScopeShareDisabled(t *testing.T) {
	calc := newTestCalculator()

	signal := signalDaysOld(domain.SignalMute, 1.0, 0, true)
	signal.ConsentScope = domain.ConsentScope{
		domain.SignalMute: domain.KindScope{Share: false},
	}

	if got := calc.FilterByConsent([]domain.TrustSignal{signal}, "anyone.example"); len(got) != 0 {
		t.Errorf("Expected signal with sharing disabled to be excluded, got %d signals", len(got))
	}
}

func TestShouldAutoDecay(t *testing.T) {
	calc := newTestCalculator()

	fresh := signalDaysOld(domain.SignalBlock, 1.0, 30, true)
	if calc.ShouldAutoDecay(fresh, 180) {
		t.Error("Expected a 30-day-old signal to survive a 180-day retention")
	}

	old := signalDaysOld(domain.SignalBlock, 1.0, 200, true)
	if !calc.ShouldAutoDecay(old, 180) {
		t.Error("Expected a 200-day-old signal to be past a 180-day retention")
	}
}
