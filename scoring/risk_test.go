package scoring

import (
	"math"
	"testing"
)

// NOTE: These tests are intentionally DB-free. They validate the scoring
// semantics on raw inputs; persistence paths are covered by the sync pipeline.

func TestRiskComponentSaturation(t *testing.T) {
	// At the factor's max threshold the component must contribute its full
	// weight; at zero it must contribute nothing.
	cases := []struct {
		name   string
		raw    float64
		max    float64
		weight int
	}{
		{"late days", MaxLateDays, MaxLateDays, 25},
		{"at-risk ratio", MaxAtRiskRatio, MaxAtRiskRatio, 20},
		{"par per loan", MaxParPerLoan, MaxParPerLoan, 20},
		{"reschedules", MaxReschedules, MaxReschedules, 15},
		{"delayed instalments", MaxDelayedInstalments, MaxDelayedInstalments, 10},
	}
	for _, tc := range cases {
		got := RiskComponent(tc.raw, tc.max, tc.weight, false)
		if math.Abs(got-float64(tc.weight)) > 1e-9 {
			t.Errorf("%s at max: got %v want %v", tc.name, got, float64(tc.weight))
		}
		if got := RiskComponent(0, tc.max, tc.weight, false); math.Abs(got) > 1e-9 {
			t.Errorf("%s at zero: got %v want 0", tc.name, got)
		}
	}
}

func TestRiskComponentCapsOutliers(t *testing.T) {
	atMax := RiskComponent(MaxLateDays, MaxLateDays, 25, false)
	beyond := RiskComponent(10*MaxLateDays, MaxLateDays, 25, false)
	if beyond != atMax {
		t.Errorf("outlier not capped: %v vs %v", beyond, atMax)
	}
}

func TestRiskScoreBounds(t *testing.T) {
	weights := DefaultRiskWeights()

	worst := RiskInputs{
		OutstandingBalance: 1000,
		AtRiskBalance:      1000,
		ParPerLoan:         1,
		LateDays:           365,
		DelayedInstalments: 24,
		PaidInstalments:    0,
		RescheduleCount:    9,
	}
	if got := CalculateRiskScore(worst, weights); got != 99 {
		t.Errorf("worst case: got %d want 99", got)
	}

	// Closed loan, no activity at all: stays at the floor, not zero.
	idle := RiskInputs{}
	if got := CalculateRiskScore(idle, weights); got != 1 {
		t.Errorf("idle case: got %d want 1", got)
	}
}

func TestRiskScoreBaselineForActiveAllZeroClient(t *testing.T) {
	// Full weight on late days makes the 0.1 baseline visible after rounding.
	weights := RiskWeights{LateDays: 100}

	active := RiskInputs{OutstandingBalance: 500_000}
	inactive := RiskInputs{OutstandingBalance: 0}

	activeScore := CalculateRiskScore(active, weights)
	inactiveScore := CalculateRiskScore(inactive, weights)

	if activeScore <= inactiveScore {
		t.Errorf("active all-zero client must score above inactive: %d vs %d", activeScore, inactiveScore)
	}
	if activeScore >= 20 {
		t.Errorf("baseline should stay low, got %d", activeScore)
	}
}

func TestPaymentConsistencyNoHistoryIsNotRisk(t *testing.T) {
	weights := RiskWeights{PaymentConsistency: 100}

	noHistory := RiskInputs{PaidInstalments: 0, DelayedInstalments: 0}
	if got := CalculateRiskScore(noHistory, weights); got != 1 {
		t.Errorf("no instalment history: got %d want 1", got)
	}

	allDelayed := RiskInputs{PaidInstalments: 0, DelayedInstalments: 10}
	if got := CalculateRiskScore(allDelayed, weights); got < 90 {
		t.Errorf("all instalments delayed: got %d want >= 90", got)
	}
}

func TestRiskScoreMonotonicInLateDays(t *testing.T) {
	weights := DefaultRiskWeights()
	prev := -1
	for _, lateDays := range []float64{0, 15, 30, 60, 90, 120, 180} {
		in := RiskInputs{OutstandingBalance: 1000, LateDays: lateDays}
		score := CalculateRiskScore(in, weights)
		if score < prev {
			t.Fatalf("score decreased at lateDays=%v: %d < %d", lateDays, score, prev)
		}
		prev = score
	}
}

func TestSigmoidPushesModerateValuesApart(t *testing.T) {
	// The curve must amplify differences around the midpoint relative to a
	// linear mapping.
	low := sigmoidNormalize(0.3)
	high := sigmoidNormalize(0.7)
	if high-low <= 0.4 {
		t.Errorf("sigmoid spread too small: %v", high-low)
	}
	if mid := sigmoidNormalize(0.5); math.Abs(mid-0.5) > 1e-9 {
		t.Errorf("midpoint must map to 0.5, got %v", mid)
	}
}
