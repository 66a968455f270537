package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/fieldlend/portfolio_backend/models"
)

func TestUrgencyWorkedExample(t *testing.T) {
	// riskScore 80, 180 days stale, worst feedback, weights 50/40/10:
	// 80*0.5 + 100*0.4 + 100*0.1 = 90.
	composite, breakdown := CalculateUrgency(UrgencyInputs{
		RiskScore:                80,
		DaysSinceLastInteraction: 180,
		FeedbackScore:            1,
	}, UrgencyWeights{Risk: 50, Days: 40, Feedback: 10})

	if composite != 90.0 {
		t.Fatalf("composite: got %v want 90.0", composite)
	}
	if got := Classify(composite); got != ClassificationExtremelyUrgent {
		t.Errorf("classification: got %q", got)
	}
	if breakdown.Risk.Contribution != 40.0 {
		t.Errorf("risk contribution: got %v want 40.0", breakdown.Risk.Contribution)
	}
	if breakdown.Days.Contribution != 40.0 {
		t.Errorf("days contribution: got %v want 40.0", breakdown.Days.Contribution)
	}
	if breakdown.Feedback.Contribution != 10.0 {
		t.Errorf("feedback contribution: got %v want 10.0", breakdown.Feedback.Contribution)
	}
}

func TestUrgencyWeightsNormalizedBySum(t *testing.T) {
	// 25/50/10 sums to 85; the composite must use weight/85, not weight/100.
	composite, breakdown := CalculateUrgency(UrgencyInputs{
		RiskScore:                100,
		DaysSinceLastInteraction: 180,
		FeedbackScore:            1,
	}, UrgencyWeights{Risk: 25, Days: 50, Feedback: 10})

	if composite != 100.0 {
		t.Fatalf("all components maxed must give 100, got %v", composite)
	}
	wantNorm := 25.0 / 85.0 * 100
	if math.Abs(breakdown.Risk.NormalizedWeight-math.Round(wantNorm*100)/100) > 1e-9 {
		t.Errorf("normalized risk weight: got %v want %.2f", breakdown.Risk.NormalizedWeight, wantNorm)
	}
}

func TestUrgencyDefaultsForMissingInputs(t *testing.T) {
	// Negative days means no interaction recorded; out-of-range feedback means
	// none captured. Both fall back to neutral defaults.
	composite, breakdown := CalculateUrgency(UrgencyInputs{
		RiskScore:                0,
		DaysSinceLastInteraction: -1,
		FeedbackScore:            0,
	}, UrgencyWeights{Risk: 0, Days: 100, Feedback: 0})

	want := math.Round(DefaultInteractionDays/maxInteractionDays*100*10) / 10
	if composite != want {
		t.Errorf("default days composite: got %v want %v", composite, want)
	}
	if breakdown.Feedback.Raw != DefaultFeedbackScore {
		t.Errorf("default feedback: got %v", breakdown.Feedback.Raw)
	}
}

func TestUrgencyZeroWeightSumFallsBackToDefaults(t *testing.T) {
	composite, breakdown := CalculateUrgency(UrgencyInputs{
		RiskScore:                100,
		DaysSinceLastInteraction: 180,
		FeedbackScore:            1,
	}, UrgencyWeights{})

	if composite != 100.0 {
		t.Errorf("fallback composite: got %v", composite)
	}
	def := DefaultUrgencyWeights()
	if breakdown.Risk.Weight != def.Risk || breakdown.Days.Weight != def.Days {
		t.Errorf("fallback weights not applied: %+v", breakdown)
	}
}

func TestUrgencyRoundedToOneDecimal(t *testing.T) {
	composite, _ := CalculateUrgency(UrgencyInputs{
		RiskScore:                33,
		DaysSinceLastInteraction: 7,
		FeedbackScore:            4,
	}, DefaultUrgencyWeights())

	if composite != math.Round(composite*10)/10 {
		t.Errorf("composite not rounded to 1 decimal: %v", composite)
	}
	if composite < 0 || composite > 100 {
		t.Errorf("composite out of range: %v", composite)
	}
}

func TestClassificationBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{60.0, ClassificationExtremelyUrgent},
		{59.9, ClassificationUrgent},
		{40.0, ClassificationUrgent},
		{39.9, ClassificationModeratelyUrgent},
		{20.0, ClassificationModeratelyUrgent},
		{19.9, ClassificationLowUrgency},
		{0, ClassificationLowUrgency},
		{100, ClassificationExtremelyUrgent},
	}
	for _, tc := range cases {
		if got := Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%v): got %q want %q", tc.score, got, tc.want)
		}
	}
}

func TestEffectiveFeedbackScorePrefersSubDimensions(t *testing.T) {
	weights := DefaultFeedbackSubWeights()

	// Only repayment and outlook captured: weighted average over those two.
	got := EffectiveFeedbackScore(2, 5, 0, 0, 0, 1, weights)
	want := (5.0*30 + 1.0*15) / 45
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("sub-dimension blend: got %v want %v", got, want)
	}

	// No sub-dimensions: overall wins.
	if got := EffectiveFeedbackScore(4, 0, 0, 0, 0, 0, weights); got != 4 {
		t.Errorf("overall fallback: got %v", got)
	}

	// Nothing captured: unknown.
	if got := EffectiveFeedbackScore(0, 0, 0, 0, 0, 0, weights); got != 0 {
		t.Errorf("unknown feedback: got %v", got)
	}
}

func TestDaysSinceLastInteractionTakesMax(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	visit := now.AddDate(0, 0, -10)
	call := now.AddDate(0, 0, -3)

	client := models.Client{LastVisitAt: &visit, LastCallAt: &call}
	if got := DaysSinceLastInteraction(client, now); math.Abs(got-10) > 1e-9 {
		t.Errorf("got %v want 10", got)
	}

	if got := DaysSinceLastInteraction(models.Client{}, now); got != -1 {
		t.Errorf("no interactions: got %v want -1", got)
	}
}
