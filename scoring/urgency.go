package scoring

import (
	"math"
)

const (
	// Contact gaps saturate at 180 days.
	maxInteractionDays = 180.0

	// Used when a client has no recorded visit or call.
	DefaultInteractionDays = 30.0

	// Used when no feedback has been captured.
	DefaultFeedbackScore = 3.0
)

// UrgencyWeights carry an arbitrary total; they are normalized by their sum.
type UrgencyWeights struct {
	Risk     int
	Days     int
	Feedback int
}

func DefaultUrgencyWeights() UrgencyWeights {
	return UrgencyWeights{Risk: 25, Days: 50, Feedback: 10}
}

// UrgencyInputs feed the composite urgency calculation.
type UrgencyInputs struct {
	RiskScore float64
	// Max of days-since-visit and days-since-call; negative means "unknown".
	DaysSinceLastInteraction float64
	// 1-5; values outside that range mean "unknown".
	FeedbackScore float64
}

// UrgencyComponent is one term of the composite, persisted so downstream
// consumers never recompute the decomposition.
type UrgencyComponent struct {
	Raw              float64 `json:"raw"`
	Scaled           float64 `json:"scaled"`
	Weight           int     `json:"weight"`
	NormalizedWeight float64 `json:"normalized_weight"`
	Contribution     float64 `json:"contribution"`
}

type UrgencyBreakdown struct {
	Risk      UrgencyComponent `json:"risk"`
	Days      UrgencyComponent `json:"days"`
	Feedback  UrgencyComponent `json:"feedback"`
	Composite float64          `json:"composite"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculateUrgency combines risk, contact recency and feedback into a 0-100
// composite plus its decomposition.
func CalculateUrgency(in UrgencyInputs, weights UrgencyWeights) (float64, UrgencyBreakdown) {
	days := in.DaysSinceLastInteraction
	if days < 0 {
		days = DefaultInteractionDays
	}
	feedback := in.FeedbackScore
	if feedback < 1 || feedback > 5 {
		feedback = DefaultFeedbackScore
	}

	riskScaled := clamp(in.RiskScore, 0, 100)
	daysScaled := clamp(days/maxInteractionDays*100, 0, 100)
	feedbackScaled := clamp((5-feedback)*25, 0, 100)

	sum := float64(weights.Risk + weights.Days + weights.Feedback)
	if sum <= 0 {
		w := DefaultUrgencyWeights()
		weights = w
		sum = float64(w.Risk + w.Days + w.Feedback)
	}

	nRisk := float64(weights.Risk) / sum
	nDays := float64(weights.Days) / sum
	nFeedback := float64(weights.Feedback) / sum

	composite := riskScaled*nRisk + daysScaled*nDays + feedbackScaled*nFeedback
	composite = clamp(round1(composite), 0, 100)

	breakdown := UrgencyBreakdown{
		Risk: UrgencyComponent{
			Raw:              in.RiskScore,
			Scaled:           round2(riskScaled),
			Weight:           weights.Risk,
			NormalizedWeight: round2(nRisk * 100),
			Contribution:     round2(riskScaled * nRisk),
		},
		Days: UrgencyComponent{
			Raw:              days,
			Scaled:           round2(daysScaled),
			Weight:           weights.Days,
			NormalizedWeight: round2(nDays * 100),
			Contribution:     round2(daysScaled * nDays),
		},
		Feedback: UrgencyComponent{
			Raw:              feedback,
			Scaled:           round2(feedbackScaled),
			Weight:           weights.Feedback,
			NormalizedWeight: round2(nFeedback * 100),
			Contribution:     round2(feedbackScaled * nFeedback),
		},
		Composite: composite,
	}

	return composite, breakdown
}

// FeedbackSubWeights blend the five feedback sub-dimensions into one
// effective feedback score; integer percentages summing to 100.
type FeedbackSubWeights struct {
	Repayment     int
	Communication int
	Cooperation   int
	Stability     int
	Outlook       int
}

func DefaultFeedbackSubWeights() FeedbackSubWeights {
	return FeedbackSubWeights{Repayment: 30, Communication: 20, Cooperation: 20, Stability: 15, Outlook: 15}
}

// EffectiveFeedbackScore prefers the weighted sub-dimension average when any
// sub-dimension is captured, else the overall score, else "unknown" (0).
func EffectiveFeedbackScore(overall int, repayment, communication, cooperation, stability, outlook int, weights FeedbackSubWeights) float64 {
	type dim struct {
		value  int
		weight int
	}
	dims := []dim{
		{repayment, weights.Repayment},
		{communication, weights.Communication},
		{cooperation, weights.Cooperation},
		{stability, weights.Stability},
		{outlook, weights.Outlook},
	}

	var weighted, weightSum float64
	for _, d := range dims {
		if d.value >= 1 && d.value <= 5 {
			weighted += float64(d.value) * float64(d.weight)
			weightSum += float64(d.weight)
		}
	}
	if weightSum > 0 {
		return weighted / weightSum
	}
	if overall >= 1 && overall <= 5 {
		return float64(overall)
	}
	return 0
}
