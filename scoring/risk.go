package scoring

import (
	"math"
)

// Fixed max thresholds per risk factor. Raw values are capped at the
// threshold before normalization, so extreme outliers saturate instead of
// dominating the weighted sum.
const (
	MaxLateDays           = 180.0
	MaxAtRiskRatio        = 1.0
	MaxParPerLoan         = 1.0
	MaxReschedules        = 5.0
	MaxDelayedInstalments = 12.0
)

// Baselines applied on the normalized scale for an active client whose risk
// indicators are all zero. "No data" is not treated as "no risk".
const (
	baselineLateDays = 0.1
	baselineAtRisk   = 0.05
	baselinePar      = 0.02
)

const sigmoidSteepness = 6.0

// RiskWeights are integer percentages per factor, summing to 100.
type RiskWeights struct {
	LateDays           int
	OutstandingAtRisk  int
	ParPerLoan         int
	Reschedules        int
	PaymentConsistency int
	DelayedInstalments int
}

func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		LateDays:           25,
		OutstandingAtRisk:  20,
		ParPerLoan:         20,
		Reschedules:        15,
		PaymentConsistency: 10,
		DelayedInstalments: 10,
	}
}

// RiskInputs are the raw portfolio metrics of one client.
type RiskInputs struct {
	OutstandingBalance float64
	AtRiskBalance      float64
	ParPerLoan         float64
	LateDays           float64
	DelayedInstalments float64
	PaidInstalments    float64
	RescheduleCount    float64
}

// sigmoidNormalize maps a [0,1] normalized value through a steep logistic
// curve centered at the midpoint, rescaled so 0 maps to 0 and 1 maps to 1.
// Moderate values are pushed toward the extremes, keeping the score decisive
// for triage rather than linearly smeared.
func sigmoidNormalize(normalized float64) float64 {
	raw := 1.0 / (1.0 + math.Exp(-sigmoidSteepness*(normalized-0.5)))
	lo := 1.0 / (1.0 + math.Exp(sigmoidSteepness/2))
	hi := 1.0 / (1.0 + math.Exp(-sigmoidSteepness/2))
	return (raw - lo) / (hi - lo)
}

func normalizeFactor(raw, maxThreshold float64) float64 {
	if raw < 0 {
		raw = 0
	}
	if raw > maxThreshold {
		raw = maxThreshold
	}
	return raw / maxThreshold
}

// atRiskRatio is the share of the outstanding balance currently at risk.
func (in RiskInputs) atRiskRatio() float64 {
	if in.OutstandingBalance <= 0 {
		return 0
	}
	ratio := in.AtRiskBalance / in.OutstandingBalance
	if ratio < 0 {
		return 0
	}
	return ratio
}

// paymentConsistency is the paid share of recorded instalments. With no
// instalment history there is no evidence of inconsistency, so it reads 1.
func (in RiskInputs) paymentConsistency() float64 {
	total := in.PaidInstalments + in.DelayedInstalments
	if total <= 0 {
		return 1
	}
	return in.PaidInstalments / total
}

// CalculateRiskScore converts the six weighted factors into a 1-99 score.
func CalculateRiskScore(in RiskInputs, weights RiskWeights) int {
	nLate := normalizeFactor(in.LateDays, MaxLateDays)
	nAtRisk := normalizeFactor(in.atRiskRatio(), MaxAtRiskRatio)
	nPar := normalizeFactor(in.ParPerLoan, MaxParPerLoan)
	nReschedules := normalizeFactor(in.RescheduleCount, MaxReschedules)
	nDelayed := normalizeFactor(in.DelayedInstalments, MaxDelayedInstalments)
	// Inverse factor: high consistency means low risk.
	nConsistency := 1 - normalizeFactor(in.paymentConsistency(), 1.0)

	// Active client with every indicator at zero: apply small non-zero
	// baselines on the normalized scale before the sigmoid step.
	if in.OutstandingBalance > 0 &&
		nLate == 0 && nAtRisk == 0 && nPar == 0 &&
		nReschedules == 0 && nDelayed == 0 && nConsistency == 0 {
		nLate = baselineLateDays
		nAtRisk = baselineAtRisk
		nPar = baselinePar
	}

	total := 0.0
	total += sigmoidNormalize(nLate) * 100 * float64(weights.LateDays) / 100
	total += sigmoidNormalize(nAtRisk) * 100 * float64(weights.OutstandingAtRisk) / 100
	total += sigmoidNormalize(nPar) * 100 * float64(weights.ParPerLoan) / 100
	total += sigmoidNormalize(nReschedules) * 100 * float64(weights.Reschedules) / 100
	total += sigmoidNormalize(nConsistency) * 100 * float64(weights.PaymentConsistency) / 100
	total += sigmoidNormalize(nDelayed) * 100 * float64(weights.DelayedInstalments) / 100

	score := int(math.Round(total))

	// Never exactly 0 or 100: boundary scores stay comparable.
	if score < 1 {
		score = 1
	}
	if score > 99 {
		score = 99
	}
	return score
}

// RiskComponent exposes a single factor's transformed contribution; used by
// the saturation tests and kept for downstream diagnostics.
func RiskComponent(raw, maxThreshold float64, weight int, inverse bool) float64 {
	n := normalizeFactor(raw, maxThreshold)
	if inverse {
		n = 1 - n
	}
	return sigmoidNormalize(n) * 100 * float64(weight) / 100
}
