package scoring

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fieldlend/portfolio_backend/config"
	"github.com/fieldlend/portfolio_backend/models"
)

// Fan-out batch size for organization-wide recalculation.
const recalcBatchSize = 200

// WeightsFromSettings splits the stored settings row into the pure weight
// groups the calculators take.
func WeightsFromSettings(settings models.WeightSettings) (RiskWeights, UrgencyWeights, FeedbackSubWeights) {
	risk := RiskWeights{
		LateDays:           settings.RiskLateDays,
		OutstandingAtRisk:  settings.RiskOutstandingAtRisk,
		ParPerLoan:         settings.RiskParPerLoan,
		Reschedules:        settings.RiskReschedules,
		PaymentConsistency: settings.RiskPaymentConsistency,
		DelayedInstalments: settings.RiskDelayedInstalments,
	}
	urgency := UrgencyWeights{
		Risk:     settings.UrgencyRisk,
		Days:     settings.UrgencyDays,
		Feedback: settings.UrgencyFeedback,
	}
	feedback := FeedbackSubWeights{
		Repayment:     settings.FeedbackRepayment,
		Communication: settings.FeedbackCommunication,
		Cooperation:   settings.FeedbackCooperation,
		Stability:     settings.FeedbackStability,
		Outlook:       settings.FeedbackOutlook,
	}
	return risk, urgency, feedback
}

// DaysSinceLastInteraction is the max of days-since-visit and days-since-call.
// Returns -1 when the client has neither, which the urgency calculator maps
// to its default.
func DaysSinceLastInteraction(client models.Client, now time.Time) float64 {
	days := -1.0
	if client.LastVisitAt != nil {
		days = now.Sub(*client.LastVisitAt).Hours() / 24
	}
	if client.LastCallAt != nil {
		callDays := now.Sub(*client.LastCallAt).Hours() / 24
		if callDays > days {
			days = callDays
		}
	}
	return days
}

// ScoreClient is the single scoring entry point. Every path that produces
// scores (ingestion, feedback update, visit/call completion, weight change,
// manual recalculation, repair) goes through here, so the formula cannot
// drift between call sites.
func ScoreClient(client models.Client, settings models.WeightSettings, now time.Time) (int, float64, string, []byte) {
	riskWeights, urgencyWeights, feedbackWeights := WeightsFromSettings(settings)

	riskScore := CalculateRiskScore(RiskInputs{
		OutstandingBalance: client.OutstandingBalance.InexactFloat64(),
		AtRiskBalance:      client.AtRiskBalance.InexactFloat64(),
		ParPerLoan:         client.ParPerLoan.InexactFloat64(),
		LateDays:           float64(client.LateDays),
		DelayedInstalments: float64(client.DelayedInstalments),
		PaidInstalments:    float64(client.PaidInstalments),
		RescheduleCount:    float64(client.RescheduleCount),
	}, riskWeights)

	feedback := EffectiveFeedbackScore(
		client.FeedbackScore,
		client.FeedbackRepayment,
		client.FeedbackCommunication,
		client.FeedbackCooperation,
		client.FeedbackStability,
		client.FeedbackOutlook,
		feedbackWeights,
	)

	composite, breakdown := CalculateUrgency(UrgencyInputs{
		RiskScore:                float64(riskScore),
		DaysSinceLastInteraction: DaysSinceLastInteraction(client, now),
		FeedbackScore:            feedback,
	}, urgencyWeights)

	classification := Classify(composite)
	breakdownJSON, _ := json.Marshal(breakdown)

	return riskScore, composite, classification, breakdownJSON
}

// RecalculateClient rescores one client and persists the derived fields.
func RecalculateClient(ctx context.Context, organizationId string, clientId uint) error {
	client, err := models.GetClient(ctx, organizationId, clientId)
	if err != nil {
		return err
	}
	settings, err := models.GetWeightSettings(ctx, organizationId)
	if err != nil {
		return err
	}

	riskScore, composite, classification, breakdownJSON := ScoreClient(*client, settings, time.Now())
	return models.UpdateClientScores(ctx, client.ID, riskScore, composite, classification, breakdownJSON)
}

// RecalculateOrganization rescores every client of the organization in fixed
// batches. One failing client never aborts the rest; the fan-out is
// re-entrant because scores are pure functions of current weights.
func RecalculateOrganization(ctx context.Context, organizationId string, progress func(done, total int)) (int, error) {
	logger := config.GetLogger()

	settings, err := models.GetWeightSettings(ctx, organizationId)
	if err != nil {
		return 0, err
	}

	total64, err := models.CountClients(ctx, organizationId)
	if err != nil {
		return 0, err
	}
	total := int(total64)

	now := time.Now()
	done := 0
	var afterId uint
	for {
		batch, err := models.ListClientsBatch(ctx, organizationId, afterId, recalcBatchSize)
		if err != nil {
			return done, err
		}
		if len(batch) == 0 {
			break
		}

		for _, client := range batch {
			riskScore, composite, classification, breakdownJSON := ScoreClient(client, settings, now)
			if err := models.UpdateClientScores(ctx, client.ID, riskScore, composite, classification, breakdownJSON); err != nil {
				config.LogError(logger, "scoring", "RecalculateOrganization", "UpdateClientScores", client.ID, err)
				continue
			}
			done++
		}

		afterId = batch[len(batch)-1].ID
		if progress != nil {
			progress(done, total)
		}
	}
	return done, nil
}

// RepairClassifications scans all records and rewrites any stored
// classification that disagrees with Classify applied to the stored score.
func RepairClassifications(ctx context.Context, organizationId string) (int, error) {
	db := config.GetDB()

	repaired := 0
	var afterId uint
	for {
		batch, err := models.ListClientsBatch(ctx, organizationId, afterId, recalcBatchSize)
		if err != nil {
			return repaired, err
		}
		if len(batch) == 0 {
			break
		}

		for _, client := range batch {
			expected := Classify(client.CompositeUrgency)
			if client.UrgencyClassification == expected {
				continue
			}
			err := db.WithContext(ctx).
				Model(&models.Client{}).
				Where("id = ?", client.ID).
				Update("urgency_classification", expected).Error
			if err != nil {
				return repaired, err
			}
			repaired++
		}

		afterId = batch[len(batch)-1].ID
	}
	return repaired, nil
}
