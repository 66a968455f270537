package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldlend/portfolio_backend/config"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tolerance when checking that a weight category sums to 100. Weights are
// integer percentages, so anything past rounding noise is a config mistake.
const weightSumTolerance = 0.5

// WeightSettings holds one organization's scoring weights. Risk and feedback
// groups must each sum to 100; urgency weights carry an arbitrary total and
// are normalized at scoring time.
type WeightSettings struct {
	ID             uint   `gorm:"primary_key" json:"id"`
	OrganizationId string `gorm:"uniqueIndex;size:64;not null" json:"organization_id"`

	RiskLateDays           int `gorm:"default:25" json:"risk_late_days" validate:"gte=0,lte=100"`
	RiskOutstandingAtRisk  int `gorm:"default:20" json:"risk_outstanding_at_risk" validate:"gte=0,lte=100"`
	RiskParPerLoan         int `gorm:"default:20" json:"risk_par_per_loan" validate:"gte=0,lte=100"`
	RiskReschedules        int `gorm:"default:15" json:"risk_reschedules" validate:"gte=0,lte=100"`
	RiskPaymentConsistency int `gorm:"default:10" json:"risk_payment_consistency" validate:"gte=0,lte=100"`
	RiskDelayedInstalments int `gorm:"default:10" json:"risk_delayed_instalments" validate:"gte=0,lte=100"`

	UrgencyRisk     int `gorm:"default:25" json:"urgency_risk" validate:"gte=0"`
	UrgencyDays     int `gorm:"default:50" json:"urgency_days" validate:"gte=0"`
	UrgencyFeedback int `gorm:"default:10" json:"urgency_feedback" validate:"gte=0"`

	FeedbackRepayment     int `gorm:"default:30" json:"feedback_repayment" validate:"gte=0,lte=100"`
	FeedbackCommunication int `gorm:"default:20" json:"feedback_communication" validate:"gte=0,lte=100"`
	FeedbackCooperation   int `gorm:"default:20" json:"feedback_cooperation" validate:"gte=0,lte=100"`
	FeedbackStability     int `gorm:"default:15" json:"feedback_stability" validate:"gte=0,lte=100"`
	FeedbackOutlook       int `gorm:"default:15" json:"feedback_outlook" validate:"gte=0,lte=100"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func DefaultWeightSettings(organizationId string) WeightSettings {
	return WeightSettings{
		OrganizationId:         organizationId,
		RiskLateDays:           25,
		RiskOutstandingAtRisk:  20,
		RiskParPerLoan:         20,
		RiskReschedules:        15,
		RiskPaymentConsistency: 10,
		RiskDelayedInstalments: 10,
		UrgencyRisk:            25,
		UrgencyDays:            50,
		UrgencyFeedback:        10,
		FeedbackRepayment:      30,
		FeedbackCommunication:  20,
		FeedbackCooperation:    20,
		FeedbackStability:      15,
		FeedbackOutlook:        15,
	}
}

var weightValidate = validator.New()

// Validate enforces per-field ranges plus the category-sum invariant.
// Each fully specified category must sum to 100 within rounding tolerance.
func (w WeightSettings) Validate() error {
	if err := weightValidate.Struct(w); err != nil {
		return err
	}

	riskSum := w.RiskLateDays + w.RiskOutstandingAtRisk + w.RiskParPerLoan +
		w.RiskReschedules + w.RiskPaymentConsistency + w.RiskDelayedInstalments
	if err := checkCategorySum("risk", riskSum); err != nil {
		return err
	}

	feedbackSum := w.FeedbackRepayment + w.FeedbackCommunication + w.FeedbackCooperation +
		w.FeedbackStability + w.FeedbackOutlook
	if err := checkCategorySum("feedback", feedbackSum); err != nil {
		return err
	}

	// Urgency weights are normalized by their sum, so any positive total works.
	if w.UrgencyRisk+w.UrgencyDays+w.UrgencyFeedback <= 0 {
		return errors.New("urgency weights must have a positive total")
	}

	return nil
}

func checkCategorySum(category string, sum int) error {
	diff := float64(sum) - 100
	if diff < -weightSumTolerance || diff > weightSumTolerance {
		return fmt.Errorf("%s weights must sum to 100, got %d", category, sum)
	}
	return nil
}

// GetWeightSettings loads the organization's weights, falling back to the
// defaults when none are stored yet.
func GetWeightSettings(ctx context.Context, organizationId string) (WeightSettings, error) {
	db := config.GetDB()

	var settings WeightSettings
	err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Take(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultWeightSettings(organizationId), nil
		}
		return WeightSettings{}, err
	}
	return settings, nil
}

// SaveWeightSettings validates and upserts the organization's weights.
func SaveWeightSettings(ctx context.Context, settings *WeightSettings) error {
	if settings.OrganizationId == "" {
		return errors.New("organization_id is required")
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	db := config.GetDB()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}},
			UpdateAll: true,
		}).
		Create(settings).Error
}
