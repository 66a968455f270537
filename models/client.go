package models

import (
	"context"
	"errors"
	"time"

	"github.com/fieldlend/portfolio_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Client is one lending client row kept in sync from portfolio extracts.
// Officer-entered fields (feedback, visit/call metadata) are never part of the
// sync fingerprint, so financial syncs cannot clobber them.
type Client struct {
	ID               uint   `gorm:"primary_key" json:"id"`
	OrganizationId   string `gorm:"uniqueIndex:idx_org_external_client,priority:1;size:64;not null" json:"organization_id"`
	ExternalClientId string `gorm:"uniqueIndex:idx_org_external_client,priority:2;size:128;not null" json:"external_client_id"`

	Name              string `gorm:"size:255" json:"name"`
	OfficerExternalId string `gorm:"index;size:128" json:"officer_external_id"`
	Phone             string `gorm:"size:32" json:"phone"`
	ExtraJSON         []byte `gorm:"type:json" json:"extra"`

	OutstandingBalance decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"outstanding_balance"`
	AtRiskBalance      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"at_risk_balance"`
	ParPerLoan         decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"par_per_loan"`
	LateDays           int             `gorm:"default:0" json:"late_days"`
	DelayedInstalments int             `gorm:"default:0" json:"delayed_instalments"`
	PaidInstalments    int             `gorm:"default:0" json:"paid_instalments"`
	RescheduleCount    int             `gorm:"default:0" json:"reschedule_count"`
	MonthlyPayment     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"monthly_payment"`

	RiskScore             int     `gorm:"default:0" json:"risk_score"`
	CompositeUrgency      float64 `gorm:"default:0" json:"composite_urgency"`
	UrgencyClassification string  `gorm:"size:32" json:"urgency_classification"`
	UrgencyBreakdownJSON  []byte  `gorm:"type:json" json:"urgency_breakdown"`

	LastVisitAt *time.Time `json:"last_visit_at"`
	LastCallAt  *time.Time `json:"last_call_at"`
	VisitNotes  string     `gorm:"type:text" json:"visit_notes"`

	FeedbackScore         int `gorm:"default:0" json:"feedback_score"`
	FeedbackRepayment     int `gorm:"default:0" json:"feedback_repayment"`
	FeedbackCommunication int `gorm:"default:0" json:"feedback_communication"`
	FeedbackCooperation   int `gorm:"default:0" json:"feedback_cooperation"`
	FeedbackStability     int `gorm:"default:0" json:"feedback_stability"`
	FeedbackOutlook       int `gorm:"default:0" json:"feedback_outlook"`

	SyncHash string `gorm:"size:64;index" json:"sync_hash"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetClient(ctx context.Context, organizationId string, id uint) (*Client, error) {
	db := config.GetDB()

	var client Client
	err := db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, organizationId).
		Take(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &client, nil
}

// ListClientsBatch pages through an organization's clients by ascending id.
// Used by the recalculation fan-out and the classification repair scan.
func ListClientsBatch(ctx context.Context, organizationId string, afterId uint, limit int) ([]Client, error) {
	db := config.GetDB()

	var clients []Client
	err := db.WithContext(ctx).
		Where("organization_id = ? AND id > ?", organizationId, afterId).
		Order("id asc").
		Limit(limit).
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func CountClients(ctx context.Context, organizationId string) (int64, error) {
	db := config.GetDB()

	var count int64
	err := db.WithContext(ctx).
		Model(&Client{}).
		Where("organization_id = ?", organizationId).
		Count(&count).Error
	return count, err
}

// ClientSyncState is the slice of an existing row the sync pipeline needs:
// the stored fingerprint plus the officer-entered fields that feed scoring
// but never come from the extract.
type ClientSyncState struct {
	ExternalClientId      string
	SyncHash              string
	LastVisitAt           *time.Time
	LastCallAt            *time.Time
	VisitNotes            string
	FeedbackScore         int
	FeedbackRepayment     int
	FeedbackCommunication int
	FeedbackCooperation   int
	FeedbackStability     int
	FeedbackOutlook       int
}

// ExistingClientStates fetches hash + interaction state for the whole
// organization in one query, keyed by external client id.
func ExistingClientStates(ctx context.Context, organizationId string) (map[string]ClientSyncState, error) {
	db := config.GetDB()

	var rows []ClientSyncState
	err := db.WithContext(ctx).
		Model(&Client{}).
		Select("external_client_id, sync_hash, last_visit_at, last_call_at, visit_notes, feedback_score, feedback_repayment, feedback_communication, feedback_cooperation, feedback_stability, feedback_outlook").
		Where("organization_id = ?", organizationId).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	states := make(map[string]ClientSyncState, len(rows))
	for _, r := range rows {
		states[r.ExternalClientId] = r
	}
	return states, nil
}

// UpdateClientScores persists derived scores only; raw metrics and
// officer-entered fields are untouched.
func UpdateClientScores(ctx context.Context, clientId uint, riskScore int, compositeUrgency float64, classification string, breakdownJSON []byte) error {
	db := config.GetDB()

	return db.WithContext(ctx).
		Model(&Client{}).
		Where("id = ?", clientId).
		Updates(map[string]interface{}{
			"risk_score":             riskScore,
			"composite_urgency":      compositeUrgency,
			"urgency_classification": classification,
			"urgency_breakdown_json": breakdownJSON,
		}).Error
}

// DistinctOfficerIds lists the officer external ids present in an organization.
func DistinctOfficerIds(ctx context.Context, organizationId string) ([]string, error) {
	db := config.GetDB()

	var ids []string
	err := db.WithContext(ctx).
		Model(&Client{}).
		Distinct("officer_external_id").
		Where("organization_id = ? AND officer_external_id <> ''", organizationId).
		Pluck("officer_external_id", &ids).Error
	return ids, err
}
