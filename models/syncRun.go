package models

import (
	"context"
	"errors"
	"time"

	"github.com/fieldlend/portfolio_backend/config"
	"gorm.io/gorm"
)

// StaleRunThreshold: a run in_progress longer than this with an expired lease
// is treated as abandoned; a later run may proceed.
const StaleRunThreshold = 10 * time.Minute

// PortfolioSyncRun is the per-run progress record. Each run is addressable by
// id; there is no global "current sync" state shared across runs.
type PortfolioSyncRun struct {
	ID             uint   `gorm:"primary_key" json:"id"`
	OrganizationId string `gorm:"index;size:64;not null" json:"organization_id"`
	Status         string `gorm:"size:20;not null" json:"status"`
	TriggeredBy    string `gorm:"size:20" json:"triggered_by"`

	Progress         int    `gorm:"default:0" json:"progress"`
	CurrentStep      string `gorm:"size:255" json:"current_step"`
	RecordsProcessed int    `gorm:"default:0" json:"records_processed"`
	RecordsChanged   int    `gorm:"default:0" json:"records_changed"`
	LastError        *string `gorm:"type:text" json:"last_error"`

	SourceRef               string `gorm:"size:1024" json:"source_ref"`
	ProvisionedOfficersJSON []byte `gorm:"type:json" json:"provisioned_officers"`
	QualityReportJSON       []byte `gorm:"type:json" json:"quality_report"`

	LeaseOwner     string     `gorm:"size:64" json:"lease_owner"`
	LeaseExpiresAt *time.Time `json:"lease_expires_at"`

	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func CreateSyncRun(ctx context.Context, run *PortfolioSyncRun) error {
	db := config.GetDB()
	if run.Status == "" {
		run.Status = SyncRunStatusPending
	}
	return db.WithContext(ctx).Create(run).Error
}

func GetSyncRun(ctx context.Context, organizationId string, id uint) (*PortfolioSyncRun, error) {
	db := config.GetDB()

	var run PortfolioSyncRun
	err := db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, organizationId).
		Take(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LatestSyncRun returns the newest run for the organization, nil when none.
func LatestSyncRun(ctx context.Context, organizationId string) (*PortfolioSyncRun, error) {
	db := config.GetDB()

	var run PortfolioSyncRun
	err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Order("id desc").
		Take(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func UpdateSyncRun(ctx context.Context, runId uint, updates map[string]interface{}) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Model(&PortfolioSyncRun{}).
		Where("id = ?", runId).
		Updates(updates).Error
}

// UpdateSyncRunProgress advances progress and step text. Progress never moves
// backwards; a re-entrant recalculation can only push it forward.
func UpdateSyncRunProgress(ctx context.Context, runId uint, progress int, step string) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Model(&PortfolioSyncRun{}).
		Where("id = ? AND progress <= ?", runId, progress).
		Updates(map[string]interface{}{
			"progress":     progress,
			"current_step": step,
		}).Error
}

// IsStale reports whether a non-terminal run should be treated as abandoned.
// The lease expiry is authoritative; the started-at threshold is the fallback
// when the lease record is missing.
func (r PortfolioSyncRun) IsStale(now time.Time) bool {
	if SyncRunStatusTerminal(r.Status) {
		return false
	}
	if r.LeaseExpiresAt != nil {
		return now.After(*r.LeaseExpiresAt)
	}
	if r.StartedAt != nil {
		return now.Sub(*r.StartedAt) > StaleRunThreshold
	}
	return now.Sub(r.CreatedAt) > StaleRunThreshold
}

// MarkSyncRunError is terminal; previously synced client data is untouched.
func MarkSyncRunError(ctx context.Context, runId uint, message string) error {
	now := time.Now()
	return UpdateSyncRun(ctx, runId, map[string]interface{}{
		"status":      SyncRunStatusError,
		"last_error":  message,
		"finished_at": now,
	})
}
