package portfoliosync

import (
	"context"
	"time"

	"github.com/fieldlend/portfolio_backend/config"
	"github.com/fieldlend/portfolio_backend/models"
	"github.com/fieldlend/portfolio_backend/utils"
	"gorm.io/gorm/clause"
)

const (
	// One statement for small imports; fixed 1000-row batches for large ones.
	singleBatchLimit = 500
	largeImportLimit = 5000
	largeImportBatch = 1000
	// MySQL caps prepared-statement placeholders at 65535.
	maxParamsPerStatement = 65535

	// Pause briefly every few batches so a big import cannot saturate the
	// connection pool.
	batchesPerPause = 5
	interBatchPause = 100 * time.Millisecond
)

// Columns the upsert overwrites on conflict. Officer-entered fields are
// absent on purpose: a financial sync must never clobber them.
var upsertColumns = []string{
	"name", "officer_external_id", "phone", "extra_json",
	"outstanding_balance", "at_risk_balance", "par_per_loan",
	"late_days", "delayed_instalments", "paid_instalments",
	"reschedule_count", "monthly_payment",
	"risk_score", "composite_urgency", "urgency_classification",
	"urgency_breakdown_json", "sync_hash", "updated_at",
}

// upsertParamColumns approximates the placeholder count per inserted row.
const upsertParamColumns = 30

// ReconcileResult reports full coverage: total includes rows skipped as
// unchanged, so callers can report every row considered.
type ReconcileResult struct {
	Total             int
	Changed           int
	Skipped           int
	Failed            int
	ChangedOfficerIds []string
}

// PartitionByHash splits incoming rows into changed-or-new vs unchanged by
// comparing fingerprints against the stored ones.
func PartitionByHash(incoming []models.Client, existing map[string]string) (changed []models.Client, skipped int) {
	for _, client := range incoming {
		if prior, ok := existing[client.ExternalClientId]; ok && prior == client.SyncHash {
			skipped++
			continue
		}
		changed = append(changed, client)
	}
	return changed, skipped
}

// BatchSizeFor adapts the upsert batch size to the import volume: one batch
// for small imports, 1000-row batches for very large ones, otherwise capped
// to stay under the per-statement parameter ceiling.
func BatchSizeFor(n int) int {
	if n <= 0 {
		return 1
	}
	if n <= singleBatchLimit {
		return n
	}
	if n > largeImportLimit {
		return largeImportBatch
	}
	ceiling := maxParamsPerStatement / upsertParamColumns
	if n < ceiling {
		return n
	}
	return ceiling
}

// Reconcile upserts the changed/new subset of incoming rows, keyed by
// (organization, external client id). Batches run sequentially; a failing
// batch falls back to per-row upserts so one malformed row cannot abort an
// otherwise successful run.
func Reconcile(ctx context.Context, organizationId string, incoming []models.Client, existingHashes map[string]string) (ReconcileResult, error) {
	logger := config.GetLogger()

	changed, skipped := PartitionByHash(incoming, existingHashes)

	result := ReconcileResult{
		Total:   len(incoming),
		Skipped: skipped,
	}

	if len(changed) == 0 {
		return result, nil
	}

	db := config.GetDB()
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}, {Name: "external_client_id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}

	batchSize := BatchSizeFor(len(changed))
	var officerIds []string

	for start, batchNo := 0, 0; start < len(changed); start, batchNo = start+batchSize, batchNo+1 {
		end := start + batchSize
		if end > len(changed) {
			end = len(changed)
		}
		batch := changed[start:end]

		err := db.WithContext(ctx).Clauses(onConflict).Create(&batch).Error
		if err != nil {
			config.LogError(logger, "portfoliosync", "Reconcile", "batch upsert failed; falling back to per-row", len(batch), err)
			for i := range batch {
				row := batch[i]
				if rowErr := db.WithContext(ctx).Clauses(onConflict).Create(&row).Error; rowErr != nil {
					config.LogError(logger, "portfoliosync", "Reconcile", "row upsert failed; skipping", row.ExternalClientId, rowErr)
					result.Failed++
					continue
				}
				result.Changed++
				officerIds = append(officerIds, row.OfficerExternalId)
			}
		} else {
			result.Changed += len(batch)
			for _, row := range batch {
				officerIds = append(officerIds, row.OfficerExternalId)
			}
		}

		if batchNo > 0 && batchNo%batchesPerPause == 0 {
			time.Sleep(interBatchPause)
		}
	}

	result.ChangedOfficerIds = utils.UniqueSlice(officerIds)
	return result, nil
}
