package portfoliosync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/fieldlend/portfolio_backend/config"
	"github.com/fieldlend/portfolio_backend/models"
	"github.com/fieldlend/portfolio_backend/scoring"
	"github.com/google/uuid"
)

// StartSyncRun persists a pending run and launches execution in the
// background; callers get the run id back immediately and poll status.
// One run per organization at a time is advisory: a stale in_progress run
// never blocks a fresh one.
func StartSyncRun(ctx context.Context, organizationId string, req TriggerSyncRequest) (*models.PortfolioSyncRun, error) {
	latest, err := models.LatestSyncRun(ctx, organizationId)
	if err != nil {
		return nil, err
	}
	if latest != nil && !models.SyncRunStatusTerminal(latest.Status) && !latest.IsStale(time.Now()) {
		return nil, ErrSyncAlreadyRunning
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = models.SyncTriggeredManual
	}

	run := models.PortfolioSyncRun{
		OrganizationId: organizationId,
		Status:         models.SyncRunStatusPending,
		TriggeredBy:    triggeredBy,
		SourceRef:      req.Source,
	}
	if err := models.CreateSyncRun(ctx, &run); err != nil {
		return nil, err
	}

	// Detach from the request context: the trigger returns immediately while
	// ingestion proceeds in the background against the run record.
	go ExecuteRun(context.Background(), run.ID, organizationId, req.Source, req.ProvisionOfficers)

	return &run, nil
}

// ExecuteRun drives one ingestion run through the pipeline, updating the run
// record as it goes. A failure before partial output marks the run errored
// and leaves previously synced data untouched.
func ExecuteRun(ctx context.Context, runId uint, organizationId string, source string, provisionOfficers bool) {
	logger := config.GetLogger()

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("sync run panicked: %v", r)
			config.LogError(logger, "portfoliosync", "ExecuteRun", "recovered panic", runId, fmt.Errorf("%v", r))
			_ = models.MarkSyncRunError(ctx, runId, msg)
		}
	}()

	leaseOwner := uuid.NewString()
	lock := acquireLease(ctx, organizationId, leaseOwner)
	if lock != nil {
		defer func() { _ = lock.Release(ctx) }()
	}

	now := time.Now()
	leaseExpiry := now.Add(models.StaleRunThreshold)
	if err := models.UpdateSyncRun(ctx, runId, map[string]interface{}{
		"status":           models.SyncRunStatusInProgress,
		"started_at":       now,
		"lease_owner":      leaseOwner,
		"lease_expires_at": leaseExpiry,
	}); err != nil {
		config.LogError(logger, "portfoliosync", "ExecuteRun", "mark in_progress", runId, err)
		return
	}

	result, err := runPipeline(ctx, runId, organizationId, source, provisionOfficers)
	if err != nil {
		_ = models.MarkSyncRunError(ctx, runId, err.Error())
		return
	}

	finished := time.Now()
	reportJSON, _ := json.Marshal(result.QualityReport)
	provisionedJSON, _ := json.Marshal(result.ProvisionedOfficers)
	if err := models.UpdateSyncRun(ctx, runId, map[string]interface{}{
		"status":                    models.SyncRunStatusSuccess,
		"progress":                  100,
		"current_step":              "done",
		"records_processed":         result.RecordsProcessed,
		"records_changed":           result.RecordsChanged,
		"quality_report_json":       reportJSON,
		"provisioned_officers_json": provisionedJSON,
		"finished_at":               finished,
	}); err != nil {
		config.LogError(logger, "portfoliosync", "ExecuteRun", "mark success", runId, err)
		return
	}
	config.LogInfo(logger, "portfoliosync", "ExecuteRun", "sync run completed", map[string]int{
		"processed": result.RecordsProcessed,
		"changed":   result.RecordsChanged,
		"skipped":   result.RecordsSkipped,
	})
}

// acquireLease takes the per-organization sync lease: an explicit lock with
// owner metadata and a TTL, not a timestamp heuristic. Best-effort — when
// Redis is unavailable the DB lease fields still record owner and expiry.
func acquireLease(ctx context.Context, organizationId string, owner string) *redislock.Lock {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		return nil
	}

	lock, err := locker.Obtain(ctx, "portfolio-sync:"+organizationId, models.StaleRunThreshold, &redislock.Options{
		Metadata: owner,
	})
	if err == redislock.ErrNotObtained {
		// Advisory only: the staleness check in StartSyncRun already decided
		// this run may proceed.
		config.LogError(logger, "portfoliosync", "acquireLease", "lease held; proceeding past stale holder", organizationId, err)
		return nil
	} else if err != nil {
		config.LogError(logger, "portfoliosync", "acquireLease", "lease error", organizationId, err)
		return nil
	}
	return lock
}

func runPipeline(ctx context.Context, runId uint, organizationId string, source string, provisionOfficers bool) (*RunResult, error) {
	report := NewReport()

	_ = models.UpdateSyncRunProgress(ctx, runId, 5, "fetching source")
	data, err := FetchSource(ctx, source)
	if err != nil {
		return nil, err
	}

	_ = models.UpdateSyncRunProgress(ctx, runId, 15, "parsing workbook")
	headers, rawRows, err := ParseWorkbook(data)
	if err != nil {
		return nil, err
	}
	report.Infof("parsed %d rows with %d columns", len(rawRows), len(headers))

	_ = models.UpdateSyncRunProgress(ctx, runId, 25, "normalizing columns")
	mapping := MapColumns(headers, report)
	auditMapping(mapping, report)
	rows := ConvertRows(rawRows, mapping, report)

	_ = models.UpdateSyncRunProgress(ctx, runId, 40, "scoring records")
	settings, err := models.GetWeightSettings(ctx, organizationId)
	if err != nil {
		return nil, err
	}
	states, err := models.ExistingClientStates(ctx, organizationId)
	if err != nil {
		return nil, err
	}
	clients := buildClients(organizationId, rows, states, settings)

	_ = models.UpdateSyncRunProgress(ctx, runId, 60, "reconciling records")
	existingHashes := make(map[string]string, len(states))
	for id, state := range states {
		existingHashes[id] = state.SyncHash
	}
	reconciled, err := Reconcile(ctx, organizationId, clients, existingHashes)
	if err != nil {
		return nil, err
	}

	_ = models.UpdateSyncRunProgress(ctx, runId, 85, "refreshing classifications")
	refreshClassifications(ctx, organizationId, reconciled.ChangedOfficerIds, runId)

	var provisioned []string
	if provisionOfficers {
		_ = models.UpdateSyncRunProgress(ctx, runId, 95, "provisioning officer accounts")
		provisioned = provisionMissingOfficers(ctx, organizationId, clients)
	}

	return &RunResult{
		RunId:               runId,
		RecordsProcessed:    reconciled.Total,
		RecordsChanged:      reconciled.Changed,
		RecordsSkipped:      reconciled.Skipped,
		ProvisionedOfficers: provisioned,
		QualityReport:       report,
	}, nil
}

// buildClients merges sheet rows with the stored officer-entered state, then
// scores and fingerprints each record through the shared scoring module.
func buildClients(organizationId string, rows []SourceRow, states map[string]models.ClientSyncState, settings models.WeightSettings) []models.Client {
	now := time.Now()
	clients := make([]models.Client, 0, len(rows))

	for _, row := range rows {
		client := models.Client{
			OrganizationId:     organizationId,
			ExternalClientId:   row.ExternalClientId,
			Name:               row.Name,
			OfficerExternalId:  row.OfficerId,
			Phone:              row.Phone,
			OutstandingBalance: row.OutstandingBalance,
			AtRiskBalance:      row.AtRiskBalance,
			ParPerLoan:         row.ParPerLoan,
			LateDays:           row.LateDays,
			DelayedInstalments: row.DelayedInstalments,
			PaidInstalments:    row.PaidInstalments,
			RescheduleCount:    row.RescheduleCount,
			MonthlyPayment:     row.MonthlyPayment,
		}

		if len(row.Extra) > 0 {
			client.ExtraJSON, _ = json.Marshal(row.Extra)
		}

		// Officer-entered fields come from the store, never the extract.
		if state, ok := states[row.ExternalClientId]; ok {
			client.LastVisitAt = state.LastVisitAt
			client.LastCallAt = state.LastCallAt
			client.VisitNotes = state.VisitNotes
			client.FeedbackScore = state.FeedbackScore
			client.FeedbackRepayment = state.FeedbackRepayment
			client.FeedbackCommunication = state.FeedbackCommunication
			client.FeedbackCooperation = state.FeedbackCooperation
			client.FeedbackStability = state.FeedbackStability
			client.FeedbackOutlook = state.FeedbackOutlook
		}

		riskScore, composite, classification, breakdownJSON := scoring.ScoreClient(client, settings, now)
		client.RiskScore = riskScore
		client.CompositeUrgency = composite
		client.UrgencyClassification = classification
		client.UrgencyBreakdownJSON = breakdownJSON
		client.SyncHash = SyncHash(client)

		clients = append(clients, client)
	}

	return clients
}

// refreshClassifications re-checks stored classifications after a sync and
// notifies the broadcaster which officers saw changes.
func refreshClassifications(ctx context.Context, organizationId string, changedOfficerIds []string, runId uint) {
	logger := config.GetLogger()

	if _, err := scoring.RepairClassifications(ctx, organizationId); err != nil {
		config.LogError(logger, "portfoliosync", "refreshClassifications", "repair", organizationId, err)
	}

	if len(changedOfficerIds) > 0 {
		BroadcastEvent(ctx, EventPayload{
			Type:           EventSyncCompleted,
			OrganizationId: organizationId,
			OfficerIds:     changedOfficerIds,
			RunId:          runId,
		})
	}
}

// provisionMissingOfficers creates loan-officer accounts for officer ids seen
// in the extract that have no account yet. Failures are logged per officer;
// provisioning never fails the run.
func provisionMissingOfficers(ctx context.Context, organizationId string, clients []models.Client) []string {
	logger := config.GetLogger()

	seen := map[string]bool{}
	var provisioned []string
	for _, client := range clients {
		officerId := client.OfficerExternalId
		if officerId == "" || officerId == fallbackOfficerId || seen[officerId] {
			continue
		}
		seen[officerId] = true

		exists, err := models.OfficerAccountExists(ctx, organizationId, officerId)
		if err != nil {
			config.LogError(logger, "portfoliosync", "provisionMissingOfficers", "lookup", officerId, err)
			continue
		}
		if exists {
			continue
		}

		username, err := models.ProvisionOfficerAccount(ctx, organizationId, officerId)
		if err != nil {
			config.LogError(logger, "portfoliosync", "provisionMissingOfficers", "create", officerId, err)
			continue
		}
		provisioned = append(provisioned, username)
	}
	return provisioned
}
