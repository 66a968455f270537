package portfoliosync

import (
	"github.com/shopspring/decimal"
)

// Canonical field names the normalizer maps arbitrary source headers onto.
const (
	FieldClientId           = "Client ID"
	FieldClientName         = "Client Name"
	FieldOfficerId          = "Loan Officer ID"
	FieldOutstanding        = "Outstanding Balance"
	FieldAtRisk             = "At Risk Balance"
	FieldParPerLoan         = "PAR Per Loan"
	FieldLateDays           = "Late Days"
	FieldDelayedInstalments = "Delayed Instalments"
	FieldPaidInstalments    = "Paid Instalments"
	FieldReschedules        = "Reschedule Count"
	FieldMonthlyPayment     = "Monthly Payment"
	FieldPhone              = "Phone"
)

// identityFields abort-level when absent; financialFields default to zero.
var identityFields = []string{FieldClientId, FieldClientName, FieldOfficerId}

var financialFields = []string{
	FieldOutstanding, FieldAtRisk, FieldParPerLoan, FieldLateDays,
	FieldDelayedInstalments, FieldPaidInstalments, FieldReschedules,
	FieldMonthlyPayment,
}

// SourceRow is one normalized client row ready for scoring + reconciliation.
type SourceRow struct {
	ExternalClientId string
	Name             string
	OfficerId        string
	Phone            string

	OutstandingBalance decimal.Decimal
	AtRiskBalance      decimal.Decimal
	ParPerLoan         decimal.Decimal
	LateDays           int
	DelayedInstalments int
	PaidInstalments    int
	RescheduleCount    int
	MonthlyPayment     decimal.Decimal

	// Unmapped source columns, passed through verbatim.
	Extra map[string]string
}

// TriggerSyncRequest starts an ingestion run for a local path or http(s) URL.
type TriggerSyncRequest struct {
	Source      string `json:"source" binding:"required"`
	TriggeredBy string `json:"triggeredBy"`
	// Interactive ingestion paths also auto-provision missing officer accounts.
	ProvisionOfficers bool `json:"provisionOfficers"`
}

type SyncStatusResponse struct {
	ID               uint    `json:"id"`
	Status           string  `json:"status"`
	Progress         int     `json:"progress"`
	CurrentStep      string  `json:"currentStep"`
	RecordsProcessed int     `json:"recordsProcessed"`
	RecordsChanged   int     `json:"recordsChanged"`
	LastError        *string `json:"lastError"`
	StartedAt        *string `json:"startedAt"`
	FinishedAt       *string `json:"finishedAt"`
}

// RunResult is the structured outcome of one ingestion run.
type RunResult struct {
	RunId               uint     `json:"run_id"`
	RecordsProcessed    int      `json:"records_processed"`
	RecordsChanged      int      `json:"records_changed"`
	RecordsSkipped      int      `json:"records_skipped"`
	ProvisionedOfficers []string `json:"provisioned_officers,omitempty"`
	QualityReport       *Report  `json:"quality_report,omitempty"`
}

// RecordVisitRequest marks a field visit as completed. Timestamps default to
// now when omitted.
type RecordVisitRequest struct {
	VisitedAt string `json:"visitedAt"`
	Notes     string `json:"notes"`
}

type RecordCallRequest struct {
	CalledAt string `json:"calledAt"`
	Notes    string `json:"notes"`
}

// UpdateFeedbackRequest carries the officer's qualitative assessment. Overall
// is required; sub-dimension scores are optional and take precedence over the
// overall score when present.
type UpdateFeedbackRequest struct {
	Overall       int  `json:"overall" binding:"required,min=1,max=5"`
	Repayment     *int `json:"repayment" binding:"omitempty,min=1,max=5"`
	Communication *int `json:"communication" binding:"omitempty,min=1,max=5"`
	Cooperation   *int `json:"cooperation" binding:"omitempty,min=1,max=5"`
	Stability     *int `json:"stability" binding:"omitempty,min=1,max=5"`
	Outlook       *int `json:"outlook" binding:"omitempty,min=1,max=5"`
}

// Event payload handed to the external broadcaster. Transport beyond the
// channel is out of scope.
const (
	EventScoresUpdated  = "scores_updated"
	EventWeightsChanged = "weights_changed"
	EventSyncCompleted  = "sync_completed"
)

type EventPayload struct {
	Type           string      `json:"type"`
	OrganizationId string      `json:"organization_id"`
	ClientId       uint        `json:"client_id,omitempty"`
	OfficerIds     []string    `json:"officer_ids,omitempty"`
	RunId          uint        `json:"run_id,omitempty"`
	Detail         interface{} `json:"detail,omitempty"`
}
