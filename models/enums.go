package models

const (
	SyncRunStatusPending    = "pending"
	SyncRunStatusInProgress = "in_progress"
	SyncRunStatusSuccess    = "success"
	SyncRunStatusError      = "error"
)

const (
	SyncTriggeredManual    = "manual"
	SyncTriggeredScheduled = "scheduled"
	SyncTriggeredRetry     = "retry"
)

const (
	UserRoleAdmin       = "admin"
	UserRoleLoanOfficer = "loan_officer"
)

// SyncRunStatusTerminal reports whether a run can no longer change state.
func SyncRunStatusTerminal(status string) bool {
	return status == SyncRunStatusSuccess || status == SyncRunStatusError
}
