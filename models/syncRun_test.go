package models

import (
	"testing"
	"time"
)

func TestSyncRunIsStale(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	longAgo := now.Add(-StaleRunThreshold - time.Minute)

	cases := []struct {
		name string
		run  PortfolioSyncRun
		want bool
	}{
		{
			"terminal runs are never stale",
			PortfolioSyncRun{Status: SyncRunStatusSuccess, LeaseExpiresAt: &past},
			false,
		},
		{
			"live lease",
			PortfolioSyncRun{Status: SyncRunStatusInProgress, LeaseExpiresAt: &future},
			false,
		},
		{
			"expired lease",
			PortfolioSyncRun{Status: SyncRunStatusInProgress, LeaseExpiresAt: &past},
			true,
		},
		{
			"no lease, recent start",
			PortfolioSyncRun{Status: SyncRunStatusInProgress, StartedAt: &past},
			false,
		},
		{
			"no lease, old start",
			PortfolioSyncRun{Status: SyncRunStatusInProgress, StartedAt: &longAgo},
			true,
		},
		{
			"no lease or start, old record",
			PortfolioSyncRun{Status: SyncRunStatusInProgress, CreatedAt: longAgo},
			true,
		},
	}
	for _, tc := range cases {
		if got := tc.run.IsStale(now); got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
