package portfoliosync

import (
	"testing"
	"time"

	"github.com/fieldlend/portfolio_backend/models"
	"github.com/shopspring/decimal"
)

func sampleClient() models.Client {
	return models.Client{
		OrganizationId:     "org-1",
		ExternalClientId:   "C-100",
		Name:               "U Kyaw",
		OfficerExternalId:  "LO-7",
		OutstandingBalance: decimal.RequireFromString("1500000.00"),
		AtRiskBalance:      decimal.RequireFromString("250000.00"),
		ParPerLoan:         decimal.RequireFromString("0.17"),
		LateDays:           14,
		DelayedInstalments: 2,
		PaidInstalments:    10,
		RescheduleCount:    1,
		MonthlyPayment:     decimal.RequireFromString("125000.00"),
		RiskScore:          42,
		CompositeUrgency:   38.5,
	}
}

func TestSyncHashStableAcrossRuns(t *testing.T) {
	a := SyncHash(sampleClient())
	b := SyncHash(sampleClient())
	if a != b {
		t.Fatalf("identical records must hash identically: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %q", a)
	}
}

func TestSyncHashFieldIsolation(t *testing.T) {
	base := SyncHash(sampleClient())

	// Officer-entered fields must never move the hash.
	edited := sampleClient()
	edited.FeedbackScore = 5
	edited.FeedbackRepayment = 4
	edited.VisitNotes = "visited, promised payment friday"
	visit := time.Now()
	edited.LastVisitAt = &visit
	if SyncHash(edited) != base {
		t.Errorf("officer-entered fields changed the hash")
	}

	// Financial fields must.
	financial := sampleClient()
	financial.OutstandingBalance = decimal.RequireFromString("1500001.00")
	if SyncHash(financial) == base {
		t.Errorf("outstanding balance change not detected")
	}

	identity := sampleClient()
	identity.OfficerExternalId = "LO-8"
	if SyncHash(identity) == base {
		t.Errorf("officer reassignment not detected")
	}

	score := sampleClient()
	score.RiskScore = 43
	if SyncHash(score) == base {
		t.Errorf("risk score change not detected")
	}
}

func TestSyncHashSuppressesSubCentNoise(t *testing.T) {
	base := sampleClient()
	noisy := sampleClient()
	noisy.OutstandingBalance = decimal.RequireFromString("1500000.0001")
	noisy.CompositeUrgency = 38.5000001

	if SyncHash(base) != SyncHash(noisy) {
		t.Errorf("sub-cent noise must not change the hash")
	}

	moved := sampleClient()
	moved.OutstandingBalance = decimal.RequireFromString("1500000.01")
	if SyncHash(base) == SyncHash(moved) {
		t.Errorf("a one-cent change must change the hash")
	}
}
