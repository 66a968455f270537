package portfoliosync

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/fieldlend/portfolio_backend/models"
	"github.com/shopspring/decimal"
)

// SyncHash fingerprints the sync-relevant fields of a client record: identity,
// raw metrics, and the scores/classification as of import. Officer-entered
// fields (feedback, visit/call metadata, notes) are deliberately excluded so
// an unrelated financial sync never discards user edits made between runs.
// Numeric fields are rounded to 2 decimals first to suppress float noise.
func SyncHash(client models.Client) string {
	parts := []string{
		client.OrganizationId,
		client.ExternalClientId,
		client.Name,
		client.OfficerExternalId,
		money(client.OutstandingBalance),
		money(client.AtRiskBalance),
		money(client.ParPerLoan),
		strconv.Itoa(client.LateDays),
		strconv.Itoa(client.DelayedInstalments),
		strconv.Itoa(client.PaidInstalments),
		strconv.Itoa(client.RescheduleCount),
		money(client.MonthlyPayment),
		strconv.Itoa(client.RiskScore),
		strconv.FormatFloat(client.CompositeUrgency, 'f', 2, 64),
		client.UrgencyClassification,
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func money(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
