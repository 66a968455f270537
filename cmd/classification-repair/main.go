// classification-repair rescans stored clients and rewrites any urgency
// classification that no longer matches its composite score, e.g. after the
// thresholds change in a release.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/classification-repair -org <organization_id>
//
// Pass -org all to repair every organization with clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fieldlend/portfolio_backend/config"
	"github.com/fieldlend/portfolio_backend/models"
	"github.com/fieldlend/portfolio_backend/scoring"
)

func main() {
	org := flag.String("org", "", "organization id to repair, or 'all'")
	flag.Parse()

	if *org == "" {
		fmt.Fprintln(os.Stderr, "usage: classification-repair -org <organization_id|all>")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	orgs := []string{*org}
	if *org == "all" {
		var ids []string
		if err := db.WithContext(ctx).
			Model(&models.Client{}).
			Distinct("organization_id").
			Pluck("organization_id", &ids).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to list organizations: %v\n", err)
			os.Exit(1)
		}
		orgs = ids
	}

	total := 0
	for _, organizationId := range orgs {
		repaired, err := scoring.RepairClassifications(ctx, organizationId)
		if err != nil {
			fmt.Fprintf(os.Stderr, "repair failed for %s: %v\n", organizationId, err)
			os.Exit(1)
		}
		fmt.Printf("organization %s: repaired %d classifications\n", organizationId, repaired)
		total += repaired
	}
	fmt.Printf("done: %d classifications repaired across %d organizations\n", total, len(orgs))
}
