// seed-admin creates or updates the admin console user for an organization.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin -org <organization_id>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fieldlend/portfolio_backend/config"
	"github.com/fieldlend/portfolio_backend/models"
	"github.com/fieldlend/portfolio_backend/utils"
	"gorm.io/gorm"
)

const adminUsername = "portfolioAdmin"

func main() {
	org := flag.String("org", "", "organization id the admin belongs to")
	password := flag.String("password", "", "admin password (generated when omitted)")
	flag.Parse()

	if *org == "" {
		fmt.Fprintln(os.Stderr, "usage: seed-admin -org <organization_id> [-password <password>]")
		os.Exit(2)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	pw := *password
	generated := false
	if pw == "" {
		pw = utils.GenerateTempPassword(16)
		generated = true
	}
	hashed, err := utils.HashPassword(pw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			OrganizationId: *org,
			Username:       adminUsername,
			Role:           models.UserRoleAdmin,
			PasswordHash:   string(hashed),
			IsActive:       utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: username=%q organization=%q\n", adminUsername, *org)
	} else {
		if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).Updates(map[string]any{
			"password_hash":   string(hashed),
			"organization_id": *org,
			"role":            models.UserRoleAdmin,
			"is_active":       utils.NewTrue(),
		}).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated admin user: username=%q organization=%q\n", adminUsername, *org)
	}

	if generated {
		fmt.Printf("Generated password: %s\n", pw)
	}
}
