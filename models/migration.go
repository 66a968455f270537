package models

import (
	"log"

	"github.com/fieldlend/portfolio_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Client{},
		&WeightSettings{},
		&PortfolioSyncRun{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
