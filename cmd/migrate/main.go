package main

import (
	"log"

	"corp-tax-agent-be/internal/config"
	"corp-tax-agent-be/pkg/database"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.Database.Driver, cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 2: Creating Views...")
	postMigrationSQL := []string{
		// Latest accepted result per subject/period, joined to its report when one exists.
		`CREATE VIEW IF NOT EXISTS accepted_results_with_reports AS
		 SELECT cr.id AS calc_result_id, cr.subject, cr.period, cr.total, cr.confidence,
		        ra.id AS report_id, ra.checksum, cr.created_at
		 FROM calc_results cr
		 LEFT JOIN report_artifacts ra ON ra.calc_result_id = cr.id
		 WHERE cr.status = 'accepted';`,
	}
	if db.Dialector.Name() == database.DriverPostgres {
		postMigrationSQL[0] = `CREATE OR REPLACE VIEW accepted_results_with_reports AS
		 SELECT cr.id AS calc_result_id, cr.subject, cr.period, cr.total, cr.confidence,
		        ra.id AS report_id, ra.checksum, cr.created_at
		 FROM calc_results cr
		 LEFT JOIN report_artifacts ra ON ra.calc_result_id = cr.id
		 WHERE cr.status = 'accepted';`
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: Database migration completed.")
}
