package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"swarmsync/internal/database"
)

func main() {
	dbPath := flag.String("db", "./swarmsync.db", "Path to the database file")
	status := flag.Bool("status", false, "Print the schema version and exit")
	flag.Parse()

	if *status {
		if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
			log.Fatalf("Database file not found: %s", *dbPath)
		}
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	// A database that was never migrated has no schema_migrations table.
	before, err := db.SchemaVersion(ctx)
	if err != nil {
		before = 0
	}

	if *status {
		fmt.Printf("Schema version: %d\n", before)
		return
	}

	after, err := db.Migrate(ctx)
	if err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	if after == before {
		fmt.Printf("Schema is up to date (version %d)\n", before)
		return
	}
	fmt.Printf("Schema migrated: version %d -> %d\n", before, after)
}
