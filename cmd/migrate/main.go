package main

import (
	"log"
	"os"

	"game-night/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Applies the match-archive schema (matches, match_results, match_events)
// ahead of deploys that cannot rely on the server's AutoMigrate pass.
func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}

	source := "file://db/migrations"
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		source = "file://" + dir
	}

	m, err := migrate.New(source, mustDatabaseURL())
	if err != nil {
		log.Fatalf("migration setup failed source=%s error=%v", source, err)
	}
	switch err := m.Up(); err {
	case nil:
		log.Println("match archive migrations applied")
	case migrate.ErrNoChange:
		log.Println("match archive schema already current")
	default:
		log.Fatalf("database migration failed: %v", err)
	}
}

func mustDatabaseURL() string {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	return dsn
}
