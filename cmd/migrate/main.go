package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"relaydesk/internal/config"
	"relaydesk/pkg/database"

	"github.com/joho/godotenv"
)

const usage = `
RelayDesk - Database CLI Tool

Usage:
  migrate [command]

Commands:
  up          Create/update the schema (GORM tables + raw indexes)
  status      Show database connection status and table counts

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	database.Connect(cfg)
	defer database.Close()

	switch flag.Arg(0) {
	case "up":
		runMigrationsUp()
	case "status":
		showStatus()
	default:
		fmt.Printf("Unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp() {
	log.Println("Running migrations...")
	if err := database.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func showStatus() {
	if err := database.Ping(); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	tables := []string{
		"channels",
		"whatsapp_threads",
		"email_threads",
		"conversation_threads",
		"whatsapp_messages",
		"email_messages",
		"attachments",
	}
	for _, table := range tables {
		exists, err := database.TableExists(table)
		if err != nil {
			log.Printf("Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			count, _ := database.TableCount(table)
			log.Printf("Table %-22s exists (%d rows)", table, count)
		} else {
			log.Printf("Table %-22s does not exist", table)
		}
	}
}
