package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	gsheet "github.com/merosu1777-dotcom/gas-management-app/internal/sheets/google"
)

// One-shot bootstrap: verifies the service account can reach the spreadsheet
// and creates the backup sheet with its header row when absent.
func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cli, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		log.Fatalf("sheets client: %v", err)
	}

	rows, err := cli.ListRows(ctx)
	if err != nil {
		log.Fatalf("read records sheet: %v", err)
	}
	fmt.Printf("records sheet reachable: %d rows\n", len(rows))

	if err := cli.EnsureBackupSheet(ctx); err != nil {
		log.Fatalf("ensure backup sheet: %v", err)
	}
	fmt.Println("backup sheet ready")
}
