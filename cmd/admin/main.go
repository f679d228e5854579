package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"financefly/internal/infrastructure/pluggy"
	"financefly/internal/infrastructure/postgres"
	"financefly/internal/shared/config"
)

const usage = `FinanceFly Admin CLI - Management commands for the connector

Usage:
  admin <command> [options]

Commands:
  list-clients    List all connected clients, newest first
  get-client      Look up a client by its provider item id
  check-provider  Verify the configured Pluggy credentials

Examples:
  # List every stored connection
  admin list-clients

  # Inspect a single connection
  admin get-client --item-id=a1b2c3

  # Confirm the provider credentials still authenticate
  admin check-provider --timeout=30s
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "list-clients":
		runListClients(os.Args[2:])
	case "get-client":
		runGetClient(os.Args[2:])
	case "check-provider":
		runCheckProvider(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func runListClients(args []string) {
	fs := flag.NewFlagSet("list-clients", flag.ExitOnError)
	timeoutStr := fs.String("timeout", "1m", "Timeout for the operation (e.g., 30s, 5m)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, cancel, repo, closeDB := setupRepo(*timeoutStr)
	defer cancel()
	defer closeDB()

	records, err := repo.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list clients: %v", err)
	}

	if len(records) == 0 {
		fmt.Println("No connected clients")
		return
	}

	fmt.Printf("%-6s %-25s %-30s %-36s %s\n", "ID", "NAME", "EMAIL", "ITEM ID", "CREATED")
	for _, rec := range records {
		fmt.Printf("%-6d %-25s %-30s %-36s %s\n",
			rec.ID, rec.Name, rec.Email, rec.ItemID,
			rec.CreatedAt.Format(time.RFC3339),
		)
	}
	fmt.Printf("\n%d client(s)\n", len(records))
}

func runGetClient(args []string) {
	fs := flag.NewFlagSet("get-client", flag.ExitOnError)
	itemID := fs.String("item-id", "", "Provider item id of the connection")
	timeoutStr := fs.String("timeout", "1m", "Timeout for the operation (e.g., 30s, 5m)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *itemID == "" {
		fmt.Println("Error: must specify --item-id")
		fs.Usage()
		os.Exit(1)
	}

	ctx, cancel, repo, closeDB := setupRepo(*timeoutStr)
	defer cancel()
	defer closeDB()

	rec, err := repo.GetByItemID(ctx, *itemID)
	if err != nil {
		log.Fatalf("Failed to get client: %v", err)
	}
	if rec == nil {
		fmt.Printf("No client found for item id %s\n", *itemID)
		os.Exit(1)
	}

	fmt.Printf("ID:      %d\n", rec.ID)
	fmt.Printf("Name:    %s\n", rec.Name)
	fmt.Printf("Email:   %s\n", rec.Email)
	fmt.Printf("Item ID: %s\n", rec.ItemID)
	fmt.Printf("Created: %s\n", rec.CreatedAt.Format(time.RFC3339))
}

func runCheckProvider(args []string) {
	fs := flag.NewFlagSet("check-provider", flag.ExitOnError)
	timeoutStr := fs.String("timeout", "30s", "Timeout for the operation (e.g., 30s, 5m)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client := pluggy.NewClient(cfg.Pluggy.ClientID, cfg.Pluggy.ClientSecret)
	client.SetBaseURL(cfg.Pluggy.BaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	if _, err := client.Authenticate(ctx); err != nil {
		log.Fatalf("Provider authentication failed: %v", err)
	}

	fmt.Printf("Provider authentication OK (%v)\n", time.Since(start).Round(time.Millisecond))
}

// setupRepo loads config, connects to the database, and returns the
// client repository along with the cleanup functions.
func setupRepo(timeoutStr string) (context.Context, context.CancelFunc, *postgres.ClientRepository, func()) {
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return ctx, cancel, postgres.NewClientRepository(db), func() { db.Close() }
}
