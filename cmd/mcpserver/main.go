package main

import (
	"context"
	"log"
	"os"
	"time"

	"wagelink-backend/mcp"
	"wagelink-backend/payout"
	"wagelink-backend/services"
	"wagelink-backend/storage/ledger"

	"github.com/mark3labs/mcp-go/server"
)

type config struct {
	PGDSN           string
	PayoutNodeURL   string
	TransferTimeout time.Duration
}

func loadConfig() config {
	transferTimeout := services.DefaultTransferTimeout
	if raw := os.Getenv("TRANSFER_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			transferTimeout = d
		}
	}

	return config{
		PGDSN:           os.Getenv("DATABASE_URL"),
		PayoutNodeURL:   os.Getenv("PAYOUT_NODE_URL"),
		TransferTimeout: transferTimeout,
	}
}

func main() {
	cfg := loadConfig()

	ctx := context.Background()
	var store ledger.Store
	if cfg.PGDSN != "" {
		pgStore, err := ledger.NewPGStore(ctx, cfg.PGDSN)
		if err != nil {
			log.Fatalf("failed to init store: %v", err)
		}
		store = pgStore
	} else {
		store = ledger.NewMemoryStore()
	}
	defer store.Close()

	var transfer payout.TransferCapability = payout.Unconfigured{}
	if cfg.PayoutNodeURL != "" {
		transfer = payout.NewNodeClient(cfg.PayoutNodeURL)
	}

	identity := services.NewIdentityService(store, nil)
	ledgerSvc := services.NewLedgerService(store, identity)
	settlement := services.NewSettlementService(store, ledgerSvc, transfer, cfg.TransferTimeout)
	dispute := services.NewDisputeService(store, ledgerSvc)

	// Create new MCP server using mcp-go
	mcpServer := mcp.NewMCPServer(identity, ledgerSvc, settlement, dispute)

	log.Printf("Wagelink MCP server starting")
	log.Printf("Server: Wagelink MCP Server v1.0.0")

	// Start the MCP server using stdio transport
	if err := server.ServeStdio(mcpServer.GetMCPServer()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
