package container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"wagelink-backend/authority"
	"wagelink-backend/handlers"
	"wagelink-backend/payout"
	"wagelink-backend/services"
	"wagelink-backend/storage/auth"
	"wagelink-backend/storage/ledger"
)

// Container holds all application dependencies
type Container struct {
	// Storage
	Store    ledger.Store
	APIKeys  auth.APIKeyValidator
	KeyStore auth.APIKeyIssuer

	// Services
	IdentityService   *services.IdentityService
	LedgerService     *services.LedgerService
	SettlementService *services.SettlementService
	DisputeService    *services.DisputeService
	QRCodeService     *services.QRCodeService
	HealthService     *services.HealthService

	// Handlers
	HealthHandler     *handlers.HealthHandler
	WorkerHandler     *handlers.WorkerHandler
	AssignmentHandler *handlers.AssignmentHandler
	PaymentHandler    *handlers.PaymentHandler
	DisputeHandler    *handlers.DisputeHandler
	QRCodeHandler     *handlers.QRCodeHandler
}

// NewContainer creates a new dependency container. Storage backs onto
// Postgres when DATABASE_URL is set, an in-memory store otherwise.
func NewContainer(ctx context.Context) (*Container, error) {
	var (
		store    ledger.Store
		keyStore auth.APIKeyValidator
		issuer   auth.APIKeyIssuer
	)

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pgStore, err := ledger.NewPGStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect ledger store: %w", err)
		}
		store = pgStore

		pgKeys, err := auth.NewPGAPIKeyStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect api key store: %w", err)
		}
		if seed := os.Getenv("WAGELINK_API_KEY"); seed != "" {
			pgKeys.Seed(seed, envOr("WAGELINK_CONTRACTOR_ID", "contractor-seed"), "seed")
		}
		keyStore = pgKeys
		issuer = pgKeys
		log.Println("Using Postgres storage")
	} else {
		memStore := ledger.NewMemoryStore()
		memKeys := auth.NewAPIKeyStore()
		if seed := os.Getenv("WAGELINK_API_KEY"); seed != "" {
			memKeys.Seed(seed, envOr("WAGELINK_CONTRACTOR_ID", "contractor-seed"), "seed")
		}
		store = memStore
		keyStore = memKeys
		issuer = memKeys
		log.Println("Using in-memory storage")
	}

	var verifier authority.Verifier
	if authorityURL := os.Getenv("AUTHORITY_URL"); authorityURL != "" {
		verifier = authority.NewClient(authorityURL)
	}

	var transfer payout.TransferCapability
	if payoutURL := os.Getenv("PAYOUT_NODE_URL"); payoutURL != "" {
		transfer = payout.NewNodeClient(payoutURL)
	} else {
		log.Println("PAYOUT_NODE_URL not set, settlements will fail until a payout node is configured")
		transfer = payout.Unconfigured{}
	}

	transferTimeout := services.DefaultTransferTimeout
	if raw := os.Getenv("TRANSFER_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse TRANSFER_TIMEOUT: %w", err)
		}
		transferTimeout = d
	}

	// Initialize services
	identityService := services.NewIdentityService(store, verifier)
	ledgerService := services.NewLedgerService(store, identityService)
	settlementService := services.NewSettlementService(store, ledgerService, transfer, transferTimeout)
	disputeService := services.NewDisputeService(store, ledgerService)
	qrService := services.NewQRCodeService()
	healthService := services.NewHealthService()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(healthService)
	workerHandler := handlers.NewWorkerHandler(identityService)
	assignmentHandler := handlers.NewAssignmentHandler(ledgerService)
	paymentHandler := handlers.NewPaymentHandler(settlementService)
	disputeHandler := handlers.NewDisputeHandler(disputeService)
	qrHandler := handlers.NewQRCodeHandler(qrService)

	return &Container{
		Store:    store,
		APIKeys:  keyStore,
		KeyStore: issuer,

		IdentityService:   identityService,
		LedgerService:     ledgerService,
		SettlementService: settlementService,
		DisputeService:    disputeService,
		QRCodeService:     qrService,
		HealthService:     healthService,

		HealthHandler:     healthHandler,
		WorkerHandler:     workerHandler,
		AssignmentHandler: assignmentHandler,
		PaymentHandler:    paymentHandler,
		DisputeHandler:    disputeHandler,
		QRCodeHandler:     qrHandler,
	}, nil
}

// Close releases the container's storage connections.
func (c *Container) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
	if closer, ok := c.APIKeys.(interface{ Close() }); ok {
		closer.Close()
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
