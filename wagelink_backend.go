package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"wagelink-backend/container"
	"wagelink-backend/middleware"
)

func main() {
	ctx := context.Background()

	// Initialize dependency container
	c, err := container.NewContainer(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer c.Close()

	// Set up middleware chain
	mux := http.NewServeMux()

	// Apply middleware to all routes
	handler := middleware.Recovery(
		middleware.Logging(
			middleware.CORS(
				middleware.SecurityHeaders(
					middleware.Timeout(60 * time.Second)(
						middleware.Metrics(
							middleware.ValidateQueryParams(
								setupRoutes(mux, c),
							),
						),
					),
				),
			),
		),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	log.Printf("Server starting on :%s", port)
	log.Printf("Wagelink API endpoints at: http://localhost:%s/api/", port)
	log.Printf("Metrics at: http://localhost:%s/metrics", port)

	log.Fatal(http.ListenAndServe(":"+port, handler))
}

func setupRoutes(mux *http.ServeMux, c *container.Container) http.Handler {
	apiAuth := middleware.APIAuth(c.APIKeys)

	// Health and metrics endpoints
	mux.HandleFunc("/api/health", c.HealthHandler.HandleHealth)
	mux.Handle("/metrics", middleware.MetricsHandler())

	// Worker endpoints
	mux.HandleFunc("/api/register-worker", c.WorkerHandler.HandleRegister)
	mux.HandleFunc("/api/worker/", c.WorkerHandler.HandleGetWorker)
	mux.HandleFunc("/api/verify-worker", c.WorkerHandler.HandleVerify)
	mux.HandleFunc("/api/update-profile", c.WorkerHandler.HandleUpdateProfile)
	mux.HandleFunc("/api/payout-address", c.WorkerHandler.HandleSetPayoutAddress)

	// Assignment endpoints; assigning and contractor listings require an
	// authenticated contractor
	mux.Handle("/api/assign-work", apiAuth(http.HandlerFunc(c.AssignmentHandler.HandleAssignWork)))
	mux.Handle("/api/contractor-assignments", apiAuth(http.HandlerFunc(c.AssignmentHandler.HandleContractorAssignments)))
	mux.HandleFunc("/api/assignment/", c.AssignmentHandler.HandleGetAssignment)
	mux.HandleFunc("/api/worker-assignments/", c.AssignmentHandler.HandleWorkerAssignments)

	// Payment endpoints
	mux.Handle("/api/process-payment", apiAuth(http.HandlerFunc(c.PaymentHandler.HandleProcessPayment)))
	mux.HandleFunc("/api/payments/", c.PaymentHandler.HandlePaymentHistory)

	// Dispute endpoint. Workers identify via caller_id in the body; an API
	// key, when presented, overrides it with the bound contractor id.
	mux.Handle("/api/raise-dispute", optionalAuth(apiAuth, http.HandlerFunc(c.DisputeHandler.HandleRaiseDispute)))

	// QR code endpoints
	mux.HandleFunc("/api/qrcode", c.QRCodeHandler.HandleGenerateQRCode)

	return mux
}

// optionalAuth runs the auth middleware only when the request carries
// credentials, so unauthenticated workers can still reach the handler.
func optionalAuth(auth func(http.Handler) http.Handler, next http.Handler) http.Handler {
	authed := auth(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "" || r.Header.Get("Authorization") != "" {
			authed.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
