package payout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTransferSuccess(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotKey = req.IdempotencyKey
		json.NewEncoder(w).Encode(transferResponse{Success: true, Reference: "0xabc123"})
	}))
	defer srv.Close()

	client := NewNodeClient(srv.URL)
	res, err := client.Transfer(context.Background(), "0xdead", 500, "assignment-42")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.Reference != "0xabc123" {
		t.Fatalf("unexpected reference %s", res.Reference)
	}
	if gotKey != "assignment-42" {
		t.Fatalf("idempotency key not forwarded, got %q", gotKey)
	}
}

func TestTransferRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transferResponse{Success: false, Message: "insufficient funds"})
	}))
	defer srv.Close()

	client := NewNodeClient(srv.URL)
	_, err := client.Transfer(context.Background(), "0xdead", 500, "assignment-43")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestTransferDeadlineSurfacesContextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(transferResponse{Success: true, Reference: "0xlate"})
	}))
	defer srv.Close()

	client := NewNodeClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Transfer(ctx, "0xdead", 500, "assignment-44")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}
