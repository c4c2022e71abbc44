package services

import (
	"bytes"
	"fmt"
	"image/png"
	"time"

	"github.com/skip2/go-qrcode"

	"wagelink-backend/models"
)

// QRCodeService handles QR code generation
type QRCodeService struct{}

// NewQRCodeService creates a new QR code service
func NewQRCodeService() *QRCodeService {
	return &QRCodeService{}
}

// GenerateQRCode generates a payment QR code for a payout address and amount
func (s *QRCodeService) GenerateQRCode(address, amount string) ([]byte, error) {
	qr, err := qrcode.New(address+"?amount="+amount, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(256)); err != nil {
		return nil, fmt.Errorf("failed to encode QR code to PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// HealthService handles health check business logic
type HealthService struct{}

// NewHealthService creates a new health service
func NewHealthService() *HealthService {
	return &HealthService{}
}

// GetHealthStatus returns current health status
func (s *HealthService) GetHealthStatus() *models.HealthResponse {
	return &models.HealthResponse{
		Status:    "healthy",
		Message:   "Backend is running",
		Timestamp: time.Now().Unix(),
	}
}
