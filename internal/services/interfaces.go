package services

import (
	"context"

	"github.com/swcolombo/waitlist-api/internal/models"
)

// WaitlistServiceInterface defines the interface for waitlist submissions
type WaitlistServiceInterface interface {
	Submit(ctx context.Context, req *models.WaitlistRequest) *models.SubmissionResult
	Configured() bool
	CircuitOpen() bool
	FieldSet() models.FieldSet
}

// EventServiceInterface defines the interface for event timing
type EventServiceInterface interface {
	Countdown() *models.Countdown
}

var (
	_ WaitlistServiceInterface = (*WaitlistService)(nil)
	_ EventServiceInterface    = (*EventService)(nil)
)
