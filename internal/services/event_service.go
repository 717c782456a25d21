package services

import (
	"time"

	"github.com/swcolombo/waitlist-api/config"
	"github.com/swcolombo/waitlist-api/internal/models"
)

// EventService reports the countdown to the configured event start
type EventService struct {
	name     string
	startsAt time.Time
	now      func() time.Time
}

// NewEventService creates a new event service instance
func NewEventService(cfg *config.Config) *EventService {
	return &EventService{
		name:     cfg.Event.Name,
		startsAt: cfg.Event.StartsAt,
		now:      time.Now,
	}
}

// WithClock replaces the wall clock, for tests
func (s *EventService) WithClock(now func() time.Time) *EventService {
	s.now = now
	return s
}

// Countdown splits the remaining time into whole days, hours, minutes and
// seconds. Once the start has passed every component is zero and Live is set.
func (s *EventService) Countdown() *models.Countdown {
	remaining := s.startsAt.Sub(s.now())

	out := &models.Countdown{
		Event:    s.name,
		StartsAt: s.startsAt,
	}
	if remaining <= 0 {
		out.Live = true
		return out
	}

	out.TotalMS = remaining.Milliseconds()
	out.Days = int64(remaining / (24 * time.Hour))
	out.Hours = int64(remaining/time.Hour) % 24
	out.Minutes = int64(remaining/time.Minute) % 60
	out.Seconds = int64(remaining/time.Second) % 60
	return out
}
