package models

import "time"

// Countdown is the time left until the event starts
type Countdown struct {
	Event    string    `json:"event,omitempty"`
	StartsAt time.Time `json:"starts_at"`
	TotalMS  int64     `json:"total_ms"`
	Days     int64     `json:"days"`
	Hours    int64     `json:"hours"`
	Minutes  int64     `json:"minutes"`
	Seconds  int64     `json:"seconds"`
	Live     bool      `json:"live"`
}
