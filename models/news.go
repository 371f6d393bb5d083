package models

import (
	"time"
)

// RawNewsMessage represents one undecoded frame received from a news feed
// producer before normalization.
type RawNewsMessage struct {
	Producer   string
	Data       []byte
	ReceivedAt time.Time
}

// Action is a tradeable pair implied by a news item, e.g. "ATOM/USDT" or
// "ATOMUSDT PERP".
type Action struct {
	Title string `json:"title"`
}

// NewsEvent is the canonical normalized news record handed to subscribers.
// OccurredAt always carries the origin publish time, never the local receive
// time; the difference between the two is the displayed ingestion delay.
type NewsEvent struct {
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Link       string    `json:"link"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
	Coin       string    `json:"coin"`
	ExternalID int64     `json:"external_id"`
	Actions    []Action  `json:"actions"`
}

// Delay returns how long the event took from origin publish to local receipt.
func (e NewsEvent) Delay(receivedAt time.Time) time.Duration {
	return receivedAt.Sub(e.OccurredAt)
}
