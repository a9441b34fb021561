package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the state feed.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RenderedCard is a rendered card ready to be published to a sink.
type RenderedCard struct {
	Entity      string    `json:"entity"`
	Title       string    `json:"title"`
	Visited     int       `json:"visited"`
	Current     string    `json:"current,omitempty"`
	SVG         string    `json:"svg"`
	RenderedAt  time.Time `json:"rendered_at"`
	Fingerprint string    `json:"fingerprint"`
}
