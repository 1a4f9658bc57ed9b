package domain

import "time"

// Segment is one timed caption snippet. Start and Duration are in seconds.
type Segment struct {
	Text     string
	Start    float64
	Duration float64
}

type RequestStatus string

const (
	RequestStatusOK RequestStatus = "ok"
)

type RequestRecord struct {
	ID        int64
	UserID    int64
	ChatID    int64
	VideoID   string
	Status    RequestStatus
	CreatedAt time.Time
}
