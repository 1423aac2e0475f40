package domain

import (
	"context"
	"time"
)

// Clock supplies the current time. Services take one so time-based logic is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ArchivalService marks chats of long-ended events as archived.
type ArchivalService interface {
	// Sweep archives chats of events that ended before now minus the grace window and returns how many changed.
	Sweep(ctx context.Context) (int, error)
}
