package ui

import "github.com/bamsammich/fastcopy/internal/event"

// Event is the engine's event type, re-exported so presenters read naturally.
type Event = event.Event

// Re-export event types for convenience.
const (
	Fatal      = event.Fatal
	TotalKnown = event.TotalKnown
	Progress   = event.Progress
	Log        = event.Log
	Finished   = event.Finished
)
