// Package event defines the progress/outcome contract between the copy
// engine and whatever presents it.
package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	// Fatal reports a validation failure before any job ran. Always
	// immediately followed by Finished with Success=false.
	Fatal Type = iota + 1
	// TotalKnown announces the file count in accurate mode, before the
	// first Progress.
	TotalKnown
	// Progress reports Copied completions out of Total. Total==0 means
	// the count is unknown (quick mode).
	Progress
	// Log carries one human-readable line.
	Log
	// Finished is the terminal event of a run.
	Finished
)

var typeNames = [...]string{
	Fatal:      "Fatal",
	TotalKnown: "TotalKnown",
	Progress:   "Progress",
	Log:        "Log",
	Finished:   "Finished",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single notification from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Message   string // Fatal, Log
	Copied    int64  // Progress
	Total     int64  // TotalKnown, Progress
	Success   bool   // Finished
}

// Sink receives events. The engine calls Emit from a single goroutine, in
// order; implementations must not retain the engine's goroutine for long.
type Sink interface {
	Emit(ev Event)
}

// SinkFunc adapts a plain function to a Sink.
type SinkFunc func(ev Event)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev Event) { f(ev) }

// ChanSink forwards every event into a channel, blocking when it is full so
// no event is ever dropped.
type ChanSink chan<- Event

// Emit sends ev on the channel.
func (c ChanSink) Emit(ev Event) { c <- ev }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})
