package profiler

import (
	"sync"
	"time"
)

// EventKind identifies the type of a profiling event.
type EventKind int

const (
	// EventZone reports a completed timing zone.
	EventZone EventKind = iota

	// EventFrame reports the average frame duration over the last interval.
	EventFrame

	// EventMessage reports a one-off message.
	EventMessage
)

// Event is one profiling observation delivered to registered callbacks.
type Event struct {
	// Kind identifies what this event reports.
	Kind EventKind

	// Name is the zone name or message text. Empty for frame events.
	Name string

	// Duration is the zone or average frame duration. Zero for messages.
	Duration time.Duration
}

// Callback receives profiling events.
type Callback func(Event)

// MaxCallbacks is the fixed capacity of the process-wide callback table.
const MaxCallbacks = 32

// The dispatcher is process-wide state so instrumented code anywhere can
// emit without threading a profiler handle through every call site. The
// mutex is the only lock in the engine.
var (
	callbackMu sync.Mutex
	callbacks  [MaxCallbacks]Callback
)

// AddCallback registers a callback to receive profiling events.
//
// Parameters:
//   - cb: the callback to register
//
// Returns:
//   - int: the callback id for RemoveCallback, or -1 if the table is full
func AddCallback(cb Callback) int {
	if cb == nil {
		return -1
	}
	callbackMu.Lock()
	defer callbackMu.Unlock()

	for i := range callbacks {
		if callbacks[i] == nil {
			callbacks[i] = cb
			return i
		}
	}
	return -1
}

// RemoveCallback unregisters a previously added callback. Out-of-range or
// already removed ids are ignored.
//
// Parameters:
//   - id: the id returned by AddCallback
func RemoveCallback(id int) {
	if id < 0 || id >= MaxCallbacks {
		return
	}
	callbackMu.Lock()
	defer callbackMu.Unlock()
	callbacks[id] = nil
}

// Emit delivers an event to every registered callback.
//
// Parameters:
//   - event: the event to deliver
func Emit(event Event) {
	callbackMu.Lock()
	defer callbackMu.Unlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(event)
		}
	}
}
