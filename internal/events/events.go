package events

import "sync"

// Outbound event names as seen by subscribers.
const (
	TypeOutput = "term_output"
	TypeStop   = "term_stop"
)

// FinishedMarker is the payload of the term_stop emitted when a process ends.
const FinishedMarker = "\n[Process Finished]"

// Event is a one-way notification to the remote subscriber.
type Event struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Output returns a term_output event carrying data verbatim.
func Output(data string) Event {
	return Event{Type: TypeOutput, Data: data}
}

// Stop returns a term_stop event.
func Stop(data string) Event {
	return Event{Type: TypeStop, Data: data}
}

// IsStop reports whether e ends a run.
func (e Event) IsStop() bool {
	return e.Type == TypeStop
}

// Emitter delivers events outward. Implementations must be safe for
// concurrent use; Emit must not block for long.
type Emitter interface {
	Emit(e Event)
}

// EmitterFunc adapts a function to an Emitter.
type EmitterFunc func(e Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(Event) {})

// Recorder keeps every emitted event in order. It is used by one-shot callers
// that need the whole transcript of a run.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	notify chan struct{}
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Stops returns the number of term_stop events recorded.
func (r *Recorder) Stops() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.IsStop() {
			n++
		}
	}
	return n
}

// Output concatenates the payloads of all term_output events.
func (r *Recorder) Output() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b []byte
	for _, e := range r.events {
		if e.Type == TypeOutput {
			b = append(b, e.Data...)
		}
	}
	return string(b)
}

// Changed is signalled (coalesced) whenever an event is recorded.
func (r *Recorder) Changed() <-chan struct{} {
	return r.notify
}
