package gemini

import "time"

// Stage identifies a progress checkpoint within one analysis request.
type Stage string

const (
	StageValidated    Stage = "validated"
	StageRateLimited  Stage = "rate_limited"
	StageAttempt      Stage = "attempt_started"
	StageWaitingRetry Stage = "waiting_retry"
	StageSucceeded    Stage = "succeeded"
	StageFailed       Stage = "failed"
)

// Event is one progress notification. Events for a single request arrive in
// the order its stages occur; no ordering holds across requests.
type Event struct {
	Stage       Stage
	Attempt     int
	MaxAttempts int
	Message     string
	At          time.Time
}

// Sink receives progress events. Delivery is fire-and-forget: a slow or
// blocked sink never stalls the request.
type Sink interface {
	Notify(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Notify(e Event) { f(e) }

// notifier serializes events for one request through a buffered channel and a
// single drain goroutine, preserving per-request order without blocking the
// caller. Events are dropped when the buffer is full.
type notifier struct {
	ch   chan Event
	done chan struct{}
}

func newNotifier(sink Sink) *notifier {
	n := &notifier{
		ch:   make(chan Event, 16),
		done: make(chan struct{}),
	}
	go func() {
		defer close(n.done)
		for e := range n.ch {
			if sink != nil {
				sink.Notify(e)
			}
		}
	}()
	return n
}

func (n *notifier) emit(stage Stage, attempt, max int, msg string) {
	e := Event{
		Stage:       stage,
		Attempt:     attempt,
		MaxAttempts: max,
		Message:     msg,
		At:          time.Now(),
	}
	select {
	case n.ch <- e:
	default:
	}
}

// close flushes buffered events and waits for the drain goroutine.
func (n *notifier) close() {
	close(n.ch)
	<-n.done
}
