// Package publisher holds the outcome state machine a search consumer observes.
//
// Every submission takes a Ticket from Begin. A result or failure is committed
// only while the consumer is live and the ticket is still the latest one, so a
// torn-down consumer is never written to and an older submission never
// overwrites a newer one.
package publisher

import (
	"sync"
	"time"

	"github.com/stwalsh4118/propsearch/internal/logger"
	"github.com/stwalsh4118/propsearch/internal/metrics"
	"github.com/stwalsh4118/propsearch/internal/models"
	"github.com/stwalsh4118/propsearch/internal/reconcile"
)

// State is the phase of the consumer's current search.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is a snapshot of what the consumer should display.
// Succeeded with no records is the "no matches" state.
type Outcome struct {
	State      State                    `json:"state"`
	Generation uint64                   `json:"generation"`
	Records    []models.PropertyRecord  `json:"records"`
	Insights   []models.LocationInsight `json:"insights,omitempty"`
	Strategy   string                   `json:"strategy,omitempty"`
	Dropped    int                      `json:"dropped,omitempty"`
	Degraded   bool                     `json:"degraded,omitempty"`
	Warning    string                   `json:"warning,omitempty"`
	ErrorKind  ErrorKind                `json:"error_kind,omitempty"`
	Message    string                   `json:"message,omitempty"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// NoMatches reports whether the search succeeded without any records.
func (o Outcome) NoMatches() bool {
	return o.State == StateSucceeded && len(o.Records) == 0
}

// Ticket identifies one submission.
type Ticket struct {
	generation uint64
}

// Generation returns the submission number, starting at 1.
func (t Ticket) Generation() uint64 {
	return t.generation
}

// Publisher owns the committed outcome for one consumer.
type Publisher struct {
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time

	mu         sync.Mutex
	generation uint64
	live       bool
	outcome    Outcome
}

// New creates a live Publisher in the Idle state. notifier may be nil.
func New(notifier Notifier, log *logger.Logger) *Publisher {
	p := &Publisher{
		notifier: notifier,
		log:      log,
		now:      time.Now,
		live:     true,
	}
	p.outcome = Outcome{State: StateIdle, UpdatedAt: p.now()}
	return p
}

// Begin starts a new submission and moves to Loading. Earlier tickets become stale.
func (p *Publisher) Begin() Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	ticket := Ticket{generation: p.generation}
	if p.live {
		p.outcome = Outcome{State: StateLoading, Generation: p.generation, UpdatedAt: p.now()}
	}
	return ticket
}

// Succeed commits result for ticket. It returns false when the result was discarded.
func (p *Publisher) Succeed(ticket Ticket, result *reconcile.Result) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.acceptLocked(ticket) {
		return false
	}

	p.outcome = Succeeded(ticket.generation, result, p.now())
	return true
}

// Succeeded builds the Succeeded outcome for result.
func Succeeded(generation uint64, result *reconcile.Result, at time.Time) Outcome {
	outcome := Outcome{
		State:      StateSucceeded,
		Generation: generation,
		Records:    []models.PropertyRecord{},
		UpdatedAt:  at,
	}
	if result == nil {
		return outcome
	}

	if result.Records != nil {
		outcome.Records = result.Records
	}
	outcome.Insights = result.Insights
	outcome.Strategy = result.Strategy.String()
	outcome.Dropped = result.Dropped
	if result.Degraded() {
		outcome.Degraded = true
		outcome.Warning = result.Warning.Error()
	}
	return outcome
}

// Fail commits a failure for ticket and emits exactly one notification.
// It returns false when the failure was discarded.
func (p *Publisher) Fail(ticket Ticket, kind ErrorKind, message string) bool {
	p.mu.Lock()
	if !p.acceptLocked(ticket) {
		p.mu.Unlock()
		return false
	}

	at := p.now()
	p.outcome = Outcome{
		State:      StateFailed,
		Generation: ticket.generation,
		ErrorKind:  kind,
		Message:    message,
		UpdatedAt:  at,
	}
	p.mu.Unlock()

	if p.notifier != nil {
		p.notifier.Notify(Notification{
			Generation: ticket.generation,
			Kind:       kind,
			Message:    message,
			At:         at,
		})
	}
	return true
}

// FailWith classifies err and commits it as a failure.
func (p *Publisher) FailWith(ticket Ticket, err error) bool {
	kind := Classify(err)
	return p.Fail(ticket, kind, Message(kind, err))
}

// Teardown marks the consumer as gone. Every later commit is discarded.
func (p *Publisher) Teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live = false
}

// Live reports whether Teardown has not been called.
func (p *Publisher) Live() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Outcome returns the committed outcome.
func (p *Publisher) Outcome() Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome
}

func (p *Publisher) acceptLocked(ticket Ticket) bool {
	reason := ""
	switch {
	case !p.live:
		reason = "teardown"
	case ticket.generation != p.generation:
		reason = "superseded"
	default:
		return true
	}

	metrics.SearchesDiscarded.WithLabelValues(reason).Inc()
	p.log.Debug("Discarding stale search outcome", map[string]interface{}{
		"submission": ticket.generation,
		"current":    p.generation,
		"reason":     reason,
	})
	return false
}
