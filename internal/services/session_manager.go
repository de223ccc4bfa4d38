package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stwalsh4118/propsearch/internal/logger"
	"github.com/stwalsh4118/propsearch/internal/metrics"
	"github.com/stwalsh4118/propsearch/internal/models"
	"github.com/stwalsh4118/propsearch/internal/publisher"
	"github.com/stwalsh4118/propsearch/internal/search"
)

// DefaultSessionTTL is how long an untouched session lives.
const DefaultSessionTTL = 30 * time.Minute

var (
	ErrSessionNotFound = errors.New("search session not found")
	ErrManagerClosed   = errors.New("session manager is closed")
)

// SessionInfo describes a session to API clients.
type SessionInfo struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionManager tracks consumer sessions. Each session owns one Publisher;
// submissions run in their own goroutine and commit through it.
type SessionManager interface {
	// Create opens a new live session.
	Create() (SessionInfo, error)

	// Submit starts a search in the background and returns its generation.
	// A newer submission supersedes older ones that are still in flight.
	Submit(sessionID string, params models.SearchParams) (uint64, error)

	// Outcome returns the committed outcome of the session.
	Outcome(sessionID string) (publisher.Outcome, error)

	// Notifications returns pending failure notifications, each exactly once.
	Notifications(sessionID string) ([]publisher.Notification, error)

	// Teardown marks the session gone and abandons its in-flight searches.
	// Their results are discarded.
	Teardown(sessionID string) error

	// Close tears down every session and waits for in-flight searches.
	Close()
}

type session struct {
	id        string
	createdAt time.Time
	publisher *publisher.Publisher
	queue     *publisher.Queue
	prices    *search.PriceMemory
	ctx       context.Context
	cancel    context.CancelFunc
	log       *logger.Logger

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type sessionManager struct {
	service SearchService
	ttl     time.Duration
	log     *logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool

	inflight sync.WaitGroup
	stop     chan struct{}
	janitor  sync.WaitGroup
}

// NewSessionManager creates a SessionManager and starts its expiry janitor.
func NewSessionManager(service SearchService, ttl time.Duration, log *logger.Logger) SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	m := &sessionManager{
		service:  service,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*session),
		stop:     make(chan struct{}),
	}

	m.janitor.Add(1)
	go m.runJanitor(janitorInterval(ttl))

	return m
}

// janitorInterval sweeps at a tenth of the TTL, between one second and one minute.
func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 10
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}

func (m *sessionManager) Create() (SessionInfo, error) {
	now := m.now()
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	log := m.log.WithSession(id)

	s := &session{
		id:        id,
		createdAt: now,
		queue:     publisher.NewQueue(),
		prices:    search.NewPriceMemory(),
		ctx:       ctx,
		cancel:    cancel,
		log:       log,
		lastSeen:  now,
	}
	s.publisher = publisher.New(s.queue, log)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return SessionInfo{}, ErrManagerClosed
	}
	m.sessions[id] = s
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	log.Info("Search session created", nil)

	return SessionInfo{ID: id, CreatedAt: now, ExpiresAt: now.Add(m.ttl)}, nil
}

func (m *sessionManager) get(sessionID string) (*session, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

func (m *sessionManager) Submit(sessionID string, params models.SearchParams) (uint64, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		// Registered under the lock so Close cannot miss this submission.
		m.inflight.Add(1)
	}
	m.mu.Unlock()

	if !ok {
		return 0, ErrSessionNotFound
	}
	s.touch(m.now())

	ticket := s.publisher.Begin()
	log := s.log.WithSubmission(ticket.Generation())
	log.Info("Search submitted", map[string]interface{}{
		"city":    params.City,
		"use_api": params.UseAPI,
	})

	go func() {
		defer m.inflight.Done()

		origin := Origin{SessionID: s.id, Generation: ticket.Generation(), Prices: s.prices}
		result, err := m.service.Search(s.ctx, params, origin)

		var committed bool
		if err != nil {
			committed = s.publisher.FailWith(ticket, err)
		} else {
			committed = s.publisher.Succeed(ticket, result)
		}

		if !committed {
			log.Debug("Search settled after it was superseded or torn down", nil)
		}
	}()

	return ticket.Generation(), nil
}

func (m *sessionManager) Outcome(sessionID string) (publisher.Outcome, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return publisher.Outcome{}, err
	}
	return s.publisher.Outcome(), nil
}

func (m *sessionManager) Notifications(sessionID string) ([]publisher.Notification, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.queue.Drain(), nil
}

func (m *sessionManager) Teardown(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	m.teardown(s, "client")
	return nil
}

func (m *sessionManager) teardown(s *session, reason string) {
	s.publisher.Teardown()
	s.cancel()
	metrics.ActiveSessions.Dec()
	s.log.Info("Search session torn down", map[string]interface{}{"reason": reason})
}

func (m *sessionManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	close(m.stop)
	m.janitor.Wait()

	for _, s := range sessions {
		m.teardown(s, "shutdown")
	}
	m.inflight.Wait()
}

func (m *sessionManager) runJanitor(interval time.Duration) {
	defer m.janitor.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.expireIdle()
		}
	}
}

// expireIdle tears down sessions untouched for longer than the TTL.
func (m *sessionManager) expireIdle() {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	expired := make([]*session, 0)
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.teardown(s, "expired")
	}
}
