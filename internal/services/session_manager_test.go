package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/propsearch/internal/logger"
	"github.com/stwalsh4118/propsearch/internal/models"
	"github.com/stwalsh4118/propsearch/internal/publisher"
	"github.com/stwalsh4118/propsearch/internal/reconcile"
	"github.com/stwalsh4118/propsearch/internal/search"
)

// stubSearchService answers each submission from a per-generation script.
// A generation listed in gates blocks until its channel is closed or the
// search context is cancelled.
type stubSearchService struct {
	mu       sync.Mutex
	results  map[uint64]*reconcile.Result
	errs     map[uint64]error
	gates    map[uint64]chan struct{}
	canceled map[uint64]bool
}

func newStubSearchService() *stubSearchService {
	return &stubSearchService{
		results:  make(map[uint64]*reconcile.Result),
		errs:     make(map[uint64]error),
		gates:    make(map[uint64]chan struct{}),
		canceled: make(map[uint64]bool),
	}
}

func (s *stubSearchService) Search(ctx context.Context, _ models.SearchParams, origin Origin) (*reconcile.Result, error) {
	s.mu.Lock()
	gate := s.gates[origin.Generation]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			s.mu.Lock()
			s.canceled[origin.Generation] = true
			s.mu.Unlock()
			return nil, &search.ExecutorError{Kind: search.KindTransport, Err: ctx.Err()}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[origin.Generation]; err != nil {
		return nil, err
	}
	if result := s.results[origin.Generation]; result != nil {
		return result, nil
	}
	return &reconcile.Result{Records: []models.PropertyRecord{}}, nil
}

func (s *stubSearchService) BaseURL() string { return "http://stub" }

func (s *stubSearchService) wasCanceled(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled[generation]
}

func records(names ...string) *reconcile.Result {
	out := make([]models.PropertyRecord, 0, len(names))
	for _, name := range names {
		out = append(out, models.PropertyRecord{Name: name, Location: "Mumbai"})
	}
	return &reconcile.Result{Records: out, Strategy: reconcile.StrategyCanonicalEnvelope}
}

func waitForState(t *testing.T, m SessionManager, id string, state publisher.State) publisher.Outcome {
	t.Helper()
	var outcome publisher.Outcome
	require.Eventually(t, func() bool {
		var err error
		outcome, err = m.Outcome(id)
		return err == nil && outcome.State == state
	}, 2*time.Second, 5*time.Millisecond)
	return outcome
}

func TestSessionManager_SubmitSucceeds(t *testing.T) {
	stub := newStubSearchService()
	stub.results[1] = records("K Raheja Vistas", "Pride Park Royale")

	m := NewSessionManager(stub, time.Minute, logger.Nop())
	defer m.Close()

	info, err := m.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, info.CreatedAt.Add(time.Minute), info.ExpiresAt)

	outcome, err := m.Outcome(info.ID)
	require.NoError(t, err)
	assert.Equal(t, publisher.StateIdle, outcome.State)

	generation, err := m.Submit(info.ID, models.SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), generation)

	outcome = waitForState(t, m, info.ID, publisher.StateSucceeded)
	assert.Len(t, outcome.Records, 2)

	notes, err := m.Notifications(info.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestSessionManager_FailureNotifiesOnce(t *testing.T) {
	stub := newStubSearchService()
	stub.errs[1] = &search.ExecutorError{Kind: search.KindHTTPStatus, StatusCode: 500}

	m := NewSessionManager(stub, time.Minute, logger.Nop())
	defer m.Close()

	info, err := m.Create()
	require.NoError(t, err)

	_, err = m.Submit(info.ID, models.SearchParams{})
	require.NoError(t, err)

	outcome := waitForState(t, m, info.ID, publisher.StateFailed)
	assert.Equal(t, publisher.KindHTTPStatus, outcome.ErrorKind)

	notes, err := m.Notifications(info.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, publisher.KindHTTPStatus, notes[0].Kind)

	notes, err = m.Notifications(info.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestSessionManager_RetryAfterFailure(t *testing.T) {
	stub := newStubSearchService()
	stub.errs[1] = &search.ExecutorError{Kind: search.KindDecode}
	stub.results[2] = records("second try")

	m := NewSessionManager(stub, time.Minute, logger.Nop())
	defer m.Close()

	info, err := m.Create()
	require.NoError(t, err)

	_, err = m.Submit(info.ID, models.SearchParams{})
	require.NoError(t, err)
	waitForState(t, m, info.ID, publisher.StateFailed)

	_, err = m.Submit(info.ID, models.SearchParams{})
	require.NoError(t, err)
	outcome := waitForState(t, m, info.ID, publisher.StateSucceeded)
	assert.Equal(t, uint64(2), outcome.Generation)
}

func TestSessionManager_LatestSubmissionWins(t *testing.T) {
	stub := newStubSearchService()
	gate := make(chan struct{})
	stub.gates[1] = gate
	stub.results[1] = records("stale")
	stub.results[2] = records("fresh")

	m := NewSessionManager(stub, time.Minute, logger.Nop())
	defer m.Close()

	info, err := m.Create()
	require.NoError(t, err)

	_, err = m.Submit(info.ID, models.SearchParams{})
	require.NoError(t, err)
	_, err = m.Submit(info.ID, models.SearchParams{})
	require.NoError(t, err)

	outcome := waitForState(t, m, info.ID, publisher.StateSucceeded)
	assert.Equal(t, "fresh", outcome.Records[0].Name)

	close(gate)
	time.Sleep(20 * time.Millisecond)

	outcome, err = m.Outcome(info.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), outcome.Generation)
	assert.Equal(t, "fresh", outcome.Records[0].Name)
}

func TestSessionManager_TeardownAbandonsInFlightSearch(t *testing.T) {
	stub := newStubSearchService()
	stub.gates[1] = make(chan struct{})

	m := NewSessionManager(stub, time.Minute, logger.Nop())
	defer m.Close()

	info, err := m.Create()
	require.NoError(t, err)

	_, err = m.Submit(info.ID, models.SearchParams{})
	require.NoError(t, err)

	require.NoError(t, m.Teardown(info.ID))

	assert.Eventually(t, func() bool { return stub.wasCanceled(1) }, time.Second, 5*time.Millisecond)

	_, err = m.Outcome(info.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Teardown(info.ID), ErrSessionNotFound)
}

func TestSessionManager_UnknownSession(t *testing.T) {
	m := NewSessionManager(newStubSearchService(), time.Minute, logger.Nop())
	defer m.Close()

	_, err := m.Submit("missing", models.SearchParams{})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Outcome("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Notifications("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManager_ExpiresIdleSessions(t *testing.T) {
	m := NewSessionManager(newStubSearchService(), time.Minute, logger.Nop()).(*sessionManager)
	defer m.Close()

	current := time.Now()
	m.now = func() time.Time { return current }

	idle, err := m.Create()
	require.NoError(t, err)
	active, err := m.Create()
	require.NoError(t, err)

	current = current.Add(45 * time.Second)
	_, err = m.Outcome(active.ID)
	require.NoError(t, err)

	current = current.Add(30 * time.Second)
	m.expireIdle()

	_, err = m.Outcome(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Outcome(active.ID)
	assert.NoError(t, err)
}

func TestSessionManager_CloseTearsDownEverything(t *testing.T) {
	stub := newStubSearchService()
	stub.gates[1] = make(chan struct{})

	m := NewSessionManager(stub, time.Minute, logger.Nop())

	info, err := m.Create()
	require.NoError(t, err)
	_, err = m.Submit(info.ID, models.SearchParams{})
	require.NoError(t, err)

	m.Close()

	assert.True(t, stub.wasCanceled(1), "Close waits for in-flight searches")
	_, err = m.Create()
	assert.ErrorIs(t, err, ErrManagerClosed)

	assert.NotPanics(t, m.Close)
}

func TestJanitorInterval(t *testing.T) {
	assert.Equal(t, time.Second, janitorInterval(2*time.Second))
	assert.Equal(t, 3*time.Minute/10, janitorInterval(3*time.Minute))
	assert.Equal(t, time.Minute, janitorInterval(time.Hour))
}

func TestSessionManager_PriceFallbackIsPerSession(t *testing.T) {
	var (
		mu        sync.Mutex
		maxPrices []float64
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body search.RequestBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		maxPrices = append(maxPrices, body.MaxPrice)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"selected_properties":[]}`))
	}))
	defer server.Close()

	builder := search.NewBuilder(search.BuilderConfig{}, logger.Nop())
	executor := search.NewExecutor(search.ExecutorConfig{Timeout: 5 * time.Second, RequestsPerMinute: 6000}, logger.Nop())
	service := NewSearchService(builder, executor, nil, server.URL, logger.Nop())

	m := NewSessionManager(service, time.Minute, logger.Nop())
	defer m.Close()

	first, err := m.Create()
	require.NoError(t, err)
	second, err := m.Create()
	require.NoError(t, err)

	params := apiParams()
	params.MaxPriceText = "₹3 Cr"
	_, err = m.Submit(first.ID, params)
	require.NoError(t, err)
	waitForState(t, m, first.ID, publisher.StateSucceeded)

	params.MaxPriceText = "no budget"
	_, err = m.Submit(second.ID, params)
	require.NoError(t, err)
	waitForState(t, m, second.ID, publisher.StateSucceeded)

	_, err = m.Submit(first.ID, params)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(maxPrices) == 3
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []float64{300, search.DefaultMaxPriceLakhs, 300}, maxPrices)
}
