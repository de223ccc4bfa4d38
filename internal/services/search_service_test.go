package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/propsearch/internal/logger"
	"github.com/stwalsh4118/propsearch/internal/models"
	"github.com/stwalsh4118/propsearch/internal/reconcile"
	"github.com/stwalsh4118/propsearch/internal/search"
)

// MockExecutor is a mock implementation of Executor for testing
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, req *search.Request) (reconcile.Value, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(reconcile.Value), args.Error(1)
}

func (m *MockExecutor) ExecuteFixture(ctx context.Context) (reconcile.Value, error) {
	args := m.Called(ctx)
	return args.Get(0).(reconcile.Value), args.Error(1)
}

// MockHistoryRepository is a mock implementation of repository.HistoryRepository for testing
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockHistoryRepository) Record(ctx context.Context, entry *models.SearchHistoryEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockHistoryRepository) Recent(ctx context.Context, limit int) ([]models.SearchHistoryEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchHistoryEntry), args.Error(1)
}

func mustParse(t *testing.T, raw string) reconcile.Value {
	t.Helper()
	v, err := reconcile.Parse([]byte(raw))
	require.NoError(t, err)
	return v
}

func apiParams() models.SearchParams {
	return models.SearchParams{
		City:             "Mumbai",
		Area:             "Andheri East",
		MaxPriceText:     "₹2.00 Cr",
		PropertyCategory: models.CategoryResidential,
		PropertyType:     models.TypeFlat,
		UseAPI:           true,
	}
}

func newTestService(executor Executor, history *MockHistoryRepository) SearchService {
	builder := search.NewBuilder(search.BuilderConfig{}, logger.Nop())
	if history == nil {
		return NewSearchService(builder, executor, nil, "http://127.0.0.1:8000", logger.Nop())
	}
	return NewSearchService(builder, executor, history, "http://127.0.0.1:8000", logger.Nop())
}

func TestSearch_FixturePath(t *testing.T) {
	executor := new(MockExecutor)
	service := newTestService(executor, nil)

	params := apiParams()
	params.UseAPI = false

	executor.On("ExecuteFixture", mock.Anything).
		Return(mustParse(t, `{"data":{"selected_properties":[{"name":"K Raheja Vistas","location":"Andheri East"}]}}`), nil)

	result, err := service.Search(context.Background(), params, Origin{})

	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "K Raheja Vistas", result.Records[0].Name)
	executor.AssertExpectations(t)
	executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestSearch_APIPath(t *testing.T) {
	executor := new(MockExecutor)
	service := newTestService(executor, nil)

	executor.On("Execute", mock.Anything, mock.MatchedBy(func(req *search.Request) bool {
		return req.URL == "http://127.0.0.1:8000/api/properties/search" &&
			req.Body.City == "mumbai" &&
			req.Body.MaxPrice == 200
	})).Return(mustParse(t, `[{"name":"A","location":"B"}]`), nil)

	result, err := service.Search(context.Background(), apiParams(), Origin{})

	require.NoError(t, err)
	assert.Equal(t, reconcile.StrategyBareArray, result.Strategy)
	executor.AssertExpectations(t)
}

func TestSearch_BuildErrorSkipsExecutor(t *testing.T) {
	executor := new(MockExecutor)
	service := newTestService(executor, nil)

	params := apiParams()
	params.PropertyType = "Villa"

	result, err := service.Search(context.Background(), params, Origin{})

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, search.ErrInvalidParams))
	executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestSearch_ExecutorError(t *testing.T) {
	executor := new(MockExecutor)
	service := newTestService(executor, nil)

	execErr := &search.ExecutorError{Kind: search.KindHTTPStatus, StatusCode: 500}
	executor.On("Execute", mock.Anything, mock.Anything).Return(reconcile.Value{}, execErr)

	result, err := service.Search(context.Background(), apiParams(), Origin{})

	assert.Nil(t, result)
	var got *search.ExecutorError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 500, got.StatusCode)
}

func TestSearch_NoRecognizedShape(t *testing.T) {
	executor := new(MockExecutor)
	service := newTestService(executor, nil)

	executor.On("Execute", mock.Anything, mock.Anything).Return(mustParse(t, `{"status":"ok"}`), nil)

	_, err := service.Search(context.Background(), apiParams(), Origin{})

	assert.True(t, errors.Is(err, reconcile.ErrNoRecognizedShape))
}

func TestSearch_RecordsHistory(t *testing.T) {
	executor := new(MockExecutor)
	history := new(MockHistoryRepository)
	service := newTestService(executor, history)

	executor.On("Execute", mock.Anything, mock.Anything).
		Return(mustParse(t, `{"selected_properties":[{"name":"A","location":"B"},{"name":""}]}`), nil)
	history.On("Record", mock.Anything, mock.MatchedBy(func(e *models.SearchHistoryEntry) bool {
		return e.SessionID == "sess-1" &&
			e.Generation == 4 &&
			e.State == "succeeded" &&
			e.Strategy == "flat_envelope" &&
			e.RecordCount == 1 &&
			e.Dropped == 1 &&
			e.Source == "api"
	})).Return(nil)

	_, err := service.Search(context.Background(), apiParams(), Origin{SessionID: "sess-1", Generation: 4})

	require.NoError(t, err)
	history.AssertExpectations(t)
}

func TestSearch_HistoryFailureDoesNotFailSearch(t *testing.T) {
	executor := new(MockExecutor)
	history := new(MockHistoryRepository)
	service := newTestService(executor, history)

	executor.On("Execute", mock.Anything, mock.Anything).
		Return(reconcile.Value{}, &search.ExecutorError{Kind: search.KindDecode})
	history.On("Record", mock.Anything, mock.MatchedBy(func(e *models.SearchHistoryEntry) bool {
		return e.State == "failed" && e.ErrorKind == "decode"
	})).Return(errors.New("db down"))

	_, err := service.Search(context.Background(), apiParams(), Origin{})

	var execErr *search.ExecutorError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, search.KindDecode, execErr.Kind)
	history.AssertExpectations(t)
}

func TestSearch_EndToEndAgainstStubServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != search.SearchPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"selected_properties":[{"name":"K Raheja Vistas","location":"Andheri East, Mumbai","price":"₹ 3.45 Cr"}]}}`))
	}))
	defer server.Close()

	builder := search.NewBuilder(search.BuilderConfig{}, logger.Nop())
	executor := search.NewExecutor(search.ExecutorConfig{Timeout: 5 * time.Second}, logger.Nop())
	service := NewSearchService(builder, executor, nil, server.URL, logger.Nop())

	result, err := service.Search(context.Background(), apiParams(), Origin{})

	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "K Raheja Vistas", result.Records[0].Name)
	assert.Equal(t, "₹ 3.45 Cr", result.Records[0].Price)
	assert.Equal(t, server.URL, service.BaseURL())
}
