package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/stwalsh4118/propsearch/internal/errors"
	"github.com/stwalsh4118/propsearch/internal/logger"
	"github.com/stwalsh4118/propsearch/internal/middleware"
	"github.com/stwalsh4118/propsearch/internal/models"
	"github.com/stwalsh4118/propsearch/internal/publisher"
	"github.com/stwalsh4118/propsearch/internal/reconcile"
	"github.com/stwalsh4118/propsearch/internal/services"
)

// MockSearchService is a mock implementation of services.SearchService for testing
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, params models.SearchParams, origin services.Origin) (*reconcile.Result, error) {
	args := m.Called(ctx, params, origin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Result), args.Error(1)
}

func (m *MockSearchService) BaseURL() string {
	return "http://127.0.0.1:8000"
}

// MockSessionManager is a mock implementation of services.SessionManager for testing
type MockSessionManager struct {
	mock.Mock
}

func (m *MockSessionManager) Create() (services.SessionInfo, error) {
	args := m.Called()
	return args.Get(0).(services.SessionInfo), args.Error(1)
}

func (m *MockSessionManager) Submit(sessionID string, params models.SearchParams) (uint64, error) {
	args := m.Called(sessionID, params)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockSessionManager) Outcome(sessionID string) (publisher.Outcome, error) {
	args := m.Called(sessionID)
	return args.Get(0).(publisher.Outcome), args.Error(1)
}

func (m *MockSessionManager) Notifications(sessionID string) ([]publisher.Notification, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]publisher.Notification), args.Error(1)
}

func (m *MockSessionManager) Teardown(sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func (m *MockSessionManager) Close() {
	m.Called()
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

// setupAPITestRouter creates a router with the middleware the handlers expect.
func setupAPITestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Nop()))
	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.ErrorResponse {
	t.Helper()
	var response apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}
