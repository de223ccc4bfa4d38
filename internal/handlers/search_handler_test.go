package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "github.com/stwalsh4118/propsearch/internal/errors"
	"github.com/stwalsh4118/propsearch/internal/models"
	"github.com/stwalsh4118/propsearch/internal/publisher"
	"github.com/stwalsh4118/propsearch/internal/reconcile"
	"github.com/stwalsh4118/propsearch/internal/search"
	"github.com/stwalsh4118/propsearch/internal/services"
)

func postSearch(t *testing.T, service *MockSearchService, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := setupAPITestRouter()
	router.POST("/api/v1/search", NewSearchHandler(service).Search)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSearchHandler_Success(t *testing.T) {
	service := new(MockSearchService)
	expectedParams := models.SearchParams{
		City:             "Mumbai",
		Area:             "Andheri East",
		MaxPriceText:     "₹2 Cr",
		PropertyCategory: models.CategoryResidential,
		PropertyType:     models.TypeFlat,
		UseAPI:           true,
	}
	service.On("Search", mock.Anything, expectedParams, services.Origin{}).Return(&reconcile.Result{
		Records:  []models.PropertyRecord{{Name: "K Raheja Vistas", Location: "Andheri East", Price: "₹ 3.45 Cr"}},
		Insights: []models.LocationInsight{},
		Strategy: reconcile.StrategyCanonicalEnvelope,
		Path:     "data.selected_properties",
	}, nil)

	w := postSearch(t, service, `{"city":" Mumbai ","area":"Andheri East","max_price":"₹2 Cr","use_api":true}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		State    string                  `json:"state"`
		Strategy string                  `json:"strategy"`
		Records  []models.PropertyRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "succeeded", response.State)
	assert.Equal(t, "canonical_envelope", response.Strategy)
	require.Len(t, response.Records, 1)
	assert.Equal(t, "K Raheja Vistas", response.Records[0].Name)

	service.AssertExpectations(t)
}

func TestSearchHandler_NoMatchesIsSuccess(t *testing.T) {
	service := new(MockSearchService)
	service.On("Search", mock.Anything, mock.Anything, services.Origin{}).Return(&reconcile.Result{
		Records:  []models.PropertyRecord{},
		Insights: []models.LocationInsight{},
		Strategy: reconcile.StrategyFlatEnvelope,
	}, nil)

	w := postSearch(t, service, `{"city":"pune"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"records":[]`)
}

func TestSearchHandler_ExplicitCategoryAndType(t *testing.T) {
	service := new(MockSearchService)
	service.On("Search", mock.Anything, mock.MatchedBy(func(p models.SearchParams) bool {
		return p.PropertyCategory == models.CategoryCommercial && p.PropertyType == models.TypeIndependentHouse
	}), services.Origin{}).Return(&reconcile.Result{}, nil)

	w := postSearch(t, service, `{"city":"pune","property_category":"commercial","property_type":"independent-house"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestSearchHandler_InvalidRequests(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedCode string
	}{
		{name: "malformed json", body: `{"city":`, expectedCode: apierrors.ErrBadRequest},
		{name: "unknown category", body: `{"property_category":"Industrial"}`, expectedCode: apierrors.ErrBadRequest},
		{name: "unknown type", body: `{"property_type":"Villa"}`, expectedCode: apierrors.ErrBadRequest},
		{name: "city too long", body: fmt.Sprintf(`{"city":%q}`, strings.Repeat("x", 101)), expectedCode: apierrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockSearchService)

			w := postSearch(t, service, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.expectedCode, decodeError(t, w).Error.Code)
			service.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSearchHandler_Failures(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedKind   publisher.ErrorKind
	}{
		{
			name:           "api disabled",
			err:            &search.BuildError{Err: search.ErrAPIDisabled, Reason: "use_api is false"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.ErrSearchFailed,
			expectedKind:   publisher.KindBuild,
		},
		{
			name:           "upstream status",
			err:            &search.ExecutorError{Kind: search.KindHTTPStatus, StatusCode: 500},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   apierrors.ErrUpstream,
			expectedKind:   publisher.KindHTTPStatus,
		},
		{
			name:           "unreadable body",
			err:            &search.ExecutorError{Kind: search.KindDecode},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   apierrors.ErrUpstream,
			expectedKind:   publisher.KindDecode,
		},
		{
			name:           "no property list",
			err:            fmt.Errorf("%w: top-level string", reconcile.ErrNoRecognizedShape),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   apierrors.ErrUnrecognizedResponse,
			expectedKind:   publisher.KindNoRecognizedShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockSearchService)
			service.On("Search", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			w := postSearch(t, service, `{"city":"mumbai","use_api":true}`)

			assert.Equal(t, tt.expectedStatus, w.Code)
			response := decodeError(t, w)
			assert.Equal(t, tt.expectedCode, response.Error.Code)
			assert.Equal(t, string(tt.expectedKind), response.Error.Details["error_kind"])
			assert.Equal(t, publisher.Message(tt.expectedKind, tt.err), response.Error.Message)
			assert.NotEmpty(t, response.Error.RequestID)
		})
	}
}
