package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/entity-store/internal/api/handlers"
	"github.com/unifiedui/entity-store/internal/mocks"
	"github.com/unifiedui/entity-store/internal/testutils"
)

func TestHealthHandler_Health_AllHealthy(t *testing.T) {
	// Setup
	mockStore := &mocks.MockEntityStore{}
	mockCache := &mocks.MockCacheClient{}

	mockStore.On("Ping", mock.Anything).Return(nil)
	mockCache.On("Ping", mock.Anything).Return(nil)

	handler := handlers.NewHealthHandler(mockStore, mockCache)

	router := testutils.SetupTestRouter()
	router.GET("/health", handler.Health)

	// Execute
	w := testutils.PerformRequest(router, "GET", "/health", nil, nil)

	// Assert
	testutils.AssertStatusCode(t, http.StatusOK, w)

	var response handlers.HealthResponse
	testutils.ParseJSONResponse(t, w, &response)

	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "healthy", response.Components["store"])
	assert.Equal(t, "healthy", response.Components["cache"])

	mockStore.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestHealthHandler_Health_CacheDisabled(t *testing.T) {
	mockStore := &mocks.MockEntityStore{}
	mockStore.On("Ping", mock.Anything).Return(nil)

	handler := handlers.NewHealthHandler(mockStore, nil)

	router := testutils.SetupTestRouter()
	router.GET("/health", handler.Health)

	w := testutils.PerformRequest(router, "GET", "/health", nil, nil)

	testutils.AssertStatusCode(t, http.StatusOK, w)

	var response handlers.HealthResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "disabled", response.Components["cache"])
}

func TestHealthHandler_Health_CacheUnhealthy(t *testing.T) {
	mockStore := &mocks.MockEntityStore{}
	mockCache := &mocks.MockCacheClient{}

	mockStore.On("Ping", mock.Anything).Return(nil)
	mockCache.On("Ping", mock.Anything).Return(assert.AnError)

	handler := handlers.NewHealthHandler(mockStore, mockCache)

	router := testutils.SetupTestRouter()
	router.GET("/health", handler.Health)

	w := testutils.PerformRequest(router, "GET", "/health", nil, nil)

	testutils.AssertStatusCode(t, http.StatusServiceUnavailable, w)

	var response handlers.HealthResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "unhealthy", response.Status)
	assert.Equal(t, "unhealthy", response.Components["cache"])
	assert.Equal(t, "healthy", response.Components["store"])
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		status   int
	}{
		{"store up", nil, http.StatusOK},
		{"store down", assert.AnError, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := &mocks.MockEntityStore{}
			mockCache := &mocks.MockCacheClient{}
			mockStore.On("Ping", mock.Anything).Return(tt.storeErr)

			handler := handlers.NewHealthHandler(mockStore, mockCache)

			router := testutils.SetupTestRouter()
			router.GET("/ready", handler.Ready)

			w := testutils.PerformRequest(router, "GET", "/ready", nil, nil)

			testutils.AssertStatusCode(t, tt.status, w)
			mockCache.AssertNotCalled(t, "Ping", mock.Anything)
		})
	}
}

func TestHealthHandler_Live(t *testing.T) {
	handler := handlers.NewHealthHandler(&mocks.MockEntityStore{}, nil)

	router := testutils.SetupTestRouter()
	router.GET("/live", handler.Live)

	w := testutils.PerformRequest(router, "GET", "/live", nil, nil)

	testutils.AssertStatusCode(t, http.StatusOK, w)
}
