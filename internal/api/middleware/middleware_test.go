package middleware_test

import (
	"bytes"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/unifiedui/entity-store/internal/api/middleware"
	domainerrors "github.com/unifiedui/entity-store/internal/domain/errors"
	"github.com/unifiedui/entity-store/internal/testutils"
)

func setupRouter(buf *bytes.Buffer) *gin.Engine {
	loggingMw := middleware.NewLoggingMiddlewareWithLogger(zerolog.New(buf))
	errorMw := middleware.NewErrorMiddleware()

	router := testutils.SetupTestRouter()
	router.Use(loggingMw.RequestID(), loggingMw.Logger(), errorMw.Recovery())
	return router
}

func TestRequestID_Generated(t *testing.T) {
	var buf bytes.Buffer
	router := setupRouter(&buf)
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, middleware.GetRequestID(c))
	})

	w := testutils.PerformRequest(router, "GET", "/ping", nil, nil)

	id := w.Header().Get(middleware.RequestIDHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, w.Body.String())
	assert.Contains(t, buf.String(), id)
}

func TestRequestID_Propagated(t *testing.T) {
	var buf bytes.Buffer
	router := setupRouter(&buf)
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := testutils.PerformRequest(router, "GET", "/ping", nil, map[string]string{middleware.RequestIDHeader: "caller-id"})

	assert.Equal(t, "caller-id", w.Header().Get(middleware.RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"caller-id"`)
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	router := setupRouter(&buf)
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := testutils.PerformRequest(router, "GET", "/panic", nil, nil)

	testutils.AssertStatusCode(t, http.StatusInternalServerError, w)
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domainerrors.NewValidationError("invalid query", "sort$"), http.StatusBadRequest, domainerrors.ErrCodeValidation},
		{"fatal connection", domainerrors.NewFatalConnectionError("mongodb://h/d", errors.New("refused")), http.StatusServiceUnavailable, domainerrors.ErrCodeFatalConnection},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, domainerrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			router := setupRouter(&buf)
			router.GET("/fail", func(c *gin.Context) { middleware.HandleError(c, tt.err) })

			w := testutils.PerformRequest(router, "GET", "/fail", nil, nil)

			testutils.AssertStatusCode(t, tt.status, w)

			var response middleware.ErrorResponse
			testutils.ParseJSONResponse(t, w, &response)
			assert.Equal(t, tt.code, response.Code)
			assert.NotEmpty(t, response.RequestID)
		})
	}
}
