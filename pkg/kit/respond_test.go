package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponder_Shapes(t *testing.T) {
	details := map[string]any{"id": "x"}

	tests := []struct {
		shape ErrorShape
		want  string
	}{
		{shape: ShapeFlat, want: `{"error":"Product not found","details":{"id":"x"}}`},
		{shape: ShapeStructured, want: `{"error":{"name":"NotFoundError","message":"Product not found","status":404,"details":{"id":"x"}}}`},
		{shape: "", want: `{"error":"Product not found","details":{"id":"x"}}`},
	}

	for _, tc := range tests {
		t.Run(string(tc.shape), func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewResponder(tc.shape).Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusNotFound, "Product not found", details)

			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tc.want, rec.Body.String())
		})
	}
}

func TestResponder_IncludesRequestID(t *testing.T) {
	h := chimw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NewResponder(ShapeStructured).Error(w, r, http.StatusUnauthorized, "missing token", nil)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, rec.Body.String(), `"request_id":"`)
	assert.Contains(t, rec.Body.String(), `"name":"UnauthorizedError"`)
	assert.NotContains(t, rec.Body.String(), `"details"`)
}

func TestErrorName(t *testing.T) {
	assert.Equal(t, "ValidationError", ErrorName(http.StatusBadRequest))
	assert.Equal(t, "InternalError", ErrorName(http.StatusInternalServerError))
	assert.Equal(t, "NotFoundError", ErrorName(http.StatusNotFound))
	assert.Equal(t, "TooManyRequestsError", ErrorName(http.StatusTooManyRequests))
	assert.Equal(t, "MethodNotAllowedError", ErrorName(http.StatusMethodNotAllowed))
	assert.Equal(t, "Error", ErrorName(599))
}

func TestParseErrorShape(t *testing.T) {
	got, err := ParseErrorShape(" FLAT ")
	require.NoError(t, err)
	assert.Equal(t, ShapeFlat, got)

	got, err = ParseErrorShape("")
	require.NoError(t, err)
	assert.Equal(t, ShapeStructured, got)

	_, err = ParseErrorShape("xml")
	assert.Error(t, err)
}
