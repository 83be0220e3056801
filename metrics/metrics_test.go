package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Get("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/users/{id}", "404")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"ana", "bruno"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/users/"+id, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestHTTPMetricsMiddleware_Unmatched(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestCounters(t *testing.T) {
	msgs := messagesProduced.WithLabelValues("daily-digest")
	before := testutil.ToFloat64(msgs)
	AddMessages("daily-digest", 3)
	AddMessages("daily-digest", 0)
	assert.Equal(t, before+3, testutil.ToFloat64(msgs))

	v := violationsDetected.WithLabelValues("rest", "editor")
	before = testutil.ToFloat64(v)
	ObserveViolation("rest", "editor")
	assert.Equal(t, before+1, testutil.ToFloat64(v))
}
