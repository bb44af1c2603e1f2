package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/erauner12/toolbridge-resources/internal/auth"
	"github.com/erauner12/toolbridge-resources/internal/collection"
)

const testSecret = "test-secret"

// newTestRouter builds a dev-mode router over an in-memory repository
func newTestRouter(t *testing.T, rl RateLimitInfo) http.Handler {
	t.Helper()
	srv := &Server{
		Repo:            collection.NewMemory(),
		Storage:         "memory",
		RateLimitConfig: rl,
		Registry:        prometheus.NewRegistry(),
	}
	return srv.Routes(auth.JWTCfg{HS256Secret: testSecret, DevMode: true})
}

// makeRequest sends body as JSON with the X-Debug-Sub header set to sub
func makeRequest(t *testing.T, router http.Handler, method, path string, body any, sub string) *httptest.ResponseRecorder {
	t.Helper()

	var bodyReader *bytes.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	} else {
		bodyReader = bytes.NewReader([]byte{})
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if sub != "" {
		req.Header.Set("X-Debug-Sub", sub)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v (body: %s)", err, w.Body.String())
	}
}
