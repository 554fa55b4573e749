package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		path    string
		headers map[string]string
		want    int
		wantMsg string
	}{
		{name: "no keys configured", keys: nil, path: "/v1/query", want: http.StatusOK},
		{name: "only empty keys", keys: []string{"", ""}, path: "/v1/query", want: http.StatusOK},
		{
			name: "missing header", keys: []string{"secret"}, path: "/v1/query",
			want: http.StatusUnauthorized, wantMsg: "missing authorization header",
		},
		{
			name: "basic scheme", keys: []string{"secret"}, path: "/v1/query",
			headers: map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			want:    http.StatusUnauthorized, wantMsg: "authorization header must use Bearer scheme",
		},
		{
			name: "wrong bearer", keys: []string{"secret"}, path: "/v1/query",
			headers: map[string]string{"Authorization": "Bearer wrong-key"},
			want:    http.StatusUnauthorized, wantMsg: "invalid api key",
		},
		{
			name: "valid bearer", keys: []string{"secret"}, path: "/v1/query",
			headers: map[string]string{"Authorization": "Bearer secret"},
			want:    http.StatusOK,
		},
		{
			name: "second of several keys", keys: []string{"key1", "key2"}, path: "/v1/query",
			headers: map[string]string{"Authorization": "Bearer key2"},
			want:    http.StatusOK,
		},
		{
			name: "x-api-key header", keys: []string{"secret"}, path: "/v1/query",
			headers: map[string]string{"X-API-Key": "secret"},
			want:    http.StatusOK,
		},
		{
			name: "prefix of a key", keys: []string{"secret"}, path: "/v1/query",
			headers: map[string]string{"X-API-Key": "secre"},
			want:    http.StatusUnauthorized, wantMsg: "invalid api key",
		},
		{name: "health is public", keys: []string{"secret"}, path: "/health", want: http.StatusOK},
		{name: "metrics is public", keys: []string{"secret"}, path: "/metrics", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := BearerAuthMiddleware(tt.keys)(okHandler())

			req := httptest.NewRequest(http.MethodPost, tt.path, http.NoBody)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
			if tt.wantMsg == "" {
				return
			}

			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != CodeUnauthorized || errResp.Message != tt.wantMsg {
				t.Errorf("error = %+v, want %s/%q", errResp, CodeUnauthorized, tt.wantMsg)
			}
			if rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}
