// file: internal/metadata/client_test.go
// version: 1.1.0
// guid: 0d2f8177-9003-444d-9f49-ad8ee9846418

package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "https://openlibrary.org/", want: "https://openlibrary.org"},
		{raw: " http://localhost:8080/api ", want: "http://localhost:8080/api"},
		{raw: "ftp://example.com", wantErr: true},
		{raw: "openlibrary.org", wantErr: true},
		{raw: "https://", wantErr: true},
		{raw: "http://[::1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseBaseURL("test", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ClassConfiguration, Classify(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		class  ErrorClass
	}{
		{"unauthorized", http.StatusUnauthorized, ClassConfiguration},
		{"forbidden", http.StatusForbidden, ClassConfiguration},
		{"proxy auth", http.StatusProxyAuthRequired, ClassConfiguration},
		{"method not allowed", http.StatusMethodNotAllowed, ClassOperational},
		{"throttled", http.StatusTooManyRequests, ClassOperational},
		{"server error", http.StatusInternalServerError, ClassOperational},
		{"unavailable", http.StatusServiceUnavailable, ClassOperational},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			api := newAPIClient("test", server.URL)
			var out map[string]interface{}
			err := api.getJSON(context.Background(), "/x", nil, &out)
			require.Error(t, err)
			assert.Equal(t, tt.class, Classify(err))

			var pe *ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.status, pe.StatusCode)
		})
	}
}

func TestAPIClient_RefusedQueryIsNoContent(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusGone, http.StatusUnprocessableEntity} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte("invalid isbn"))
			}))
			defer server.Close()

			api := newAPIClient("test", server.URL)
			var out map[string]interface{}
			err := api.getJSON(context.Background(), "/isbn/123", nil, &out)
			require.ErrorIs(t, err, errNoContent)
			assert.Contains(t, err.Error(), "invalid isbn")
			assert.NotEqual(t, ClassConfiguration, Classify(err))
			assert.Equal(t, ClassConfiguration, Classify(probeError("test", err)))
		})
	}
}

func TestAPIClient_NotFoundIsNoContent(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	api := newAPIClient("test", server.URL)
	var out map[string]interface{}
	err := api.getJSON(context.Background(), "/missing", nil, &out)
	assert.True(t, errors.Is(err, errNoContent))
	assert.Equal(t, ClassConfiguration, Classify(probeError("test", err)))
}

func TestAPIClient_RedirectIsConfiguration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://elsewhere.example/login", http.StatusFound)
	}))
	defer server.Close()

	api := newAPIClient("test", server.URL)
	var out map[string]interface{}
	err := api.getJSON(context.Background(), "/x", nil, &out)
	require.Error(t, err)
	assert.Equal(t, ClassConfiguration, Classify(err))
	assert.Contains(t, err.Error(), "elsewhere.example")
}

func TestAPIClient_MalformedBodyIsOperational(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"docs": [`))
	}))
	defer server.Close()

	api := newAPIClient("test", server.URL)
	var out map[string]interface{}
	err := api.getJSON(context.Background(), "/x", nil, &out)
	require.Error(t, err)
	assert.Equal(t, ClassOperational, Classify(err))
}

func TestAPIClient_TimeoutIsOperational(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	api := newAPIClient("test", server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var out map[string]interface{}
	err := api.getJSON(ctx, "/slow", nil, &out)
	require.Error(t, err)
	assert.Equal(t, ClassOperational, Classify(err))
}

func TestAPIClient_CallerCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	api := newAPIClient("test", server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out map[string]interface{}
	err := api.getJSON(ctx, "/x", nil, &out)
	require.Error(t, err)
	assert.Equal(t, ClassCanceled, Classify(err))
}

func TestAPIClient_ConnectionRefusedIsOperational(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	api := newAPIClient("test", url)
	var out map[string]interface{}
	err := api.getJSON(context.Background(), "/x", nil, &out)
	require.Error(t, err)
	assert.Equal(t, ClassOperational, Classify(err))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassNone, Classify(nil))
	assert.Equal(t, ClassCanceled, Classify(context.Canceled))
	assert.Equal(t, ClassOperational, Classify(context.DeadlineExceeded))
	assert.Equal(t, ClassOperational, Classify(errors.New("surprise")))
	assert.True(t, IsConfigurationError(configError("x", "bad token")))
	assert.False(t, IsConfigurationError(operationalError("x", 500, errors.New("boom"))))
}
