// file: internal/metadata/client.go
// version: 1.1.0
// guid: e6542adf-89c6-492e-a3db-1063175f3fb7

package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// DefaultHTTPTimeout bounds a single upstream request when the caller set no deadline.
const DefaultHTTPTimeout = 30 * time.Second

// errNoContent marks a 404, or a query the provider refused, so callers can
// turn it into an empty answer.
var errNoContent = errors.New("no content")

// newHTTPClient returns a client that refuses to follow redirects. A
// metadata API that redirects is pointed at the wrong endpoint.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: DefaultHTTPTimeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// parseBaseURL validates an operator-supplied base URL.
func parseBaseURL(provider, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", configError(provider, "malformed base url %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", configError(provider, "base url %q must use http or https", raw)
	}
	if u.Host == "" {
		return "", configError(provider, "base url %q has no host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// apiClient carries what every adapter needs to talk to its upstream.
type apiClient struct {
	provider   string
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

func newAPIClient(provider, baseURL string) *apiClient {
	return &apiClient{
		provider:   provider,
		httpClient: newHTTPClient(),
		baseURL:    baseURL,
		headers:    map[string]string{"Accept": "application/json"},
	}
}

// getJSON issues a GET against baseURL+path and decodes the body into out.
// A 404 is reported as errNoContent.
func (c *apiClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return configError(c.provider, "build request: %v", err)
	}
	return c.do(req, out)
}

// postJSON issues a POST with a JSON body and decodes the response into out.
func (c *apiClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return configError(c.provider, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out interface{}) error {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(req.Context(), err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return c.transportError(req.Context(), ctxErr)
		}
		return operationalError(c.provider, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// transportError distinguishes a caller cancellation from everything else
// that can go wrong on the wire.
func (c *apiClient) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &ProviderError{Provider: c.provider, Class: ClassCanceled, Err: ctx.Err()}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && !urlErr.Timeout() && strings.Contains(urlErr.Err.Error(), "unsupported protocol scheme") {
		return configError(c.provider, "%v", err)
	}
	return operationalError(c.provider, 0, err)
}

// checkStatus classifies a non-2xx answer. Only credential and redirect
// answers point at the provider's settings; a provider refusing one query
// has nothing for it, and any other 4xx is an operational fault.
func (c *apiClient) checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errNoContent
	case code == http.StatusBadRequest || code == http.StatusGone || code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: status %d: %s", errNoContent, code, statusText(resp))
	case code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusProxyAuthRequired:
		return &ProviderError{
			Provider:   c.provider,
			Class:      ClassConfiguration,
			StatusCode: code,
			Err:        fmt.Errorf("%s", statusText(resp)),
		}
	case code >= 300 && code < 400:
		return &ProviderError{
			Provider:   c.provider,
			Class:      ClassConfiguration,
			StatusCode: code,
			Err:        fmt.Errorf("unexpected redirect to %q", resp.Header.Get("Location")),
		}
	default:
		return operationalError(c.provider, code, fmt.Errorf("%s", statusText(resp)))
	}
}

func statusText(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return http.StatusText(resp.StatusCode)
	}
	return msg
}

// probeError turns a 404 or refused request from a connection test into a
// configuration error, since the test query is fixed and valid: the base URL
// points at the wrong API.
func probeError(provider string, err error) error {
	if errors.Is(err, errNoContent) {
		return configError(provider, "test endpoint did not answer: %v", err)
	}
	return err
}

// decodeSettings unmarshals adapter settings, treating empty input as {}.
func decodeSettings(provider string, raw []byte, out interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return configError(provider, "invalid settings: %v", err)
	}
	return nil
}
