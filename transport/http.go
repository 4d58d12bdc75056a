// Package transport retrieves tile bytes over HTTP, from S3 or through WMTS KVP GetTile
// requests, and decodes them into images.
package transport

import (
	"context"
	"io"
	"net/http"
	"time"
)

const DefaultUserAgent = "wmtstiles/1.0"

// Getter retrieves the body and content type found at a URL.
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string) ([]byte, string, error)
}

type HTTPGetter struct {
	client    *http.Client
	userAgent string
}

var _ Getter = (*HTTPGetter)(nil)

func NewHTTPGetter(timeout time.Duration, userAgent string) *HTTPGetter {
	httpClient := &http.Client{}
	httpClient.Timeout = timeout
	httpClient.Transport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 64,
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPGetter{client: httpClient, userAgent: userAgent}
}

// Get issues a GET request with the given extra headers. Any failure, including a non 200
// status, is returned as a *FetchError.
func (g *HTTPGetter) Get(ctx context.Context, url string, headers map[string]string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", NewFetchError(url, err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", NewFetchError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, "", NewFetchError(url, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", NewFetchError(url, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
