package sincera

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"sincera-pipeline/internal/storage"
)

const (
	defaultRetryAfter = 60 * time.Second
	bodySnippetLimit  = 200
)

// Client fetches publisher metrics from the Sincera API. Every attempt goes
// through the shared rate limiter before hitting the wire.
type Client struct {
	baseURL    string
	token      string
	maxRetries int
	limiter    *RateLimiter
	httpClient *http.Client
	sleep      func(time.Duration)
}

// NewClient creates an API client with the given bearer token and timeout
func NewClient(baseURL, token string, timeout time.Duration, maxRetries int, limiter *RateLimiter) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		maxRetries: maxRetries,
		limiter:    limiter,
		httpClient: &http.Client{Timeout: timeout},
		sleep:      time.Sleep,
	}
}

// Fetch retrieves metrics for one domain. Per-domain failures are captured
// in the returned result; Fetch itself never aborts the run.
//
// Status handling: 200 parses, 404 and other non-200 statuses fail
// immediately without retry, 429 waits out Retry-After and retries,
// transport errors retry with exponential backoff. Every loop iteration
// (including 429 waits) counts against maxRetries so the fetch always
// terminates.
func (c *Client) Fetch(domain string) storage.FetchResult {
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		c.limiter.Acquire()

		resp, err := c.get(domain)
		if err != nil {
			if attempt == c.maxRetries-1 {
				return failed(domain, fmt.Sprintf("request failed: %v", err))
			}
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			logrus.Warnf("Request error for %s (attempt %d/%d), retrying in %s: %v",
				domain, attempt+1, c.maxRetries, backoff, err)
			c.sleep(backoff)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			if readErr != nil {
				return failed(domain, fmt.Sprintf("failed to read response body: %v", readErr))
			}
			var metrics storage.PublisherMetrics
			if err := json.Unmarshal(body, &metrics); err != nil {
				return failed(domain, fmt.Sprintf("malformed response: %v", err))
			}
			return storage.FetchResult{
				Domain:    domain,
				Success:   true,
				Metrics:   &metrics,
				FetchedAt: time.Now(),
			}

		case http.StatusNotFound:
			return failed(domain, "domain not found (404)")

		case http.StatusTooManyRequests:
			wait := retryAfterDelay(resp)
			logrus.Warnf("Rate limited by API for %s, waiting %s", domain, wait)
			c.sleep(wait)
			continue

		default:
			return failed(domain, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, snippet(body)))
		}
	}

	return failed(domain, "max retries exceeded")
}

// get issues one GET with the domain as query parameter
func (c *Client) get(domain string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("domain", domain)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.httpClient.Do(req)
}

// retryAfterDelay reads the Retry-After header, defaulting to 60s
func retryAfterDelay(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}

func snippet(body []byte) string {
	if len(body) > bodySnippetLimit {
		return string(body[:bodySnippetLimit])
	}
	return string(body)
}

func failed(domain, msg string) storage.FetchResult {
	return storage.FetchResult{
		Domain:    domain,
		Success:   false,
		Error:     msg,
		FetchedAt: time.Now(),
	}
}
