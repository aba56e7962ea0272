package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Fetch defaults
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultUserAgent    = "LocApp Calendar Sync/1.0"
	acceptHeader        = "text/calendar, application/calendar+xml, */*"

	// maxFeedSize bounds how much of a feed is read into memory.
	maxFeedSize = 16 << 20
)

// Fetcher downloads iCal feeds over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher with the given per-request timeout.
// A zero timeout uses DefaultFetchTimeout and an empty user agent uses DefaultUserAgent.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch retrieves the raw feed body. Failures are returned as *CalendarError
// of kind ErrKindTimeout or ErrKindConnection. No retry is attempted.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", connectionError(err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("Calendar fetch failed for %s: %v", redactURL(feedURL), err)
		return "", classifyFetchError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("Calendar fetch for %s returned %s", redactURL(feedURL), resp.Status)
		return "", connectionError(errors.New(resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize+1))
	if err != nil {
		return "", classifyFetchError(err)
	}
	if len(body) > maxFeedSize {
		return "", connectionError(fmt.Errorf("feed larger than %d bytes", maxFeedSize))
	}

	return string(body), nil
}

func classifyFetchError(err error) *CalendarError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return timeoutError(err)
	}

	// url.Error repeats the feed URL, which may carry a private token.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return connectionError(urlErr.Err)
	}
	return connectionError(err)
}

// redactURL keeps only the scheme and host of a feed URL for logging.
// Feed paths and query strings usually embed a secret export token.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "ics://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
