package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://" + previewHost + "/s"
	fetchTimeout   = 15 * time.Second

	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	acceptLanguage = "en-US,en;q=0.9"

	// errorPageSelector marks pages t.me renders with a 200 status even
	// though they describe a failure (hidden channel, auth required).
	errorPageSelector = ".tgme_page_error"
)

// Scraper fetches and parses channel preview pages. Construct one per
// scrape invocation: it holds its own HTTP client and no shared state, so
// concurrent scrapes of different channels are fully independent.
type Scraper struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// Option adjusts a Scraper. Used by tests to point at a synthetic server.
type Option func(*Scraper)

// WithBaseURL overrides the preview endpoint.
func WithBaseURL(u string) Option {
	return func(s *Scraper) { s.baseURL = u }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scraper) { s.log = log }
}

// New creates a Scraper with a fresh HTTP client and a conservative
// per-host pacing limiter so multi-page scrapes stay polite.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: fetchTimeout},
		limiter: rate.NewLimiter(2, 1),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fetchDocument issues one GET against the preview endpoint and maps the
// outcome onto the error taxonomy. A before cursor of 0 means "newest
// page". No retries happen here.
func (s *Scraper) fetchDocument(ctx context.Context, path string, before int) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	url := s.baseURL + "/" + path
	if before > 0 {
		url += "?before=" + strconv.Itoa(before)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", acceptLanguage)

	s.log.Debug().Str("url", url).Msg("fetching preview page")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w (HTTP %d), try later or via proxy", ErrAccessBlocked, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if doc.Find(errorPageSelector).Length() > 0 {
		return nil, ErrUpstreamErrorPage
	}
	return doc, nil
}
