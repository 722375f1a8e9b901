package scrape

import "errors"

// The scraping boundary reports failures through a closed set of sentinel
// errors. All of them are terminal for the current call: the scraper never
// retries internally, retry policy belongs to the caller.
var (
	// ErrTransport covers DNS, connect and timeout failures.
	ErrTransport = errors.New("t.me request failed")

	// ErrNotFound is returned for HTTP 404: the channel or post does not
	// exist, is private, or was deleted.
	ErrNotFound = errors.New("channel or post not found or private")

	// ErrAccessBlocked is returned for HTTP 403 and 429: the upstream host
	// rate-limited or denied the request.
	ErrAccessBlocked = errors.New("access to t.me blocked")

	// ErrUnexpectedStatus is returned for any other non-200 status.
	// The wrapping message carries the status code.
	ErrUnexpectedStatus = errors.New("t.me returned unexpected status")

	// ErrUpstreamErrorPage is returned when t.me answers 200 but the page
	// itself is an error page (the host renders errors as 200 responses).
	ErrUpstreamErrorPage = errors.New("t.me returned an error page")

	// ErrNoPosts is returned when zero usable posts came out of all fetched
	// pages. A legitimately empty channel and a markup change are
	// indistinguishable here and map to the same error.
	ErrNoPosts = errors.New("no posts extracted, channel may be empty or layout changed")
)
