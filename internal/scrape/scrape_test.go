package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageHTML(slug string, id int) string {
	return fmt.Sprintf(`
		<div class="tgme_widget_message" data-post="%[1]s/%[2]d">
		  <div class="tgme_widget_message_text">post %[2]d</div>
		  <span class="tgme_widget_message_views">%[2]d0</span>
		  <a class="tgme_widget_message_date" href="https://t.me/%[1]s/%[2]d">
		    <time datetime="2024-12-29T10:30:00+00:00"></time>
		  </a>
		</div>`, slug, id)
}

func pageHTML(messages ...string) string {
	body := "<html><body>"
	for _, m := range messages {
		body += m
	}
	return body + "</body></html>"
}

func testScraper(t *testing.T, handler http.Handler) *Scraper {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(WithBaseURL(ts.URL))
}

func TestFetchPosts_ThreePagePagination(t *testing.T) {
	// pages keyed by the before cursor; the preview lists oldest first
	pages := map[string]string{
		"":   pageHTML(messageHTML("chan", 28), messageHTML("chan", 29), messageHTML("chan", 30)),
		"28": pageHTML(messageHTML("chan", 25), messageHTML("chan", 26), messageHTML("chan", 27)),
		"25": pageHTML(messageHTML("chan", 20), messageHTML("chan", 21), messageHTML("chan", 22)),
	}

	var requests []string
	s := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chan", r.URL.Path)
		before := r.URL.Query().Get("before")
		requests = append(requests, before)
		page, ok := pages[before]
		require.True(t, ok, "unexpected cursor %q", before)
		fmt.Fprint(w, page)
	}))

	posts, err := s.FetchPosts(context.Background(), "@chan", 3)
	require.NoError(t, err)
	require.Len(t, posts, 9)

	assert.Equal(t, []string{"", "28", "25"}, requests, "cursor is the page minimum id")

	// merged result is newest first with no duplicates
	wantOrder := []int{30, 29, 28, 27, 26, 25, 22, 21, 20}
	seen := make(map[string]bool)
	for i, p := range posts {
		assert.Equal(t, fmt.Sprintf("https://t.me/chan/%d", wantOrder[i]), p.PostLink)
		assert.False(t, seen[p.PostLink], "duplicate post_link %s", p.PostLink)
		seen[p.PostLink] = true
		assert.Zero(t, p.messageID, "internal id must be stripped")
		assert.Equal(t, "chan", p.ChannelSlug)
	}
}

func TestFetchPosts_StopsOnEmptyPage(t *testing.T) {
	calls := 0
	s := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("before") == "" {
			fmt.Fprint(w, pageHTML(messageHTML("chan", 5)))
			return
		}
		fmt.Fprint(w, pageHTML())
	}))

	posts, err := s.FetchPosts(context.Background(), "chan", 5)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 2, calls, "empty page ends pagination without error")
}

func TestFetchPosts_CursorCollapse(t *testing.T) {
	calls := 0
	s := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, pageHTML(messageHTML("chan", 1)))
	}))

	posts, err := s.FetchPosts(context.Background(), "chan", 5)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 1, calls, "cursor of 1 must not be forwarded")
}

func TestFetchPosts_MessageWithoutDateAnchorIsSkipped(t *testing.T) {
	orphan := `
		<div class="tgme_widget_message" data-post="chan/7">
		  <div class="tgme_widget_message_text">no permalink here</div>
		</div>`
	s := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pageHTML(messageHTML("chan", 6), orphan, messageHTML("chan", 8)))
	}))

	posts, err := s.FetchPosts(context.Background(), "chan", 1)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "https://t.me/chan/8", posts[0].PostLink)
	assert.Equal(t, "https://t.me/chan/6", posts[1].PostLink)
}

func TestFetchPosts_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"404 maps to not found", http.StatusNotFound, "", ErrNotFound},
		{"403 maps to blocked", http.StatusForbidden, "", ErrAccessBlocked},
		{"429 maps to blocked", http.StatusTooManyRequests, "", ErrAccessBlocked},
		{"500 maps to unexpected status", http.StatusInternalServerError, "", ErrUnexpectedStatus},
		{"200 error page", http.StatusOK, `<div class="tgme_page_error">Oops</div>`, ErrUpstreamErrorPage},
		{"200 without messages", http.StatusOK, pageHTML(), ErrNoPosts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			_, err := s.FetchPosts(context.Background(), "chan", 2)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFetchPosts_MidPaginationFailureAbortsWholeCall(t *testing.T) {
	s := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("before") == "" {
			fmt.Fprint(w, pageHTML(messageHTML("chan", 10)))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	posts, err := s.FetchPosts(context.Background(), "chan", 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, posts, "posts from earlier pages are not returned on failure")
}

func TestFetchPosts_InvalidChannel(t *testing.T) {
	s := New()
	_, err := s.FetchPosts(context.Background(), "   ", 1)
	assert.Error(t, err)
}

func TestFetchSinglePost(t *testing.T) {
	s := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chan/42", r.URL.Path)
		fmt.Fprint(w, pageHTML(messageHTML("chan", 41), messageHTML("chan", 42), messageHTML("chan", 43)))
	}))

	post, err := s.FetchSinglePost(context.Background(), "https://t.me/chan", 42)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/chan/42", post.PostLink)
	assert.Equal(t, "post 42", post.Text)
	assert.Zero(t, post.messageID)
}

func TestFetchSinglePost_MissingOnPage(t *testing.T) {
	s := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pageHTML(messageHTML("chan", 41)))
	}))

	_, err := s.FetchSinglePost(context.Background(), "chan", 42)
	assert.ErrorIs(t, err, ErrNotFound)
}
