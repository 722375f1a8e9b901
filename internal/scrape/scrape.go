package scrape

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// MaxPages bounds how deep one FetchPosts call paginates.
const MaxPages = 20

// FetchPosts scrapes up to pages of channel history, newest first. The
// channel reference is normalized first, so any of the accepted forms
// works. Pagination threads the smallest message id of each page as the
// "before" cursor for the next and stops on an empty page, a collapsed
// cursor or after the requested number of pages. Returns ErrNoPosts when
// nothing usable was extracted across all pages.
func (s *Scraper) FetchPosts(ctx context.Context, channel string, pages int) ([]Post, error) {
	slug := NormalizeChannel(channel)
	if slug == "" {
		return nil, errors.New("invalid channel name")
	}

	if pages < 1 {
		pages = 1
	}
	if pages > MaxPages {
		pages = MaxPages
	}

	var all []Post
	before := 0

	for i := 0; i < pages; i++ {
		pagePosts, nextBefore, err := s.fetchPage(ctx, slug, before)
		if err != nil {
			return nil, err
		}
		if len(pagePosts) == 0 {
			break // end of history, not an error
		}
		all = append(all, pagePosts...)

		if nextBefore == 0 {
			break // cursor exhausted
		}
		before = nextBefore
	}

	if len(all) == 0 {
		return nil, ErrNoPosts
	}

	// newest first; stable keeps insertion order on equal ids
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].messageID > all[j].messageID
	})
	for i := range all {
		all[i].messageID = 0
	}
	return all, nil
}

// fetchPage scrapes one preview page. It returns the page's posts in
// newest-first order and the cursor for the next (older) page, 0 when
// pagination must stop.
func (s *Scraper) fetchPage(ctx context.Context, slug string, before int) ([]Post, int, error) {
	doc, err := s.fetchDocument(ctx, slug, before)
	if err != nil {
		return nil, 0, err
	}

	messages := doc.Find(messageSelector)
	if messages.Length() == 0 {
		return nil, 0, nil
	}

	var posts []Post
	minID := 0

	// the page lists oldest first, walk it backwards
	for i := messages.Length() - 1; i >= 0; i-- {
		msg := messages.Eq(i)

		post, ok := extractPost(slug, msg)
		if !ok {
			continue
		}
		if post.messageID > 0 && (minID == 0 || post.messageID < minID) {
			minID = post.messageID
		}
		posts = append(posts, post)
	}

	next := 0
	if minID > 1 {
		next = minID
	}
	return posts, next, nil
}

// FetchSinglePost retrieves one post by its numeric id. The preview host
// renders the requested message on the same feed page, located here by its
// data-post attribute.
func (s *Scraper) FetchSinglePost(ctx context.Context, channel string, postID int) (Post, error) {
	slug := NormalizeChannel(channel)
	if slug == "" {
		return Post{}, errors.New("invalid channel name")
	}

	doc, err := s.fetchDocument(ctx, slug+"/"+strconv.Itoa(postID), 0)
	if err != nil {
		return Post{}, err
	}

	wanted := slug + "/" + strconv.Itoa(postID)
	var msg *goquery.Selection
	doc.Find(messageSelector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if attr, ok := el.Attr("data-post"); ok && attr == wanted {
			msg = el
			return false
		}
		return true
	})
	if msg == nil {
		return Post{}, fmt.Errorf("%w: post %s not on page, it may have been deleted", ErrNotFound, wanted)
	}

	post, ok := extractPost(slug, msg)
	if !ok {
		return Post{}, fmt.Errorf("%w: post %s has no permalink", ErrNotFound, wanted)
	}
	post.messageID = 0
	return post, nil
}
