package scrape

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Selectors for the tgme_widget_message_* class contract of the preview
// markup. Every extractor is best-effort: a missing sub-element yields the
// field's zero value, never an error. Upstream markup changes are expected
// to break individual selectors independently, which is why media URL
// extraction runs layered fallback strategies.
const (
	messageSelector   = ".tgme_widget_message"
	textSelector      = ".tgme_widget_message_text"
	dateLinkSelector  = "a.tgme_widget_message_date"
	viewsSelector     = ".tgme_widget_message_views"
	forwardsSelector  = ".tgme_widget_message_forwards"
	pollSelector      = ".tgme_widget_message_poll"
	voiceSelector     = ".tgme_widget_message_voice"
	documentSelector  = ".tgme_widget_message_document"
	videoSelector     = ".tgme_widget_message_video"
	photoSelector     = ".tgme_widget_message_photo"
	photoWrapSelector = ".tgme_widget_message_photo_wrap"
	avatarClass       = "tgme_widget_message_user_photo"
)

var forwardedSelectors = []string{
	".tgme_widget_message_forwarded_from",
	".tgme_widget_message_forwarded_post_author",
}

var (
	counterRe  = regexp.MustCompile(`^([0-9]+(?:[.,][0-9]+)?)([KM]?)`)
	nonDigitRe = regexp.MustCompile(`\D`)
	bgImageRe  = regexp.MustCompile(`url\(['"]?(.*?)['"]?\)`)
)

// parseCounter parses a view/forward counter token with an optional K or M
// suffix: "1 234" -> 1234, "1.2K" -> 1200, "3,5M" -> 3500000. A token
// matching no numeric pattern degrades to whatever digits it contains,
// or 0 when none remain.
func parseCounter(raw string) int {
	text := strings.ToUpper(strings.Join(strings.Fields(raw), ""))

	m := counterRe.FindStringSubmatch(text)
	if m == nil {
		digits := nonDigitRe.ReplaceAllString(text, "")
		n, err := strconv.Atoi(digits)
		if err != nil {
			return 0
		}
		return n
	}

	n, _ := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	switch m[2] {
	case "K":
		n *= 1_000
	case "M":
		n *= 1_000_000
	}
	return int(n)
}

// parseDatetime parses the ISO-8601 datetime attribute of the <time>
// element. Timezone-aware values are converted to UTC; the result is stored
// without timezone tagging. Unparseable input yields nil.
func parseDatetime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		// the attribute occasionally omits the offset entirely
		t, err = time.Parse("2006-01-02T15:04:05", value)
		if err != nil {
			return nil
		}
	}
	utc := t.UTC()
	naive := time.Date(utc.Year(), utc.Month(), utc.Day(), utc.Hour(), utc.Minute(), utc.Second(), utc.Nanosecond(), time.UTC)
	return &naive
}

// extractText returns the message body: line-level text content of the text
// block, blank lines collapsed, surrounding whitespace trimmed. Empty
// string when the message has no text block.
func extractText(msg *goquery.Selection) string {
	block := msg.Find(textSelector).First()
	if block.Length() == 0 {
		return ""
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range block.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}

// extractPostLink returns the permalink from the date-stamp anchor, or ""
// when the anchor is missing. A message without a permalink is unusable and
// the caller drops the whole record.
func extractPostLink(msg *goquery.Selection) string {
	href, _ := msg.Find(dateLinkSelector).First().Attr("href")
	return href
}

func extractViews(msg *goquery.Selection) int {
	tag := msg.Find(viewsSelector).First()
	if tag.Length() == 0 {
		return 0
	}
	return parseCounter(strings.TrimSpace(tag.Text()))
}

func extractForwards(msg *goquery.Selection) int {
	tag := msg.Find(forwardsSelector).First()
	if tag.Length() == 0 {
		return 0
	}
	return parseCounter(strings.TrimSpace(tag.Text()))
}

// detectMedia classifies the message media with an ordered precedence
// check: poll, voice, document, video, then photo gallery or single photo,
// else plain text. The ordering is a contract relied on by tests.
func detectMedia(msg *goquery.Selection) MediaInfo {
	hasText := msg.Find(textSelector).Length() > 0

	switch {
	case msg.Find(pollSelector).Length() > 0:
		return MediaInfo{Kind: MediaPoll, HasText: hasText, Count: 1}
	case msg.Find(voiceSelector).Length() > 0:
		return MediaInfo{Kind: MediaVoice, HasText: hasText, Count: 1}
	case msg.Find(documentSelector).Length() > 0:
		return MediaInfo{Kind: MediaDocument, HasText: hasText, Count: 1}
	case msg.Find(videoSelector).Length() > 0:
		return MediaInfo{Kind: MediaVideo, HasText: hasText, Count: 1}
	}

	if photos := msg.Find(photoWrapSelector); photos.Length() > 1 {
		return MediaInfo{Kind: MediaGallery, HasText: hasText, Count: photos.Length()}
	}
	if msg.Find(photoSelector).Length() > 0 {
		return MediaInfo{Kind: MediaPhoto, HasText: hasText, Count: 1}
	}
	return MediaInfo{Kind: MediaText, HasText: hasText, Count: 0}
}

// extractMessageID parses the internal numeric id from the
// data-post="slug/id" attribute. Pagination only, never exposed.
func extractMessageID(msg *goquery.Selection) int {
	attr, ok := msg.Attr("data-post")
	if !ok {
		return 0
	}
	parts := strings.Split(attr, "/")
	id, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return id
}

func isForwarded(msg *goquery.Selection) bool {
	for _, sel := range forwardedSelectors {
		if msg.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// normalizeMediaURL upgrades protocol-relative CDN URLs to https.
func normalizeMediaURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

func backgroundImageURL(sel *goquery.Selection) string {
	style, ok := sel.Attr("style")
	if !ok {
		return ""
	}
	m := bgImageRe.FindStringSubmatch(style)
	if m == nil {
		return ""
	}
	return normalizeMediaURL(m[1])
}

// photoURLSelectors and videoURLSelectors are the known media containers,
// tried first and in order before the generic fallbacks kick in.
var photoURLSelectors = []string{
	photoWrapSelector,
	photoSelector,
	".tgme_widget_message_video_thumb",
	".tgme_widget_message_video_player",
}

var videoURLSelectors = []string{
	videoSelector,
	".tgme_widget_message_video_player",
	".tgme_widget_message_video_wrap",
}

// extractPhotoURL runs a layered best-effort search for a direct photo URL:
// known containers' inline background-image or img src, then any
// background-image in the message, then any non-avatar img. Returns ""
// when every layer comes up empty.
func extractPhotoURL(msg *goquery.Selection) string {
	var found string

	for _, sel := range photoURLSelectors {
		msg.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if u := backgroundImageURL(el); u != "" {
				found = u
				return false
			}
			if goquery.NodeName(el) == "img" {
				if src, ok := el.Attr("src"); ok && src != "" {
					found = normalizeMediaURL(src)
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	msg.Find("[style]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		style, _ := el.Attr("style")
		if !strings.Contains(style, "background-image") {
			return true
		}
		if u := backgroundImageURL(el); u != "" {
			found = u
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	msg.Find("img").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if el.HasClass(avatarClass) {
			return true
		}
		if src, ok := el.Attr("src"); ok && src != "" {
			found = normalizeMediaURL(src)
			return false
		}
		return true
	})
	return found
}

// videoSrc pulls a playable URL out of a <video> element: its own src
// attribute first, then a nested <source>.
func videoSrc(video *goquery.Selection) string {
	if src, ok := video.Attr("src"); ok && src != "" {
		return normalizeMediaURL(src)
	}
	if src, ok := video.Find("source").First().Attr("src"); ok && src != "" {
		return normalizeMediaURL(src)
	}
	return ""
}

// extractVideoURL mirrors extractPhotoURL for video: known containers'
// background-image or embedded <video>/<source>, then any <video> in the
// message, then any data-src lazy-load attribute.
func extractVideoURL(msg *goquery.Selection) string {
	var found string

	for _, sel := range videoURLSelectors {
		msg.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if style, ok := el.Attr("style"); ok && strings.Contains(style, "background-image") {
				if u := backgroundImageURL(el); u != "" {
					found = u
					return false
				}
			}
			if video := el.Find("video").First(); video.Length() > 0 {
				if u := videoSrc(video); u != "" {
					found = u
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	msg.Find("video").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if u := videoSrc(el); u != "" {
			found = u
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	msg.Find("[data-src]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if src, ok := el.Attr("data-src"); ok && src != "" {
			found = normalizeMediaURL(src)
			return false
		}
		return true
	})
	return found
}

// extractPost assembles a Post from one message node. Returns ok == false
// when the message lacks a permalink, the one extraction failure that drops
// the whole record.
func extractPost(slug string, msg *goquery.Selection) (Post, bool) {
	postLink := extractPostLink(msg)
	if postLink == "" {
		return Post{}, false
	}

	var postedAt *time.Time
	if dt, ok := msg.Find("time").First().Attr("datetime"); ok {
		postedAt = parseDatetime(dt)
	}

	media := detectMedia(msg)

	return Post{
		ChannelSlug: slug,
		ChannelLink: "https://" + previewHost + "/" + slug,
		PostLink:    postLink,
		Text:        extractText(msg),
		PostedAt:    postedAt,
		Views:       extractViews(msg),
		Forwards:    extractForwards(msg),
		HasMedia:    media.Kind != MediaText,
		IsForwarded: isForwarded(msg),
		Media:       media,
		PhotoURL:    extractPhotoURL(msg),
		VideoURL:    extractVideoURL(msg),
		messageID:   extractMessageID(msg),
	}, true
}
