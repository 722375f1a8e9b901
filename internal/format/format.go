// Package format renders scraped posts as Telegram HTML messages.
package format

import (
	"fmt"
	"html"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/tgrewrite/tgrewrite/internal/config"
	"github.com/tgrewrite/tgrewrite/internal/scrape"
	"github.com/tgrewrite/tgrewrite/internal/textsplit"
)

const (
	previewLen     = 200
	divider        = "========================================"
	postDivider    = "----------------------------------------"
	truncateNotice = "\n\n⚠️ Summary truncated, too many posts"
)

// emoji per media kind, with a variant for posts that also carry text.
var emojiByKind = map[scrape.MediaKind]struct{ plain, withText string }{
	scrape.MediaPoll:     {"📊", "📊"},
	scrape.MediaVoice:    {"🎤", "🎤"},
	scrape.MediaDocument: {"📎", "📎"},
	scrape.MediaVideo:    {"📹", "🎬"},
	scrape.MediaGallery:  {"🖼", "🖼📸"},
	scrape.MediaPhoto:    {"🖼", "🖼✍️"},
	scrape.MediaText:     {"📄", "📄"},
}

// PostEmoji picks the marker shown next to a post in the summary.
func PostEmoji(p scrape.Post) string {
	e, ok := emojiByKind[p.Media.Kind]
	if !ok {
		return "📝"
	}
	if p.Media.HasText {
		return e.withText
	}
	return e.plain
}

// Summary renders up to MaxSummaryPosts posts as one HTML message, capped
// at the message-length ceiling with a trailing notice when cut.
func Summary(posts []scrape.Post) string {
	if len(posts) == 0 {
		return "❌ No posts found"
	}
	if len(posts) > config.MaxSummaryPosts {
		posts = posts[:config.MaxSummaryPosts]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Channel summary</b> (%d posts)\n\n", len(posts))
	b.WriteString("💡 <i>Send a post link back to get a rewrite</i>\n")
	b.WriteString(divider)

	for i, p := range posts {
		fmt.Fprintf(&b, "\n\n%s <b>Post #%d</b>\n", PostEmoji(p), i+1)
		if p.PostLink != "" {
			fmt.Fprintf(&b, "🔗 <a href=\"%s\">Open</a>\n", p.PostLink)
		}
		fmt.Fprintf(&b, "👁 %s | 📤 %s\n", humanize.Comma(int64(p.Views)), humanize.Comma(int64(p.Forwards)))
		if p.IsForwarded {
			b.WriteString("↪️ <i>Forwarded</i>\n")
		}
		if p.Text != "" {
			fmt.Fprintf(&b, "📝 %s\n", html.EscapeString(textsplit.Truncate(p.Text, previewLen)))
		}
		b.WriteString(postDivider)
	}

	result := b.String()
	if len([]rune(result)) > config.MaxMessageLength {
		keep := config.MaxMessageLength - 100
		result = string([]rune(result)[:keep]) + truncateNotice
	}
	return result
}
