package scrape

import (
	"regexp"
	"strconv"
	"strings"
)

// previewHost is the host serving the public channel preview.
const previewHost = "t.me"

// hostPrefixRe strips an optional scheme, the preview host and the optional
// "s/" feed-view path segment. "t.me/s/name" and "https://t.me/name" both
// reduce to "name...".
var hostPrefixRe = regexp.MustCompile(`(?i)^(?:https?://)?t\.me/(?:s/)?`)

// stripPrefix removes surrounding whitespace, the host prefix and a leading
// mention marker, keeping any remaining path segments intact.
func stripPrefix(s string) string {
	s = strings.TrimSpace(s)
	s = hostPrefixRe.ReplaceAllString(s, "")
	return strings.TrimLeft(s, "@")
}

// NormalizeChannel canonicalizes a user-supplied channel reference into a
// bare slug. Accepted forms include "@name", "name", "t.me/name",
// "https://t.me/s/name" and any of those with a trailing post id, which is
// discarded. Returns "" when no usable token remains. Character-set
// validation is deliberately not done here.
func NormalizeChannel(channel string) string {
	cleaned := stripPrefix(channel)
	slug, _, _ := strings.Cut(cleaned, "/")
	return slug
}

// ChannelLink returns the canonical https link for a channel reference.
func ChannelLink(channel string) string {
	return "https://" + previewHost + "/" + NormalizeChannel(channel)
}

// ParsePostLink decides whether the input is a direct link to one specific
// post. A direct link reduces to exactly two non-empty segments, slug and a
// strictly positive all-digit id ("00345" parses as 345). Anything else,
// including channel-only references, reports ok == false.
func ParsePostLink(raw string) (slug string, postID int, ok bool) {
	cleaned := stripPrefix(raw)

	parts := strings.Split(cleaned, "/")
	if len(parts) != 2 {
		return "", 0, false
	}

	slug, idPart := parts[0], parts[1]
	if slug == "" || idPart == "" {
		return "", 0, false
	}
	for _, r := range idPart {
		if r < '0' || r > '9' {
			return "", 0, false
		}
	}

	postID, err := strconv.Atoi(idPart)
	if err != nil || postID <= 0 {
		return "", 0, false
	}
	return slug, postID, true
}
