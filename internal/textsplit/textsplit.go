// Package textsplit cuts long text into platform-sized segments.
//
// Telegram enforces two independent ceilings: 1024 characters for a media
// caption and 4096 for a plain message. Callers peel a caption-sized head
// off with SplitOnce and feed the remainder through SplitAll. All functions
// are pure and measure length in runes.
package textsplit

import "strings"

// SplitOnce splits text into a head of at most maxLen runes and the
// remaining tail. The split prefers the last whitespace boundary inside the
// window; a continuous run of non-whitespace longer than maxLen is cut hard
// at exactly maxLen. The boundary character itself is dropped and the tail
// keeps no leading whitespace. When the trimmed text already fits, the tail
// is empty.
func SplitOnce(text string, maxLen int) (head, tail string) {
	if maxLen < 1 {
		maxLen = 1
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= maxLen {
		return string(runes), ""
	}

	cut := -1
	for i := maxLen; i > 0; i-- {
		if isBoundary(runes[i]) {
			cut = i
			break
		}
	}

	if cut <= 0 {
		return string(runes[:maxLen]), strings.TrimSpace(string(runes[maxLen:]))
	}
	return string(runes[:cut]), strings.TrimSpace(string(runes[cut+1:]))
}

// SplitAll splits text into an ordered sequence of segments, each at most
// maxLen runes. Empty or whitespace-only input yields no segments.
func SplitAll(text string, maxLen int) []string {
	var segments []string

	rest := strings.TrimSpace(text)
	for rest != "" {
		head, tail := SplitOnce(rest, maxLen)
		if head != "" {
			segments = append(segments, head)
		}
		if tail == rest {
			break
		}
		rest = tail
	}
	return segments
}

// Truncate shortens text to at most maxLen runes, backing up to the last
// space and appending "..." when it had to cut. Used for post previews in
// the channel summary.
func Truncate(text string, maxLen int) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= maxLen {
		return trimmed
	}

	cut := string(runes[:maxLen])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

func isBoundary(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}
