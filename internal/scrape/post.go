// Package scrape extracts posts from the public t.me/s preview pages.
// It needs no Bot API token and no MTProto session: public channels render
// their history as plain HTML which is fetched and parsed here.
package scrape

import "time"

// MediaKind classifies the media attached to a post.
type MediaKind string

const (
	MediaText     MediaKind = "text"
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaGallery  MediaKind = "gallery"
	MediaPoll     MediaKind = "poll"
	MediaVoice    MediaKind = "voice"
	MediaDocument MediaKind = "document"
)

// MediaInfo describes what kind of media a post carries.
// Count is the number of photo containers for a gallery, 1 for any other
// single-media kind and 0 for a plain text post.
type MediaInfo struct {
	Kind    MediaKind
	HasText bool
	Count   int
}

// Post is one message extracted from a channel preview page.
// Every field is best-effort except PostLink: a message without a permalink
// is dropped during extraction and never becomes a Post.
type Post struct {
	ChannelSlug string
	ChannelLink string
	PostLink    string
	Text        string
	PostedAt    *time.Time // naive UTC, nil when the time element is missing or unparseable
	Views       int
	Forwards    int
	HasMedia    bool
	IsForwarded bool
	Media       MediaInfo
	PhotoURL    string
	VideoURL    string

	// messageID drives pagination and final ordering only.
	// It is zeroed before posts are handed to the caller.
	messageID int
}
