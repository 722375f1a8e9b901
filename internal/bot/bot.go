// Package bot routes incoming Telegram updates to the scrape and rewrite
// pipeline and delivers the results back through the Bot API.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tgrewrite/tgrewrite/internal/config"
	"github.com/tgrewrite/tgrewrite/internal/format"
	"github.com/tgrewrite/tgrewrite/internal/logger"
	"github.com/tgrewrite/tgrewrite/internal/scrape"
	"github.com/tgrewrite/tgrewrite/internal/telegram"
	"github.com/tgrewrite/tgrewrite/internal/textsplit"
)

// API is the slice of the Bot API the service uses.
type API interface {
	GetUpdates(ctx context.Context, offset int) ([]telegram.Update, error)
	SetMyCommands(ctx context.Context, commands []telegram.BotCommand) error
	SendMessage(ctx context.Context, chatID int64, text string, asHTML bool) error
	SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error
	SendVideo(ctx context.Context, chatID int64, video []byte, caption string) error
	SendPhotoByID(ctx context.Context, chatID int64, fileID, caption string) error
	SendVideoByID(ctx context.Context, chatID int64, fileID, caption string) error
}

// PostSource scrapes channels. A fresh one is constructed per request so
// concurrent chats never share an HTTP client.
type PostSource interface {
	FetchPosts(ctx context.Context, channel string, pages int) ([]scrape.Post, error)
	FetchSinglePost(ctx context.Context, channel string, postID int) (scrape.Post, error)
}

// Rewriter produces the rewritten post text. Implementations fail soft and
// always return something sendable.
type Rewriter interface {
	Rewrite(ctx context.Context, post scrape.Post, customPrompt, model string) string
}

// MediaFetcher downloads post media for re-upload.
type MediaFetcher interface {
	Photo(ctx context.Context, url string) ([]byte, error)
	Video(ctx context.Context, url string) ([]byte, error)
}

const (
	startText = "👋 This bot rewrites posts from public Telegram channels.\n\n" +
		"Send a channel link (@name or t.me/name) to get a summary of recent posts, " +
		"or a direct post link (t.me/name/123) to get that post rewritten."
	helpText = "📖 Commands\n\n" +
		"/start — how it works\n" +
		"/help — this help\n\n" +
		"Input forms:\n" +
		"• Post link: t.me/channel/123\n" +
		"• Channel link: @channel or t.me/channel"
	invalidInputText = "❌ That does not look like a channel or post link"
)

// pollRetryDelay is the pause after a failed getUpdates call.
const pollRetryDelay = 3 * time.Second

// minForwardLen is the shortest forwarded text worth rewriting, in runes.
const minForwardLen = 10

// Service is the update loop and request router.
type Service struct {
	api       API
	rewriter  Rewriter
	media     MediaFetcher
	newSource func() PostSource
	cfg       *config.Config
	log       *logger.Logger
}

// NewService wires the bot service together.
func NewService(api API, rewriter Rewriter, media MediaFetcher, newSource func() PostSource, cfg *config.Config, log *logger.Logger) *Service {
	return &Service{
		api:       api,
		rewriter:  rewriter,
		media:     media,
		newSource: newSource,
		cfg:       cfg,
		log:       log,
	}
}

// Run registers the command menu and long-polls for updates until the
// context is canceled. Each update is handled in its own goroutine: a
// scrape plus rewrite is one blocking unit of work and must not stall the
// poll loop.
func (s *Service) Run(ctx context.Context) error {
	if err := s.api.SetMyCommands(ctx, []telegram.BotCommand{
		{Command: "start", Description: "How it works"},
		{Command: "help", Description: "Help"},
	}); err != nil {
		s.log.Warn().Err(err).Msg("failed to register bot commands")
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	offset := 0
	for {
		updates, err := s.api.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Msg("getUpdates failed, retrying")
			select {
			case <-time.After(pollRetryDelay):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			if upd.Message == nil {
				continue
			}
			if upd.Message.Text == "" && upd.Message.ForwardFromChat == nil {
				continue
			}

			wg.Add(1)
			go func(msg telegram.Message) {
				defer wg.Done()
				s.HandleMessage(ctx, msg)
			}(*upd.Message)
		}
	}
}

// HandleMessage routes one message: forwarded posts, commands, direct post
// links and channel references.
func (s *Service) HandleMessage(ctx context.Context, msg telegram.Message) {
	if msg.ForwardFromChat != nil {
		s.handleForwardedPost(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	switch {
	case text == "/start":
		s.send(ctx, chatID, startText, false)
		return
	case text == "/help":
		s.send(ctx, chatID, s.helpReply(), false)
		return
	case strings.HasPrefix(text, "/"):
		s.send(ctx, chatID, "❌ Unknown command, see /help", false)
		return
	}

	input, ok := normalizeInput(text)
	if !ok {
		s.send(ctx, chatID, invalidInputText, false)
		return
	}

	if slug, postID, ok := scrape.ParsePostLink(input); ok {
		s.handleDirectPost(ctx, chatID, slug, postID)
		return
	}
	s.handleChannelScan(ctx, chatID, input)
}

// helpReply appends the configured model catalogue to the static help text.
func (s *Service) helpReply() string {
	if len(s.cfg.LLMModels) == 0 {
		return helpText
	}
	var b strings.Builder
	b.WriteString(helpText)
	b.WriteString("\n\n🤖 Available models:")
	for _, m := range s.cfg.LLMModels {
		b.WriteString("\n• " + m)
		if m == s.cfg.LLMModel {
			b.WriteString(" (default)")
		}
	}
	return b.String()
}

// normalizeInput decides whether the text plausibly references a channel.
// Bare words longer than three characters are treated as channel names.
func normalizeInput(text string) (string, bool) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "t.me") || strings.Contains(lower, "@") || strings.Contains(lower, "http") {
		return text, true
	}
	if !strings.Contains(text, "/") && len([]rune(text)) > 3 {
		return "@" + text, true
	}
	return "", false
}

// handleChannelScan scrapes the channel and replies with a post summary.
func (s *Service) handleChannelScan(ctx context.Context, chatID int64, channel string) {
	jobID := uuid.New()
	log := s.log.With().Str("job_id", jobID.String()).Str("channel", channel).Logger()
	log.Info().Msg("channel scan started")

	posts, err := s.newSource().FetchPosts(ctx, channel, s.cfg.PagesPerRequest)
	if err != nil {
		log.Error().Err(err).Msg("channel scan failed")
		s.send(ctx, chatID, scanFailureText(err), false)
		return
	}

	log.Info().Int("posts", len(posts)).Msg("channel scan finished")
	s.send(ctx, chatID, format.Summary(posts), true)
}

// handleDirectPost fetches one post, rewrites it and delivers the result.
func (s *Service) handleDirectPost(ctx context.Context, chatID int64, slug string, postID int) {
	jobID := uuid.New()
	log := s.log.With().Str("job_id", jobID.String()).Str("channel", slug).Int("post_id", postID).Logger()
	log.Info().Msg("direct post rewrite started")

	post, err := s.newSource().FetchSinglePost(ctx, slug, postID)
	if err != nil {
		log.Error().Err(err).Msg("direct post fetch failed")
		s.send(ctx, chatID, scanFailureText(err), false)
		return
	}

	s.deliverRewritten(ctx, chatID, post)
	log.Info().Msg("direct post rewrite finished")
}

// handleForwardedPost rewrites a post forwarded into the chat. Text and
// media come straight from the message, which works even for private
// channels the preview pages cannot show.
func (s *Service) handleForwardedPost(ctx context.Context, msg telegram.Message) {
	chatID := msg.Chat.ID

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if len([]rune(strings.TrimSpace(text))) < minForwardLen {
		s.send(ctx, chatID, "❌ The post is too short to rewrite", false)
		return
	}

	jobID := uuid.New()
	log := s.log.With().Str("job_id", jobID.String()).Str("from_chat", msg.ForwardFromChat.Title).Logger()
	log.Info().Msg("forwarded post rewrite started")

	rewritten := s.rewriter.Rewrite(ctx, scrape.Post{Text: text, IsForwarded: true}, "", "")
	s.deliverForwarded(ctx, chatID, msg, rewritten)
	log.Info().Msg("forwarded post rewrite finished")
}

// deliverForwarded re-sends the message's own media by file_id, no
// download round-trip needed. Any send failure degrades to text-only
// delivery.
func (s *Service) deliverForwarded(ctx context.Context, chatID int64, msg telegram.Message, text string) {
	if msg.Video != nil {
		caption, rest := textsplit.SplitOnce(text, config.MaxCaptionLength)
		if err := s.api.SendVideoByID(ctx, chatID, msg.Video.FileID, caption); err != nil {
			s.log.Warn().Err(err).Msg("video re-send by file_id failed, sending text only")
		} else {
			s.sendParts(ctx, chatID, rest)
			return
		}
	}

	if len(msg.Photo) > 0 {
		// the largest rendition is listed last
		fileID := msg.Photo[len(msg.Photo)-1].FileID
		caption, rest := textsplit.SplitOnce(text, config.MaxCaptionLength)
		if err := s.api.SendPhotoByID(ctx, chatID, fileID, caption); err != nil {
			s.log.Warn().Err(err).Msg("photo re-send by file_id failed, sending text only")
		} else {
			s.sendParts(ctx, chatID, rest)
			return
		}
	}

	s.sendParts(ctx, chatID, text)
}

// deliverRewritten rewrites the post and sends it back, re-attaching media
// when possible. With media attached the text is split against the caption
// ceiling first and the remainder goes out as plain messages; any media
// failure degrades to a text-only delivery.
func (s *Service) deliverRewritten(ctx context.Context, chatID int64, post scrape.Post) {
	text := s.rewriter.Rewrite(ctx, post, "", "")

	if post.VideoURL != "" {
		if data, err := s.media.Video(ctx, post.VideoURL); err != nil {
			s.log.Warn().Err(err).Str("url", post.VideoURL).Msg("video download failed, sending text only")
		} else {
			caption, rest := textsplit.SplitOnce(text, config.MaxCaptionLength)
			if err := s.api.SendVideo(ctx, chatID, data, caption); err != nil {
				s.log.Warn().Err(err).Msg("video send failed, sending text only")
			} else {
				s.sendParts(ctx, chatID, rest)
				return
			}
		}
	}

	if post.PhotoURL != "" {
		if data, err := s.media.Photo(ctx, post.PhotoURL); err != nil {
			s.log.Warn().Err(err).Str("url", post.PhotoURL).Msg("photo download failed, sending text only")
		} else {
			caption, rest := textsplit.SplitOnce(text, config.MaxCaptionLength)
			if err := s.api.SendPhoto(ctx, chatID, data, caption); err != nil {
				s.log.Warn().Err(err).Msg("photo send failed, sending text only")
			} else {
				s.sendParts(ctx, chatID, rest)
				return
			}
		}
	}

	s.sendParts(ctx, chatID, text)
}

// sendParts splits text against the message ceiling and sends every
// segment in order.
func (s *Service) sendParts(ctx context.Context, chatID int64, text string) {
	for _, part := range textsplit.SplitAll(text, config.MaxMessageLength) {
		s.send(ctx, chatID, part, false)
	}
}

func (s *Service) send(ctx context.Context, chatID int64, text string, asHTML bool) {
	if text == "" {
		return
	}
	if err := s.api.SendMessage(ctx, chatID, text, asHTML); err != nil {
		s.log.Error().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

// scanFailureText maps the scrape error taxonomy onto user-facing replies.
func scanFailureText(err error) string {
	switch {
	case errors.Is(err, scrape.ErrNotFound):
		return "❌ Channel or post not found. It may be private or deleted."
	case errors.Is(err, scrape.ErrAccessBlocked):
		return "❌ t.me blocked the request. Try again later or via a proxy."
	case errors.Is(err, scrape.ErrUpstreamErrorPage):
		return "❌ The channel is unavailable. It may require authorization."
	case errors.Is(err, scrape.ErrNoPosts):
		return "❌ No posts could be extracted. The channel may be empty or the page layout changed."
	default:
		return "❌ Failed to fetch the channel: " + err.Error()
	}
}
