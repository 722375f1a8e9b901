// Package telegram is a minimal Bot API client: long-poll updates plus the
// few send methods this bot needs. A full bot framework would be overkill
// for one text-message flow.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.telegram.org"

	// pollTimeoutSec is the long-poll window requested from getUpdates.
	pollTimeoutSec = 30
)

// Client talks to the Bot API for one bot token.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     zerolog.Logger
}

// Option adjusts a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// NewClient creates a Bot API client. The HTTP timeout leaves headroom
// above the long-poll window.
func NewClient(token string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpc:   &http.Client{Timeout: (pollTimeoutSec + 10) * time.Second},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// call POSTs one API method with form values and decodes the result into
// out when non-nil.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(params.Encode()))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	return decodeAPIResponse(method, resp.Body, out)
}

func decodeAPIResponse(method string, r io.Reader, out any) error {
	var env apiResponse
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if !env.OK {
		return fmt.Errorf("%s: api error: %s", method, env.Description)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// GetMe verifies the token and returns the bot account.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var me User
	err := c.call(ctx, "getMe", url.Values{}, &me)
	return me, err
}

// GetUpdates long-polls for updates after the given offset.
func (c *Client) GetUpdates(ctx context.Context, offset int) ([]Update, error) {
	params := url.Values{
		"offset":  {strconv.Itoa(offset)},
		"timeout": {strconv.Itoa(pollTimeoutSec)},
	}
	var updates []Update
	err := c.call(ctx, "getUpdates", params, &updates)
	return updates, err
}

// SetMyCommands registers the bot command menu.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	encoded, err := json.Marshal(commands)
	if err != nil {
		return fmt.Errorf("setMyCommands: %w", err)
	}
	return c.call(ctx, "setMyCommands", url.Values{"commands": {string(encoded)}}, nil)
}

// SendMessage sends a plain or HTML-formatted text message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, asHTML bool) error {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}
	if asHTML {
		params.Set("parse_mode", "HTML")
	}
	return c.call(ctx, "sendMessage", params, nil)
}

// SendPhotoByID re-sends a photo Telegram already hosts, referenced by its
// file_id. No upload happens.
func (c *Client) SendPhotoByID(ctx context.Context, chatID int64, fileID, caption string) error {
	return c.sendByID(ctx, "sendPhoto", "photo", chatID, fileID, caption)
}

// SendVideoByID re-sends a video by its file_id.
func (c *Client) SendVideoByID(ctx context.Context, chatID int64, fileID, caption string) error {
	return c.sendByID(ctx, "sendVideo", "video", chatID, fileID, caption)
}

func (c *Client) sendByID(ctx context.Context, method, field string, chatID int64, fileID, caption string) error {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		field:     {fileID},
	}
	if caption != "" {
		params.Set("caption", caption)
	}
	return c.call(ctx, method, params, nil)
}

// SendPhoto uploads photo bytes with a caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error {
	return c.sendFile(ctx, "sendPhoto", "photo", "photo.jpg", chatID, photo, caption)
}

// SendVideo uploads video bytes with a caption.
func (c *Client) SendVideo(ctx context.Context, chatID int64, video []byte, caption string) error {
	return c.sendFile(ctx, "sendVideo", "video", "video.mp4", chatID, video, caption)
}

// sendFile POSTs one media upload as multipart form data.
func (c *Client) sendFile(ctx context.Context, method, field, filename string, chatID int64, data []byte, caption string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
	}
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	c.log.Debug().Str("method", method).Int("bytes", len(data)).Msg("media upload sent")
	return decodeAPIResponse(method, resp.Body, nil)
}
