package telegram

// Wire types for the subset of the Bot API this bot uses.

// Update is one event from getUpdates.
type Update struct {
	UpdateID int      `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an incoming or outgoing chat message. ForwardFromChat is set
// when the message was forwarded out of a channel.
type Message struct {
	MessageID       int         `json:"message_id"`
	From            *User       `json:"from"`
	Chat            Chat        `json:"chat"`
	Text            string      `json:"text"`
	Caption         string      `json:"caption"`
	ForwardFromChat *Chat       `json:"forward_from_chat"`
	Photo           []PhotoSize `json:"photo"`
	Video           *Video      `json:"video"`
}

// PhotoSize is one rendition of an attached photo; Telegram lists them
// smallest first.
type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Video is an attached video file.
type Video struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
}

// User identifies a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Chat identifies a conversation or a channel.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// BotCommand is one entry of the bot command menu.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}
