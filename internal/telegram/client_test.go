package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient("TOKEN", zerolog.Nop(), WithBaseURL(ts.URL))
}

func TestGetUpdates(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "42", r.Form.Get("offset"))

		fmt.Fprint(w, `{"ok":true,"result":[
			{"update_id":43,"message":{"message_id":1,"chat":{"id":100,"type":"private"},"text":"hello"}}
		]}`)
	})

	updates, err := c.GetUpdates(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, 43, updates[0].UpdateID)
	assert.Equal(t, int64(100), updates[0].Message.Chat.ID)
	assert.Equal(t, "hello", updates[0].Message.Text)
}

func TestSendMessage_HTMLMode(t *testing.T) {
	var gotParseMode, gotText string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotParseMode = r.Form.Get("parse_mode")
		gotText = r.Form.Get("text")
		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	})

	require.NoError(t, c.SendMessage(context.Background(), 100, "<b>hi</b>", true))
	assert.Equal(t, "HTML", gotParseMode)
	assert.Equal(t, "<b>hi</b>", gotText)

	require.NoError(t, c.SendMessage(context.Background(), 100, "plain", false))
	assert.Equal(t, "", gotParseMode)
}

func TestSendPhoto_MultipartUpload(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/botTOKEN/sendPhoto", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "100", r.FormValue("chat_id"))
		assert.Equal(t, "caption here", r.FormValue("caption"))

		file, header, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "photo.jpg", header.Filename)

		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	})

	err := c.SendPhoto(context.Background(), 100, []byte("jpeg"), "caption here")
	require.NoError(t, err)
}

func TestSendVideoByID_FormEncoded(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/botTOKEN/sendVideo", r.URL.Path)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "100", r.Form.Get("chat_id"))
		assert.Equal(t, "BAACAgIAAxkB", r.Form.Get("video"))
		assert.Equal(t, "cap", r.Form.Get("caption"))

		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	})

	err := c.SendVideoByID(context.Background(), 100, "BAACAgIAAxkB", "cap")
	require.NoError(t, err)
}

func TestAPIErrorSurfaces(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	})

	err := c.SendMessage(context.Background(), 100, "hi", false)
	assert.ErrorContains(t, err, "chat not found")
}
