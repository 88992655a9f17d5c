package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quotebot/internal/httpx"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", httpx.New(5*time.Second), WithBaseURL(srv.URL))
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	err := c.SendMessage(context.Background(), 42, "*KOSPI* 2,455.91")
	require.NoError(t, err)
	require.Equal(t, "/bottest-token/sendMessage", gotPath)
	require.Equal(t, float64(42), gotBody["chat_id"])
	require.Equal(t, "*KOSPI* 2,455.91", gotBody["text"])
	require.Equal(t, "Markdown", gotBody["parse_mode"])
}

func TestSendPhoto(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	err := c.SendPhoto(context.Background(), 42, "https://charts.example/c?x=1", "KOSPI 1d")
	require.NoError(t, err)
	require.Equal(t, "https://charts.example/c?x=1", gotBody["photo"])
	require.Equal(t, "KOSPI 1d", gotBody["caption"])
}

func TestSendMessage_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	})

	err := c.SendMessage(context.Background(), 1, "hi")
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, 400, ae.Code)
	require.Contains(t, ae.Description, "chat not found")
}

func TestUpdateDecoding(t *testing.T) {
	raw := `{"update_id":7,"message":{"message_id":1,"chat":{"id":-100,"type":"group"},"from":{"id":9,"username":"kim","is_bot":false},"text":"/kospi"}}`
	var u Update
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	require.EqualValues(t, 7, u.UpdateID)
	require.NotNil(t, u.Message)
	require.EqualValues(t, -100, u.Message.Chat.ID)
	require.Equal(t, "/kospi", u.Message.Text)
}
