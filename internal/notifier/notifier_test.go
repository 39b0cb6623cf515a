package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramMissingCredentialsSkipsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	tn := NewTelegramNotifier(srv.URL, "", "42")
	assert.False(t, tn.SendText(context.Background(), "hello"))
	assert.False(t, tn.SendPhoto(context.Background(), "nope.png", "caption"))

	tn = NewTelegramNotifier(srv.URL, "token", "")
	assert.False(t, tn.SendText(context.Background(), "hello"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestTelegramSendText(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	tn := NewTelegramNotifier(srv.URL, "TOKEN", "42")
	assert.True(t, tn.SendText(context.Background(), "🚨 signal"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "🚨 signal", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestTelegramReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	tn := NewTelegramNotifier(srv.URL, "TOKEN", "42")
	assert.False(t, tn.SendText(context.Background(), "hello"))

	srv.Close()
	assert.False(t, tn.SendText(context.Background(), "hello"))
}

func TestTelegramSendPhoto(t *testing.T) {
	var caption, chatID string
	var photo []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendPhoto", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		caption = r.FormValue("caption")
		chatID = r.FormValue("chat_id")
		f, _, err := r.FormFile("photo")
		require.NoError(t, err)
		photo, _ = io.ReadAll(f)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(file, []byte("png-bytes"), 0o644))

	tn := NewTelegramNotifier(srv.URL, "TOKEN", "42")
	assert.True(t, tn.SendPhoto(context.Background(), file, "Periodic UI Screenshot"))
	assert.Equal(t, "Periodic UI Screenshot", caption)
	assert.Equal(t, "42", chatID)
	assert.Equal(t, []byte("png-bytes"), photo)

	assert.False(t, tn.SendPhoto(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "x"))
}

func TestDingTalkSignedURL(t *testing.T) {
	var query url.Values
	var msg DingTalkMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		_, _ = w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	dtn := NewDingTalkNotifier(srv.URL+"/robot/send?access_token=abc", "SEC")
	dtn.now = func() time.Time { return time.UnixMilli(1700000000000) }

	assert.True(t, dtn.SendText(context.Background(), "title\nline"))
	assert.Equal(t, "abc", query.Get("access_token"))
	assert.Equal(t, "1700000000000", query.Get("timestamp"))
	assert.NotEmpty(t, query.Get("sign"))
	assert.Equal(t, "title", msg.Markdown.Title)
	assert.Equal(t, "title  \nline", msg.Markdown.Text)
}

func TestPushPlusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":900,"msg":"token invalid"}`))
	}))
	defer srv.Close()

	ppn := NewPushPlusNotifier("tok", "")
	ppn.endpoint = srv.URL
	assert.False(t, ppn.SendText(context.Background(), "hello"))
	assert.False(t, NewPushPlusNotifier("", "").SendText(context.Background(), "hello"))
}

type stubNotifier struct {
	ok    bool
	texts []string
}

func (s *stubNotifier) SendText(_ context.Context, m string) bool {
	s.texts = append(s.texts, m)
	return s.ok
}

func (s *stubNotifier) SendPhoto(context.Context, string, string) bool { return s.ok }

func TestMultiSucceedsIfAnyChannelDoes(t *testing.T) {
	bad, good := &stubNotifier{}, &stubNotifier{ok: true}
	m := NewMulti(bad, good)
	assert.True(t, m.SendText(context.Background(), "x"))
	assert.Equal(t, []string{"x"}, bad.texts)
	assert.Equal(t, []string{"x"}, good.texts)

	assert.False(t, NewMulti(bad).SendText(context.Background(), "y"))
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	cn := &ConsoleNotifier{out: &buf}
	assert.True(t, cn.SendText(context.Background(), "line one\nline two"))
	assert.Contains(t, buf.String(), "line one")
	assert.Contains(t, buf.String(), "line two")
}
