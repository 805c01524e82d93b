package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botServer struct {
	mu    sync.Mutex
	sends  []map[string]string
	fail   bool
	getMes int
}

func (b *botServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		b.mu.Lock()
		b.getMes++
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"monitor","username":"monitor_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		b.mu.Lock()
		b.sends = append(b.sends, map[string]string{
			"chat_id":    r.PostForm.Get("chat_id"),
			"text":       r.PostForm.Get("text"),
			"parse_mode": r.PostForm.Get("parse_mode"),
		})
		fail := b.fail
		b.mu.Unlock()
		if fail {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		http.NotFound(w, r)
	}
}

func newBot(t *testing.T, chat string) (*TelegramNotifier, *botServer) {
	t.Helper()
	b := &botServer{}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	n, err := NewTelegramNotifier("123:abc", chat, srv.URL+"/bot%s/%s", time.Second)
	require.NoError(t, err)
	return n, b
}

func TestTelegramNotifier_SendsEscapedHTML(t *testing.T) {
	n, b := newBot(t, "42")
	require.NoError(t, n.Notify(context.Background(), HeadlineRecord{RawText: "  M&M <up> 5% on Q2  "}))

	require.Len(t, b.sends, 1)
	assert.Equal(t, "42", b.sends[0]["chat_id"])
	assert.Equal(t, "HTML", b.sends[0]["parse_mode"])
	assert.Equal(t, "M&amp;M &lt;up&gt; 5% on Q2", b.sends[0]["text"])
}

func TestTelegramNotifier_Channel(t *testing.T) {
	n, b := newBot(t, "@live_headlines")
	require.NoError(t, n.Announce(context.Background(), "Monitor started."))
	require.Len(t, b.sends, 1)
	assert.Equal(t, "@live_headlines", b.sends[0]["chat_id"])
}

func TestTelegramNotifier_APIErrorIsReturned(t *testing.T) {
	n, b := newBot(t, "42")
	b.fail = true
	err := n.Notify(context.Background(), HeadlineRecord{RawText: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Too Many Requests")
}

func TestNewTelegramNotifier_DoesNotContactAPI(t *testing.T) {
	n, b := newBot(t, "42")
	assert.Zero(t, b.getMes)
	require.NoError(t, n.Notify(context.Background(), HeadlineRecord{RawText: "Wipro wins multi-year cloud contract in Europe"}))
	assert.Zero(t, b.getMes)
}

func TestTelegramNotifier_UnreachableAPI(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/bot%s/%s"
	srv.Close()

	n, err := NewTelegramNotifier("123:abc", "42", endpoint, time.Second)
	require.NoError(t, err, "an outage at boot must not stop the monitor")

	err = n.Notify(context.Background(), HeadlineRecord{RawText: "Wipro wins multi-year cloud contract in Europe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram send")
}

func TestNewTelegramNotifier_RequiresCredentials(t *testing.T) {
	_, err := NewTelegramNotifier("", "42", "", 0)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type errNotifier struct{ err error }

func (e errNotifier) Notify(context.Context, HeadlineRecord) error { return e.err }

func TestMultiNotifier(t *testing.T) {
	ok := &mockNotifier{}
	boom := errors.New("boom")
	m := MultiNotifier{ok, errNotifier{boom}}

	err := m.Notify(context.Background(), HeadlineRecord{RawText: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.Sent(), 1, "one failing sink does not stop the others")

	require.NoError(t, m.Announce(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, ok.announced)
}
