package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	Method string
	Form   map[string]string
}

// fakeAPI is a minimal Bot API server recording every call.
type fakeAPI struct {
	mu     sync.Mutex
	calls  []apiCall
	nextID int
	member string
	fail   map[string]bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	form := map[string]string{}
	if err := r.ParseMultipartForm(32 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		for k, fh := range r.MultipartForm.File {
			form[k] = "file:" + fh[0].Filename
		}
	} else if err := r.ParseForm(); err == nil {
		for k, v := range r.Form {
			form[k] = v[0]
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Form: form})
	f.nextID++
	id := f.nextID
	fail := f.fail[method]
	member := f.member
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: failed to get HTTP URL content"}`))
		return
	}

	chatID, _ := strconv.ParseInt(form["chat_id"], 10, 64)
	var result any
	switch method {
	case "getMe":
		result = map[string]any{"id": 1, "is_bot": true, "first_name": "reelgrab", "username": "reelgrab_bot"}
	case "sendMessage", "sendVideo", "editMessageReplyMarkup":
		result = map[string]any{"message_id": 100 + id, "date": 0, "chat": map[string]any{"id": chatID, "type": "private"}}
	case "getChatMember":
		userID, _ := strconv.ParseInt(form["user_id"], 10, 64)
		result = map[string]any{"status": member, "user": map[string]any{"id": userID, "is_bot": false, "first_name": "u"}}
	default:
		result = true
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (f *fakeAPI) failOn(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = true
}

func (f *fakeAPI) setMember(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.member = status
}

func (f *fakeAPI) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func newFakeBot(t *testing.T) (*fakeAPI, *bot.Bot) {
	t.Helper()
	api := &fakeAPI{member: "member", fail: map[string]bool{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	b, err := bot.New("123456:TEST", bot.WithServerURL(srv.URL))
	require.NoError(t, err)
	return api, b
}
