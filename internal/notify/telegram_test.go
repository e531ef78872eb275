package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduaudit/internal/config"
	apperrors "eduaudit/internal/errors"
	"eduaudit/pkg/contracts/domain"
)

type botCall struct {
	method string
	chatID string
	text   string
	file   string
}

// fakeBotAPI answers the Bot API methods the notifier uses.
type fakeBotAPI struct {
	mu    sync.Mutex
	calls []botCall
	fail  string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	w.Header().Set("Content-Type", "application/json")

	if method == "getMe" {
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Audit","username":"audit_bot"}}`)
		return
	}

	call := botCall{method: method, chatID: r.FormValue("chat_id"), text: r.FormValue("text")}
	if _, header, err := r.FormFile("document"); err == nil {
		call.file = header.Filename
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if method == f.fail {
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request"}`)
		return
	}
	fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
}

func (f *fakeBotAPI) recorded() []botCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]botCall(nil), f.calls...)
}

func newTestTelegram(t *testing.T, api *fakeBotAPI) *Telegram {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	tg, err := NewTelegramWithEndpoint(config.TelegramConfig{Token: "123:abc", ChatID: 42},
		srv.URL+"/bot%s/%s", srv.Client(), nil)
	require.NoError(t, err)
	return tg
}

func writeOutput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("xlsx"), 0o600))
	return path
}

func TestNewTelegram_RequiresConfig(t *testing.T) {
	_, err := NewTelegram(config.TelegramConfig{Token: "123:abc"}, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestTelegram_NotifyCompleted(t *testing.T) {
	api := &fakeBotAPI{}
	tg := newTestTelegram(t, api)
	first := writeOutput(t, "check-7A.xlsx")
	second := writeOutput(t, "check-8B.xlsx")

	tg.Notify(context.Background(), domain.RunSnapshot{
		RunID:   "run-1",
		Kind:    domain.RunKindCheck,
		Status:  domain.RunStatusCompleted,
		Message: "Журналы успешно проверены!",
		Outputs: []string{first, second},
	})

	calls := api.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, "sendMessage", calls[0].method)
	assert.Equal(t, "42", calls[0].chatID)
	assert.Contains(t, calls[0].text, "Проверка журналов: готово.")
	assert.Contains(t, calls[0].text, "Журналы успешно проверены!")
	assert.Equal(t, "sendDocument", calls[1].method)
	assert.Equal(t, "check-7A.xlsx", calls[1].file)
	assert.Equal(t, "check-8B.xlsx", calls[2].file)
}

func TestTelegram_NotifyFailed(t *testing.T) {
	api := &fakeBotAPI{}
	tg := newTestTelegram(t, api)

	tg.Notify(context.Background(), domain.RunSnapshot{
		RunID:   "run-2",
		Kind:    domain.RunKindReport,
		Status:  domain.RunStatusFailed,
		Message: apperrors.MsgAuthFailed,
		Error:   "auth: login rejected",
	})

	calls := api.recorded()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].text, "Отчёт по успеваемости: ошибка.")
	assert.Contains(t, calls[0].text, apperrors.MsgAuthFailed)
	assert.NotContains(t, calls[0].text, "login rejected")
}

func TestTelegram_NotifySkips(t *testing.T) {
	tests := []struct {
		name      string
		snapshot  domain.RunSnapshot
		fail      string
		wantCalls int
	}{
		{
			name:      "run still going",
			snapshot:  domain.RunSnapshot{Status: domain.RunStatusRunning},
			wantCalls: 0,
		},
		{
			name: "message rejected stops documents",
			snapshot: domain.RunSnapshot{
				Status:  domain.RunStatusCompleted,
				Outputs: []string{"unused.xlsx"},
			},
			fail:      "sendMessage",
			wantCalls: 1,
		},
		{
			name: "missing output file",
			snapshot: domain.RunSnapshot{
				Status:  domain.RunStatusCompleted,
				Outputs: []string{filepath.Join(os.TempDir(), "does-not-exist.xlsx")},
			},
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeBotAPI{fail: tt.fail}
			tg := newTestTelegram(t, api)
			tg.Notify(context.Background(), tt.snapshot)
			assert.Len(t, api.recorded(), tt.wantCalls)
		})
	}
}
