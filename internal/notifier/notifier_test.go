package notifier

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/appleyytsai/Dashboard/internal/model"
	"github.com/goccy/go-json"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockedNotifier(t *testing.T) *TelegramNotifier {
	t.Helper()
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.APIBase = "https://tg.test"
	httpmock.ActivateNonDefault(n.Client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return n
}

const sendURL = "https://tg.test/botTOKEN/sendMessage"

func TestSend(t *testing.T) {
	n := mockedNotifier(t)
	var got map[string]string
	httpmock.RegisterResponder("POST", sendURL,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, decodeBody(req, &got))
			return httpmock.NewStringResponse(200, `{"ok":true}`), nil
		})

	require.NoError(t, n.Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSend_TransportErrorHidesToken(t *testing.T) {
	n := mockedNotifier(t)
	httpmock.RegisterResponder("POST", sendURL, httpmock.NewErrorResponder(errors.New("connection reset")))

	err := n.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "TOKEN")
}

func TestDeliver_RejectedIsNotRetried(t *testing.T) {
	n := mockedNotifier(t)
	httpmock.RegisterResponder("POST", sendURL,
		httpmock.NewStringResponder(400, `{"ok":false,"description":"chat not found"}`))

	err := n.Deliver(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "chat not found")
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestDeliver_RetriesServerErrors(t *testing.T) {
	n := mockedNotifier(t)
	n.Backoff = time.Millisecond
	httpmock.RegisterResponder("POST", sendURL,
		httpmock.NewStringResponder(502, "bad gateway").Times(2).
			Then(httpmock.NewStringResponder(200, `{"ok":true}`)))

	require.NoError(t, n.Deliver(context.Background(), "hello"))
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}

func TestDeliver_StopsOnCancel(t *testing.T) {
	n := mockedNotifier(t)
	httpmock.RegisterResponder("POST", sendURL, httpmock.NewStringResponder(500, "boom"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, n.Deliver(ctx, "hello"), context.DeadlineExceeded)
}

func TestDeliver_SplitsLongDigests(t *testing.T) {
	n := mockedNotifier(t)
	var texts []string
	httpmock.RegisterResponder("POST", sendURL,
		func(req *http.Request) (*http.Response, error) {
			var got map[string]string
			require.NoError(t, decodeBody(req, &got))
			texts = append(texts, got["text"])
			return httpmock.NewStringResponse(200, `{"ok":true}`), nil
		})

	line := strings.Repeat("x", 99)
	digest := strings.TrimSuffix(strings.Repeat(line+"\n", 60), "\n")
	require.NoError(t, n.Deliver(context.Background(), digest))
	require.Len(t, texts, 2)
	for _, txt := range texts {
		assert.LessOrEqual(t, len(txt), maxMessageLen)
	}
	assert.Equal(t, digest, texts[0]+"\n"+texts[1])
}

func TestSplitMessage_KeepsRunesWhole(t *testing.T) {
	parts := splitMessage(strings.Repeat("📈", 5), 6)
	assert.Equal(t, []string{"📈", "📈", "📈", "📈", "📈"}, parts)
	assert.Empty(t, splitMessage("", 10))
}

func TestEnabled(t *testing.T) {
	assert.False(t, (*TelegramNotifier)(nil).Enabled())
	assert.False(t, NewTelegramNotifier("", "42", "").Enabled())
	assert.True(t, NewTelegramNotifier("t", "42", "").Enabled())
}

func TestGetUpdatesAndDispatch(t *testing.T) {
	n := mockedNotifier(t)
	httpmock.RegisterResponder("GET", "https://tg.test/botTOKEN/getUpdates",
		httpmock.NewStringResponder(200, `{"ok":true,"result":[
			{"update_id":7,"message":{"text":"/ratios@dash_bot","chat":{"id":42}}},
			{"update_id":8,"message":{"text":"/ratios","chat":{"id":99}}},
			{"update_id":9}
		]}`))
	var replies []string
	httpmock.RegisterResponder("POST", sendURL,
		func(req *http.Request) (*http.Response, error) {
			var got map[string]string
			require.NoError(t, decodeBody(req, &got))
			replies = append(replies, got["text"])
			return httpmock.NewStringResponse(200, `{"ok":true}`), nil
		})

	updates, err := n.getUpdates(context.Background(), n.Client, 0)
	require.NoError(t, err)
	require.Len(t, updates, 3)

	var seen []string
	next := n.dispatch(context.Background(), updates, func(cmd string) string {
		seen = append(seen, cmd)
		return "table"
	}, 0)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/ratios"}, seen, "other chats are ignored")
	assert.Equal(t, []string{"table"}, replies)
}

func TestGetUpdates_NotOK(t *testing.T) {
	n := mockedNotifier(t)
	httpmock.RegisterResponder("GET", "https://tg.test/botTOKEN/getUpdates",
		httpmock.NewStringResponder(401, `{"ok":false,"description":"Unauthorized"}`))

	_, err := n.getUpdates(context.Background(), n.Client, 0)
	assert.ErrorContains(t, err, "Unauthorized")
}

func TestNormalizeCommand(t *testing.T) {
	assert.Equal(t, "/volume", normalizeCommand("  /Volume@dash_bot please "))
	assert.Equal(t, "", normalizeCommand("   "))
}

func snapshot() *model.Snapshot {
	return &model.Snapshot{
		RefreshedAt: time.Date(2025, 2, 3, 6, 0, 0, 0, time.UTC),
		Ratios: []model.RatioRecord{
			{Ticker: "AAPL", Ratio: model.Some(25.5), Label: model.LabelHigh,
				Window: model.WindowStats{Size: 4, Median: 22, High: 25.5, Low: 18, Available: true}},
			{Ticker: "TSLA", Ratio: model.None(), Label: model.LabelNA},
		},
		Skipped: []model.SkippedTicker{{Ticker: "META", Reason: "timeout"}},
		Volume: &model.VolumeReport{
			Symbol: "9988.HK",
			Period: "3mo",
			Summary: model.VolumeSummary{
				Latest: 1_240_000, Average: 1_100_000, Previous: 1_260_000,
				Change: -20_000, ChangePct: -1.59, HasPrevious: true, Trend: model.TrendDown,
			},
		},
	}
}

func TestFormatRatioReport(t *testing.T) {
	msg := FormatRatioReport(snapshot())
	assert.Contains(t, msg, "2025-02-03")
	assert.Contains(t, msg, "<b>AAPL</b> 25.50 (High)")
	assert.Contains(t, msg, "median 22.00 | high 25.50 | low 18.00")
	assert.Contains(t, msg, "<b>TSLA</b> N/A (N/A)")
	assert.Contains(t, msg, "unavailable: META")
}

func TestFormatVolumeReport(t *testing.T) {
	msg := FormatVolumeReport(snapshot())
	assert.Contains(t, msg, "9988.HK")
	assert.Contains(t, msg, "Latest Trading Volume: 1,240,000 shares")
	assert.Contains(t, msg, "(-1.59%)")

	failed := &model.Snapshot{VolumeErr: "track 9988.HK: volume column not found"}
	assert.Contains(t, FormatVolumeReport(failed), "volume column not found")
}

func decodeBody(req *http.Request, v interface{}) error {
	defer req.Body.Close()
	return json.NewDecoder(req.Body).Decode(v)
}
