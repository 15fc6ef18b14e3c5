package counter

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardcounter/internal/dedup"
	"github.com/lox/cardcounter/internal/outcome"
	"github.com/lox/cardcounter/internal/settings"
	"github.com/lox/cardcounter/internal/tally"
)

const (
	statID    int64 = -1001111111111
	displayID int64 = -1002222222222
	adminID   int64 = 42
	userID    int64 = 7
)

const (
	pendingText = "⏰ #N1127. 7(♠♥3♣) - 2(♦5♣)"
	playerText  = "#N1127. ✅7(♠♥3♣) - 2(♦5♣)"
	bankerText  = "#N1128. 2(♠9♥) - ✅3(♦5♣2♠)"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

// sentTo returns the texts sent to chatID, in order.
func (m *mockSender) sentTo(chatID int64) []string {
	var out []string
	for _, c := range m.Calls {
		if c.Method == "Send" && c.Arguments.Get(1).(int64) == chatID {
			out = append(out, c.Arguments.String(2))
		}
	}
	return out
}

type recordingFeed struct {
	mu    sync.Mutex
	texts []string
}

func (f *recordingFeed) Publish(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
}

type failingDedup struct {
	lookupErr error
	markErr   error
}

func (f failingDedup) IsProcessed(context.Context, string, int64) (bool, error) {
	return false, f.lookupErr
}

func (f failingDedup) MarkProcessed(context.Context, string, int64) error {
	return f.markErr
}

func (failingDedup) Close() error { return nil }

type fixture struct {
	svc      *Service
	sender   *mockSender
	store    *tally.Store
	settings *settings.File
}

func newFixture(t *testing.T, dd dedup.Store, opts ...Option) *fixture {
	t.Helper()
	st, err := settings.Load(filepath.Join(t.TempDir(), "settings.json"), settings.Settings{
		StatChannel:     statID,
		DisplayChannel:  displayID,
		IntervalMinutes: settings.DefaultIntervalMinutes,
	})
	require.NoError(t, err)

	if dd == nil {
		dd = dedup.NewMemory()
	}
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	store := tally.NewStore()

	opts = append([]Option{WithAdmin(adminID)}, opts...)
	return &fixture{
		svc:      New(testLogger(), store, dd, sender, st, opts...),
		sender:   sender,
		store:    store,
		settings: st,
	}
}

func post(id int, text string) Event {
	return Event{MessageID: id, ChatID: statID, Text: text}
}

func TestFinalizedMessageCounted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.svc.HandleNew(ctx, post(1, playerText))

	snap := f.store.Snapshot()
	assert.Equal(t, 1, snap.Pair(outcome.Pair32).Count)
	assert.Equal(t, []int{1127}, snap.Pair(outcome.Pair32).Games)
	assert.Equal(t, 1, snap.Winner(outcome.Player).Count)

	sent := f.sender.sentTo(displayID)
	require.Len(t, sent, 1, "one instant summary")
	assert.Contains(t, sent[0], "Total jeux analysés : *1*")
}

func TestPendingMessageCountedOnceAfterEdit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.svc.HandleNew(ctx, post(1, pendingText))
	assert.Equal(t, 0, f.store.Snapshot().PairTotal())
	assert.Equal(t, 1, f.svc.Pending())

	f.svc.HandleEdit(ctx, post(1, playerText))
	assert.Equal(t, 1, f.store.Snapshot().PairTotal())
	assert.Equal(t, 0, f.svc.Pending())

	// Later edits of the same message and re-posts of the same text are
	// not counted again.
	f.svc.HandleEdit(ctx, post(1, playerText))
	f.svc.HandleNew(ctx, post(2, playerText))
	assert.Equal(t, 1, f.store.Snapshot().PairTotal())
	assert.Len(t, f.sender.sentTo(displayID), 1)
}

func TestPendingMessageDroppedWithoutFinalMarker(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.svc.HandleNew(ctx, post(1, pendingText))
	f.svc.HandleEdit(ctx, post(1, "#N1127. 7(♠♥3♣) - 2(♦5♣)"))
	f.svc.HandleEdit(ctx, post(1, playerText))

	assert.Equal(t, 0, f.store.Snapshot().PairTotal())
	assert.Equal(t, 0, f.svc.Pending())
	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestOtherChannelsIgnored(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ev := post(1, playerText)
	ev.ChatID = displayID
	f.svc.HandleNew(ctx, ev)
	f.svc.HandleEdit(ctx, ev)

	assert.Equal(t, 0, f.store.Snapshot().PairTotal())
	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestDedupLookupFailureSkipsMessage(t *testing.T) {
	f := newFixture(t, failingDedup{lookupErr: errors.New("db down")})

	f.svc.HandleNew(context.Background(), post(1, playerText))

	assert.Equal(t, 0, f.store.Snapshot().PairTotal())
	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestCollaboratorFailuresKeepCount(t *testing.T) {
	st, err := settings.Load("", settings.Settings{StatChannel: statID, DisplayChannel: displayID})
	require.NoError(t, err)
	sender := &mockSender{}
	sender.On("Send", mock.Anything, displayID, mock.Anything).Return(errors.New("flood wait"))
	store := tally.NewStore()
	svc := New(testLogger(), store, failingDedup{markErr: errors.New("disk full")}, sender, st)
	ctx := context.Background()

	svc.HandleNew(ctx, post(1, playerText))
	svc.HandleNew(ctx, post(2, bankerText))

	snap := store.Snapshot()
	assert.Equal(t, 2, snap.PairTotal())
	assert.Equal(t, 1, snap.Winner(outcome.Player).Count)
	assert.Equal(t, 1, snap.Winner(outcome.Banker).Count)
	sender.AssertNumberOfCalls(t, "Send", 2)
}

func TestInstantSummaryDisabled(t *testing.T) {
	f := newFixture(t, nil, WithInstantSummary(false))

	f.svc.HandleNew(context.Background(), post(1, playerText))

	assert.Equal(t, 1, f.store.Snapshot().PairTotal())
	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportAndSend(t *testing.T) {
	feed := &recordingFeed{}
	f := newFixture(t, nil, WithInstantSummary(false), WithFeed(feed))
	ctx := context.Background()

	f.svc.HandleNew(ctx, post(1, playerText))
	f.svc.HandleNew(ctx, post(2, bankerText))
	require.NoError(t, f.svc.ReportAndSend(ctx))

	sent := f.sender.sentTo(displayID)
	require.Len(t, sent, 6, "instant, general and one message per pairing")
	assert.Contains(t, sent[0], "Total jeux analysés : *2*")
	assert.Contains(t, strings.Join(sent, "\n"), "#N1128")
	assert.Equal(t, sent, feed.texts)

	assert.Equal(t, 0, f.store.Snapshot().PairTotal(), "epoch reset")
}

func TestReportAndSendWithoutDisplayChannel(t *testing.T) {
	f := newFixture(t, nil, WithInstantSummary(false))
	ctx := context.Background()
	_, err := f.settings.Update(func(s *settings.Settings) { s.DisplayChannel = 0 })
	require.NoError(t, err)

	f.svc.HandleNew(ctx, post(1, playerText))
	require.NoError(t, f.svc.ReportAndSend(ctx))

	assert.Equal(t, 1, f.store.Snapshot().PairTotal(), "nothing reset")
	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportAndSendError(t *testing.T) {
	st, err := settings.Load("", settings.Settings{StatChannel: statID, DisplayChannel: displayID})
	require.NoError(t, err)
	sender := &mockSender{}
	sender.On("Send", mock.Anything, displayID, mock.Anything).Return(errors.New("forbidden"))
	svc := New(testLogger(), tally.NewStore(), dedup.NewMemory(), sender, st, WithInstantSummary(false))

	err = svc.ReportAndSend(context.Background())
	assert.ErrorContains(t, err, "failed to send report")
	sender.AssertNumberOfCalls(t, "Send", 3)
}

func TestConcurrentEvents(t *testing.T) {
	f := newFixture(t, nil, WithInstantSummary(false))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Distinct game numbers keep the texts distinct for dedup.
			text := strings.Replace(playerText, "1127", strconv.Itoa(2000+i), 1)
			f.svc.HandleNew(ctx, post(i+1, text))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, f.store.Snapshot().PairTotal())
}
