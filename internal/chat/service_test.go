package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suPer8Hu/tg-gpt-bridge/internal/ai"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/db"
	"github.com/suPer8Hu/tg-gpt-bridge/internal/history"
)

type recordingCompleter struct {
	result ai.Result
	last   []ai.Message
}

func (c *recordingCompleter) Complete(ctx context.Context, messages []ai.Message) ai.Result {
	c.last = append([]ai.Message(nil), messages...)
	return c.result
}

type sent struct {
	chatID int64
	text   string
}

type recordingReplier struct {
	mu        sync.Mutex
	sent      []sent
	typing    int
	typingErr error
	panicky   bool
	sendErr   error
}

func (r *recordingReplier) SendText(ctx context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{chatID: chatID, text: text})
	return r.sendErr
}

func (r *recordingReplier) SendTyping(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	r.typing++
	r.mu.Unlock()
	if r.panicky {
		panic("typing exploded")
	}
	return r.typingErr
}

func openTestStore(t *testing.T) history.Store {
	t.Helper()
	log := zap.NewNop().Sugar()
	pool := db.NewPool(db.Options{
		Driver: "sqlite",
		DSN:    "file:" + t.Name() + "?mode=memory&cache=shared",
	}, log)
	require.NoError(t, pool.Init(context.Background()))
	t.Cleanup(func() { _ = pool.Close() })

	store := history.NewSQLStore(pool, log)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func newTestService(t *testing.T, result ai.Result) (*Service, history.Store, *recordingCompleter, *recordingReplier) {
	t.Helper()
	store := openTestStore(t)
	comp := &recordingCompleter{result: result}
	rep := &recordingReplier{}
	return NewService(store, comp, rep, zap.NewNop().Sugar()), store, comp, rep
}

func TestHandleText_FirstMessageSucceeds(t *testing.T) {
	svc, store, comp, rep := newTestService(t, ai.Success("hi there"))
	ctx := context.Background()

	require.NoError(t, svc.HandleText(ctx, 42, "hello"))

	got := store.Get(ctx, 42)
	require.NoError(t, got.Err)
	assert.Equal(t, []history.Message{
		history.UserMessage("hello"),
		history.AssistantMessage("hi there"),
	}, got.Messages)

	assert.Equal(t, []ai.Message{{Role: "user", Content: "hello"}}, comp.last)
	assert.Equal(t, []sent{{chatID: 42, text: "hi there"}}, rep.sent)
	assert.Equal(t, 1, rep.typing)
}

func TestHandleText_AppendsToExistingHistory(t *testing.T) {
	svc, store, comp, rep := newTestService(t, ai.Success("d"))
	ctx := context.Background()

	prior := []history.Message{history.UserMessage("a"), history.AssistantMessage("b")}
	require.NoError(t, store.Save(ctx, 42, prior))

	require.NoError(t, svc.HandleText(ctx, 42, "c"))

	assert.Equal(t, []ai.Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "user", Content: "c"},
	}, comp.last)

	want := append(append([]history.Message(nil), prior...), history.UserMessage("c"), history.AssistantMessage("d"))
	assert.Equal(t, want, store.Get(ctx, 42).Messages)
	assert.Equal(t, "d", rep.sent[0].text)
}

func TestHandleText_FailureLeavesHistoryUnchanged(t *testing.T) {
	svc, store, comp, rep := newTestService(t, ai.Failure(errors.New("provider down")))
	ctx := context.Background()

	prior := []history.Message{history.UserMessage("a"), history.AssistantMessage("b")}
	require.NoError(t, store.Save(ctx, 42, prior))

	require.NoError(t, svc.HandleText(ctx, 42, "fail me"))

	// the provider still saw the new message
	require.Len(t, comp.last, 3)
	assert.Equal(t, "fail me", comp.last[2].Content)

	assert.Equal(t, prior, store.Get(ctx, 42).Messages)
	require.Len(t, rep.sent, 1)
	assert.True(t, strings.Contains(rep.sent[0].text, ai.ErrorMarker))
	assert.Contains(t, rep.sent[0].text, "provider down")
}

func TestHandleText_FailureOnFreshConversationWritesNothing(t *testing.T) {
	svc, store, _, rep := newTestService(t, ai.Failure(errors.New("timeout")))
	ctx := context.Background()

	require.NoError(t, svc.HandleText(ctx, 7, "hello"))

	got := store.Get(ctx, 7)
	require.NoError(t, got.Err)
	assert.Empty(t, got.Messages)
	assert.Len(t, rep.sent, 1)
}

func TestHandleText_TypingProblemsDoNotAbort(t *testing.T) {
	svc, store, _, rep := newTestService(t, ai.Success("ok"))
	ctx := context.Background()

	rep.typingErr = errors.New("chat action rejected")
	require.NoError(t, svc.HandleText(ctx, 1, "one"))

	rep.typingErr = nil
	rep.panicky = true
	require.NoError(t, svc.HandleText(ctx, 1, "two"))

	assert.Len(t, store.Get(ctx, 1).Messages, 4)
	assert.Len(t, rep.sent, 2)
}

func TestHandleText_SendErrorIsReturned(t *testing.T) {
	svc, store, _, rep := newTestService(t, ai.Success("ok"))
	rep.sendErr = errors.New("blocked by user")

	err := svc.HandleText(context.Background(), 3, "hello")
	require.EqualError(t, err, "blocked by user")

	// history is persisted before delivery
	assert.Len(t, store.Get(context.Background(), 3).Messages, 2)
}

func TestHandleText_UnavailableStoreStillReplies(t *testing.T) {
	log := zap.NewNop().Sugar()
	pool := db.NewPool(db.Options{Driver: "sqlite"}, log) // never initialised
	comp := &recordingCompleter{result: ai.Success("fresh start")}
	rep := &recordingReplier{}
	svc := NewService(history.NewSQLStore(pool, log), comp, rep, log)

	require.NoError(t, svc.HandleText(context.Background(), 5, "hello"))
	assert.Equal(t, []ai.Message{{Role: "user", Content: "hello"}}, comp.last)
	assert.Equal(t, []sent{{chatID: 5, text: "fresh start"}}, rep.sent)
}

func TestReset_DeletesHistory(t *testing.T) {
	svc, store, _, rep := newTestService(t, ai.Success("unused"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 42, []history.Message{history.UserMessage("a"), history.AssistantMessage("b")}))
	require.NoError(t, svc.Reset(ctx, 42))

	assert.Empty(t, store.Get(ctx, 42).Messages)
	assert.Equal(t, []sent{{chatID: 42, text: ResetText}}, rep.sent)

	// resetting an empty conversation still confirms
	require.NoError(t, svc.Reset(ctx, 42))
	assert.Equal(t, ResetText, rep.sent[1].text)
}

type failingStore struct {
	history.Store
}

func (failingStore) Delete(ctx context.Context, chatID int64) error {
	return errors.New("db gone")
}

func TestReset_DeleteFailure(t *testing.T) {
	rep := &recordingReplier{}
	svc := NewService(failingStore{}, &recordingCompleter{}, rep, zap.NewNop().Sugar())

	require.NoError(t, svc.Reset(context.Background(), 42))
	assert.Equal(t, []sent{{chatID: 42, text: ResetFailedText}}, rep.sent)
}

func TestStart_SendsGreeting(t *testing.T) {
	svc, _, _, rep := newTestService(t, ai.Success("unused"))
	require.NoError(t, svc.Start(context.Background(), 9))
	assert.Equal(t, []sent{{chatID: 9, text: GreetingText}}, rep.sent)
}
