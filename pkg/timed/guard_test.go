package timed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/netcomm-go/pkg/wire"
)

type sentMessage struct {
	exchangeID  uint32
	msgType     wire.MessageType
	payload     []byte
	expectReply bool
}

// fakeExchanger records sends and replays canned replies.
type fakeExchanger struct {
	mu      sync.Mutex
	sent    []sentMessage
	sendErr error
	replies chan reply
}

type reply struct {
	msgType wire.MessageType
	payload []byte
}

func newFakeExchanger() *fakeExchanger {
	return &fakeExchanger{replies: make(chan reply, 4)}
}

func (f *fakeExchanger) Send(_ context.Context, exchangeID uint32, msgType wire.MessageType, payload []byte, expectReply bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{exchangeID, msgType, payload, expectReply})
	return nil
}

func (f *fakeExchanger) Receive(ctx context.Context, _ uint32) (wire.MessageType, []byte, error) {
	select {
	case r := <-f.replies:
		return r.msgType, r.payload, nil
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (f *fakeExchanger) replyStatus(t *testing.T, s wire.Status) {
	t.Helper()
	p, err := wire.EncodeStatusResponse(s)
	require.NoError(t, err)
	f.replies <- reply{wire.MsgStatusResponse, p}
}

func TestOpenWindowSendsTimedRequest(t *testing.T) {
	ex := newFakeExchanger()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g := NewGuard(Config{Exchanger: ex, Clock: func() time.Time { return now }})

	w, err := g.OpenWindow(context.Background(), 7, 500)
	require.NoError(t, err)

	assert.Equal(t, uint32(7), w.ExchangeID)
	assert.Equal(t, now.Add(500*time.Millisecond), w.Deadline, "deadline is taken at send time")

	require.Len(t, ex.sent, 1)
	msg := ex.sent[0]
	assert.Equal(t, wire.MsgTimedRequest, msg.msgType)
	assert.True(t, msg.expectReply)
	assert.LessOrEqual(t, len(msg.payload), wire.TimedRequestBufferSize)

	req, err := wire.DecodeTimedRequest(msg.payload)
	require.NoError(t, err)
	assert.Equal(t, uint16(500), req.TimeoutMs)
	assert.True(t, g.Has(7))
}

func TestOpenWindowSendFailureDiscardsWindow(t *testing.T) {
	ex := newFakeExchanger()
	ex.sendErr = errors.New("exchange closed")
	g := NewGuard(Config{Exchanger: ex})

	_, err := g.OpenWindow(context.Background(), 1, 100)
	require.Error(t, err)
	assert.False(t, g.Has(1))
}

func TestOpenWindowWithoutExchanger(t *testing.T) {
	g := NewGuard(Config{})
	_, err := g.OpenWindow(context.Background(), 1, 100)
	assert.ErrorIs(t, err, ErrNoExchanger)
	assert.ErrorIs(t, g.AwaitAck(context.Background(), 1), ErrNoExchanger)
}

func TestAwaitAck(t *testing.T) {
	t.Run("success keeps window", func(t *testing.T) {
		ex := newFakeExchanger()
		g := NewGuard(Config{Exchanger: ex})
		_, err := g.OpenWindow(context.Background(), 1, 1000)
		require.NoError(t, err)

		ex.replyStatus(t, wire.StatusSuccess)
		require.NoError(t, g.AwaitAck(context.Background(), 1))
		assert.True(t, g.Has(1))
	})

	t.Run("wrong message type", func(t *testing.T) {
		ex := newFakeExchanger()
		g := NewGuard(Config{Exchanger: ex})
		_, err := g.OpenWindow(context.Background(), 1, 1000)
		require.NoError(t, err)

		ex.replies <- reply{wire.MsgInvokeResponse, nil}
		err = g.AwaitAck(context.Background(), 1)
		assert.ErrorIs(t, err, ErrInvalidMessageType)
		assert.False(t, g.Has(1))
	})

	t.Run("non-success status", func(t *testing.T) {
		ex := newFakeExchanger()
		g := NewGuard(Config{Exchanger: ex})
		_, err := g.OpenWindow(context.Background(), 1, 1000)
		require.NoError(t, err)

		ex.replyStatus(t, wire.StatusBusy)
		err = g.AwaitAck(context.Background(), 1)
		assert.ErrorIs(t, err, ErrStatusCodeReceived)
		var sce *StatusCodeError
		require.ErrorAs(t, err, &sce)
		assert.Equal(t, wire.StatusBusy, sce.Status)
		assert.False(t, g.Has(1))
	})

	t.Run("context cancelled", func(t *testing.T) {
		ex := newFakeExchanger()
		g := NewGuard(Config{Exchanger: ex})
		_, err := g.OpenWindow(context.Background(), 1, 1000)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, g.AwaitAck(ctx, 1), context.DeadlineExceeded)
		assert.False(t, g.Has(1))
	})
}

func TestCheckWindowConsumesOnce(t *testing.T) {
	g := NewGuard(Config{})
	g.Accept(3, 50, time.Now())

	require.NoError(t, g.CheckWindow(3, time.Now()))
	assert.ErrorIs(t, g.CheckWindow(3, time.Now()), ErrNoWindow)
}

func TestCheckWindowExpired(t *testing.T) {
	g := NewGuard(Config{})
	g.Accept(3, 50, time.Now())

	time.Sleep(60 * time.Millisecond)

	assert.ErrorIs(t, g.CheckWindow(3, time.Now()), ErrExpired)
	assert.ErrorIs(t, g.CheckWindow(3, time.Now()), ErrNoWindow, "window is discarded after an expired check")
}

func TestCheckWindowDeadlineBoundary(t *testing.T) {
	start := time.Now()
	g := NewGuard(Config{})
	w := g.Accept(1, 1000, start)

	require.NoError(t, g.CheckWindow(1, w.Deadline), "at the deadline the window is still valid")

	g.Accept(2, 1000, start)
	assert.ErrorIs(t, g.CheckWindow(2, w.Deadline.Add(time.Nanosecond)), ErrExpired)
}

func TestCheckWindowMissing(t *testing.T) {
	g := NewGuard(Config{})
	assert.ErrorIs(t, g.CheckWindow(99, time.Now()), ErrNoWindow)
}

func TestStaleTimerDoesNotTouchNewWindow(t *testing.T) {
	expired := make(chan Window, 2)
	g := NewGuard(Config{OnExpire: func(w Window) { expired <- w }})

	old := g.Accept(5, 20, time.Now())
	fresh := g.Accept(5, 5000, time.Now())
	require.NotEqual(t, old.ID, fresh.ID)

	time.Sleep(50 * time.Millisecond)

	select {
	case w := <-expired:
		t.Fatalf("window %s reported expired", w.ID)
	default:
	}
	require.NoError(t, g.CheckWindow(5, time.Now()))
}

func TestExpiryCallback(t *testing.T) {
	expired := make(chan Window, 1)
	g := NewGuard(Config{OnExpire: func(w Window) { expired <- w }})
	w := g.Accept(8, 10, time.Now())

	select {
	case got := <-expired:
		assert.Equal(t, w.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("expiry callback not called")
	}
	assert.ErrorIs(t, g.CheckWindow(8, time.Now()), ErrExpired)
}

func TestLapsedWindowLeavesOpenSet(t *testing.T) {
	expired := make(chan Window, 2)
	g := NewGuard(Config{OnExpire: func(w Window) { expired <- w }})
	g.Accept(7, 10, time.Now())
	g.Accept(8, 10, time.Now())

	for range 2 {
		select {
		case <-expired:
		case <-time.After(time.Second):
			t.Fatal("expiry callback not called")
		}
	}
	assert.Equal(t, 0, g.Len())
	assert.False(t, g.Has(7))
	assert.True(t, g.Announced(7))

	assert.ErrorIs(t, g.CheckWindow(7, time.Now()), ErrExpired)
	assert.ErrorIs(t, g.CheckWindow(7, time.Now()), ErrNoWindow)

	g.Accept(8, 5000, time.Now())
	assert.Equal(t, 1, g.Len())
	require.NoError(t, g.CheckWindow(8, time.Now()), "a new window replaces the lapsed one")
}

func TestLapsedExchangesBounded(t *testing.T) {
	g := NewGuard(Config{})
	for i := range uint32(maxLapsed + 10) {
		w := g.Accept(i+1, 1, time.Now())
		g.expire(i+1, w.ID)
	}
	g.mu.Lock()
	n := len(g.lapsed)
	g.mu.Unlock()
	assert.Equal(t, maxLapsed, n)
	assert.Equal(t, 0, g.Len())

	g.AbortAll()
	assert.False(t, g.Announced(maxLapsed+10))
	assert.ErrorIs(t, g.CheckWindow(maxLapsed+10, time.Now()), ErrNoWindow)
}

func TestAbort(t *testing.T) {
	g := NewGuard(Config{})
	g.Accept(1, 1000, time.Now())
	g.Accept(2, 1000, time.Now())
	g.Accept(3, 1000, time.Now())

	g.Abort(1)
	assert.ErrorIs(t, g.CheckWindow(1, time.Now()), ErrNoWindow)
	assert.Equal(t, 2, g.Len())

	g.AbortAll()
	assert.Equal(t, 0, g.Len())
	assert.False(t, g.Has(2))
}
