package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastline/concierge/internal/domain"
	"github.com/feastline/concierge/internal/logging"
	"github.com/feastline/concierge/internal/transport"
)

// fakeStreamer stands in for the websocket transport, firing synthetic
// lifecycle events at the handler.
type fakeStreamer struct {
	mu      sync.Mutex
	handler transport.Handler

	dialErr   error
	sendErr   error
	dialCalls int
	closes    int
	sent      []transport.OutboundEvent
}

func (f *fakeStreamer) Dial(ctx context.Context) error {
	f.mu.Lock()
	f.dialCalls++
	err := f.dialErr
	h := f.handler
	f.mu.Unlock()

	if err != nil {
		return err
	}
	h.TransportOpened()
	return nil
}

func (f *fakeStreamer) Send(ev transport.OutboundEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, ev)
	return nil
}

func (f *fakeStreamer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeStreamer) setDialErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialErr = err
}

func (f *fakeStreamer) dials() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dialCalls
}

func (f *fakeStreamer) sentEvents() []transport.OutboundEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.OutboundEvent, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestLifecycle(t *testing.T) (*Lifecycle, *fakeStreamer) {
	t.Helper()
	fake := &fakeStreamer{}
	lc := NewLifecycle(fake, 3, 5*time.Millisecond, logging.Silent())
	fake.handler = lc
	t.Cleanup(lc.Disconnect)
	return lc, fake
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond, msg)
}

func TestLifecycle_ConnectOpens(t *testing.T) {
	lc, fake := newTestLifecycle(t)

	lc.Connect()
	eventually(t, func() bool { return lc.Status().State == domain.ConnOpen }, "should open")

	status := lc.Status()
	assert.Zero(t, status.RetryCount)
	assert.True(t, status.Live())
	assert.Equal(t, 1, fake.dials())
}

func TestLifecycle_ConnectIsIdempotentWhileOpen(t *testing.T) {
	lc, fake := newTestLifecycle(t)

	lc.Connect()
	eventually(t, func() bool { return lc.Status().State == domain.ConnOpen }, "should open")

	lc.Connect()
	lc.Connect()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, fake.dials())
}

func TestLifecycle_BoundedRetryReachesFailed(t *testing.T) {
	lc, fake := newTestLifecycle(t)
	fake.setDialErr(errors.New("refused"))

	lc.Connect()
	eventually(t, func() bool { return lc.Status().State == domain.ConnFailed }, "should fail after retries")

	assert.Equal(t, 3, fake.dials())
	assert.Equal(t, 3, lc.Status().RetryCount)
	assert.Equal(t, "refused", lc.Status().LastError)

	// no further automatic attempts once failed
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 3, fake.dials())
}

func TestLifecycle_ManualRetryResetsAndReconnects(t *testing.T) {
	lc, fake := newTestLifecycle(t)
	fake.setDialErr(errors.New("refused"))

	lc.Connect()
	eventually(t, func() bool { return lc.Status().State == domain.ConnFailed }, "should fail")

	fake.setDialErr(nil)
	lc.Retry()
	eventually(t, func() bool { return lc.Status().State == domain.ConnOpen }, "manual retry should reconnect")
	assert.Zero(t, lc.Status().RetryCount)
}

func TestLifecycle_RetryIsNoopUnlessFailed(t *testing.T) {
	lc, fake := newTestLifecycle(t)

	lc.Retry()
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, fake.dials())
	assert.Equal(t, domain.ConnIdle, lc.Status().State)
}

func TestLifecycle_DropWhileOpenReconnects(t *testing.T) {
	lc, fake := newTestLifecycle(t)

	lc.Connect()
	eventually(t, func() bool { return lc.Status().State == domain.ConnOpen }, "should open")

	lc.TransportClosed(errors.New("dropped"))
	eventually(t, func() bool {
		return lc.Status().State == domain.ConnOpen && fake.dials() == 2
	}, "should reconnect after drop")
	assert.Zero(t, lc.Status().RetryCount, "retry count resets on open")
}

func TestLifecycle_DisconnectCancelsPendingReconnect(t *testing.T) {
	fake := &fakeStreamer{dialErr: errors.New("refused")}
	lc := NewLifecycle(fake, 3, 50*time.Millisecond, logging.Silent())
	fake.handler = lc

	lc.Connect()
	eventually(t, func() bool { return fake.dials() == 1 }, "first dial")

	lc.Disconnect()
	time.Sleep(120 * time.Millisecond)

	assert.Equal(t, 1, fake.dials(), "reconnect timer must be cancelled")
	assert.Equal(t, domain.ConnIdle, lc.Status().State)
	fake.mu.Lock()
	closes := fake.closes
	fake.mu.Unlock()
	assert.GreaterOrEqual(t, closes, 1)
}

func TestLifecycle_SendRequiresOpen(t *testing.T) {
	lc, fake := newTestLifecycle(t)

	err := lc.Send(transport.OutboundEvent{Content: "x"})
	assert.ErrorIs(t, err, transport.ErrNotConnected)

	lc.Connect()
	eventually(t, func() bool { return lc.Status().State == domain.ConnOpen }, "should open")

	require.NoError(t, lc.Send(transport.OutboundEvent{Content: "x"}))
	assert.Len(t, fake.sentEvents(), 1)
}

func TestLifecycle_HeartbeatFilteredFromLogsAndDelivery(t *testing.T) {
	var buf bytes.Buffer
	fake := &fakeStreamer{}
	lc := NewLifecycle(fake, 3, 5*time.Millisecond, logging.New(&buf, "debug"))
	fake.handler = lc

	var delivered []transport.Event
	var mu sync.Mutex
	lc.OnEvent(func(ev transport.Event) {
		mu.Lock()
		delivered = append(delivered, ev)
		mu.Unlock()
	})

	lc.TransportEvent(transport.Event{Type: transport.EventSystem, Content: "pong"})
	assert.Empty(t, buf.String(), "heartbeats must not be logged")
	mu.Lock()
	assert.Empty(t, delivered)
	mu.Unlock()

	lc.TransportEvent(transport.Event{Type: transport.EventSystem, Content: "maintenance at noon"})
	assert.Contains(t, buf.String(), "maintenance at noon")
	mu.Lock()
	assert.Empty(t, delivered, "system events are logged, not delivered")
	mu.Unlock()

	lc.TransportEvent(transport.Event{Type: transport.EventAIResponse, Content: "hi"})
	mu.Lock()
	require.Len(t, delivered, 1)
	assert.Equal(t, "hi", delivered[0].Content)
	mu.Unlock()
}
