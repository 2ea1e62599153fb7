// Package session owns the conversation: connection lifecycle, the contact
// gate, and the controller that ties transports, store, and presentation
// together.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/feastline/concierge/internal/domain"
	"github.com/feastline/concierge/internal/logging"
	"github.com/feastline/concierge/internal/transport"
)

// Streamer abstracts the streaming transport so the lifecycle manager can be
// driven by a fake firing synthetic events in tests.
type Streamer interface {
	Dial(ctx context.Context) error
	Send(ev transport.OutboundEvent) error
	Close() error
}

// Lifecycle is the streaming connection's state machine. It schedules
// bounded, fixed-delay reconnects and reports status to the presentation
// layer. A Lifecycle is owned by exactly one Controller.
type Lifecycle struct {
	streamer   Streamer
	maxRetries int
	retryDelay time.Duration
	log        *logging.Logger

	mu         sync.Mutex
	state      domain.ConnState
	retryCount int
	lastErr    string
	retryTimer *time.Timer

	onState func(domain.ConnStatus)
	onEvent func(transport.Event)
}

// NewLifecycle creates an idle lifecycle manager around the given streamer.
func NewLifecycle(streamer Streamer, maxRetries int, retryDelay time.Duration, log *logging.Logger) *Lifecycle {
	return &Lifecycle{
		streamer:   streamer,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		log:        log.Sub("lifecycle"),
		state:      domain.ConnIdle,
	}
}

// OnStateChange registers a callback fired after every state transition.
func (l *Lifecycle) OnStateChange(fn func(domain.ConnStatus)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onState = fn
}

// OnEvent registers a callback for inbound message events.
func (l *Lifecycle) OnEvent(fn func(transport.Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onEvent = fn
}

// Status returns the current connection status.
func (l *Lifecycle) Status() domain.ConnStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statusLocked()
}

func (l *Lifecycle) statusLocked() domain.ConnStatus {
	return domain.ConnStatus{State: l.state, RetryCount: l.retryCount, LastError: l.lastErr}
}

// Connect opens the streaming transport. No-op when already open or
// connecting. The dial runs off the caller's goroutine; the outcome arrives
// via the transport handler callbacks.
func (l *Lifecycle) Connect() {
	l.mu.Lock()
	if l.state == domain.ConnOpen || l.state == domain.ConnConnecting {
		l.mu.Unlock()
		return
	}
	l.cancelRetryLocked()
	l.state = domain.ConnConnecting
	status, notify := l.statusLocked(), l.onState
	l.mu.Unlock()

	if notify != nil {
		notify(status)
	}

	go func() {
		if err := l.streamer.Dial(context.Background()); err != nil {
			l.TransportClosed(err)
		}
	}()
}

// Disconnect closes the transport and cancels any pending reconnect.
// Every Connect is paired with a Disconnect on all teardown paths.
func (l *Lifecycle) Disconnect() {
	l.mu.Lock()
	l.cancelRetryLocked()
	l.state = domain.ConnIdle
	status, notify := l.statusLocked(), l.onState
	l.mu.Unlock()

	_ = l.streamer.Close()
	if notify != nil {
		notify(status)
	}
}

// Retry is the manual affordance after retries are exhausted: it resets the
// retry budget and reconnects. No-op unless the connection has failed.
func (l *Lifecycle) Retry() {
	l.mu.Lock()
	if l.state != domain.ConnFailed {
		l.mu.Unlock()
		return
	}
	l.retryCount = 0
	l.lastErr = ""
	l.state = domain.ConnIdle
	l.mu.Unlock()

	l.log.Info().Msg("manual reconnect requested")
	l.Connect()
}

// Send writes an event to the streaming transport if it is open.
func (l *Lifecycle) Send(ev transport.OutboundEvent) error {
	l.mu.Lock()
	open := l.state == domain.ConnOpen
	l.mu.Unlock()
	if !open {
		return transport.ErrNotConnected
	}
	return l.streamer.Send(ev)
}

// TransportOpened implements transport.Handler.
func (l *Lifecycle) TransportOpened() {
	l.mu.Lock()
	l.cancelRetryLocked()
	l.state = domain.ConnOpen
	l.retryCount = 0
	l.lastErr = ""
	status, notify := l.statusLocked(), l.onState
	l.mu.Unlock()

	l.log.Info().Msg("connection open")
	if notify != nil {
		notify(status)
	}
}

// TransportClosed implements transport.Handler. Unexpected drops schedule a
// reconnect until the retry budget runs out, then the connection fails and
// stays failed until a manual Retry.
func (l *Lifecycle) TransportClosed(err error) {
	l.mu.Lock()
	if l.state == domain.ConnIdle || l.state == domain.ConnFailed {
		// explicit disconnect or already offline
		l.mu.Unlock()
		return
	}

	l.retryCount++
	if err != nil {
		l.lastErr = err.Error()
	}

	if l.retryCount < l.maxRetries {
		l.state = domain.ConnClosed
		l.retryTimer = time.AfterFunc(l.retryDelay, func() {
			l.mu.Lock()
			l.retryTimer = nil
			l.mu.Unlock()
			l.Connect()
		})
		l.log.Warn().Err(err).Int("attempt", l.retryCount).Msg("connection lost, reconnect scheduled")
	} else {
		l.state = domain.ConnFailed
		l.log.Warn().Err(err).Int("retries", l.retryCount).Msg("retries exhausted, offline mode")
	}

	status, notify := l.statusLocked(), l.onState
	l.mu.Unlock()

	if notify != nil {
		notify(status)
	}
}

// TransportEvent implements transport.Handler. Heartbeats are dropped before
// logging; non-pong system events are logged but never delivered upward.
func (l *Lifecycle) TransportEvent(ev transport.Event) {
	if ev.Heartbeat() {
		return
	}
	if ev.Type == transport.EventSystem {
		l.log.Info().Str("content", ev.Content).Msg("system event")
		return
	}

	l.mu.Lock()
	deliver := l.onEvent
	l.mu.Unlock()
	if deliver != nil {
		deliver(ev)
	}
}

// cancelRetryLocked stops a pending reconnect timer, if any.
func (l *Lifecycle) cancelRetryLocked() {
	if l.retryTimer != nil {
		l.retryTimer.Stop()
		l.retryTimer = nil
	}
}
