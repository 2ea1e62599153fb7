package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feastline/concierge/internal/domain"
	"github.com/feastline/concierge/internal/logging"
	"github.com/feastline/concierge/internal/store"
	"github.com/feastline/concierge/internal/transport"
)

// failureReply is the synthetic assistant message appended when either
// transport fails, so the user is never left with a frozen sending state.
const failureReply = "We're having trouble reaching our team right now. " +
	"Please use the contact options below and we'll get right back to you."

// Fallbacker abstracts the request/response transport.
type Fallbacker interface {
	Send(ctx context.Context, req transport.FallbackRequest) (*transport.FallbackResponse, error)
}

// Notifier receives presentation side effects. Implementations must be fast;
// callbacks fire inline from the controller.
type Notifier interface {
	Render()
	PlaySound()
	ShowTyping(active bool)
	GateOpened()
}

type nopNotifier struct{}

func (nopNotifier) Render()         {}
func (nopNotifier) PlaySound()      {}
func (nopNotifier) ShowTyping(bool) {}
func (nopNotifier) GateOpened()     {}

// Config tunes a Controller.
type Config struct {
	ContextKey      string // page/topic scope; also sent as the wire "page"
	Channel         string
	Role            string
	Sound           bool
	FallbackTimeout time.Duration
}

// Controller drives one conversational context: it accepts user input,
// enforces the contact gate, selects a transport per submission, and keeps
// the transcript in arrival order.
type Controller struct {
	cfg       Config
	store     *store.Store
	lifecycle *Lifecycle
	fallback  Fallbacker
	notifier  Notifier
	gate      *Gate
	log       *logging.Logger

	userID   string
	threadID string

	mu         sync.Mutex
	messages   []domain.Message
	inFlight   bool
	streamWait bool // in-flight submission awaits a streaming reply
	closed     bool
	onState    func(domain.ConnStatus)
}

// NewController wires a controller over its collaborators and restores the
// persisted transcript and widget state for the context.
func NewController(cfg Config, st *store.Store, lc *Lifecycle, fb Fallbacker, n Notifier, log *logging.Logger) *Controller {
	if n == nil {
		n = nopNotifier{}
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 20 * time.Second
	}

	c := &Controller{
		cfg:       cfg,
		store:     st,
		lifecycle: lc,
		fallback:  fb,
		notifier:  n,
		log:       log.Sub("session"),
		userID:    st.GetOrCreateUserID(),
		threadID:  st.GetOrCreateThreadID(cfg.ContextKey),
		messages:  st.LoadTranscript(cfg.ContextKey),
		closed:    st.Closed(cfg.ContextKey),
	}
	c.gate = NewGate(st, c.Submit)

	lc.OnEvent(c.handleEvent)
	lc.OnStateChange(c.handleStateChange)
	return c
}

// OnStateChange registers a callback fired after every connection state
// transition, once the controller has reconciled its own state with it.
func (c *Controller) OnStateChange(fn func(domain.ConnStatus)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// UserID returns the stable profile identity.
func (c *Controller) UserID() string { return c.userID }

// ThreadID returns the conversation identity for this context.
func (c *Controller) ThreadID() string { return c.threadID }

// Gate returns the contact gate.
func (c *Controller) Gate() *Gate { return c.gate }

// Status reports the streaming connection status.
func (c *Controller) Status() domain.ConnStatus { return c.lifecycle.Status() }

// Start opens the streaming channel.
func (c *Controller) Start() { c.lifecycle.Connect() }

// Stop tears the streaming channel down, cancelling any pending reconnect.
// Must be called on every exit path that called Start.
func (c *Controller) Stop() { c.lifecycle.Disconnect() }

// RetryConnection is the manual affordance shown in offline mode.
func (c *Controller) RetryConnection() { c.lifecycle.Retry() }

// Messages returns a copy of the transcript in arrival order.
func (c *Controller) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Submit accepts user input. Empty input and submissions made while another
// is in flight are dropped, not queued. With an incomplete contact record
// the gate is shown instead and no network activity occurs; the gate
// resubmits the same text once it resolves.
func (c *Controller) Submit(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if !c.store.Contact().Complete() {
		if !c.gate.Visible() {
			c.gate.Begin(text)
			c.notifier.GateOpened()
		}
		return
	}

	// Transport selection happens per submission: a mid-session downgrade or
	// recovery is transparent to the caller.
	live := c.lifecycle.Status().Live()

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		c.log.Debug().Msg("submission dropped, send already in flight")
		return
	}
	c.inFlight = true
	c.streamWait = live
	c.mu.Unlock()

	out := domain.Message{
		ID:        uuid.New().String(),
		Role:      domain.RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}
	c.append(out)

	if live {
		c.sendStream(out)
		return
	}
	go c.sendFallback(text)
}

func (c *Controller) sendStream(out domain.Message) {
	contact := c.store.Contact()
	ev := transport.OutboundEvent{
		Type:      "message",
		Content:   out.Content,
		Page:      c.cfg.ContextKey,
		Timestamp: out.CreatedAt.Format(time.RFC3339),
		UserName:  contact.Name,
		UserPhone: contact.Phone,
		UserEmail: contact.Email,
		UserID:    c.userID,
	}
	if err := c.lifecycle.Send(ev); err != nil {
		c.resolveWithFailure(err)
	}
}

func (c *Controller) sendFallback(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FallbackTimeout)
	defer cancel()

	req := transport.FallbackRequest{
		Message:        text,
		ConversationID: c.threadID,
		UserID:         c.userID,
		UserRole:       c.cfg.Role,
		Channel:        c.cfg.Channel,
		Context:        transport.FallbackContext{Page: c.cfg.ContextKey, CustomerChat: true},
	}

	resp, err := c.fallback.Send(ctx, req)
	if err != nil {
		c.resolveWithFailure(err)
		return
	}

	msg := domain.Message{
		ID:        resp.MessageID,
		Role:      domain.RoleAssistant,
		Content:   resp.Content,
		CreatedAt: eventTime(resp.Timestamp),
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if resp.Confidence != nil {
		msg.Confidence = domain.NormalizeConfidence(*resp.Confidence)
	}
	c.finishSend(msg)
}

// handleEvent receives inbound streaming events from the lifecycle manager.
func (c *Controller) handleEvent(ev transport.Event) {
	switch ev.Type {
	case transport.EventAIResponse:
		msg := domain.Message{
			ID:        ev.MessageID,
			Role:      domain.RoleAssistant,
			Content:   ev.Content,
			CreatedAt: eventTime(ev.Timestamp),
		}
		if msg.ID == "" {
			msg.ID = uuid.New().String()
		}
		if ev.Metadata != nil && ev.Metadata.Confidence != nil {
			msg.Confidence = domain.NormalizeConfidence(*ev.Metadata.Confidence)
		}
		c.finishSend(msg)

	case transport.EventTyping:
		active := true
		if ev.Metadata != nil && ev.Metadata.IsTyping != nil {
			active = *ev.Metadata.IsTyping
		}
		c.notifier.ShowTyping(active)

	case transport.EventError:
		c.resolveWithFailure(errors.New(errContent(ev)))
	}
}

// finishSend resolves the in-flight submission with an assistant message.
func (c *Controller) finishSend(msg domain.Message) {
	c.notifier.ShowTyping(false)
	c.append(msg)
	if c.cfg.Sound {
		c.notifier.PlaySound()
	}
	c.mu.Lock()
	c.inFlight = false
	c.streamWait = false
	c.mu.Unlock()
}

// handleStateChange resolves a submission stranded by a connection drop: a
// streaming send that got on the wire but lost its reply channel would
// otherwise never resolve. Fallback sends carry their own timeout and are
// untouched.
func (c *Controller) handleStateChange(status domain.ConnStatus) {
	switch status.State {
	case domain.ConnClosed, domain.ConnFailed, domain.ConnIdle:
		c.mu.Lock()
		stranded := c.inFlight && c.streamWait
		c.streamWait = false
		c.mu.Unlock()
		if stranded {
			c.resolveWithFailure(errors.New("connection lost while awaiting reply"))
		}
	}

	c.mu.Lock()
	notify := c.onState
	c.mu.Unlock()
	if notify != nil {
		notify(status)
	}
}

// resolveWithFailure resolves the in-flight submission with a synthetic
// low-confidence assistant message pointing at the escalation surface.
// A send error and a connection drop can race to resolve the same
// submission; only the first claim lands.
func (c *Controller) resolveWithFailure(err error) {
	c.mu.Lock()
	claimed := c.inFlight
	c.inFlight = false
	c.streamWait = false
	c.mu.Unlock()
	if !claimed {
		return
	}

	c.log.Warn().Err(err).Msg("send failed")
	c.finishSend(domain.Message{
		ID:         uuid.New().String(),
		Role:       domain.RoleAssistant,
		Content:    failureReply,
		CreatedAt:  time.Now(),
		Confidence: domain.ConfidenceLow,
	})
}

// append is the single write path to the transcript. Persistence follows the
// mutation in the same tick, so a restart never observes a transcript newer
// than what was last rendered.
func (c *Controller) append(msg domain.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.store.SaveTranscript(c.cfg.ContextKey, c.messages)
	if msg.Role == domain.RoleAssistant && c.closed {
		c.store.SetUnread(c.cfg.ContextKey, c.store.Unread(c.cfg.ContextKey)+1)
	}
	c.mu.Unlock()

	c.notifier.Render()
}

// Unread returns the persisted unread counter.
func (c *Controller) Unread() int {
	return c.store.Unread(c.cfg.ContextKey)
}

// MarkRead zeroes the unread counter.
func (c *Controller) MarkRead() {
	c.store.SetUnread(c.cfg.ContextKey, 0)
	c.notifier.Render()
}

// Closed reports the persisted widget open/closed state.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SetClosed persists the widget open/closed state across restarts.
func (c *Controller) SetClosed(closed bool) {
	c.mu.Lock()
	c.closed = closed
	c.mu.Unlock()
	c.store.SetClosed(c.cfg.ContextKey, closed)
	if !closed {
		c.store.SetUnread(c.cfg.ContextKey, 0)
	}
	c.notifier.Render()
}

// ClearConversation wipes the transcript and flags for this context.
// Identity survives.
func (c *Controller) ClearConversation() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
	c.store.Clear(c.cfg.ContextKey)
	c.notifier.Render()
}

// eventTime interprets a wire timestamp, accepting both epoch seconds and
// milliseconds. Absent timestamps use arrival time.
func eventTime(ts *float64) time.Time {
	if ts == nil {
		return time.Now()
	}
	if *ts > 1e11 {
		return time.UnixMilli(int64(*ts))
	}
	return time.Unix(int64(*ts), 0)
}

func errContent(ev transport.Event) string {
	if ev.Content != "" {
		return ev.Content
	}
	return "backend error"
}
