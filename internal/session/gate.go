package session

import (
	"strings"
	"sync"

	"github.com/feastline/concierge/internal/domain"
	"github.com/feastline/concierge/internal/store"
)

// GateState is the contact gate's position.
type GateState string

const (
	GateHidden   GateState = "hidden"
	GateVisible  GateState = "visible"
	GateResolved GateState = "resolved"
)

// GateView is a snapshot of the gate for rendering.
type GateView struct {
	State    GateState
	Name     string
	Phone    string
	Email    string
	NameErr  string
	PhoneErr string
	EmailErr string
	Err      string // submit-level error
}

// Gate blocks message submission until a minimum contact record (name +
// phone, optional email) is captured. On completion it resubmits the pending
// text exactly once.
type Gate struct {
	store    *store.Store
	resubmit func(text string)

	mu      sync.Mutex
	state   GateState
	pending string
	view    GateView
}

// NewGate creates a hidden gate. resubmit is invoked with the pending text
// after the gate resolves.
func NewGate(st *store.Store, resubmit func(text string)) *Gate {
	return &Gate{
		store:    st,
		resubmit: resubmit,
		state:    GateHidden,
		view:     GateView{State: GateHidden},
	}
}

// Visible reports whether the gate is currently collecting.
func (g *Gate) Visible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == GateVisible
}

// View returns a render snapshot.
func (g *Gate) View() GateView {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.view
	v.State = g.state
	return v
}

// Begin shows the gate holding the text that triggered it. Ignored while the
// gate is already visible so a pending text is never replaced mid-collect.
func (g *Gate) Begin(pendingText string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == GateVisible {
		return
	}
	g.state = GateVisible
	g.pending = pendingText
	g.view = GateView{State: GateVisible}

	// prefill from any partially captured record
	c := g.store.Contact()
	g.view.Name = c.Name
	g.view.Phone = c.Phone
	g.view.Email = c.Email
}

// SetName validates on every keystroke, replacing the prior field error.
func (g *Gate) SetName(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.view.Name = name
	g.view.NameErr = domain.ValidateName(name)
	g.view.Err = ""
}

// SetPhone validates on every keystroke, replacing the prior field error.
func (g *Gate) SetPhone(phone string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.view.Phone = phone
	g.view.PhoneErr = domain.ValidatePhone(phone)
	g.view.Err = ""
}

// SetEmail validates on every keystroke, replacing the prior field error.
func (g *Gate) SetEmail(email string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.view.Email = email
	g.view.EmailErr = domain.ValidateEmail(email)
	g.view.Err = ""
}

// Submit validates the collected record. On success it persists the record,
// resolves the gate, and resubmits the pending text exactly once. On failure
// it sets a user-facing error and stays visible. Never returns an error: a
// validation problem is UI state, not an exception.
func (g *Gate) Submit() bool {
	g.mu.Lock()
	if g.state != GateVisible {
		g.mu.Unlock()
		return false
	}

	g.view.NameErr = domain.ValidateName(g.view.Name)
	g.view.PhoneErr = domain.ValidatePhone(g.view.Phone)
	g.view.EmailErr = domain.ValidateEmail(g.view.Email)
	if g.view.NameErr != "" || g.view.PhoneErr != "" || g.view.EmailErr != "" {
		g.view.Err = firstNonEmpty(g.view.NameErr, g.view.PhoneErr, g.view.EmailErr)
		g.mu.Unlock()
		return false
	}

	record := domain.ContactRecord{
		Name:  strings.TrimSpace(g.view.Name),
		Phone: domain.DigitsOnly(g.view.Phone),
		Email: strings.TrimSpace(g.view.Email),
	}
	g.store.SetContact(record)

	text := g.pending
	g.pending = ""
	g.state = GateResolved
	resubmit := g.resubmit
	g.mu.Unlock()

	if text != "" && resubmit != nil {
		resubmit(text)
	}
	return true
}

// Dismiss closes the gate without completing it, discarding the pending
// text. This is an explicit user choice, not a drop.
func (g *Gate) Dismiss() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != GateVisible {
		return
	}
	g.pending = ""
	g.state = GateHidden
	g.view = GateView{State: GateHidden}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
