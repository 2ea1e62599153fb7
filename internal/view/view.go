// Package view projects controller state into renderable view state. It is
// pure data mapping: the CLI and any future widget surface render from the
// same projection.
package view

import (
	"github.com/feastline/concierge/internal/domain"
)

// DefaultSuggestions are the starter chips shown before the first user
// message in a context.
var DefaultSuggestions = []string{
	"What's on your catering menu?",
	"Can I get a quote for an event?",
	"Do you handle dietary restrictions?",
}

// Badge is the connection indicator shown in the widget header.
type Badge string

const (
	BadgeLive       Badge = "live"
	BadgeConnecting Badge = "connecting"
	BadgeOffline    Badge = "offline"
)

// MessageView is a single rendered transcript entry.
type MessageView struct {
	ID         string
	Role       domain.Role
	Content    string
	Citations  []domain.Citation
	Confidence domain.Confidence
	// Escalate marks the inline affordance to reach a human.
	Escalate bool
}

// State is everything a renderer needs for one frame.
type State struct {
	Messages    []MessageView
	Badge       Badge
	Offline     bool // show alternate-contact affordances and manual retry
	Suggestions []string
	Unread      int
	GateVisible bool
}

// Project maps controller state onto view state. Low-confidence assistant
// messages carry the escalation affordance; suggestion chips disappear after
// the first user message.
func Project(msgs []domain.Message, status domain.ConnStatus, gateVisible bool, unread int) State {
	st := State{
		Badge:       badgeFor(status),
		Offline:     status.State == domain.ConnFailed,
		Unread:      unread,
		GateVisible: gateVisible,
	}

	hasUserMessage := false
	for _, m := range msgs {
		if m.Role == domain.RoleUser {
			hasUserMessage = true
		}
		st.Messages = append(st.Messages, MessageView{
			ID:         m.ID,
			Role:       m.Role,
			Content:    m.Content,
			Citations:  m.Citations,
			Confidence: m.Confidence,
			Escalate:   m.Role == domain.RoleAssistant && m.Confidence == domain.ConfidenceLow,
		})
	}

	if !hasUserMessage {
		st.Suggestions = DefaultSuggestions
	}
	return st
}

func badgeFor(status domain.ConnStatus) Badge {
	switch status.State {
	case domain.ConnOpen:
		return BadgeLive
	case domain.ConnConnecting, domain.ConnClosed:
		return BadgeConnecting
	default:
		return BadgeOffline
	}
}
