// Package transport implements the two channels to the conversational
// backend: a streaming WebSocket duplex (primary) and a stateless HTTP
// request/response endpoint (fallback).
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event types on the streaming channel.
const (
	EventAIResponse = "ai_response"
	EventTyping     = "typing"
	EventSystem     = "system"
	EventError      = "error"
)

// ErrNotConnected is returned when a send is attempted without an open
// streaming connection.
var ErrNotConnected = errors.New("transport: not connected")

// OutboundEvent is the structured message written onto the streaming channel.
type OutboundEvent struct {
	Type      string `json:"type"` // always "message"
	Content   string `json:"content"`
	Page      string `json:"page"`
	Timestamp string `json:"timestamp"` // RFC 3339
	UserName  string `json:"userName,omitempty"`
	UserPhone string `json:"userPhone,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
	UserID    string `json:"userId"`
}

// EventMetadata carries optional fields nested under "metadata".
type EventMetadata struct {
	Confidence *float64 `json:"confidence,omitempty"`
	IsTyping   *bool    `json:"is_typing,omitempty"`
}

// Event is an inbound streaming event, discriminated by Type.
type Event struct {
	Type      string         `json:"type"`
	MessageID string         `json:"message_id,omitempty"`
	Content   string         `json:"content,omitempty"`
	Timestamp *float64       `json:"timestamp,omitempty"`
	Metadata  *EventMetadata `json:"metadata,omitempty"`
}

// Heartbeat reports whether the event is a keepalive pong. Heartbeats are
// filtered before any logging or delivery.
func (e Event) Heartbeat() bool {
	return e.Type == EventSystem && e.Content == "pong"
}

// ParseEvent decodes an inbound streaming event, rejecting malformed
// payloads and unknown types so they can be discarded at the boundary.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("parsing event: %w", err)
	}
	switch ev.Type {
	case EventAIResponse, EventTyping, EventSystem, EventError:
		return ev, nil
	default:
		return Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// FallbackRequest is the single-shot request body on the fallback channel.
type FallbackRequest struct {
	Message        string          `json:"message"`
	ConversationID string          `json:"conversation_id"`
	UserID         string          `json:"user_id"`
	UserRole       string          `json:"user_role"`
	Channel        string          `json:"channel"`
	Context        FallbackContext `json:"context"`
}

// FallbackContext tags the request with its page origin.
type FallbackContext struct {
	Page         string `json:"page"`
	CustomerChat bool   `json:"customer_chat"`
}

// FallbackResponse is the fallback channel's reply. Confidence is a flat
// 0–1 float here, unlike the streaming channel's nested metadata.
type FallbackResponse struct {
	MessageID  string   `json:"message_id,omitempty"`
	Content    string   `json:"content"`
	Timestamp  *float64 `json:"timestamp,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}
