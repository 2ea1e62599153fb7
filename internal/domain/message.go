package domain

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Confidence is the tri-level quality signal attached to assistant messages.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// NormalizeConfidence maps a backend 0–1 score onto the tri-level scale.
// Both wire formats (streaming metadata.confidence and fallback confidence)
// go through this single function so the thresholds cannot drift apart.
func NormalizeConfidence(score float64) Confidence {
	switch {
	case score > 0.7:
		return ConfidenceHigh
	case score > 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Citation is a source reference attached to an assistant message.
type Citation struct {
	Label     string `json:"label"`
	Reference string `json:"reference"`
}

// Message is a single turn in a conversation transcript.
type Message struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
	Citations  []Citation `json:"citations,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
}
