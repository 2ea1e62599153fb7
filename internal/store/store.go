package store

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/feastline/concierge/internal/domain"
	"github.com/feastline/concierge/internal/logging"
)

const keyPrefix = "concierge"

// Store persists identity, contact details, and conversation transcripts.
// Identity and contact keys are profile-global; transcript, unread, and
// closed-flag keys are namespaced per context so concurrent contexts never
// touch each other's data.
type Store struct {
	kv  KV
	log *logging.Logger
}

// New creates a Store over the given KV driver.
func New(kv KV, log *logging.Logger) *Store {
	return &Store{kv: kv, log: log.Sub("store")}
}

// OpenKV opens the configured KV driver, degrading to the in-memory driver
// when persistent storage is unavailable. The session stays usable either
// way; only cross-restart continuity is lost.
func OpenKV(driver, path string, log *logging.Logger) KV {
	if driver != "sqlite" {
		return NewMemoryKV()
	}
	kv, err := OpenSQLiteKV(path, log)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("persistent storage unavailable, using memory store")
		return NewMemoryKV()
	}
	return kv
}

// Close releases the underlying driver.
func (s *Store) Close() error {
	return s.kv.Close()
}

func profileField(field string) string {
	return keyPrefix + ":" + field
}

func contextField(contextKey, field string) string {
	return keyPrefix + ":" + contextKey + ":" + field
}

// GetOrCreateUserID returns the stable profile-wide user identifier,
// generating and persisting one on first use.
func (s *Store) GetOrCreateUserID() string {
	key := profileField("userId")
	if id, ok := s.kv.Get(key); ok && id != "" {
		return id
	}
	id := uuid.New().String()
	s.kv.Set(key, id)
	return id
}

// GetOrCreateThreadID returns the conversation identifier for a context,
// generating and persisting one on first use.
func (s *Store) GetOrCreateThreadID(contextKey string) string {
	key := contextField(contextKey, "threadId")
	if id, ok := s.kv.Get(key); ok && id != "" {
		return id
	}
	id := uuid.New().String()
	s.kv.Set(key, id)
	return id
}

// LoadTranscript returns the persisted transcript for a context in stored
// order. A missing or unparseable transcript yields an empty list.
func (s *Store) LoadTranscript(contextKey string) []domain.Message {
	raw, ok := s.kv.Get(contextField(contextKey, "transcript"))
	if !ok || raw == "" {
		return nil
	}

	var stored []storedMessage
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.log.Warn().Err(err).Str("context", contextKey).Msg("transcript unreadable, starting fresh")
		return nil
	}

	msgs := make([]domain.Message, 0, len(stored))
	for _, sm := range stored {
		msgs = append(msgs, domain.Message{
			ID:         sm.ID,
			Role:       sm.Role,
			Content:    sm.Content,
			CreatedAt:  reviveTimestamp(sm.CreatedAt),
			Citations:  sm.Citations,
			Confidence: sm.Confidence,
		})
	}
	return msgs
}

// SaveTranscript persists the transcript for a context. Timestamps are
// written as RFC 3339, so epoch values from older stored data are migrated
// on the first save after a load.
func (s *Store) SaveTranscript(contextKey string, msgs []domain.Message) {
	data, err := json.Marshal(msgs)
	if err != nil {
		s.log.Warn().Err(err).Str("context", contextKey).Msg("transcript marshal failed")
		return
	}
	s.kv.Set(contextField(contextKey, "transcript"), string(data))
}

// Clear removes the transcript and resets the unread and closed flags for a
// context. Identity is untouched.
func (s *Store) Clear(contextKey string) {
	s.kv.Remove(contextField(contextKey, "transcript"))
	s.kv.Remove(contextField(contextKey, "unread"))
	s.kv.Remove(contextField(contextKey, "closed"))
}

// ClearIdentity removes the profile-wide user identifier and contact record.
// The next GetOrCreateUserID issues a fresh identity.
func (s *Store) ClearIdentity() {
	s.kv.Remove(profileField("userId"))
	s.kv.Remove(profileField("contactName"))
	s.kv.Remove(profileField("contactPhone"))
	s.kv.Remove(profileField("contactEmail"))
}

// Contact returns the persisted contact record. Fields are stored as
// discrete keys for compatibility with previously stored data.
func (s *Store) Contact() domain.ContactRecord {
	name, _ := s.kv.Get(profileField("contactName"))
	phone, _ := s.kv.Get(profileField("contactPhone"))
	email, _ := s.kv.Get(profileField("contactEmail"))
	return domain.ContactRecord{Name: name, Phone: phone, Email: email}
}

// SetContact persists the contact record. An empty email removes any
// previously stored address rather than leaving it behind.
func (s *Store) SetContact(c domain.ContactRecord) {
	s.kv.Set(profileField("contactName"), c.Name)
	s.kv.Set(profileField("contactPhone"), c.Phone)
	if c.Email == "" {
		s.kv.Remove(profileField("contactEmail"))
		return
	}
	s.kv.Set(profileField("contactEmail"), c.Email)
}

// Unread returns the persisted unread counter for a context.
func (s *Store) Unread(contextKey string) int {
	raw, ok := s.kv.Get(contextField(contextKey, "unread"))
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SetUnread persists the unread counter for a context.
func (s *Store) SetUnread(contextKey string, n int) {
	s.kv.Set(contextField(contextKey, "unread"), strconv.Itoa(n))
}

// Closed returns whether the widget was closed when last persisted.
func (s *Store) Closed(contextKey string) bool {
	raw, _ := s.kv.Get(contextField(contextKey, "closed"))
	return raw == "true"
}

// SetClosed persists the widget open/closed state for a context.
func (s *Store) SetClosed(contextKey string, closed bool) {
	s.kv.Set(contextField(contextKey, "closed"), strconv.FormatBool(closed))
}

// storedMessage defers timestamp decoding: previously stored transcripts
// carry either RFC 3339 strings or epoch numbers.
type storedMessage struct {
	ID         string            `json:"id"`
	Role       domain.Role       `json:"role"`
	Content    string            `json:"content"`
	CreatedAt  json.RawMessage   `json:"createdAt"`
	Citations  []domain.Citation `json:"citations,omitempty"`
	Confidence domain.Confidence `json:"confidence,omitempty"`
}

// reviveTimestamp accepts RFC 3339 strings and epoch numbers (seconds or
// milliseconds, detected by magnitude). Unrecognized values yield a zero
// time rather than dropping the message.
func reviveTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
			return t
		}
		return time.Time{}
	}

	var epoch float64
	if err := json.Unmarshal(raw, &epoch); err == nil {
		// epoch milliseconds pass 1e11 around 1973; seconds won't until year 5138
		if epoch > 1e11 {
			return time.UnixMilli(int64(epoch))
		}
		return time.Unix(int64(epoch), 0)
	}

	return time.Time{}
}
