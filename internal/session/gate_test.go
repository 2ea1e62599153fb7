package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastline/concierge/internal/domain"
	"github.com/feastline/concierge/internal/logging"
	"github.com/feastline/concierge/internal/store"
)

func newTestGate(t *testing.T) (*Gate, *store.Store, *[]string) {
	t.Helper()
	st := store.New(store.NewMemoryKV(), logging.Silent())
	t.Cleanup(func() { st.Close() })

	var resubmitted []string
	gate := NewGate(st, func(text string) { resubmitted = append(resubmitted, text) })
	return gate, st, &resubmitted
}

func TestGate_BeginShowsAndHoldsPending(t *testing.T) {
	gate, _, _ := newTestGate(t)

	assert.False(t, gate.Visible())
	gate.Begin("hello")
	assert.True(t, gate.Visible())
	assert.Equal(t, GateVisible, gate.View().State)
}

func TestGate_BeginWhileVisibleKeepsOriginalPending(t *testing.T) {
	gate, _, resubmitted := newTestGate(t)

	gate.Begin("first")
	gate.Begin("second") // ignored

	gate.SetName("Maria")
	gate.SetPhone("5551234567")
	require.True(t, gate.Submit())

	require.Equal(t, []string{"first"}, *resubmitted)
}

func TestGate_KeystrokeValidationReplacesError(t *testing.T) {
	gate, _, _ := newTestGate(t)
	gate.Begin("hello")

	gate.SetName("M")
	assert.NotEmpty(t, gate.View().NameErr)

	gate.SetName("Maria")
	assert.Empty(t, gate.View().NameErr)

	gate.SetPhone("123")
	assert.NotEmpty(t, gate.View().PhoneErr)
	gate.SetPhone("(555) 123-4567")
	assert.Empty(t, gate.View().PhoneErr)

	gate.SetEmail("nope")
	assert.NotEmpty(t, gate.View().EmailErr)
	gate.SetEmail("")
	assert.Empty(t, gate.View().EmailErr, "email is optional")
}

func TestGate_SubmitInvalidSetsErrorAndStaysVisible(t *testing.T) {
	gate, _, resubmitted := newTestGate(t)
	gate.Begin("hello")

	gate.SetName("Maria")
	gate.SetPhone("123")

	assert.False(t, gate.Submit())
	assert.True(t, gate.Visible())
	assert.NotEmpty(t, gate.View().Err)
	assert.Empty(t, *resubmitted)
}

func TestGate_SubmitPersistsAndResubmitsExactlyOnce(t *testing.T) {
	gate, st, resubmitted := newTestGate(t)
	gate.Begin("hello")

	gate.SetName("  Maria  ")
	gate.SetPhone("(555) 123-4567")
	gate.SetEmail("maria@example.com")
	require.True(t, gate.Submit())

	assert.Equal(t, GateResolved, gate.View().State)
	assert.False(t, gate.Visible())
	require.Equal(t, []string{"hello"}, *resubmitted)

	contact := st.Contact()
	assert.Equal(t, "Maria", contact.Name)
	assert.Equal(t, "5551234567", contact.Phone, "phone persisted digits-only")
	assert.Equal(t, "maria@example.com", contact.Email)
	assert.True(t, contact.Complete())

	// a second submit must not resubmit the same text again
	assert.False(t, gate.Submit())
	assert.Equal(t, []string{"hello"}, *resubmitted)
}

func TestGate_DismissDiscardsPending(t *testing.T) {
	gate, _, resubmitted := newTestGate(t)
	gate.Begin("hello")

	gate.Dismiss()
	assert.False(t, gate.Visible())
	assert.Equal(t, GateHidden, gate.View().State)

	// completing afterwards must not resurrect the discarded text
	gate.Begin("later")
	gate.SetName("Maria")
	gate.SetPhone("5551234567")
	require.True(t, gate.Submit())
	assert.Equal(t, []string{"later"}, *resubmitted)
}

func TestGate_PrefillsFromPartialRecord(t *testing.T) {
	gate, st, _ := newTestGate(t)
	st.SetContact(domain.ContactRecord{Name: "Maria", Phone: ""})

	gate.Begin("hello")
	assert.Equal(t, "Maria", gate.View().Name)
	assert.Empty(t, gate.View().Phone)
}
