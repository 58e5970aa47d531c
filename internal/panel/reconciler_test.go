package panel

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"TokenRadar/internal/model"
	"TokenRadar/internal/notifier"
	"TokenRadar/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	nextID  int64
	sends   []string
	edits   []int64
	deletes []int64
	editErr error
	sendErr error
	delErr  error
}

func (m *fakeMessenger) Send(text string) (int64, error) {
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.nextID++
	m.sends = append(m.sends, text)
	return m.nextID, nil
}

func (m *fakeMessenger) Edit(messageID int64, text string) error {
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, messageID)
	return nil
}

func (m *fakeMessenger) Delete(messageID int64) error {
	if m.delErr != nil {
		return m.delErr
	}
	m.deletes = append(m.deletes, messageID)
	return nil
}

type fakeGovernor struct {
	allow      bool
	marks      []string
	suppressed time.Duration
}

func (g *fakeGovernor) AllowPanel(key string) bool { return g.allow }
func (g *fakeGovernor) MarkPanel(key string)       { g.marks = append(g.marks, key) }
func (g *fakeGovernor) Suppress(d time.Duration)   { g.suppressed = d }

func newReconcilerFixture(t *testing.T) (*Reconciler, *fakeMessenger, *fakeGovernor) {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "state.json"), model.Settings{InvestAmount: 7, DelayMinutes: 2})
	require.NoError(t, err)
	msg := &fakeMessenger{}
	gov := &fakeGovernor{allow: true}
	return NewReconciler(st, msg, gov), msg, gov
}

func TestSync_SendOnFirstRender(t *testing.T) {
	r, msg, _ := newReconcilerFixture(t)

	changed := r.Sync("viral", "panel text", true)
	assert.True(t, changed)
	require.Len(t, msg.sends, 1)
	assert.Equal(t, int64(1), r.Store.Panel("viral").MessageID)
	assert.Equal(t, "panel text", r.Store.Panel("viral").LastText)
}

func TestSync_IdenticalTextIsNoOp(t *testing.T) {
	r, msg, gov := newReconcilerFixture(t)
	r.Sync("viral", "panel text", true)

	// Second pass with unchanged text: zero outbound calls, even if the
	// governor would refuse, because the skip happens first.
	gov.allow = false
	changed := r.Sync("viral", "panel text", true)
	assert.False(t, changed)
	assert.Len(t, msg.sends, 1)
	assert.Empty(t, msg.edits)
}

func TestSync_EditOnChangedText(t *testing.T) {
	r, msg, _ := newReconcilerFixture(t)
	r.Sync("viral", "v1", true)

	changed := r.Sync("viral", "v2", true)
	assert.True(t, changed)
	require.Len(t, msg.edits, 1)
	assert.Equal(t, int64(1), msg.edits[0])
	assert.Equal(t, "v2", r.Store.Panel("viral").LastText)
}

func TestSync_DeleteWhenCohortEmpties(t *testing.T) {
	r, msg, _ := newReconcilerFixture(t)
	r.Sync("viral", "v1", true)

	changed := r.Sync("viral", "", false)
	assert.True(t, changed)
	require.Len(t, msg.deletes, 1)
	assert.Equal(t, int64(0), r.Store.Panel("viral").MessageID)

	// Absent panel with no message: nothing to do.
	changed = r.Sync("viral", "", false)
	assert.False(t, changed)
	assert.Len(t, msg.deletes, 1)
}

func TestSync_DeleteFailureStillClearsSlot(t *testing.T) {
	r, msg, _ := newReconcilerFixture(t)
	r.Sync("viral", "v1", true)

	msg.delErr = &notifier.APIError{Code: 400, Description: "Bad Request: message to delete not found"}
	changed := r.Sync("viral", "", false)
	assert.True(t, changed)
	assert.Equal(t, int64(0), r.Store.Panel("viral").MessageID)
}

func TestSync_RecreateAfterExternalDelete(t *testing.T) {
	r, msg, _ := newReconcilerFixture(t)
	r.Sync("viral", "v1", true)

	// Someone deleted the message out of band: the edit fails, the slot
	// resets, and exactly one fresh send follows.
	msg.editErr = &notifier.APIError{Code: 400, Description: "Bad Request: message to edit not found"}
	changed := r.Sync("viral", "v2", true)
	assert.True(t, changed)
	require.Len(t, msg.sends, 2)
	assert.Equal(t, int64(2), r.Store.Panel("viral").MessageID)
	assert.Equal(t, "v2", r.Store.Panel("viral").LastText)
}

func TestSync_UnchangedErrorTreatedAsSuccess(t *testing.T) {
	r, msg, _ := newReconcilerFixture(t)
	r.Sync("viral", "v1", true)

	msg.editErr = &notifier.APIError{Code: 400, Description: "Bad Request: message is not modified"}
	changed := r.Sync("viral", "v2", true)
	assert.True(t, changed)
	assert.Equal(t, "v2", r.Store.Panel("viral").LastText)
	assert.Len(t, msg.sends, 1)
}

func TestSync_GovernorRefusalIsNoOp(t *testing.T) {
	r, msg, gov := newReconcilerFixture(t)
	gov.allow = false

	changed := r.Sync("viral", "v1", true)
	assert.False(t, changed)
	assert.Empty(t, msg.sends)
	// The slot stays pending; a later allowed cycle sends.
	gov.allow = true
	assert.True(t, r.Sync("viral", "v1", true))
	assert.Len(t, msg.sends, 1)
}

func TestSync_RateLimitSuppressesOutbound(t *testing.T) {
	r, msg, gov := newReconcilerFixture(t)
	r.Sync("viral", "v1", true)

	msg.editErr = &notifier.APIError{Code: 429, Description: "Too Many Requests", RetryAfter: 17 * time.Second}
	changed := r.Sync("viral", "v2", true)
	assert.False(t, changed)
	assert.Equal(t, 17*time.Second, gov.suppressed)
	// Text is not recorded as delivered, so the next cycle retries.
	assert.Equal(t, "v1", r.Store.Panel("viral").LastText)
}

func TestSync_OtherEditErrorKeepsState(t *testing.T) {
	r, _, gov := newReconcilerFixture(t)
	r.Sync("viral", "v1", true)

	m := r.Messenger.(*fakeMessenger)
	m.editErr = errors.New("connection reset")
	changed := r.Sync("viral", "v2", true)
	assert.False(t, changed)
	assert.Zero(t, gov.suppressed)
	assert.Equal(t, "v1", r.Store.Panel("viral").LastText)
}

func TestSync_CooldownCommittedOnlyOnSuccess(t *testing.T) {
	r, msg, gov := newReconcilerFixture(t)
	r.Sync("viral", "v1", true)
	require.Equal(t, []string{"viral"}, gov.marks)

	// A failed edit leaves the cooldown unarmed, so the retry next cycle is
	// not pushed out by a full window.
	msg.editErr = errors.New("connection reset")
	r.Sync("viral", "v2", true)
	assert.Equal(t, []string{"viral"}, gov.marks)

	msg.editErr = nil
	r.Sync("viral", "v2", true)
	assert.Equal(t, []string{"viral", "viral"}, gov.marks)
}

func TestSync_DeleteFailureSkipsCooldown(t *testing.T) {
	r, msg, gov := newReconcilerFixture(t)
	r.Sync("viral", "v1", true)
	require.Len(t, gov.marks, 1)

	msg.delErr = errors.New("connection reset")
	r.Sync("viral", "", false)
	// The slot is still cleared, but no cooldown is burned for the failure.
	assert.Zero(t, r.Store.Panel("viral").MessageID)
	assert.Len(t, gov.marks, 1)
}
