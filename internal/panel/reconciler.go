package panel

import (
	"log"
	"time"

	"TokenRadar/internal/notifier"
	"TokenRadar/internal/store"
)

// Messenger is the outbound channel: send returns a message identifier,
// edit and delete act on one. Errors are classified with the notifier
// helpers.
type Messenger interface {
	Send(text string) (int64, error)
	Edit(messageID int64, text string) error
	Delete(messageID int64) error
}

// Governor gates panel traffic: a refused slot is a silent no-op for the
// cycle, MarkPanel commits the slot's cooldown after a successful call, and
// Suppress opens the circuit after a provider retry-after.
type Governor interface {
	AllowPanel(key string) bool
	MarkPanel(key string)
	Suppress(d time.Duration)
}

// Reconciler keeps one outbound message per panel slot in sync with the
// latest rendered text: send when there is none, edit when it changed,
// skip when identical, delete when the cohort disappeared.
type Reconciler struct {
	Store     *store.Store
	Messenger Messenger
	Governor  Governor
}

// NewReconciler creates a Reconciler.
func NewReconciler(st *store.Store, msg Messenger, gov Governor) *Reconciler {
	return &Reconciler{Store: st, Messenger: msg, Governor: gov}
}

// Sync reconciles one panel slot against its rendered text. present=false
// means the panel should not exist (empty cohort). Returns true when the
// persisted panel state changed.
func (r *Reconciler) Sync(key, text string, present bool) bool {
	slot := r.Store.Panel(key)

	if !present {
		if slot.MessageID == 0 {
			return false
		}
		if !r.Governor.AllowPanel(key) {
			return false
		}
		// Slot is cleared whatever the delete outcome; a message we can
		// no longer delete is also a message we no longer track.
		if err := r.Messenger.Delete(slot.MessageID); err != nil {
			r.noteRateLimit(err)
			if !notifier.IsNotFound(err) {
				log.Printf("[WARN] delete panel [%s]: %v", key, err)
			}
		} else {
			r.Governor.MarkPanel(key)
		}
		r.Store.ClearPanel(key)
		log.Printf("[INFO] panel [%s] emptied, message removed", key)
		return true
	}

	if slot.MessageID != 0 && slot.LastText == text {
		return false
	}
	if !r.Governor.AllowPanel(key) {
		return false
	}

	if slot.MessageID == 0 {
		return r.send(key, text)
	}

	err := r.Messenger.Edit(slot.MessageID, text)
	switch {
	case err == nil:
		r.Governor.MarkPanel(key)
		r.Store.SetPanel(key, slot.MessageID, text)
		return true
	case notifier.IsUnchanged(err):
		r.Governor.MarkPanel(key)
		r.Store.SetPanel(key, slot.MessageID, text)
		return true
	case notifier.IsNotFound(err):
		// Reset then recreate, exactly once; no recursion.
		r.Store.ClearPanel(key)
		r.send(key, text)
		log.Printf("[INFO] panel [%s] message recreated after external delete", key)
		return true
	default:
		r.noteRateLimit(err)
		log.Printf("[WARN] edit panel [%s]: %v", key, err)
		return false
	}
}

func (r *Reconciler) send(key, text string) bool {
	id, err := r.Messenger.Send(text)
	if err != nil {
		r.noteRateLimit(err)
		log.Printf("[WARN] send panel [%s]: %v", key, err)
		return false
	}
	r.Governor.MarkPanel(key)
	r.Store.SetPanel(key, id, text)
	log.Printf("[INFO] panel [%s] message created", key)
	return true
}

func (r *Reconciler) noteRateLimit(err error) {
	if d, ok := notifier.RetryAfter(err); ok {
		log.Printf("[WARN] provider rate limited, suppressing outbound for %v", d)
		r.Governor.Suppress(d)
	}
}
