package action

import (
	"log/slog"
	"sync"

	"github.com/droidvox/droidvox/internal/device"
)

// defaultConfirmGated lists directives whose effect is externally consequential
// and must wait for explicit user approval. Matches the assistant's command
// vocabulary for calls, messages, and deletions.
var defaultConfirmGated = []string{
	"CALL_CONTACT",
	"SEND_SMS",
	"SEND_WHATSAPP",
	"SEND_EMAIL",
	"DELETE_FILE",
	"UNINSTALL_APP",
}

// confirmedNotifications maps gated directives to the notification shown when
// the user approves them. Directives without an entry fall back to a generic
// completion message.
var confirmedNotifications = map[string]string{
	"CALL_CONTACT": "কল দেওয়া হচ্ছে...",
	"SEND_SMS":     "মেসেজ পাঠানো হয়েছে",
	"DELETE_FILE":  "ফাইল মুছে ফেলা হয়েছে",
}

// Pending describes the directive currently awaiting user approval.
type Pending struct {
	Directive string `json:"directive"`
}

// Config holds the dependencies and policy knobs for a [Dispatcher].
type Config struct {
	// Device is the simulated device state immediate directives mutate.
	Device *device.State

	// Audit receives one entry per directive outcome.
	Audit *AuditLog

	// Notify publishes a user-visible notification. May be nil.
	Notify func(text string)

	// ConfirmGated overrides the default set of confirm-gated directive names.
	ConfirmGated []string
}

// Dispatcher applies parsed directives exactly once each. At most one
// confirm-gated directive can be pending at a time; a second one arriving
// while the slot is occupied is dropped and audited, never silently
// overwritten. Safe for concurrent use.
type Dispatcher struct {
	device *device.State
	audit  *AuditLog
	notify func(string)
	gated  map[string]bool

	mu      sync.Mutex
	pending *Pending
}

// NewDispatcher creates a Dispatcher from cfg.
func NewDispatcher(cfg Config) *Dispatcher {
	gated := cfg.ConfirmGated
	if gated == nil {
		gated = defaultConfirmGated
	}
	set := make(map[string]bool, len(gated))
	for _, name := range gated {
		set[name] = true
	}

	notify := cfg.Notify
	if notify == nil {
		notify = func(string) {}
	}

	return &Dispatcher{
		device: cfg.Device,
		audit:  cfg.Audit,
		notify: notify,
		gated:  set,
	}
}

// Dispatch applies each directive in order. Immediate directives mutate device
// state synchronously and notify; confirm-gated directives populate the
// pending slot; unrecognised names are audited and otherwise ignored.
func (d *Dispatcher) Dispatch(directives []Directive) {
	for _, dir := range directives {
		d.dispatchOne(dir.Name)
	}
}

func (d *Dispatcher) dispatchOne(name string) {
	if d.gated[name] {
		d.mu.Lock()
		if d.pending != nil {
			occupied := d.pending.Directive
			d.mu.Unlock()
			slog.Warn("confirmation already pending, dropping directive",
				"directive", name, "pending", occupied)
			d.audit.Append(name, OutcomeDropped)
			return
		}
		d.pending = &Pending{Directive: name}
		d.mu.Unlock()
		d.audit.Append(name, OutcomePending)
		slog.Info("directive awaiting confirmation", "directive", name)
		return
	}

	note, ok := d.device.Apply(name)
	if !ok {
		slog.Debug("ignoring unrecognised directive", "directive", name)
		d.audit.Append(name, OutcomeIgnored)
		return
	}
	d.audit.Append(name, OutcomeDispatched)
	d.notify(note)
	slog.Info("directive applied", "directive", name)
}

// Pending returns the directive awaiting confirmation, or nil.
func (d *Dispatcher) Pending() *Pending {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return nil
	}
	p := *d.pending
	return &p
}

// Confirm applies the pending directive's effect and clears the slot.
// Returns false when nothing is pending.
func (d *Dispatcher) Confirm() bool {
	d.mu.Lock()
	p := d.pending
	d.pending = nil
	d.mu.Unlock()

	if p == nil {
		return false
	}

	note, ok := confirmedNotifications[p.Directive]
	if !ok {
		note = "অ্যাকশন সম্পন্ন হয়েছে"
	}
	d.audit.Append(p.Directive, OutcomeConfirmed)
	d.notify(note)
	slog.Info("directive confirmed", "directive", p.Directive)
	return true
}

// Cancel clears the pending slot without applying any effect.
// Returns false when nothing is pending.
func (d *Dispatcher) Cancel() bool {
	d.mu.Lock()
	p := d.pending
	d.pending = nil
	d.mu.Unlock()

	if p == nil {
		return false
	}

	d.audit.Append(p.Directive, OutcomeCancelled)
	d.notify("অ্যাকশন বাতিল করা হয়েছে")
	slog.Info("directive cancelled", "directive", p.Directive)
	return true
}
