// Package dispatch multiplexes momentary-input sources (hardware foot
// pedal, on-screen buttons) into one ordered navigation action stream.
package dispatch

import (
	"sync"

	"github.com/rs/zerolog"

	"transcript-navigator/internal/domain"
)

// Source kinds recognized by the dispatcher.
const (
	SourcePedal = "pedal"
	SourceUI    = "ui"
)

// Kind is a raw momentary input event.
type Kind string

const (
	LeftPressed    Kind = "left-pressed"
	LeftReleased   Kind = "left-released"
	CenterPressed  Kind = "center-pressed"
	CenterReleased Kind = "center-released"
	RightPressed   Kind = "right-pressed"
	RightReleased  Kind = "right-released"
)

// Normalize maps a raw input event to a navigation action. Left and
// right are edge-triggered on press only; their releases carry no
// action. Center is a hold control: press plays, release pauses.
func Normalize(k Kind) (domain.NavigationAction, bool) {
	switch k {
	case LeftPressed:
		return domain.NavigationAction{Kind: domain.ActionPrev}, true
	case CenterPressed:
		return domain.NavigationAction{Kind: domain.ActionPlay}, true
	case CenterReleased:
		return domain.NavigationAction{Kind: domain.ActionPause}, true
	case RightPressed:
		return domain.NavigationAction{Kind: domain.ActionNext}, true
	default:
		return domain.NavigationAction{}, false
	}
}

// Dispatcher fans normalized actions out to subscriptions. Delivery is
// FIFO in Dispatch call order and runs on the dispatching goroutine
// while the dispatcher lock is held, which makes Unsubscribe a strict
// barrier: once it returns, no further action reaches that handle.
type Dispatcher struct {
	mu        sync.Mutex
	subs      []*Subscription
	connected bool
	log       zerolog.Logger
}

// Subscription is one registered action consumer. Unsubscribe is
// mandatory; there is no implicit listener lifetime.
type Subscription struct {
	d      *Dispatcher
	source string
	fn     func(domain.NavigationAction)
}

// NewDispatcher creates an empty dispatcher. No hardware is assumed
// present; absence of a device is a steady state, not an error.
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

// Subscribe registers fn for actions from the given source kind; an
// empty source subscribes to every source. Subscribe never fails,
// whether or not the hardware is connected.
func (d *Dispatcher) Subscribe(source string, fn func(domain.NavigationAction)) *Subscription {
	sub := &Subscription{d: d, source: source, fn: fn}

	d.mu.Lock()
	d.subs = append(d.subs, sub)
	d.mu.Unlock()

	return sub
}

// Unsubscribe removes the handle. After it returns, the handle's
// callback will not be invoked again.
func (s *Subscription) Unsubscribe() {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for i, sub := range s.d.subs {
		if sub == s {
			s.d.subs = append(s.d.subs[:i], s.d.subs[i+1:]...)
			return
		}
	}
}

// Dispatch normalizes one raw event and delivers the resulting action,
// if any, to matching subscriptions in registration order. Callbacks
// must be fast and must not call back into the dispatcher.
func (d *Dispatcher) Dispatch(source string, k Kind) {
	action, ok := Normalize(k)
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.log.Debug().Str("source", source).Str("event", string(k)).Str("action", action.Kind.String()).Msg("dispatch")
	for _, sub := range d.subs {
		if sub.source == "" || sub.source == source {
			sub.fn(action)
		}
	}
}

// SetConnected records hardware device presence, reported by the
// device-found signal independent of the action stream.
func (d *Dispatcher) SetConnected(connected bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected != connected {
		d.log.Info().Bool("connected", connected).Msg("pedal presence changed")
	}
	d.connected = connected
}

// Connected reports whether the hardware device is currently present.
func (d *Dispatcher) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}
