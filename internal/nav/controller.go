// Package nav fuses playback clock samples and discrete navigation
// actions into a single current-segment state.
package nav

import (
	"sync"

	"github.com/rs/zerolog"

	"transcript-navigator/internal/domain"
	"transcript-navigator/internal/segments"
)

// NoIndex is the currentIndex value when no segment is active.
const NoIndex = -1

// ClockControl is the command surface the controller drives.
type ClockControl interface {
	Seek(t float64)
	Play()
	Pause()
}

// Notifier receives the controller's outbound side effects. It must
// not call back into the controller.
type Notifier interface {
	IndexChanged(i int)
	ScrollTo(i int)
}

// Controller is the single writer of {currentIndex, isPlaying}. Its
// two inputs, HandleSample from the clock and HandleAction from the
// dispatcher and UI, are serialized by one mutex, so any interleaving
// of the two streams is applied consistently, and identical input
// sequences produce identical outputs. Clock commands are issued after
// the lock is released; the clock's synchronous seek sample then
// re-enters HandleSample on the same goroutine.
type Controller struct {
	mu         sync.Mutex
	clock      ClockControl
	notify     Notifier
	log        zerolog.Logger
	idx        segments.Index
	hasIndex   bool
	current    int
	playing    bool
	lastSample float64
	epsilon    float64
	autoscroll bool
}

// NewController creates a controller with no segment index installed.
// epsilon is the Prev rewind tolerance in seconds.
func NewController(clock ClockControl, notify Notifier, epsilon float64, log zerolog.Logger) *Controller {
	if epsilon <= 0 {
		epsilon = 0.1
	}

	return &Controller{
		clock:      clock,
		notify:     notify,
		log:        log,
		current:    NoIndex,
		epsilon:    epsilon,
		autoscroll: true,
	}
}

// SetIndex installs the session's segment index. The active segment is
// recomputed on the next clock sample.
func (c *Controller) SetIndex(idx segments.Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idx = idx
	c.hasIndex = true
}

// SetAutoscroll toggles scroll-to-index notifications.
func (c *Controller) SetAutoscroll(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoscroll = enabled
}

// CurrentIndex returns the active segment position, or NoIndex.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// IsPlaying returns the commanded playing state.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// HandleSample applies one clock sample. An index-change notification
// is emitted only when the active segment actually changes; per-frame
// samples inside one segment are silent.
func (c *Controller) HandleSample(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSample = t

	next := NoIndex
	if i, ok := c.idx.Query(t); ok {
		next = i
	}
	if next == c.current {
		return
	}

	c.current = next
	c.notify.IndexChanged(next)
	if c.autoscroll && next != NoIndex {
		c.notify.ScrollTo(next)
	}
}

// HandleAction applies one navigation action. Unfulfillable actions
// (Next past the last segment, Next with no segments loaded) are
// silent no-ops, not errors.
func (c *Controller) HandleAction(a domain.NavigationAction) {
	c.mu.Lock()

	var cmds []func()
	switch a.Kind {
	case domain.ActionPlay:
		c.playing = true
		cmds = append(cmds, c.clock.Play)
	case domain.ActionPause:
		c.playing = false
		cmds = append(cmds, c.clock.Pause)
	case domain.ActionSeekTo:
		target := a.SeekTarget
		cmds = append(cmds, func() { c.clock.Seek(target) })
	case domain.ActionNext:
		if c.current != NoIndex && c.current < c.idx.Len()-1 {
			target := c.idx.At(c.current + 1).Start
			cmds = append(cmds, func() { c.clock.Seek(target) })
		}
	case domain.ActionPrev:
		target := c.prevTargetLocked()
		cmds = append(cmds, func() { c.clock.Seek(target) })
	default:
		c.log.Warn().Str("action", a.Kind.String()).Msg("unknown navigation action")
	}

	c.mu.Unlock()

	for _, cmd := range cmds {
		cmd()
	}
}

// prevTargetLocked resolves the Prev seek target: rewind to the prior
// segment when within epsilon of the current one's start, otherwise
// restart the current segment; with no active segment, rewind to 0.
func (c *Controller) prevTargetLocked() float64 {
	if c.current == NoIndex {
		return 0
	}

	start := c.idx.At(c.current).Start
	if c.lastSample <= start+c.epsilon {
		if c.current > 0 {
			return c.idx.At(c.current - 1).Start
		}
		return 0
	}
	return start
}
