// Package playback provides the playback clock: a frame-paced position
// sampler with explicit seek, pause, and cancellation semantics.
package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the clock's play/pause state.
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Ticker abstracts frame pacing so tests can drive ticks manually.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// realTicker adapts time.Ticker to the Ticker interface.
type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Clock publishes the current playback position once per frame while
// playing. Sampling runs on a dedicated goroutine holding a run token;
// seek, pause, and Close invalidate the token, so at most one sampling
// chain is live per clock and no sample is published after Pause
// returns. The OnSample callback runs with the clock lock held and
// must not call back into the clock.
type Clock struct {
	mu       sync.Mutex
	state    State
	base     float64
	baseAt   time.Time
	duration float64
	run      uint64
	done     chan struct{}

	onSample  func(float64)
	interval  time.Duration
	now       func() time.Time
	newTicker func(time.Duration) Ticker
	log       zerolog.Logger
}

// New creates an idle clock sampling at the given frame rate.
func New(frameRate int, onSample func(float64), log zerolog.Logger) *Clock {
	if frameRate <= 0 {
		frameRate = 30
	}

	return &Clock{
		state:    StateIdle,
		onSample: onSample,
		interval: time.Second / time.Duration(frameRate),
		now:      time.Now,
		newTicker: func(d time.Duration) Ticker {
			return &realTicker{t: time.NewTicker(d)}
		},
		log: log,
	}
}

// State returns the current play/pause state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Duration returns the configured media duration.
func (c *Clock) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// SetDuration sets the media duration and clamps the position to it.
func (c *Clock) SetDuration(d float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d < 0 {
		d = 0
	}
	c.duration = d
	if c.base > d {
		c.base = d
	}
}

// Position returns the current playback position.
func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionAtLocked(c.now())
}

// Play starts or resumes frame-paced sampling.
func (c *Clock) Play() {
	c.mu.Lock()
	if c.state == StatePlaying {
		c.mu.Unlock()
		return
	}

	c.state = StatePlaying
	c.baseAt = c.now()
	token, tick, done := c.startChainLocked()
	c.mu.Unlock()

	c.log.Debug().Float64("position", c.base).Msg("clock play")
	go c.sampleLoop(token, tick, done)
}

// Pause stops sampling. When Pause returns, no further sample will be
// published: publication holds the clock lock and rechecks the run
// token, which this call invalidates.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return
	}

	c.base = c.positionAtLocked(c.now())
	c.state = StatePaused
	c.cancelChainLocked()
	c.log.Debug().Float64("position", c.base).Msg("clock pause")
}

// Seek moves the position, clamped to [0, duration], without changing
// the play/pause state. The new position is published synchronously,
// bypassing the frame cadence; any pending sampling chain is cancelled
// and, if playing, replaced with a fresh one.
func (c *Clock) Seek(t float64) {
	c.mu.Lock()
	t = c.clampLocked(t)
	c.base = t
	c.baseAt = c.now()
	c.cancelChainLocked()

	var (
		token uint64
		tick  Ticker
		done  chan struct{}
	)
	playing := c.state == StatePlaying
	if playing {
		token, tick, done = c.startChainLocked()
	}

	if c.onSample != nil {
		c.onSample(t)
	}
	c.mu.Unlock()

	if playing {
		go c.sampleLoop(token, tick, done)
	}
}

// Close stops any sampling chain and returns the clock to idle.
func (c *Clock) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelChainLocked()
	c.state = StateIdle
	c.base = 0
}

// sampleLoop publishes positions until its run token is invalidated or
// the position reaches the duration.
func (c *Clock) sampleLoop(token uint64, tick Ticker, done chan struct{}) {
	defer tick.Stop()

	for {
		select {
		case <-done:
			return
		case now, ok := <-tick.C():
			if !ok {
				return
			}

			c.mu.Lock()
			if c.run != token || c.state != StatePlaying {
				c.mu.Unlock()
				return
			}

			pos := c.positionAtLocked(now)
			c.base = pos
			c.baseAt = now
			ended := c.duration > 0 && pos >= c.duration
			if ended {
				c.state = StatePaused
				c.cancelChainLocked()
			}
			if c.onSample != nil {
				c.onSample(pos)
			}
			c.mu.Unlock()

			if ended {
				c.log.Debug().Float64("position", pos).Msg("clock reached end")
				return
			}
		}
	}
}

// startChainLocked mints a run token and frame ticker for a new chain.
func (c *Clock) startChainLocked() (uint64, Ticker, chan struct{}) {
	c.run++
	c.done = make(chan struct{})
	return c.run, c.newTicker(c.interval), c.done
}

// cancelChainLocked invalidates the active chain, if any.
func (c *Clock) cancelChainLocked() {
	c.run++
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

func (c *Clock) positionAtLocked(now time.Time) float64 {
	pos := c.base
	if c.state == StatePlaying {
		pos += now.Sub(c.baseAt).Seconds()
	}
	return c.clampLocked(pos)
}

func (c *Clock) clampLocked(t float64) float64 {
	if t < 0 {
		return 0
	}
	if c.duration > 0 && t > c.duration {
		return c.duration
	}
	return t
}
