// Package session binds one loaded audio file to its transcription
// job, segment index, playback clock, and navigation controller, and
// owns the generation tokens that make session replacement race-free.
package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"transcript-navigator/internal/domain"
	"transcript-navigator/internal/nav"
	"transcript-navigator/internal/playback"
	"transcript-navigator/internal/segments"
	"transcript-navigator/internal/transcribe"
)

// ErrNoSession is returned by operations that need a loaded file.
var ErrNoSession = errors.New("no active session")

// ErrSegmentOutOfRange is returned for overlay edits past the index.
var ErrSegmentOutOfRange = errors.New("segment index out of range")

// Clock is the playback clock surface the session owns.
type Clock interface {
	nav.ClockControl
	SetDuration(float64)
	Close()
}

// JobClient is the job lifecycle surface the session consumes.
type JobClient interface {
	Submit(ctx context.Context, filename string, audio *bytes.Reader) (transcribe.SubmitResponse, error)
	Watch(ctx context.Context, filename string) <-chan transcribe.Update
}

// Sink receives session side effects: status changes, the built
// transcript, failures, and the navigation controller's outbound
// notifications. Implementations must not call back into the Manager.
type Sink interface {
	nav.Notifier
	TimeChanged(t float64)
	StatusChanged(status domain.JobStatus)
	TranscriptReady(segs []domain.Segment, fullText, language string)
	Failure(message string)
}

// Overlay is the local-only per-segment edit state. It never feeds
// back into the remote job.
type Overlay struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
	Edited  bool   `json:"edited"`
}

// Info identifies one started session.
type Info struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`
	Filename   string `json:"filename"`
}

// session is the per-file aggregate. All fields are written under the
// manager's lock; the generation token gates every async completion.
type session struct {
	id         string
	generation uint64
	filename   string
	cancel     context.CancelFunc
	clock      Clock
	ctrl       *nav.Controller
	job        domain.TranscriptionJob
	statusRank int
	lastStatus domain.JobStatus
	ready      bool
	failed     bool
	idx        segments.Index
	language   string
	overlay    map[int]*Overlay
}

// Manager owns the current session and replaces it atomically: retire
// (invalidate generation, cancel poll, stop clock) strictly precedes
// any new-session write, and stale completions carrying an old
// generation are discarded on arrival.
type Manager struct {
	mu       sync.Mutex
	gen      atomic.Uint64
	cur      *session
	client   JobClient
	sink     Sink
	settings domain.Settings
	log      zerolog.Logger

	newClock func(onSample func(float64)) Clock
}

// NewManager creates a session manager with no session loaded.
func NewManager(client JobClient, sink Sink, settings domain.Settings, log zerolog.Logger) *Manager {
	m := &Manager{
		client:   client,
		sink:     sink,
		settings: settings,
		log:      log,
	}
	m.newClock = func(onSample func(float64)) Clock {
		return playback.New(settings.FrameRate, onSample, log)
	}
	return m
}

// Load retires any current session and starts a new one for the given
// file: submit (conflict resumes the existing job transparently), then
// poll until terminal, then build and publish the segment index once.
func (m *Manager) Load(filename string, audio []byte) Info {
	m.mu.Lock()
	m.retireLocked()

	gen := m.gen.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:         uuid.New().String(),
		generation: gen,
		filename:   filename,
		cancel:     cancel,
		overlay:    make(map[int]*Overlay),
	}
	s.clock = m.newClock(func(t float64) {
		// A stale clock callback from a replaced session must never
		// touch newer state.
		if m.gen.Load() != gen {
			return
		}
		s.ctrl.HandleSample(t)
		m.sink.TimeChanged(t)
	})
	s.ctrl = nav.NewController(s.clock, m.sink, m.settings.PrevEpsilonSeconds, m.log)
	s.ctrl.SetAutoscroll(m.settings.Autoscroll)
	m.cur = s
	m.mu.Unlock()

	m.log.Info().Str("filename", filename).Uint64("generation", gen).Msg("session started")
	go m.run(ctx, gen, filename, audio)

	return Info{ID: s.id, Generation: gen, Filename: filename}
}

// Close retires the current session, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retireLocked()
	m.cur = nil
}

// retireLocked invalidates the prior generation and cancels its poll
// loop and sampling chain before any new-session state is written.
func (m *Manager) retireLocked() {
	if m.cur == nil {
		m.gen.Add(1)
		return
	}

	m.gen.Add(1)
	m.cur.cancel()
	m.cur.clock.Close()
	m.log.Info().Str("filename", m.cur.filename).Uint64("generation", m.cur.generation).Msg("session retired")
}

// run is the per-session job driver: one submission, then the poll
// sequence. Every completion passes through the generation gate.
func (m *Manager) run(ctx context.Context, gen uint64, filename string, audio []byte) {
	resp, err := m.client.Submit(ctx, filename, bytes.NewReader(audio))
	if err != nil {
		m.fail(gen, err)
		return
	}
	if resp.Conflict {
		m.log.Info().Str("filename", filename).Str("job_id", resp.JobID).Msg("filename already queued, resuming existing job")
	}

	for u := range m.client.Watch(ctx, filename) {
		m.apply(gen, u)
	}
}

// apply folds one poll snapshot into session state.
func (m *Manager) apply(gen uint64, u transcribe.Update) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.cur
	if s == nil || s.generation != gen || m.gen.Load() != gen {
		m.log.Debug().Uint64("generation", gen).Msg("discarding stale job update")
		return
	}

	if u.Err != nil {
		m.failLocked(s, u.Err.Error())
		return
	}

	job := u.Job
	rank := job.Status.Rank()
	if rank < s.statusRank {
		m.log.Warn().Str("status", string(job.Status)).Msg("discarding backward status snapshot")
		return
	}
	s.statusRank = rank
	s.job = job

	if job.Status != s.lastStatus {
		s.lastStatus = job.Status
		m.sink.StatusChanged(job.Status)
	}

	switch job.Status {
	case domain.JobStatusComplete:
		m.completeLocked(s, job)
	case domain.JobStatusError:
		message := "transcription failed"
		if job.Result != nil && job.Result.Error != "" {
			message = (&transcribe.RemoteJobError{Message: job.Result.Error}).Error()
		}
		m.failLocked(s, message)
	}
}

// completeLocked builds and publishes the segment index exactly once.
func (m *Manager) completeLocked(s *session, job domain.TranscriptionJob) {
	if s.ready {
		return
	}
	s.ready = true

	s.idx = segments.Build(job.Result.Segments)
	s.language = job.Result.Language
	s.ctrl.SetIndex(s.idx)
	if n := s.idx.Len(); n > 0 {
		s.clock.SetDuration(s.idx.At(n - 1).End)
	}

	m.log.Info().Str("filename", s.filename).Int("segments", s.idx.Len()).Msg("transcript ready")
	m.sink.TranscriptReady(s.idx.Segments(), s.idx.FullText(), s.language)
}

// fail reports a session failure through the generation gate.
func (m *Manager) fail(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.cur
	if s == nil || s.generation != gen {
		return
	}
	m.failLocked(s, err.Error())
}

// failLocked surfaces one user-visible failure per session, never two.
func (m *Manager) failLocked(s *session, message string) {
	if s.failed {
		return
	}
	s.failed = true

	m.log.Error().Str("filename", s.filename).Str("error", message).Msg("session failed")
	m.sink.Failure(message)
}

// HandleAction routes a navigation action to the current session's
// controller. With no session loaded the action is a silent no-op.
func (m *Manager) HandleAction(a domain.NavigationAction) {
	m.mu.Lock()
	ctrl := (*nav.Controller)(nil)
	if m.cur != nil {
		ctrl = m.cur.ctrl
	}
	m.mu.Unlock()

	if ctrl == nil {
		return
	}
	ctrl.HandleAction(a)
}

// SetDuration installs the media duration reported by the player.
func (m *Manager) SetDuration(d float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		m.cur.clock.SetDuration(d)
	}
}

// SetAutoscroll toggles scroll-to-index notifications for the session.
func (m *Manager) SetAutoscroll(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		m.cur.ctrl.SetAutoscroll(enabled)
	}
}

// SetSegmentText stores a local text edit for one segment.
func (m *Manager) SetSegmentText(i int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.sessionWithSegmentLocked(i)
	if err != nil {
		return err
	}

	ov := s.overlayFor(i)
	ov.Text = text
	ov.Edited = true
	return nil
}

// SetChecked stores the local checked flag for one segment.
func (m *Manager) SetChecked(i int, checked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.sessionWithSegmentLocked(i)
	if err != nil {
		return err
	}

	s.overlayFor(i).Checked = checked
	return nil
}

func (m *Manager) sessionWithSegmentLocked(i int) (*session, error) {
	if m.cur == nil {
		return nil, ErrNoSession
	}
	if i < 0 || i >= m.cur.idx.Len() {
		return nil, ErrSegmentOutOfRange
	}
	return m.cur, nil
}

func (s *session) overlayFor(i int) *Overlay {
	ov, ok := s.overlay[i]
	if !ok {
		ov = &Overlay{}
		s.overlay[i] = ov
	}
	return ov
}

// SegmentView is one transcript row with its local overlay applied.
type SegmentView struct {
	domain.Segment
	DisplayText string `json:"displayText"`
	Checked     bool   `json:"checked"`
	Edited      bool   `json:"edited"`
}

// Snapshot is the full UI-facing state of the current session.
type Snapshot struct {
	Filename     string           `json:"filename"`
	Status       domain.JobStatus `json:"status"`
	Segments     []SegmentView    `json:"segments"`
	FullText     string           `json:"fullText"`
	Language     string           `json:"language"`
	CurrentIndex int              `json:"currentIndex"`
	IsPlaying    bool             `json:"isPlaying"`
	Failed       bool             `json:"failed"`
}

// Snapshot returns the current session state for presentation. With no
// session loaded it returns a zero snapshot and ErrNoSession.
func (m *Manager) Snapshot() (Snapshot, error) {
	m.mu.Lock()
	s := m.cur
	if s == nil {
		m.mu.Unlock()
		return Snapshot{CurrentIndex: nav.NoIndex}, ErrNoSession
	}

	snap := Snapshot{
		Filename: s.filename,
		Status:   s.job.Status,
		FullText: s.idx.FullText(),
		Language: s.language,
		Failed:   s.failed,
	}
	for i, seg := range s.idx.Segments() {
		view := SegmentView{Segment: seg, DisplayText: seg.Text}
		if ov, ok := s.overlay[i]; ok {
			view.Checked = ov.Checked
			view.Edited = ov.Edited
			if ov.Edited {
				view.DisplayText = ov.Text
			}
		}
		snap.Segments = append(snap.Segments, view)
	}
	ctrl := s.ctrl
	m.mu.Unlock()

	snap.CurrentIndex = ctrl.CurrentIndex()
	snap.IsPlaying = ctrl.IsPlaying()
	return snap, nil
}
