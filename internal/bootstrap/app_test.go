package bootstrap

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"transcript-navigator/internal/config"
	"transcript-navigator/internal/dispatch"
	"transcript-navigator/internal/domain"
	"transcript-navigator/internal/notify"
	"transcript-navigator/internal/session"
	"transcript-navigator/internal/transcribe"
)

// fakeStore returns deterministic settings for App tests.
type fakeStore struct {
	settings domain.Settings
	saved    []domain.Settings
}

// Load returns preconfigured settings.
func (s *fakeStore) Load() (domain.Settings, error) {
	return s.settings, nil
}

// Save records the persisted settings.
func (s *fakeStore) Save(cfg domain.Settings) error {
	s.saved = append(s.saved, cfg)
	s.settings = cfg
	return nil
}

// fakeJobClient scripts the remote server for App tests.
type fakeJobClient struct {
	updates []transcribe.Update
}

// Submit accepts every upload.
func (c *fakeJobClient) Submit(ctx context.Context, filename string, audio *bytes.Reader) (transcribe.SubmitResponse, error) {
	return transcribe.SubmitResponse{JobID: "job-1", Filename: filename}, nil
}

// Watch replays the scripted updates and closes.
func (c *fakeJobClient) Watch(ctx context.Context, filename string) <-chan transcribe.Update {
	ch := make(chan transcribe.Update, len(c.updates))
	for _, u := range c.updates {
		ch <- u
	}
	close(ch)
	return ch
}

// newTestApp builds an App wired with fakes, bypassing New.
func newTestApp(t *testing.T, client session.JobClient) *App {
	t.Helper()
	settings := config.DefaultSettings()
	log := zerolog.Nop()
	app := &App{
		Settings:   settings,
		Store:      &fakeStore{settings: settings},
		Dispatcher: dispatch.NewDispatcher(log),
		events:     notify.NewEventBus(100),
		log:        log,
	}
	app.Sessions = session.NewManager(client, &appSink{app: app}, settings, log)
	t.Cleanup(app.Sessions.Close)
	return app
}

// jobUpdate builds one status update for the fake client script.
func jobUpdate(status domain.JobStatus, result *domain.JobResult) transcribe.Update {
	return transcribe.Update{
		Job: domain.TranscriptionJob{
			ID:       "job-1",
			Filename: "clip.mp3",
			Status:   status,
			Result:   result,
		},
	}
}

// TestLoadFilePublishesStatusAndTranscriptEvents checks event flow for
// a successful transcription round trip.
func TestLoadFilePublishesStatusAndTranscriptEvents(t *testing.T) {
	client := &fakeJobClient{
		updates: []transcribe.Update{
			jobUpdate(domain.JobStatusQueued, nil),
			jobUpdate(domain.JobStatusProcessing, nil),
			jobUpdate(domain.JobStatusComplete, &domain.JobResult{
				Text:     "hi there",
				Language: "en",
				Segments: []domain.Segment{
					{ID: 0, Start: 0, End: 2, Text: "hi"},
					{ID: 1, Start: 2, End: 5, Text: "there"},
				},
			}),
		},
	}
	app := newTestApp(t, client)

	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("audio-bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	info, err := app.LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if info.Filename != "clip.mp3" {
		t.Fatalf("filename = %q, want clip.mp3", info.Filename)
	}

	waitForStatus(t, app, domain.JobStatusComplete)
	events := app.SessionEvents(0)
	assertEventTypeExists(t, events, notify.EventTypeStatus)
	assertEventTypeExists(t, events, notify.EventTypeTranscript)

	snap, err := app.TranscriptState()
	if err != nil {
		t.Fatalf("transcript state: %v", err)
	}
	if len(snap.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(snap.Segments))
	}
	if snap.FullText != "hi there" {
		t.Fatalf("full text = %q, want %q", snap.FullText, "hi there")
	}
}

// TestLoadFileFailurePublishesToast checks the error surfacing path.
func TestLoadFileFailurePublishesToast(t *testing.T) {
	client := &fakeJobClient{
		updates: []transcribe.Update{
			jobUpdate(domain.JobStatusQueued, nil),
			jobUpdate(domain.JobStatusError, &domain.JobResult{Error: "decode failed"}),
		},
	}
	app := newTestApp(t, client)

	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("audio-bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if _, err := app.LoadFile(path); err != nil {
		t.Fatalf("load file: %v", err)
	}

	waitForStatus(t, app, domain.JobStatusError)
	assertEventTypeExists(t, app.SessionEvents(0), notify.EventTypeToast)
}

// TestLoadFileMissingPathReturnsError checks the read failure path.
func TestLoadFileMissingPathReturnsError(t *testing.T) {
	app := newTestApp(t, &fakeJobClient{})
	if _, err := app.LoadFile(filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestTranscriptStateWithoutSessionReturnsZeroSnapshot checks that the
// UI can poll state before any file is loaded.
func TestTranscriptStateWithoutSessionReturnsZeroSnapshot(t *testing.T) {
	app := newTestApp(t, &fakeJobClient{})
	snap, err := app.TranscriptState()
	if err != nil {
		t.Fatalf("transcript state: %v", err)
	}
	if len(snap.Segments) != 0 || snap.IsPlaying {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

// TestSaveSettingsNormalizesAndPersists checks normalization on save.
func TestSaveSettingsNormalizesAndPersists(t *testing.T) {
	app := newTestApp(t, &fakeJobClient{})
	app.client = newClientHolder(app.Settings, app.log)
	store := app.Store.(*fakeStore)

	saved, err := app.SaveSettings(domain.Settings{ServerURL: "  http://example:9000/  "})
	if err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if saved.ServerURL != "http://example:9000" {
		t.Fatalf("server url = %q, want trimmed", saved.ServerURL)
	}
	if saved.PollIntervalSeconds <= 0 {
		t.Fatalf("poll interval = %v, want backfilled default", saved.PollIntervalSeconds)
	}
	if len(store.saved) != 1 {
		t.Fatalf("store saves = %d, want 1", len(store.saved))
	}
}

// TestPedalConnectionRoundTrip checks device presence propagation.
func TestPedalConnectionRoundTrip(t *testing.T) {
	app := newTestApp(t, &fakeJobClient{})
	if app.IsPedalConnected() {
		t.Fatal("pedal should start disconnected")
	}
	app.PedalConnected(true)
	if !app.IsPedalConnected() {
		t.Fatal("pedal should be connected")
	}
	app.PedalConnected(false)
	if app.IsPedalConnected() {
		t.Fatal("pedal should be disconnected")
	}
}

// TestParseActionVocabulary checks the UI action name mapping.
func TestParseActionVocabulary(t *testing.T) {
	cases := []struct {
		kind string
		want domain.ActionKind
		ok   bool
	}{
		{"prev", domain.ActionPrev, true},
		{"play", domain.ActionPlay, true},
		{"pause", domain.ActionPause, true},
		{"next", domain.ActionNext, true},
		{"seek", domain.ActionSeekTo, true},
		{"rewind", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		action, ok := parseAction(tc.kind, 1.5)
		if ok != tc.ok {
			t.Fatalf("parseAction(%q) ok = %v, want %v", tc.kind, ok, tc.ok)
		}
		if ok && action.Kind != tc.want {
			t.Fatalf("parseAction(%q) kind = %v, want %v", tc.kind, action.Kind, tc.want)
		}
	}
	action, _ := parseAction("seek", 7.25)
	if action.SeekTarget != 7.25 {
		t.Fatalf("seek target = %v, want 7.25", action.SeekTarget)
	}
}

// TestStartupSubscribesNavigationToDispatcher checks that pedal events
// reach the session after Startup and stop after Shutdown.
func TestStartupSubscribesNavigationToDispatcher(t *testing.T) {
	app := newTestApp(t, &fakeJobClient{})
	app.Startup(context.Background())

	// Dispatching with no session loaded must be a silent no-op.
	app.PedalEvent("center-pressed")
	app.ButtonEvent("right-pressed")

	app.Shutdown(context.Background())
	app.PedalEvent("center-pressed")
}

// TestSessionEventsSinceFiltersHistory checks catch-up semantics.
func TestSessionEventsSinceFiltersHistory(t *testing.T) {
	app := newTestApp(t, &fakeJobClient{})
	sink := &appSink{app: app}
	sink.StatusChanged(domain.JobStatusQueued)
	sink.StatusChanged(domain.JobStatusProcessing)
	sink.Failure("boom")

	all := app.SessionEvents(0)
	if len(all) != 3 {
		t.Fatalf("events = %d, want 3", len(all))
	}
	tail := app.SessionEvents(all[1].Seq)
	if len(tail) != 1 || tail[0].Type != notify.EventTypeToast {
		t.Fatalf("tail = %+v, want single toast", tail)
	}
}

// waitForStatus polls until the session reaches the wanted status.
func waitForStatus(t *testing.T, app *App, want domain.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := app.TranscriptState()
		if err == nil && snap.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	snap, _ := app.TranscriptState()
	t.Fatalf("status = %s, want %s", snap.Status, want)
}

// assertEventTypeExists verifies at least one event of given type exists.
func assertEventTypeExists(t *testing.T, events []notify.Event, want notify.EventType) {
	t.Helper()
	for _, event := range events {
		if event.Type == want {
			return
		}
	}
	t.Fatalf("event type %s not found", want)
}
