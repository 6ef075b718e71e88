package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"transcript-navigator/internal/config"
	"transcript-navigator/internal/diagnostics"
	"transcript-navigator/internal/dispatch"
	"transcript-navigator/internal/domain"
	"transcript-navigator/internal/logging"
	"transcript-navigator/internal/notify"
	"transcript-navigator/internal/session"
	"transcript-navigator/internal/transcribe"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var audioDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Audio files",
		Pattern:     "*.mp3;*.wav;*.m4a;*.flac;*.aac;*.ogg;*.opus;*.webm",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, the session manager, the event dispatcher,
// and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Diagnostics domain.DiagnosticReport
	Sessions    *session.Manager
	Dispatcher  *dispatch.Dispatcher

	assets  fs.FS
	checker *diagnostics.Checker
	client  *clientHolder
	events  *notify.EventBus
	log     zerolog.Logger

	mu         sync.Mutex
	runtimeCtx context.Context
	navSub     *dispatch.Subscription
}

// New builds the application with persisted settings and startup
// diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures
// embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".transcript-navigator", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	log := logging.New(logging.DefaultConfig())
	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	app := &App{
		Settings:    settings,
		Store:       store,
		Diagnostics: report,
		Dispatcher:  dispatch.NewDispatcher(log),
		assets:      assets,
		checker:     checker,
		client:      newClientHolder(settings, log),
		events:      notify.NewEventBus(1000),
		log:         log,
	}
	app.Sessions = session.NewManager(app.client, &appSink{app: app}, settings, log)
	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Transcript Navigator",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores the Wails runtime context and subscribes navigation
// to the action dispatcher.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
	a.navSub = a.Dispatcher.Subscribe("", a.Sessions.HandleAction)
}

// Shutdown tears down the dispatcher subscription and the session.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	sub := a.navSub
	a.navSub = nil
	a.runtimeCtx = nil
	a.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	a.Sessions.Close()
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns the checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings)
	return a.Diagnostics, nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes
// diagnostics and the job client. The new server URL applies to the
// next loaded file; the current session keeps polling its own job.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	a.client.reconfigure(normalized)
	a.Sessions.SetAutoscroll(normalized.Autoscroll)
	return normalized, nil
}

// PickAudioFile opens a native file dialog for audio selection.
func (a *App) PickAudioFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select audio file",
		Filters: audioDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// LoadFile reads an audio file and starts a new transcription session
// for it, retiring any previous session.
func (a *App) LoadFile(path string) (session.Info, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return session.Info{}, fmt.Errorf("read audio file: %w", err)
	}

	return a.Sessions.Load(filepath.Base(path), audio), nil
}

// Navigate applies one navigation action from the UI toolbar or the
// waveform click surface.
func (a *App) Navigate(kind string, seekTarget float64) {
	action, ok := parseAction(kind, seekTarget)
	if !ok {
		a.log.Warn().Str("kind", kind).Msg("unknown navigate kind")
		return
	}
	a.Sessions.HandleAction(action)
}

// PedalEvent feeds one raw hardware pedal event into the dispatcher.
func (a *App) PedalEvent(kind string) {
	a.Dispatcher.Dispatch(dispatch.SourcePedal, dispatch.Kind(kind))
}

// ButtonEvent feeds one on-screen momentary button event into the
// dispatcher, sharing the pedal's action vocabulary.
func (a *App) ButtonEvent(kind string) {
	a.Dispatcher.Dispatch(dispatch.SourceUI, dispatch.Kind(kind))
}

// PedalConnected records the device-found signal from the host.
func (a *App) PedalConnected(connected bool) {
	a.Dispatcher.SetConnected(connected)
}

// IsPedalConnected reports current pedal presence.
func (a *App) IsPedalConnected() bool {
	return a.Dispatcher.Connected()
}

// SetMediaDuration installs the duration reported by the audio player.
func (a *App) SetMediaDuration(seconds float64) {
	a.Sessions.SetDuration(seconds)
}

// SetAutoscroll toggles scroll-to-index notifications.
func (a *App) SetAutoscroll(enabled bool) {
	a.Sessions.SetAutoscroll(enabled)
}

// SetSegmentText stores a local-only text edit for one segment.
func (a *App) SetSegmentText(index int, text string) error {
	return a.Sessions.SetSegmentText(index, text)
}

// SetSegmentChecked stores the local-only checked flag for a segment.
func (a *App) SetSegmentChecked(index int, checked bool) error {
	return a.Sessions.SetChecked(index, checked)
}

// TranscriptState returns the full current session state for the UI.
func (a *App) TranscriptState() (session.Snapshot, error) {
	snap, err := a.Sessions.Snapshot()
	if err == session.ErrNoSession {
		return snap, nil
	}
	return snap, err
}

// SessionEvents returns buffered events with sequence greater than
// sinceSeq, letting the frontend catch up after a missed push.
func (a *App) SessionEvents(sinceSeq int64) []notify.Event {
	return a.events.Since(sinceSeq)
}

// publishEvent stores event history and emits runtime push messages.
func (a *App) publishEvent(event notify.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "session:event", published)
	}
}

// emitTime pushes the current playback time without buffering; time
// samples arrive every frame and are not worth replaying.
func (a *App) emitTime(t float64) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "session:time", t)
	}
}

// runtimeContext returns the Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// parseAction maps a UI action name to a NavigationAction.
func parseAction(kind string, seekTarget float64) (domain.NavigationAction, bool) {
	switch kind {
	case "prev":
		return domain.NavigationAction{Kind: domain.ActionPrev}, true
	case "play":
		return domain.NavigationAction{Kind: domain.ActionPlay}, true
	case "pause":
		return domain.NavigationAction{Kind: domain.ActionPause}, true
	case "next":
		return domain.NavigationAction{Kind: domain.ActionNext}, true
	case "seek":
		return domain.NavigationAction{Kind: domain.ActionSeekTo, SeekTarget: seekTarget}, true
	default:
		return domain.NavigationAction{}, false
	}
}

// appSink adapts session side effects to buffered UI events.
type appSink struct {
	app *App
}

func (s *appSink) IndexChanged(i int) {
	s.app.publishEvent(notify.Event{Type: notify.EventTypeIndex, Index: &i})
}

func (s *appSink) ScrollTo(i int) {
	s.app.publishEvent(notify.Event{Type: notify.EventTypeScroll, Index: &i})
}

func (s *appSink) TimeChanged(t float64) {
	s.app.emitTime(t)
}

func (s *appSink) StatusChanged(status domain.JobStatus) {
	s.app.publishEvent(notify.Event{Type: notify.EventTypeStatus, Status: status})
}

func (s *appSink) TranscriptReady(segs []domain.Segment, fullText, language string) {
	s.app.publishEvent(notify.Event{
		Type:    notify.EventTypeTranscript,
		Message: fmt.Sprintf("Transcript ready: %d segments", len(segs)),
	})
}

func (s *appSink) Failure(message string) {
	s.app.publishEvent(notify.Event{
		Type:    notify.EventTypeToast,
		Level:   "error",
		Message: message,
	})
}

// clientHolder lets settings changes swap the job client while the
// session manager keeps a stable handle.
type clientHolder struct {
	mu     sync.Mutex
	client *transcribe.Client
	log    zerolog.Logger
}

func newClientHolder(settings domain.Settings, log zerolog.Logger) *clientHolder {
	h := &clientHolder{log: log}
	h.reconfigure(settings)
	return h
}

func (h *clientHolder) reconfigure(settings domain.Settings) {
	interval := time.Duration(settings.PollIntervalSeconds * float64(time.Second))
	h.mu.Lock()
	h.client = transcribe.NewClient(settings.ServerURL, interval, h.log)
	h.mu.Unlock()
}

func (h *clientHolder) current() *transcribe.Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client
}

// Submit forwards to the currently configured client.
func (h *clientHolder) Submit(ctx context.Context, filename string, audio *bytes.Reader) (transcribe.SubmitResponse, error) {
	return h.current().Submit(ctx, filename, audio)
}

// Watch forwards to the currently configured client.
func (h *clientHolder) Watch(ctx context.Context, filename string) <-chan transcribe.Update {
	return h.current().Watch(ctx, filename)
}
