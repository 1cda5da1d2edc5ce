// Package app wires the Droidvox components together and exposes the HTTP
// API: session lifecycle, directive confirmation, device and transcript
// inspection, one-shot generation, health probes, and metrics.
package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/droidvox/droidvox/internal/action"
	"github.com/droidvox/droidvox/internal/capture"
	"github.com/droidvox/droidvox/internal/config"
	"github.com/droidvox/droidvox/internal/device"
	"github.com/droidvox/droidvox/internal/health"
	"github.com/droidvox/droidvox/internal/observe"
	"github.com/droidvox/droidvox/internal/playback"
	"github.com/droidvox/droidvox/internal/session"
	"github.com/droidvox/droidvox/internal/transcript"
	"github.com/droidvox/droidvox/pkg/audio"
	"github.com/droidvox/droidvox/pkg/provider/live"
	"github.com/droidvox/droidvox/pkg/provider/live/gemini"
	"github.com/droidvox/droidvox/pkg/provider/oneshot"
)

// notificationLimit bounds the retained notification feed.
const notificationLimit = 64

// videoRequestTimeout bounds one-shot video generation, which is a polled
// long-running operation on the provider side.
const videoRequestTimeout = 10 * time.Minute

// Notification is one user-visible message produced by directive dispatch.
type Notification struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Generator is the one-shot generation surface the API exposes. Satisfied by
// [oneshot.Client]; tests substitute a fake.
type Generator interface {
	Chat(ctx context.Context, prompt string) (string, error)
	Speech(ctx context.Context, text string) ([]byte, error)
	Image(ctx context.Context, prompt string) ([]byte, string, error)
	Video(ctx context.Context, prompt string) ([]byte, error)
}

// Options carries the injectable pieces of an [App]. Zero-valued fields get
// production defaults built from the config.
type Options struct {
	// Source is the microphone input for live sessions.
	Source capture.Source

	// Output is where scheduled playback goes.
	Output playback.Output

	// Provider establishes live sessions. Defaults to the Gemini Live client.
	Provider live.Provider

	// Generator serves one-shot requests. Defaults to the Gemini client; may
	// be nil, in which case generation endpoints return 503.
	Generator Generator

	// Metrics receives instrumentation. Defaults to the package-level
	// instance.
	Metrics *observe.Metrics
}

// App owns all long-lived state of the Droidvox server.
type App struct {
	cfg     *config.Config
	metrics *observe.Metrics

	source     capture.Source
	device     *device.State
	audit      *action.AuditLog
	history    *transcript.History
	dispatcher *action.Dispatcher
	engine     *session.Engine
	generator  Generator
	health     *health.Handler

	mu    sync.Mutex
	notes []Notification
}

// New builds an App from cfg and opts.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if opts.Source == nil || opts.Output == nil {
		return nil, errors.New("app: audio source and output are required")
	}

	a := &App{
		cfg:     cfg,
		metrics: opts.Metrics,
		source:  opts.Source,
		device:  device.New(),
		audit:   action.NewAuditLog(cfg.Dispatch.AuditLimit),
		history: transcript.NewHistory(cfg.Transcript.HistoryLimit),
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	a.dispatcher = action.NewDispatcher(action.Config{
		Device:       a.device,
		Audit:        a.audit,
		Notify:       a.notify,
		ConfirmGated: cfg.Dispatch.ConfirmGated,
	})

	provider := opts.Provider
	if provider == nil {
		var gopts []gemini.Option
		if cfg.Live.Model != "" {
			gopts = append(gopts, gemini.WithModel(cfg.Live.Model))
		}
		if cfg.Live.BaseURL != "" {
			gopts = append(gopts, gemini.WithBaseURL(cfg.Live.BaseURL))
		}
		provider = gemini.New(cfg.Live.APIKey, gopts...)
	}

	captureRate := cfg.Audio.CaptureSampleRate
	if captureRate <= 0 {
		captureRate = audio.CaptureSampleRate
	}

	a.engine = session.NewEngine(session.Config{
		Provider: provider,
		Live: live.Config{
			Instructions:    cfg.Assistant.Instructions,
			Voice:           cfg.Live.Voice,
			InputSampleRate: captureRate,
		},
		Source:         opts.Source,
		Output:         opts.Output,
		Dispatcher:     a.dispatcher,
		History:        a.history,
		ConnectTimeout: time.Duration(cfg.Live.ConnectTimeoutSeconds) * time.Second,
		Metrics:        a.metrics,
	})

	a.generator = opts.Generator
	if a.generator == nil {
		apiKey := cfg.Oneshot.APIKey
		if apiKey == "" {
			apiKey = cfg.Live.APIKey
		}
		if apiKey != "" {
			gen, err := oneshot.New(ctx, oneshot.Config{
				APIKey:      apiKey,
				ChatModel:   cfg.Oneshot.ChatModel,
				SpeechModel: cfg.Oneshot.SpeechModel,
				ImageModel:  cfg.Oneshot.ImageModel,
				VideoModel:  cfg.Oneshot.VideoModel,
				Metrics:     a.metrics,
			})
			if err != nil {
				return nil, fmt.Errorf("app: oneshot client: %w", err)
			}
			a.generator = gen
		}
	}

	a.health = health.New(
		health.Checker{Name: "session", Check: a.checkSession},
		health.Checker{Name: "generator", Check: a.checkGenerator},
	)

	return a, nil
}

// checkSession fails readiness while the session engine is in a failed state.
func (a *App) checkSession(context.Context) error {
	if st := a.engine.State(); st == session.StateFailed {
		return fmt.Errorf("session engine is in state %s", st)
	}
	return nil
}

// checkGenerator fails readiness when no one-shot backend is configured.
func (a *App) checkGenerator(context.Context) error {
	if a.generator == nil {
		return errors.New("no generation backend configured")
	}
	return nil
}

// notify appends one notification to the bounded feed.
func (a *App) notify(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notes = append(a.notes, Notification{Text: text, At: time.Now()})
	if len(a.notes) > notificationLimit {
		a.notes = a.notes[len(a.notes)-notificationLimit:]
	}
}

// Notifications returns a copy of the notification feed, oldest first.
func (a *App) Notifications() []Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Notification, len(a.notes))
	copy(out, a.notes)
	return out
}

// Close stops the active session, if any, and releases the audio source.
// Sessions only borrow the source, so it is closed here, once, at shutdown.
func (a *App) Close() error {
	if err := a.engine.Stop(); err != nil && !errors.Is(err, session.ErrNotActive) {
		return err
	}
	return a.source.Close()
}

// Handler returns the fully wired HTTP handler, including the observability
// middleware.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/session/start", a.handleSessionStart)
	mux.HandleFunc("POST /v1/session/stop", a.handleSessionStop)
	mux.HandleFunc("GET /v1/session", a.handleSessionGet)
	mux.HandleFunc("POST /v1/confirm", a.handleConfirm)
	mux.HandleFunc("POST /v1/cancel", a.handleCancel)
	mux.HandleFunc("GET /v1/device", a.handleDevice)
	mux.HandleFunc("GET /v1/transcript", a.handleTranscript)
	mux.HandleFunc("GET /v1/audit", a.handleAudit)
	mux.HandleFunc("GET /v1/notifications", a.handleNotifications)
	mux.HandleFunc("POST /v1/generate/chat", a.handleGenerateChat)
	mux.HandleFunc("POST /v1/generate/speech", a.handleGenerateSpeech)
	mux.HandleFunc("POST /v1/generate/image", a.handleGenerateImage)
	mux.HandleFunc("POST /v1/generate/video", a.handleGenerateVideo)

	a.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(a.metrics)(mux)
}

// ── Handlers ──────────────────────────────────────────────────────────────────

func (a *App) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Start(r.Context()); err != nil {
		slog.Error("session start failed", "err", err)
		writeError(w, http.StatusBadGateway, "session start failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": a.engine.State().String()})
}

func (a *App) handleSessionStop(w http.ResponseWriter, _ *http.Request) {
	if err := a.engine.Stop(); err != nil {
		if errors.Is(err, session.ErrNotActive) {
			writeError(w, http.StatusConflict, "no active session")
			return
		}
		writeError(w, http.StatusInternalServerError, "session stop failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": a.engine.State().String()})
}

func (a *App) handleSessionGet(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"state": a.engine.State().String()}
	if p := a.dispatcher.Pending(); p != nil {
		resp["pending"] = p
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleConfirm(w http.ResponseWriter, _ *http.Request) {
	if !a.dispatcher.Confirm() {
		writeError(w, http.StatusNotFound, "no directive awaiting confirmation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (a *App) handleCancel(w http.ResponseWriter, _ *http.Request) {
	if !a.dispatcher.Cancel() {
		writeError(w, http.StatusNotFound, "no directive awaiting confirmation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (a *App) handleDevice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.device.Snapshot())
}

func (a *App) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	turns := a.history.Turns()
	if turns == nil {
		turns = []transcript.Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

func (a *App) handleAudit(w http.ResponseWriter, _ *http.Request) {
	entries := a.audit.Entries()
	if entries == nil {
		entries = []action.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *App) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notifications": a.Notifications()})
}

// promptRequest is the shared request body of the generation endpoints.
type promptRequest struct {
	Prompt string `json:"prompt"`
	Text   string `json:"text"`
}

func (a *App) generator503(w http.ResponseWriter) bool {
	if a.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "no generation backend configured")
		return true
	}
	return false
}

func (a *App) handleGenerateChat(w http.ResponseWriter, r *http.Request) {
	if a.generator503(w) {
		return
	}
	req, ok := readPrompt(w, r)
	if !ok {
		return
	}
	reply, err := a.generator.Chat(r.Context(), req.Prompt)
	if err != nil {
		slog.Error("chat generation failed", "err", err)
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": reply})
}

func (a *App) handleGenerateSpeech(w http.ResponseWriter, r *http.Request) {
	if a.generator503(w) {
		return
	}
	req, ok := readPrompt(w, r)
	if !ok {
		return
	}
	text := req.Text
	if text == "" {
		text = req.Prompt
	}
	pcm, err := a.generator.Speech(r.Context(), text)
	if err != nil {
		slog.Error("speech generation failed", "err", err)
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"audio":       base64.StdEncoding.EncodeToString(pcm),
		"sample_rate": oneshot.SpeechSampleRate,
	})
}

func (a *App) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	if a.generator503(w) {
		return
	}
	req, ok := readPrompt(w, r)
	if !ok {
		return
	}
	data, mimeType, err := a.generator.Image(r.Context(), req.Prompt)
	if err != nil {
		slog.Error("image generation failed", "err", err)
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"image":     base64.StdEncoding.EncodeToString(data),
		"mime_type": mimeType,
	})
}

func (a *App) handleGenerateVideo(w http.ResponseWriter, r *http.Request) {
	if a.generator503(w) {
		return
	}
	req, ok := readPrompt(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), videoRequestTimeout)
	defer cancel()
	data, err := a.generator.Video(ctx, req.Prompt)
	if err != nil {
		slog.Error("video generation failed", "err", err)
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"video": base64.StdEncoding.EncodeToString(data),
	})
}

// ── JSON helpers ──────────────────────────────────────────────────────────────

func readPrompt(w http.ResponseWriter, r *http.Request) (promptRequest, bool) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return req, false
	}
	if req.Prompt == "" && req.Text == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
