package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deskscribe/internal/domain"
	"deskscribe/internal/ports"
)

// State is the engine's lifecycle position.
type State string

const (
	StateIdle          State = "idle"
	StateSessionActive State = "session_active"
)

// Config controls streaming settings and the restart policy.
type Config struct {
	Streaming ports.StreamingConfig

	// MaxRestartFailures bounds consecutive sessions that terminate without
	// ever being fed audio. Past the bound the engine gives up and surfaces
	// a recognition error instead of restarting forever.
	MaxRestartFailures int
	RestartBackoff     time.Duration
}

// Engine owns a chain of recognition sessions. Streaming recognizers have a
// bounded session lifetime; when a session ends (final result or error)
// while the engine has not been stopped, a fresh session is begun so capture
// is never left without an active recognizer. Buffers fed during the brief
// restart window are dropped, not queued.
type Engine struct {
	provider ports.TranscriptionProvider
	cfg      Config
	log      *zap.Logger

	results chan domain.TranscriptEvent
	fatal   chan error

	mu        sync.Mutex
	state     State
	session   ports.StreamingSession
	sessionID string
	fed       bool
	failures  int
	stopped   bool
	quit      chan struct{}
	ctx       context.Context
}

func NewEngine(provider ports.TranscriptionProvider, cfg Config, log *zap.Logger) *Engine {
	if cfg.MaxRestartFailures <= 0 {
		cfg.MaxRestartFailures = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		provider: provider,
		cfg:      cfg,
		log:      log.Named("engine"),
		results:  make(chan domain.TranscriptEvent, 64),
		fatal:    make(chan error, 1),
		state:    StateIdle,
	}
}

// Results delivers recognition events in the order the recognizer produced
// them, across session restarts. The channel lives as long as the engine.
func (e *Engine) Results() <-chan domain.TranscriptEvent {
	return e.results
}

// Fatal delivers the single terminal error emitted when the restart policy
// gives up.
func (e *Engine) Fatal() <-chan error {
	return e.fatal
}

// State returns the engine's current lifecycle position.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SessionID identifies the live recognition session; empty while idle.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Begin opens a fresh recognition session. No-op when one is already active.
func (e *Engine) Begin(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateSessionActive {
		e.mu.Unlock()
		return nil
	}
	e.stopped = false
	e.failures = 0
	e.quit = make(chan struct{})
	e.ctx = ctx
	e.mu.Unlock()

	return e.startSession(ctx)
}

func (e *Engine) startSession(ctx context.Context) error {
	session, err := e.provider.StartStreaming(ctx, e.cfg.Streaming)
	if err != nil {
		return fmt.Errorf("starting recognition session: %w", err)
	}

	id := uuid.NewString()
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		_ = session.Close()
		return nil
	}
	e.session = session
	e.sessionID = id
	e.state = StateSessionActive
	e.fed = false
	quit := e.quit
	e.mu.Unlock()

	e.log.Debug("recognition session active", zap.String("session_id", id))
	go e.watch(session, id, quit)
	return nil
}

// Feed appends one converted buffer to the live session, in call order.
// While idle the buffer is silently dropped; that race is legitimate during
// the restart window. Feed never fails the caller.
func (e *Engine) Feed(buf domain.AudioBuffer) {
	e.mu.Lock()
	if e.state != StateSessionActive || e.session == nil {
		e.mu.Unlock()
		return
	}
	session := e.session
	e.fed = true
	e.failures = 0
	e.mu.Unlock()

	if err := session.SendAudio(buf.Data); err != nil {
		// The session is dying; the watcher will restart it.
		e.log.Warn("audio append failed", zap.Error(err))
	}
}

// Stop cancels any active session and transitions to idle unconditionally.
// Safe to call from idle and safe to call repeatedly.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped && e.session == nil {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.state = StateIdle
	e.sessionID = ""
	session := e.session
	e.session = nil
	quit := e.quit
	e.quit = nil
	e.mu.Unlock()

	if quit != nil {
		close(quit)
	}
	if session != nil {
		_ = session.Close()
	}
}

// watch drains one session's events and drives the restart transition when
// the session terminates.
func (e *Engine) watch(session ports.StreamingSession, id string, quit chan struct{}) {
	sawFinal := false

drain:
	for {
		select {
		case ev, ok := <-session.Events():
			if !ok {
				break drain
			}
			select {
			case e.results <- ev:
			case <-quit:
				return
			}
			if ev.Final() {
				sawFinal = true
				break drain
			}
		case <-quit:
			return
		}
	}

	if sawFinal {
		_ = session.Close()
	}
	err := session.Wait()

	e.mu.Lock()
	if e.stopped || e.session != session {
		e.mu.Unlock()
		return
	}
	e.state = StateIdle
	e.session = nil
	e.sessionID = ""
	fed := e.fed
	if fed {
		e.failures = 0
	} else {
		e.failures++
	}
	failures := e.failures
	ctx := e.ctx
	e.mu.Unlock()

	if err != nil {
		e.log.Warn("recognition session terminated",
			zap.String("session_id", id),
			zap.Error(err))
	}

	// A session that ends without having seen audio is a failed restart
	// candidate; too many in a row means the recognizer is persistently
	// broken and chaining would loop forever.
	if !fed && failures >= e.cfg.MaxRestartFailures {
		e.giveUp(err)
		return
	}

	e.restart(ctx, quit, fed)
}

func (e *Engine) restart(ctx context.Context, quit chan struct{}, immediate bool) {
	for {
		if !immediate && e.cfg.RestartBackoff > 0 {
			select {
			case <-time.After(e.cfg.RestartBackoff):
			case <-quit:
				return
			}
		}

		err := e.startSession(ctx)
		if err == nil {
			return
		}

		e.mu.Lock()
		if e.stopped {
			e.mu.Unlock()
			return
		}
		e.failures++
		failures := e.failures
		e.mu.Unlock()

		e.log.Warn("recognition session restart failed",
			zap.Int("consecutive_failures", failures),
			zap.Error(err))

		if failures >= e.cfg.MaxRestartFailures {
			e.giveUp(err)
			return
		}
		immediate = false
	}
}

func (e *Engine) giveUp(cause error) {
	if cause == nil {
		cause = errors.New("recognition sessions terminating without consuming audio")
	}
	e.log.Error("giving up on recognition restarts", zap.Error(cause))
	select {
	case e.fatal <- &domain.RecognitionError{Err: cause}:
	default:
	}
}
