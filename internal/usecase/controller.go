package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"deskscribe/internal/domain"
	"deskscribe/internal/ports"
)

var ErrNoCaptureSource = errors.New("no capture source available on this host")

// bufferConverter normalizes captured buffers for the recognizer.
type bufferConverter interface {
	Convert(domain.AudioBuffer) (domain.AudioBuffer, error)
}

// recognitionEngine is the self-restarting session chain the controller
// feeds converted audio into.
type recognitionEngine interface {
	Begin(ctx context.Context) error
	Feed(domain.AudioBuffer)
	Stop()
	Results() <-chan domain.TranscriptEvent
	Fatal() <-chan error
}

// Config controls one capture/transcription run.
type Config struct {
	Capture ports.CaptureConfig
}

// Controller orchestrates the pipeline: permissions, capture source
// selection, format conversion, and the recognition engine. Exactly one
// capture session is active at a time; Start while already recording is a
// no-op.
type Controller struct {
	permissions ports.PermissionGateway
	sources     []ports.CaptureSource
	converter   bufferConverter
	engine      recognitionEngine
	events      ports.EventSink
	cfg         Config
	log         *zap.Logger

	mu         sync.Mutex
	state      domain.SessionState
	transcript string
	errMsg     string
	sourceName string
	current    *captureRun
}

// captureRun holds the per-session resources torn down together.
type captureRun struct {
	stream     ports.CaptureStream
	aggregator *transcriptAggregator

	quit        chan struct{}
	quitOnce    sync.Once
	pumpDone    chan struct{}
	publishDone chan struct{}
	closing     atomic.Bool
}

func (r *captureRun) stopPublishing() {
	r.quitOnce.Do(func() { close(r.quit) })
}

func NewController(
	permissions ports.PermissionGateway,
	sources []ports.CaptureSource,
	converter bufferConverter,
	engine recognitionEngine,
	events ports.EventSink,
	cfg Config,
	log *zap.Logger,
) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		permissions: permissions,
		sources:     sources,
		converter:   converter,
		engine:      engine,
		events:      events,
		cfg:         cfg,
		log:         log.Named("controller"),
		state:       domain.SessionStateIdle,
	}
}

// Start verifies permissions, opens the preferred capture source, begins
// the recognition engine, and wires capture output through the converter
// into the engine. Any failed step unwinds everything the earlier steps
// allocated before the error is published and returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case domain.SessionStateStarting, domain.SessionStateRecording, domain.SessionStateStopping:
		c.mu.Unlock()
		return nil
	}
	c.state = domain.SessionStateStarting
	c.errMsg = ""
	c.transcript = ""
	c.mu.Unlock()
	c.events.SessionStateChanged(domain.SessionStateStarting, domain.SessionReasonPermissionCheck)

	if err := c.permissions.Ensure(ctx, domain.PermissionSpeech, domain.PermissionAudioCapture); err != nil {
		return c.failStart(domain.ErrorCodePermission, err)
	}

	source := c.selectSource()
	if source == nil {
		return c.failStart(domain.ErrorCodeCapture, ErrNoCaptureSource)
	}

	stream, err := source.Open(ctx, c.cfg.Capture)
	if err != nil {
		return c.failStart(domain.ErrorCodeCapture, err)
	}

	if err := c.engine.Begin(ctx); err != nil {
		_ = stream.Close()
		return c.failStart(domain.ErrorCodeRecognition, err)
	}

	c.drainStaleResults()

	run := &captureRun{
		stream:      stream,
		aggregator:  newTranscriptAggregator(),
		quit:        make(chan struct{}),
		pumpDone:    make(chan struct{}),
		publishDone: make(chan struct{}),
	}

	c.mu.Lock()
	c.current = run
	c.state = domain.SessionStateRecording
	c.sourceName = source.Name()
	c.mu.Unlock()

	go c.pump(run)
	go c.publish(run)

	c.log.Info("recording started", zap.String("source", source.Name()))
	c.events.SessionStateChanged(domain.SessionStateRecording, domain.SessionReasonCaptureStarted)
	return nil
}

// Stop tears the session down best-effort: capture first, then the engine.
// It never fails visibly and is safe to call from any state, repeatedly.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	run := c.current
	c.current = nil
	// Nothing live to tear down: idle stays idle, and a surfaced error
	// stays visible until ClearError or the next Start.
	if run == nil && (c.state == domain.SessionStateIdle || c.state == domain.SessionStateError) {
		c.mu.Unlock()
		return
	}
	c.state = domain.SessionStateStopping
	c.mu.Unlock()
	c.events.SessionStateChanged(domain.SessionStateStopping, domain.SessionReasonCaptureStopped)

	if run != nil {
		run.closing.Store(true)
		if err := run.stream.Close(); err != nil {
			c.log.Warn("capture close reported an error", zap.Error(err))
		}
	}
	c.engine.Stop()
	if run != nil {
		run.stopPublishing()
		for _, done := range []<-chan struct{}{run.pumpDone, run.publishDone} {
			select {
			case <-done:
			case <-ctx.Done():
			}
		}
	}

	c.mu.Lock()
	c.state = domain.SessionStateIdle
	c.mu.Unlock()
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonCaptureStopped)
}

// ClearError acknowledges a published failure and re-arms the controller.
func (c *Controller) ClearError() {
	c.mu.Lock()
	if c.state != domain.SessionStateError {
		c.mu.Unlock()
		return
	}
	c.state = domain.SessionStateIdle
	c.errMsg = ""
	c.mu.Unlock()
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

// Transcript returns the current published transcript text.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

// ErrorMessage returns the current error, empty when none.
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// IsRecording reports whether a capture session is live.
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == domain.SessionStateRecording
}

// Status returns the current backend status.
func (c *Controller) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Status{
		State:      c.state,
		Recording:  c.state == domain.SessionStateRecording,
		Transcript: c.transcript,
		Message:    c.errMsg,
		Source:     c.sourceName,
	}
}

// selectSource returns the first source whose backend exists on this host.
// Order encodes preference: system mix first, microphone fallback.
func (c *Controller) selectSource() ports.CaptureSource {
	for _, source := range c.sources {
		if source.Available() {
			return source
		}
	}
	return nil
}

func (c *Controller) failStart(code domain.ErrorCode, err error) error {
	c.mu.Lock()
	c.state = domain.SessionStateError
	c.errMsg = err.Error()
	c.mu.Unlock()

	c.log.Warn("start failed", zap.String("code", string(code)), zap.Error(err))
	c.events.SessionError(code, err.Error())
	c.events.SessionStateChanged(domain.SessionStateError, domain.SessionReasonStartFailed)
	return err
}

// pump moves captured buffers through the converter into the engine, in
// arrival order, then reports how the stream ended.
func (c *Controller) pump(run *captureRun) {
	defer close(run.pumpDone)

	for buf := range run.stream.Buffers() {
		converted, err := c.converter.Convert(buf)
		if err != nil {
			// A bad buffer is dropped; nothing reaches the recognizer.
			c.log.Warn("dropping unconvertible buffer", zap.Error(err))
			continue
		}
		c.engine.Feed(converted)
	}

	if run.closing.Load() {
		return
	}

	err := run.stream.Wait()
	if err == nil {
		err = domain.ErrStream
	}
	c.handleCaptureLoss(run, err)
}

// publish mirrors engine output into the controller's observable state.
func (c *Controller) publish(run *captureRun) {
	defer close(run.publishDone)
	for {
		select {
		case ev, ok := <-c.engine.Results():
			if !ok {
				return
			}
			text := run.aggregator.Apply(ev)
			c.mu.Lock()
			if c.current == run {
				c.transcript = text
			}
			c.mu.Unlock()
			c.events.TranscriptUpdated(text, ev.Final())
		case err := <-c.engine.Fatal():
			c.handleRecognitionFailure(run, err)
			return
		case <-run.quit:
			return
		}
	}
}

// handleCaptureLoss reacts to the OS stopping the stream underneath us:
// the error is surfaced, recording ends, the transcript so far is kept.
func (c *Controller) handleCaptureLoss(run *captureRun, err error) {
	c.mu.Lock()
	if c.current != run {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.state = domain.SessionStateError
	c.errMsg = err.Error()
	c.mu.Unlock()

	c.log.Error("capture stream lost", zap.Error(err))
	run.stopPublishing()
	c.engine.Stop()
	c.events.SessionError(domain.ErrorCodeCapture, err.Error())
	c.events.SessionStateChanged(domain.SessionStateError, domain.SessionReasonCaptureLost)
}

// handleRecognitionFailure reacts to the engine giving up on restarts.
func (c *Controller) handleRecognitionFailure(run *captureRun, err error) {
	c.mu.Lock()
	if c.current != run {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.state = domain.SessionStateError
	c.errMsg = err.Error()
	c.mu.Unlock()

	c.log.Error("recognition gave up", zap.Error(err))
	run.closing.Store(true)
	_ = run.stream.Close()
	c.events.SessionError(domain.ErrorCodeRecognition, err.Error())
	c.events.SessionStateChanged(domain.SessionStateError, domain.SessionReasonRecognitionFailed)
}

// drainStaleResults discards events buffered before this run began.
func (c *Controller) drainStaleResults() {
	for {
		select {
		case <-c.engine.Results():
		case <-c.engine.Fatal():
		default:
			return
		}
	}
}
