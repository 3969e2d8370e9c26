package main

import (
	"context"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"deskscribe/internal/bootstrap"
	"deskscribe/internal/config"
	"deskscribe/internal/domain"
	"deskscribe/internal/usecase"
)

const (
	eventSession    = "deskscribe:session"
	eventTranscript = "deskscribe:transcript"
	eventError      = "deskscribe:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.Controller
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, "")
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

// StartTranscription begins a live capture and transcription session.
func (a *App) StartTranscription() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx); err != nil {
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// StopTranscription ends the live session. The transcript captured so far
// stays available through GetStatus.
func (a *App) StopTranscription() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.controller.Stop(a.ctx)
	return a.controller.Status(), nil
}

// ClearError acknowledges a surfaced failure.
func (a *App) ClearError() {
	if a.controller != nil {
		a.controller.ClearError()
	}
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"provider":        "Deepgram",
		"model":           a.cfg.Recognizer.Model,
		"language":        a.cfg.Recognizer.Language,
		"preferredSource": a.cfg.Audio.PreferredSource,
		"sampleRate":      fmt.Sprintf("%d", a.cfg.Audio.SampleRate),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// TranscriptUpdated emits the full replacement transcript text.
func (a *App) TranscriptUpdated(text string, final bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, map[string]any{
		"text":  text,
		"final": final,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonPermissionCheck:
		return "Checking permissions..."
	case domain.SessionReasonCaptureStarted:
		return "Recording"
	case domain.SessionReasonCaptureStopped:
		return "Recording stopped"
	case domain.SessionReasonCaptureLost:
		return "Audio capture stopped unexpectedly"
	case domain.SessionReasonStartFailed:
		return "Could not start recording"
	case domain.SessionReasonRecognitionFailed:
		return "Transcription failed"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermission:
		return "Permission denied"
	case domain.ErrorCodeCapture:
		return "Audio capture issue"
	case domain.ErrorCodeConversion:
		return "Audio format issue"
	case domain.ErrorCodeRecognition:
		return "Transcription error"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
