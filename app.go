package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"voicenote/internal/bootstrap"
	"voicenote/internal/domain"
	"voicenote/internal/usecase"
)

const (
	eventSession    = "voicenote:session"
	eventTranscript = "voicenote:transcript"
	eventVisibility = "voicenote:visibility"
	eventAdvisory   = "voicenote:advisory"
	eventError      = "voicenote:error"
	eventNote       = "voicenote:note"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	services *bootstrap.Services
	bootErr  error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(ctx, a, a, bootstrap.Options{WatchFolders: true})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.services = services
}

func (a *App) shutdown(_ context.Context) {
	if a.services != nil {
		a.services.Close()
	}
}

// OpenNote shows the note surface with an empty draft.
func (a *App) OpenNote() (domain.Status, error) {
	return a.withStatus(func(c *usecase.SurfaceCoordinator) error {
		c.Open()
		return nil
	})
}

// CloseNote discards the draft and stops dictation.
func (a *App) CloseNote() (domain.Status, error) {
	return a.withStatus(func(c *usecase.SurfaceCoordinator) error {
		c.Close()
		return nil
	})
}

// SetOpen mirrors visibility changes made by the frontend.
func (a *App) SetOpen(open bool) (domain.Status, error) {
	return a.withStatus(func(c *usecase.SurfaceCoordinator) error {
		c.SetOpen(open)
		return nil
	})
}

// StartDictation starts listening. An unsupported platform is reported as an
// advisory, not an error.
func (a *App) StartDictation() (domain.Status, error) {
	status, err := a.withStatus(func(c *usecase.SurfaceCoordinator) error {
		return c.StartDictation()
	})
	if errors.Is(err, usecase.ErrUnsupportedPlatform) {
		return status, nil
	}
	return status, err
}

func (a *App) StopDictation() (domain.Status, error) {
	return a.withStatus(func(c *usecase.SurfaceCoordinator) error {
		c.StopDictation()
		return nil
	})
}

// TypeText replaces the draft with what the user typed.
func (a *App) TypeText(text string) (domain.Status, error) {
	return a.withStatus(func(c *usecase.SurfaceCoordinator) error {
		return c.Type(text)
	})
}

func (a *App) SelectFolder(id string) (domain.Status, error) {
	return a.withStatus(func(c *usecase.SurfaceCoordinator) error {
		return c.SelectFolder(domain.FolderID(id))
	})
}

// SaveNote hands the draft off. Saving an empty draft is a no-op.
func (a *App) SaveNote() (domain.Note, error) {
	var note domain.Note
	err := a.call(func(c *usecase.SurfaceCoordinator) error {
		var saveErr error
		note, saveErr = c.Save()
		return saveErr
	})
	if errors.Is(err, usecase.ErrEmptyDraft) {
		return domain.Note{}, nil
	}
	return note, err
}

// GetStatus returns the current surface status.
func (a *App) GetStatus() domain.Status {
	status, err := a.withStatus(func(*usecase.SurfaceCoordinator) error { return nil })
	if err != nil {
		return domain.Status{State: domain.SessionStateIdle}
	}
	return status
}

func (a *App) GetFolders() []domain.Folder {
	var list []domain.Folder
	_ = a.call(func(c *usecase.SurfaceCoordinator) error {
		list = c.Folders()
		return nil
	})
	return list
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if a.services == nil {
		return map[string]string{}
	}

	cfg := a.services.Config
	return map[string]string{
		"provider":         "Deepgram",
		"model":            cfg.Deepgram.Model,
		"locale":           cfg.Session.Locale,
		"foldersFile":      cfg.Folders.Path,
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
		"dictation":        fmt.Sprintf("%t", a.services.Recognizer.Available()),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// call runs fn on the session loop and waits for it.
func (a *App) call(fn func(c *usecase.SurfaceCoordinator) error) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	coordinator := a.services.Coordinator

	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var result error
	if err := a.services.Loop.Do(ctx, func() { result = fn(coordinator) }); err != nil {
		return err
	}
	return result
}

func (a *App) withStatus(fn func(c *usecase.SurfaceCoordinator) error) (domain.Status, error) {
	var status domain.Status
	err := a.call(func(c *usecase.SurfaceCoordinator) error {
		fnErr := fn(c)
		status = c.Status()
		return fnErr
	})
	return status, err
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

// TranscriptUpdated emits the draft text rebuilt from dictation.
func (a *App) TranscriptUpdated(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, map[string]string{"text": text})
}

func (a *App) SurfaceVisibilityChanged(open bool) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventVisibility, map[string]bool{"open": open})
}

// Advisory emits a toast-worthy notice.
func (a *App) Advisory(kind domain.AdvisoryKind) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventAdvisory, map[string]string{
		"kind":    string(kind),
		"message": advisoryMessage(kind),
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

// NoteCreated forwards a saved note to the frontend, which owns persistence.
func (a *App) NoteCreated(content string, folderID domain.FolderID) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventNote, domain.Note{Content: content, FolderID: folderID})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonSurfaceOpened:
		return "Ready"
	case domain.SessionReasonListeningStarted:
		return "Listening"
	case domain.SessionReasonListeningResumed:
		return "Listening (reconnected)"
	case domain.SessionReasonStopRequested:
		return "Dictation stopped"
	case domain.SessionReasonStreamEnded:
		return "Dictation ended"
	case domain.SessionReasonStartFailed:
		return "Dictation could not start"
	case domain.SessionReasonRestartFailed:
		return "Dictation lost; reconnect failed"
	case domain.SessionReasonSurfaceClosed:
		return "Note discarded"
	case domain.SessionReasonSurfaceUnmounted:
		return "Note closed"
	case domain.SessionReasonNoteSaved:
		return "Note saved"
	default:
		return ""
	}
}

func advisoryMessage(kind domain.AdvisoryKind) string {
	switch kind {
	case domain.AdvisoryUnsupported:
		return "Dictation is not available here. You can still type your note."
	case domain.AdvisoryRestrictedEnvironment:
		return "This environment may block microphone access."
	case domain.AdvisoryNoteCreated:
		return "Note created"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeRecognition:
		return "Speech recognition error"
	case domain.ErrorCodeAudioStream:
		return "Microphone issue"
	case domain.ErrorCodeFolders:
		return "Folder list unavailable"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
