package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"voicenote/internal/domain"
)

// ErrAudioCapture marks recognition errors caused by the microphone rather
// than the recognizer.
var ErrAudioCapture = errors.New("audio capture failed")

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Available() bool
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// RecognitionConfig mirrors the platform speech-recognition settings.
type RecognitionConfig struct {
	Locale          string
	Continuous      bool
	InterimResults  bool
	MaxAlternatives int
}

// RecognitionHandlers receive platform stream events. Implementations may invoke
// them from any goroutine.
type RecognitionHandlers struct {
	// OnResult receives every known segment of the stream, in order.
	OnResult func(segments []domain.Segment)
	OnError  func(err error)
	// OnEnd fires exactly once per stream, whoever ended it.
	OnEnd func()
}

// RecognitionStream is one platform recognition stream.
type RecognitionStream interface {
	// Start begins recognition without blocking on the network.
	Start() error
	// Stop asks the platform to end the stream. OnEnd follows asynchronously.
	Stop() error
}

// CapabilityProbe reports whether speech recognition exists in this environment.
type CapabilityProbe interface {
	Available() bool
}

// Recognizer creates platform recognition streams.
type Recognizer interface {
	CapabilityProbe
	NewStream(cfg RecognitionConfig, handlers RecognitionHandlers) (RecognitionStream, error)
}

// EnvironmentProbe detects environments known to block microphone access.
type EnvironmentProbe interface {
	Restricted(ctx context.Context) (bool, error)
}

// Scheduler serializes work onto a single event loop.
type Scheduler interface {
	Post(task func())
	AfterFunc(delay time.Duration, task func()) (cancel func())
}

// NoteCreator receives saved drafts.
type NoteCreator interface {
	NoteCreated(content string, folderID domain.FolderID)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	TranscriptUpdated(text string)
	SurfaceVisibilityChanged(open bool)
	Advisory(kind domain.AdvisoryKind)
	SessionError(code domain.ErrorCode, detail string)
}
