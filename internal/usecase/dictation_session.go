package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"voicenote/internal/domain"
	"voicenote/internal/ports"
)

var ErrUnsupportedPlatform = errors.New("speech recognition is not supported in this environment")

const DefaultRestartDelay = 300 * time.Millisecond

// SessionConfig controls how recognition streams are opened and resumed.
type SessionConfig struct {
	Locale       string
	RestartDelay time.Duration
}

type activeStream struct {
	id         string
	generation uint64
	stream     ports.RecognitionStream
}

// DictationSession presents a chain of platform recognition streams as one
// continuous listening session. All methods must run on the scheduler's loop.
type DictationSession struct {
	gate         *FeatureGate
	recognizer   ports.Recognizer
	scheduler    ports.Scheduler
	events       ports.EventSink
	logger       *log.Logger
	cfg          SessionConfig
	onTranscript func(text string)

	state domain.SessionState
	// intentionalStop is written only by the start body and Stop. Stream
	// callbacks read it when they run, never a copy taken earlier.
	intentionalStop bool
	active          *activeStream
	generation      uint64
	cancelRestart   func()
	restarts        int

	transcript *transcriptAggregator
}

func NewDictationSession(
	gate *FeatureGate,
	recognizer ports.Recognizer,
	scheduler ports.Scheduler,
	events ports.EventSink,
	logger *log.Logger,
	cfg SessionConfig,
	onTranscript func(text string),
) *DictationSession {
	if cfg.Locale == "" {
		cfg.Locale = "en-US"
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	if logger == nil {
		logger = log.Default()
	}
	if onTranscript == nil {
		onTranscript = func(string) {}
	}
	return &DictationSession{
		gate:         gate,
		recognizer:   recognizer,
		scheduler:    scheduler,
		events:       events,
		logger:       logger.WithPrefix("dictation"),
		cfg:          cfg,
		onTranscript: onTranscript,
		state:        domain.SessionStateIdle,
		transcript:   newTranscriptAggregator(),
	}
}

// Start begins listening with an empty transcript.
func (s *DictationSession) Start() error {
	return s.StartFrom("")
}

// StartFrom begins listening with transcript text seeded from prefix, so that
// dictation extends what is already in the draft.
func (s *DictationSession) StartFrom(prefix string) error {
	if !s.gate.IsAvailable() {
		return ErrUnsupportedPlatform
	}

	s.cancelPendingRestart()
	s.transcript.Reset(prefix)

	if err := s.listen(); err != nil {
		if s.state == domain.SessionStateListening {
			s.finish(domain.SessionReasonStartFailed)
		}
		return err
	}

	s.events.SessionStateChanged(domain.SessionStateListening, domain.SessionReasonListeningStarted)
	return nil
}

// Stop ends the session on purpose. The intent is recorded before the platform
// is asked to end the stream so the end handler sees it.
func (s *DictationSession) Stop() {
	s.intentionalStop = true
	s.cancelPendingRestart()
	s.release()
	s.finish(domain.SessionReasonStopRequested)
}

// State returns the current lifecycle state.
func (s *DictationSession) State() domain.SessionState {
	return s.state
}

// HasLiveStream reports whether a platform stream handle is held.
func (s *DictationSession) HasLiveStream() bool {
	return s.active != nil
}

// Restarts counts automatic restarts since construction.
func (s *DictationSession) Restarts() int {
	return s.restarts
}

// Transcript returns the reconstructed transcript so far.
func (s *DictationSession) Transcript() string {
	return s.transcript.Text()
}

// listen is the body shared by Start and automatic restarts.
func (s *DictationSession) listen() error {
	s.release()
	s.intentionalStop = false

	s.generation++
	generation := s.generation
	id := uuid.NewString()

	stream, err := s.recognizer.NewStream(ports.RecognitionConfig{
		Locale:          s.cfg.Locale,
		Continuous:      true,
		InterimResults:  true,
		MaxAlternatives: 1,
	}, s.handlers(generation))
	if err != nil {
		return fmt.Errorf("failed to create recognition stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Stop()
		return fmt.Errorf("failed to start recognition stream: %w", err)
	}

	s.active = &activeStream{id: id, generation: generation, stream: stream}
	s.state = domain.SessionStateListening
	s.logger.Debug("stream started", "stream", id, "locale", s.cfg.Locale)
	return nil
}

// release drops the stream handle. Releasing twice is a no-op.
func (s *DictationSession) release() {
	if s.active == nil {
		return
	}
	active := s.active
	s.active = nil
	if err := active.stream.Stop(); err != nil {
		s.logger.Debug("stream stop failed", "stream", active.id, "err", err)
	}
}

func (s *DictationSession) finish(reason domain.SessionStateReason) {
	if s.state == domain.SessionStateStopped {
		return
	}
	s.state = domain.SessionStateStopped
	s.events.SessionStateChanged(domain.SessionStateStopped, reason)
}

func (s *DictationSession) handlers(generation uint64) ports.RecognitionHandlers {
	return ports.RecognitionHandlers{
		OnResult: func(segments []domain.Segment) {
			copied := append([]domain.Segment(nil), segments...)
			s.scheduler.Post(func() { s.handleResult(generation, copied) })
		},
		OnError: func(err error) {
			s.scheduler.Post(func() { s.handleError(generation, err) })
		},
		OnEnd: func() {
			s.scheduler.Post(func() { s.handleEnd(generation) })
		},
	}
}

func (s *DictationSession) current(generation uint64) bool {
	return s.active != nil && s.active.generation == generation
}

func (s *DictationSession) handleResult(generation uint64, segments []domain.Segment) {
	if !s.current(generation) {
		return
	}
	s.transcript.Update(segments)
	s.onTranscript(s.transcript.Text())
}

func (s *DictationSession) handleError(generation uint64, err error) {
	if err == nil {
		return
	}
	if !s.current(generation) {
		s.logger.Debug("error from released stream", "err", err)
		return
	}
	s.logger.Warn("recognition error", "stream", s.active.id, "err", err)
	s.events.SessionError(errorCode(err), err.Error())
}

func errorCode(err error) domain.ErrorCode {
	if errors.Is(err, ports.ErrAudioCapture) {
		return domain.ErrorCodeAudioStream
	}
	return domain.ErrorCodeRecognition
}

func (s *DictationSession) handleEnd(generation uint64) {
	if !s.current(generation) {
		return
	}

	ended := s.active
	s.active = nil

	if s.intentionalStop {
		s.finish(domain.SessionReasonStreamEnded)
		return
	}

	s.logger.Info("stream ended unexpectedly", "stream", ended.id, "delay", s.cfg.RestartDelay)
	s.scheduleRestart()
}

// scheduleRestart arms a single delayed re-entry into the start body. The
// transcript is carried, not reset.
func (s *DictationSession) scheduleRestart() {
	if s.cancelRestart != nil {
		return
	}
	s.transcript.Carry()

	generation := s.generation
	s.cancelRestart = s.scheduler.AfterFunc(s.cfg.RestartDelay, func() {
		s.restart(generation)
	})
}

func (s *DictationSession) restart(generation uint64) {
	if generation != s.generation {
		return
	}
	s.cancelRestart = nil
	if s.intentionalStop || s.state != domain.SessionStateListening {
		return
	}

	if err := s.listen(); err != nil {
		s.logger.Error("restart failed", "err", err)
		s.events.SessionError(errorCode(err), err.Error())
		s.finish(domain.SessionReasonRestartFailed)
		return
	}

	s.restarts++
	s.events.SessionStateChanged(domain.SessionStateListening, domain.SessionReasonListeningResumed)
}

func (s *DictationSession) cancelPendingRestart() {
	if s.cancelRestart == nil {
		return
	}
	s.cancelRestart()
	s.cancelRestart = nil
}
