package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"voicenote/internal/domain"
	"voicenote/internal/ports"
)

const (
	defaultAPIBaseURL = "https://api.deepgram.com/v1"
	defaultModel      = "nova-2"
	closeStreamGrace  = 3 * time.Second
)

var ErrMissingAPIKey = errors.New("DEEPGRAM_API_KEY is not configured")

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	SmartFormat bool
	Encoding    string
	ChunkSize   int
	Audio       ports.AudioConfig
}

// Recognizer implements ports.Recognizer on top of Deepgram live streaming,
// fed by a microphone capture.
type Recognizer struct {
	cfg     Config
	capture ports.AudioCapture
	dialer  *websocket.Dialer
	logger  *log.Logger
}

func NewRecognizer(cfg Config, capture ports.AudioCapture, logger *log.Logger) *Recognizer {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Recognizer{
		cfg:     cfg,
		capture: capture,
		dialer:  websocket.DefaultDialer,
		logger:  logger.WithPrefix("deepgram"),
	}
}

// Available reports whether both an API key and a microphone recorder exist.
func (r *Recognizer) Available() bool {
	return strings.TrimSpace(r.cfg.APIKey) != "" && r.capture != nil && r.capture.Available()
}

func (r *Recognizer) NewStream(cfg ports.RecognitionConfig, handlers ports.RecognitionHandlers) (ports.RecognitionStream, error) {
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	wsURL, err := buildListenURL(r.cfg, cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &stream{
		recognizer: r,
		url:        wsURL,
		handlers:   withDefaults(handlers),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func withDefaults(h ports.RecognitionHandlers) ports.RecognitionHandlers {
	if h.OnResult == nil {
		h.OnResult = func([]domain.Segment) {}
	}
	if h.OnError == nil {
		h.OnError = func(error) {}
	}
	if h.OnEnd == nil {
		h.OnEnd = func() {}
	}
	return h
}

type stream struct {
	recognizer *Recognizer
	url        string
	handlers   ports.RecognitionHandlers

	ctx    context.Context
	cancel context.CancelFunc

	started  atomic.Bool
	stopping atomic.Bool
	closing  atomic.Bool

	mu    sync.Mutex
	conn  *websocket.Conn
	audio ports.AudioSession

	stopOnce sync.Once
	endOnce  sync.Once

	tracker segmentTracker
}

// Start connects and begins streaming in the background. Connection failures
// are reported through OnError followed by OnEnd.
func (s *stream) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("recognition stream already started")
	}
	go s.run()
	return nil
}

// Stop stops the microphone so the provider flushes and closes the stream.
func (s *stream) Stop() error {
	var stopErr error
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		s.cancel()

		s.mu.Lock()
		audio, conn := s.audio, s.conn
		s.mu.Unlock()

		if audio != nil {
			stopErr = audio.Stop()
		}
		if conn != nil {
			time.AfterFunc(closeStreamGrace, func() { _ = conn.Close() })
		}
		if !s.started.Load() {
			s.end()
		}
	})
	return stopErr
}

func (s *stream) run() {
	defer s.end()

	r := s.recognizer
	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.cfg.APIKey)

	conn, _, err := r.dialer.DialContext(s.ctx, s.url, headers)
	if err != nil {
		if !s.stopping.Load() {
			s.handlers.OnError(fmt.Errorf("failed to connect to Deepgram websocket: %w", err))
		}
		return
	}

	audio, err := r.capture.Start(s.ctx, r.cfg.Audio)
	if err != nil {
		_ = conn.Close()
		if !s.stopping.Load() {
			s.handlers.OnError(fmt.Errorf("%w: %w", ports.ErrAudioCapture, err))
		}
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.audio = audio
	s.mu.Unlock()

	if s.stopping.Load() {
		_ = audio.Stop()
		_ = conn.Close()
		return
	}

	pumpDone := make(chan struct{})
	go s.pumpAudio(conn, audio, pumpDone)

	s.readLoop(conn)
	s.closing.Store(true)

	_ = audio.Stop()
	<-pumpDone
	_ = conn.Close()
}

func (s *stream) end() {
	s.endOnce.Do(func() {
		s.cancel()
		s.handlers.OnEnd()
	})
}

func (s *stream) pumpAudio(conn *websocket.Conn, audio ports.AudioSession, done chan struct{}) {
	defer close(done)

	buf := make([]byte, s.recognizer.cfg.ChunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); sendErr != nil {
				s.reportUnlessClosing(fmt.Errorf("failed to stream audio: %w", sendErr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.stopping.Load() {
				s.reportUnlessClosing(fmt.Errorf("%w: %w", ports.ErrAudioCapture, err))
			}
			break
		}
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.reportUnlessClosing(fmt.Errorf("failed to close stream: %w", err))
	}
}

func (s *stream) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !isExpectedClose(err) && !s.stopping.Load() {
				s.handlers.OnError(fmt.Errorf("failed to read provider event: %w", err))
			}
			return
		}

		var response deepgramResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			s.recognizer.logger.Debug("skipping undecodable message", "err", err)
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			s.handlers.OnError(errors.New(message))
			return
		}

		if response.Type != "" && !strings.EqualFold(response.Type, "Results") {
			continue
		}

		final := response.IsFinal || response.SpeechFinal
		if s.tracker.apply(extractTranscript(response), final) {
			s.handlers.OnResult(s.tracker.snapshot())
		}
	}
}

func (s *stream) reportUnlessClosing(err error) {
	if s.closing.Load() || s.stopping.Load() {
		return
	}
	s.handlers.OnError(err)
}

func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`

	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func extractTranscript(response deepgramResponse) string {
	if len(response.Channel.Alternatives) > 0 {
		if text := strings.TrimSpace(response.Channel.Alternatives[0].Transcript); text != "" {
			return text
		}
	}
	if len(response.Results.Channels) > 0 && len(response.Results.Channels[0].Alternatives) > 0 {
		return strings.TrimSpace(response.Results.Channels[0].Alternatives[0].Transcript)
	}
	return ""
}

func buildListenURL(providerCfg Config, recognition ports.RecognitionConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if base == "" {
		base = defaultAPIBaseURL
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	audio := providerCfg.Audio
	if audio.SampleRate <= 0 {
		audio.SampleRate = 16000
	}
	if audio.Channels <= 0 {
		audio.Channels = 1
	}
	encoding := providerCfg.Encoding
	if encoding == "" {
		encoding = "linear16"
	}

	query := listenURL.Query()
	query.Set("model", providerCfg.Model)
	query.Set("encoding", encoding)
	query.Set("sample_rate", fmt.Sprintf("%d", audio.SampleRate))
	query.Set("channels", fmt.Sprintf("%d", audio.Channels))
	query.Set("interim_results", fmt.Sprintf("%t", recognition.InterimResults))
	query.Set("smart_format", fmt.Sprintf("%t", providerCfg.SmartFormat))
	if recognition.MaxAlternatives > 0 {
		query.Set("alternatives", fmt.Sprintf("%d", recognition.MaxAlternatives))
	}
	if recognition.Locale != "" {
		query.Set("language", recognition.Locale)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
