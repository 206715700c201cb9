package bootstrap

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"voicenote/internal/audio"
	"voicenote/internal/config"
	"voicenote/internal/domain"
	"voicenote/internal/environment"
	"voicenote/internal/eventloop"
	"voicenote/internal/folders"
	"voicenote/internal/logging"
	"voicenote/internal/ports"
	"voicenote/internal/providers/deepgram"
	"voicenote/internal/usecase"
)

// Services is the assembled runtime graph. Coordinator methods must be
// invoked through Loop.
type Services struct {
	Config      config.Config
	Logger      *log.Logger
	Loop        *eventloop.Loop
	Coordinator *usecase.SurfaceCoordinator
	Recognizer  *deepgram.Recognizer
	Environment *environment.Probe

	folders *folders.Watcher
}

// Options tweak Build for surfaces that own their output streams.
type Options struct {
	LogOutput io.Writer
	// WatchFolders reloads the folder list when its file changes.
	WatchFolders bool
}

// Build wires all backend dependencies for the current runtime.
func Build(ctx context.Context, events ports.EventSink, notes ports.NoteCreator, opts Options) (*Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	output := opts.LogOutput
	if output == nil {
		output = os.Stderr
	}
	logger := logging.New(output, cfg.Log.Level)

	loop := eventloop.New(logger)
	loop.Start(ctx)

	capture := audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand, logger)
	recognizer := deepgram.NewRecognizer(deepgram.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		SmartFormat: cfg.Deepgram.SmartFormat,
		Encoding:    "linear16",
		ChunkSize:   cfg.Audio.ChunkSize,
		Audio: ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
	}, capture, logger)

	probe := environment.NewProbe()
	gate := usecase.NewFeatureGate(recognizer, probe, loop, events, logger)
	coordinator := usecase.NewSurfaceCoordinator(
		gate,
		recognizer,
		loop,
		events,
		notes,
		logger,
		usecase.SessionConfig{
			Locale:       cfg.Session.Locale,
			RestartDelay: cfg.Session.RestartDelay,
		},
	)

	services := &Services{
		Config:      cfg,
		Logger:      logger,
		Loop:        loop,
		Coordinator: coordinator,
		Recognizer:  recognizer,
		Environment: probe,
	}

	services.loadFolders(ctx, events)
	if opts.WatchFolders {
		services.watchFolders(ctx, events)
	}

	return services, nil
}

// loadFolders applies the folder file once. Failures leave selection disabled.
func (s *Services) loadFolders(ctx context.Context, events ports.EventSink) {
	list, err := folders.Load(s.Config.Folders.Path)
	if err == nil {
		var setErr error
		err = s.Loop.Do(ctx, func() {
			setErr = s.Coordinator.SetFolders(list)
		})
		if err == nil {
			err = setErr
		}
	}
	if err != nil {
		s.Logger.Warn("folders unavailable", "path", s.Config.Folders.Path, "err", err)
		s.Loop.Post(func() { events.SessionError(domain.ErrorCodeFolders, err.Error()) })
	}
}

func (s *Services) watchFolders(ctx context.Context, events ports.EventSink) {
	watcher := folders.NewWatcher(s.Config.Folders.Path, s.Logger)
	watcher.OnChange = func(list []domain.Folder) {
		s.Loop.Post(func() {
			if err := s.Coordinator.SetFolders(list); err != nil {
				events.SessionError(domain.ErrorCodeFolders, err.Error())
			}
		})
	}
	watcher.OnError = func(err error) {
		s.Loop.Post(func() { events.SessionError(domain.ErrorCodeFolders, err.Error()) })
	}

	if err := watcher.Start(ctx); err != nil {
		s.Logger.Warn("folder reload disabled", "err", err)
		return
	}
	s.folders = watcher
}

// Close unmounts the surface, stops watching folders, and drains the loop.
func (s *Services) Close() {
	if s.folders != nil {
		_ = s.folders.Close()
	}
	_ = s.Loop.Do(context.Background(), s.Coordinator.Unmount)
	s.Loop.Close()
	<-s.Loop.Done()
}
