package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"voicenote/internal/bootstrap"
	"voicenote/internal/domain"
	"voicenote/internal/usecase"
)

type dictateOptions struct {
	folder   string
	text     string
	duration time.Duration
}

var dictateOpts dictateOptions

var dictateCmd = &cobra.Command{
	Use:   "dictate",
	Short: "Dictate a note until interrupted, then print it as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runDictate(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), dictateOpts)
	},
}

func init() {
	dictateCmd.Flags().StringVar(&dictateOpts.folder, "folder", "", "Folder id to file the note under")
	dictateCmd.Flags().StringVar(&dictateOpts.text, "text", "", "Text to start the note with")
	dictateCmd.Flags().DurationVar(&dictateOpts.duration, "duration", 0, "Stop after this long (default: until Ctrl-C)")
}

// runDictate opens a note, listens until ctx is done or the duration passes,
// then saves. The note goes to out, progress to errOut.
func runDictate(ctx context.Context, out io.Writer, errOut io.Writer, opts dictateOptions) error {
	sink := &terminalSink{out: errOut}
	services, err := bootstrap.Build(context.Background(), sink, &noteWriter{out: out}, bootstrap.Options{LogOutput: errOut})
	if err != nil {
		return err
	}
	defer services.Close()

	var startErr error
	if err := services.Loop.Do(ctx, func() {
		c := services.Coordinator
		c.Open()
		if opts.text != "" {
			startErr = c.Type(opts.text)
		}
		if startErr == nil && opts.folder != "" {
			startErr = c.SelectFolder(domain.FolderID(opts.folder))
		}
		if startErr == nil {
			startErr = c.StartDictation()
		}
	}); err != nil {
		return err
	}
	if startErr != nil && !(errors.Is(startErr, usecase.ErrUnsupportedPlatform) && opts.text != "") {
		return fmt.Errorf("dictation did not start: %w", startErr)
	}

	var timeout <-chan time.Time
	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ctx.Done():
	case <-timeout:
	}

	var saveErr error
	if err := services.Loop.Do(context.Background(), func() {
		sink.finishLine()
		services.Coordinator.StopDictation()
		_, saveErr = services.Coordinator.Save()
	}); err != nil {
		return err
	}
	if errors.Is(saveErr, usecase.ErrEmptyDraft) {
		fmt.Fprintln(errOut, "nothing to save")
		return nil
	}
	return saveErr
}

var (
	bannerStyle = lipgloss.NewStyle().Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// terminalSink renders surface events on a terminal. It is only called from
// the session loop.
type terminalSink struct {
	out     io.Writer
	pending bool
}

func (s *terminalSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if reason == domain.SessionReasonListeningStarted || reason == domain.SessionReasonListeningResumed {
		s.finishLine()
		fmt.Fprintln(s.out, bannerStyle.Render(fmt.Sprintf("[%s] speak now, Ctrl-C to save", reason)))
	}
}

func (s *terminalSink) TranscriptUpdated(text string) {
	fmt.Fprintf(s.out, "\r\033[K%s", text)
	s.pending = true
}

func (s *terminalSink) SurfaceVisibilityChanged(bool) {}

func (s *terminalSink) Advisory(kind domain.AdvisoryKind) {
	s.finishLine()
	switch kind {
	case domain.AdvisoryUnsupported:
		fmt.Fprintln(s.out, warnStyle.Render("dictation is unavailable: set DEEPGRAM_API_KEY and install ffmpeg"))
	case domain.AdvisoryRestrictedEnvironment:
		fmt.Fprintln(s.out, warnStyle.Render("warning: this environment may block microphone access"))
	}
}

func (s *terminalSink) SessionError(code domain.ErrorCode, detail string) {
	s.finishLine()
	fmt.Fprintln(s.out, errorStyle.Render(fmt.Sprintf("error (%s): %s", code, detail)))
}

func (s *terminalSink) finishLine() {
	if s.pending {
		fmt.Fprintln(s.out)
		s.pending = false
	}
}

// noteWriter prints saved notes as JSON lines.
type noteWriter struct {
	out io.Writer
}

func (w *noteWriter) NoteCreated(content string, folderID domain.FolderID) {
	_ = json.NewEncoder(w.out).Encode(domain.Note{Content: content, FolderID: folderID})
}
