package usecase

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"voicenote/internal/domain"
	"voicenote/internal/ports"
)

var (
	ErrSurfaceClosed           = errors.New("note surface is not open")
	ErrEmptyDraft              = errors.New("note is empty")
	ErrFolderSelectionDisabled = errors.New("folder selection is disabled")
	ErrUnknownFolder           = errors.New("unknown folder")
	ErrInvalidFolders          = errors.New("invalid folder list")
)

// SurfaceCoordinator binds a DictationSession and a NoteDraft to the authoring
// surface. Every way out of the surface stops dictation and resets the draft.
// All methods must run on the scheduler's loop.
type SurfaceCoordinator struct {
	gate       *FeatureGate
	recognizer ports.Recognizer
	scheduler  ports.Scheduler
	events     ports.EventSink
	notes      ports.NoteCreator
	logger     *log.Logger
	cfg        SessionConfig

	open    bool
	draft   *NoteDraft
	session *DictationSession
	folders []domain.Folder
}

func NewSurfaceCoordinator(
	gate *FeatureGate,
	recognizer ports.Recognizer,
	scheduler ports.Scheduler,
	events ports.EventSink,
	notes ports.NoteCreator,
	logger *log.Logger,
	cfg SessionConfig,
) *SurfaceCoordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &SurfaceCoordinator{
		gate:       gate,
		recognizer: recognizer,
		scheduler:  scheduler,
		events:     events,
		notes:      notes,
		logger:     logger,
		cfg:        cfg,
		draft:      NewNoteDraft(),
	}
}

// Open shows the surface with a clean draft and no dictation session.
func (c *SurfaceCoordinator) Open() {
	if c.open {
		c.teardown(domain.SessionReasonSurfaceClosed)
	}

	c.draft.Reset()
	c.session = nil
	c.open = true

	c.events.SurfaceVisibilityChanged(true)
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonSurfaceOpened)
}

// Close handles user cancel and programmatic close.
func (c *SurfaceCoordinator) Close() {
	c.teardown(domain.SessionReasonSurfaceClosed)
}

// Unmount tears everything down when the hosting surface goes away.
func (c *SurfaceCoordinator) Unmount() {
	c.teardown(domain.SessionReasonSurfaceUnmounted)
}

// SetOpen applies an external visibility change.
func (c *SurfaceCoordinator) SetOpen(open bool) {
	if open {
		c.Open()
		return
	}
	c.Close()
}

func (c *SurfaceCoordinator) IsOpen() bool {
	return c.open
}

// StartDictation starts listening, extending whatever is already in the draft.
func (c *SurfaceCoordinator) StartDictation() error {
	if !c.open {
		return ErrSurfaceClosed
	}
	if c.session == nil {
		c.session = c.newSession()
	}

	if err := c.session.StartFrom(c.draft.Content()); err != nil {
		if errors.Is(err, ErrUnsupportedPlatform) {
			c.events.Advisory(domain.AdvisoryUnsupported)
			return err
		}
		c.events.SessionError(domain.ErrorCodeRecognition, err.Error())
		return err
	}

	c.gate.WarnIfRestrictedEnvironment()
	c.draft.MarkDictationStarted()
	return nil
}

func (c *SurfaceCoordinator) StopDictation() {
	if c.session == nil {
		return
	}
	c.session.Stop()
}

// Type overwrites the draft with typed text.
func (c *SurfaceCoordinator) Type(text string) error {
	if !c.open {
		return ErrSurfaceClosed
	}
	c.draft.SetContent(text)
	return nil
}

// SelectFolder files the draft under id. domain.NoFolder clears the choice.
func (c *SurfaceCoordinator) SelectFolder(id domain.FolderID) error {
	if !c.open {
		return ErrSurfaceClosed
	}
	if id == domain.NoFolder {
		c.draft.SelectFolder(domain.NoFolder)
		return nil
	}
	if len(c.folders) == 0 {
		return ErrFolderSelectionDisabled
	}
	if !c.hasFolder(id) {
		return fmt.Errorf("%w: %s", ErrUnknownFolder, id)
	}
	c.draft.SelectFolder(id)
	return nil
}

// SetFolders replaces the read-only folder list. A selection that is no longer
// listed is cleared.
func (c *SurfaceCoordinator) SetFolders(folders []domain.Folder) error {
	seen := make(map[domain.FolderID]struct{}, len(folders))
	for index, folder := range folders {
		if folder.ID == domain.NoFolder {
			return fmt.Errorf("%w: folder %d has no id", ErrInvalidFolders, index)
		}
		if _, dup := seen[folder.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidFolders, folder.ID)
		}
		seen[folder.ID] = struct{}{}
	}

	c.folders = append([]domain.Folder(nil), folders...)
	if selected := c.draft.FolderID(); selected != domain.NoFolder && !c.hasFolder(selected) {
		c.draft.SelectFolder(domain.NoFolder)
	}
	return nil
}

func (c *SurfaceCoordinator) Folders() []domain.Folder {
	return append([]domain.Folder(nil), c.folders...)
}

// Save hands the draft to the note creator and closes the surface.
func (c *SurfaceCoordinator) Save() (domain.Note, error) {
	if !c.open {
		return domain.Note{}, ErrSurfaceClosed
	}

	note, ok := c.draft.Save(c.notes)
	if !ok {
		return domain.Note{}, ErrEmptyDraft
	}

	c.logger.Info("note created", "chars", len(note.Content), "folder", note.FolderID)
	c.events.Advisory(domain.AdvisoryNoteCreated)
	c.teardown(domain.SessionReasonNoteSaved)
	return note, nil
}

// Status snapshots the surface for the UI.
func (c *SurfaceCoordinator) Status() domain.Status {
	state := c.State()
	return domain.Status{
		Open:                   c.open,
		State:                  state,
		Listening:              state == domain.SessionStateListening,
		Content:                c.draft.Content(),
		FolderID:               c.draft.FolderID(),
		OnboardingVisible:      c.draft.OnboardingVisible(),
		FolderSelectionEnabled: len(c.folders) > 0,
	}
}

func (c *SurfaceCoordinator) State() domain.SessionState {
	if c.session == nil {
		return domain.SessionStateIdle
	}
	return c.session.State()
}

// HasLiveStream reports whether any platform stream is held.
func (c *SurfaceCoordinator) HasLiveStream() bool {
	return c.session != nil && c.session.HasLiveStream()
}

func (c *SurfaceCoordinator) Draft() *NoteDraft {
	return c.draft
}

func (c *SurfaceCoordinator) newSession() *DictationSession {
	var session *DictationSession
	session = NewDictationSession(c.gate, c.recognizer, c.scheduler, c.events, c.logger, c.cfg, func(text string) {
		if c.session != session {
			return
		}
		c.draft.ReceiveTranscript(text)
		c.events.TranscriptUpdated(text)
	})
	return session
}

func (c *SurfaceCoordinator) teardown(reason domain.SessionStateReason) {
	if c.session != nil {
		c.session.Stop()
	}
	c.draft.Reset()

	wasOpen := c.open
	c.open = false
	if wasOpen {
		c.events.SurfaceVisibilityChanged(false)
		c.events.SessionStateChanged(c.State(), reason)
	}
}

func (c *SurfaceCoordinator) hasFolder(id domain.FolderID) bool {
	for _, folder := range c.folders {
		if folder.ID == id {
			return true
		}
	}
	return false
}
