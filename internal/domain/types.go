package domain

// SessionState models the dictation lifecycle.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateListening SessionState = "listening"
	SessionStateStopped   SessionState = "stopped"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonSurfaceOpened    SessionStateReason = "surface_opened"
	SessionReasonListeningStarted SessionStateReason = "listening_started"
	SessionReasonListeningResumed SessionStateReason = "listening_resumed"
	SessionReasonStopRequested    SessionStateReason = "stop_requested"
	SessionReasonStreamEnded      SessionStateReason = "stream_ended"
	SessionReasonStartFailed      SessionStateReason = "start_failed"
	SessionReasonRestartFailed    SessionStateReason = "restart_failed"
	SessionReasonSurfaceClosed    SessionStateReason = "surface_closed"
	SessionReasonSurfaceUnmounted SessionStateReason = "surface_unmounted"
	SessionReasonNoteSaved        SessionStateReason = "note_saved"
)

// ErrorCode identifies non-fatal backend errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeRecognition ErrorCode = "recognition"
	ErrorCodeAudioStream ErrorCode = "audio_stream"
	ErrorCodeFolders     ErrorCode = "folders"
)

// AdvisoryKind identifies user-visible notices that never block the session.
type AdvisoryKind string

const (
	AdvisoryUnsupported           AdvisoryKind = "unsupported"
	AdvisoryRestrictedEnvironment AdvisoryKind = "restricted_environment"
	AdvisoryNoteCreated           AdvisoryKind = "note_created"
)

// Segment is one recognized span of speech. Interim segments may still be revised.
type Segment struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// FolderID is an opaque reference into the externally supplied folder list.
type FolderID string

// NoFolder means the note is not filed anywhere.
const NoFolder FolderID = ""

// Folder is a read-only destination a note can be filed under.
type Folder struct {
	ID   FolderID `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`
}

// Note is what gets handed to the creation callback on save.
type Note struct {
	Content  string   `json:"content"`
	FolderID FolderID `json:"folderId,omitempty"`
}

// Status summarizes the authoring surface for the UI.
type Status struct {
	Open                   bool         `json:"open"`
	State                  SessionState `json:"state"`
	Listening              bool         `json:"listening"`
	Content                string       `json:"content"`
	FolderID               FolderID     `json:"folderId,omitempty"`
	OnboardingVisible      bool         `json:"onboardingVisible"`
	FolderSelectionEnabled bool         `json:"folderSelectionEnabled"`
}
