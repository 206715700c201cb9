package usecase

import (
	"voicenote/internal/domain"
	"voicenote/internal/ports"
)

// NoteDraft is the unsaved note behind the authoring surface.
type NoteDraft struct {
	content    string
	folderID   domain.FolderID
	onboarding bool
}

func NewNoteDraft() *NoteDraft {
	return &NoteDraft{onboarding: true}
}

func (d *NoteDraft) Content() string {
	return d.content
}

func (d *NoteDraft) FolderID() domain.FolderID {
	return d.folderID
}

// OnboardingVisible is true only while the draft is empty and dictation has not
// begun.
func (d *NoteDraft) OnboardingVisible() bool {
	return d.onboarding
}

// SetContent overwrites the draft with typed text.
func (d *NoteDraft) SetContent(text string) {
	d.content = text
	d.onboarding = text == ""
}

// ReceiveTranscript overwrites the draft with dictated text.
func (d *NoteDraft) ReceiveTranscript(text string) {
	d.content = text
	d.onboarding = false
}

// MarkDictationStarted leaves onboarding as soon as the microphone opens.
func (d *NoteDraft) MarkDictationStarted() {
	d.onboarding = false
}

func (d *NoteDraft) SelectFolder(id domain.FolderID) {
	d.folderID = id
}

// Save hands the draft to creator exactly once and resets it. An empty draft is
// left untouched and reports false.
func (d *NoteDraft) Save(creator ports.NoteCreator) (domain.Note, bool) {
	if d.content == "" {
		return domain.Note{}, false
	}

	note := domain.Note{Content: d.content, FolderID: d.folderID}
	creator.NoteCreated(note.Content, note.FolderID)
	d.Reset()
	return note, true
}

func (d *NoteDraft) Reset() {
	d.content = ""
	d.folderID = domain.NoFolder
	d.onboarding = true
}
