package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicenote/internal/domain"
)

type coordinatorHarness struct {
	coordinator *SurfaceCoordinator
	recognizer  *fakeRecognizer
	scheduler   *fakeScheduler
	events      *fakeEventSink
	notes       *fakeNoteCreator
}

func newCoordinatorHarness(available bool) *coordinatorHarness {
	h := &coordinatorHarness{
		recognizer: &fakeRecognizer{available: available},
		scheduler:  newFakeScheduler(),
		events:     &fakeEventSink{},
		notes:      &fakeNoteCreator{},
	}
	gate := NewFeatureGate(h.recognizer, nil, h.scheduler, h.events, testLogger())
	h.coordinator = NewSurfaceCoordinator(
		gate,
		h.recognizer,
		h.scheduler,
		h.events,
		h.notes,
		testLogger(),
		SessionConfig{Locale: "en-US", RestartDelay: 10 * time.Millisecond},
	)
	return h
}

func TestSurfaceCoordinatorOpenStartsClean(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	h.coordinator.Open()

	status := h.coordinator.Status()
	assert.True(t, status.Open)
	assert.Equal(t, domain.SessionStateIdle, status.State)
	assert.Empty(t, status.Content)
	assert.True(t, status.OnboardingVisible)
	assert.False(t, status.FolderSelectionEnabled)
	assert.Equal(t, []bool{true}, h.events.snapshotVisibility())
}

func TestSurfaceCoordinatorRejectsWhenClosed(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	assert.ErrorIs(t, h.coordinator.StartDictation(), ErrSurfaceClosed)
	assert.ErrorIs(t, h.coordinator.Type("x"), ErrSurfaceClosed)
	assert.ErrorIs(t, h.coordinator.SelectFolder("f1"), ErrSurfaceClosed)
	_, err := h.coordinator.Save()
	assert.ErrorIs(t, err, ErrSurfaceClosed)
}

func TestSurfaceCoordinatorDictationFeedsDraft(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	h.coordinator.Open()
	require.NoError(t, h.coordinator.StartDictation())
	assert.False(t, h.coordinator.Status().OnboardingVisible)

	h.recognizer.last().emit(domain.Segment{Text: "buy milk"})
	h.scheduler.runPending()

	assert.Equal(t, "buy milk", h.coordinator.Status().Content)
	assert.Contains(t, h.events.transcripts, "buy milk")
}

func TestSurfaceCoordinatorDictationExtendsTypedText(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	h.coordinator.Open()
	require.NoError(t, h.coordinator.Type("groceries:"))
	require.NoError(t, h.coordinator.StartDictation())

	h.recognizer.last().emit(domain.Segment{Text: "eggs"})
	h.scheduler.runPending()

	assert.Equal(t, "groceries: eggs", h.coordinator.Status().Content)
}

func TestSurfaceCoordinatorUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(false)
	h.coordinator.Open()
	require.NoError(t, h.coordinator.Type("still typing works"))

	err := h.coordinator.StartDictation()
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.Equal(t, []domain.AdvisoryKind{domain.AdvisoryUnsupported}, h.events.snapshotAdvisories())

	status := h.coordinator.Status()
	assert.Equal(t, domain.SessionStateIdle, status.State)
	assert.Equal(t, "still typing works", status.Content)
}

func TestSurfaceCoordinatorStopBeforeResultKeepsContent(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	h.coordinator.Open()
	require.NoError(t, h.coordinator.Type("draft"))
	require.NoError(t, h.coordinator.StartDictation())
	stream := h.recognizer.last()

	h.coordinator.StopDictation()
	stream.emit(domain.Segment{Text: "too late"})
	stream.end()
	h.scheduler.runPending()

	assert.Equal(t, "draft", h.coordinator.Status().Content)
	assert.Equal(t, domain.SessionStateStopped, h.coordinator.State())
}

func TestSurfaceCoordinatorCloseWhileListening(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	h.coordinator.Open()
	require.NoError(t, h.coordinator.StartDictation())
	h.recognizer.last().emit(domain.Segment{Text: "half a thought"})
	h.scheduler.runPending()
	require.NoError(t, h.coordinator.SetFolders([]domain.Folder{{ID: "f1", Name: "Inbox"}}))
	require.NoError(t, h.coordinator.SelectFolder("f1"))

	h.coordinator.Close()

	assert.Equal(t, domain.SessionStateStopped, h.coordinator.State())
	assert.False(t, h.coordinator.HasLiveStream())
	assert.Zero(t, h.recognizer.liveStreams())

	draft := h.coordinator.Draft()
	assert.Empty(t, draft.Content())
	assert.Equal(t, domain.NoFolder, draft.FolderID())
	assert.True(t, draft.OnboardingVisible())
	assert.Equal(t, []bool{true, false}, h.events.snapshotVisibility())
	assert.Empty(t, h.notes.notes)
}

func TestSurfaceCoordinatorCloseSuppressesPendingRestart(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	h.coordinator.Open()
	require.NoError(t, h.coordinator.StartDictation())
	h.recognizer.last().end()
	h.scheduler.runPending()

	h.coordinator.Close()
	h.scheduler.advance(time.Second)

	assert.Len(t, h.recognizer.streams, 1)
	assert.False(t, h.coordinator.HasLiveStream())
}

func TestSurfaceCoordinatorUnmountFromEveryState(t *testing.T) {
	t.Parallel()

	setups := map[string]func(h *coordinatorHarness){
		"onboarding": func(h *coordinatorHarness) {},
		"editing": func(h *coordinatorHarness) {
			_ = h.coordinator.Type("words")
		},
		"listening": func(h *coordinatorHarness) {
			_ = h.coordinator.StartDictation()
		},
	}

	for name, setup := range setups {
		setup := setup
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := newCoordinatorHarness(true)
			h.coordinator.Open()
			setup(h)

			h.coordinator.Unmount()

			assert.False(t, h.coordinator.IsOpen())
			assert.False(t, h.coordinator.HasLiveStream())
			assert.Zero(t, h.recognizer.liveStreams())
			assert.Empty(t, h.coordinator.Draft().Content())
			states := h.events.snapshotStates()
			assert.Equal(t, domain.SessionReasonSurfaceUnmounted, states[len(states)-1].reason)
		})
	}
}

func TestSurfaceCoordinatorReopenDiscardsPreviousSession(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	h.coordinator.Open()
	require.NoError(t, h.coordinator.StartDictation())
	first := h.recognizer.last()

	h.coordinator.SetOpen(false)
	h.coordinator.SetOpen(true)

	assert.Equal(t, domain.SessionStateIdle, h.coordinator.State())
	first.emit(domain.Segment{Text: "old"})
	h.scheduler.runPending()
	assert.Empty(t, h.coordinator.Status().Content)
}

func TestSurfaceCoordinatorSaveEmptyIsNoop(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	h.coordinator.Open()

	_, err := h.coordinator.Save()
	assert.ErrorIs(t, err, ErrEmptyDraft)
	assert.Empty(t, h.notes.notes)
	assert.True(t, h.coordinator.IsOpen())
	assert.Empty(t, h.events.snapshotAdvisories())
}

func TestSurfaceCoordinatorSaveHandsOffNote(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	h.coordinator.Open()
	require.NoError(t, h.coordinator.SetFolders([]domain.Folder{{ID: "f1", Name: "Work"}}))
	require.NoError(t, h.coordinator.StartDictation())
	h.recognizer.last().emit(domain.Segment{Text: "hello world", IsFinal: true})
	h.scheduler.runPending()
	require.NoError(t, h.coordinator.SelectFolder("f1"))

	note, err := h.coordinator.Save()
	require.NoError(t, err)

	assert.Equal(t, domain.Note{Content: "hello world", FolderID: "f1"}, note)
	assert.Equal(t, []domain.Note{{Content: "hello world", FolderID: "f1"}}, h.notes.notes)
	assert.Equal(t, []domain.AdvisoryKind{domain.AdvisoryNoteCreated}, h.events.snapshotAdvisories())
	assert.False(t, h.coordinator.HasLiveStream())
	assert.Equal(t, domain.SessionStateStopped, h.coordinator.State())

	draft := h.coordinator.Draft()
	assert.Empty(t, draft.Content())
	assert.Equal(t, domain.NoFolder, draft.FolderID())
	assert.True(t, draft.OnboardingVisible())
}

func TestSurfaceCoordinatorFolderSelection(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	h.coordinator.Open()

	assert.ErrorIs(t, h.coordinator.SelectFolder("f1"), ErrFolderSelectionDisabled)
	assert.NoError(t, h.coordinator.SelectFolder(domain.NoFolder))

	require.NoError(t, h.coordinator.SetFolders([]domain.Folder{{ID: "f1", Name: "A"}, {ID: "f2", Name: "B"}}))
	assert.True(t, h.coordinator.Status().FolderSelectionEnabled)
	assert.ErrorIs(t, h.coordinator.SelectFolder("nope"), ErrUnknownFolder)
	require.NoError(t, h.coordinator.SelectFolder("f2"))
	assert.Equal(t, domain.FolderID("f2"), h.coordinator.Status().FolderID)

	require.NoError(t, h.coordinator.SetFolders([]domain.Folder{{ID: "f1", Name: "A"}}))
	assert.Equal(t, domain.NoFolder, h.coordinator.Status().FolderID, "vanished folder must be cleared")
}

func TestSurfaceCoordinatorSetFoldersValidates(t *testing.T) {
	t.Parallel()

	h := newCoordinatorHarness(true)
	require.NoError(t, h.coordinator.SetFolders([]domain.Folder{{ID: "f1", Name: "A"}}))

	assert.ErrorIs(t, h.coordinator.SetFolders([]domain.Folder{{ID: "", Name: "nameless"}}), ErrInvalidFolders)
	assert.ErrorIs(t, h.coordinator.SetFolders([]domain.Folder{{ID: "x"}, {ID: "x"}}), ErrInvalidFolders)
	assert.Equal(t, []domain.Folder{{ID: "f1", Name: "A"}}, h.coordinator.Folders(), "rejected lists must not replace the current one")
}
