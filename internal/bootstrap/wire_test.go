package bootstrap

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicenote/internal/domain"
)

func TestBuildSuccess(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DEEPGRAM_API_KEY", "test-key")
	t.Setenv("VOICENOTE_FOLDERS_FILE", "")

	services, err := Build(context.Background(), &recordingSink{}, noopNotes{}, Options{LogOutput: io.Discard})
	require.NoError(t, err)
	t.Cleanup(services.Close)

	assert.NotNil(t, services.Coordinator)
	assert.NotNil(t, services.Recognizer)
	assert.Equal(t, filepath.Join(home, ".config", "voicenote", "folders.yaml"), services.Config.Folders.Path)

	var open bool
	require.NoError(t, services.Loop.Do(context.Background(), func() {
		services.Coordinator.Open()
		open = services.Coordinator.IsOpen()
	}))
	assert.True(t, open)
}

func TestBuildLoadsFolders(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "folders.yaml")
	require.NoError(t, os.WriteFile(path, []byte("folders:\n  - id: inbox\n    name: Inbox\n"), 0o600))

	t.Setenv("HOME", home)
	t.Setenv("VOICENOTE_FOLDERS_FILE", path)

	services, err := Build(context.Background(), &recordingSink{}, noopNotes{}, Options{LogOutput: io.Discard, WatchFolders: true})
	require.NoError(t, err)
	t.Cleanup(services.Close)

	var list []domain.Folder
	require.NoError(t, services.Loop.Do(context.Background(), func() {
		list = services.Coordinator.Folders()
	}))
	assert.Equal(t, []domain.Folder{{ID: "inbox", Name: "Inbox"}}, list)
}

func TestBuildReportsInvalidFolders(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "folders.yaml")
	require.NoError(t, os.WriteFile(path, []byte("folders:\n  - id: a\n  - id: a\n"), 0o600))

	t.Setenv("HOME", home)
	t.Setenv("VOICENOTE_FOLDERS_FILE", path)

	sink := &recordingSink{}
	services, err := Build(context.Background(), sink, noopNotes{}, Options{LogOutput: io.Discard})
	require.NoError(t, err, "a broken folders file must not prevent startup")
	t.Cleanup(services.Close)

	// Flush the posted error event.
	require.NoError(t, services.Loop.Do(context.Background(), func() {}))
	assert.Equal(t, []domain.ErrorCode{domain.ErrorCodeFolders}, sink.codes())
}

type recordingSink struct {
	mu     sync.Mutex
	errors []domain.ErrorCode
}

func (s *recordingSink) SessionStateChanged(domain.SessionState, domain.SessionStateReason) {}
func (s *recordingSink) TranscriptUpdated(string)                                          {}
func (s *recordingSink) SurfaceVisibilityChanged(bool)                                     {}
func (s *recordingSink) Advisory(domain.AdvisoryKind)                                      {}

func (s *recordingSink) SessionError(code domain.ErrorCode, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, code)
}

func (s *recordingSink) codes() []domain.ErrorCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ErrorCode(nil), s.errors...)
}

type noopNotes struct{}

func (noopNotes) NoteCreated(string, domain.FolderID) {}
