package folders

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicenote/internal/domain"
)

func TestParse(t *testing.T) {
	t.Parallel()

	folders, err := Parse([]byte(`
folders:
  - id: inbox
    name: Inbox
  - id: " work "
`))
	require.NoError(t, err)
	assert.Equal(t, []domain.Folder{
		{ID: "inbox", Name: "Inbox"},
		{ID: "work", Name: "work"},
	}, folders)
}

func TestParseRejectsBadEntries(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing id": "folders:\n  - name: Nameless\n",
		"duplicate":  "folders:\n  - id: a\n  - id: a\n",
		"not yaml":   "folders: [",
	}
	for name, doc := range cases {
		doc := doc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidFile)
		})
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	folders, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, folders)

	folders, err = Load("")
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func TestWatcherReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "folders.yaml")
	require.NoError(t, os.WriteFile(path, []byte("folders:\n  - id: a\n"), 0o600))

	var (
		mu     sync.Mutex
		latest []domain.Folder
		errs   []error
	)
	w := NewWatcher(path, log.New(io.Discard))
	w.debounce = 10 * time.Millisecond
	w.OnChange = func(folders []domain.Folder) {
		mu.Lock()
		defer mu.Unlock()
		latest = folders
	}
	w.OnError = func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(path, []byte("folders:\n  - id: a\n  - id: b\n    name: B\n"), 0o600))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("folders:\n  - name: broken\n"), 0o600))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Len(t, latest, 2, "a broken file keeps the last good list")
	mu.Unlock()

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherCloseWithoutStart(t *testing.T) {
	t.Parallel()

	w := NewWatcher(filepath.Join(t.TempDir(), "f.yaml"), nil)
	assert.NoError(t, w.Close())
}
