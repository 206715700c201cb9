package folders

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"voicenote/internal/domain"
)

var ErrInvalidFile = errors.New("invalid folders file")

type fileFormat struct {
	Folders []domain.Folder `yaml:"folders"`
}

// Load reads the folder list at path. A missing file yields an empty list,
// which leaves folder selection disabled.
func Load(path string) ([]domain.Folder, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read folders file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a folders document:
//
//	folders:
//	  - id: inbox
//	    name: Inbox
//
// Ids must be present and unique. A missing name falls back to the id.
func Parse(data []byte) ([]domain.Folder, error) {
	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	seen := make(map[domain.FolderID]struct{}, len(doc.Folders))
	folders := make([]domain.Folder, 0, len(doc.Folders))
	for index, folder := range doc.Folders {
		folder.ID = domain.FolderID(strings.TrimSpace(string(folder.ID)))
		folder.Name = strings.TrimSpace(folder.Name)
		if folder.ID == domain.NoFolder {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidFile, index)
		}
		if _, dup := seen[folder.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidFile, folder.ID)
		}
		seen[folder.ID] = struct{}{}
		if folder.Name == "" {
			folder.Name = string(folder.ID)
		}
		folders = append(folders, folder)
	}
	return folders, nil
}
