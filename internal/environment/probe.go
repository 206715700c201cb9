package environment

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Marker names a reason the host may not let the recorder reach a microphone.
type Marker string

const (
	MarkerFlatpak       Marker = "flatpak"
	MarkerSnap          Marker = "snap"
	MarkerContainer     Marker = "container"
	MarkerRemoteSession Marker = "remote_session"
	MarkerNoAudioServer Marker = "no_audio_server"
)

// Probe inspects the process environment for sandboxes, containers, remote
// sessions, and a missing audio server. It implements ports.EnvironmentProbe.
type Probe struct {
	root   string
	getenv func(string) string
}

func NewProbe() *Probe {
	return &Probe{root: "/", getenv: os.Getenv}
}

// Restricted reports whether any marker was found.
func (p *Probe) Restricted(ctx context.Context) (bool, error) {
	markers, err := p.Detect(ctx)
	if err != nil {
		return false, err
	}
	return len(markers) > 0, nil
}

// Detect returns every marker that applies, in a stable order.
func (p *Probe) Detect(ctx context.Context) ([]Marker, error) {
	var markers []Marker

	checks := []struct {
		marker Marker
		check  func() (bool, error)
	}{
		{MarkerFlatpak, p.inFlatpak},
		{MarkerSnap, p.inSnap},
		{MarkerContainer, p.inContainer},
		{MarkerRemoteSession, p.inRemoteSession},
		{MarkerNoAudioServer, p.missingAudioServer},
	}

	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hit, err := c.check()
		if err != nil {
			return nil, err
		}
		if hit {
			markers = append(markers, c.marker)
		}
	}
	return markers, nil
}

func (p *Probe) inFlatpak() (bool, error) {
	if p.getenv("FLATPAK_ID") != "" {
		return true, nil
	}
	return p.exists(".flatpak-info")
}

func (p *Probe) inSnap() (bool, error) {
	return p.getenv("SNAP") != "", nil
}

func (p *Probe) inContainer() (bool, error) {
	if p.getenv("container") != "" {
		return true, nil
	}
	for _, marker := range []string{".dockerenv", "run/.containerenv"} {
		found, err := p.exists(marker)
		if err != nil || found {
			return found, err
		}
	}
	return false, nil
}

func (p *Probe) inRemoteSession() (bool, error) {
	return p.getenv("SSH_CONNECTION") != "" || p.getenv("SSH_TTY") != "", nil
}

// missingAudioServer is true when neither PULSE_SERVER nor a pulse or pipewire
// socket under XDG_RUNTIME_DIR is present.
func (p *Probe) missingAudioServer() (bool, error) {
	if strings.TrimSpace(p.getenv("PULSE_SERVER")) != "" {
		return false, nil
	}
	runtimeDir := strings.TrimSpace(p.getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return true, nil
	}
	for _, socket := range []string{"pulse/native", "pipewire-0"} {
		found, err := p.existsAbs(filepath.Join(runtimeDir, socket))
		if err != nil || found {
			return !found, err
		}
	}
	return true, nil
}

func (p *Probe) exists(rel string) (bool, error) {
	return p.existsAbs(filepath.Join(p.root, rel))
}

func (p *Probe) existsAbs(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return false, nil
	default:
		return false, err
	}
}
