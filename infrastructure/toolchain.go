package infrastructure

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultToolDirs are the install locations probed for ffmpeg and
// ffprobe, in order. /opt/bin covers layer-style deployments where the
// binaries are shipped alongside the function code.
var DefaultToolDirs = []string{"/opt/bin", "/usr/local/bin", "/usr/bin", "/bin"}

// Toolchain holds the resolved paths of the external media binaries.
// Resolution happens once at startup so a missing binary stops the
// service before it consumes any work.
type Toolchain struct {
	FFmpeg  string
	FFprobe string
}

// NewToolchain probes dirs (DefaultToolDirs when empty) for both
// binaries, falling back to PATH. The returned error aggregates every
// probed location for each missing binary.
func NewToolchain(dirs []string) (*Toolchain, error) {
	if len(dirs) == 0 {
		dirs = DefaultToolDirs
	}

	ffmpeg, ffmpegErr := findBinary("ffmpeg", dirs)
	ffprobe, ffprobeErr := findBinary("ffprobe", dirs)
	if err := errors.Join(ffmpegErr, ffprobeErr); err != nil {
		return nil, err
	}
	return &Toolchain{FFmpeg: ffmpeg, FFprobe: ffprobe}, nil
}

func findBinary(name string, dirs []string) (string, error) {
	probed := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() && fi.Mode()&0o111 != 0 {
			return candidate, nil
		}
		probed = append(probed, candidate)
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("%s not found: probed %s, then PATH", name, strings.Join(probed, ", "))
}

// execTransient classifies an external command failure. A binary that
// is missing or not executable never fixes itself on retry.
func execTransient(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return false
	}
	return !errors.Is(err, fs.ErrNotExist)
}
