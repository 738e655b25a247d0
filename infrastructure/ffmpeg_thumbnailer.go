package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dropvid/clip-processing-service/domain"
)

// FFmpegThumbnailer extracts a single still frame from a local video.
type FFmpegThumbnailer struct {
	Binary string
}

func NewFFmpegThumbnailer(tc *Toolchain) *FFmpegThumbnailer {
	return &FFmpegThumbnailer{Binary: tc.FFmpeg}
}

// Generate writes <video-without-ext>.jpg next to the source file and
// returns its path. A timestamp at or past the known stream duration is
// rejected up front instead of letting ffmpeg emit an empty image.
func (t *FFmpegThumbnailer) Generate(ctx context.Context, videoPath string, timestamp, duration float64) (string, error) {
	if timestamp < 0 {
		return "", &domain.ThumbnailError{Path: videoPath, Cause: fmt.Errorf("negative timestamp %.3f", timestamp)}
	}
	if duration > 0 && timestamp >= duration {
		return "", &domain.ThumbnailError{
			Path:  videoPath,
			Cause: fmt.Errorf("timestamp %.3fs is beyond stream duration %.3fs", timestamp, duration),
		}
	}

	outPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".jpg"
	cmd := exec.CommandContext(ctx, t.Binary,
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", timestamp),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &domain.ThumbnailError{
			Path:      videoPath,
			Cause:     fmt.Errorf("%w: %s", err, firstLine(stderr.String())),
			Transient: execTransient(err),
		}
	}

	if fi, err := os.Stat(outPath); err != nil || fi.Size() == 0 {
		return "", &domain.ThumbnailError{Path: videoPath, Cause: errors.New("encoder exited cleanly but wrote no image")}
	}
	return outPath, nil
}
