package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dropvid/clip-processing-service/domain"
)

// Delivery profile: H.264 high profile + AAC in MP4, width capped at
// maxOutputWidth with the aspect ratio preserved by padding to the
// standard 16:9 frame.
const (
	maxOutputWidth  = 1280
	maxOutputHeight = 720
)

// FFmpegTranscoder re-encodes a local video to the delivery profile.
type FFmpegTranscoder struct {
	Binary string
}

func NewFFmpegTranscoder(tc *Toolchain) *FFmpegTranscoder {
	return &FFmpegTranscoder{Binary: tc.FFmpeg}
}

// Transcode writes <video-without-ext>_processed.mp4 next to the source
// file and returns its path. progress, when non-nil, receives the
// encode percentage parsed from ffmpeg's machine-readable -progress
// stream (only when duration is known).
func (t *FFmpegTranscoder) Transcode(ctx context.Context, videoPath string, duration float64, progress func(pct float64)) (string, error) {
	outPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + "_processed.mp4"

	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		maxOutputWidth, maxOutputHeight, maxOutputWidth, maxOutputHeight,
	)

	cmd := exec.CommandContext(ctx, t.Binary,
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-i", videoPath,
		"-vf", filter,
		"-c:v", "libx264", "-preset", "medium", "-crf", "23",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-y", outPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", &domain.TranscodeError{Path: videoPath, Cause: err, Transient: true}
	}

	if err := cmd.Start(); err != nil {
		return "", &domain.TranscodeError{Path: videoPath, Cause: err, Transient: execTransient(err)}
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if pct, ok := encodeProgress(scanner.Text(), duration); ok && progress != nil {
			progress(pct)
		}
	}

	if err := cmd.Wait(); err != nil {
		return "", &domain.TranscodeError{
			Path:      videoPath,
			Cause:     fmt.Errorf("%w: %s", err, firstLine(stderr.String())),
			Transient: true,
		}
	}
	return outPath, nil
}

// encodeProgress turns one ffmpeg -progress line into a percentage.
// out_time_ms is microseconds despite the name.
func encodeProgress(line string, duration float64) (float64, bool) {
	if line == "progress=end" {
		return 100, true
	}
	val, ok := strings.CutPrefix(line, "out_time_ms=")
	if !ok || duration <= 0 {
		return 0, false
	}
	us, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	pct := float64(us) / 1e6 / duration * 100
	if pct > 100 {
		pct = 100
	}
	return pct, true
}
