package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dropvid/clip-processing-service/domain"
)

// FFprobeExtractor probes a local file with a single ffprobe JSON call.
type FFprobeExtractor struct {
	Binary string
}

func NewFFprobeExtractor(tc *Toolchain) *FFprobeExtractor {
	return &FFprobeExtractor{Binary: tc.FFprobe}
}

func (e *FFprobeExtractor) Extract(ctx context.Context, path string) (*domain.VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, e.Binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, &domain.ExtractionError{
			Path:      path,
			Cause:     fmt.Errorf("%w: %s", err, firstLine(stderr.String())),
			Transient: execTransient(err),
		}
	}

	meta, err := ParseProbeJSON(out)
	if err != nil {
		return nil, &domain.ExtractionError{Path: path, Cause: err}
	}
	return meta, nil
}

// ParseProbeJSON converts raw ffprobe JSON output into VideoMetadata.
// Exported for testing without a real ffprobe binary.
func ParseProbeJSON(data []byte) (*domain.VideoMetadata, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	if raw.Format.FormatName == "" && len(raw.Streams) == 0 {
		return nil, errors.New("ffprobe output carries no format or stream data")
	}

	meta := &domain.VideoMetadata{
		Container: raw.Format.FormatName,
		Duration:  parseFloat(raw.Format.Duration),
		Size:      parseInt64(raw.Format.Size),
	}
	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			if meta.VideoCodec == "" {
				meta.VideoCodec = s.CodecName
				meta.Width = s.Width
				meta.Height = s.Height
				if meta.Duration == 0 {
					meta.Duration = parseFloat(s.Duration)
				}
			}
		case "audio":
			if meta.AudioCodec == "" {
				meta.AudioCodec = s.CodecName
			}
		}
	}
	return meta, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

type ffprobeStream struct {
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

// ffprobe returns numbers as strings.

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx > 0 {
		return s[:idx]
	}
	return s
}
