package domain

import (
	"context"
	"time"
)

// ProcessingRepository persists processing records. RecordStatus is an
// upsert: it sets status and updated_at and merges details into the
// existing map, creating the record when the id is unknown.
type ProcessingRepository interface {
	RecordStatus(ctx context.Context, id, ownerID string, status ProcessingStatus, details map[string]string) error
	Find(ctx context.Context, id string) (*ProcessingRecord, error)
}

// ObjectStore moves byte streams to and from bucket storage.
type ObjectStore interface {
	Download(ctx context.Context, bucket, key, localPath string) error
	Upload(ctx context.Context, localPath, bucket, key, contentType string) error
	Delete(ctx context.Context, bucket, key string) error
}

// MetadataExtractor probes a local video file.
type MetadataExtractor interface {
	Extract(ctx context.Context, path string) (*VideoMetadata, error)
}

// ThumbnailGenerator extracts one still frame at timestamp seconds and
// returns the path of the written image. duration guards the timestamp;
// pass 0 when unknown.
type ThumbnailGenerator interface {
	Generate(ctx context.Context, videoPath string, timestamp, duration float64) (string, error)
}

// Transcoder re-encodes a local video to the delivery profile and
// returns the path of the written output. duration (seconds, 0 when
// unknown) scales progress reporting; progress receives the encode
// percentage and may be nil.
type Transcoder interface {
	Transcode(ctx context.Context, videoPath string, duration float64, progress func(pct float64)) (string, error)
}

// NotificationService tells an upload's owner about a status change.
type NotificationService interface {
	Notify(ownerID, uploadID string, status ProcessingStatus, message string)
}

// PipelineMetrics records pipeline observations. Implementations must
// be safe for concurrent use.
type PipelineMetrics interface {
	ItemProcessed(status ProcessingStatus)
	StageObserved(stage string, d time.Duration)
	RetryAttempted(op string)
}
