package domain

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus is the lifecycle state of one upload's pipeline run.
type ProcessingStatus string

const (
	StatusStarted             ProcessingStatus = "STARTED"
	StatusGeneratingThumbnail ProcessingStatus = "GENERATING_THUMBNAIL"
	StatusProcessingVideo     ProcessingStatus = "PROCESSING_VIDEO"
	StatusUploading           ProcessingStatus = "UPLOADING"
	StatusCompleted           ProcessingStatus = "COMPLETED"
	StatusFailed              ProcessingStatus = "FAILED"
	StatusCancelled           ProcessingStatus = "CANCELLED"
)

// Terminal reports whether no further pipeline transition is expected.
func (s ProcessingStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ProcessingRecord tracks one video's progress through the pipeline.
// Details is a free-form merge target: probe summaries, output keys,
// or the error message on failure.
type ProcessingRecord struct {
	ID        string
	OwnerID   string
	Status    ProcessingStatus
	Details   map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UploadNotification is one object-creation event: a new video landed
// in the upload bucket.
type UploadNotification struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// NotificationBatch is the wire format delivered by the event source.
// Items are processed strictly in order, one fully before the next.
type NotificationBatch struct {
	Records []UploadNotification `json:"records"`
}

// VideoMetadata is the probed description of a source video.
type VideoMetadata struct {
	Container  string
	Duration   float64
	Size       int64
	VideoCodec string
	AudioCodec string
	Width      int
	Height     int
}

// ProcessingID derives a stable id from the source object location, so
// repeated notifications for the same object always map to one record.
func (n UploadNotification) ProcessingID() string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("s3://"+n.Bucket+"/"+n.Key)).String()
}

// OwnerID extracts the uploader from keys shaped uploads/<owner>/<file>.
// Returns empty when the key does not follow that convention.
func (n UploadNotification) OwnerID() string {
	parts := strings.Split(n.Key, "/")
	if len(parts) >= 3 && parts[0] == "uploads" {
		return parts[1]
	}
	return ""
}

// ThumbnailKey is the destination key for the extracted still:
// thumbnails/<basename-without-ext>.jpg.
func ThumbnailKey(sourceKey string) string {
	base := path.Base(sourceKey)
	base = strings.TrimSuffix(base, path.Ext(base))
	return "thumbnails/" + base + ".jpg"
}

// VideoKey is the destination key for the transcoded output:
// videos/<basename>.
func VideoKey(sourceKey string) string {
	return "videos/" + path.Base(sourceKey)
}
