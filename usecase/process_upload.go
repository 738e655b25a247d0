package usecase

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dropvid/clip-processing-service/domain"
)

// defaultThumbnailTimestamp is how far into the stream the still frame
// is taken from, when the clip is long enough.
const defaultThumbnailTimestamp = 1.0

// ProcessUploadUseCase is the pipeline driver. For each upload
// notification it runs download → probe → thumbnail → transcode →
// upload, recording a status transition before every phase. Items in a
// batch are processed strictly one after another; a failing item is
// recorded as FAILED and does not stop the rest of the batch.
type ProcessUploadUseCase struct {
	Store       domain.ObjectStore
	Repo        domain.ProcessingRepository
	Extractor   domain.MetadataExtractor
	Thumbnailer domain.ThumbnailGenerator
	Transcoder  domain.Transcoder
	Notifier    domain.NotificationService
	Metrics     domain.PipelineMetrics
	Retry       RetryPolicy

	ThumbnailBucket string
	VideoBucket     string
	ScratchDir      string // base for per-item scratch dirs; empty means os.TempDir()
}

// BatchResult summarizes one batch invocation.
type BatchResult struct {
	Processed int
	Failed    int
}

// ProcessBatch handles every notification in the batch sequentially.
func (uc *ProcessUploadUseCase) ProcessBatch(ctx context.Context, batch domain.NotificationBatch) BatchResult {
	var res BatchResult
	for i, n := range batch.Records {
		log.Printf("pipeline [%d/%d] bucket=%s key=%s", i+1, len(batch.Records), n.Bucket, n.Key)
		if err := uc.processOne(ctx, n); err != nil {
			log.Printf("pipeline failed key=%s error=%v", n.Key, err)
			res.Failed++
			continue
		}
		res.Processed++
	}
	return res
}

func (uc *ProcessUploadUseCase) processOne(ctx context.Context, n domain.UploadNotification) error {
	id := n.ProcessingID()
	owner := n.OwnerID()

	uc.recordStatus(ctx, id, owner, domain.StatusStarted, map[string]string{
		"sourceBucket": n.Bucket,
		"sourceKey":    n.Key,
	})
	uc.notify(owner, id, domain.StatusStarted, "Your video is being processed.")

	scratch, err := os.MkdirTemp(uc.ScratchDir, "dropclip-")
	if err != nil {
		return uc.fail(ctx, id, owner, fmt.Errorf("create scratch dir: %w", err))
	}
	defer os.RemoveAll(scratch) // best-effort; the environment is ephemeral

	localPath := filepath.Join(scratch, path.Base(n.Key))

	start := time.Now()
	if err := uc.Store.Download(ctx, n.Bucket, n.Key, localPath); err != nil {
		return uc.fail(ctx, id, owner, err)
	}
	uc.observe("download", start)

	start = time.Now()
	meta, err := uc.Extractor.Extract(ctx, localPath)
	if err != nil {
		return uc.fail(ctx, id, owner, err)
	}
	uc.observe("probe", start)

	uc.recordStatus(ctx, id, owner, domain.StatusGeneratingThumbnail, metadataDetails(meta))

	ts := defaultThumbnailTimestamp
	if meta.Duration > 0 && meta.Duration <= ts {
		ts = meta.Duration / 2
	}
	start = time.Now()
	thumbPath, err := uc.Thumbnailer.Generate(ctx, localPath, ts, meta.Duration)
	if err != nil {
		return uc.fail(ctx, id, owner, err)
	}
	uc.observe("thumbnail", start)

	uc.recordStatus(ctx, id, owner, domain.StatusProcessingVideo, nil)

	start = time.Now()
	var outPath string
	err = uc.Retry.Do(ctx, "transcode", func() error {
		var terr error
		outPath, terr = uc.Transcoder.Transcode(ctx, localPath, meta.Duration, progressLogger(id))
		return terr
	})
	if err != nil {
		return uc.fail(ctx, id, owner, err)
	}
	uc.observe("transcode", start)

	uc.recordStatus(ctx, id, owner, domain.StatusUploading, nil)

	thumbKey := domain.ThumbnailKey(n.Key)
	videoKey := domain.VideoKey(n.Key)

	start = time.Now()
	if err := uc.Store.Upload(ctx, thumbPath, uc.ThumbnailBucket, thumbKey, "image/jpeg"); err != nil {
		return uc.fail(ctx, id, owner, err)
	}
	if err := uc.Store.Upload(ctx, outPath, uc.VideoBucket, videoKey, "video/mp4"); err != nil {
		return uc.fail(ctx, id, owner, err)
	}
	uc.observe("upload", start)

	uc.recordStatus(ctx, id, owner, domain.StatusCompleted, map[string]string{
		"thumbnailKey": thumbKey,
		"videoKey":     videoKey,
	})
	uc.notify(owner, id, domain.StatusCompleted, "Your video is ready.")
	if uc.Metrics != nil {
		uc.Metrics.ItemProcessed(domain.StatusCompleted)
	}
	return nil
}

// fail records the terminal FAILED status with the error message and
// hands the error back for batch accounting.
func (uc *ProcessUploadUseCase) fail(ctx context.Context, id, owner string, err error) error {
	uc.recordStatus(ctx, id, owner, domain.StatusFailed, map[string]string{
		"error": err.Error(),
	})
	uc.notify(owner, id, domain.StatusFailed, "Processing your video failed.")
	if uc.Metrics != nil {
		uc.Metrics.ItemProcessed(domain.StatusFailed)
	}
	return err
}

// recordStatus writes a transition. Write failures are logged and
// swallowed: the status store must never take the pipeline down.
func (uc *ProcessUploadUseCase) recordStatus(ctx context.Context, id, owner string, status domain.ProcessingStatus, details map[string]string) {
	if err := uc.Repo.RecordStatus(ctx, id, owner, status, details); err != nil {
		werr := &domain.StatusWriteError{ID: id, Cause: err}
		log.Printf("status write dropped id=%s status=%s error=%v", id, status, werr)
	}
}

func (uc *ProcessUploadUseCase) notify(owner, id string, status domain.ProcessingStatus, message string) {
	if uc.Notifier != nil {
		uc.Notifier.Notify(owner, id, status, message)
	}
}

func (uc *ProcessUploadUseCase) observe(stage string, start time.Time) {
	if uc.Metrics != nil {
		uc.Metrics.StageObserved(stage, time.Since(start))
	}
}

func metadataDetails(meta *domain.VideoMetadata) map[string]string {
	return map[string]string{
		"container":  meta.Container,
		"duration":   strconv.FormatFloat(meta.Duration, 'f', 3, 64),
		"videoCodec": meta.VideoCodec,
		"audioCodec": meta.AudioCodec,
		"resolution": fmt.Sprintf("%dx%d", meta.Width, meta.Height),
	}
}

// progressLogger reports encode progress in coarse steps so long
// transcodes stay visible without flooding the log.
func progressLogger(id string) func(pct float64) {
	last := -25.0
	return func(pct float64) {
		if pct-last >= 25 || pct >= 100 {
			last = pct
			log.Printf("transcode progress id=%s pct=%.0f", id, pct)
		}
	}
}
