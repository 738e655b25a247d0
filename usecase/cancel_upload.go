package usecase

import (
	"context"
	"errors"
	"log"

	"github.com/dropvid/clip-processing-service/domain"
)

// ErrMissingUploadID rejects cancellation requests without an id.
var ErrMissingUploadID = errors.New("upload_id is required")

// CancelUploadInput carries a cancellation request. Bucket and Key are
// optional; when both are set the named object is deleted best-effort.
type CancelUploadInput struct {
	UploadID string
	Bucket   string
	Key      string
}

// CancelUploadUseCase marks an upload CANCELLED. Cancellation is
// advisory: it flips the status record (creating it when the id was
// never seen, since the store write is an upsert) but does not preempt
// an in-flight pipeline run.
type CancelUploadUseCase struct {
	Repo  domain.ProcessingRepository
	Store domain.ObjectStore
}

func (uc *CancelUploadUseCase) Execute(ctx context.Context, input CancelUploadInput) error {
	if input.UploadID == "" {
		return ErrMissingUploadID
	}

	if err := uc.Repo.RecordStatus(ctx, input.UploadID, "", domain.StatusCancelled, nil); err != nil {
		return &domain.StatusWriteError{ID: input.UploadID, Cause: err}
	}

	if input.Bucket != "" && input.Key != "" {
		if err := uc.Store.Delete(ctx, input.Bucket, input.Key); err != nil {
			log.Printf("cancel cleanup skipped bucket=%s key=%s error=%v", input.Bucket, input.Key, err)
		}
	}
	return nil
}
