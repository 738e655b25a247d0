package domain

import (
	"errors"
	"testing"
)

func TestProcessingID_Deterministic(t *testing.T) {
	a := UploadNotification{Bucket: "dropclip-uploads", Key: "uploads/fan42/clip1.mov"}
	b := UploadNotification{Bucket: "dropclip-uploads", Key: "uploads/fan42/clip1.mov"}
	if a.ProcessingID() != b.ProcessingID() {
		t.Errorf("same object should map to same id: %s vs %s", a.ProcessingID(), b.ProcessingID())
	}

	c := UploadNotification{Bucket: "dropclip-uploads", Key: "uploads/fan42/clip2.mov"}
	if a.ProcessingID() == c.ProcessingID() {
		t.Error("different objects should map to different ids")
	}
}

func TestOwnerID(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"uploads/fan42/clip1.mov", "fan42"},
		{"uploads/creative-7/shows/clip.mp4", "creative-7"},
		{"clip1.mov", ""},
		{"other/fan42/clip1.mov", ""},
		{"uploads/clip1.mov", ""},
	}
	for _, tc := range cases {
		n := UploadNotification{Bucket: "b", Key: tc.key}
		if got := n.OwnerID(); got != tc.want {
			t.Errorf("OwnerID(%q): got %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestOutputKeys(t *testing.T) {
	if got := ThumbnailKey("uploads/fan42/clip1.mov"); got != "thumbnails/clip1.jpg" {
		t.Errorf("ThumbnailKey: got %q", got)
	}
	if got := ThumbnailKey("clip1"); got != "thumbnails/clip1.jpg" {
		t.Errorf("ThumbnailKey without ext: got %q", got)
	}
	if got := VideoKey("uploads/fan42/clip1.mov"); got != "videos/clip1.mov" {
		t.Errorf("VideoKey: got %q", got)
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []ProcessingStatus{StatusCompleted, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []ProcessingStatus{StatusStarted, StatusGeneratingThumbnail, StatusProcessingVideo, StatusUploading} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(&ThumbnailError{Path: "x", Cause: errors.New("ts past end")}) {
		t.Error("untagged thumbnail error should be non-transient")
	}
	if !IsTransient(&UploadError{Bucket: "b", Key: "k", Cause: errors.New("timeout")}) {
		t.Error("upload errors are transient")
	}
	if !IsTransient(errors.New("anything else")) {
		t.Error("unclassified errors default to transient")
	}

	wrapped := &RetryExhaustedError{Op: "transcode", Attempts: 3,
		Last: &TranscodeError{Path: "x", Cause: errors.New("boom"), Transient: true}}
	if !IsTransient(wrapped) {
		t.Error("classification should see through wrapping")
	}
}
