package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/dropvid/clip-processing-service/domain"
	"github.com/dropvid/clip-processing-service/usecase"
)

var testSecret = []byte("test-secret")

type capturingPublisher struct {
	batches []domain.NotificationBatch
	err     error
}

func (p *capturingPublisher) PublishBatch(_ context.Context, batch domain.NotificationBatch) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch)
	return nil
}

type apiFixture struct {
	router    *gin.Engine
	repo      *MemoryProcessingRepository
	store     *MemoryObjectStore
	publisher *capturingPublisher
	handlers  *Handlers
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewMemoryProcessingRepository()
	store := NewMemoryObjectStore()
	pub := &capturingPublisher{}
	h := &Handlers{
		Cancel:    &usecase.CancelUploadUseCase{Repo: repo, Store: store},
		Repo:      repo,
		Publisher: pub,
	}
	router := gin.New()
	h.Register(router, testSecret)
	return &apiFixture{router: router, repo: repo, store: store, publisher: pub, handlers: h}
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Username: "ada",
		UserID:   "creative-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func doJSON(f *apiFixture, method, path, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestUploadStatusEndpoint(t *testing.T) {
	f := newAPI(t)
	_ = f.repo.RecordStatus(context.Background(), "abc", "fan42", domain.StatusProcessingVideo, map[string]string{"sourceKey": "uploads/fan42/clip1.mov"})

	w := doJSON(f, http.MethodGet, "/uploads/abc", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status code: %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Status  string            `json:"status"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != string(domain.StatusProcessingVideo) {
		t.Errorf("status: got %q", resp.Status)
	}
	if resp.Details["sourceKey"] != "uploads/fan42/clip1.mov" {
		t.Errorf("details: %v", resp.Details)
	}

	if w := doJSON(f, http.MethodGet, "/uploads/nope", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown id: got %d, want 404", w.Code)
	}
}

func TestCancelEndpoint_RequiresAuth(t *testing.T) {
	f := newAPI(t)
	if w := doJSON(f, http.MethodPost, "/uploads/cancel", `{"upload_id":"abc"}`, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", w.Code)
	}
	if w := doJSON(f, http.MethodPost, "/uploads/cancel", `{"upload_id":"abc"}`, "Bearer garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: got %d, want 401", w.Code)
	}
}

func TestCancelEndpoint(t *testing.T) {
	f := newAPI(t)
	auth := bearerToken(t)

	w := doJSON(f, http.MethodPost, "/uploads/cancel",
		`{"upload_id":"abc","bucket":"dropclip-uploads","key":"uploads/fan42/clip1.mov"}`, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("status code: %d body=%s", w.Code, w.Body.String())
	}

	rec, err := f.repo.Find(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if rec.Status != domain.StatusCancelled {
		t.Errorf("status: got %s", rec.Status)
	}

	if w := doJSON(f, http.MethodPost, "/uploads/cancel", `{}`, auth); w.Code != http.StatusBadRequest {
		t.Errorf("missing upload_id: got %d, want 400", w.Code)
	}
}

func TestIngestEventsEndpoint(t *testing.T) {
	f := newAPI(t)
	auth := bearerToken(t)

	w := doJSON(f, http.MethodPost, "/events",
		`{"records":[{"bucket":"dropclip-uploads","key":"uploads/fan42/clip1.mov"}]}`, auth)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status code: %d body=%s", w.Code, w.Body.String())
	}
	if len(f.publisher.batches) != 1 || len(f.publisher.batches[0].Records) != 1 {
		t.Fatalf("published: %+v", f.publisher.batches)
	}

	if w := doJSON(f, http.MethodPost, "/events", `{"records":[]}`, auth); w.Code != http.StatusBadRequest {
		t.Errorf("empty batch: got %d, want 400", w.Code)
	}
	if w := doJSON(f, http.MethodPost, "/events", `{"records":[{"bucket":"b"}]}`, auth); w.Code != http.StatusBadRequest {
		t.Errorf("record without key: got %d, want 400", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPI(t)
	if w := doJSON(f, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("healthy: got %d", w.Code)
	}

	f.handlers.PingDB = func() error { return errors.New("connection refused") }
	if w := doJSON(f, http.MethodGet, "/health", "", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("db down: got %d, want 500", w.Code)
	}
}
