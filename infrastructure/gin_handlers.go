package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropvid/clip-processing-service/domain"
	"github.com/dropvid/clip-processing-service/usecase"
)

// Claims is the JWT payload issued by the account service.
type Claims struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates a Bearer token against secret and stashes
// the caller's identity in the gin context.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if !strings.HasPrefix(tokenString, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// EventPublisher pushes a notification batch to the processing queue.
type EventPublisher interface {
	PublishBatch(ctx context.Context, batch domain.NotificationBatch) error
}

// Handlers bundles the HTTP surface: status polling for the UI,
// cancellation, event ingest, and health.
type Handlers struct {
	Cancel    *usecase.CancelUploadUseCase
	Repo      domain.ProcessingRepository
	Publisher EventPublisher
	PingDB    func() error
	PingQueue func() error
}

// Register mounts all routes. Mutating routes sit behind JWT auth.
func (h *Handlers) Register(r *gin.Engine, jwtSecret []byte) {
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/uploads/:id", h.UploadStatus)

	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.POST("/uploads/cancel", h.CancelUpload)
		auth.POST("/events", h.IngestEvents)
	}
}

// UploadStatus is the UI's polling endpoint.
func (h *Handlers) UploadStatus(c *gin.Context) {
	rec, err := h.Repo.Find(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown upload id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         rec.ID,
		"owner_id":   rec.OwnerID,
		"status":     rec.Status,
		"details":    rec.Details,
		"created_at": rec.CreatedAt,
		"updated_at": rec.UpdatedAt,
	})
}

type cancelRequest struct {
	UploadID string `json:"upload_id"`
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
}

// CancelUpload flags an upload CANCELLED and best-effort deletes the
// named source object.
func (h *Handlers) CancelUpload(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.Cancel.Execute(c.Request.Context(), usecase.CancelUploadInput{
		UploadID: req.UploadID,
		Bucket:   req.Bucket,
		Key:      req.Key,
	})
	switch {
	case errors.Is(err, usecase.ErrMissingUploadID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"upload_id": req.UploadID, "status": domain.StatusCancelled})
	}
}

// IngestEvents accepts a notification batch over HTTP and queues it,
// for deployments without a bucket event source.
func (h *Handlers) IngestEvents(c *gin.Context) {
	var batch domain.NotificationBatch
	if err := c.ShouldBindJSON(&batch); err != nil || len(batch.Records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must carry at least one record"})
		return
	}
	for _, n := range batch.Records {
		if n.Bucket == "" || n.Key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every record needs bucket and key"})
			return
		}
	}

	if err := h.Publisher.PublishBatch(c.Request.Context(), batch); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": len(batch.Records)})
}

// HealthCheck pings the status store and the queue.
func (h *Handlers) HealthCheck(c *gin.Context) {
	dbStatus := "connected"
	if h.PingDB != nil {
		if err := h.PingDB(); err != nil {
			dbStatus = err.Error()
		}
	}
	queueStatus := "connected"
	if h.PingQueue != nil {
		if err := h.PingQueue(); err != nil {
			queueStatus = err.Error()
		}
	}

	code := http.StatusOK
	status := "UP"
	if dbStatus != "connected" || queueStatus != "connected" {
		code = http.StatusInternalServerError
		status = "DOWN"
	}
	c.JSON(code, gin.H{"status": status, "database": dbStatus, "queue": queueStatus})
}
