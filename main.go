package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dropvid/clip-processing-service/domain"
	"github.com/dropvid/clip-processing-service/infrastructure"
	"github.com/dropvid/clip-processing-service/usecase"
)

type appConfig struct {
	Port            string
	JWTSecret       []byte
	Queue           string
	ThumbnailBucket string
	VideoBucket     string
	StorageBackend  string // "s3" or "memory"
	AWSRegion       string
	FFmpegDirs      []string
	MaxAttempts     int
	DBConnStr       string
	RabbitURL       string
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func loadConfig() appConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system ENV variables")
	}

	secret := []byte(os.Getenv("JWT_SECRET"))
	if len(secret) == 0 {
		log.Println("WARNING: JWT_SECRET not set. Using a default secret for development. THIS IS INSECURE FOR PRODUCTION!")
		secret = []byte("supersecretjwtkeythatshouldbeverylongandrandominproduction")
	}

	var dirs []string
	if v := os.Getenv("FFMPEG_DIRS"); v != "" {
		dirs = filepath.SplitList(v)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		envOr("DB_HOST", "db"), envOr("DB_PORT", "5432"),
		envOr("DB_USER", "user"), envOr("DB_PASS", "password"),
		envOr("DB_NAME", "dropclip_db"))

	rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		envOr("RABBITMQ_USER", "guest"), envOr("RABBITMQ_PASS", "guest"),
		envOr("RABBITMQ_HOST", "rabbitmq"), envOr("RABBITMQ_PORT", "5672"))

	return appConfig{
		Port:            envOr("PORT", "5001"),
		JWTSecret:       secret,
		Queue:           envOr("NOTIFICATION_QUEUE", "upload_notifications"),
		ThumbnailBucket: envOr("THUMBNAIL_BUCKET", "dropclip-thumbnails"),
		VideoBucket:     envOr("VIDEO_BUCKET", "dropclip-videos"),
		StorageBackend:  envOr("STORAGE_BACKEND", "s3"),
		AWSRegion:       envOr("AWS_REGION", "us-east-1"),
		FFmpegDirs:      dirs,
		MaxAttempts:     3,
		DBConnStr:       connStr,
		RabbitURL:       rabbitURL,
	}
}

func openDB(connStr string) *sql.DB {
	var db *sql.DB
	var err error
	for i := 0; i < 5; i++ {
		db, err = sql.Open("postgres", connStr)
		if err == nil {
			if err = db.Ping(); err == nil {
				log.Println("Connected to PostgreSQL")
				return db
			}
		}
		log.Printf("Retrying PostgreSQL connection in 5s... (%d/5)", i+1)
		time.Sleep(5 * time.Second)
	}
	log.Fatalf("Could not connect to PostgreSQL after several attempts: %v", err)
	return nil
}

func dialRabbit(url string) *amqp.Connection {
	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			log.Println("Connected to RabbitMQ")
			return conn
		}
		log.Printf("Retrying RabbitMQ connection in 5s... (%d/5)", i+1)
		time.Sleep(5 * time.Second)
	}
	log.Fatalf("Could not connect to RabbitMQ after several attempts: %v", err)
	return nil
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	toolchain, err := infrastructure.NewToolchain(cfg.FFmpegDirs)
	if err != nil {
		log.Fatalf("media toolchain unavailable: %v", err)
	}
	log.Printf("toolchain ffmpeg=%s ffprobe=%s", toolchain.FFmpeg, toolchain.FFprobe)

	var (
		store     domain.ObjectStore
		repo      domain.ProcessingRepository
		pingDB    func() error
		pingQueue func() error
	)

	switch cfg.StorageBackend {
	case "memory":
		log.Println("STORAGE_BACKEND=memory: using in-memory object store and record repository")
		store = infrastructure.NewMemoryObjectStore()
		repo = infrastructure.NewMemoryProcessingRepository()
	case "s3":
		db := openDB(cfg.DBConnStr)
		defer db.Close()
		pgRepo := infrastructure.NewPostgresProcessingRepository(db)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			log.Fatalf("prepare status store: %v", err)
		}
		repo = pgRepo
		pingDB = db.Ping

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.Fatalf("load AWS config: %v", err)
		}
		store = infrastructure.NewS3ObjectStore(s3.NewFromConfig(awsCfg))
	default:
		log.Fatalf("unknown STORAGE_BACKEND %q (use 's3' or 'memory')", cfg.StorageBackend)
	}

	rabbit := dialRabbit(cfg.RabbitURL)
	defer rabbit.Close()
	pingQueue = func() error {
		if rabbit.IsClosed() {
			return errors.New("disconnected")
		}
		ch, err := rabbit.Channel()
		if err != nil {
			return err
		}
		return ch.Close()
	}

	metrics := infrastructure.NewPrometheusMetrics()

	driver := &usecase.ProcessUploadUseCase{
		Store:       store,
		Repo:        repo,
		Extractor:   infrastructure.NewFFprobeExtractor(toolchain),
		Thumbnailer: infrastructure.NewFFmpegThumbnailer(toolchain),
		Transcoder:  infrastructure.NewFFmpegTranscoder(toolchain),
		Notifier:    infrastructure.NewLogNotifier(),
		Metrics:     metrics,
		Retry: usecase.RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			Metrics:     metrics,
		},
		ThumbnailBucket: cfg.ThumbnailBucket,
		VideoBucket:     cfg.VideoBucket,
	}

	consumer := infrastructure.NewQueueConsumer(rabbit, cfg.Queue, driver)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	handlers := &infrastructure.Handlers{
		Cancel:    &usecase.CancelUploadUseCase{Repo: repo, Store: store},
		Repo:      repo,
		Publisher: infrastructure.NewQueuePublisher(rabbit, cfg.Queue),
		PingDB:    pingDB,
		PingQueue: pingQueue,
	}

	router := gin.Default()
	handlers.Register(router, cfg.JWTSecret)

	log.Printf("DropClip processing service listening on :%s", cfg.Port)
	log.Fatal(router.Run(":" + cfg.Port))
}
