package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/cardscan/internal/api"
	"github.com/ignite/cardscan/internal/auth"
	"github.com/ignite/cardscan/internal/capture"
	"github.com/ignite/cardscan/internal/config"
	"github.com/ignite/cardscan/internal/ocr"
	"github.com/ignite/cardscan/internal/pkg/distlock"
	"github.com/ignite/cardscan/internal/pkg/httpretry"
	"github.com/ignite/cardscan/internal/pkg/logger"
	"github.com/ignite/cardscan/internal/repository/dynamo"
	"github.com/ignite/cardscan/internal/repository/memory"
	"github.com/ignite/cardscan/internal/repository/postgres"
	"github.com/ignite/cardscan/internal/repository/sqlite"
	"github.com/ignite/cardscan/internal/service/cards"
	"github.com/ignite/cardscan/internal/storage"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

// cardStore is the opened record store plus the handles other components
// share with it.
type cardStore struct {
	repo  cards.Repository
	sqlDB *sql.DB // set for postgres and sqlite; probed by health checks
	pgDB  *sql.DB // set for postgres only; backs advisory locks
	close func() error
}

func openStore(ctx context.Context, cfg *config.Config) (*cardStore, error) {
	switch strings.ToLower(cfg.Storage.Type) {
	case "", "memory":
		return &cardStore{repo: memory.NewCardRepo(), close: func() error { return nil }}, nil

	case "postgres":
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("storage type postgres requires database.url or DATABASE_URL")
		}
		dbURL := cfg.Database.URL
		if !strings.Contains(dbURL, "connect_timeout") {
			sep := "?"
			if strings.Contains(dbURL, "?") {
				sep = "&"
			}
			dbURL += sep + "connect_timeout=5"
		}
		log.Printf("DB URL host portion: ...@%s/...", extractHost(dbURL))
		db, err := sql.Open("postgres", dbURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		maxOpen := cfg.Database.MaxOpenConns
		if maxOpen == 1 {
			// A held advisory lock pins a connection; the store needs another.
			log.Println("database.max_open_conns raised to 2 for record locks")
			maxOpen = 2
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
			log.Println("Database migrations applied")
		}
		return &cardStore{repo: postgres.NewCardRepo(db), sqlDB: db, pgDB: db, close: db.Close}, nil

	case "sqlite":
		repo, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &cardStore{repo: repo, sqlDB: repo.DB(), close: repo.Close}, nil

	case "dynamodb":
		repo, err := dynamo.NewFromConfig(ctx, cfg.Storage.DynamoDBTable, cfg.Storage.AWSRegion,
			cfg.Storage.AWSProfile, cfg.Storage.DynamoDBEndpoint)
		if err != nil {
			return nil, err
		}
		return &cardStore{repo: repo, close: func() error { return nil }}, nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// buildExtractor returns the configured OCR engine, or nil when scanning
// is disabled. The second value is non-nil when the engine can be probed.
func buildExtractor(cfg config.OCRConfig) (ocr.Extractor, api.Pinger, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", "none":
		return nil, nil, nil
	case "http":
		if cfg.URL == "" {
			return nil, nil, fmt.Errorf("ocr engine http requires ocr.url or OCR_URL")
		}
		client := httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, cfg.MaxRetries)
		ex := ocr.NewHTTPExtractor(cfg.URL, client)
		return ex, ex, nil
	case "tesseract":
		ex, err := ocr.NewTesseractExtractor(cfg.Languages...)
		if err != nil {
			return nil, nil, err
		}
		return ex, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown ocr engine %q", cfg.Engine)
	}
}

func main() {
	log.Println("Visiting card service (cmd/server)")

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open card store: %v", err)
	}
	log.Printf("Card store: %s", cfg.Storage.Type)

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("WARNING: Redis not reachable, record locks will retry against it: %v", err)
		} else {
			log.Println("Redis connected; record locks are distributed")
		}
		pingCancel()
	}

	locker := distlock.NewLocker(redisClient, store.pgDB, cfg.Locks.TTL(), cfg.Locks.Wait())
	svc := cards.NewService(store.repo, locker, cards.Config{
		RejectEmpty:    cfg.Cards.RejectEmptySubmissions(),
		MaxFieldLength: cfg.Cards.MaxFieldLength,
	})

	archive, err := storage.New(ctx, cfg.Archive)
	if err != nil {
		log.Fatalf("Failed to initialize archive: %v", err)
	}

	handlers := api.NewHandlers(svc)
	handlers.SetStorageType(cfg.Storage.Type)
	handlers.SetArchive(archive, cfg.Archive.Uploads, cfg.Archive.Exports)

	extractor, ocrProbe, err := buildExtractor(cfg.OCR)
	if err != nil {
		log.Fatalf("Failed to initialize OCR: %v", err)
	}
	if extractor != nil {
		pipeline := ocr.NewPipeline(extractor, capture.Options{
			MaxBytes:     cfg.OCR.MaxUploadBytes(),
			MaxDimension: cfg.OCR.MaxDimension,
		})
		handlers.SetScanner(pipeline, cfg.OCR.MaxUploadBytes())
		log.Printf("OCR engine: %s", pipeline.Engine())
	} else {
		log.Println("OCR disabled; /scan will answer 503")
	}

	// Initialize authentication manager if enabled
	var authManager *auth.AuthManager
	if cfg.Auth.Enabled && cfg.Auth.GoogleClientID != "" {
		baseURL := fmt.Sprintf("http://%s:%d", host, port)
		if envURL := os.Getenv("AUTH_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
		var sessions auth.SessionStore
		if redisClient != nil {
			sessions = auth.NewRedisSessionStore(redisClient)
		}
		authManager = auth.NewAuthManager(cfg.Auth, baseURL, sessions)
		log.Printf("Google OAuth enabled for domain: %s", cfg.Auth.AllowedDomain)
	} else {
		log.Println("Authentication disabled")
	}

	health := api.NewHealthChecker(store.sqlDB, redisClient, archive, ocrProbe)
	server := api.NewServer(cfg.Server, api.SetupRoutes(handlers, health, authManager, cfg.Server.CORSOrigins))

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := store.close(); err != nil {
		log.Printf("Store close error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}

	log.Println("Server stopped")
}
