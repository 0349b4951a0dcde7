package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/markdave123-py/Memora/internal/config"
	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/annotate"
	db "github.com/markdave123-py/Memora/internal/core/database"
	"github.com/markdave123-py/Memora/internal/core/embed"
	"github.com/markdave123-py/Memora/internal/core/extract"
	"github.com/markdave123-py/Memora/internal/core/llm"
	objectclient "github.com/markdave123-py/Memora/internal/core/object-client"
	"github.com/markdave123-py/Memora/internal/core/pipeline"
	"github.com/markdave123-py/Memora/internal/core/search"
	"github.com/markdave123-py/Memora/internal/core/textproc"
	"github.com/markdave123-py/Memora/internal/services"
)

const fetchTimeout = 30 * time.Second

// App owns every long-lived component: the database client, the processing
// pipeline and its workers, and the HTTP server.
type App struct {
	DBClient core.DbClient
	Pipeline *pipeline.Pipeline
	Server   *Server

	stopWorkers context.CancelFunc
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("app: database ready")

	// Object storage is optional. Without AWS credentials, uploads are
	// processed from memory and simply not archived.
	var storage core.ObjectClient
	if cfg.AwsAccessKey != "" && cfg.AwsSecretKey != "" {
		storage, err = objectclient.NewS3Client(initCtx, cfg)
		if err != nil {
			return nil, err
		}
	} else {
		log.Println("app: no AWS credentials, raw payload archive disabled")
	}

	embedProvider, err := llm.NewEmbeddingProvider(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	llmProvider, err := llm.NewLLMProvider(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}

	embedder := embed.NewService(embedProvider, cfg.EmbedBatchSize)
	annotator := annotate.NewAnnotator(llmProvider)
	classifier := textproc.NewClassifier()
	chunker := textproc.NewChunker(
		textproc.WithChunkSize(cfg.ChunkSize),
		textproc.WithOverlap(cfg.ChunkOverlap),
	)
	fetcher := extract.NewFetcher(fetchTimeout)
	extractor := extract.NewDocconvExtractor(false)

	pipe := pipeline.New(dbClient, fetcher, extractor, classifier, chunker, annotator, embedder, pipeline.Config{
		MaxRetries:       cfg.MaxRetries,
		RetryBaseDelay:   cfg.RetryBaseDelay,
		StageTimeout:     cfg.StageTimeout,
		MaxContentLength: cfg.MaxContentLength,
	})

	// Workers outlive the request contexts; they stop on Close.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	pipe.Start(workerCtx, cfg.Workers)
	log.Printf("app: pipeline started with %d workers", cfg.Workers)

	searcher := search.NewService(dbClient, embedder, cfg.SimilarityThreshold)
	answerer := search.NewAnswerer(llmProvider, searcher)

	users := services.NewUserService(dbClient)
	documents := services.NewDocumentService(dbClient, storage, cfg.BucketName)
	ingest := services.NewIngestService(dbClient, storage, cfg.BucketName, pipe)
	chat := services.NewChatService(dbClient, answerer, llmProvider)

	server := NewServer(cfg, users, documents, ingest, chat, searcher, pipe)

	return &App{
		DBClient:    dbClient,
		Pipeline:    pipe,
		Server:      server,
		stopWorkers: stopWorkers,
	}, nil
}

// Close stops the pipeline workers and releases the database pool. The HTTP
// server is shut down separately by the caller before Close.
func (a *App) Close() {
	if a.stopWorkers != nil {
		a.stopWorkers()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
