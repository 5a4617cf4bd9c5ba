package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/chromemdb"
	"pdf-rag/internal/config"
	"pdf-rag/internal/db"
	"pdf-rag/internal/embedding"
	"pdf-rag/internal/helper"
	"pdf-rag/internal/llmservice"
	"pdf-rag/internal/rag"
	"pdf-rag/internal/server"
	"pdf-rag/internal/storage"
)

const (
	configFilePath  = "./configs/config.yaml"
	shutdownTimeout = 10 * time.Second
)

// vectorStore is what main needs from either backend.
type vectorStore interface {
	rag.VectorStore
	InitDB(ctx context.Context) error
	Reset(ctx context.Context) error
	Close() error
}

var (
	_ vectorStore = (*db.Store)(nil)
	_ vectorStore = (*chromemdb.VectorDBManager)(nil)
)

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a PDF to ingest")
	query := flag.String("query", "", "Query to be answered")
	reset := flag.Bool("reset", false, "Drop all stored chunks before running")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// logger is not configured yet
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(&cfg.Log)
	log.Debug().Interface("config", redacted(cfg)).Msg("Loaded config")

	mode, err := selectMode(*filePath, *query, *reset)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid flags")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	defer store.Close()

	if *reset {
		if err := store.Reset(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error clearing stored chunks")
		}
		log.Info().Msg("Cleared stored chunks")
	}
	// a plain reset needs no LLM credentials
	if mode == modeResetOnly {
		return
	}

	svc, err := newService(ctx, cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing service")
	}

	switch mode {
	case modeIngest:
		err = ingestFile(ctx, svc, *filePath)
	case modeQuery:
		err = answer(ctx, svc, *query)
	default:
		err = serve(ctx, cfg, svc)
	}
	if err != nil {
		log.Error().Err(err).Msg("Exiting with error")
		store.Close()
		os.Exit(1)
	}
}

type runMode int

const (
	modeServe runMode = iota
	modeIngest
	modeQuery
	modeResetOnly
)

func selectMode(filePath, query string, reset bool) (runMode, error) {
	switch {
	case filePath != "" && query != "":
		return 0, errors.New("please provide either a document file using the -file flag or a query using the -query flag, but not both")
	case filePath != "":
		return modeIngest, nil
	case query != "":
		return modeQuery, nil
	case reset:
		return modeResetOnly, nil
	default:
		return modeServe, nil
	}
}

func setupLogger(cfg *config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func openStore(ctx context.Context, cfg *config.Config) (vectorStore, error) {
	var store vectorStore
	switch cfg.VectorStore.Backend {
	case "chromem":
		if err := helper.CreateFolder(cfg.VectorStore.Path); err != nil {
			return nil, err
		}
		m, err := chromemdb.NewVectorDBManager(cfg.VectorStore.Path, cfg.VectorStore.Collection, false)
		if err != nil {
			return nil, err
		}
		store = m
	default:
		bunDB, err := db.Connect(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		store = db.NewStore(bunDB)
	}

	if err := store.InitDB(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func newService(ctx context.Context, cfg *config.Config, store rag.VectorStore) (*rag.RAG, error) {
	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}

	llm, err := llmservice.NewProvider(ctx, &cfg.InferenceLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference client: %w", err)
	}

	files, err := storage.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}

	return rag.NewRAG(store, embedder, llmservice.NewClient(llm), files, rag.Options{
		ChunkSize: cfg.RAG.ChunkSize,
		TopK:      cfg.RAG.TopK,
		BaseURL:   cfg.Server.BaseURL,
	})
}

func ingestFile(ctx context.Context, svc *rag.RAG, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	res, err := svc.Upload(ctx, filePath, data)
	if err != nil {
		return err
	}
	helper.PrettyPrint(res)
	return nil
}

func answer(ctx context.Context, svc *rag.RAG, query string) error {
	response, err := svc.Query(ctx, query)
	if err != nil {
		return err
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(response.Citations)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Answer)
	return nil
}

// serve runs the HTTP server until ctx is cancelled by a signal.
func serve(ctx context.Context, cfg *config.Config, svc *rag.RAG) error {
	srv := server.New(&cfg.Server, svc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// redacted returns a copy of cfg safe to log.
func redacted(cfg *config.Config) config.Config {
	c := *cfg
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return strings.Repeat("*", 8)
	}
	c.Database.Password = mask(c.Database.Password)
	c.EmbedLLM.Key = mask(c.EmbedLLM.Key)
	c.InferenceLLM.Key = mask(c.InferenceLLM.Key)
	if c.Database.DSN != "" && c.Database.Driver != "sqlite" {
		c.Database.DSN = mask(c.Database.DSN)
	}
	return c
}
