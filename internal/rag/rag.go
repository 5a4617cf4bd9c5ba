package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/embedding"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
	"pdf-rag/internal/storage"
)

// VectorStore persists chunk rows and returns all of them for scoring.
type VectorStore interface {
	Insert(ctx context.Context, chunkText string, embedding []float32, source string) error
	FetchAll(ctx context.Context) ([]models.ChunkRecord, error)
}

type Generator interface {
	GenerateAnswer(ctx context.Context, prompt string) (string, error)
}

type FileStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
}

type Options struct {
	ChunkSize int
	TopK      int
	BaseURL   string
}

// RAG wires extraction, chunking, embedding, storage and answer generation.
type RAG struct {
	store     VectorStore
	embedder  embedding.Embedder
	generator Generator
	files     FileStore
	opts      Options
}

func NewRAG(store VectorStore, embedder embedding.Embedder, generator Generator, files FileStore, opts Options) (*RAG, error) {
	if store == nil || embedder == nil || generator == nil || files == nil {
		return nil, errors.New("rag: store, embedder, generator and file store are required")
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = parser.DefaultChunkSize
	}
	if opts.TopK == 0 {
		opts.TopK = models.DefaultTopK
	}
	return &RAG{store: store, embedder: embedder, generator: generator, files: files, opts: opts}, nil
}

// Upload stores the PDF and one row per chunk that could be embedded.
// Chunks whose embedding fails are skipped and counted; a storage failure
// aborts the upload.
func (r *RAG) Upload(ctx context.Context, filename string, data []byte) (*models.UploadResult, error) {
	if _, err := storage.CleanName(filename); err != nil {
		return nil, err
	}

	text, err := parser.ExtractText(data)
	if err != nil {
		return nil, err
	}

	name, err := r.files.Save(filename, data)
	if err != nil {
		return nil, err
	}

	chunks, err := parser.Chunk(text, r.opts.ChunkSize)
	if err != nil {
		return nil, err
	}

	result := &models.UploadResult{Filename: name, Chunks: len(chunks)}
	for i, chunk := range chunks {
		vec, err := r.embedder.EmbedQuery(ctx, chunk)
		if err == nil && len(vec) == 0 {
			err = errors.New("empty embedding")
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn().Err(err).Str("file", name).Int("chunk", i).Msg("Skipping chunk without embedding")
			result.Skipped++
			continue
		}

		if err := r.store.Insert(ctx, chunk, vec, name); err != nil {
			return nil, err
		}
		result.Stored++
	}

	result.Message = "PDF uploaded and processed successfully."
	if result.Skipped > 0 {
		result.Message = fmt.Sprintf("PDF uploaded and processed; %d of %d chunks could not be embedded.", result.Skipped, result.Chunks)
	}
	log.Info().
		Str("file", name).
		Int("chunks", result.Chunks).
		Int("stored", result.Stored).
		Int("skipped", result.Skipped).
		Msg("Processed upload")
	return result, nil
}

// Query embeds the question, scores every stored chunk, and asks the model
// to answer from the top matches.
func (r *RAG) Query(ctx context.Context, query string) (*models.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", models.ErrInvalidArgument)
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbeddingUnavailable, err)
	}
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", models.ErrEmbeddingUnavailable)
	}

	records, err := r.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	matches, err := Retrieve(queryEmbedding, records, r.opts.TopK)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("records", len(records)).Int("matches", len(matches)).Msg("Retrieved context")

	chunks := make([]string, len(matches))
	for i, m := range matches {
		chunks[i] = m.ChunkText
	}

	answer, err := r.generator.GenerateAnswer(ctx, AssemblePrompt(chunks, query))
	if err != nil {
		return nil, err
	}

	return &models.Answer{
		Answer:    answer,
		Citations: BuildCitations(r.opts.BaseURL, matches),
		Matches:   matches,
	}, nil
}

// OpenPDF returns a stored upload, or models.ErrFileNotFound.
func (r *RAG) OpenPDF(filename string) ([]byte, error) {
	return r.files.Read(filename)
}
