package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag/internal/models"
	"pdf-rag/internal/storage"
	"pdf-rag/internal/testutil"
)

type memoryStore struct {
	mu        sync.Mutex
	records   []models.ChunkRecord
	insertErr error
	fetchErr  error
}

func (m *memoryStore) Insert(_ context.Context, chunkText string, embedding []float32, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.records = append(m.records, models.ChunkRecord{
		ID:        int64(len(m.records) + 1),
		ChunkText: chunkText,
		Embedding: embedding,
		Source:    source,
	})
	return nil
}

func (m *memoryStore) FetchAll(_ context.Context) ([]models.ChunkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return append([]models.ChunkRecord(nil), m.records...), nil
}

// fakeEmbedder returns [1,0] for text containing "alpha", [0,1] otherwise,
// and fails for text containing any of failOn.
type fakeEmbedder struct {
	failOn []string
	empty  bool
	calls  int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls++
	for _, s := range f.failOn {
		if strings.Contains(text, s) {
			return nil, errors.New("embedding backend down")
		}
	}
	if f.empty {
		return []float32{}, nil
	}
	if strings.Contains(text, "alpha") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

type fakeGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fixture struct {
	rag       *RAG
	store     *memoryStore
	embedder  *fakeEmbedder
	generator *fakeGenerator
	files     *storage.FileStore
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		store:     &memoryStore{},
		embedder:  &fakeEmbedder{},
		generator: &fakeGenerator{answer: "42"},
		files:     files,
	}
	f.rag, err = NewRAG(f.store, f.embedder, f.generator, files, opts)
	require.NoError(t, err)
	return f
}

func TestNewRAG_RequiresDependencies(t *testing.T) {
	_, err := NewRAG(nil, &fakeEmbedder{}, &fakeGenerator{}, nil, Options{})
	assert.Error(t, err)
}

func TestUpload_StoresChunksAndFile(t *testing.T) {
	f := newFixture(t, Options{ChunkSize: 3, BaseURL: "http://localhost:8000"})
	data := testutil.BuildPDF([]string{"alpha beta gamma delta", "epsilon zeta"})

	res, err := f.rag.Upload(context.Background(), "doc.pdf", data)
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", res.Filename)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 2, res.Stored)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, "PDF uploaded and processed successfully.", res.Message)

	records, err := f.store.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "alpha beta gamma", records[0].ChunkText)
	assert.Equal(t, "delta epsilon zeta", records[1].ChunkText)
	for _, r := range records {
		assert.Equal(t, "doc.pdf", r.Source)
	}

	stored, err := f.rag.OpenPDF("doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestUpload_DefaultChunkBoundary(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{words: 500, want: 1},
		{words: 501, want: 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d words", tt.words), func(t *testing.T) {
			f := newFixture(t, Options{})
			res, err := f.rag.Upload(context.Background(), "long.pdf", testutil.BuildPDF([]string{testutil.Words(tt.words)}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Chunks)
			assert.Equal(t, tt.want, res.Stored)
			require.Len(t, f.store.records, tt.want)
			assert.Len(t, strings.Fields(f.store.records[0].ChunkText), 500)
		})
	}
}

func TestUpload_SkipsChunksThatFailToEmbed(t *testing.T) {
	f := newFixture(t, Options{ChunkSize: 2})
	f.embedder.failOn = []string{"gamma"}

	res, err := f.rag.Upload(context.Background(), "doc.pdf", testutil.BuildPDF([]string{"alpha beta gamma delta epsilon"}))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 1, res.Skipped)
	assert.Contains(t, res.Message, "1 of 3")

	records, _ := f.store.FetchAll(context.Background())
	assert.Equal(t, []string{"alpha beta", "epsilon"}, []string{records[0].ChunkText, records[1].ChunkText})
}

func TestUpload_EmptyEmbeddingIsSkipped(t *testing.T) {
	f := newFixture(t, Options{})
	f.embedder.empty = true

	res, err := f.rag.Upload(context.Background(), "doc.pdf", testutil.BuildPDF([]string{"some words"}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Stored)
	assert.Empty(t, f.store.records)
}

func TestUpload_NoTextStoresFileOnly(t *testing.T) {
	f := newFixture(t, Options{})

	res, err := f.rag.Upload(context.Background(), "blank.pdf", testutil.BuildPDF([]string{""}))
	require.NoError(t, err)
	assert.Zero(t, res.Chunks)
	assert.Zero(t, f.embedder.calls)

	_, err = f.rag.OpenPDF("blank.pdf")
	assert.NoError(t, err)
}

func TestUpload_UnreadablePDFStoresNothing(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.rag.Upload(context.Background(), "junk.pdf", []byte("not a pdf"))
	assert.ErrorIs(t, err, models.ErrUnreadablePDF)

	_, err = f.rag.OpenPDF("junk.pdf")
	assert.ErrorIs(t, err, models.ErrFileNotFound)
	assert.Empty(t, f.store.records)
}

func TestUpload_InvalidName(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.rag.Upload(context.Background(), "", testutil.BuildPDF([]string{"x"}))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestUpload_StorageFailureAborts(t *testing.T) {
	f := newFixture(t, Options{ChunkSize: 1})
	f.store.insertErr = fmt.Errorf("%w: disk full", models.ErrStorage)

	_, err := f.rag.Upload(context.Background(), "doc.pdf", testutil.BuildPDF([]string{"one two three"}))
	assert.ErrorIs(t, err, models.ErrStorage)
	assert.Equal(t, 1, f.embedder.calls)
}

func TestUpload_CancelledContext(t *testing.T) {
	f := newFixture(t, Options{})
	f.embedder.failOn = []string{"w"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.rag.Upload(ctx, "doc.pdf", testutil.BuildPDF([]string{"w1 w2"}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuery_AnswersFromTopMatches(t *testing.T) {
	f := newFixture(t, Options{TopK: 2, BaseURL: "http://localhost:8000"})
	f.store.records = []models.ChunkRecord{
		{ID: 1, ChunkText: "alpha one", Embedding: []float32{1, 0}, Source: "a.pdf"},
		{ID: 2, ChunkText: "other", Embedding: []float32{0, 1}, Source: "b.pdf"},
		{ID: 3, ChunkText: "alpha two", Embedding: []float32{0.9, 0.1}, Source: "c.pdf"},
	}

	ans, err := f.rag.Query(context.Background(), "  alpha?  ")
	require.NoError(t, err)
	assert.Equal(t, "42", ans.Answer)
	assert.Equal(t, []models.Citation{
		{URL: "http://localhost:8000/pdf/a.pdf", Title: "a.pdf"},
		{URL: "http://localhost:8000/pdf/c.pdf", Title: "c.pdf"},
	}, ans.Citations)
	require.Len(t, ans.Matches, 2)

	require.Len(t, f.generator.prompts, 1)
	assert.Equal(t, "Context:\nalpha one\n\nalpha two\n\nUser Query: alpha?\n\nAnswer:", f.generator.prompts[0])
}

func TestQuery_EmptyStore(t *testing.T) {
	f := newFixture(t, Options{})

	ans, err := f.rag.Query(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, ans.Citations)
	assert.Equal(t, "Context:\n\n\nUser Query: anything\n\nAnswer:", f.generator.prompts[0])
}

func TestQuery_Errors(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		f := newFixture(t, Options{})
		_, err := f.rag.Query(context.Background(), "   ")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		assert.Zero(t, f.embedder.calls)
	})

	t.Run("embedding unavailable", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.embedder.failOn = []string{"q"}
		_, err := f.rag.Query(context.Background(), "q")
		assert.ErrorIs(t, err, models.ErrEmbeddingUnavailable)
		assert.Empty(t, f.generator.prompts)
	})

	t.Run("storage", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.store.fetchErr = fmt.Errorf("%w: gone", models.ErrStorage)
		_, err := f.rag.Query(context.Background(), "q")
		assert.ErrorIs(t, err, models.ErrStorage)
	})

	t.Run("generation", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.generator.err = fmt.Errorf("%w: quota", models.ErrAnswerGeneration)
		_, err := f.rag.Query(context.Background(), "q")
		assert.ErrorIs(t, err, models.ErrAnswerGeneration)
	})
}
