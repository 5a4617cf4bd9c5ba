package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

const (
	sourceKey = "source"
	// set on documents whose embedding had zero magnitude
	zeroKey = "zero_vector"
)

// VectorDBManager stores chunk records in a chromem-go collection. Document
// ids are sequential so FetchAll can return rows in insert order.
type VectorDBManager struct {
	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
	dbPath     string
}

// NewVectorDBManager opens (or creates) the database at dbPath and the named collection
func NewVectorDBManager(dbPath, collectionName string, inMemory bool) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, false)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create database: %w", models.ErrStorage, err)
		}
	}

	m := &VectorDBManager{db: db, dbPath: dbPath}
	if _, err := m.GetOrCreateCollection(collectionName); err != nil {
		return nil, err
	}
	log.Info().Str("path", dbPath).Bool("in_memory", inMemory).Str("collection", collectionName).Msg("Opened chromem vector database")
	return m, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, precomputedOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create/get collection: %w", models.ErrStorage, err)
	}
	m.collection = c
	return c, nil
}

// embeddings are always computed before insert
func precomputedOnly(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("chromemdb: embedding must be provided by the caller")
}

// InitDB exists so both backends share a lifecycle; the collection is
// created by NewVectorDBManager.
func (m *VectorDBManager) InitDB(_ context.Context) error {
	return nil
}

func (m *VectorDBManager) Insert(ctx context.Context, chunkText string, embedding []float32, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	metadata := map[string]string{sourceKey: source}
	if isZero(embedding) {
		metadata[zeroKey] = "true"
	}
	doc := chromem.Document{
		ID:        strconv.Itoa(m.collection.Count() + 1),
		Content:   chunkText,
		Metadata:  metadata,
		Embedding: embedding,
	}
	if err := m.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: failed to add document: %w", models.ErrStorage, err)
	}
	return nil
}

// FetchAll returns every document in id order. chromem stores embeddings
// normalized; cosine similarity is unaffected. A zero vector would come back
// as NaN after normalization, so it is returned as zeros instead.
func (m *VectorDBManager) FetchAll(ctx context.Context) ([]models.ChunkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.collection.Count()
	records := make([]models.ChunkRecord, 0, n)
	for i := 1; i <= n; i++ {
		doc, err := m.collection.GetByID(ctx, strconv.Itoa(i))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read document %d: %w", models.ErrStorage, i, err)
		}
		vec := doc.Embedding
		if doc.Metadata[zeroKey] == "true" {
			vec = make([]float32, len(vec))
		}
		records = append(records, models.ChunkRecord{
			ID:        int64(i),
			ChunkText: doc.Content,
			Embedding: vec,
			Source:    doc.Metadata[sourceKey],
		})
	}
	return records, nil
}

// Reset deletes the collection and creates an empty one with the same name
func (m *VectorDBManager) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := m.collection.Name
	if err := m.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("%w: failed to drop collection: %w", models.ErrStorage, err)
	}
	_, err := m.GetOrCreateCollection(name)
	return err
}

func (m *VectorDBManager) Close() error {
	return nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
