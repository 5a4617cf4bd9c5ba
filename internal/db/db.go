package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	_ "modernc.org/sqlite"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

type ChunkRecord struct {
	bun.BaseModel `bun:"table:pdf_embeddings,alias:e"`
	ID            int64     `bun:"id,pk,autoincrement"`
	ChunkText     string    `bun:"chunk_text,notnull"`
	Embedding     Embedding `bun:"embedding,notnull,type:text"`
	Source        string    `bun:"source,notnull"`
}

// Embedding is persisted as a JSON array so the column reads the same on
// every driver.
type Embedding []float32

func (e Embedding) Value() (driver.Value, error) {
	b, err := json.Marshal([]float32(e))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (e *Embedding) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*e = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported embedding column type %T", src)
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return fmt.Errorf("failed to decode embedding: %w", err)
	}
	*e = vec
	return nil
}

// Connect opens the configured driver and wraps it in bun. A single open
// connection is kept unless max_open_conns says otherwise.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*bun.DB, error) {
	dsn := cfg.ConnString()

	var (
		sqldb *sql.DB
		err   error
		db    *bun.DB
	)
	switch cfg.Driver {
	case "pgdriver", "":
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	case "pq":
		sqldb, err = sql.Open("postgres", dsn)
	case "sqlite":
		sqldb, err = sql.Open("sqlite", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqldb.SetMaxOpenConns(max(cfg.MaxOpenConns, 1))

	if cfg.Driver == "sqlite" {
		db = bun.NewDB(sqldb, sqlitedialect.New())
	} else {
		db = bun.NewDB(sqldb, pgdialect.New())
	}
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Str("driver", cfg.Driver).Msg("Connected to database")
	return db, nil
}

// Store keeps chunk records in one relational table
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InitDB(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*ChunkRecord)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to create table: %w", models.ErrStorage, err)
	}
	return nil
}

// Insert writes one row. Each call is its own unit of work.
func (s *Store) Insert(ctx context.Context, chunkText string, embedding []float32, source string) error {
	rec := &ChunkRecord{
		ChunkText: chunkText,
		Embedding: embedding,
		Source:    source,
	}
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return fmt.Errorf("%w: failed to insert chunk: %w", models.ErrStorage, err)
	}
	return nil
}

// FetchAll returns every stored row in insert order.
func (s *Store) FetchAll(ctx context.Context) ([]models.ChunkRecord, error) {
	var rows []ChunkRecord
	err := s.db.NewSelect().
		Model(&rows).
		Column("id", "chunk_text", "embedding", "source").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch chunks: %w", models.ErrStorage, err)
	}

	records := make([]models.ChunkRecord, len(rows))
	for i, r := range rows {
		records[i] = models.ChunkRecord{
			ID:        r.ID,
			ChunkText: r.ChunkText,
			Embedding: r.Embedding,
			Source:    r.Source,
		}
	}
	return records, nil
}

// Reset drops the table and creates it again
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.NewDropTable().Model((*ChunkRecord)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: failed to drop table: %w", models.ErrStorage, err)
	}
	return s.InitDB(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
