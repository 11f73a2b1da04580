// Package vecstore persists section embeddings in Postgres with the
// pgvector extension and serves similarity queries over them. Every write
// reports a per-item result so the import layer can account for partial
// failures without aborting a batch.
package vecstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// ErrEmbeddingFailed wraps embedder errors so callers can distinguish them
// from storage errors.
var ErrEmbeddingFailed = errors.New("embedding failed")

// Item is one section to embed and store.
type Item struct {
	ID             string // Deterministic UUID, the upsert key
	CollectionPath string
	SectionID      string
	Content        string
	Metadata       map[string]any
}

// ItemResult reports the outcome of storing one item.
type ItemResult struct {
	ID  string
	Err error
}

// Match is one similarity query result.
type Match struct {
	ID             string
	SectionID      string
	CollectionPath string
	Content        string
	Metadata       map[string]any
	Distance       float64
}

// Config configures the store.
type Config struct {
	DSN            string
	Embedder       Embedder
	ConnectTimeout time.Duration // Default: 30s
	Logger         *slog.Logger
}

// Store writes and queries section vectors.
type Store struct {
	pool     *pgxpool.Pool
	embedder Embedder
	logger   *slog.Logger
}

// New connects to Postgres, waiting for the server to come up, and
// prepares the schema.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid DSN: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// The database may still be starting (docker compose, CI).
	err = retry.Do(
		func() error { return pool.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(uint(cfg.ConnectTimeout.Seconds())),
		retry.Delay(1*time.Second),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("database not reachable: %w", err)
	}

	s := &Store{pool: pool, embedder: cfg.Embedder, logger: cfg.Logger}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS section_vectors (
			id uuid PRIMARY KEY,
			collection_path text NOT NULL,
			section_id text NOT NULL,
			content text NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata jsonb,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`, s.embedder.Dimensions()),
		`CREATE INDEX IF NOT EXISTS idx_section_vectors_path ON section_vectors (collection_path)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_section_vectors_path_section
			ON section_vectors (collection_path, section_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema setup failed: %w", err)
		}
	}
	return nil
}

// Upsert embeds and stores a batch of items. The returned slice is aligned
// with the input; an embedding failure marks every item in the batch, a
// storage failure marks only the item it hit.
func (s *Store) Upsert(ctx context.Context, items []Item) []ItemResult {
	results := make([]ItemResult, len(items))
	for i, item := range items {
		results[i].ID = item.ID
	}
	if len(items) == 0 {
		return results
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		for i := range results {
			results[i].Err = wrapped
		}
		return results
	}

	for i, item := range items {
		results[i].Err = s.upsertOne(ctx, item, vectors[i])
		if results[i].Err != nil {
			s.logger.Error("vector upsert failed",
				"section_id", item.SectionID,
				"collection_path", item.CollectionPath,
				"error", results[i].Err)
		}
	}
	return results
}

func (s *Store) upsertOne(ctx context.Context, item Item, vec []float32) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO section_vectors (id, collection_path, section_id, content, embedding, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = now()`,
		item.ID, item.CollectionPath, item.SectionID, item.Content,
		pgvector.NewVector(vec), item.Metadata)
	return err
}

// Query embeds the query text and returns the nearest sections within a
// collection path by cosine distance.
func (s *Store) Query(ctx context.Context, collectionPath, queryText string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 10
	}
	vectors, err := s.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, section_id, collection_path, content, metadata,
			embedding <=> $1 AS distance
		FROM section_vectors
		WHERE collection_path = $2
		ORDER BY distance
		LIMIT $3`,
		pgvector.NewVector(vectors[0]), collectionPath, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.SectionID, &m.CollectionPath, &m.Content, &m.Metadata, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Count returns the number of stored vectors under a collection path.
func (s *Store) Count(ctx context.Context, collectionPath string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM section_vectors WHERE collection_path = $1`,
		collectionPath).Scan(&n)
	return n, err
}
