// Package dualstore writes extracted sections to the document store and
// vector store with per-record accounting. A record is only counted
// written when both stores hold it; a vector failure after a successful
// document write is surfaced as a failure for retry, never silently
// dropped from one store.
package dualstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/collection"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/docstore"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/vecstore"
)

// idNamespace seeds deterministic record IDs. Changing it would orphan
// every previously imported section.
var idNamespace = uuid.MustParse("8f0bb3c5-9d3e-4f21-b1a8-13d62782a3b1")

// Record is one section ready for persistence.
type Record struct {
	Path         collection.Path
	SectionIndex int
	Doc          docstore.SectionRecord
}

// RecordFailure describes one record that could not be fully persisted.
type RecordFailure struct {
	SectionID string
	DocID     string // Set when the document store holds a copy for retry
	Reason    string
}

// ImportSummary is the per-batch accounting callers always receive;
// partial failures never surface as an error.
type ImportSummary struct {
	Written  int
	Skipped  int
	Failed   int
	Failures []RecordFailure
}

// DocWriter is the document-store surface the writer needs.
type DocWriter interface {
	SendSync(ctx context.Context, op docstore.WriteOp) (docstore.WriteResult, error)
}

// DocIndex looks up already-stored section IDs for skip detection.
type DocIndex interface {
	ExistingSectionIDs(ctx context.Context, collectionPath string) (map[string]string, error)
}

// VecWriter is the vector-store surface the writer needs.
type VecWriter interface {
	Upsert(ctx context.Context, items []vecstore.Item) []vecstore.ItemResult
}

// Config configures a Writer.
type Config struct {
	Docs      DocWriter
	Index     DocIndex
	Vectors   VecWriter
	BatchSize int // Vector batch size (default: 32)
	Logger    *slog.Logger
}

// Writer persists records into both stores.
type Writer struct {
	docs      DocWriter
	index     DocIndex
	vectors   VecWriter
	batchSize int
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWriter creates a dual-store writer.
func NewWriter(cfg Config) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Writer{
		docs:      cfg.Docs,
		index:     cfg.Index,
		vectors:   cfg.Vectors,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger,
	}
}

// RecordID derives the deterministic ID for a section: a function of the
// collection path, page range, and section index only, so re-running the
// same import addresses the same records.
func RecordID(path collection.Path, startPage, endPage, sectionIndex int) string {
	name := fmt.Sprintf("%s|%d|%d|%d", path.String(), startPage, endPage, sectionIndex)
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}

// Persist writes a batch of records belonging to one collection path.
// Concurrent imports into the same path serialize here; different paths
// proceed independently. Cancellation is honored between records; a record
// whose write has begun runs to completion or is marked failed.
func (w *Writer) Persist(ctx context.Context, path collection.Path, records []Record) (*ImportSummary, error) {
	lock := w.pathLock(path.String())
	lock.Lock()
	defer lock.Unlock()

	summary := &ImportSummary{}
	if len(records) == 0 {
		return summary, nil
	}

	existing, err := w.index.ExistingSectionIDs(ctx, path.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read existing sections: %w", err)
	}

	var pending []vecstore.Item
	flush := func() {
		if len(pending) == 0 {
			return
		}
		w.flushVectors(ctx, pending, summary)
		pending = pending[:0]
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			flush()
			return summary, err
		}

		sectionID := RecordID(path, rec.Doc.StartPage, rec.Doc.EndPage, rec.SectionIndex)
		if _, ok := existing[sectionID]; ok {
			summary.Skipped++
			continue
		}

		doc := rec.Doc
		doc.SectionID = sectionID
		doc.CollectionPath = path.String()
		if doc.ImportedAt.IsZero() {
			doc.ImportedAt = time.Now()
		}

		result, err := w.docs.SendSync(ctx, docstore.WriteOp{
			Collection: docstore.SectionCollection,
			Document:   doc.Input(),
			Op:         docstore.OpCreate,
		})
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, RecordFailure{
				SectionID: sectionID,
				Reason:    fmt.Sprintf("document write: %v", err),
			})
			continue
		}

		pending = append(pending, vecstore.Item{
			ID:             sectionID,
			CollectionPath: path.String(),
			SectionID:      sectionID,
			Content:        doc.Text,
			Metadata: map[string]any{
				"doc_id":    result.DocID,
				"title":     doc.Title,
				"category":  doc.Category,
				"game_type": doc.GameType,
				"pages":     fmt.Sprintf("%d-%d", doc.StartPage, doc.EndPage),
			},
		})
		if len(pending) >= w.batchSize {
			flush()
		}
	}
	flush()

	return summary, nil
}

// flushVectors resolves one vector batch into per-record accounting. Items
// that fail keep their document-store copy so a later run can retry.
func (w *Writer) flushVectors(ctx context.Context, items []vecstore.Item, summary *ImportSummary) {
	results := w.vectors.Upsert(ctx, items)
	for i, res := range results {
		if res.Err == nil {
			summary.Written++
			continue
		}
		summary.Failed++
		docID, _ := items[i].Metadata["doc_id"].(string)
		summary.Failures = append(summary.Failures, RecordFailure{
			SectionID: items[i].SectionID,
			DocID:     docID,
			Reason:    fmt.Sprintf("vector write: %v (document copy retained)", res.Err),
		})
		w.logger.Warn("vector write failed, document copy retained",
			"section_id", items[i].SectionID,
			"doc_id", docID)
	}
}

// RecordImport stores a summary row for one completed import run.
func (w *Writer) RecordImport(ctx context.Context, rec docstore.ImportRecord, summary *ImportSummary) error {
	rec.Written = summary.Written
	rec.Skipped = summary.Skipped
	rec.Failed = summary.Failed
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	_, err := w.docs.SendSync(ctx, docstore.WriteOp{
		Collection: docstore.ImportCollection,
		Document:   rec.Input(),
		Op:         docstore.OpCreate,
	})
	if err != nil {
		return fmt.Errorf("failed to record import summary: %w", err)
	}
	return nil
}

func (w *Writer) pathLock(path string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.locks == nil {
		w.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := w.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[path] = lock
	}
	return lock
}
