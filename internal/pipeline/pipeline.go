// Package pipeline runs the import flow end to end: extract pages, segment
// into sections, detect the game system once per document, categorize each
// section, derive the collection path, and persist into both stores.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/categorize"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/collection"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/detect"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/docstore"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/dualstore"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/pdfx"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/segment"
)

// DefaultSampleSize bounds the text handed to game detection. The opening
// pages carry the strongest system markers; sending whole books wastes
// provider tokens for no accuracy gain.
const DefaultSampleSize = 4096

// ExtractFunc extracts page texts from a PDF stream.
type ExtractFunc func(ctx context.Context, rs io.ReadSeeker) ([]pdfx.PageText, error)

// ImportRequest describes one document to import. Either Path or
// Reader+Name must be set. Non-empty GameType skips detection entirely
// and records a manual override.
type ImportRequest struct {
	Path   string
	Reader io.ReadSeeker
	Name   string

	CollectionName string

	GameType string
	Edition  string
	BookType string
}

// ImportResult reports one completed document import.
type ImportResult struct {
	Source   string                   `json:"source"`
	Path     collection.Path          `json:"collection_path"`
	Game     *detect.GameMetadata     `json:"game"`
	Sections int                      `json:"sections"`
	Summary  *dualstore.ImportSummary `json:"summary"`
	Duration time.Duration            `json:"duration"`
}

// Options configures an Importer.
type Options struct {
	Detector    *detect.Detector
	Categorizer *categorize.Categorizer
	Writer      *dualstore.Writer
	Namespace   string // Default: collection.DefaultNamespace
	SampleSize  int    // Default: DefaultSampleSize
	Extract     ExtractFunc
	Logger      *slog.Logger
}

// Importer is the single entry point for document imports.
type Importer struct {
	detector    *detect.Detector
	categorizer *categorize.Categorizer
	writer      *dualstore.Writer
	namespace   string
	sampleSize  int
	extract     ExtractFunc
	logger      *slog.Logger
}

// New creates an Importer.
func New(opts Options) *Importer {
	if opts.Namespace == "" {
		opts.Namespace = collection.DefaultNamespace
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultSampleSize
	}
	if opts.Extract == nil {
		opts.Extract = pdfx.Extract
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Importer{
		detector:    opts.Detector,
		categorizer: opts.Categorizer,
		writer:      opts.Writer,
		namespace:   opts.Namespace,
		sampleSize:  opts.SampleSize,
		extract:     opts.Extract,
		logger:      opts.Logger,
	}
}

// ImportDocument runs the full pipeline for one document. Extraction and
// identifier errors abort before any store write; provider failures never
// abort (detection degrades to rule fallback, categorization to rules).
func (imp *Importer) ImportDocument(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	start := time.Now()
	source := req.Name
	if source == "" {
		source = filepath.Base(req.Path)
	}
	logger := imp.logger.With("source", source)

	reader := req.Reader
	if reader == nil {
		if req.Path == "" {
			return nil, fmt.Errorf("import request has neither path nor reader")
		}
		f, err := os.Open(req.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", req.Path, err)
		}
		defer f.Close()
		reader = f
	}

	pages, err := imp.extract(ctx, reader)
	if err != nil {
		return nil, fmt.Errorf("extraction of %s failed: %w", source, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sections := segment.Segment(pages)
	logger.Info("document segmented", "pages", len(pages), "sections", len(sections))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta, err := imp.resolveGame(ctx, req, sections, logger)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collName := req.CollectionName
	if collName == "" {
		collName = strings.TrimSuffix(source, filepath.Ext(source))
	}
	path, err := collection.DeriveIn(imp.namespace, meta, collName)
	if err != nil {
		return nil, fmt.Errorf("collection name %q: %w", collName, err)
	}

	records := make([]dualstore.Record, 0, len(sections))
	for i := range sections {
		sec := &sections[i]
		cat := imp.categorizer.Categorize(ctx, sec, meta)
		records = append(records, dualstore.Record{
			SectionIndex: i,
			Doc: docstore.SectionRecord{
				Title:               sec.Title,
				StartPage:           sec.StartPage,
				EndPage:             sec.EndPage,
				Text:                sec.Text,
				WordCount:           sec.WordCount,
				HasTables:           sec.HasTable,
				TableCount:          sec.TableCount,
				Category:            cat.Primary,
				CategoryConfidence:  cat.Confidence,
				GameType:            meta.GameType,
				Edition:             meta.Edition,
				BookType:            meta.BookType,
				DetectionMethod:     string(meta.Method),
				DetectionConfidence: meta.Confidence,
				SourceFile:          source,
			},
		})
		if cat.Subcategory != "" {
			records[len(records)-1].Doc.Category = cat.String()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary, err := imp.writer.Persist(ctx, path, records)
	if err != nil {
		return nil, fmt.Errorf("persist into %s failed: %w", path, err)
	}

	importRec := docstore.ImportRecord{
		CollectionPath:  path.String(),
		SourceFile:      source,
		SectionCount:    len(sections),
		GameType:        meta.GameType,
		DetectionMethod: string(meta.Method),
		StartedAt:       start,
	}
	if err := imp.writer.RecordImport(ctx, importRec, summary); err != nil {
		logger.Warn("failed to record import summary", "error", err)
	}

	logger.Info("import finished",
		"collection", path.String(),
		"game", meta.GameType,
		"method", meta.Method,
		"written", summary.Written,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	return &ImportResult{
		Source:   source,
		Path:     path,
		Game:     meta,
		Sections: len(sections),
		Summary:  summary,
		Duration: time.Since(start),
	}, nil
}

// resolveGame picks manual override when one is requested, otherwise runs
// detection on a bounded sample from the front of the document.
func (imp *Importer) resolveGame(ctx context.Context, req ImportRequest, sections []segment.Section, logger *slog.Logger) (*detect.GameMetadata, error) {
	if req.GameType != "" {
		logger.Info("using manual game override", "game", req.GameType)
		return detect.Override(req.GameType, req.Edition, req.BookType), nil
	}

	var sb strings.Builder
	for _, sec := range sections {
		sb.WriteString(sec.Text)
		sb.WriteString("\n")
		if sb.Len() >= imp.sampleSize {
			break
		}
	}
	sample := truncateSample(sb.String(), imp.sampleSize)

	meta, err := imp.detector.Detect(ctx, sample)
	if err != nil {
		return nil, fmt.Errorf("game detection failed: %w", err)
	}
	return meta, nil
}

// truncateSample bounds s to max bytes, backing up to a rune boundary so
// the cut never leaves a partial UTF-8 sequence at the end.
func truncateSample(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
