package docstore

import (
	"context"
	"fmt"
	"time"
)

// Collection names.
const (
	SectionCollection = "Section"
	ImportCollection  = "Import"
)

// Schemas registered on startup. DefraDB stores one document per extracted
// section plus one summary row per import run.
const (
	sectionSchema = `
type Section {
	section_id: String
	collection_path: String
	title: String
	start_page: Int
	end_page: Int
	text: String
	word_count: Int
	has_tables: Boolean
	table_count: Int
	category: String
	category_confidence: Float
	game_type: String
	edition: String
	book_type: String
	detection_method: String
	detection_confidence: Float
	source_file: String
	imported_at: String
}
`

	importSchema = `
type Import {
	collection_path: String
	source_file: String
	section_count: Int
	written: Int
	skipped: Int
	failed: Int
	game_type: String
	detection_method: String
	started_at: String
	finished_at: String
}
`
)

// EnsureSchemas registers both collections, tolerating re-registration.
func EnsureSchemas(ctx context.Context, client *Client) error {
	for _, schema := range []string{sectionSchema, importSchema} {
		if err := client.AddSchema(ctx, schema); err != nil {
			return err
		}
	}
	return nil
}

// SectionRecord is the stored form of one extracted section.
type SectionRecord struct {
	SectionID           string
	CollectionPath      string
	Title               string
	StartPage           int
	EndPage             int
	Text                string
	WordCount           int
	HasTables           bool
	TableCount          int
	Category            string
	CategoryConfidence  float64
	GameType            string
	Edition             string
	BookType            string
	DetectionMethod     string
	DetectionConfidence float64
	SourceFile          string
	ImportedAt          time.Time
}

// Input renders the record as a GraphQL input document.
func (r *SectionRecord) Input() map[string]any {
	return map[string]any{
		"section_id":           r.SectionID,
		"collection_path":      r.CollectionPath,
		"title":                r.Title,
		"start_page":           r.StartPage,
		"end_page":             r.EndPage,
		"text":                 r.Text,
		"word_count":           r.WordCount,
		"has_tables":           r.HasTables,
		"table_count":          r.TableCount,
		"category":             r.Category,
		"category_confidence":  r.CategoryConfidence,
		"game_type":            r.GameType,
		"edition":              r.Edition,
		"book_type":            r.BookType,
		"detection_method":     r.DetectionMethod,
		"detection_confidence": r.DetectionConfidence,
		"source_file":          r.SourceFile,
		"imported_at":          r.ImportedAt.UTC().Format(time.RFC3339),
	}
}

// ExistingSectionIDs returns the section_id set already stored under a
// collection path. The import layer uses it to skip unchanged sections.
func ExistingSectionIDs(ctx context.Context, client *Client, collectionPath string) (map[string]string, error) {
	resp, err := NewQuery(SectionCollection).
		Filter("collection_path", collectionPath).
		Fields("_docID", "section_id").
		Execute(ctx, client)
	if err != nil {
		return nil, err
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("query error: %s", errMsg)
	}

	ids := make(map[string]string)
	docs, _ := resp.Data[SectionCollection].([]any)
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}
		sectionID, _ := doc["section_id"].(string)
		docID, _ := doc["_docID"].(string)
		if sectionID != "" {
			ids[sectionID] = docID
		}
	}
	return ids, nil
}

// SearchSections runs a full-text style filter over section text within a
// collection path. Term is wrapped for substring matching.
func SearchSections(ctx context.Context, client *Client, collectionPath, term string, limit int) ([]SectionRecord, error) {
	q := NewQuery(SectionCollection).
		Filter("collection_path", collectionPath).
		FilterLike("text", term).
		Fields("_docID", "section_id", "title", "start_page", "end_page",
			"text", "category", "game_type")
	if limit > 0 {
		q.Limit(limit)
	}

	resp, err := q.Execute(ctx, client)
	if err != nil {
		return nil, err
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("query error: %s", errMsg)
	}

	docs, _ := resp.Data[SectionCollection].([]any)
	records := make([]SectionRecord, 0, len(docs))
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, decodeSection(doc))
	}
	return records, nil
}

func decodeSection(doc map[string]any) SectionRecord {
	r := SectionRecord{}
	r.SectionID, _ = doc["section_id"].(string)
	r.CollectionPath, _ = doc["collection_path"].(string)
	r.Title, _ = doc["title"].(string)
	r.Text, _ = doc["text"].(string)
	r.Category, _ = doc["category"].(string)
	r.GameType, _ = doc["game_type"].(string)
	if v, ok := doc["start_page"].(float64); ok {
		r.StartPage = int(v)
	}
	if v, ok := doc["end_page"].(float64); ok {
		r.EndPage = int(v)
	}
	return r
}

// ImportRecord summarizes one import run.
type ImportRecord struct {
	CollectionPath  string
	SourceFile      string
	SectionCount    int
	Written         int
	Skipped         int
	Failed          int
	GameType        string
	DetectionMethod string
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Input renders the record as a GraphQL input document.
func (r *ImportRecord) Input() map[string]any {
	return map[string]any{
		"collection_path":  r.CollectionPath,
		"source_file":      r.SourceFile,
		"section_count":    r.SectionCount,
		"written":          r.Written,
		"skipped":          r.Skipped,
		"failed":           r.Failed,
		"game_type":        r.GameType,
		"detection_method": r.DetectionMethod,
		"started_at":       r.StartedAt.UTC().Format(time.RFC3339),
		"finished_at":      r.FinishedAt.UTC().Format(time.RFC3339),
	}
}
