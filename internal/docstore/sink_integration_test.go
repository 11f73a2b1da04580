package docstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/testutil"
)

// setupStoreTest starts a DefraDB container, registers the schemas, and
// returns a client plus a running sink. Requires a local Docker daemon;
// guarded by RPGEXT_DOCKER_TESTS.
func setupStoreTest(t *testing.T) (*Client, *Sink, func()) {
	t.Helper()

	if os.Getenv("RPGEXT_DOCKER_TESTS") == "" {
		t.Skip("set RPGEXT_DOCKER_TESTS=1 to run docker-backed store tests")
	}

	ctx := context.Background()
	cfg := testutil.NewStoreConfig(t)

	mgr, err := NewDockerManager(DockerConfig{
		ContainerName: cfg.ContainerName,
		DataPath:      cfg.DataPath,
		HostPort:      cfg.HostPort,
		Labels:        cfg.Labels,
	})
	if err != nil {
		t.Fatalf("NewDockerManager() error = %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		mgr.Close()
		t.Fatalf("Start() error = %v", err)
	}

	if err := testutil.WaitForStore(cfg.URL(), 30*time.Second); err != nil {
		mgr.Stop(ctx)
		mgr.Close()
		t.Fatalf("WaitForStore() error = %v", err)
	}

	client := NewClient(cfg.URL())
	if err := EnsureSchemas(ctx, client); err != nil {
		// A reused data dir already has the schemas registered.
		t.Logf("EnsureSchemas result: %v", err)
	}

	sink := NewSink(SinkConfig{
		Client:        client,
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
		Logger:        cfg.Logger,
	})
	sink.Start(ctx)

	cleanup := func() {
		sink.Stop()
		mgr.Stop(context.Background())
		mgr.Close()
	}

	return client, sink, cleanup
}

func TestStoreIntegrationSectionRoundTrip(t *testing.T) {
	client, sink, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()

	rec := &SectionRecord{
		SectionID:           "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb01",
		CollectionPath:      "rpger.dnd.5th_edition.phb.core_rules",
		Title:               "Combat",
		StartPage:           1,
		EndPage:             4,
		Text:                "Armor Class determines how hard a creature is to hit.",
		WordCount:           10,
		Category:            "combat",
		CategoryConfidence:  0.9,
		GameType:            "D&D",
		Edition:             "5th Edition",
		BookType:            "Core Rulebook",
		DetectionMethod:     "rule_fallback",
		DetectionConfidence: 0.5,
		SourceFile:          "phb.pdf",
		ImportedAt:          time.Now(),
	}

	result, err := sink.SendSync(ctx, WriteOp{
		Collection: SectionCollection,
		Document:   rec.Input(),
		Op:         OpCreate,
	})
	if err != nil {
		t.Fatalf("SendSync create failed: %v", err)
	}
	if result.DocID == "" {
		t.Fatal("expected non-empty DocID")
	}

	ids, err := ExistingSectionIDs(ctx, client, rec.CollectionPath)
	if err != nil {
		t.Fatalf("ExistingSectionIDs() error = %v", err)
	}
	if got := ids[rec.SectionID]; got != result.DocID {
		t.Errorf("ExistingSectionIDs[%s] = %q, want %q", rec.SectionID, got, result.DocID)
	}

	found, err := SearchSections(ctx, client, rec.CollectionPath, "Armor Class", 10)
	if err != nil {
		t.Fatalf("SearchSections() error = %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("SearchSections() returned %d records, want 1", len(found))
	}
	if found[0].SectionID != rec.SectionID || found[0].Title != "Combat" {
		t.Errorf("unexpected record: %+v", found[0])
	}

	// A different collection path must not see the section.
	other, err := ExistingSectionIDs(ctx, client, "rpger.shadowrun.core_rules")
	if err != nil {
		t.Fatalf("ExistingSectionIDs() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no sections under other path, got %v", other)
	}
}

func TestStoreIntegrationImportSummaryRow(t *testing.T) {
	client, sink, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()

	imp := &ImportRecord{
		CollectionPath:  "rpger.dnd.5th_edition.phb.core_rules",
		SourceFile:      "phb.pdf",
		SectionCount:    12,
		Written:         10,
		Skipped:         1,
		Failed:          1,
		GameType:        "D&D",
		DetectionMethod: "ai_analysis",
		StartedAt:       time.Now().Add(-time.Minute),
		FinishedAt:      time.Now(),
	}

	result, err := sink.SendSync(ctx, WriteOp{
		Collection: ImportCollection,
		Document:   imp.Input(),
		Op:         OpCreate,
	})
	if err != nil {
		t.Fatalf("SendSync create failed: %v", err)
	}
	if result.DocID == "" {
		t.Fatal("expected non-empty DocID")
	}

	resp, err := NewQuery(ImportCollection).
		Filter("collection_path", imp.CollectionPath).
		Fields("_docID", "source_file", "written", "skipped", "failed").
		Execute(ctx, client)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		t.Fatalf("query error: %s", errMsg)
	}

	docs, _ := resp.Data[ImportCollection].([]any)
	if len(docs) != 1 {
		t.Fatalf("expected one import row, got %d", len(docs))
	}
	doc := docs[0].(map[string]any)
	if doc["source_file"] != "phb.pdf" {
		t.Errorf("source_file = %v", doc["source_file"])
	}
	if w, _ := doc["written"].(float64); int(w) != 10 {
		t.Errorf("written = %v, want 10", doc["written"])
	}
	if f, _ := doc["failed"].(float64); int(f) != 1 {
		t.Errorf("failed = %v, want 1", doc["failed"])
	}
}
