package docstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func sectionCreateServer(t *testing.T, count *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		resp := GQLResponse{
			Data: map[string]any{
				"create_Section": []any{
					map[string]any{"_docID": "bae-s1"},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestSink_SendSync_Create(t *testing.T) {
	var requestCount atomic.Int32
	server := sectionCreateServer(t, &requestCount)
	defer server.Close()

	sink := NewSink(SinkConfig{
		Client:        NewClient(server.URL),
		BatchSize:     10,
		FlushInterval: 50 * time.Millisecond,
	})

	ctx := context.Background()
	sink.Start(ctx)
	defer sink.Stop()

	result, err := sink.SendSync(ctx, WriteOp{
		Collection: SectionCollection,
		Document:   map[string]any{"title": "Combat"},
		Op:         OpCreate,
	})
	if err != nil {
		t.Fatalf("SendSync failed: %v", err)
	}
	if result.DocID != "bae-s1" {
		t.Errorf("DocID = %q, want bae-s1", result.DocID)
	}
}

func TestSink_SendSync_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "boom"}]}`))
	}))
	defer server.Close()

	sink := NewSink(SinkConfig{
		Client:        NewClient(server.URL),
		FlushInterval: 50 * time.Millisecond,
	})
	ctx := context.Background()
	sink.Start(ctx)
	defer sink.Stop()

	_, err := sink.SendSync(ctx, WriteOp{
		Collection: SectionCollection,
		Document:   map[string]any{"title": "x"},
		Op:         OpCreate,
	})
	if err == nil {
		t.Error("expected error from failing create")
	}
}

func TestSink_Send_FireAndForget(t *testing.T) {
	var requestCount atomic.Int32
	server := sectionCreateServer(t, &requestCount)
	defer server.Close()

	sink := NewSink(SinkConfig{
		Client:        NewClient(server.URL),
		BatchSize:     10,
		FlushInterval: 20 * time.Millisecond,
	})
	sink.Start(context.Background())

	sink.Send(WriteOp{
		Collection: SectionCollection,
		Document:   map[string]any{"title": "Spells"},
		Op:         OpCreate,
	})

	time.Sleep(80 * time.Millisecond)
	sink.Stop()

	if requestCount.Load() != 1 {
		t.Errorf("expected 1 request, got %d", requestCount.Load())
	}
}

func TestSink_StopFlushesRemaining(t *testing.T) {
	var requestCount atomic.Int32
	server := sectionCreateServer(t, &requestCount)
	defer server.Close()

	sink := NewSink(SinkConfig{
		Client:        NewClient(server.URL),
		BatchSize:     100,
		FlushInterval: time.Hour, // only Stop can flush
	})
	sink.Start(context.Background())

	for i := 0; i < 3; i++ {
		sink.Send(WriteOp{
			Collection: SectionCollection,
			Document:   map[string]any{"title": "pending"},
			Op:         OpCreate,
		})
	}
	sink.Stop()

	if requestCount.Load() != 3 {
		t.Errorf("expected 3 requests after Stop flush, got %d", requestCount.Load())
	}
}

func TestSink_SendAfterStopDoesNotPanic(t *testing.T) {
	var requestCount atomic.Int32
	server := sectionCreateServer(t, &requestCount)
	defer server.Close()

	sink := NewSink(SinkConfig{Client: NewClient(server.URL)})
	sink.Start(context.Background())
	sink.Stop()

	// Must be absorbed, not panic.
	sink.Send(WriteOp{
		Collection: SectionCollection,
		Document:   map[string]any{"title": "late"},
		Op:         OpCreate,
	})
}

func TestSink_BatchBySize(t *testing.T) {
	var requestCount atomic.Int32
	server := sectionCreateServer(t, &requestCount)
	defer server.Close()

	sink := NewSink(SinkConfig{
		Client:        NewClient(server.URL),
		BatchSize:     2,
		FlushInterval: time.Hour,
	})
	ctx := context.Background()
	sink.Start(ctx)
	defer sink.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// The second op fills the batch and triggers a flush, which
		// delivers both results.
		sink.SendSync(ctx, WriteOp{Collection: SectionCollection, Document: map[string]any{"n": 2}, Op: OpCreate})
	}()
	sink.Send(WriteOp{Collection: SectionCollection, Document: map[string]any{"n": 1}, Op: OpCreate})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("size-triggered flush did not happen")
	}
	if requestCount.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", requestCount.Load())
	}
}
