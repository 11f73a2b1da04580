// Package calllog records AI provider calls to a local SQLite database.
// Recording is asynchronous and best-effort: a full queue drops entries
// rather than slowing the pipeline down.
package calllog

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Schema for the provider_calls table.
const Schema = `
CREATE TABLE IF NOT EXISTS provider_calls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT,
	provider TEXT NOT NULL,
	model TEXT,
	kind TEXT NOT NULL,
	duration_us INTEGER NOT NULL,
	prompt_tokens INTEGER,
	completion_tokens INTEGER,
	success INTEGER NOT NULL,
	error TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_provider_calls_ts ON provider_calls(created_at);
CREATE INDEX IF NOT EXISTS idx_provider_calls_provider ON provider_calls(provider);
`

// Entry is one recorded provider call.
type Entry struct {
	RequestID        string
	Provider         string
	Model            string
	Kind             string
	Duration         time.Duration
	PromptTokens     int
	CompletionTokens int
	Success          bool
	Error            string
	At               time.Time
}

// Recorder persists call entries asynchronously through a single writer
// goroutine.
type Recorder struct {
	db     *sql.DB
	ch     chan *Entry
	done   chan struct{}
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// Open opens (or creates) the call log database at path and starts the
// writer goroutine.
func Open(path string, logger *slog.Logger) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return NewRecorder(db, logger), nil
}

// NewRecorder wraps an existing database connection. The schema must already
// be applied.
func NewRecorder(db *sql.DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		db:     db,
		ch:     make(chan *Entry, 256),
		done:   make(chan struct{}),
		logger: logger,
	}
	go r.run()
	return r
}

// Record queues an entry for persistence. Never blocks; drops with a
// warning when the queue is full or the recorder is closed.
func (r *Recorder) Record(e *Entry) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.ch <- e:
	default:
		r.logger.Warn("call log queue full, dropping entry", "provider", e.Provider)
	}
}

// Close drains pending entries and closes the database.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.ch)
		r.mu.Unlock()
		<-r.done
	})
	return r.db.Close()
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.ch {
		success := 0
		if e.Success {
			success = 1
		}
		_, err := r.db.Exec(
			`INSERT INTO provider_calls
			 (request_id, provider, model, kind, duration_us, prompt_tokens, completion_tokens, success, error, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.RequestID, e.Provider, e.Model, e.Kind,
			e.Duration.Microseconds(), e.PromptTokens, e.CompletionTokens,
			success, e.Error, e.At.Unix(),
		)
		if err != nil {
			r.logger.Warn("failed to record provider call", "error", err)
		}
	}
}
