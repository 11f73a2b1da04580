package pipeline

import (
	"context"
	"sync"
)

// BatchItem pairs one request with its outcome. Exactly one of Result or
// Err is set.
type BatchItem struct {
	Source string        `json:"source"`
	Result *ImportResult `json:"result,omitempty"`
	Err    error         `json:"-"`
	ErrMsg string        `json:"error,omitempty"`
}

// BatchSummary aggregates a batch import run.
type BatchSummary struct {
	Items   []BatchItem `json:"items"`
	Written int         `json:"written"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Errored int         `json:"errored"`
}

// ImportBatch imports documents concurrently with a bounded worker pool.
// Each document is isolated: one corrupt PDF errors its own item and the
// rest proceed. Items come back in request order.
func (imp *Importer) ImportBatch(ctx context.Context, reqs []ImportRequest, workers int) *BatchSummary {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(reqs) {
		workers = len(reqs)
	}

	items := make([]BatchItem, len(reqs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				req := reqs[i]
				source := req.Name
				if source == "" {
					source = req.Path
				}
				items[i].Source = source

				result, err := imp.ImportDocument(ctx, req)
				if err != nil {
					items[i].Err = err
					items[i].ErrMsg = err.Error()
					continue
				}
				items[i].Result = result
			}
		}()
	}

feed:
	for i := range reqs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	summary := &BatchSummary{Items: items}
	for i := range items {
		switch {
		case items[i].Result != nil:
			summary.Written += items[i].Result.Summary.Written
			summary.Skipped += items[i].Result.Summary.Skipped
			summary.Failed += items[i].Result.Summary.Failed
		case items[i].Err != nil:
			summary.Errored++
		}
	}
	return summary
}
