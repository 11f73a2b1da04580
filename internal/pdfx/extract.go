package pdfx

import (
	"context"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Extract parses a PDF and returns one PageText per page, in page order.
// Pages with no text content are still returned (empty Text) so that page
// indexes stay aligned with the source document.
func Extract(ctx context.Context, rs io.ReadSeeker) ([]PageText, error) {
	var pages []PageText
	err := ExtractStream(ctx, rs, func(p PageText) error {
		pages = append(pages, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// ExtractStream parses a PDF page-by-page, invoking fn for each page as soon
// as it is extracted. The full document text is never materialized, so large
// inputs are bounded by per-page memory. fn returning an error stops the
// extraction and propagates that error.
func ExtractStream(ctx context.Context, rs io.ReadSeeker, fn func(PageText) error) error {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	if pdfCtx.PageCount == 0 {
		return fmt.Errorf("%w: document has no pages", ErrCorruptDocument)
	}

	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		content := readPageContent(pdfCtx, pageNr)
		text, layout := parseContentStream(content)

		page := PageText{
			Index:       pageNr - 1,
			Text:        text,
			MultiColumn: layout.multiColumn(),
			HasTable:    layout.hasTable(text),
		}
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

// readPageContent returns the raw content stream bytes for a page.
// A page whose stream cannot be read yields empty content rather than
// failing the whole document; only top-level parse errors are corrupt.
func readPageContent(pdfCtx *model.Context, pageNr int) []byte {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || r == nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	return data
}
