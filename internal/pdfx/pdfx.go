// Package pdfx extracts per-page text and layout hints from PDF documents.
package pdfx

import (
	"errors"
)

// ErrCorruptDocument is returned when the input cannot be parsed as a PDF.
var ErrCorruptDocument = errors.New("corrupt document")

// PageText is the extracted text of a single page plus layout hints.
// Page indexes are 0-based. Immutable once produced.
type PageText struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	MultiColumn bool   `json:"multi_column"`
	HasTable    bool   `json:"has_table"`
}
