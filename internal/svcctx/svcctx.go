// Package svcctx provides service context for dependency injection via context.
// This package is separate from the command layer to avoid import cycles.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/calllog"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/config"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/docstore"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/home"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/pipeline"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/vecstore"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	DocClient *docstore.Client
	DocSink   *docstore.Sink
	VecStore  *vecstore.Store
	Registry  *providers.Registry
	Importer  *pipeline.Importer
	Config    *config.Manager
	CallLog   *calllog.Recorder
	Logger    *slog.Logger
	Home      *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// DocClientFrom extracts the document store client from context.
func DocClientFrom(ctx context.Context) *docstore.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.DocClient
	}
	return nil
}

// VecStoreFrom extracts the vector store from context.
func VecStoreFrom(ctx context.Context) *vecstore.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.VecStore
	}
	return nil
}

// ImporterFrom extracts the import pipeline from context.
func ImporterFrom(ctx context.Context) *pipeline.Importer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Importer
	}
	return nil
}
