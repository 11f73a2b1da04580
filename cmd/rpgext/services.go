package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/calllog"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/categorize"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/config"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/detect"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/docstore"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/dualstore"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/pipeline"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/svcctx"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/vecstore"
)

// loadConfig resolves the effective configuration: explicit --config flag,
// else the config file in the home directory when one exists.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		h, err := getHome()
		if err != nil {
			return nil, err
		}
		if h.ConfigExists() {
			path = h.ConfigPath()
		}
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	return mgr.Get(), nil
}

// buildServices wires the full pipeline from configuration and attaches
// the services to the returned context. Commands retrieve them with the
// svcctx extractors. The returned cleanup stops the sink, call log, and
// store connections.
func buildServices(ctx context.Context) (context.Context, func(), error) {
	h, err := getHome()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.Default()

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, nil, err
	}
	cfg := mgr.Get()

	var recorder *calllog.Recorder
	if cfg.CallLog.Enabled {
		dbPath := cfg.CallLog.Path
		if dbPath == "" {
			dbPath = h.CallLogPath()
		}
		recorder, err = calllog.Open(dbPath, logger)
		if err != nil {
			logger.Warn("call log disabled", "error", err)
			recorder = nil
		}
	}

	registry := providers.NewRegistryFromConfig(cfg.ToRegistryConfig())
	registry.SetCallLog(recorder)
	mgr.OnChange(func(c *config.Config) {
		registry.Reload(c.ToRegistryConfig())
	})
	mgr.WatchConfig()

	client := docstore.NewClient(cfg.Docstore.URL)
	if err := client.HealthCheck(ctx); err != nil {
		return nil, nil, fmt.Errorf("document store at %s: %w (run 'rpgext stores up')", cfg.Docstore.URL, err)
	}
	if err := docstore.EnsureSchemas(ctx, client); err != nil {
		return nil, nil, fmt.Errorf("failed to register schemas: %w", err)
	}

	sink := docstore.NewSink(docstore.SinkConfig{
		Client:    client,
		BatchSize: cfg.Docstore.BatchSize,
		Logger:    logger,
	})
	sink.Start(ctx)

	var embedder vecstore.Embedder
	if cfg.Vecstore.Embedder == "offline" {
		embedder = vecstore.NewHashEmbedder(cfg.Vecstore.Dimensions)
	} else {
		embedder = vecstore.NewOpenAIEmbedder(vecstore.OpenAIEmbedderConfig{
			APIKey:     config.ResolveEnvVars(cfg.Vecstore.APIKey),
			Model:      cfg.Vecstore.Model,
			Dimensions: cfg.Vecstore.Dimensions,
		})
	}
	store, err := vecstore.New(ctx, vecstore.Config{
		DSN:      cfg.Vecstore.DSN,
		Embedder: embedder,
		Logger:   logger,
	})
	if err != nil {
		sink.Stop()
		return nil, nil, fmt.Errorf("vector store: %w", err)
	}

	detector := detect.New(detect.Options{
		Registry:  registry,
		Providers: cfg.Detection.Providers,
		Model:     cfg.Detection.Model,
		CacheSize: cfg.Detection.CacheSize,
		Logger:    logger,
	})
	categorizer := categorize.New(categorize.Options{
		Registry:        registry,
		Providers:       cfg.Categorize.Providers,
		ConsultProvider: cfg.Categorize.ConsultProvider,
		Logger:          logger,
	})
	writer := dualstore.NewWriter(dualstore.Config{
		Docs:      sink,
		Index:     clientIndex{client},
		Vectors:   store,
		BatchSize: cfg.Vecstore.BatchSize,
		Logger:    logger,
	})
	importer := pipeline.New(pipeline.Options{
		Detector:    detector,
		Categorizer: categorizer,
		Writer:      writer,
		Namespace:   cfg.Import.Namespace,
		SampleSize:  cfg.Detection.SampleSize,
		Logger:      logger,
	})

	cleanup := func() {
		sink.Stop()
		store.Close()
		if recorder != nil {
			recorder.Close()
		}
	}

	ctx = svcctx.WithServices(ctx, &svcctx.Services{
		DocClient: client,
		DocSink:   sink,
		VecStore:  store,
		Registry:  registry,
		Importer:  importer,
		Config:    mgr,
		CallLog:   recorder,
		Logger:    logger,
		Home:      h,
	})
	return ctx, cleanup, nil
}

// clientIndex adapts a docstore client to the dualstore index interface.
type clientIndex struct {
	client *docstore.Client
}

func (c clientIndex) ExistingSectionIDs(ctx context.Context, collectionPath string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return docstore.ExistingSectionIDs(ctx, c.client, collectionPath)
}
