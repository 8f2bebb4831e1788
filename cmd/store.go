package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/pricer/internal/catalog"
	"github.com/lehigh-university-libraries/pricer/internal/extraction"
	"github.com/lehigh-university-libraries/pricer/internal/images"
	"github.com/lehigh-university-libraries/pricer/internal/pipeline"
	"github.com/lehigh-university-libraries/pricer/internal/rasterizer"
	"github.com/lehigh-university-libraries/pricer/internal/storage"
)

// openStore restores the saved catalog from the configured backend.
// The returned func closes the backend.
func openStore(ctx context.Context, opts *globalOptions) (*catalog.Store, func(), error) {
	kv, err := storage.Open(opts.storage, opts.dataDir, opts.redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s storage: %w", opts.storage, err)
	}

	store := catalog.New(ctx, catalog.NewKVPersister(kv))
	closeFn := func() {
		if err := kv.Close(); err != nil {
			slog.Error("Unable to close storage", "err", err)
		}
	}
	return store, closeFn, nil
}

// pipelineDeps wires the production rasterizer, extractor and cropper
func pipelineDeps(provider, model string) (pipeline.Deps, error) {
	p, err := extraction.NewProvider(provider)
	if err != nil {
		return pipeline.Deps{}, err
	}

	client := extraction.NewClient(p, model)
	slog.Info("Using extraction provider", "provider", p.Name(), "model", client.Model())

	return pipeline.Deps{
		Rasterizer: rasterizer.New(),
		Extractor:  client,
		Crop:       images.Crop,
	}, nil
}
