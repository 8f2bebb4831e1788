package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/pricer/internal/models"
	"github.com/lehigh-university-libraries/pricer/internal/storage"
)

const (
	productsKey = "pricer-products"
	fileNameKey = "pricer-filename"
)

// Persister reads and writes catalog snapshots
type Persister interface {
	// Load returns false when no snapshot was stored
	Load(ctx context.Context) (models.Snapshot, bool, error)
	Save(ctx context.Context, snapshot models.Snapshot) error
	Clear(ctx context.Context) error
}

// KVPersister stores a snapshot as two keys of a storage.KV
type KVPersister struct {
	kv storage.KV
}

func NewKVPersister(kv storage.KV) *KVPersister {
	return &KVPersister{kv: kv}
}

func (p *KVPersister) Load(ctx context.Context) (models.Snapshot, bool, error) {
	var snapshot models.Snapshot

	raw, err := p.kv.Get(ctx, productsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return snapshot, false, nil
	}
	if err != nil {
		return snapshot, false, err
	}

	if err := json.Unmarshal([]byte(raw), &snapshot.Products); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("failed to parse stored products: %w", err)
	}

	fileName, err := p.kv.Get(ctx, fileNameKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return models.Snapshot{}, false, err
	}
	snapshot.FileName = fileName

	return snapshot, true, nil
}

func (p *KVPersister) Save(ctx context.Context, snapshot models.Snapshot) error {
	products := snapshot.Products
	if products == nil {
		products = []models.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to marshal products: %w", err)
	}
	if err := p.kv.Set(ctx, productsKey, string(data)); err != nil {
		return err
	}
	return p.kv.Set(ctx, fileNameKey, snapshot.FileName)
}

func (p *KVPersister) Clear(ctx context.Context) error {
	return p.kv.Delete(ctx, productsKey, fileNameKey)
}
