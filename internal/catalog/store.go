// Package catalog holds the ordered, persisted list of products being edited.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/pricer/internal/models"
)

// ErrProductNotFound is returned for an id not present in the catalog
var ErrProductNotFound = errors.New("product not found")

// Store owns the catalog products in insertion order.
// Every mutation writes a snapshot through the persister.
type Store struct {
	persister Persister
	products  []models.Product
	fileName  string
	mu        sync.RWMutex
}

// New restores a previous session from persister. A corrupt snapshot is
// discarded and the store starts empty.
func New(ctx context.Context, persister Persister) *Store {
	s := &Store{persister: persister}

	snapshot, ok, err := persister.Load(ctx)
	switch {
	case err != nil:
		slog.Warn("Discarding unreadable saved catalog", "err", err)
	case ok:
		s.products = snapshot.Products
		s.fileName = snapshot.FileName
		slog.Info("Restored saved catalog", "products", len(s.products), "file", s.fileName)
	}

	return s
}

// NewID returns a fresh product identifier
func NewID() string {
	return "prod-" + uuid.NewString()
}

// ValidateAmount checks a bulk adjustment amount
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("amount must be a finite number")
	}
	if amount < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	return nil
}

func (s *Store) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Product, len(s.products))
	copy(result, s.products)
	return result
}

func (s *Store) Get(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.products[i], true
	}
	return models.Product{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

func (s *Store) FileName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fileName
}

func (s *Store) SetFileName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileName = name
	s.persist()
}

// Append adds products at the end, keeping their relative order.
// Products without an id are assigned one.
func (s *Store) Append(products ...models.Product) {
	if len(products) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		if p.ID == "" || s.indexOf(p.ID) >= 0 {
			p.ID = NewID()
		}
		s.products = append(s.products, p)
	}
	s.persist()
}

// BulkAdjust applies op with amount to every updated price and rounds the result.
// The amount is expected to have passed ValidateAmount.
func (s *Store) BulkAdjust(op models.BulkOperation, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.products) == 0 {
		return
	}

	for i := range s.products {
		s.products[i].UpdatedPrice = adjust(op, s.products[i].UpdatedPrice, amount)
	}
	s.persist()
}

func adjust(op models.BulkOperation, price int64, amount float64) int64 {
	current := float64(price)
	next := current
	switch op {
	case models.BulkAdd:
		next = current + amount
	case models.BulkSubtract:
		next = math.Max(0, current-amount)
	case models.BulkPercentage:
		next = current * (1 + amount/100)
	}
	return int64(math.Round(next))
}

func (s *Store) SetPrice(id string, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	s.products[i].UpdatedPrice = price
	s.persist()
	return nil
}

func (s *Store) SetImage(id string, image []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	s.products[i].Image = image
	s.persist()
	return nil
}

func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	s.persist()
	return nil
}

// Clear empties the catalog, forgets the file name and deletes the saved snapshot
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = nil
	s.fileName = ""
	if err := s.persister.Clear(context.Background()); err != nil {
		slog.Error("Unable to clear saved catalog", "err", err)
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

// persist must be called with mu held
func (s *Store) persist() {
	products := make([]models.Product, len(s.products))
	copy(products, s.products)
	snapshot := models.Snapshot{Products: products, FileName: s.fileName}
	if err := s.persister.Save(context.Background(), snapshot); err != nil {
		slog.Error("Unable to save catalog", "err", err)
	}
}
