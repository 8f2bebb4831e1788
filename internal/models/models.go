package models

import (
	"fmt"
	"strings"
)

// DefaultProductName is used when the model returns a product without a name
const DefaultProductName = "Producto sin nombre"

// Product represents one priced item of the catalog
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	OriginalPrice int64  `json:"originalPrice"`
	UpdatedPrice  int64  `json:"updatedPrice"`
	Image         []byte `json:"image,omitempty"` // JPEG thumbnail
}

// HasImage reports whether the product carries a thumbnail
func (p Product) HasImage() bool {
	return len(p.Image) > 0
}

// Candidate is an unvalidated product proposed by the extraction model
type Candidate struct {
	Name          string
	OriginalPrice int64
	BoundingBox   []float64 // ymin, xmin, ymax, xmax normalized 0-1
}

// Snapshot is the persisted state of a catalog
type Snapshot struct {
	Products []Product `json:"products"`
	FileName string    `json:"fileName"`
}

// Step is the phase of a processing run
type Step string

const (
	StepIdle      Step = "idle"
	StepReading   Step = "reading"
	StepAnalyzing Step = "analyzing"
	StepComplete  Step = "complete"
	StepError     Step = "error"
)

// ProcessingStatus describes the progress of an upload
type ProcessingStatus struct {
	Step     Step   `json:"step"`
	Message  string `json:"message"`
	Progress int    `json:"progress,omitempty"` // current page, 1-based
	Total    int    `json:"total,omitempty"`
}

// BulkOperation is a price adjustment applied to every product
type BulkOperation string

const (
	BulkAdd        BulkOperation = "ADD"
	BulkSubtract   BulkOperation = "SUBTRACT"
	BulkPercentage BulkOperation = "PERCENTAGE"
)

// ParseBulkOperation parses an operation name case-insensitively
func ParseBulkOperation(s string) (BulkOperation, error) {
	switch op := BulkOperation(strings.ToUpper(strings.TrimSpace(s))); op {
	case BulkAdd, BulkSubtract, BulkPercentage:
		return op, nil
	default:
		return "", fmt.Errorf("invalid operation %q. Must be 'add', 'subtract', or 'percentage'", s)
	}
}
