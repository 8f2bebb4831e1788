package export

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/pricer/internal/models"
)

// Row is one product as written to data exports; photos are left out
type Row struct {
	ID            string `yaml:"id" parquet:"id"`
	Name          string `yaml:"name" parquet:"name"`
	OriginalPrice int64  `yaml:"originalprice" parquet:"original_price"`
	UpdatedPrice  int64  `yaml:"updatedprice" parquet:"updated_price"`
	HasImage      bool   `yaml:"hasimage" parquet:"has_image"`
}

// Listing is the YAML document written by YAML
type Listing struct {
	FileName string `yaml:"filename,omitempty"`
	Count    int    `yaml:"count"`
	Products []Row  `yaml:"products"`
}

// Rows flattens products in catalog order
func Rows(products []models.Product) []Row {
	rows := make([]Row, 0, len(products))
	for _, p := range products {
		rows = append(rows, Row{
			ID:            p.ID,
			Name:          p.Name,
			OriginalPrice: p.OriginalPrice,
			UpdatedPrice:  p.UpdatedPrice,
			HasImage:      p.HasImage(),
		})
	}
	return rows
}

// YAML writes the catalog listing as YAML
func YAML(w io.Writer, fileName string, products []models.Product) error {
	rows := Rows(products)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Listing{FileName: fileName, Count: len(rows), Products: rows}); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

// Parquet writes one row per product
func Parquet(w io.Writer, products []models.Product) error {
	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(Rows(products)); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
