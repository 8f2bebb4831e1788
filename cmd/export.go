package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/pricer/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the saved catalog",
		Long: `Writes the catalog as the printable PDF price list, or as YAML or Parquet
for spreadsheets and analytics. Use -o - to write to stdout.`,
		Example: `  # Write Catalogo_Lattafa_PYG_Fotos.pdf to the current directory
  pricer export

  # Parquet rows for analysis
  pricer export --format parquet -o precios.parquet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			var write func(io.Writer) error
			switch format {
			case "pdf":
				if output == "" {
					output = export.FileName
				}
				write = func(w io.Writer) error {
					return export.PDF(w, store.Products(), export.DefaultPDFOptions())
				}
			case "yaml":
				write = func(w io.Writer) error {
					return export.YAML(w, store.FileName(), store.Products())
				}
			case "parquet":
				if output == "" {
					output = "catalog.parquet"
				}
				write = func(w io.Writer) error {
					return export.Parquet(w, store.Products())
				}
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}

			if output == "" || output == "-" {
				return write(cmd.OutOrStdout())
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := write(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			slog.Info("Catalog exported", "format", format, "path", output, "products", store.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "pdf", "Export format (pdf, yaml, parquet)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default depends on format, - for stdout)")

	return cmd
}
