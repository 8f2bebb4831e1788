package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/lehigh-university-libraries/pricer/internal/export"
	"github.com/spf13/cobra"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the saved catalog",
		Example: `  pricer list
  pricer list --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			products := store.Products()

			switch format {
			case "yaml":
				return export.YAML(out, store.FileName(), products)
			case "table":
				if len(products) == 0 {
					fmt.Fprintln(out, "Catalog is empty")
					return nil
				}
				fmt.Fprintf(out, "%s: %d products\n\n", store.FileName(), len(products))
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(tw, "ID\tProducto\tPrecio Base\tPrecio Final\tFoto\t")
				for _, p := range products {
					photo := "no"
					if p.HasImage() {
						photo = "si"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", p.ID, p.Name,
						export.FormatPYG(p.OriginalPrice), export.FormatPYG(p.UpdatedPrice), photo)
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, yaml)")

	return cmd
}
