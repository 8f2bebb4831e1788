package cmd

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/pricer/internal/catalog"
	"github.com/lehigh-university-libraries/pricer/internal/images"
	"github.com/lehigh-university-libraries/pricer/internal/models"
	"github.com/spf13/cobra"
)

func newAdjustCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "adjust <add|subtract|percentage> <amount>",
		Short: "Apply a bulk price adjustment to every product",
		Long: `Adjusts the final price of every product in the catalog.

  add         price + amount
  subtract    price - amount, never below zero
  percentage  price * (1 + amount/100)

Results are rounded to the nearest guaraní.`,
		Example: `  # Raise every price by 10%
  pricer adjust percentage 10

  # Add Gs. 5.000 to every price
  pricer adjust add 5000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := models.ParseBulkOperation(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			if err := catalog.ValidateAmount(amount); err != nil {
				return err
			}

			store, closeStore, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			store.BulkAdjust(op, amount)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d products\n", store.Len())
			return nil
		},
	}
}

func newSetPriceCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-price <id> <price>",
		Short: "Set the final price of one product",
		Long: `Sets the final price of one product in guaraníes. Grouped digits such
as 120.000 are accepted.`,
		Example: `  pricer set-price prod-0b6c... 135.000`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := strconv.ParseInt(strings.ReplaceAll(args[1], ".", ""), 10, 64)
			if err != nil || price < 0 {
				return fmt.Errorf("invalid price %q: must be a non-negative integer", args[1])
			}

			store, closeStore, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			return store.SetPrice(args[0], price)
		},
	}
}

func newSetImageCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-image <id> <image-file-or-url>",
		Short: "Replace the photo of one product",
		Long: `Replaces a product photo. The image (JPEG, PNG, GIF or WebP) is read from
a local file or downloaded from an http(s) URL, then center cropped and scaled
to a 300x300 JPEG thumbnail.`,
		Example: `  pricer set-image prod-0b6c... ./asad.png
  pricer set-image prod-0b6c... https://example.com/asad.jpg`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := images.NewFetcher().Fetch(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			thumbnail := images.Standardize(data)
			if thumbnail == nil {
				return fmt.Errorf("unable to decode image %s", args[1])
			}

			store, closeStore, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			return store.SetImage(args[0], thumbnail)
		},
	}
}

func newRemoveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove one product from the catalog",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			return store.Remove(args[0])
		},
	}
}

func newClearCmd(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole saved catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Fprint(cmd.OutOrStdout(), "¿Estás seguro de querer borrar toda la lista guardada? [y/N] ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				switch strings.ToLower(strings.TrimSpace(answer)) {
				case "y", "yes", "s", "si", "sí":
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			store, closeStore, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			store.Clear()
			fmt.Fprintln(cmd.OutOrStdout(), "Catalog cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
