// Package export renders the catalog as a PDF price list or as data files.
package export

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var guarani = message.NewPrinter(language.Spanish)

// FormatPYG formats an amount of guaraníes without decimals, e.g. "Gs. 120.000"
func FormatPYG(value int64) string {
	return guarani.Sprintf("Gs. %d", value)
}
