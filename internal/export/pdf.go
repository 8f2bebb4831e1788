package export

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/lehigh-university-libraries/pricer/internal/models"
)

// FileName is the name offered for the downloaded price list
const FileName = "Catalogo_Lattafa_PYG_Fotos.pdf"

// PDFOptions controls the generated price list
type PDFOptions struct {
	Title    string
	Compress bool
	Now      func() time.Time
}

// DefaultPDFOptions returns the options used for downloads
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		Title:    "Catálogo de Precios Actualizado",
		Compress: true,
		Now:      time.Now,
	}
}

// Table geometry in millimetres
const (
	marginLeft   = 14.0
	marginTop    = 14.0
	marginBottom = 14.0
	headerHeight = 10.0
	rowHeight    = 25.0
	photoWidth   = 25.0
	nameWidth    = 87.0
	priceWidth   = 35.0
	photoSize    = 20.0
	photoPadding = 2.0
	lineHeight   = 5.0
	maxNameLines = 4
)

var headers = []struct {
	title string
	width float64
}{
	{"Foto", photoWidth},
	{"Producto", nameWidth},
	{"Precio Base", priceWidth},
	{"Precio Final", priceWidth},
}

var latin = encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())

// tr converts UTF-8 text to the code page of the core PDF fonts
func tr(s string) string {
	out, err := latin.String(s)
	if err != nil {
		return s
	}
	return out
}

// PDF writes products as a price table with one row per product, in order.
// A photo that cannot be embedded is logged and its row rendered without it.
func PDF(w io.Writer, products []models.Product, opts PDFOptions) error {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(opts.Compress)
	pdf.SetTitle(opts.Title, true)
	pdf.SetCreator("pricer", true)
	pdf.SetMargins(marginLeft, marginTop, marginLeft)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 18)
	pdf.Text(marginLeft, 20, tr(opts.Title))
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(marginLeft, 30, tr("Generado: "+opts.Now().Format("2/1/2006")))

	pdf.SetY(35)
	drawHeader(pdf)

	_, pageHeight := pdf.GetPageSize()
	for i, p := range products {
		if pdf.GetY()+rowHeight > pageHeight-marginBottom {
			pdf.AddPage()
			drawHeader(pdf)
		}
		drawRow(pdf, i, p)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build PDF: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}

func drawHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(15, 23, 42)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetX(marginLeft)
	for _, h := range headers {
		pdf.CellFormat(h.width, headerHeight, tr(h.title), "1", 0, "CM", true, 0, "")
	}
	pdf.Ln(headerHeight)
	pdf.SetTextColor(0, 0, 0)
}

func drawRow(pdf *fpdf.Fpdf, index int, p models.Product) {
	x, y := marginLeft, pdf.GetY()

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(x, y)
	pdf.CellFormat(photoWidth, rowHeight, "", "1", 0, "", false, 0, "")
	pdf.CellFormat(nameWidth, rowHeight, "", "1", 0, "", false, 0, "")
	pdf.CellFormat(priceWidth, rowHeight, tr(FormatPYG(p.OriginalPrice)), "1", 0, "RM", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(priceWidth, rowHeight, tr(FormatPYG(p.UpdatedPrice)), "1", 0, "RM", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	lines := pdf.SplitText(tr(p.Name), nameWidth-2*photoPadding)
	if len(lines) > maxNameLines {
		lines = lines[:maxNameLines]
	}
	top := y + (rowHeight-float64(len(lines))*lineHeight)/2
	for i, line := range lines {
		pdf.SetXY(x+photoWidth+photoPadding, top+float64(i)*lineHeight)
		pdf.CellFormat(nameWidth-2*photoPadding, lineHeight, line, "", 0, "LM", false, 0, "")
	}

	if p.HasImage() {
		drawPhoto(pdf, index, p, x+photoPadding, y+photoPadding)
	}

	pdf.SetXY(x, y+rowHeight)
}

func drawPhoto(pdf *fpdf.Fpdf, index int, p models.Product, x, y float64) {
	imageType, err := detectImageType(p.Image)
	if err != nil {
		slog.Error("Error adding image to PDF", "product", p.ID, "err", err)
		return
	}

	name := fmt.Sprintf("photo%d", index)
	opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.Image))
	if pdf.Err() {
		slog.Error("Error adding image to PDF", "product", p.ID, "err", pdf.Error())
		pdf.ClearError()
		return
	}
	pdf.ImageOptions(name, x, y, photoSize, photoSize, false, opts, 0, "")
}

// detectImageType figures out whether the data is PNG, JPEG, etc.
func detectImageType(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image config: %w", err)
	}
	return strings.ToUpper(format), nil
}
