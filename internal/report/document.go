package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jung-kurt/gofpdf"
)

const (
	chartWidth  = 147.3 // 5.8in
	chartHeight = 81.3  // 3.2in

	chartPlaceholder = "Could not embed chart image."
)

// Chart is a titled, base64 encoded image. A data URL prefix is allowed.
type Chart struct {
	Title string
	Data  string
}

// ChartsFromMap orders charts by title. Map order carries no meaning, so the
// request's key order is not preserved.
func ChartsFromMap(m map[string]string) []Chart {
	charts := make([]Chart, 0, len(m))
	for title, data := range m {
		charts = append(charts, Chart{Title: title, Data: data})
	}
	sort.Slice(charts, func(i, j int) bool {
		return charts[i].Title < charts[j].Title
	})
	return charts
}

// Renderer lays out report documents as A4 PDFs.
type Renderer struct {
	// Compress deflates page content streams.
	Compress bool
}

func NewRenderer() *Renderer {
	return &Renderer{Compress: true}
}

// RenderDocument writes the title, a two-row summary table and one section per chart.
// Charts that cannot be decoded are replaced by a short note.
func (r *Renderer) RenderDocument(title string, charts []Chart, summary Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "", 11)
	table := [][2]string{
		{"Total Sales", humanize.Comma(summary.TotalSales)},
		{"Total Revenue", "$" + humanize.Comma(summary.TotalRevenue)},
	}
	for i, row := range table {
		if i == 0 {
			pdf.SetFillColor(211, 211, 211)
		} else {
			pdf.SetFillColor(245, 245, 245)
		}
		pdf.CellFormat(63.5, 9, row[0], "1", 0, "L", true, 0, "")
		pdf.CellFormat(63.5, 9, row[1], "1", 1, "L", true, 0, "")
	}
	pdf.Ln(8)

	for i, chart := range charts {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(chart.Title), "", 1, "L", false, 0, "")
		pdf.Ln(2)

		if !embedChart(pdf, fmt.Sprintf("chart-%d", i), chart.Data) {
			pdf.SetFont("Helvetica", "I", 11)
			pdf.CellFormat(0, 8, chartPlaceholder, "", 1, "L", false, 0, "")
			pdf.Ln(5)
			continue
		}
		pdf.Ln(8)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func embedChart(pdf *gofpdf.Fpdf, name, payload string) bool {
	data, err := decodeChart(payload)
	if err != nil {
		return false
	}

	imageType := ""
	switch http.DetectContentType(data) {
	case "image/png":
		imageType = "PNG"
	case "image/jpeg":
		imageType = "JPG"
	case "image/gif":
		imageType = "GIF"
	default:
		return false
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return false
	}

	opt := gofpdf.ImageOptions{ImageType: imageType}
	info := pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(data))
	if info == nil || pdf.Err() {
		pdf.ClearError()
		return false
	}
	pdf.ImageOptions(name, pdf.GetX(), 0, chartWidth, chartHeight, true, opt, 0, "")
	if pdf.Err() {
		pdf.ClearError()
		return false
	}
	return true
}

func decodeChart(payload string) ([]byte, error) {
	if i := strings.Index(payload, ","); i >= 0 {
		payload = payload[i+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("empty chart payload")
	}
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(payload)
}
