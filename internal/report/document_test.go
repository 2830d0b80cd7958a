package report

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ledongthuc/pdf"
)

func pngChart(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 40, G: 90, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestRenderDocument(t *testing.T) {
	r := &Renderer{Compress: false}
	charts := ChartsFromMap(map[string]string{
		"Sales by Region": pngChart(t),
		"Broken":          "not base64 at all!",
	})
	if charts[0].Title != "Broken" {
		t.Fatalf("charts not sorted: %+v", charts)
	}

	out, err := r.RenderDocument("Dashboard Report", charts, Summary{TotalSales: 1234567, TotalRevenue: 98765})
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}

	for _, want := range []string{
		"(Dashboard Report)",
		"(Total Sales)",
		"(1,234,567)",
		"($98,765)",
		"(Sales by Region)",
		"(Broken)",
		"(" + chartPlaceholder + ")",
	} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("document missing %s", want)
		}
	}
	if n := bytes.Count(out, []byte("/Subtype /Image")); n != 1 {
		t.Errorf("embedded %d images, want 1", n)
	}

	reader, err := pdf.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("parse pdf: %v", err)
	}
	if reader.NumPage() < 1 {
		t.Fatal("document has no pages")
	}
}

func TestRenderDocumentNoCharts(t *testing.T) {
	out, err := NewRenderer().RenderDocument("Scheduled Dashboard Report", nil, Summary{})
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	reader, err := pdf.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("parse pdf: %v", err)
	}
	if reader.NumPage() != 1 {
		t.Fatalf("pages = %d, want 1", reader.NumPage())
	}
}

func TestDecodeChartRejectsNonImage(t *testing.T) {
	r := &Renderer{}
	text := base64.StdEncoding.EncodeToString([]byte("hello, plain text"))
	out, err := r.RenderDocument("x", []Chart{{Title: "t", Data: text}}, Summary{})
	if err != nil {
		t.Fatalf("RenderDocument: %v", err)
	}
	if bytes.Contains(out, []byte("/Subtype /Image")) {
		t.Fatal("non-image payload was embedded")
	}
}
