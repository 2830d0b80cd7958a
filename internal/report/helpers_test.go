package report

import (
	"testing"
	"time"

	"github.com/salesdash/internal/models"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func sampleRows(t *testing.T) []models.SalesRecord {
	return []models.SalesRecord{
		{Date: day(t, "2024-01-03"), Region: "East", Product: "Gadget", Sales: 7, Revenue: 70.25},
		{Date: day(t, "2024-01-01"), Region: "east", Product: "widget", Sales: 10, Revenue: 100},
		{Date: day(t, "2024-01-02"), Region: "west", Product: "gadget", Sales: 5, Revenue: 50},
		{Date: day(t, "2024-01-02"), Region: "North", Product: "Widget", Sales: 3, Revenue: 31.5},
	}
}

func sameRows(t *testing.T, got, want []models.SalesRecord) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if !g.Date.Equal(w.Date) || g.Region != w.Region || g.Product != w.Product ||
			g.Sales != w.Sales || g.Revenue != w.Revenue {
			t.Errorf("row %d: got %+v, want %+v", i, g, w)
		}
	}
}
