package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/salesdash/internal/models"
)

type ProductSales struct {
	Product string `json:"product"`
	Sales   int64  `json:"sales"`
}

type RegionSales struct {
	Region string `json:"region"`
	Sales  int64  `json:"sales"`
}

type DailySales struct {
	Date  string `json:"date"`
	Sales int64  `json:"sales"`
}

// Summary holds the aggregates of a filtered row set. Groups are sorted by key.
type Summary struct {
	TotalSales     int64          `json:"total_sales"`
	TotalRevenue   int64          `json:"total_revenue"`
	SalesByProduct []ProductSales `json:"sales_by_product"`
	SalesByRegion  []RegionSales  `json:"sales_by_region"`
	DailySales     []DailySales   `json:"daily_sales"`
}

// Report is a summary plus the rows it was computed from, sorted by date.
type Report struct {
	Summary
	Rows []models.SalesRecord `json:"table_data"`
}

type Builder struct {
	source DataSource
}

func NewBuilder(source DataSource) *Builder {
	return &Builder{source: source}
}

// Records returns the unfiltered dataset.
func (b *Builder) Records(ctx context.Context) ([]models.SalesRecord, error) {
	rows, err := b.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales data: %w", err)
	}
	return rows, nil
}

// Rows returns the filtered dataset sorted by date.
func (b *Builder) Rows(ctx context.Context, filter Filter) ([]models.SalesRecord, error) {
	rows, err := b.Records(ctx)
	if err != nil {
		return nil, err
	}
	rows = filter.Apply(rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows, nil
}

// BuildReport reloads the dataset and aggregates the rows matching filter.
func (b *Builder) BuildReport(ctx context.Context, filter Filter) (*Report, error) {
	rows, err := b.Rows(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Report{
		Summary: Aggregate(rows),
		Rows:    rows,
	}, nil
}

// Aggregate computes totals and per-product, per-region and per-day sales.
func Aggregate(rows []models.SalesRecord) Summary {
	var revenue float64
	summary := Summary{
		SalesByProduct: make([]ProductSales, 0),
		SalesByRegion:  make([]RegionSales, 0),
		DailySales:     make([]DailySales, 0),
	}

	byProduct := make(map[string]int64)
	byRegion := make(map[string]int64)
	byDay := make(map[string]int64)

	for _, r := range rows {
		summary.TotalSales += r.Sales
		revenue += r.Revenue
		byProduct[r.Product] += r.Sales
		byRegion[r.Region] += r.Sales
		byDay[r.Date.Format(models.DateLayout)] += r.Sales
	}
	summary.TotalRevenue = int64(revenue)

	for _, k := range sortedKeys(byProduct) {
		summary.SalesByProduct = append(summary.SalesByProduct, ProductSales{Product: k, Sales: byProduct[k]})
	}
	for _, k := range sortedKeys(byRegion) {
		summary.SalesByRegion = append(summary.SalesByRegion, RegionSales{Region: k, Sales: byRegion[k]})
	}
	// ISO dates sort chronologically as strings
	for _, k := range sortedKeys(byDay) {
		summary.DailySales = append(summary.DailySales, DailySales{Date: k, Sales: byDay[k]})
	}

	return summary
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
