package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/salesdash/internal/models"
)

var csvHeader = []string{"date", "region", "product", "sales", "revenue"}

// DataSource loads the raw sales dataset.
type DataSource interface {
	Load(ctx context.Context) ([]models.SalesRecord, error)
}

// CSVSource reads the dataset from a CSV file on every call.
type CSVSource struct {
	Path string
}

func (s CSVSource) Load(ctx context.Context) ([]models.SalesRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// StaticSource serves a fixed set of rows.
type StaticSource []models.SalesRecord

func (s StaticSource) Load(ctx context.Context) ([]models.SalesRecord, error) {
	out := make([]models.SalesRecord, len(s))
	copy(out, s)
	return out, ctx.Err()
}

// ReadCSV parses rows with a date,region,product,sales,revenue header. Columns may
// appear in any order.
func ReadCSV(r io.Reader) ([]models.SalesRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return []models.SalesRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	rows := make([]models.SalesRecord, 0)
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		row, err := parseRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range csvHeader {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}

func parseRecord(rec []string, cols map[string]int) (models.SalesRecord, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	date, err := parseRecordDate(field("date"))
	if err != nil {
		return models.SalesRecord{}, err
	}
	sales, err := parseSales(field("sales"))
	if err != nil {
		return models.SalesRecord{}, err
	}
	revenue, err := strconv.ParseFloat(field("revenue"), 64)
	if err != nil {
		return models.SalesRecord{}, fmt.Errorf("invalid revenue %q", field("revenue"))
	}

	return models.SalesRecord{
		Date:    date,
		Region:  field("region"),
		Product: field("product"),
		Sales:   sales,
		Revenue: revenue,
	}, nil
}

func parseRecordDate(s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, fmt.Errorf("missing date")
	}
	return *t, nil
}

// parseSales accepts integers, and floats with no fractional part ("10.0").
func parseSales(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("invalid sales %q", s)
	}
	return int64(f), nil
}
