package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/salesdash/internal/models"
)

var ErrInvalidFilter = errors.New("invalid filter")

// Filter narrows the rows a report is built from. Zero fields do not filter.
type Filter struct {
	Region    string
	Product   string
	StartDate *time.Time
	EndDate   *time.Time
}

// ParseFilter builds a Filter from raw request values.
func ParseFilter(region, product, startDate, endDate string) (Filter, error) {
	f := Filter{
		Region:  strings.TrimSpace(region),
		Product: strings.TrimSpace(product),
	}

	var err error
	if f.StartDate, err = ParseDate(startDate); err != nil {
		return Filter{}, fmt.Errorf("%w: start_date: %v", ErrInvalidFilter, err)
	}
	if f.EndDate, err = ParseDate(endDate); err != nil {
		return Filter{}, fmt.Errorf("%w: end_date: %v", ErrInvalidFilter, err)
	}
	return f, nil
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the calendar date in UTC.
// Any time of day is dropped. Empty input returns nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{models.DateLayout, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			d := truncateDay(t)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", s)
}

// Matches reports whether r passes every set field of f.
func (f Filter) Matches(r models.SalesRecord) bool {
	if f.Region != "" && !strings.EqualFold(r.Region, f.Region) {
		return false
	}
	if f.Product != "" && !strings.EqualFold(r.Product, f.Product) {
		return false
	}
	day := truncateDay(r.Date)
	if f.StartDate != nil && day.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && day.After(*f.EndDate) {
		return false
	}
	return true
}

// Apply returns the matching rows in their original order.
func (f Filter) Apply(rows []models.SalesRecord) []models.SalesRecord {
	out := make([]models.SalesRecord, 0, len(rows))
	for _, r := range rows {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Key is a stable identifier of the filter, used for caching.
func (f Filter) Key() string {
	return strings.Join([]string{
		strings.ToLower(f.Region),
		strings.ToLower(f.Product),
		formatDate(f.StartDate),
		formatDate(f.EndDate),
	}, "|")
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(models.DateLayout)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
