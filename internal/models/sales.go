package models

import (
	"encoding/json"
	"time"
)

const DateLayout = "2006-01-02"

// SalesRecord is one row of the external sales dataset.
type SalesRecord struct {
	Date    time.Time
	Region  string
	Product string
	Sales   int64
	Revenue float64
}

type salesRecordJSON struct {
	Date    string  `json:"date"`
	Region  string  `json:"region"`
	Product string  `json:"product"`
	Sales   int64   `json:"sales"`
	Revenue float64 `json:"revenue"`
}

func (r SalesRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(salesRecordJSON{
		Date:    r.Date.Format(DateLayout),
		Region:  r.Region,
		Product: r.Product,
		Sales:   r.Sales,
		Revenue: r.Revenue,
	})
}

func (r *SalesRecord) UnmarshalJSON(data []byte) error {
	var raw salesRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return err
	}
	*r = SalesRecord{
		Date:    date,
		Region:  raw.Region,
		Product: raw.Product,
		Sales:   raw.Sales,
		Revenue: raw.Revenue,
	}
	return nil
}
