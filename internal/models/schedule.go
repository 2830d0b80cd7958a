package models

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the recurrence of a scheduled report. Only weekly is implemented.
type Frequency string

const (
	FrequencyWeekly Frequency = "weekly"
)

// ParseFrequency maps user input to a Frequency. Empty input means weekly.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case "", FrequencyWeekly:
		return FrequencyWeekly, nil
	default:
		return "", fmt.Errorf("unsupported frequency: %q", s)
	}
}

// Interval returns the time between two runs.
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// ScheduledReportRequest is a persisted request to email a filtered report on a
// recurring basis. NextRunAt is advisory; the job runner owns the real timer.
type ScheduledReportRequest struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	OwnerEmail  string     `gorm:"index;not null" json:"owner_email"`
	TargetEmail string     `gorm:"not null" json:"target_email"`
	Region      *string    `json:"region"`
	Product     *string    `json:"product"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Frequency   Frequency  `gorm:"not null;default:weekly" json:"frequency"`
	NextRunAt   *time.Time `json:"next_run_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (ScheduledReportRequest) TableName() string {
	return "scheduled_report_requests"
}
