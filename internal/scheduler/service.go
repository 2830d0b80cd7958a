package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/salesdash/internal/models"
	"github.com/salesdash/internal/notify"
	"github.com/salesdash/internal/report"
	"gorm.io/gorm"
)

const (
	ReportTitle    = "Scheduled Dashboard Report"
	reportBody     = "Attached is your scheduled report."
	reportFilename = "scheduled_report.pdf"

	defaultFirstFireDelay = 10 * time.Second

	// notifyTimeout bounds the failure alert, which may outlive the run's own deadline.
	notifyTimeout = 10 * time.Second
)

var (
	ErrMissingTargetEmail = errors.New("target_email required")
	ErrInvalidInput       = errors.New("invalid schedule request")
)

type ReportBuilder interface {
	BuildReport(ctx context.Context, filter report.Filter) (*report.Report, error)
}

type DocumentRenderer interface {
	RenderDocument(title string, charts []report.Chart, summary report.Summary) ([]byte, error)
}

type Mailer interface {
	Send(ctx context.Context, msg notify.Message) error
}

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, scheduleID uint, target string, err error) error
}

type Archive interface {
	Store(ctx context.Context, scheduleID uint, runID string, at time.Time, pdf []byte) (string, error)
}

type Options struct {
	// FirstFireDelay is the wait before a new schedule runs for the first time.
	FirstFireDelay time.Duration
	// Interval overrides the frequency interval when set.
	Interval         time.Duration
	MaxConcurrent    int
	ExecutionTimeout time.Duration

	Notifier   FailureNotifier
	Archive    Archive
	Registerer prometheus.Registerer
	Logger     zerolog.Logger
}

// CreateRequest carries the raw values of a new schedule. Dates are YYYY-MM-DD.
type CreateRequest struct {
	OwnerEmail  string
	TargetEmail string
	Region      string
	Product     string
	StartDate   string
	EndDate     string
	Frequency   string
}

// Service owns the scheduled report lifecycle: persistence, job registration,
// recovery after restart, and per-fire execution.
type Service struct {
	db       *gorm.DB
	builder  ReportBuilder
	renderer DocumentRenderer
	mailer   Mailer
	notifier FailureNotifier
	archive  Archive
	runner   *Runner
	metrics  *Metrics
	logger   zerolog.Logger
	opts     Options
	now      func() time.Time
}

func NewService(db *gorm.DB, builder ReportBuilder, renderer DocumentRenderer, mailer Mailer, opts Options) *Service {
	if opts.FirstFireDelay <= 0 {
		opts.FirstFireDelay = defaultFirstFireDelay
	}
	s := &Service{
		db:       db,
		builder:  builder,
		renderer: renderer,
		mailer:   mailer,
		notifier: opts.Notifier,
		archive:  opts.Archive,
		metrics:  NewMetrics(opts.Registerer),
		logger:   opts.Logger,
		opts:     opts,
		now:      time.Now,
	}
	s.runner = NewRunner(s.ExecuteJob, opts.MaxConcurrent, opts.ExecutionTimeout, opts.Logger)
	return s
}

func (s *Service) Runner() *Runner {
	return s.runner
}

func (s *Service) Start(ctx context.Context) {
	s.runner.Start(ctx)
}

func (s *Service) Stop() {
	s.runner.Stop()
}

// CreateSchedule validates and persists a request, then registers its job.
func (s *Service) CreateSchedule(ctx context.Context, req CreateRequest) (uint, error) {
	target := strings.TrimSpace(req.TargetEmail)
	if target == "" {
		return 0, ErrMissingTargetEmail
	}
	freq, err := models.ParseFrequency(req.Frequency)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	filter, err := report.ParseFilter(req.Region, req.Product, req.StartDate, req.EndDate)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now()
	nextRun := now.Add(freq.Interval())
	row := models.ScheduledReportRequest{
		OwnerEmail:  req.OwnerEmail,
		TargetEmail: target,
		Region:      optional(filter.Region),
		Product:     optional(filter.Product),
		StartDate:   filter.StartDate,
		EndDate:     filter.EndDate,
		Frequency:   freq,
		NextRunAt:   &nextRun,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to save schedule: %w", err)
	}

	s.register(row, now.Add(s.opts.FirstFireDelay))
	s.logger.Info().
		Uint("schedule_id", row.ID).
		Str("owner", row.OwnerEmail).
		Str("target", row.TargetEmail).
		Msg("schedule created")
	return row.ID, nil
}

// ListSchedules returns the schedules owned by ownerEmail.
func (s *Service) ListSchedules(ctx context.Context, ownerEmail string) ([]models.ScheduledReportRequest, error) {
	rows := make([]models.ScheduledReportRequest, 0)
	if err := s.db.WithContext(ctx).
		Where("owner_email = ?", ownerEmail).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return rows, nil
}

// RecoverOnStartup registers a job for every persisted schedule that has none.
// It returns the number of jobs registered.
func (s *Service) RecoverOnStartup(ctx context.Context) (int, error) {
	var rows []models.ScheduledReportRequest
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to load schedules: %w", err)
	}

	now := s.now()
	registered := 0
	for _, row := range rows {
		if s.runner.Has(row.ID) {
			continue
		}
		first := now.Add(s.opts.FirstFireDelay)
		if row.NextRunAt != nil && row.NextRunAt.After(now) {
			first = *row.NextRunAt
		}
		if s.register(row, first) {
			registered++
		}
	}

	s.logger.Info().Int("registered", registered).Int("persisted", len(rows)).Msg("schedules recovered")
	return registered, nil
}

func (s *Service) register(row models.ScheduledReportRequest, firstFire time.Time) bool {
	interval := s.opts.Interval
	if interval <= 0 {
		interval = row.Frequency.Interval()
	}
	if interval <= 0 {
		interval = models.FrequencyWeekly.Interval()
	}

	ok := s.runner.Register(jobFor(row), firstFire, interval)
	s.metrics.Jobs.Set(float64(s.runner.Len()))
	return ok
}

// ExecuteJob builds, renders and emails one scheduled report. Failures are logged
// and counted; they never unregister the job.
func (s *Service) ExecuteJob(ctx context.Context, job Job) {
	runID := uuid.NewString()
	logger := s.logger.With().
		Str("run_id", runID).
		Uint("schedule_id", job.RequestID).
		Logger()

	start := time.Now()
	err := s.run(ctx, job, runID, logger)
	s.metrics.Duration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.Runs.WithLabelValues(resultFailure).Inc()
		logger.Error().Err(err).Str("target", job.TargetEmail).Msg("scheduled report failed")
		if s.notifier != nil {
			nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
			if nerr := s.notifier.NotifyFailure(nctx, job.RequestID, job.TargetEmail, err); nerr != nil {
				logger.Warn().Err(nerr).Msg("failed to send failure notification")
			}
			cancel()
		}
		return
	}

	s.metrics.Runs.WithLabelValues(resultSuccess).Inc()
	logger.Info().Str("target", job.TargetEmail).Dur("took", time.Since(start)).Msg("scheduled report sent")
}

func (s *Service) run(ctx context.Context, job Job, runID string, logger zerolog.Logger) error {
	filter := report.Filter{
		Region:    job.Region,
		Product:   job.Product,
		StartDate: job.StartDate,
		EndDate:   job.EndDate,
	}
	rep, err := s.builder.BuildReport(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	pdf, err := s.renderer.RenderDocument(ReportTitle, nil, rep.Summary)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if s.archive != nil {
		if key, err := s.archive.Store(ctx, job.RequestID, runID, s.now(), pdf); err != nil {
			logger.Warn().Err(err).Msg("failed to archive report")
		} else {
			logger.Debug().Str("key", key).Msg("report archived")
		}
	}

	if err := s.mailer.Send(ctx, notify.Message{
		To:         job.TargetEmail,
		Subject:    ReportTitle,
		Body:       reportBody,
		Attachment: pdf,
		Filename:   reportFilename,
	}); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	return nil
}

func jobFor(row models.ScheduledReportRequest) Job {
	return Job{
		RequestID:   row.ID,
		TargetEmail: row.TargetEmail,
		Region:      deref(row.Region),
		Product:     deref(row.Product),
		StartDate:   row.StartDate,
		EndDate:     row.EndDate,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
