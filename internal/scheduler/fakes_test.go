package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/salesdash/internal/database"
	"github.com/salesdash/internal/models"
	"github.com/salesdash/internal/notify"
	"github.com/salesdash/internal/report"
	"gorm.io/gorm"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	fail int // number of leading sends that fail
}

func (m *fakeMailer) Send(ctx context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if len(m.sent) <= m.fail {
		return &notify.TransportError{Err: errors.New("connection refused")}
	}
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) last() notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type recordingBuilder struct {
	inner   ReportBuilder
	mu      sync.Mutex
	filters []report.Filter
}

func (b *recordingBuilder) BuildReport(ctx context.Context, f report.Filter) (*report.Report, error) {
	b.mu.Lock()
	b.filters = append(b.filters, f)
	b.mu.Unlock()
	return b.inner.BuildReport(ctx, f)
}

type fakeNotifier struct {
	mu      sync.Mutex
	calls   []uint
	ctxErrs []error
}

func (n *fakeNotifier) NotifyFailure(ctx context.Context, id uint, target string, err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, id)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return nil
}

func (n *fakeNotifier) notified(id uint) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, c := range n.calls {
		if c == id {
			return true
		}
	}
	return false
}

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
}

func (a *fakeArchive) Store(ctx context.Context, id uint, runID string, at time.Time, pdf []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, runID)
	return runID, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "schedules.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

func salesRows() report.StaticSource {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return report.StaticSource{
		{Date: d1, Region: "east", Product: "widget", Sales: 10, Revenue: 100},
		{Date: d2, Region: "west", Product: "gadget", Sales: 5, Revenue: 50},
	}
}

type fixture struct {
	db       *gorm.DB
	service  *Service
	mailer   *fakeMailer
	builder  *recordingBuilder
	notifier *fakeNotifier
	archive  *fakeArchive
}

func newFixture(t *testing.T, db *gorm.DB, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		db:       db,
		mailer:   &fakeMailer{},
		builder:  &recordingBuilder{inner: report.NewBuilder(salesRows())},
		notifier: &fakeNotifier{},
		archive:  &fakeArchive{},
	}
	opts.Notifier = f.notifier
	opts.Archive = f.archive
	opts.Registerer = prometheus.NewRegistry()
	opts.Logger = zerolog.Nop()
	f.service = NewService(db, f.builder, report.NewRenderer(), f.mailer, opts)
	t.Cleanup(f.service.Stop)
	return f
}

func countRows(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.ScheduledReportRequest{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
