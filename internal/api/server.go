package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/salesdash/internal/auth"
	"github.com/salesdash/internal/logging"
	"github.com/salesdash/internal/models"
	"github.com/salesdash/internal/report"
	"github.com/salesdash/internal/scheduler"
)

const (
	excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	documentTitle    = "Dashboard Report"
)

type Accounts interface {
	auth.Authenticator
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type Reports interface {
	Records(ctx context.Context) ([]models.SalesRecord, error)
	Rows(ctx context.Context, filter report.Filter) ([]models.SalesRecord, error)
	BuildReport(ctx context.Context, filter report.Filter) (*report.Report, error)
}

type Schedules interface {
	CreateSchedule(ctx context.Context, req scheduler.CreateRequest) (uint, error)
	ListSchedules(ctx context.Context, ownerEmail string) ([]models.ScheduledReportRequest, error)
}

type Config struct {
	CORSOrigins []string
	// Cache may be nil.
	Cache    *report.StatsCache
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

type Server struct {
	accounts  Accounts
	reports   Reports
	renderer  scheduler.DocumentRenderer
	schedules Schedules
	cache     *report.StatsCache
	logger    zerolog.Logger
	router    *gin.Engine
	handler   http.Handler
}

func NewServer(accounts Accounts, reports Reports, renderer scheduler.DocumentRenderer, schedules Schedules, cfg Config) *Server {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(gin.Recovery(), logging.GinMiddleware(cfg.Logger))

	server := &Server{
		accounts:  accounts,
		reports:   reports,
		renderer:  renderer,
		schedules: schedules,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
		router:    router,
	}
	server.setupRoutes(gatherer)

	server.handler = cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	})(router)
	return server
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/", s.home)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	api.POST("/register", s.register)
	api.POST("/login", s.login)

	api.GET("/data", s.data)
	api.GET("/stats", s.stats)
	api.GET("/export/csv", s.exportCSV)
	api.GET("/export/excel", s.exportExcel)
	api.POST("/export/pdf", s.exportPDF)

	protected := api.Group("")
	protected.Use(auth.RequireAuth(s.accounts))
	protected.POST("/schedule-email", s.createSchedule)
	protected.GET("/schedules", s.listSchedules)
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Dashboard API is running"})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	if !s.bindOptionalJSON(c, &req) {
		return
	}
	token, err := s.accounts.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "registered", "token": token})
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if !s.bindOptionalJSON(c, &req) {
		return
	}
	token, err := s.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged_in", "token": token})
}

func (s *Server) data(c *gin.Context) {
	rows, err := s.reports.Records(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) stats(c *gin.Context) {
	filter, ok := s.queryFilter(c)
	if !ok {
		return
	}
	rep, err := s.cache.Report(c.Request.Context(), filter, s.reports.BuildReport)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) exportCSV(c *gin.Context) {
	s.export(c, "dashboard_data.csv", "text/csv", report.WriteCSV)
}

func (s *Server) exportExcel(c *gin.Context) {
	s.export(c, "dashboard_data.xlsx", excelContentType, report.WriteExcel)
}

func (s *Server) export(c *gin.Context, filename, contentType string, write func(io.Writer, []models.SalesRecord) error) {
	filter, ok := s.queryFilter(c)
	if !ok {
		return
	}
	rows, err := s.reports.Rows(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, rows); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

type pdfRequest struct {
	Charts  map[string]string `json:"charts"`
	Summary struct {
		TotalSales   float64 `json:"total_sales"`
		TotalRevenue float64 `json:"total_revenue"`
	} `json:"summary"`
}

func (s *Server) exportPDF(c *gin.Context) {
	var req pdfRequest
	if !s.bindOptionalJSON(c, &req) {
		return
	}
	summary := report.Summary{
		TotalSales:   int64(req.Summary.TotalSales),
		TotalRevenue: int64(req.Summary.TotalRevenue),
	}
	doc, err := s.renderer.RenderDocument(documentTitle, report.ChartsFromMap(req.Charts), summary)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="dashboard_report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}

type scheduleRequest struct {
	TargetEmail string `json:"target_email"`
	Region      string `json:"region"`
	Product     string `json:"product"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Freq        string `json:"freq"`
}

func (s *Server) createSchedule(c *gin.Context) {
	var req scheduleRequest
	if !s.bindOptionalJSON(c, &req) {
		return
	}
	id, err := s.schedules.CreateSchedule(c.Request.Context(), scheduler.CreateRequest{
		OwnerEmail:  auth.CallerEmail(c),
		TargetEmail: req.TargetEmail,
		Region:      req.Region,
		Product:     req.Product,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Frequency:   req.Freq,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "scheduled", "id": id})
}

func (s *Server) listSchedules(c *gin.Context) {
	rows, err := s.schedules.ListSchedules(c.Request.Context(), auth.CallerEmail(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": rows})
}

func (s *Server) queryFilter(c *gin.Context) (report.Filter, bool) {
	filter, err := report.ParseFilter(c.Query("region"), c.Query("product"), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		s.fail(c, err)
		return report.Filter{}, false
	}
	return filter, true
}

// bindOptionalJSON treats an empty body as an empty object.
func (s *Server) bindOptionalJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, auth.ErrDuplicateEmail),
		errors.Is(err, scheduler.ErrMissingTargetEmail),
		errors.Is(err, scheduler.ErrInvalidInput),
		errors.Is(err, report.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
