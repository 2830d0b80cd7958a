package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/salesdash/internal/models"
	"github.com/salesdash/internal/report"
)

const DefaultBaseURL = "http://localhost:5000"

// Client talks to the dashboard HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Query holds the optional report filters. Dates are YYYY-MM-DD.
type Query struct {
	Region    string
	Product   string
	StartDate string
	EndDate   string
}

func (q Query) values() url.Values {
	v := url.Values{}
	for key, val := range map[string]string{
		"region":     q.Region,
		"product":    q.Product,
		"start_date": q.StartDate,
		"end_date":   q.EndDate,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}
	return v
}

type ScheduleRequest struct {
	TargetEmail string `json:"target_email"`
	Region      string `json:"region,omitempty"`
	Product     string `json:"product,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Freq        string `json:"freq,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	return c.authenticate(ctx, "/api/register", email, password)
}

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	return c.authenticate(ctx, "/api/login", email, password)
}

func (c *Client) authenticate(ctx context.Context, endpoint, email, password string) (string, error) {
	var resp tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

func (c *Client) Stats(ctx context.Context, q Query) (*report.Report, error) {
	var rep report.Report
	if err := c.do(ctx, http.MethodGet, "/api/stats?"+q.values().Encode(), nil, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func (c *Client) CreateSchedule(ctx context.Context, req ScheduleRequest) (uint, error) {
	var resp struct {
		ID uint `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/schedule-email", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *Client) ListSchedules(ctx context.Context) ([]models.ScheduledReportRequest, error) {
	var resp struct {
		Schedules []models.ScheduledReportRequest `json:"schedules"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/schedules", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Schedules, nil
}

// Export streams a csv or excel export to w.
func (c *Client) Export(ctx context.Context, format string, q Query, w io.Writer) error {
	switch format {
	case "csv", "excel":
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/export/"+format+"?"+q.values().Encode(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, data, v interface{}) error {
	var body io.Reader
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	resp, err := c.doRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return nil, &APIError{Status: resp.StatusCode, Message: errResp.Error}
		}
		return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	return resp, nil
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}
