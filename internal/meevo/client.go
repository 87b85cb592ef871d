package meevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/keepitcut/booking-api/internal/observability/metrics"
	"github.com/keepitcut/booking-api/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// ClientConfig holds the fixed tenant/location parameters for the Meevo
// public API.
type ClientConfig struct {
	APIURL     string
	TenantID   string
	LocationID string
	GenderCode string
	Timeout    time.Duration
}

// Client wraps the Meevo public API endpoints used by the booking flow.
type Client struct {
	httpClient *http.Client
	apiURL     string
	tenantID   string
	locationID string
	genderCode string
	tokens     *TokenSource
	logger     *logging.Logger
	metrics    *metrics.BookingMetrics
}

// NewClient constructs a Meevo API client.
func NewClient(cfg ClientConfig, tokens *TokenSource, logger *logging.Logger, m *metrics.BookingMetrics) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		tenantID:   cfg.TenantID,
		locationID: cfg.LocationID,
		genderCode: cfg.GenderCode,
		tokens:     tokens,
		logger:     logger,
		metrics:    m,
	}
}

// BookService issues one create-booking call and normalizes the result.
// A non-success response comes back as *APIError carrying the upstream
// message verbatim.
func (c *Client) BookService(ctx context.Context, p BookServiceParams) (*BookedService, error) {
	form := url.Values{}
	form.Set("ServiceId", p.ServiceID)
	form.Set("StartTime", p.StartTime)
	form.Set("ClientId", p.ClientID)
	form.Set("ClientGender", c.genderCode)
	if p.EmployeeID != "" {
		form.Set("EmployeeId", p.EmployeeID)
	}

	c.logger.Debug("booking service",
		"service_id", p.ServiceID,
		"start_time", p.StartTime,
		"client_id", p.ClientID,
	)

	var out struct {
		Data bookingPayload `json:"data"`
		bookingPayload
	}
	if err := c.do(ctx, "book_service", http.MethodPost, c.scopedURL("/book/service"), form, &out); err != nil {
		return nil, err
	}

	payload := out.Data
	if payload.AppointmentID == "" {
		payload = out.bookingPayload
	}
	if payload.AppointmentID == "" {
		return nil, fmt.Errorf("meevo: booking response missing appointment id")
	}

	booked := &BookedService{
		AppointmentID:        payload.AppointmentID,
		AppointmentServiceID: payload.AppointmentServiceID,
		StartTime:            payload.StartTime,
		EndTime:              payload.ServiceEndTime,
	}
	if booked.StartTime == "" {
		booked.StartTime = p.StartTime
	}
	return booked, nil
}

// ListClientAppointments returns the client's appointment history from the
// given start date (YYYY-MM-DD).
func (c *Client) ListClientAppointments(ctx context.Context, clientID, startDate string) ([]Appointment, error) {
	endpoint := c.scopedURL("/appointments") +
		"&ClientId=" + url.QueryEscape(clientID) +
		"&StartDate=" + url.QueryEscape(startDate)

	var out struct {
		Data         []Appointment `json:"data"`
		Appointments []Appointment `json:"appointments"`
	}
	if err := c.do(ctx, "list_appointments", http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Data) > 0 {
		return out.Data, nil
	}
	return out.Appointments, nil
}

// CancelAppointment cancels one appointment service using its concurrency
// check token.
func (c *Client) CancelAppointment(ctx context.Context, appointmentServiceID string, dataVersion int) error {
	form := url.Values{}
	form.Set("AppointmentServiceId", appointmentServiceID)
	form.Set("DataVersion", strconv.Itoa(dataVersion))

	var out struct {
		Data json.RawMessage `json:"data"`
	}
	return c.do(ctx, "cancel_booking", http.MethodPost, c.scopedURL("/book/cancel"), form, &out)
}

type bookingPayload struct {
	AppointmentID        string `json:"appointmentId"`
	AppointmentServiceID string `json:"appointmentServiceId"`
	StartTime            string `json:"startTime"`
	ServiceEndTime       string `json:"serviceEndTime"`
}

func (c *Client) scopedURL(path string) string {
	return fmt.Sprintf("%s%s?TenantId=%s&LocationId=%s",
		c.apiURL, path, url.QueryEscape(c.tenantID), url.QueryEscape(c.locationID))
}

func (c *Client) do(ctx context.Context, operation, method, endpoint string, form url.Values, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if form != nil {
		bodyReader = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("meevo: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveUpstreamLatency(operation, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("meevo: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("meevo: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: extractErrorMessage(respBody)}
	}

	// Cancel responds with an empty body on some tenants.
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("meevo: unmarshal response: %w", err)
	}
	return nil
}

// extractErrorMessage pulls the upstream error text out of Meevo's error
// envelope, falling back to the raw body truncated to 300 chars.
func extractErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	msg := string(body)
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}
