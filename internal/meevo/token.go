package meevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/keepitcut/booking-api/internal/observability/metrics"
	"github.com/keepitcut/booking-api/pkg/logging"
)

// refreshMargin is subtracted from the token lifetime so a token is never
// handed out moments before it expires mid-request.
const refreshMargin = 5 * time.Minute

// TokenSource obtains and caches a Meevo bearer token, refreshing it when
// less than refreshMargin of its lifetime remains. There is deliberately
// no lock: concurrent callers racing past expiry each fetch a valid token
// and the last write wins.
type TokenSource struct {
	authURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *logging.Logger
	metrics      *metrics.BookingMetrics
	now          func() time.Time

	token  string
	expiry time.Time
}

// NewTokenSource creates a token source for the given identity endpoint
// and client credentials.
func NewTokenSource(authURL, clientID, clientSecret string, timeout time.Duration, logger *logging.Logger, m *metrics.BookingMetrics) *TokenSource {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TokenSource{
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
		metrics:      m,
		now:          time.Now,
	}
}

// Token returns a valid bearer token, refreshing transparently. An identity
// endpoint failure propagates to the caller and leaves the cache untouched.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	if ts.token != "" && ts.now().Before(ts.expiry.Add(-refreshMargin)) {
		return ts.token, nil
	}

	ts.logger.Info("refreshing meevo access token")

	payload, err := json.Marshal(map[string]string{
		"client_id":     ts.clientID,
		"client_secret": ts.clientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("meevo: marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.authURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("meevo: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("meevo: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("meevo: read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return "", fmt.Errorf("meevo: token endpoint status %d: %s", resp.StatusCode, msg)
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("meevo: unmarshal token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("meevo: token endpoint returned empty access token")
	}

	ts.token = out.AccessToken
	ts.expiry = ts.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	ts.metrics.ObserveTokenRefresh()
	ts.logger.Info("meevo access token obtained", "expires_in_s", out.ExpiresIn)

	return ts.token, nil
}
