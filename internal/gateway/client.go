// Package gateway is an HTTP client for the banking aggregation API
// that owns bank links and their transactions.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fintrack/fintrack/internal/metrics"
	"github.com/fintrack/fintrack/internal/model"
)

const (
	// DefaultTimeout bounds a whole gateway call.
	DefaultTimeout = 15 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 5 * time.Second

	// maxErrorBody caps how much of an error response is read for logging.
	maxErrorBody = 2048
	// maxResponseBody caps successful response bodies.
	maxResponseBody = 8 << 20

	userAgent = "fintrack/1.0"
)

// Config holds the gateway connection settings.
type Config struct {
	BaseURL   string
	SecretID  string
	Password1 string
	Password2 string
	Timeout   time.Duration
}

// Client calls the banking gateway with HTTP Basic credentials.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.Recorder
}

// NewHTTPClient creates an HTTP client with bounded timeouts that does not
// follow redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// New creates a gateway Client. A nil httpClient gets NewHTTPClient(cfg.Timeout).
func New(cfg Config, httpClient *http.Client, logger *slog.Logger, recorder metrics.Recorder) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid gateway base URL: %w", err)
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.Timeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		authHeader: "Basic " + BasicCredentials(cfg.SecretID, cfg.Password1, cfg.Password2),
		httpClient: httpClient,
		logger:     logger.With("component", "gateway"),
		metrics:    recorder,
	}, nil
}

// BasicCredentials returns base64("id:password1#password2").
func BasicCredentials(secretID, password1, password2 string) string {
	raw := secretID + ":" + password1 + "#" + password2
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// ListTransactions fetches one page of transactions for a link.
func (c *Client) ListTransactions(ctx context.Context, link string, pageSize int) (*model.TransactionPage, error) {
	query := url.Values{}
	query.Set("link", link)
	query.Set("page_size", strconv.Itoa(pageSize))

	var page model.TransactionPage
	if err := c.do(ctx, metrics.OpListTransactions, http.MethodGet, "/api/transactions/?"+query.Encode(), nil, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []model.Transaction{}
	}
	return &page, nil
}

// CreateLink registers bank credentials with the gateway and returns the new link.
func (c *Client) CreateLink(ctx context.Context, creds model.LinkCredentials) (*model.BankLink, error) {
	var link model.BankLink
	if err := c.do(ctx, metrics.OpCreateLink, http.MethodPost, "/api/links/", creds, &link); err != nil {
		return nil, err
	}
	if link.ID == "" {
		return nil, &UpstreamError{Op: metrics.OpCreateLink, Err: errors.New("response missing link id")}
	}
	return &link, nil
}

// DeleteLink removes a link from the gateway.
func (c *Client) DeleteLink(ctx context.Context, linkID string) error {
	return c.do(ctx, metrics.OpDeleteLink, http.MethodDelete, "/api/links/"+url.PathEscape(linkID)+"/", nil, nil)
}

// do sends one request. A non-nil body is sent as JSON; a non-nil out
// receives the decoded response.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &UpstreamError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	c.metrics.ObserveUpstreamDuration(op, duration)

	if err != nil {
		return c.fail(&UpstreamError{Op: op, Err: err}, duration)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(detail))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return c.fail(&UpstreamError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(msg),
		}, duration)
	}

	if out == nil {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return c.fail(&UpstreamError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}, duration)
	}

	return nil
}

func (c *Client) fail(err *UpstreamError, duration time.Duration) error {
	c.metrics.IncUpstreamFailure(err.Op)
	c.logger.Warn("gateway call failed",
		"op", err.Op,
		"http_status", err.StatusCode,
		"duration_ms", duration.Milliseconds(),
		"error", err.Err,
	)
	return err
}
