package source

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/mut-lab/power-monitor/internal/core/metering"
	"github.com/mut-lab/power-monitor/internal/core/timewindow"
	"github.com/sony/gobreaker"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0"

var (
	// ErrLoginFailed marks a rejected phpMyAdmin login (bad credentials or changed login page).
	ErrLoginFailed = errors.New("phpmyadmin login failed")

	// ErrUpstream marks transport-level or HTML-structure failures talking to the source.
	ErrUpstream = errors.New("upstream source unavailable")
)

// Config is the immutable configuration of the scraping client,
// fixed at construction time.
type Config struct {
	BaseURL    string
	Username   string
	Password   string
	Database   string
	Table      string
	OrderBy    string // timestamp column, used for ordering, filtering and decoding
	Timeout    time.Duration
	VerifySSL  bool
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.OrderBy == "" {
		c.OrderBy = "timestamp"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// Client fetches meter records by driving a phpMyAdmin instance: it logs in,
// submits SQL through sql.php and scrapes the results table. The upstream
// database is not directly reachable, so this is the only ingress path.
//
// Each fetch performs a fresh login; phpMyAdmin sessions are short-lived and
// a stateless flow avoids tracking token expiry.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	loc     *time.Location
}

// NewClient creates a scraping client. Records are decoded with their
// timestamps interpreted in loc (nil means time.Local).
func NewClient(cfg Config, loc *time.Location) (*Client, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("source base URL is required")
	}
	if loc == nil {
		loc = time.Local
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pma-source",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Jar:       jar,
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		breaker: cb,
		loc:     loc,
	}, nil
}

// FetchLatest returns the most recent limit rows, newest first.
func (c *Client) FetchLatest(ctx context.Context, limit int) ([]metering.Record, error) {
	sql := fmt.Sprintf("SELECT * FROM %s ORDER BY %s DESC LIMIT %d;",
		c.cfg.Table, c.cfg.OrderBy, limit)
	return c.fetch(ctx, sql)
}

// FetchWindow returns the rows whose timestamp falls in [w.Start, w.End),
// oldest first.
func (c *Client) FetchWindow(ctx context.Context, w timewindow.Window) ([]metering.Record, error) {
	const sqlTime = "2006-01-02 15:04:05"
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s >= '%s' AND %s < '%s' ORDER BY %s ASC;",
		c.cfg.Table,
		c.cfg.OrderBy, w.Start.Format(sqlTime),
		c.cfg.OrderBy, w.End.Format(sqlTime),
		c.cfg.OrderBy)
	return c.fetch(ctx, sql)
}

// Ping verifies the phpMyAdmin front page is reachable. Used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.loginURL(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return nil
}

// fetch runs one login-and-query round trip through the circuit breaker,
// retrying transient failures with exponential backoff.
func (c *Client) fetch(ctx context.Context, sql string) ([]metering.Record, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.fetchOnce(ctx, sql)
		})
		if err == nil {
			return result.([]metering.Record), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open: %v", ErrUpstream, err)
		}
		// Login rejections and SQL errors are not transient.
		if errors.Is(err, ErrLoginFailed) || errors.Is(err, errSQLFailed) {
			return nil, err
		}

		lastErr = err
		if attempt == c.cfg.MaxRetries {
			break
		}

		delay := time.Duration(1<<attempt) * 500 * time.Millisecond
		slog.Warn("[Source] Fetch failed, retrying",
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, sql string) ([]metering.Record, error) {
	token, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.postForm(ctx, c.cfg.BaseURL+"/sql.php", url.Values{
		"server":    {"1"},
		"db":        {c.cfg.Database},
		"table":     {c.cfg.Table},
		"token":     {token},
		"sql_query": {sql},
		"pos":       {"0"},
	})
	if err != nil {
		return nil, err
	}

	rows, err := parseResultTable(body)
	if err != nil {
		return nil, err
	}

	records := decodeRecords(rows, c.cfg.OrderBy, c.loc)
	slog.Debug("[Source] Fetched records", "rows", len(rows), "decoded", len(records))
	return records, nil
}

// login performs the two-step phpMyAdmin login and returns the session token
// required by subsequent sql.php posts.
func (c *Client) login(ctx context.Context) (string, error) {
	page, err := c.get(ctx, c.loginURL())
	if err != nil {
		return "", err
	}
	token, err := extractToken(page)
	if err != nil {
		return "", err
	}

	page, err = c.postForm(ctx, c.loginURL(), url.Values{
		"pma_username": {c.cfg.Username},
		"pma_password": {c.cfg.Password},
		"server":       {"1"},
		"target":       {"index.php"},
		"token":        {token},
	})
	if err != nil {
		return "", err
	}
	if !strings.Contains(page, "phpMyAdmin") {
		return "", fmt.Errorf("%w: check username/password", ErrLoginFailed)
	}

	return extractToken(page)
}

func (c *Client) loginURL() string {
	return c.cfg.BaseURL + "/index.php"
}

func (c *Client) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	return c.do(req)
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (string, error) {
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d from %s", ErrUpstream, resp.StatusCode, req.URL.Path)
	}
	return string(body), nil
}
