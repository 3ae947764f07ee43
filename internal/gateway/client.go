// Package gateway is the single point of outbound calls to the hackathon API.
//
// It owns transport concerns only: the cookie-carried session credential,
// timeouts, retries of idempotent reads, client-side rate limiting and the
// mapping of every failure onto the apierr taxonomy. It holds no business state.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/stanstork/hackmatch/internal/apierr"
)

const (
	defaultTimeout         = 15 * time.Second
	defaultMaxAttempts     = 3
	defaultInitialInterval = 200 * time.Millisecond
	maxErrorBody           = 64 << 10

	requestIDHeader = "X-Request-Id"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// MaxAttempts bounds retries of GET requests. Mutations are attempted once.
	MaxAttempts     uint
	InitialInterval time.Duration
	// RatePerSecond <= 0 disables client-side rate limiting.
	RatePerSecond float64
	Burst         int
	Registerer    prometheus.Registerer
	// Cookies persists the session credential between runs. Without it the
	// credential lives only as long as the Client.
	Cookies CookieStore
	// HTTPClient overrides the transport. A cookie jar is attached if it has none.
	HTTPClient *http.Client
}

// CookieStore is durable storage for the API session cookies.
type CookieStore interface {
	LoadCookies(ctx context.Context) ([]*http.Cookie, error)
	SaveCookies(ctx context.Context, cookies []*http.Cookie) error
}

// Client talks to the REST API.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	limiter     *rate.Limiter
	maxAttempts uint
	initial     time.Duration
	metrics     *metrics
	jar         *credentialJar
	logger      zerolog.Logger
}

// New builds a Client from opts.
func New(opts Options, logger zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	logger = logger.With().Str("component", "gateway").Logger()
	var jar *credentialJar
	if httpClient.Jar == nil {
		jar, err = newCredentialJar(base, opts.Cookies, logger)
		if err != nil {
			return nil, err
		}
		if err := jar.restore(context.Background()); err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}

	c := &Client{
		jar:         jar,
		baseURL:     base,
		http:        httpClient,
		maxAttempts: opts.MaxAttempts,
		initial:     opts.InitialInterval,
		metrics:     newMetrics(opts.Registerer),
		logger:      logger,
	}
	if c.maxAttempts == 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.initial <= 0 {
		c.initial = defaultInitialInterval
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c, nil
}

// ClearCredentials drops any session cookie held for the API host, in memory
// and in the cookie store.
func (c *Client) ClearCredentials() {
	if c.jar == nil {
		return
	}
	if err := c.jar.reset(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to reset cookie jar")
	}
}

// credentialJar is a cookie jar that can be emptied while requests are in
// flight. Cookies for the API host are written through to store.
type credentialJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar

	base   *url.URL
	store  CookieStore
	logger zerolog.Logger
	// saveMu orders writes so the store always ends with the jar's latest state.
	saveMu sync.Mutex
}

func newCredentialJar(base *url.URL, store CookieStore, logger zerolog.Logger) (*credentialJar, error) {
	jar, err := newCookieJar()
	if err != nil {
		return nil, err
	}
	return &credentialJar{jar: jar, base: base, store: store, logger: logger}, nil
}

func newCookieJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}
	return jar, nil
}

// restore loads cookies saved by an earlier run.
func (j *credentialJar) restore(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	cookies, err := j.store.LoadCookies(ctx)
	if err != nil {
		return errors.Wrap(err, "load saved cookies")
	}
	if len(cookies) == 0 {
		return nil
	}
	for _, c := range cookies {
		c.Path = "/"
	}
	j.mu.RLock()
	j.jar.SetCookies(j.base, cookies)
	j.mu.RUnlock()
	j.logger.Debug().Int("cookies", len(cookies)).Msg("Restored session cookies")
	return nil
}

func (j *credentialJar) reset() error {
	jar, err := newCookieJar()
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
	return j.save()
}

// save writes the cookies currently held for the API host.
func (j *credentialJar) save() error {
	if j.store == nil {
		return nil
	}
	j.saveMu.Lock()
	defer j.saveMu.Unlock()
	return errors.Wrap(j.store.SaveCookies(context.Background(), j.Cookies(j.base)), "save cookies")
}

func (j *credentialJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	j.jar.SetCookies(u, cookies)
	j.mu.RUnlock()
	if err := j.save(); err != nil {
		j.logger.Warn().Err(err).Msg("Failed to persist session cookies")
	}
}

func (j *credentialJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// request describes one call. route is the templated path used for logs and metrics.
type request struct {
	method string
	route  string
	path   string
	query  url.Values
	body   any
}

func (r request) op() string {
	return r.method + " " + r.route
}

// do executes req and decodes a 2xx JSON body into out (if non-nil).
// GET requests are retried on transient failures; other methods are sent once
// so a dropped response never causes a second mutation.
func (c *Client) do(ctx context.Context, req request, out any) error {
	if req.method != http.MethodGet {
		return c.once(ctx, req, out)
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initial
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := c.once(ctx, req, out)
		if err != nil && !apierr.IsTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(c.maxAttempts))
	if err != nil && apierr.KindOf(err) == apierr.KindUnknown {
		// Context cancellation while waiting between attempts.
		return apierr.Network(req.op(), err)
	}
	return err
}

func (c *Client) once(ctx context.Context, req request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apierr.Network(req.op(), err)
		}
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.observe(req, 0, time.Since(start))
		c.logger.Debug().Err(err).Str("op", req.op()).Msg("request failed")
		return apierr.Network(req.op(), err)
	}
	defer resp.Body.Close()
	c.metrics.observe(req, resp.StatusCode, time.Since(start))

	c.logger.Debug().
		Str("op", req.op()).
		Str("request_id", httpReq.Header.Get(requestIDHeader)).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apierr.FromResponse(req.op(), resp.StatusCode, parseDetail(raw))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &apierr.Error{Kind: apierr.KindServer, Status: resp.StatusCode, Op: req.op(), Message: "malformed response", Cause: err}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req request) (*http.Request, error) {
	target := *c.baseURL
	target.Path = c.baseURL.Path + req.path
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, &apierr.Error{Kind: apierr.KindValidation, Op: req.op(), Message: "encode request", Cause: err}
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return nil, &apierr.Error{Kind: apierr.KindValidation, Op: req.op(), Message: "build request", Cause: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(requestIDHeader, uuid.NewString())
	return httpReq, nil
}

// parseDetail extracts the server's {"detail": ...} message. Detail may be a
// string or a structured validation list, in which case the raw JSON is kept.
func parseDetail(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(raw))
	}
	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}
	return string(envelope.Detail)
}
