// Package gateway is the typed façade over the hospital REST API. Every call
// carries the current bearer token; any 401 clears the persisted token and
// sends the user back to the login route, whichever call triggered it.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"hospital-desk/internal/nav"
	"hospital-desk/internal/tokenstore"
)

const RequestIDHeader = "X-Request-Id"

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Tracing   bool
	AuthRate  float64
	AuthBurst int

	Tokens    tokenstore.Store
	Navigator nav.Navigator
	Logger    *zap.Logger

	// Transport overrides http.DefaultTransport; tests leave it nil.
	Transport http.RoundTripper
}

// TokenSource supplies the token attached to outgoing calls. Without one the
// gateway reads the persisted token on every request.
type TokenSource interface {
	Token() string
}

type Client struct {
	http   *resty.Client
	tokens tokenstore.Store
	nav    nav.Navigator
	log    *zap.Logger
	lim    *limiter

	mu             sync.RWMutex
	source         TokenSource
	onUnauthorized []func()
}

func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Tokens == nil {
		cfg.Tokens = tokenstore.NewMemory("")
	}
	if cfg.Navigator == nil {
		cfg.Navigator = nav.Func(func(nav.Route) {})
	}
	if cfg.AuthRate <= 0 {
		cfg.AuthRate = 5
	}
	if cfg.AuthBurst < 1 {
		cfg.AuthBurst = 10
	}

	c := &Client{
		tokens: cfg.Tokens,
		nav:    cfg.Navigator,
		log:    cfg.Logger.Named("gateway"),
		lim:    newLimiter(cfg.AuthRate, cfg.AuthBurst),
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if cfg.Tracing {
		transport = otelhttp.NewTransport(transport)
	}

	c.http = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTransport(transport).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		OnBeforeRequest(c.beforeRequest).
		OnAfterResponse(c.afterResponse)
	if cfg.Timeout > 0 {
		c.http.SetTimeout(cfg.Timeout)
	}
	return c
}

func (c *Client) SetTokenSource(s TokenSource) {
	c.mu.Lock()
	c.source = s
	c.mu.Unlock()
}

// OnUnauthorized registers fn to run after the global 401 policy has cleared
// the persisted token and before navigation.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
	c.mu.Unlock()
}

func (c *Client) token(ctx context.Context) string {
	c.mu.RLock()
	src := c.source
	c.mu.RUnlock()
	if src != nil {
		return src.Token()
	}
	tok, err := c.tokens.Load(ctx)
	if err != nil {
		c.log.Warn("read persisted token", zap.Error(err))
		return ""
	}
	return tok
}

func (c *Client) beforeRequest(_ *resty.Client, r *resty.Request) error {
	ctx := r.Context()
	if err := c.lim.wait(ctx, r.URL); err != nil {
		return fmt.Errorf("rate limit %s: %w", r.URL, err)
	}
	if tok := c.token(ctx); tok != "" {
		r.SetHeader("Authorization", "Bearer "+tok)
	}
	r.SetHeader(RequestIDHeader, uuid.NewString())
	return nil
}

func (c *Client) afterResponse(_ *resty.Client, resp *resty.Response) error {
	if resp.StatusCode() != http.StatusUnauthorized {
		return nil
	}
	c.log.Warn("unauthorized, clearing session",
		zap.String("method", resp.Request.Method),
		zap.String("path", resp.Request.URL),
		zap.String("request_id", resp.Request.Header.Get(RequestIDHeader)),
	)

	// the request context may already be done; clearing must still happen
	if err := c.tokens.Clear(context.Background()); err != nil {
		c.log.Error("clear persisted token", zap.Error(err))
	}

	c.mu.RLock()
	hooks := append([]func(){}, c.onUnauthorized...)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}

	c.nav.Navigate(nav.Login)
	return nil
}

type call struct {
	method string
	path   string
	query  map[string]string
	body   any
	out    any
}

func (c *Client) do(ctx context.Context, cl call) error {
	r := c.http.R().SetContext(ctx)
	if len(cl.query) > 0 {
		r.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		r.SetBody(cl.body)
	}
	if cl.out != nil {
		r.SetResult(cl.out)
	}

	start := time.Now()
	resp, err := r.Execute(cl.method, cl.path)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", cl.method),
			zap.String("path", cl.path),
			zap.Error(err),
		)
		return fmt.Errorf("gateway: %s %s: %w", cl.method, cl.path, err)
	}

	c.log.Debug("request",
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.IsError() {
		apiErr := &APIError{
			StatusCode: resp.StatusCode(),
			Method:     cl.method,
			Path:       cl.path,
			RequestID:  resp.Request.Header.Get(RequestIDHeader),
		}
		var body errorBody
		if json.Unmarshal(resp.Body(), &body) == nil {
			apiErr.Message = body.text()
		}
		return apiErr
	}
	return nil
}
