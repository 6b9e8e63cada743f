package apiclient

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/guonaihong/gout"
	"github.com/guonaihong/gout/dataflow"
	"github.com/pkg/errors"
	"github.com/talkincode/fabrica/pkg/metrics"
	"go.uber.org/zap"
)

// TokenSource is the persisted-token view the client needs: read the current
// bearer token and purge it when the backend signals revocation.
type TokenSource interface {
	Token() string
	Clear() error
}

// Client is the single choke point for all backend I/O.
type Client struct {
	baseURL string
	timeout time.Duration
	vault   TokenSource
	node    *snowflake.Node

	// onUnauthorized runs after the persisted token was purged on a 401.
	onUnauthorized func()
}

func NewClient(baseURL string, timeout time.Duration, vault TokenSource) *Client {
	node, err := snowflake.NewNode(1)
	if err != nil {
		zap.S().Warnf("snowflake node init failed: %s", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		vault:   vault,
		node:    node,
	}
}

// OnUnauthorized registers a hook invoked whenever a 401 purges the token.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ReqOpts carries per-request options; the zero value is a plain
// unauthenticated JSON request.
type ReqOpts struct {
	Params map[string]string
	Body   interface{}
	Auth   bool
	// Files switches the request to multipart/form-data; keys are form field
	// names, values are file paths. Content-Type is left to the transport so
	// the boundary is set correctly.
	Files  map[string]string
	Fields map[string]string
}

func (c *Client) Get(ctx context.Context, path string, params map[string]string, auth bool) (interface{}, error) {
	return c.Do(ctx, http.MethodGet, path, ReqOpts{Params: params, Auth: auth})
}

func (c *Client) Post(ctx context.Context, path string, body interface{}, auth bool) (interface{}, error) {
	return c.Do(ctx, http.MethodPost, path, ReqOpts{Body: body, Auth: auth})
}

func (c *Client) Put(ctx context.Context, path string, body interface{}, auth bool) (interface{}, error) {
	return c.Do(ctx, http.MethodPut, path, ReqOpts{Body: body, Auth: auth})
}

func (c *Client) Delete(ctx context.Context, path string, auth bool) (interface{}, error) {
	return c.Do(ctx, http.MethodDelete, path, ReqOpts{Auth: auth})
}

// Upload sends a multipart form with file fields and plain fields.
func (c *Client) Upload(ctx context.Context, path string, files, fields map[string]string, auth bool) (interface{}, error) {
	return c.Do(ctx, http.MethodPost, path, ReqOpts{Auth: auth, Files: files, Fields: fields})
}

// Do performs one request and unwraps the response envelope. Failures are
// terminal: no retry is attempted, the caller decides what to do.
func (c *Client) Do(ctx context.Context, method, path string, opts ReqOpts) (interface{}, error) {
	df := c.flow(method, c.baseURL+path)
	if df == nil {
		return nil, errors.Errorf("unsupported method %s", method)
	}

	if len(opts.Params) > 0 {
		query := gout.H{}
		for k, v := range opts.Params {
			query[k] = v
		}
		df = df.SetQuery(query)
	}

	headers := gout.H{"X-Request-Id": c.requestID()}
	if opts.Auth && c.vault != nil {
		if token := c.vault.Token(); token != "" {
			headers["Authorization"] = "Bearer " + token
		}
	}

	switch {
	case len(opts.Files) > 0:
		form := gout.H{}
		for k, v := range opts.Fields {
			form[k] = v
		}
		for field, filepath := range opts.Files {
			form[field] = gout.FormFile(filepath)
		}
		df = df.SetForm(form)
	case opts.Body != nil:
		df = df.SetJSON(opts.Body)
	}
	df = df.SetHeader(headers)

	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		code int
		body []byte
	)
	start := time.Now()
	err := df.WithContext(tctx).Code(&code).BindBody(&body).Do()
	metrics.ObserveLatency("api_request_ms", time.Since(start))
	metrics.IncrCounter("api_requests_total", 1)
	if err != nil {
		metrics.IncrCounter("api_transport_errors", 1)
		zap.L().Warn("api transport failure",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "api request failed")
	}

	return c.unwrap(code, body)
}

func (c *Client) flow(method, url string) *dataflow.DataFlow {
	switch method {
	case http.MethodGet:
		return gout.GET(url)
	case http.MethodPost:
		return gout.POST(url)
	case http.MethodPut:
		return gout.PUT(url)
	case http.MethodDelete:
		return gout.DELETE(url)
	case http.MethodPatch:
		return gout.PATCH(url)
	}
	return nil
}

func (c *Client) requestID() string {
	if c.node == nil {
		return ""
	}
	return c.node.Generate().String()
}

// invalidateSession purges the persisted token. Called on every 401: the
// backend revoked the session, keeping the token would only repeat the error.
func (c *Client) invalidateSession() {
	if c.vault != nil {
		if err := c.vault.Clear(); err != nil {
			zap.S().Warnf("token purge failed: %s", err)
		}
	}
	metrics.IncrCounter("api_session_invalidations", 1)
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}
