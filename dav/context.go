package dav

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jrudio/davcore/dav/storage"
)

// Config carries the engine's per-server configuration: the storage handle
// and the logger to use. It is constructed once and shared across
// requests; it holds no mutable state.
type Config struct {
	Store  storage.Store
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Context is the per-request value carrying the request environment and a
// storage handle. It is scoped to exactly one request and never shared.
type Context struct {
	ctx     context.Context
	Method  string
	Path    string
	Header  http.Header
	Body    io.Reader
	Length  int64
	Store   storage.Store
	Logger  *slog.Logger
}

// newContext builds a Context from an incoming *http.Request, a Config and
// the path the dispatcher has already sanitized, stamping a per-request
// correlation id onto the logger.
func newContext(r *http.Request, cfg Config, sanitizedPath string) *Context {
	requestID := uuid.New().String()
	return &Context{
		ctx:    r.Context(),
		Method: r.Method,
		Path:   sanitizedPath,
		Header: r.Header,
		Body:   r.Body,
		Length: r.ContentLength,
		Store:  cfg.Store,
		Logger: cfg.logger().With("request_id", requestID),
	}
}

func (c *Context) ctxOrBackground() context.Context {
	if c.ctx != nil {
		return c.ctx
	}
	return context.Background()
}
