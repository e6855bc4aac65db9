// Package dav implements the WebDAV/CalDAV/CardDAV method-dispatch and
// protocol-response engine: request routing, path sanitation, the PROPFIND
// property-resolution algorithm, the REPORT engine, and conditional
// request semantics for PUT and DELETE. Concrete storage, authentication,
// and the HTTP server harness are external collaborators, consumed only
// through the dav/storage contract.
package dav

import (
	"net/http"
	"strings"

	"github.com/jrudio/davcore/dav/davpath"
)

// Handler is the engine's entry point: an http.Handler that dispatches by
// method per §4.4.
type Handler struct {
	cfg Config
}

// NewHandler constructs a Handler bound to cfg.
func NewHandler(cfg Config) *Handler {
	return &Handler{cfg: cfg}
}

type methodFunc func(*Handler, *Context) (int, http.Header, []byte, *Error)

var methodTable = map[string]methodFunc{
	"OPTIONS":  (*Handler).handleOptions,
	"HEAD":     (*Handler).handleGet,
	"GET":      (*Handler).handleGet,
	"PUT":      (*Handler).handlePut,
	"DELETE":   (*Handler).handleDelete,
	"PROPFIND": (*Handler).handlePropfind,
	"REPORT":   (*Handler).handleReport,
}

// ServeHTTP implements the Dispatcher from §4.4: uppercase the method,
// sanitize the path, invoke the handler, finalize the body encoding.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.ToUpper(r.Method)
	sanitized := davpath.Sanitize(r.URL.Path)

	fn, ok := methodTable[method]
	if !ok {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c := newContext(r, h.cfg, sanitized)
	c.Logger.Debug("received request", "method", method, "path", sanitized)

	status, headers, body, derr := fn(h, c)
	if derr != nil {
		if derr.Err != nil {
			c.Logger.Error("request failed", "method", method, "path", sanitized, "err", derr.Err)
		}
		status = derr.Status()
		headers = http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}}
		body = []byte(derr.Message)
	}
	body = finalizeBody(headers, body)

	for key, values := range headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(status)
	if method != "HEAD" && len(body) > 0 {
		w.Write(body)
	}

	c.Logger.Debug("completed request", "method", method, "path", sanitized, "status", status)
}
