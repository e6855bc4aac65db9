package dav

import (
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxBodyBytes bounds the raw body read; it is generous because the engine
// itself never enforces quotas (see §4 Non-goals).
const maxBodyBytes = 64 << 20

// readBody reads up to Content-Length bytes from c.Body. A short read is a
// fatal BadRequest; a read error that reports Timeout() surfaces as
// Timeout.
func (c *Context) readBody() ([]byte, *Error) {
	if c.Body == nil {
		return nil, nil
	}
	limit := c.Length
	if limit <= 0 {
		limit = maxBodyBytes
	}
	raw, err := io.ReadAll(io.LimitReader(c.Body, limit))
	if err != nil {
		if isTimeout(err) {
			return nil, timeout("request body read timed out")
		}
		return nil, badRequest("failed to read request body", err)
	}
	if c.Length > 0 && int64(len(raw)) < c.Length {
		return nil, badRequest("short read of request body", io.ErrUnexpectedEOF)
	}
	return raw, nil
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

// charsetCandidates builds the ordered, de-duplicated charset list per §4.9:
// the request's declared charset (if any), then utf-8, then iso8859-1.
func charsetCandidates(contentType string) []string {
	candidates := make([]string, 0, 3)
	seen := make(map[string]bool, 3)
	add := func(name string) {
		name = normalizeCharsetName(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		candidates = append(candidates, name)
	}

	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			add(params["charset"])
		}
	}
	add("utf-8")
	add("iso8859-1")
	return candidates
}

// decodeBody decodes raw according to the Content-Type header's declared
// charset, falling back through utf-8 then iso8859-1 per §4.9. The first
// charset that successfully decodes wins.
func decodeBody(raw []byte, contentType string) (string, *Error) {
	for _, charset := range charsetCandidates(contentType) {
		if s, ok := decodeCharset(raw, charset); ok {
			return s, nil
		}
	}
	return "", badRequest("could not decode request body in any supported charset", nil)
}

func decodeCharset(raw []byte, charset string) (string, bool) {
	switch normalizeCharsetName(charset) {
	case "utf-8":
		if !utf8.Valid(raw) {
			return "", false
		}
		return string(raw), true
	case "iso8859-1":
		// ISO-8859-1 maps byte values directly onto the first 256 Unicode
		// code points, so decoding never fails.
		runes := make([]rune, len(raw))
		for i, b := range raw {
			runes[i] = rune(b)
		}
		return string(runes), true
	default:
		return "", false
	}
}

func normalizeCharsetName(charset string) string {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "utf-8", "utf8":
		return "utf-8"
	case "iso8859-1", "iso-8859-1", "latin1":
		return "iso8859-1"
	default:
		return strings.ToLower(strings.TrimSpace(charset))
	}
}

// finalizeBody implements Dispatcher §4.4 step 4: appends "; charset=utf-8"
// to a Content-Type missing one. Handler bodies are already UTF-8 Go strings
// converted to []byte, so only the header needs normalizing here.
func finalizeBody(headers http.Header, body []byte) []byte {
	if headers == nil {
		return body
	}
	if ct := headers.Get("Content-Type"); ct != "" && !strings.Contains(ct, "charset") {
		headers.Set("Content-Type", ct+"; charset=utf-8")
	}
	return body
}
