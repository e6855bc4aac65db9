package dav

import (
	"net/http"

	"github.com/jrudio/davcore/dav/davxml"
	"github.com/jrudio/davcore/dav/storage"
)

// handleDelete implements §4.8 DELETE: resolve the item, enforce If-Match
// (defaulting to "*"), delete, and report a one-response multistatus body.
func (h *Handler) handleDelete(c *Context) (int, http.Header, []byte, *Error) {
	ctx := c.ctxOrBackground()

	item, err := c.Store.ItemGetFromPath(ctx, c.Path)
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, nil, nil, notFound("no such item")
		}
		return 0, nil, nil, badRequest("failed to resolve item", err)
	}

	ifMatch := c.Header.Get("If-Match")
	if ifMatch == "" {
		ifMatch = "*"
	}
	if ifMatch != "*" {
		etag, eerr := c.Store.ItemETag(ctx, item)
		if eerr != nil {
			return 0, nil, nil, badRequest("failed to compute etag", eerr)
		}
		if ifMatch != etag {
			return 0, nil, nil, preconditionFailed("If-Match precondition failed")
		}
	}

	if derr := c.Store.ItemDelete(ctx, item); derr != nil {
		return 0, nil, nil, badRequest("failed to delete item", derr)
	}

	doc := davxml.NewMultistatus()
	response := doc.Root().CreateElement("response")
	davxml.AppendHref(response, c.Path)
	response.CreateElement("status").SetText(davxml.StatusLine(http.StatusOK))

	body, serr := davxml.Serialize(doc)
	if serr != nil {
		return 0, nil, nil, badRequest("failed to serialize response", serr)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/xml")
	return http.StatusOK, headers, body, nil
}
