package dav

import (
	"net/http"

	"github.com/jrudio/davcore/dav/davpath"
	"github.com/jrudio/davcore/dav/storage"
)

// handlePut implements §4.8 PUT: split the path, enforce If-Match/
// If-None-Match preconditions against any existing item, and upload.
func (h *Handler) handlePut(c *Context) (int, http.Header, []byte, *Error) {
	ctx := c.ctxOrBackground()

	raw, derr := c.readBody()
	if derr != nil {
		return 0, nil, nil, derr
	}
	decoded, derr := decodeBody(raw, c.Header.Get("Content-Type"))
	if derr != nil {
		return 0, nil, nil, derr
	}

	slug, href := davpath.Split(c.Path)
	if href == nil {
		return 0, nil, nil, conflict("path does not name an item within a collection")
	}

	coll, err := c.Store.CollectionGet(ctx, slug)
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, nil, nil, conflict("target collection does not exist")
		}
		return 0, nil, nil, badRequest("failed to resolve collection", err)
	}

	existing, existErr := c.Store.ItemGet(ctx, *href, coll)
	hasExisting := existErr == nil
	if existErr != nil && existErr != storage.ErrNotFound {
		return 0, nil, nil, badRequest("failed to resolve existing item", existErr)
	}

	ifMatch := c.Header.Get("If-Match")
	ifNoneMatch := c.Header.Get("If-None-Match")

	if ifMatch != "" {
		if !hasExisting {
			return 0, nil, nil, preconditionFailed("If-Match precondition failed: no existing resource")
		}
		existingETag, eerr := c.Store.ItemETag(ctx, existing)
		if eerr != nil {
			return 0, nil, nil, badRequest("failed to compute existing etag", eerr)
		}
		// Literal comparison including quote characters, matching the
		// donor's precondition check.
		if ifMatch != existingETag {
			return 0, nil, nil, preconditionFailed("If-Match precondition failed")
		}
	}
	if ifNoneMatch == "*" && hasExisting {
		return 0, nil, nil, preconditionFailed("If-None-Match precondition failed")
	}

	var existingPtr *storage.Item
	if hasExisting {
		existingPtr = &existing
	}

	uploaded, uerr := c.Store.ItemUpload(ctx, *href, existingPtr, coll, []byte(decoded))
	if uerr != nil {
		return 0, nil, nil, badRequest("failed to upload item", uerr)
	}

	etag, eerr := c.Store.ItemETag(ctx, uploaded)
	if eerr != nil {
		return 0, nil, nil, badRequest("failed to compute new etag", eerr)
	}

	headers := http.Header{}
	headers.Set("ETag", etag)
	return http.StatusCreated, headers, nil, nil
}
