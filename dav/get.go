package dav

import (
	"fmt"
	"net/http"

	"github.com/jrudio/davcore/dav/davxml"
	"github.com/jrudio/davcore/dav/storage"
)

var collectionExtension = map[string]string{
	storage.TagCalendar:    "ics",
	storage.TagAddressBook: "vcf",
}

// handleGet implements §4.8 GET (and, via the dispatcher's shared table,
// HEAD): resolve the entity, reject unsupported directory listings, and
// return its serialized body with content headers.
func (h *Handler) handleGet(c *Context) (int, http.Header, []byte, *Error) {
	ctx := c.ctxOrBackground()

	entity, err := c.Store.Get(ctx, c.Path)
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, nil, nil, notFound("no such resource")
		}
		return 0, nil, nil, badRequest("failed to resolve resource", err)
	}

	if entity.IsCollection() && !entity.Collection.IsLeaf() {
		return 0, nil, nil, forbidden("directory listings are not supported")
	}

	body, serr := c.Store.Serialize(ctx, entity)
	if serr != nil {
		return 0, nil, nil, badRequest("failed to serialize resource", serr)
	}
	lastModified, lerr := c.Store.GetLastModified(ctx, entity)
	if lerr != nil {
		return 0, nil, nil, badRequest("failed to compute last-modified", lerr)
	}

	var etag, contentType string
	headers := http.Header{}

	if entity.IsCollection() {
		coll := *entity.Collection
		etag, err = c.Store.CollectionETag(ctx, coll)
		if err != nil {
			return 0, nil, nil, badRequest("failed to compute etag", err)
		}
		contentType = davxml.GetCollectionContentType(coll.Tag)
		if ext, ok := collectionExtension[coll.Tag]; ok {
			headers.Set("Content-Disposition", fmt.Sprintf("attachment; filename*=utf-8''%s.%s", coll.Slug, ext))
		}
	} else {
		item := *entity.Item
		etag, err = c.Store.ItemETag(ctx, item)
		if err != nil {
			return 0, nil, nil, badRequest("failed to compute etag", err)
		}
		contentType = davxml.GetContentType(item.Tag)
	}

	headers.Set("Content-Type", contentType)
	headers.Set("Last-Modified", lastModified)
	headers.Set("ETag", etag)
	return http.StatusOK, headers, []byte(body), nil
}
