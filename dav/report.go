package dav

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"

	"github.com/jrudio/davcore/dav/davpath"
	"github.com/jrudio/davcore/dav/davxml"
	"github.com/jrudio/davcore/dav/storage"
)

// parsedReport is a parsed REPORT request body: the dispatch tag plus any
// requested hrefs and property tags.
type parsedReport struct {
	tag   string // Clark-notation root tag
	hrefs []string
	props []string
}

// parseReportBody parses a non-empty REPORT request body. Callers must
// short-circuit the empty-body case (§4.7) before reaching here.
func parseReportBody(raw string) (*parsedReport, *Error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return nil, badRequest("malformed REPORT request body", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, badRequest("empty REPORT request body", nil)
	}

	pr := &parsedReport{tag: elementClarkTag(root)}
	for _, href := range root.FindElements(".//href") {
		pr.hrefs = append(pr.hrefs, href.Text())
	}
	if propEl := findByLocal(root, "prop"); propEl != nil {
		for _, child := range propEl.ChildElements() {
			pr.props = append(pr.props, elementClarkTag(child))
		}
	}
	return pr, nil
}

// findByLocal finds the first descendant whose local tag name matches
// local, regardless of namespace prefix.
func findByLocal(root *etree.Element, local string) *etree.Element {
	for _, el := range root.FindElements(".//*") {
		if el.Tag == local {
			return el
		}
	}
	return nil
}

// handleReport implements §4.7/§4.8 REPORT.
func (h *Handler) handleReport(c *Context) (int, http.Header, []byte, *Error) {
	ctx := c.ctxOrBackground()

	raw, derr := c.readBody()
	if derr != nil {
		return 0, nil, nil, derr
	}
	bodyStr := ""
	if raw != nil {
		decoded, derr := decodeBody(raw, c.Header.Get("Content-Type"))
		if derr != nil {
			return 0, nil, nil, derr
		}
		bodyStr = decoded
	}

	// §4.7: a missing body yields an empty multistatus immediately, before
	// any tag dispatch or collection lookup — matches davish's
	// `if xml_request is None: return MULTI_STATUS, multistatus`.
	if strings.TrimSpace(bodyStr) == "" {
		return emptyMultistatus()
	}

	parsed, perr := parseReportBody(bodyStr)
	if perr != nil {
		return 0, nil, nil, perr
	}

	switch parsed.tag {
	case davxml.MustClark("D:principal-search-property-set"),
		davxml.MustClark("D:principal-property-search"),
		davxml.MustClark("D:expand-property"):
		return emptyMultistatus()
	}

	slug, _ := davpath.Split(c.Path)
	coll, err := c.Store.CollectionGet(ctx, slug)
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, nil, nil, notFound("no such collection")
		}
		return 0, nil, nil, badRequest("failed to resolve collection", err)
	}

	calendarMultiget := davxml.MustClark("C:calendar-multiget")
	addressbookMultiget := davxml.MustClark("CR:addressbook-multiget")
	syncCollection := davxml.MustClark("D:sync-collection")

	switch {
	case parsed.tag == calendarMultiget && coll.Tag != storage.TagCalendar:
		return unsupportedReport()
	case parsed.tag == addressbookMultiget && coll.Tag != storage.TagAddressBook:
		return unsupportedReport()
	case parsed.tag == syncCollection && !coll.IsLeaf():
		return unsupportedReport()
	}

	var resolvedHrefs []string
	collectionRequested := false
	missingHrefs := []string{}

	switch parsed.tag {
	case calendarMultiget, addressbookMultiget:
		for _, raw := range parsed.hrefs {
			decodedHref, uerr := url.QueryUnescape(raw)
			if uerr != nil {
				decodedHref = raw
			}
			sanitized := davpath.Sanitize(decodedHref)
			if !strings.HasPrefix(sanitized, "/") {
				continue
			}
			hslug, hitem := davpath.Split(sanitized)
			if hslug == coll.Slug && hitem == nil {
				collectionRequested = true
				continue
			}
			if hslug != coll.Slug || hitem == nil {
				missingHrefs = append(missingHrefs, sanitized)
				continue
			}
			if _, ierr := c.Store.ItemGet(ctx, *hitem, coll); ierr != nil {
				missingHrefs = append(missingHrefs, sanitized)
				continue
			}
			resolvedHrefs = append(resolvedHrefs, sanitized)
		}
	default:
		resolvedHrefs = []string{c.Path}
	}

	if collectionRequested {
		members, merr := c.Store.CollectionItems(ctx, coll)
		if merr != nil {
			return 0, nil, nil, badRequest("failed to list collection members", merr)
		}
		for _, m := range members {
			resolvedHrefs = append(resolvedHrefs, davpath.Unstrip(coll.Slug+"/"+m.Href, false))
		}
	}

	doc := davxml.NewMultistatus()
	for _, href := range missingHrefs {
		response := doc.Root().CreateElement("response")
		davxml.AppendHref(response, href)
		response.CreateElement("status").SetText(davxml.StatusLine(http.StatusNotFound))
	}
	for _, href := range resolvedHrefs {
		_, hitem := davpath.Split(href)
		if hitem == nil {
			continue
		}
		item, ierr := c.Store.ItemGet(ctx, *hitem, coll)
		if ierr != nil {
			response := doc.Root().CreateElement("response")
			davxml.AppendHref(response, href)
			response.CreateElement("status").SetText(davxml.StatusLine(http.StatusNotFound))
			continue
		}
		if rerr := appendReportResponse(ctx, c, doc, item, href, parsed.props); rerr != nil {
			return 0, nil, nil, rerr
		}
	}

	body, serr := davxml.Serialize(doc)
	if serr != nil {
		return 0, nil, nil, badRequest("failed to serialize response", serr)
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/xml")
	return http.StatusMultiStatus, headers, body, nil
}

// appendReportResponse computes the §4.7 property table for item and
// appends one D:response with its 200/404 propstat partition.
func appendReportResponse(ctx context.Context, c *Context, doc *etree.Document, item storage.Item, href string, props []string) *Error {
	serialized, serr := c.Store.ItemSerialize(ctx, item)
	if serr != nil {
		return badRequest("failed to serialize item", serr)
	}
	etag, eerr := c.Store.ItemETag(ctx, item)
	if eerr != nil {
		return badRequest("failed to compute etag", eerr)
	}

	var ok, missing []*etree.Element
	for _, tag := range props {
		el, found := resolveReportProperty(tag, item, serialized, etag)
		if found {
			ok = append(ok, el)
		} else {
			missing = append(missing, davxml.NewElement(tag))
		}
	}

	response := doc.Root().CreateElement("response")
	davxml.AppendHref(response, href)
	if len(ok) > 0 {
		appendPropstat(response, ok, http.StatusOK)
	}
	if len(missing) > 0 {
		appendPropstat(response, missing, http.StatusNotFound)
	}
	return nil
}

// resolveReportProperty computes the §4.7 property table: getetag,
// getcontenttype, and the calendar-data/address-data body, everything else
// 404.
func resolveReportProperty(clarkTag string, item storage.Item, serialized, etag string) (*etree.Element, bool) {
	human, herr := davxml.ToHuman(clarkTag)
	if herr != nil {
		human = clarkTag
	}
	switch human {
	case "D:getetag":
		return textElement("D:getetag", etag), true
	case "D:getcontenttype":
		return textElement("D:getcontenttype", davxml.GetContentType(item.Tag)), true
	case "C:calendar-data":
		if item.Tag != storage.TagVEvent {
			return nil, false
		}
		return textElement("C:calendar-data", serialized), true
	case "CR:address-data":
		if item.Tag != storage.TagVCard {
			return nil, false
		}
		return textElement("CR:address-data", serialized), true
	default:
		return nil, false
	}
}

func unsupportedReport() (int, http.Header, []byte, *Error) {
	doc := davxml.WebDAVError("D:supported-report")
	body, serr := davxml.Serialize(doc)
	if serr != nil {
		return 0, nil, nil, badRequest("failed to serialize error body", serr)
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/xml")
	return http.StatusForbidden, headers, body, nil
}

func emptyMultistatus() (int, http.Header, []byte, *Error) {
	doc := davxml.NewMultistatus()
	body, serr := davxml.Serialize(doc)
	if serr != nil {
		return 0, nil, nil, badRequest("failed to serialize response", serr)
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/xml")
	return http.StatusMultiStatus, headers, body, nil
}
