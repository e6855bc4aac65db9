package dav

import (
	"net/http"
	"strings"

	"github.com/beevik/etree"

	"github.com/jrudio/davcore/dav/davpath"
	"github.com/jrudio/davcore/dav/davxml"
	"github.com/jrudio/davcore/dav/storage"
)

// propfindKind is the top element of a parsed PROPFIND request body.
type propfindKind int

const (
	propfindAllProp propfindKind = iota
	propfindPropName
	propfindProp
)

// parsedPropfind is the result of parsing a PROPFIND request body.
type parsedPropfind struct {
	kind  propfindKind
	props []string // Clark-notation tags, only set for propfindProp
}

// parsePropfindBody parses raw per §4.6: a missing body is an allprop
// request; otherwise the single top element (the first child of a
// D:propfind root, or the root itself) must be D:allprop, D:propname, or
// D:prop.
func parsePropfindBody(raw string) (*parsedPropfind, *Error) {
	if strings.TrimSpace(raw) == "" {
		return &parsedPropfind{kind: propfindAllProp}, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return nil, badRequest("malformed PROPFIND request body", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, badRequest("empty PROPFIND request body", nil)
	}

	top := root
	if elementClarkTag(root) == davxml.MustClark("D:propfind") {
		if children := root.ChildElements(); len(children) > 0 {
			top = children[0]
		}
	}

	switch elementClarkTag(top) {
	case davxml.MustClark("D:allprop"):
		return &parsedPropfind{kind: propfindAllProp}, nil
	case davxml.MustClark("D:propname"):
		return &parsedPropfind{kind: propfindPropName}, nil
	case davxml.MustClark("D:prop"):
		var tags []string
		for _, child := range top.ChildElements() {
			tags = append(tags, elementClarkTag(child))
		}
		return &parsedPropfind{kind: propfindProp, props: tags}, nil
	default:
		return nil, badRequest("unrecognized propfind request element", nil)
	}
}

// elementClarkTag resolves e's namespace prefix against the xmlns
// declarations visible on e and its ancestors, and returns the Clark-form
// tag. An element with no resolvable namespace is returned with an empty
// namespace (bare local name).
func elementClarkTag(e *etree.Element) string {
	ns := resolveNamespace(e, e.Space)
	if ns == "" {
		return e.Tag
	}
	return "{" + ns + "}" + e.Tag
}

func resolveNamespace(e *etree.Element, prefix string) string {
	attrKey := "xmlns"
	if prefix != "" {
		attrKey = "xmlns:" + prefix
	}
	for cur := e; cur != nil; cur = cur.Parent() {
		if v := cur.SelectAttrValue(attrKey, ""); v != "" {
			return v
		}
	}
	return ""
}

// handlePropfind implements §4.8's PROPFIND method and §4.6's response
// assembly.
func (h *Handler) handlePropfind(c *Context) (int, http.Header, []byte, *Error) {
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

	parsed, perr := parsePropfindBody(bodyStr)
	if perr != nil {
		return 0, nil, nil, perr
	}

	depth := storage.Depth0
	if c.Header.Get("Depth") == "1" {
		depth = storage.Depth1
	}

	entities, err := c.Store.Discover(ctx, c.Path, depth)
	if err != nil {
		if err == storage.ErrNotFound {
			return 0, nil, nil, notFound("no such resource")
		}
		return 0, nil, nil, badRequest("discovery failed", err)
	}
	if len(entities) == 0 {
		return 0, nil, nil, notFound("no such resource")
	}

	doc := davxml.NewMultistatus()
	for _, e := range entities {
		uri := entityURI(e)
		view, verr := buildEntityView(ctx, c, e, uri)
		if verr != nil {
			return 0, nil, nil, verr
		}

		var tags []string
		switch parsed.kind {
		case propfindAllProp, propfindPropName:
			tags = allPropTags(view)
		case propfindProp:
			tags = parsed.props
		}

		response := doc.Root().CreateElement("response")
		davxml.AppendHref(response, uri)

		if parsed.kind == propfindPropName {
			propEl := response.CreateElement("propstat").CreateElement("prop")
			for _, tag := range tags {
				davxml.AppendChild(propEl, tag)
			}
			response.FindElement("propstat").CreateElement("status").SetText(davxml.StatusLine(http.StatusOK))
			continue
		}

		appendPropstatGroups(response, view, tags)
	}

	body, serr := davxml.Serialize(doc)
	if serr != nil {
		return 0, nil, nil, badRequest("failed to serialize response", serr)
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/xml")
	return http.StatusMultiStatus, headers, body, nil
}

// appendPropstatGroups computes every tag against view, partitions results
// by status per §3 I5 / §8 P3, and appends one propstat per non-empty
// group.
func appendPropstatGroups(response *etree.Element, view *entityView, tags []string) {
	var ok, missing []*etree.Element
	for _, tag := range tags {
		result := resolveProperty(view, tag)
		if result.IsOk() {
			ok = append(ok, result.MustGet())
		} else {
			missing = append(missing, davxml.NewElement(tag))
		}
	}
	if len(ok) > 0 {
		appendPropstat(response, ok, http.StatusOK)
	}
	if len(missing) > 0 {
		appendPropstat(response, missing, http.StatusNotFound)
	}
}

func appendPropstat(response *etree.Element, elements []*etree.Element, status int) {
	propstat := response.CreateElement("propstat")
	prop := propstat.CreateElement("prop")
	for _, el := range elements {
		prop.AddChild(el)
	}
	propstat.CreateElement("status").SetText(davxml.StatusLine(status))
}

// entityURI computes the §4.6 URI for a discovered entity.
func entityURI(e storage.Entity) string {
	if e.IsCollection() {
		return davpath.Unstrip(e.Collection.Slug, true)
	}
	return davpath.Unstrip(e.Item.Collection.Slug+"/"+e.Item.Href, false)
}
