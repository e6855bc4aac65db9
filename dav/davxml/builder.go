package davxml

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
)

// NewElement creates a detached element for a Clark-notation tag, qualified
// with the registered prefix for its namespace (bare, unprefixed, when the
// namespace is DAV:).
func NewElement(clarkTag string) *etree.Element {
	ns, local := SplitClark(clarkTag)
	if prefix := PrefixFor(ns); prefix != "" {
		return etree.NewElement(prefix + ":" + local)
	}
	return etree.NewElement(local)
}

// AppendChild creates a child element for clarkTag under parent and returns
// it.
func AppendChild(parent *etree.Element, clarkTag string) *etree.Element {
	el := NewElement(clarkTag)
	parent.AddChild(el)
	return el
}

// AppendHref appends a "D:href" child to parent whose text is the
// percent-encoded form of path.
func AppendHref(parent *etree.Element, path string) *etree.Element {
	href := AppendChild(parent, MustClark("D:href"))
	href.SetText(MakeHref(path))
	return href
}

// declareNamespaces stamps the fixed namespace registry onto root: DAV: as
// the default namespace, everything else with an explicit xmlns:prefix
// attribute. Namespace initialization is static, never lazy, per the
// "no shared mutable state" design note.
func declareNamespaces(root *etree.Element) {
	root.CreateAttr("xmlns", NSDAV)
	for _, prefix := range prefixOrder {
		if prefix == "D" {
			continue
		}
		root.CreateAttr("xmlns:"+prefix, prefixToNS[prefix])
	}
}

// newDocument creates an etree.Document carrying the required XML
// declaration.
func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc
}

// NewMultistatus builds an empty "D:multistatus" document with the
// namespace registry declared on the root element. Callers append
// "D:response" children to doc.Root().
func NewMultistatus() *etree.Document {
	doc := newDocument()
	root := doc.CreateElement("multistatus")
	declareNamespaces(root)
	return doc
}

// WebDAVError builds a "D:error" document containing a single empty
// condition child, e.g. WebDAVError("D:supported-report").
func WebDAVError(conditionHumanTag string) *etree.Document {
	doc := newDocument()
	root := doc.CreateElement("error")
	declareNamespaces(root)
	AppendChild(root, MustClark(conditionHumanTag))
	return doc
}

// Serialize renders doc as a UTF-8 encoded byte slice carrying the XML
// declaration.
func Serialize(doc *etree.Document) ([]byte, error) {
	doc.Indent(2)
	return doc.WriteToBytes()
}

// StatusLine formats an HTTP status line as used in "D:status" elements,
// e.g. "HTTP/1.1 200 OK".
func StatusLine(code int) string {
	return fmt.Sprintf("HTTP/1.1 %d %s", code, http.StatusText(code))
}

// MakeHref percent-encodes a sanitized absolute path, preserving its
// segment structure (slashes are never encoded).
func MakeHref(p string) string {
	if p == "" || p == "/" {
		return p
	}
	trailing := strings.HasSuffix(p, "/")
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	out := "/" + strings.Join(segments, "/")
	if trailing {
		out += "/"
	}
	return out
}
