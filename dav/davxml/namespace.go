// Package davxml provides the Clark-notation namespace registry and the
// etree-backed XML builders the engine uses to assemble multistatus and
// error response bodies.
package davxml

import (
	"fmt"
	"strings"
)

// Fixed namespace registry (spec §4.2). DAV: is emitted as the default
// namespace; everything else carries an explicit prefix.
const (
	NSDAV            = "DAV:"
	NSCalDAV         = "urn:ietf:params:xml:ns:caldav"
	NSCardDAV        = "urn:ietf:params:xml:ns:carddav"
	NSCalendarServer = "http://calendarserver.org/ns/"
	NSAppleICal      = "http://apple.com/ns/ical/"
	NSMe             = "http://me.com/_namespace/"
)

// prefixOrder fixes the order namespace declarations are emitted in, for
// reproducible output.
var prefixOrder = []string{"D", "C", "CR", "CS", "ICAL", "ME"}

var prefixToNS = map[string]string{
	"D":    NSDAV,
	"C":    NSCalDAV,
	"CR":   NSCardDAV,
	"CS":   NSCalendarServer,
	"ICAL": NSAppleICal,
	"ME":   NSMe,
}

var nsToPrefix = map[string]string{
	NSDAV:            "D",
	NSCalDAV:         "C",
	NSCardDAV:        "CR",
	NSCalendarServer: "CS",
	NSAppleICal:      "ICAL",
	NSMe:             "ME",
}

// ToClark converts a human tag such as "D:foo" into Clark notation
// "{DAV:}foo". A tag already in Clark notation is returned unchanged
// (after validating it is well-formed).
func ToClark(humanTag string) (string, error) {
	if strings.HasPrefix(humanTag, "{") {
		ns, local, ok := splitClarkRaw(humanTag)
		if !ok || ns == "" || local == "" {
			return "", fmt.Errorf("davxml: invalid XML tag %q", humanTag)
		}
		return humanTag, nil
	}
	prefix, local, ok := strings.Cut(humanTag, ":")
	if !ok || prefix == "" || local == "" {
		return "", fmt.Errorf("davxml: invalid XML tag %q", humanTag)
	}
	ns, ok := prefixToNS[prefix]
	if !ok {
		return "", fmt.Errorf("davxml: unknown XML namespace prefix %q", prefix)
	}
	return "{" + ns + "}" + local, nil
}

// MustClark is ToClark for tags known at compile time to be well-formed; it
// panics on malformed input instead of threading an error through callers
// that only ever pass constants.
func MustClark(humanTag string) string {
	clark, err := ToClark(humanTag)
	if err != nil {
		panic(err)
	}
	return clark
}

// ToHuman is the inverse of ToClark: it replaces a known namespace URI in
// Clark notation with its registered prefix. A tag in an unregistered
// namespace is returned unchanged.
func ToHuman(clarkTag string) (string, error) {
	if !strings.HasPrefix(clarkTag, "{") {
		prefix, local, ok := strings.Cut(clarkTag, ":")
		if !ok || prefix == "" || local == "" {
			return "", fmt.Errorf("davxml: invalid XML tag %q", clarkTag)
		}
		if _, ok := prefixToNS[prefix]; !ok {
			return "", fmt.Errorf("davxml: unknown XML namespace prefix %q", clarkTag)
		}
		return clarkTag, nil
	}
	ns, local, ok := splitClarkRaw(clarkTag)
	if !ok || ns == "" || local == "" {
		return "", fmt.Errorf("davxml: invalid XML tag %q", clarkTag)
	}
	if prefix, ok := nsToPrefix[ns]; ok {
		return prefix + ":" + local, nil
	}
	return clarkTag, nil
}

// SplitClark breaks a Clark-notation tag into its namespace URI and local
// name. A bare tag with no braces is returned as local name with an empty
// namespace.
func SplitClark(clarkTag string) (ns, local string) {
	ns, local, ok := splitClarkRaw(clarkTag)
	if !ok {
		return "", clarkTag
	}
	return ns, local
}

func splitClarkRaw(tag string) (ns, local string, ok bool) {
	if !strings.HasPrefix(tag, "{") {
		return "", tag, false
	}
	end := strings.IndexByte(tag, '}')
	if end < 0 {
		return "", "", false
	}
	return tag[1:end], tag[end+1:], true
}

// PrefixFor returns the registered prefix for a namespace URI, or "" if the
// namespace is DAV: (the default namespace) or unregistered.
func PrefixFor(ns string) string {
	if ns == NSDAV || ns == "" {
		return ""
	}
	return nsToPrefix[ns]
}
