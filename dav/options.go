package dav

import "net/http"

// handleOptions implements §4.8 OPTIONS: a fixed capability announcement,
// no storage access.
func (h *Handler) handleOptions(c *Context) (int, http.Header, []byte, *Error) {
	headers := http.Header{}
	headers.Set("Allow", "DELETE, GET, HEAD, OPTIONS, PROPFIND, PUT, REPORT")
	headers.Set("DAV", "1, 2, 3, calendar-access, addressbook, extended-mkcol")
	return http.StatusOK, headers, nil, nil
}
