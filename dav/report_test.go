package dav

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrudio/davcore/dav/storage"
)

const testVCF = "BEGIN:VCARD\r\nVERSION:3.0\r\nUID:c1\r\nFN:Alice\r\nEND:VCARD\r\n"

func TestReportMissingBodyIsEmptyMultistatus(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest("REPORT", "/alice_cal1/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMultiStatus, rec.Code)
	out := rec.Body.String()
	require.Contains(t, out, "multistatus")
	require.NotContains(t, out, "<response")
}

func TestReportMissingBodyShortCircuitsBeforeCollectionCheck(t *testing.T) {
	// A non-leaf collection would fail the sync-collection dispatch check
	// (§4.7) if the body were defaulted and dispatched; a missing body must
	// short-circuit before that check ever runs.
	h, _ := newTestHandler(t)
	req := httptest.NewRequest("REPORT", "/alice/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMultiStatus, rec.Code)
}

func TestReportCalendarMultiget(t *testing.T) {
	h, _ := newTestHandler(t)
	put := httptest.NewRequest(http.MethodPut, "/alice_cal1/e1.ics", strings.NewReader(testICS))
	h.ServeHTTP(httptest.NewRecorder(), put)

	body := `<C:calendar-multiget xmlns:C="urn:ietf:params:xml:ns:caldav" xmlns:D="DAV:">` +
		`<D:prop><D:getetag/><C:calendar-data/></D:prop>` +
		`<D:href>/alice_cal1/e1.ics</D:href>` +
		`<D:href>/alice_cal1/missing.ics</D:href>` +
		`</C:calendar-multiget>`
	req := httptest.NewRequest("REPORT", "/alice_cal1/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMultiStatus, rec.Code)
	out := rec.Body.String()
	require.Contains(t, out, "/alice_cal1/e1.ics")
	require.Contains(t, out, "/alice_cal1/missing.ics")
	require.Contains(t, out, "404")
	require.Contains(t, out, "BEGIN:VCALENDAR")
}

func TestReportMultigetOnWrongCollectionTypeIs403(t *testing.T) {
	h, _ := newTestHandler(t)
	body := `<CR:addressbook-multiget xmlns:CR="urn:ietf:params:xml:ns:carddav" xmlns:D="DAV:">` +
		`<D:prop><D:getetag/></D:prop></CR:addressbook-multiget>`
	req := httptest.NewRequest("REPORT", "/alice_cal1/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "supported-report")
}

func TestReportAddressbookMultigetSucceeds(t *testing.T) {
	h, s := newTestHandler(t)
	s.CreateCollection(storage.Collection{Slug: "alice_contacts", Tag: storage.TagAddressBook})

	put := httptest.NewRequest(http.MethodPut, "/alice_contacts/c1.vcf", strings.NewReader(testVCF))
	h.ServeHTTP(httptest.NewRecorder(), put)

	body := `<CR:addressbook-multiget xmlns:CR="urn:ietf:params:xml:ns:carddav" xmlns:D="DAV:">` +
		`<D:prop><D:getetag/><CR:address-data/></D:prop>` +
		`<D:href>/alice_contacts/c1.vcf</D:href>` +
		`</CR:addressbook-multiget>`
	req := httptest.NewRequest("REPORT", "/alice_contacts/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMultiStatus, rec.Code)
	out := rec.Body.String()
	require.Contains(t, out, "/alice_contacts/c1.vcf")
	require.Contains(t, out, "BEGIN:VCARD")
}

func TestReportSyncCollectionDefaultsToRequestHref(t *testing.T) {
	h, _ := newTestHandler(t)
	put := httptest.NewRequest(http.MethodPut, "/alice_cal1/e1.ics", strings.NewReader(testICS))
	h.ServeHTTP(httptest.NewRecorder(), put)

	body := `<D:sync-collection xmlns:D="DAV:"><D:prop><D:getetag/></D:prop></D:sync-collection>`
	req := httptest.NewRequest("REPORT", "/alice_cal1/e1.ics", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMultiStatus, rec.Code)
	require.Contains(t, rec.Body.String(), "/alice_cal1/e1.ics")
}
