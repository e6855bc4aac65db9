package dav

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrudio/davcore/dav/memstore"
	"github.com/jrudio/davcore/dav/storage"
)

const testICS = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:e1\r\nDTSTAMP:20240101T000000Z\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

func newTestHandler(t *testing.T) (*Handler, *memstore.Store) {
	t.Helper()
	s := memstore.New("alice", true)
	s.CreateCollection(storage.Collection{Slug: "alice"})
	s.CreateCollection(storage.Collection{Slug: "alice_cal1", Tag: storage.TagCalendar})
	return NewHandler(Config{Store: s, Logger: slog.Default()}), s
}

func TestOptions(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Allow"), "PROPFIND")
	require.Contains(t, rec.Header().Get("DAV"), "calendar-access")
}

func TestPutThenGet(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPut, "/alice_cal1/e1.ics", strings.NewReader(testICS))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	getReq := httptest.NewRequest(http.MethodGet, "/alice_cal1/e1.ics", nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
	require.Equal(t, etag, getRec.Header().Get("ETag"))
	require.Equal(t, testICS, getRec.Body.String())
}

func TestPutWithIfNoneMatchStarRejectsOverwrite(t *testing.T) {
	h, _ := newTestHandler(t)

	first := httptest.NewRequest(http.MethodPut, "/alice_cal1/e1.ics", strings.NewReader(testICS))
	h.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPut, "/alice_cal1/e1.ics", strings.NewReader(testICS))
	second.Header.Set("If-None-Match", "*")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, second)
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestPutMissingCollectionIsConflict(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPut, "/nosuch/e1.ics", strings.NewReader(testICS))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteWithWrongIfMatchFails(t *testing.T) {
	h, _ := newTestHandler(t)
	put := httptest.NewRequest(http.MethodPut, "/alice_cal1/e1.ics", strings.NewReader(testICS))
	h.ServeHTTP(httptest.NewRecorder(), put)

	del := httptest.NewRequest(http.MethodDelete, "/alice_cal1/e1.ics", nil)
	del.Header.Set("If-Match", `"wrong"`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, del)
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestDeleteWithStarSucceeds(t *testing.T) {
	h, _ := newTestHandler(t)
	put := httptest.NewRequest(http.MethodPut, "/alice_cal1/e1.ics", strings.NewReader(testICS))
	h.ServeHTTP(httptest.NewRecorder(), put)

	del := httptest.NewRequest(http.MethodDelete, "/alice_cal1/e1.ics", nil)
	del.Header.Set("If-Match", "*")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, del)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/alice_cal1/e1.ics")
	require.Contains(t, rec.Body.String(), "HTTP/1.1 200 OK")
}

func TestPropfindDepthOne(t *testing.T) {
	h, _ := newTestHandler(t)
	body := `<D:propfind xmlns:D="DAV:"><D:prop><D:displayname/><D:resourcetype/></D:prop></D:propfind>`
	req := httptest.NewRequest("PROPFIND", "/alice/", strings.NewReader(body))
	req.Header.Set("Depth", "1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMultiStatus, rec.Code)
	out := rec.Body.String()
	require.Contains(t, out, "/alice/")
	require.Contains(t, out, "/alice_cal1/")
	require.Contains(t, out, "calendar")
}

func TestPropfindOnMissingResourceIs404(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest("PROPFIND", "/nosuch/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

