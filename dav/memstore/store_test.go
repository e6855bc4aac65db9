package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrudio/davcore/dav/storage"
)

func newTestStore() *Store {
	s := New("alice", true)
	s.CreateCollection(storage.Collection{Slug: "alice"})
	s.CreateCollection(storage.Collection{Slug: "alice_cal1", Name: "", Tag: storage.TagCalendar})
	return s
}

func TestItemUploadAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	coll, err := s.CollectionGet(ctx, "alice_cal1")
	require.NoError(t, err)

	const ics = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:e1\r\nDTSTAMP:20240101T000000Z\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	item, err := s.ItemUpload(ctx, "e1.ics", nil, coll, []byte(ics))
	require.NoError(t, err)
	require.Equal(t, storage.TagVEvent, item.Tag)

	got, err := s.ItemGet(ctx, "e1.ics", coll)
	require.NoError(t, err)
	require.Equal(t, item.Href, got.Href)

	body, err := s.ItemSerialize(ctx, got)
	require.NoError(t, err)
	require.Equal(t, ics, body)
}

func TestItemUploadRejectsInvalidBody(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	coll, _ := s.CollectionGet(ctx, "alice_cal1")
	_, err := s.ItemUpload(ctx, "bad.ics", nil, coll, []byte("not an ics file"))
	require.Error(t, err)
}

func TestCollectionETagChangesWithMembers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	coll, _ := s.CollectionGet(ctx, "alice_cal1")

	before, err := s.CollectionETag(ctx, coll)
	require.NoError(t, err)

	const ics = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:e1\r\nDTSTAMP:20240101T000000Z\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	_, err = s.ItemUpload(ctx, "e1.ics", nil, coll, []byte(ics))
	require.NoError(t, err)

	after, err := s.CollectionETag(ctx, coll)
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestDiscoverDepthOne(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	entities, err := s.Discover(ctx, "/", storage.Depth1)
	require.NoError(t, err)
	require.Len(t, entities, 2)
}

func TestItemDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	coll, _ := s.CollectionGet(ctx, "alice_cal1")
	const ics = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:e1\r\nDTSTAMP:20240101T000000Z\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	item, err := s.ItemUpload(ctx, "e1.ics", nil, coll, []byte(ics))
	require.NoError(t, err)

	require.NoError(t, s.ItemDelete(ctx, item))
	_, err = s.ItemGet(ctx, "e1.ics", coll)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
