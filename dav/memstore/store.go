// Package memstore is a reference in-memory implementation of the
// dav/storage.Store contract, suitable for tests and local experimentation.
// It validates uploaded bodies with emersion/go-ical and emersion/go-vcard
// and mints item hrefs with google/uuid.
package memstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
	"github.com/google/uuid"

	"github.com/jrudio/davcore/dav/storage"
)

type itemRecord struct {
	item storage.Item
	body string
}

type collectionRecord struct {
	coll  storage.Collection
	items map[string]*itemRecord // keyed by href
}

// Store is a concurrency-safe, in-memory storage.Store.
type Store struct {
	mu          sync.RWMutex
	user        string
	canWrite    bool
	collections map[string]*collectionRecord // keyed by slug
}

// New constructs an empty Store for the given caller identity.
func New(user string, canWrite bool) *Store {
	return &Store{
		user:        user,
		canWrite:    canWrite,
		collections: make(map[string]*collectionRecord),
	}
}

// CreateCollection registers a collection with no items. It is not part of
// the storage.Store contract (collection lifecycle is backend-owned per
// §3); it exists only to seed a Store for tests and examples.
func (s *Store) CreateCollection(coll storage.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[coll.Slug] = &collectionRecord{coll: coll, items: make(map[string]*itemRecord)}
}

func (s *Store) User(context.Context) string {
	return s.user
}

func (s *Store) CanWrite(context.Context) bool {
	return s.canWrite
}

func (s *Store) CollectionList(context.Context) ([]storage.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slugs := make([]string, 0, len(s.collections))
	for slug := range s.collections {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	out := make([]storage.Collection, 0, len(slugs))
	for _, slug := range slugs {
		out = append(out, s.collections[slug].coll)
	}
	return out, nil
}

func (s *Store) CollectionGet(_ context.Context, slug string) (storage.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.collections[slug]
	if !ok {
		return storage.Collection{}, storage.ErrNotFound
	}
	return rec.coll, nil
}

func (s *Store) CollectionItems(_ context.Context, coll storage.Collection) ([]storage.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.collections[coll.Slug]
	if !ok {
		return nil, storage.ErrNotFound
	}
	hrefs := make([]string, 0, len(rec.items))
	for href := range rec.items {
		hrefs = append(hrefs, href)
	}
	sort.Strings(hrefs)
	out := make([]storage.Item, 0, len(hrefs))
	for _, href := range hrefs {
		out = append(out, rec.items[href].item)
	}
	return out, nil
}

func (s *Store) ItemGet(_ context.Context, href string, coll storage.Collection) (storage.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.collections[coll.Slug]
	if !ok {
		return storage.Item{}, storage.ErrNotFound
	}
	ir, ok := rec.items[href]
	if !ok {
		return storage.Item{}, storage.ErrNotFound
	}
	return ir.item, nil
}

func (s *Store) ItemGetFromPath(ctx context.Context, path string) (storage.Item, error) {
	slug, href := splitPath(path)
	if href == "" {
		return storage.Item{}, storage.ErrNotFound
	}
	coll, err := s.CollectionGet(ctx, slug)
	if err != nil {
		return storage.Item{}, err
	}
	return s.ItemGet(ctx, href, coll)
}

func splitPath(p string) (slug, href string) {
	trimmed := strings.Trim(p, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

func (s *Store) ItemSerialize(_ context.Context, item storage.Item) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.collections[item.Collection.Slug]
	if !ok {
		return "", storage.ErrNotFound
	}
	ir, ok := rec.items[item.Href]
	if !ok {
		return "", storage.ErrNotFound
	}
	return ir.body, nil
}

// ItemUpload validates body with go-ical or go-vcard according to the
// collection's tag, then creates or replaces the record.
func (s *Store) ItemUpload(_ context.Context, href string, existing *storage.Item, coll storage.Collection, body []byte) (storage.Item, error) {
	tag, verr := validateBody(coll, body)
	if verr != nil {
		return storage.Item{}, verr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.collections[coll.Slug]
	if !ok {
		return storage.Item{}, storage.ErrNotFound
	}

	useHref := href
	if useHref == "" {
		useHref = uuid.NewString()
	}

	item := storage.Item{
		Tag:          tag,
		Href:         useHref,
		Collection:   coll,
		LastModified: time.Now().UTC(),
	}
	rec.items[useHref] = &itemRecord{item: item, body: string(body)}
	return item, nil
}

// validateBody parses body with the appropriate format parser for coll's
// tag and returns the resulting item tag, or an error if parsing fails.
func validateBody(coll storage.Collection, body []byte) (string, error) {
	switch coll.Tag {
	case storage.TagCalendar:
		dec := ical.NewDecoder(strings.NewReader(string(body)))
		if _, err := dec.Decode(); err != nil {
			return "", fmt.Errorf("invalid iCalendar body: %w", err)
		}
		return storage.TagVEvent, nil
	case storage.TagAddressBook:
		dec := vcard.NewDecoder(strings.NewReader(string(body)))
		if _, err := dec.Decode(); err != nil {
			return "", fmt.Errorf("invalid vCard body: %w", err)
		}
		return storage.TagVCard, nil
	default:
		return "", fmt.Errorf("collection %q does not accept uploads", coll.Slug)
	}
}

func (s *Store) ItemDelete(_ context.Context, item storage.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.collections[item.Collection.Slug]
	if !ok {
		return storage.ErrNotFound
	}
	delete(rec.items, item.Href)
	return nil
}

func (s *Store) ItemETag(ctx context.Context, item storage.Item) (string, error) {
	body, err := s.ItemSerialize(ctx, item)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(body))
	return `"` + hex.EncodeToString(sum[:]) + `"`, nil
}

func (s *Store) CollectionETag(ctx context.Context, coll storage.Collection) (string, error) {
	items, err := s.CollectionItems(ctx, coll)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, item := range items {
		etag, eerr := s.ItemETag(ctx, item)
		if eerr != nil {
			return "", eerr
		}
		h.Write([]byte(item.Href + "/" + etag))
	}
	h.Write([]byte(fmt.Sprintf("%+v", coll)))
	return `"` + hex.EncodeToString(h.Sum(nil)) + `"`, nil
}

func (s *Store) Discover(ctx context.Context, path string, depth storage.Depth) ([]storage.Entity, error) {
	slug, href := splitPath(path)

	if path == "" || path == "/" {
		entities := []storage.Entity{{Collection: &storage.Collection{}}}
		if depth == storage.Depth1 {
			principal, err := s.CollectionGet(ctx, s.user)
			if err == nil {
				entities = append(entities, storage.Entity{Collection: &principal})
			}
		}
		return entities, nil
	}

	if slug == s.user && href == "" {
		principal, err := s.CollectionGet(ctx, s.user)
		if err != nil {
			return nil, err
		}
		entities := []storage.Entity{{Collection: &principal}}
		if depth == storage.Depth1 {
			children, cerr := s.childCollections(ctx, s.user)
			if cerr != nil {
				return nil, cerr
			}
			for i := range children {
				entities = append(entities, storage.Entity{Collection: &children[i]})
			}
		}
		return entities, nil
	}

	if coll, err := s.CollectionGet(ctx, slug); err == nil && href == "" {
		entities := []storage.Entity{{Collection: &coll}}
		if depth == storage.Depth1 {
			items, ierr := s.CollectionItems(ctx, coll)
			if ierr != nil {
				return nil, ierr
			}
			for i := range items {
				entities = append(entities, storage.Entity{Item: &items[i]})
			}
		}
		return entities, nil
	}

	item, err := s.ItemGetFromPath(ctx, path)
	if err != nil {
		return nil, storage.ErrNotFound
	}
	return []storage.Entity{{Item: &item}}, nil
}

// childCollections lists collections owned by the principal named by slug,
// by convention those whose slug is prefixed "slug_". This reference
// backend keeps a flat slug namespace, so ownership is inferred this way
// rather than via an explicit parent pointer.
func (s *Store) childCollections(_ context.Context, slug string) ([]storage.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := slug + "_"
	var out []storage.Collection
	slugs := make([]string, 0)
	for candidate := range s.collections {
		if strings.HasPrefix(candidate, prefix) {
			slugs = append(slugs, candidate)
		}
	}
	sort.Strings(slugs)
	for _, candidate := range slugs {
		out = append(out, s.collections[candidate].coll)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, path string) (storage.Entity, error) {
	entities, err := s.Discover(ctx, path, storage.Depth0)
	if err != nil {
		return storage.Entity{}, err
	}
	if len(entities) == 0 {
		return storage.Entity{}, storage.ErrNotFound
	}
	return entities[0], nil
}

func (s *Store) Serialize(ctx context.Context, e storage.Entity) (string, error) {
	if !e.IsCollection() {
		return s.ItemSerialize(ctx, *e.Item)
	}
	items, err := s.CollectionItems(ctx, *e.Collection)
	if err != nil {
		return "", err
	}
	bodies := make([]string, 0, len(items))
	for _, item := range items {
		body, serr := s.ItemSerialize(ctx, item)
		if serr != nil {
			return "", serr
		}
		bodies = append(bodies, body)
	}
	return strings.Join(bodies, "\n"), nil
}

func (s *Store) GetLastModified(ctx context.Context, e storage.Entity) (string, error) {
	const rfc1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

	if !e.IsCollection() {
		return e.Item.LastModified.UTC().Format(rfc1123GMT), nil
	}
	items, err := s.CollectionItems(ctx, *e.Collection)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return time.Now().UTC().Format(rfc1123GMT), nil
	}
	max := items[0].LastModified
	for _, item := range items[1:] {
		if item.LastModified.After(max) {
			max = item.LastModified
		}
	}
	return max.UTC().Format(rfc1123GMT), nil
}
