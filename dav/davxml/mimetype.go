package davxml

// Collection and item tag values. These mirror the donor's plain-string
// Tag/ItemTag enums; kept here rather than in the storage package so
// davxml never has to import it.
const (
	TagAddressBook = "ADDRESS_BOOK"
	TagCalendar    = "CALENDAR"
	TagVCard       = "VCARD"
	TagVEvent      = "VEVENT"
)

// collectionMIMETypes maps a collection tag to the resourcetype element(s)
// PROPFIND advertises for it.
var collectionMIMETypes = map[string]string{
	TagAddressBook: "CR:addressbook",
	TagCalendar:    "C:calendar",
}

// itemMIMETypes maps an item tag to its bare Content-Type, shared between
// items and the leaf collections that hold items of that tag.
var itemMIMETypes = map[string]string{
	TagVCard:  "text/vcard",
	TagVEvent: "text/calendar",
}

// collectionItemTag maps a collection tag to the item tag its members
// carry, for looking up a leaf collection's bare Content-Type.
var collectionItemTag = map[string]string{
	TagAddressBook: TagVCard,
	TagCalendar:    TagVEvent,
}

// ResourceTypeTag returns the human-form resourcetype child tag for a
// collection tag, or "" if tag is not a recognized collection type.
func ResourceTypeTag(collectionTag string) string {
	return collectionMIMETypes[collectionTag]
}

// GetCollectionContentType returns the bare Content-Type for a leaf
// collection's tag, e.g. "text/calendar" with no charset or component
// parameter, per §4.6/§4.8 and scenario 6 (§8).
func GetCollectionContentType(collectionTag string) string {
	itemTag, ok := collectionItemTag[collectionTag]
	if !ok {
		return "application/octet-stream"
	}
	return itemMIMETypes[itemTag]
}

// GetContentType returns the Content-Type header value for an item of the
// given tag, including the `;component=<tag>` parameter the donor attaches
// to every item, not only calendar objects.
func GetContentType(itemTag string) string {
	base, ok := itemMIMETypes[itemTag]
	if !ok {
		return "application/octet-stream"
	}
	return base + "; component=" + itemTag + "; charset=utf-8"
}
