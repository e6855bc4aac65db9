package dav

import (
	"context"
	"errors"
	"strconv"

	"github.com/beevik/etree"
	"github.com/samber/mo"

	"github.com/jrudio/davcore/dav/davxml"
	"github.com/jrudio/davcore/dav/storage"
)

// errPropNotFound is the sentinel wrapped by every ErrPropNotFound result.
var errPropNotFound = errors.New("property not found")

// ErrPropNotFound marks a requested property as absent for its entity; the
// property resolver table returns it instead of a value, and the caller
// sorts results into the 404 propstat group.
var ErrPropNotFound = mo.Err[*etree.Element](errPropNotFound)

// propValue is the per-property dispatch result: either the XML element to
// emit in the 200 group, or ErrPropNotFound for the 404 group.
type propValue = mo.Result[*etree.Element]

// entityView is the computed, read-only facts about one discovered entity
// the property table dispatches on. It is built once per entity and reused
// across every requested property tag.
type entityView struct {
	entity storage.Entity
	uri    string
	user   string

	isCollection  bool
	isLeaf        bool
	isPrincipal   bool
	canWrite      bool
	serialized    string
	hasSerialized bool
	etag          string
	lastModified  string
	contentLength int
}

// buildEntityView computes every fact the property table may need for e.
// Serialization and ETag are computed eagerly because most property sets
// touch at least one of getetag/getcontentlength/getcontenttype.
func buildEntityView(ctx context.Context, c *Context, e storage.Entity, path string) (*entityView, *Error) {
	v := &entityView{entity: e, user: c.Store.User(ctx), canWrite: c.Store.CanWrite(ctx)}

	if e.IsCollection() {
		coll := *e.Collection
		v.isCollection = true
		v.isLeaf = coll.IsLeaf()
		v.isPrincipal = coll.IsPrincipal()
		v.uri = path
	} else {
		v.uri = path
	}

	serialized, err := c.Store.Serialize(ctx, e)
	if err != nil {
		return nil, badRequest("failed to serialize entity", err)
	}
	v.serialized = serialized
	v.hasSerialized = true
	v.contentLength = len([]byte(serialized))

	lastModified, err := c.Store.GetLastModified(ctx, e)
	if err != nil {
		return nil, badRequest("failed to compute last-modified", err)
	}
	v.lastModified = lastModified

	if v.isLeaf || !v.isCollection {
		if v.isCollection {
			v.etag, err = c.Store.CollectionETag(ctx, *e.Collection)
		} else {
			v.etag, err = c.Store.ItemETag(ctx, *e.Item)
		}
		if err != nil {
			return nil, badRequest("failed to compute etag", err)
		}
	}

	return v, nil
}

// collectionTag returns the storage tag for a collection entity, or "" for
// an item.
func (v *entityView) collectionTag() string {
	if v.entity.Collection == nil {
		return ""
	}
	return v.entity.Collection.Tag
}

// itemTag returns the storage tag for an item entity, or "" for a
// collection.
func (v *entityView) itemTag() string {
	if v.entity.Item == nil {
		return ""
	}
	return v.entity.Item.Tag
}

// resolveProperty computes the value of a single Clark-notation property
// tag against v, per the closed policy table in §4.6.
func resolveProperty(v *entityView, clarkTag string) propValue {
	human, err := davxml.ToHuman(clarkTag)
	if err != nil {
		human = clarkTag
	}

	switch human {
	case "D:getetag":
		if v.isLeaf || !v.isCollection {
			return mo.Ok(textElement("D:getetag", v.etag))
		}
		return ErrPropNotFound

	case "D:getlastmodified":
		if v.isLeaf || !v.isCollection {
			return mo.Ok(textElement("D:getlastmodified", v.lastModified))
		}
		return ErrPropNotFound

	case "D:principal-collection-set":
		el := etree.NewElement("principal-collection-set")
		davxml.AppendHref(el, "/")
		return mo.Ok(el)

	case "C:calendar-user-address-set", "D:principal-URL", "CR:addressbook-home-set", "C:calendar-home-set":
		if v.isCollection && v.isPrincipal {
			el := davxml.NewElement(clarkTag)
			davxml.AppendHref(el, v.uri)
			return mo.Ok(el)
		}
		return ErrPropNotFound

	case "C:supported-calendar-component-set":
		if v.isLeaf && v.collectionTag() == storage.TagCalendar {
			el := etree.NewElement("supported-calendar-component-set")
			comp := davxml.AppendChild(el, davxml.MustClark("C:comp"))
			comp.CreateAttr("name", "VEVENT")
			return mo.Ok(el)
		}
		return ErrPropNotFound

	case "D:current-user-principal":
		el := etree.NewElement("current-user-principal")
		davxml.AppendHref(el, "/"+v.user+"/")
		return mo.Ok(el)

	case "D:current-user-privilege-set":
		el := etree.NewElement("current-user-privilege-set")
		addPrivilege(el, "D:read")
		if v.canWrite {
			addPrivilege(el, "D:all")
			addPrivilege(el, "D:write")
			addPrivilege(el, "D:write-properties")
			addPrivilege(el, "D:write-content")
		}
		return mo.Ok(el)

	case "D:supported-report-set":
		el := etree.NewElement("supported-report-set")
		addSupportedReport(el, "D:expand-property")
		addSupportedReport(el, "D:principal-search-property-set")
		addSupportedReport(el, "D:principal-property-search")
		if v.isLeaf {
			addSupportedReport(el, "D:sync-collection")
			switch v.collectionTag() {
			case storage.TagCalendar:
				addSupportedReport(el, "C:calendar-multiget")
				addSupportedReport(el, "C:calendar-query")
			case storage.TagAddressBook:
				addSupportedReport(el, "CR:addressbook-multiget")
				addSupportedReport(el, "CR:addressbook-query")
			}
		}
		return mo.Ok(el)

	case "D:getcontentlength":
		if v.isLeaf || !v.isCollection {
			return mo.Ok(textElement("D:getcontentlength", strconv.Itoa(v.contentLength)))
		}
		return ErrPropNotFound

	case "D:owner":
		el := etree.NewElement("owner")
		davxml.AppendHref(el, "/"+v.user+"/")
		return mo.Ok(el)

	case "D:getcontenttype":
		switch {
		case v.isCollection && v.isLeaf:
			return mo.Ok(textElement("D:getcontenttype", davxml.GetCollectionContentType(v.collectionTag())))
		case !v.isCollection:
			return mo.Ok(textElement("D:getcontenttype", davxml.GetContentType(v.itemTag())))
		default:
			return ErrPropNotFound
		}

	case "D:resourcetype":
		el := etree.NewElement("resourcetype")
		if v.isCollection {
			davxml.AppendChild(el, davxml.MustClark("D:collection"))
			if v.isPrincipal {
				davxml.AppendChild(el, davxml.MustClark("D:principal"))
			}
			if rt := davxml.ResourceTypeTag(v.collectionTag()); rt != "" {
				davxml.AppendChild(el, davxml.MustClark(rt))
			}
		}
		return mo.Ok(el)

	case "D:displayname":
		if v.isCollection {
			name := v.entity.Collection.Name
			if v.isLeaf && name == "" {
				name = v.entity.Collection.Slug
			}
			if name == "" {
				return ErrPropNotFound
			}
			return mo.Ok(textElement("D:displayname", name))
		}
		return ErrPropNotFound

	case "CS:getctag":
		if v.isLeaf && v.collectionTag() == storage.TagCalendar {
			return mo.Ok(textElement("CS:getctag", v.etag))
		}
		return ErrPropNotFound

	default:
		return ErrPropNotFound
	}
}

func textElement(humanTag, text string) *etree.Element {
	el := davxml.NewElement(davxml.MustClark(humanTag))
	el.SetText(text)
	return el
}

func addPrivilege(parent *etree.Element, humanTag string) {
	priv := davxml.AppendChild(parent, davxml.MustClark("D:privilege"))
	davxml.AppendChild(priv, davxml.MustClark(humanTag))
}

func addSupportedReport(parent *etree.Element, humanTag string) {
	sr := davxml.AppendChild(parent, davxml.MustClark("D:supported-report"))
	davxml.AppendChild(sr, davxml.MustClark(humanTag))
}

// allPropTags is the fixed enumeration §4.6 substitutes for allprop/propname
// requests, depending on entity shape.
func allPropTags(v *entityView) []string {
	tags := []string{
		"D:principal-collection-set",
		"D:current-user-principal",
		"D:current-user-privilege-set",
		"D:supported-report-set",
		"D:resourcetype",
		"D:owner",
	}
	if v.isCollection && v.isPrincipal {
		tags = append(tags,
			"C:calendar-user-address-set",
			"D:principal-URL",
			"CR:addressbook-home-set",
			"C:calendar-home-set",
		)
	}
	if v.isLeaf || !v.isCollection {
		tags = append(tags, "D:getetag", "D:getlastmodified", "D:getcontenttype", "D:getcontentlength")
	}
	if v.isCollection && v.isLeaf {
		tags = append(tags, "D:displayname")
	}
	if v.isCollection && v.collectionTag() == storage.TagCalendar {
		tags = append(tags, "CS:getctag", "C:supported-calendar-component-set")
	}
	return tags
}
