package xml

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
)

// ICSTimeFormat is the UTC basic format used by CalDAV time-range filters.
const ICSTimeFormat = "20060102T150405Z"

// Properties requested by the drivers.
var (
	PropDisplayName         = Name{Space: DAV, Local: "displayname"}
	PropResourceType        = Name{Space: DAV, Local: "resourcetype"}
	PropGetETag             = Name{Space: DAV, Local: "getetag"}
	PropCalendarDescription = Name{Space: CalDAV, Local: "calendar-description"}
	PropSupportedComponents = Name{Space: CalDAV, Local: "supported-calendar-component-set"}
	PropCalendarData        = Name{Space: CalDAV, Local: "calendar-data"}
)

// PropfindRequest represents a PROPFIND request
type PropfindRequest struct {
	Prop []Name
}

// ToXML converts a PropfindRequest to an XML document
func (r *PropfindRequest) ToXML() *etree.Document {
	doc := newDocument(Name{Space: DAV, Local: "propfind"})
	prop := CreateElementWithNS(doc.Root(), "prop")
	for _, name := range r.Prop {
		CreateElement(prop, name)
	}
	return doc
}

// TimeRange represents a time range filter
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (tr *TimeRange) toElement(elem *etree.Element) {
	elem.CreateAttr("start", tr.Start.UTC().Format(ICSTimeFormat))
	elem.CreateAttr("end", tr.End.UTC().Format(ICSTimeFormat))
}

// CalendarQueryRequest represents a calendar-query REPORT filtering one
// component type inside VCALENDAR, optionally by time range.
type CalendarQueryRequest struct {
	Prop      []Name
	Component string
	TimeRange *TimeRange
}

// ToXML converts a CalendarQueryRequest to an XML document
func (r *CalendarQueryRequest) ToXML() *etree.Document {
	doc := newDocument(Name{Space: CalDAV, Local: "calendar-query"})
	root := doc.Root()

	prop := CreateElementWithNS(root, "prop")
	for _, name := range r.Prop {
		CreateElement(prop, name)
	}

	filter := CreateElementWithNS(root, "filter")
	calFilter := CreateElementWithNS(filter, "comp-filter")
	calFilter.CreateAttr("name", "VCALENDAR")
	if r.Component != "" {
		compFilter := CreateElementWithNS(calFilter, "comp-filter")
		compFilter.CreateAttr("name", r.Component)
		if r.TimeRange != nil {
			r.TimeRange.toElement(CreateElementWithNS(compFilter, "time-range"))
		}
	}
	return doc
}

// CalendarMultigetRequest represents a calendar-multiget REPORT request
type CalendarMultigetRequest struct {
	Prop  []Name
	Hrefs []string
}

// ToXML converts a CalendarMultigetRequest to an XML document
func (r *CalendarMultigetRequest) ToXML() *etree.Document {
	doc := newDocument(Name{Space: CalDAV, Local: "calendar-multiget"})
	root := doc.Root()

	prop := CreateElementWithNS(root, "prop")
	for _, name := range r.Prop {
		CreateElement(prop, name)
	}
	for _, href := range r.Hrefs {
		CreateElementWithNS(root, "href").SetText(href)
	}
	return doc
}

// Encode serializes a request document with its XML declaration.
func Encode(doc *etree.Document) ([]byte, error) {
	body, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return body, nil
}

func newDocument(root Name) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	CreateElement(&doc.Element, root)
	AddNamespaces(doc, DAV, CalDAV)
	return doc
}
