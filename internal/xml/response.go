package xml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/samber/mo"
)

// ErrMalformedResponse is returned for bodies that are not a well-formed
// DAV multistatus document.
var ErrMalformedResponse = errors.New("malformed multistatus response")

// Multistatus represents a multistatus response
type Multistatus struct {
	Responses []Response
}

// Response represents a single response within a multistatus. Only
// properties reported with a successful propstat are kept.
type Response struct {
	Href          string
	ResourceTypes []Name
	DisplayName   mo.Option[string]
	ETag          mo.Option[string]
	CalendarData  mo.Option[string]
}

// IsCalendar reports whether the resourcetype carries the CalDAV calendar
// marker.
func (r *Response) IsCalendar() bool {
	for _, rt := range r.ResourceTypes {
		if rt.Space == CalDAV && rt.Local == "calendar" {
			return true
		}
	}
	return false
}

// ParseMultistatus decodes a multistatus body.
func ParseMultistatus(data []byte) (*Multistatus, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return parseDocument(doc)
}

func parseDocument(doc *etree.Document) (*Multistatus, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedResponse)
	}
	if !Is(root, DAV, "multistatus") {
		return nil, fmt.Errorf("%w: invalid root tag: %s", ErrMalformedResponse, root.FullTag())
	}

	m := &Multistatus{}
	for _, respElem := range FindChildren(root, DAV, "response") {
		resp := Response{}
		if href := FindChild(respElem, DAV, "href"); href != nil {
			resp.Href = strings.TrimSpace(href.Text())
		}

		for _, propstat := range FindChildren(respElem, DAV, "propstat") {
			if !statusOK(FindChild(propstat, DAV, "status")) {
				continue
			}
			for _, prop := range FindChildren(propstat, DAV, "prop") {
				resp.readProps(prop)
			}
		}

		m.Responses = append(m.Responses, resp)
	}
	return m, nil
}

func (r *Response) readProps(prop *etree.Element) {
	for _, p := range prop.ChildElements() {
		switch {
		case Is(p, DAV, "resourcetype"):
			for _, rt := range p.ChildElements() {
				r.ResourceTypes = append(r.ResourceTypes, Name{Space: rt.NamespaceURI(), Local: rt.Tag})
			}
		case Is(p, DAV, "displayname"):
			r.DisplayName = optionalText(p)
		case Is(p, DAV, "getetag"):
			r.ETag = optionalText(p)
		case Is(p, CalDAV, "calendar-data"):
			r.CalendarData = optionalText(p)
		}
	}
}

// A propstat without a status element is accepted.
func statusOK(status *etree.Element) bool {
	if status == nil {
		return true
	}
	fields := strings.Fields(status.Text())
	return len(fields) >= 2 && strings.HasPrefix(fields[1], "2")
}

func optionalText(elem *etree.Element) mo.Option[string] {
	text := strings.TrimSpace(elem.Text())
	if text == "" {
		return mo.None[string]()
	}
	return mo.Some(text)
}
