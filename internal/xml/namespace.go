package xml

import (
	"fmt"
	"sync"

	"github.com/beevik/etree"
)

// Namespace definitions for CalDAV and WebDAV
const (
	// DAV is the WebDAV namespace
	DAV = "DAV:"
	// CalDAV is the CalDAV namespace
	CalDAV = "urn:ietf:params:xml:ns:caldav"
	// CalendarServer is the Calendar Server namespace (used by some implementations)
	CalendarServer = "http://calendarserver.org/ns/"
)

// Name is a namespace-qualified XML name.
type Name struct {
	Space string
	Local string
}

func (n Name) String() string {
	return fmt.Sprintf("{%s}%s", n.Space, n.Local)
}

var (
	registryMu sync.RWMutex
	prefixes   = map[string]string{
		DAV:            "D",
		CalDAV:         "C",
		CalendarServer: "CS",
	}
	elements = map[string]string{
		"multistatus":                      DAV,
		"response":                         DAV,
		"href":                             DAV,
		"propstat":                         DAV,
		"prop":                             DAV,
		"status":                           DAV,
		"propfind":                         DAV,
		"displayname":                      DAV,
		"resourcetype":                     DAV,
		"collection":                       DAV,
		"getetag":                          DAV,
		"calendar":                         CalDAV,
		"calendar-description":             CalDAV,
		"supported-calendar-component-set": CalDAV,
		"calendar-data":                    CalDAV,
		"calendar-query":                   CalDAV,
		"calendar-multiget":                CalDAV,
		"filter":                           CalDAV,
		"comp-filter":                      CalDAV,
		"time-range":                       CalDAV,
		"getctag":                          CalendarServer,
	}
)

// GetNamespacePrefix returns the prefix used when writing elements of the
// given namespace, or "" for an unknown namespace.
func GetNamespacePrefix(uri string) string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return prefixes[uri]
}

// GetElementNamespace returns the namespace an element name belongs to.
// Unknown elements default to DAV.
func GetElementNamespace(local string) string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if ns, ok := elements[local]; ok {
		return ns
	}
	return DAV
}

// RegisterNamespace adds a namespace URI with its writing prefix.
func RegisterNamespace(uri, prefix string) error {
	if uri == "" || prefix == "" {
		return fmt.Errorf("namespace uri and prefix are required")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := prefixes[uri]; ok {
		return fmt.Errorf("namespace %q already registered", uri)
	}
	for _, p := range prefixes {
		if p == prefix {
			return fmt.Errorf("prefix %q already registered", prefix)
		}
	}
	prefixes[uri] = prefix
	return nil
}

// RegisterElement binds an element name to an already registered namespace.
func RegisterElement(local, uri string) error {
	if local == "" || uri == "" {
		return fmt.Errorf("element name and namespace are required")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := prefixes[uri]; !ok {
		return fmt.Errorf("namespace %q is not registered", uri)
	}
	elements[local] = uri
	return nil
}

// AddNamespaces declares the given namespaces on the document root. With no
// arguments the DAV and CalDAV namespaces are declared.
func AddNamespaces(doc *etree.Document, uris ...string) {
	root := doc.Root()
	if root == nil {
		return
	}
	if len(uris) == 0 {
		uris = []string{DAV, CalDAV}
	}
	for _, uri := range uris {
		if prefix := GetNamespacePrefix(uri); prefix != "" {
			root.CreateAttr("xmlns:"+prefix, uri)
		}
	}
}

// CreateElement appends a prefixed child for the qualified name.
func CreateElement(parent *etree.Element, name Name) *etree.Element {
	elem := parent.CreateElement(name.Local)
	elem.Space = GetNamespacePrefix(name.Space)
	return elem
}

// CreateElementWithNS appends a child whose namespace is looked up in the
// element registry.
func CreateElementWithNS(parent *etree.Element, local string) *etree.Element {
	return CreateElement(parent, Name{Space: GetElementNamespace(local), Local: local})
}

// Is reports whether elem has the given local name in the given namespace,
// whatever prefix the sender chose.
func Is(elem *etree.Element, space, local string) bool {
	return elem != nil && elem.Tag == local && elem.NamespaceURI() == space
}

// FindChild returns the first direct child matching the qualified name.
func FindChild(elem *etree.Element, space, local string) *etree.Element {
	if elem == nil {
		return nil
	}
	for _, child := range elem.ChildElements() {
		if Is(child, space, local) {
			return child
		}
	}
	return nil
}

// FindChildren returns every direct child matching the qualified name.
func FindChildren(elem *etree.Element, space, local string) []*etree.Element {
	if elem == nil {
		return nil
	}
	var out []*etree.Element
	for _, child := range elem.ChildElements() {
		if Is(child, space, local) {
			out = append(out, child)
		}
	}
	return out
}
