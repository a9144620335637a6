package davclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/cyp0633/calsync/internal/ics"
)

// UnknownCalendar names collections that report no display name.
const UnknownCalendar = "unknown calendar"

// Collection is a calendar collection found by discovery.
type Collection struct {
	DisplayName string
	// Identifier is whatever the vendor strategy needs to address the
	// collection later: a path segment or an absolute URL.
	Identifier string
}

// RawEvent is one calendar-data payload exactly as the server sent it,
// trimmed of surrounding whitespace. It may hold several components.
type RawEvent string

// Driver retrieves collections and events for one account. Implementations
// never return transport, protocol or parse errors; those are logged and
// produce empty results.
type Driver interface {
	Account() Account
	DiscoverCollections(ctx context.Context) []Collection
	FetchEvents(ctx context.Context, c Collection) []RawEvent
}

// EventSink receives every retrieved event. The index is 1-based within
// its collection.
type EventSink interface {
	SaveEvent(acc Account, c Collection, index int, ev RawEvent, fields ics.Fields) (string, error)
}

// DiagnosticSink stores raw multistatus bodies for later debugging.
type DiagnosticSink interface {
	SaveResponse(vendor, operation, username string, body []byte)
}

// Options configures a Driver. Zero values fall back to defaults.
type Options struct {
	Window          Window
	HTTPClient      *http.Client
	MetadataTimeout time.Duration
	BulkTimeout     time.Duration
	Logger          *slog.Logger
	Diagnostics     DiagnosticSink
	Now             func() time.Time
	// EventsBaseURL overrides the fixed base of DingTalk event URLs.
	EventsBaseURL string
}

func (o Options) withDefaults() Options {
	if o.Window == (Window{}) {
		o.Window = DefaultWindow()
	}
	if o.MetadataTimeout <= 0 {
		o.MetadataTimeout = 10 * time.Second
	}
	if o.BulkTimeout <= 0 {
		o.BulkTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// DriverFactory builds the driver for one account.
type DriverFactory func(acc Account, opts Options) (Driver, error)

var (
	registryMu sync.RWMutex
	factories  = map[Kind]DriverFactory{
		KindDingTalk: newQueryDriver,
		KindTencent:  newMultigetDriver,
		KindGeneric:  newGenericDriver,
	}
)

// Register installs the factory for kind, replacing any previous one.
func Register(kind Kind, f DriverFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[kind] = f
}

// Kinds lists the registered account kinds, built-in ones first in a fixed
// order.
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()

	builtin := []Kind{KindDingTalk, KindTencent, KindGeneric}
	out := make([]Kind, 0, len(factories))
	seen := make(map[Kind]bool, len(factories))
	for _, k := range builtin {
		if _, ok := factories[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	var extra []Kind
	for k := range factories {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// NewDriver creates the driver registered for acc.Kind.
func NewDriver(acc Account, opts Options) (Driver, error) {
	registryMu.RLock()
	f, ok := factories[acc.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported account kind %q", acc.Kind)
	}
	return f(acc, opts.withDefaults())
}
