package constant

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/windrose-proxy/windrose/common/utils"
)

// Adapter Type
const (
	Direct AdapterType = iota
	Reject
	Compatible

	Relay
	Selector
	Fallback
	URLTest
	LoadBalance
)

const (
	DefaultTestURL = "https://www.gstatic.com/generate_204"

	DefaultTCPTimeout = 5 * time.Second
)

var ErrNotSupport = errors.New("no support")

type Connection interface {
	Chains() Chain
	AppendToChains(adapter ProxyAdapter)
}

type Chain []string

func (c Chain) String() string {
	switch len(c) {
	case 0:
		return ""
	case 1:
		return c[0]
	default:
		return c[len(c)-1] + "[" + c[0] + "]"
	}
}

func (c Chain) Last() string {
	switch len(c) {
	case 0:
		return ""
	default:
		return c[0]
	}
}

type Conn interface {
	net.Conn
	Connection
}

type DelayHistory struct {
	Time  time.Time `json:"time"`
	Delay uint16    `json:"delay"`
}

type ProxyAdapter interface {
	Name() string
	Type() AdapterType

	// Addr returns the address of the proxy server, empty for adapters
	// without a fixed upstream (direct, groups).
	Addr() string
	SupportUDP() bool
	MarshalJSON() ([]byte, error)

	// StreamConnContext wraps an established connection with the adapter's
	// wire protocol. Adapters that cannot be chained return ErrNotSupport.
	StreamConnContext(ctx context.Context, c net.Conn, metadata *Metadata) (net.Conn, error)
	DialContext(ctx context.Context, metadata *Metadata) (Conn, error)

	// Unwrap returns the adapter's current selection, nil for non-group
	// adapters.
	Unwrap(metadata *Metadata, touch bool) Proxy
}

type Proxy interface {
	ProxyAdapter
	Alive() bool
	DelayHistory() []DelayHistory
	LastDelay() uint16
	URLTest(ctx context.Context, url string, expectedStatus utils.IntRanges[uint16]) (uint16, error)
}

type AdapterType int

func (at AdapterType) String() string {
	switch at {
	case Direct:
		return "Direct"
	case Reject:
		return "Reject"
	case Compatible:
		return "Compatible"
	case Relay:
		return "Relay"
	case Selector:
		return "Selector"
	case Fallback:
		return "Fallback"
	case URLTest:
		return "URLTest"
	case LoadBalance:
		return "LoadBalance"
	default:
		return "Unknown"
	}
}
