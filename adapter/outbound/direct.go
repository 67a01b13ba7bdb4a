package outbound

import (
	"context"
	"fmt"
	"net"

	C "github.com/windrose-proxy/windrose/constant"
)

type Direct struct {
	*Base
}

type DirectOption struct {
	BasicOption
	Name string `proxy:"name"`
}

// DialContext implements C.ProxyAdapter
func (d *Direct) DialContext(ctx context.Context, metadata *C.Metadata) (C.Conn, error) {
	dialer := &net.Dialer{Timeout: C.DefaultTCPTimeout}
	c, err := dialer.DialContext(ctx, "tcp", metadata.RemoteAddress())
	if err != nil {
		return nil, fmt.Errorf("%s connect error: %w", metadata.RemoteAddress(), err)
	}
	return NewConn(c, d), nil
}

func NewDirect() *Direct {
	return &Direct{
		Base: NewBase(BaseOption{
			Name: "DIRECT",
			Type: C.Direct,
			UDP:  true,
		}),
	}
}

func NewDirectWithOption(option DirectOption) *Direct {
	return &Direct{
		Base: NewBase(BaseOption{
			Name: option.Name,
			Type: C.Direct,
			UDP:  true,
		}),
	}
}

// Compatible is the placeholder adapter a group degrades to when filters
// empty its member list. It dials direct so user traffic still flows.
type Compatible struct {
	*Direct
}

func NewCompatible() *Compatible {
	return &Compatible{
		Direct: &Direct{
			Base: NewBase(BaseOption{
				Name: "COMPATIBLE",
				Type: C.Compatible,
				UDP:  true,
			}),
		},
	}
}
