package outboundgroup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/windrose-proxy/windrose/common/utils"
	C "github.com/windrose-proxy/windrose/constant"
	P "github.com/windrose-proxy/windrose/constant/provider"
)

// ErrNoLiveProxy is returned by a probing group when every member has been
// probed dead. Callers treat it as a hard failure for that connection
// attempt, not something to retry in a loop.
var ErrNoLiveProxy = errors.New("no live proxy")

// ErrUnknownMember is returned by Set when the requested name is not in the
// group.
var ErrUnknownMember = errors.New("unknown member")

type ProxyGroup interface {
	C.ProxyAdapter

	Providers() []P.ProxyProvider
	Proxies() []C.Proxy
	Now() string
	Touch()

	URLTest(ctx context.Context, url string, expectedStatus utils.IntRanges[uint16]) (mp map[string]uint16, err error)
}

var _ ProxyGroup = (*Fallback)(nil)
var _ ProxyGroup = (*LoadBalance)(nil)
var _ ProxyGroup = (*URLTest)(nil)
var _ ProxyGroup = (*Selector)(nil)
var _ ProxyGroup = (*Relay)(nil)

type SelectAble interface {
	Set(string) error
	ForceSet(name string)
}

var _ SelectAble = (*Fallback)(nil)
var _ SelectAble = (*URLTest)(nil)
var _ SelectAble = (*Selector)(nil)

func addrToMetadata(rawAddress string) (addr *C.Metadata, err error) {
	host, port, err := net.SplitHostPort(rawAddress)
	if err != nil {
		err = fmt.Errorf("addrToMetadata failed: %w", err)
		return
	}

	uint16Port, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		err = fmt.Errorf("addrToMetadata failed: %w", err)
		return
	}

	if ip, parseErr := netip.ParseAddr(host); parseErr != nil {
		addr = &C.Metadata{
			Host:    host,
			DstPort: uint16(uint16Port),
		}
	} else {
		addr = &C.Metadata{
			DstIP:   ip.Unmap(),
			DstPort: uint16(uint16Port),
		}
	}
	return
}
