package outboundgroup

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/windrose-proxy/windrose/adapter/outbound"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/constant/provider"

	"github.com/samber/lo"
)

type Relay struct {
	*GroupBase
}

// DialContext implements C.ProxyAdapter
func (r *Relay) DialContext(ctx context.Context, metadata *C.Metadata) (C.Conn, error) {
	proxies, chainProxies := r.proxies(metadata, true)

	switch len(proxies) {
	case 0:
		return outbound.NewDirect().DialContext(ctx, metadata)
	case 1:
		return proxies[0].DialContext(ctx, metadata)
	}

	first := proxies[0]
	last := proxies[len(proxies)-1]

	currentMeta, err := addrToMetadata(proxies[1].Addr())
	if err != nil {
		return nil, err
	}

	var c net.Conn
	c, err = first.DialContext(ctx, currentMeta)
	if err != nil {
		return nil, fmt.Errorf("%s connect error: %w", first.Addr(), err)
	}

	for i, proxy := range proxies[1 : len(proxies)-1] {
		currentMeta, err = addrToMetadata(proxies[i+2].Addr())
		if err != nil {
			_ = c.Close()
			return nil, err
		}

		c, err = proxy.StreamConnContext(ctx, c, currentMeta)
		if err != nil {
			return nil, fmt.Errorf("%s connect error: %w", proxy.Addr(), err)
		}
	}

	c, err = last.StreamConnContext(ctx, c, metadata)
	if err != nil {
		return nil, fmt.Errorf("%s connect error: %w", last.Addr(), err)
	}

	conn := outbound.NewConn(c, r)
	for i := len(chainProxies) - 2; i >= 0; i-- {
		conn.AppendToChains(chainProxies[i])
	}
	return conn, nil
}

// proxies resolves every member's current selection in declared order.
// Members that are themselves groups are unwrapped recursively, so the
// returned list contains only concrete endpoints while chainProxies keeps
// each intermediate group for chain reporting.
func (r *Relay) proxies(metadata *C.Metadata, touch bool) ([]C.Proxy, []C.Proxy) {
	rawProxies := r.GetProxies(touch)

	var proxies []C.Proxy
	var chainProxies []C.Proxy
	var targetProxies []C.Proxy

	for n, proxy := range rawProxies {
		proxies = append(proxies, proxy)
		chainProxies = append(chainProxies, proxy)
		subproxy := proxy.Unwrap(metadata, touch)
		for subproxy != nil {
			chainProxies = append(chainProxies, subproxy)
			proxies[n] = subproxy
			subproxy = subproxy.Unwrap(metadata, touch)
		}
	}

	for _, proxy := range proxies {
		if proxy.Type() != C.Direct && proxy.Type() != C.Compatible {
			targetProxies = append(targetProxies, proxy)
		}
	}

	return targetProxies, chainProxies
}

// Now implements ProxyGroup
func (r *Relay) Now() string {
	return ""
}

// MarshalJSON implements C.ProxyAdapter
func (r *Relay) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": r.Type().String(),
		"all": lo.Map(r.GetProxies(false), func(proxy C.Proxy, _ int) string {
			return proxy.Name()
		}),
	})
}

func NewRelay(option *GroupCommonOption, providers []provider.ProxyProvider) *Relay {
	return &Relay{
		GroupBase: NewGroupBase(GroupBaseOption{
			Name:          option.Name,
			Type:          C.Relay,
			Filter:        option.Filter,
			ExcludeFilter: option.ExcludeFilter,
			ExcludeType:   option.ExcludeType,
			Providers:     providers,
		}),
	}
}
