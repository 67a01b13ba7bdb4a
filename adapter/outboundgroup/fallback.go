package outboundgroup

import (
	"context"
	"encoding/json"

	"github.com/windrose-proxy/windrose/common/atomic"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/constant/provider"

	"github.com/samber/lo"
)

type Fallback struct {
	*GroupBase
	disableUDP bool
	testUrl    string
	selected   atomic.TypedValue[string]
}

func (f *Fallback) Now() string {
	proxy, err := f.findAliveProxy(false)
	if err != nil {
		return ""
	}
	return proxy.Name()
}

// DialContext implements C.ProxyAdapter
func (f *Fallback) DialContext(ctx context.Context, metadata *C.Metadata) (C.Conn, error) {
	proxy, err := f.findAliveProxy(true)
	if err != nil {
		return nil, err
	}

	c, err := proxy.DialContext(ctx, metadata)
	if err == nil {
		c.AppendToChains(f)
		f.onDialSuccess()
	} else {
		f.onDialFailed(proxy.Type(), err, f.healthCheck)
	}
	return c, err
}

// SupportUDP implements C.ProxyAdapter
func (f *Fallback) SupportUDP() bool {
	if f.disableUDP {
		return false
	}

	proxy, err := f.findAliveProxy(false)
	if err != nil {
		return false
	}
	return proxy.SupportUDP()
}

// MarshalJSON implements C.ProxyAdapter
func (f *Fallback) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": f.Type().String(),
		"now":  f.Now(),
		"all": lo.Map(f.GetProxies(false), func(proxy C.Proxy, _ int) string {
			return proxy.Name()
		}),
		"testUrl": f.testUrl,
	})
}

// Unwrap implements C.ProxyAdapter
func (f *Fallback) Unwrap(metadata *C.Metadata, touch bool) C.Proxy {
	proxy, err := f.findAliveProxy(touch)
	if err != nil {
		return nil
	}
	return proxy
}

// findAliveProxy walks the members in declared order, so earlier entries act
// as the preferred path and later ones only serve while those are down. A
// manual pin takes over as long as the pinned member stays alive.
func (f *Fallback) findAliveProxy(touch bool) (C.Proxy, error) {
	proxies := f.GetProxies(touch)
	selected := f.selected.Load()
	for _, proxy := range proxies {
		if selected == "" {
			if proxy.Alive() {
				return proxy, nil
			}
		} else {
			if proxy.Name() == selected {
				if proxy.Alive() {
					return proxy, nil
				}

				f.selected.CompareAndSwap(selected, "")
			}
		}
	}

	for _, proxy := range proxies {
		if proxy.Alive() {
			return proxy, nil
		}
	}

	return nil, ErrNoLiveProxy
}

func (f *Fallback) Set(name string) error {
	var p C.Proxy
	for _, proxy := range f.GetProxies(false) {
		if proxy.Name() == name {
			p = proxy
			break
		}
	}

	if p == nil {
		return ErrUnknownMember
	}

	f.selected.Store(name)
	if !p.Alive() {
		ctx, cancel := context.WithTimeout(context.Background(), C.DefaultTCPTimeout)
		defer cancel()
		_, _ = p.URLTest(ctx, f.testUrl, nil)
	}

	return nil
}

func (f *Fallback) ForceSet(name string) {
	f.selected.Store(name)
}

func NewFallback(option *GroupCommonOption, providers []provider.ProxyProvider) *Fallback {
	return &Fallback{
		GroupBase: NewGroupBase(GroupBaseOption{
			Name:           option.Name,
			Type:           C.Fallback,
			Filter:         option.Filter,
			ExcludeFilter:  option.ExcludeFilter,
			ExcludeType:    option.ExcludeType,
			TestTimeout:    option.TestTimeout,
			MaxFailedTimes: option.MaxFailedTimes,
			Providers:      providers,
		}),
		disableUDP: option.DisableUDP,
		testUrl:    option.URL,
	}
}
