package outboundgroup

import (
	"context"
	"encoding/json"

	"github.com/windrose-proxy/windrose/common/atomic"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/constant/provider"

	"github.com/samber/lo"
)

type Selector struct {
	*GroupBase
	disableUDP bool
	selected   atomic.TypedValue[string]
	testUrl    string
}

// DialContext implements C.ProxyAdapter
func (s *Selector) DialContext(ctx context.Context, metadata *C.Metadata) (C.Conn, error) {
	c, err := s.selectedProxy(true).DialContext(ctx, metadata)
	if err == nil {
		c.AppendToChains(s)
	}
	return c, err
}

// SupportUDP implements C.ProxyAdapter
func (s *Selector) SupportUDP() bool {
	if s.disableUDP {
		return false
	}

	return s.selectedProxy(false).SupportUDP()
}

// MarshalJSON implements C.ProxyAdapter
func (s *Selector) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": s.Type().String(),
		"now":  s.Now(),
		"all": lo.Map(s.GetProxies(false), func(proxy C.Proxy, _ int) string {
			return proxy.Name()
		}),
		"testUrl": s.testUrl,
	})
}

func (s *Selector) Now() string {
	return s.selectedProxy(false).Name()
}

func (s *Selector) Set(name string) error {
	for _, proxy := range s.GetProxies(false) {
		if proxy.Name() == name {
			s.selected.Store(name)
			return nil
		}
	}

	return ErrUnknownMember
}

func (s *Selector) ForceSet(name string) {
	s.selected.Store(name)
}

// Unwrap implements C.ProxyAdapter
func (s *Selector) Unwrap(metadata *C.Metadata, touch bool) C.Proxy {
	return s.selectedProxy(touch)
}

// selectedProxy resolves the manual choice, falling back to the first
// member when nothing was chosen or the chosen name left the group.
func (s *Selector) selectedProxy(touch bool) C.Proxy {
	proxies := s.GetProxies(touch)
	selected := s.selected.Load()
	for _, proxy := range proxies {
		if proxy.Name() == selected {
			return proxy
		}
	}

	return proxies[0]
}

func NewSelector(option *GroupCommonOption, providers []provider.ProxyProvider) *Selector {
	selector := &Selector{
		GroupBase: NewGroupBase(GroupBaseOption{
			Name:           option.Name,
			Type:           C.Selector,
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
	selector.selected.Store("COMPATIBLE")
	return selector
}
