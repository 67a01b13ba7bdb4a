package outboundgroup

import (
	"context"
	"encoding/json"
	"time"

	"github.com/windrose-proxy/windrose/common/atomic"
	"github.com/windrose-proxy/windrose/common/singledo"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/constant/provider"

	"github.com/samber/lo"
)

type urlTestOption func(*URLTest)

func urlTestWithTolerance(tolerance uint16) urlTestOption {
	return func(u *URLTest) {
		u.tolerance = tolerance
	}
}

type URLTest struct {
	*GroupBase
	selected   atomic.TypedValue[string]
	testUrl    string
	tolerance  uint16
	disableUDP bool
	fastNode   atomic.TypedValue[C.Proxy]
	fastSingle *singledo.Single[C.Proxy]
}

// Now implements ProxyGroup
func (u *URLTest) Now() string {
	proxy, err := u.fast(false)
	if err != nil {
		return ""
	}
	return proxy.Name()
}

func (u *URLTest) Set(name string) error {
	var p C.Proxy
	for _, proxy := range u.GetProxies(false) {
		if proxy.Name() == name {
			p = proxy
			break
		}
	}
	if p == nil {
		return ErrUnknownMember
	}
	u.selected.Store(name)
	u.fastSingle.Reset()
	return nil
}

func (u *URLTest) ForceSet(name string) {
	u.selected.Store(name)
	u.fastSingle.Reset()
}

// DialContext implements C.ProxyAdapter
func (u *URLTest) DialContext(ctx context.Context, metadata *C.Metadata) (c C.Conn, err error) {
	proxy, err := u.fast(true)
	if err != nil {
		return nil, err
	}

	c, err = proxy.DialContext(ctx, metadata)
	if err == nil {
		c.AppendToChains(u)
		u.onDialSuccess()
	} else {
		u.onDialFailed(proxy.Type(), err, u.healthCheck)
	}
	return c, err
}

// Unwrap implements C.ProxyAdapter
func (u *URLTest) Unwrap(metadata *C.Metadata, touch bool) C.Proxy {
	proxy, err := u.fast(touch)
	if err != nil {
		return nil
	}
	return proxy
}

// fast returns the lowest-latency alive member. The previous pick is kept
// unless a live member beats it by more than the tolerance, which stops the
// selection from flapping between endpoints with near-identical latency.
func (u *URLTest) fast(touch bool) (C.Proxy, error) {
	proxies := u.GetProxies(touch)

	if selected := u.selected.Load(); selected != "" {
		for _, proxy := range proxies {
			if !proxy.Alive() {
				continue
			}
			if proxy.Name() == selected {
				u.fastNode.Store(proxy)
				return proxy, nil
			}
		}
	}

	elm, _, _ := u.fastSingle.Do(func() (C.Proxy, error) {
		fast := proxies[0]
		minDelay := fast.LastDelay()
		fastNotExist := true

		fastNode := u.fastNode.Load()
		for _, proxy := range proxies[1:] {
			if fastNode != nil && proxy.Name() == fastNode.Name() {
				fastNotExist = false
			}

			if !proxy.Alive() {
				continue
			}

			delay := proxy.LastDelay()
			if delay < minDelay {
				fast = proxy
				minDelay = delay
			}
		}

		// tolerance
		if fastNode == nil || fastNotExist || !fastNode.Alive() || fastNode.LastDelay() > fast.LastDelay()+u.tolerance {
			u.fastNode.Store(fast)
			fastNode = fast
		}

		return fastNode, nil
	})

	if elm == nil || !elm.Alive() {
		return nil, ErrNoLiveProxy
	}
	return elm, nil
}

// SupportUDP implements C.ProxyAdapter
func (u *URLTest) SupportUDP() bool {
	if u.disableUDP {
		return false
	}

	proxy, err := u.fast(false)
	if err != nil {
		return false
	}
	return proxy.SupportUDP()
}

// MarshalJSON implements C.ProxyAdapter
func (u *URLTest) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": u.Type().String(),
		"now":  u.Now(),
		"all": lo.Map(u.GetProxies(false), func(proxy C.Proxy, _ int) string {
			return proxy.Name()
		}),
		"testUrl": u.testUrl,
	})
}

func parseURLTestOption(config map[string]any) []urlTestOption {
	opts := []urlTestOption{}

	// tolerance
	if elm, ok := config["tolerance"]; ok {
		if tolerance, ok := elm.(int); ok {
			opts = append(opts, urlTestWithTolerance(uint16(tolerance)))
		}
	}

	return opts
}

func NewURLTest(option *GroupCommonOption, providers []provider.ProxyProvider, options ...urlTestOption) *URLTest {
	urlTest := &URLTest{
		GroupBase: NewGroupBase(GroupBaseOption{
			Name:           option.Name,
			Type:           C.URLTest,
			Filter:         option.Filter,
			ExcludeFilter:  option.ExcludeFilter,
			ExcludeType:    option.ExcludeType,
			TestTimeout:    option.TestTimeout,
			MaxFailedTimes: option.MaxFailedTimes,
			Providers:      providers,
		}),
		fastSingle: singledo.NewSingle[C.Proxy](time.Second * 10),
		disableUDP: option.DisableUDP,
		testUrl:    option.URL,
	}

	for _, opt := range options {
		opt(urlTest)
	}

	return urlTest
}
