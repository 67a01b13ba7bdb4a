package tunnel

import (
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/constant/provider"

	"github.com/puzpuzpuz/xsync/v3"
)

var (
	proxies        = xsync.NewMapOf[string, C.Proxy]()
	proxyProviders = xsync.NewMapOf[string, provider.ProxyProvider]()
)

// Proxies returns a snapshot of the registered outbound adapters.
func Proxies() map[string]C.Proxy {
	mapping := make(map[string]C.Proxy, proxies.Size())
	proxies.Range(func(name string, proxy C.Proxy) bool {
		mapping[name] = proxy
		return true
	})
	return mapping
}

// ProxyProviders returns a snapshot of the registered proxy providers.
func ProxyProviders() map[string]provider.ProxyProvider {
	mapping := make(map[string]provider.ProxyProvider, proxyProviders.Size())
	proxyProviders.Range(func(name string, pd provider.ProxyProvider) bool {
		mapping[name] = pd
		return true
	})
	return mapping
}

// FindProxyByName looks up an adapter in the registry.
func FindProxyByName(name string) (C.Proxy, bool) {
	return proxies.Load(name)
}

// FindProviderByName looks up a provider in the registry.
func FindProviderByName(name string) (provider.ProxyProvider, bool) {
	return proxyProviders.Load(name)
}

// UpdateProxies replaces the registry with a freshly built adapter set.
// Providers displaced by the swap are closed so their health-check loops
// stop.
func UpdateProxies(newProxies map[string]C.Proxy, newProviders map[string]provider.ProxyProvider) {
	old := ProxyProviders()

	proxies.Clear()
	for name, proxy := range newProxies {
		proxies.Store(name, proxy)
	}

	proxyProviders.Clear()
	for name, pd := range newProviders {
		proxyProviders.Store(name, pd)
	}

	for name, pd := range old {
		if kept, ok := newProviders[name]; !ok || kept != pd {
			_ = pd.Close()
		}
	}
}
