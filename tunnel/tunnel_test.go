package tunnel

import (
	"testing"

	"github.com/windrose-proxy/windrose/adapter"
	"github.com/windrose-proxy/windrose/adapter/outbound"
	"github.com/windrose-proxy/windrose/adapter/provider"
	C "github.com/windrose-proxy/windrose/constant"
	types "github.com/windrose-proxy/windrose/constant/provider"

	"github.com/stretchr/testify/assert"
)

func TestUpdateProxies(t *testing.T) {
	direct := adapter.NewProxy(outbound.NewDirect())
	hc := provider.NewHealthCheck([]C.Proxy{direct}, "", 0, 0, true, nil)
	pd, err := provider.NewCompatibleProvider("default", []C.Proxy{direct}, hc)
	assert.NoError(t, err)

	UpdateProxies(map[string]C.Proxy{"DIRECT": direct}, map[string]types.ProxyProvider{"default": pd})

	got, ok := FindProxyByName("DIRECT")
	assert.True(t, ok)
	assert.Equal(t, "DIRECT", got.Name())

	_, ok = FindProxyByName("NOPE")
	assert.False(t, ok)

	gotPd, ok := FindProviderByName("default")
	assert.True(t, ok)
	assert.Equal(t, "default", gotPd.Name())

	assert.Equal(t, 1, len(Proxies()))
	assert.Equal(t, 1, len(ProxyProviders()))

	// a swap closes displaced providers and drops stale entries
	UpdateProxies(map[string]C.Proxy{}, map[string]types.ProxyProvider{})
	assert.Equal(t, 0, len(Proxies()))
	assert.Equal(t, 0, len(ProxyProviders()))
}
