package adapter

import (
	"encoding/json"
	"testing"

	"github.com/windrose-proxy/windrose/adapter/outbound"

	"github.com/stretchr/testify/assert"
)

func TestNewProxyOptimisticAlive(t *testing.T) {
	proxy := NewProxy(outbound.NewDirect())

	assert.True(t, proxy.Alive())
	assert.Equal(t, uint16(0xffff), proxy.LastDelay())
	assert.Empty(t, proxy.DelayHistory())
}

func TestProxyMarshalJSON(t *testing.T) {
	proxy := NewProxy(outbound.NewDirect())

	buf, err := json.Marshal(proxy)
	assert.NoError(t, err)

	mapping := map[string]any{}
	assert.NoError(t, json.Unmarshal(buf, &mapping))
	assert.Equal(t, "DIRECT", mapping["name"])
	assert.Equal(t, "Direct", mapping["type"])
	assert.Equal(t, true, mapping["alive"])
	assert.NotNil(t, mapping["history"])
}

func TestURLToMetadata(t *testing.T) {
	addr, err := urlToMetadata("https://www.gstatic.com/generate_204")
	assert.NoError(t, err)
	assert.Equal(t, "www.gstatic.com", addr.Host)
	assert.Equal(t, uint16(443), addr.DstPort)

	addr, err = urlToMetadata("http://example.com/")
	assert.NoError(t, err)
	assert.Equal(t, uint16(80), addr.DstPort)

	addr, err = urlToMetadata("http://example.com:8080/")
	assert.NoError(t, err)
	assert.Equal(t, uint16(8080), addr.DstPort)

	_, err = urlToMetadata("ftp://example.com/")
	assert.Error(t, err)
}

func TestParseProxy(t *testing.T) {
	proxy, err := ParseProxy(map[string]any{
		"name": "my-direct",
		"type": "direct",
	})
	assert.NoError(t, err)
	assert.Equal(t, "my-direct", proxy.Name())

	proxy, err = ParseProxy(map[string]any{
		"name": "my-reject",
		"type": "reject",
	})
	assert.NoError(t, err)
	assert.Equal(t, "my-reject", proxy.Name())
}

func TestParseProxyErrors(t *testing.T) {
	_, err := ParseProxy(map[string]any{"name": "x"})
	assert.Error(t, err)

	_, err = ParseProxy(map[string]any{"name": "x", "type": "vmess"})
	assert.Error(t, err)

	_, err = ParseProxy(map[string]any{"type": "direct"})
	assert.Error(t, err)
}
