package provider

import (
	"encoding/json"
	"testing"

	P "github.com/windrose-proxy/windrose/constant/provider"

	"github.com/stretchr/testify/assert"
)

func TestCompatibleProviderNeedsProxies(t *testing.T) {
	hc := NewHealthCheck(nil, "", 0, 0, true, nil)
	_, err := NewCompatibleProvider("test", nil, hc)
	assert.Error(t, err)
}

func TestInlineProvider(t *testing.T) {
	parser, err := NewProxiesParser("", "", "")
	assert.NoError(t, err)

	hc := NewHealthCheck(nil, "", 0, 0, true, nil)
	pd, err := NewInlineProvider("test", []map[string]any{
		{"name": "d1", "type": "direct"},
		{"name": "d2", "type": "direct"},
	}, parser, hc)
	assert.NoError(t, err)
	defer func() { _ = pd.Close() }()

	assert.Equal(t, "test", pd.Name())
	assert.Equal(t, P.Inline, pd.VehicleType())
	assert.Equal(t, 2, pd.Count())
	assert.Equal(t, P.Proxy, pd.Type())
}

func TestProviderVersionBumpsOnUpdate(t *testing.T) {
	parser, err := NewProxiesParser("", "", "")
	assert.NoError(t, err)

	hc := NewHealthCheck(nil, "", 0, 0, true, nil)
	pd, err := NewInlineProvider("test", []map[string]any{
		{"name": "d1", "type": "direct"},
	}, parser, hc)
	assert.NoError(t, err)
	defer func() { _ = pd.Close() }()

	before := pd.Version()
	pd.setProxies(pd.Proxies())
	assert.Equal(t, before+1, pd.Version())
}

func TestProviderProxiesReturnsCopy(t *testing.T) {
	parser, err := NewProxiesParser("", "", "")
	assert.NoError(t, err)

	hc := NewHealthCheck(nil, "", 0, 0, true, nil)
	pd, err := NewInlineProvider("test", []map[string]any{
		{"name": "d1", "type": "direct"},
		{"name": "d2", "type": "direct"},
	}, parser, hc)
	assert.NoError(t, err)
	defer func() { _ = pd.Close() }()

	proxies := pd.Proxies()
	proxies[0], proxies[1] = nil, nil

	assert.Equal(t, "d1", pd.Proxies()[0].Name())
	assert.Equal(t, "d2", pd.Proxies()[1].Name())
}

func TestProviderMarshalJSON(t *testing.T) {
	parser, err := NewProxiesParser("", "", "")
	assert.NoError(t, err)

	hc := NewHealthCheck(nil, "", 0, 0, true, nil)
	pd, err := NewInlineProvider("test", []map[string]any{
		{"name": "d1", "type": "direct"},
	}, parser, hc)
	assert.NoError(t, err)
	defer func() { _ = pd.Close() }()

	buf, err := json.Marshal(pd)
	assert.NoError(t, err)

	mapping := map[string]any{}
	assert.NoError(t, json.Unmarshal(buf, &mapping))
	assert.Equal(t, "test", mapping["name"])
	assert.Equal(t, "Proxy", mapping["type"])
	assert.Equal(t, "Inline", mapping["vehicleType"])
	assert.NotNil(t, mapping["proxies"])
}

func TestProxiesParserFilter(t *testing.T) {
	parser, err := NewProxiesParser("HK", "", "")
	assert.NoError(t, err)

	proxies, err := parser([]byte("proxies:\n- name: HK-01\n  type: direct\n- name: US-01\n  type: direct\n"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(proxies))
	assert.Equal(t, "HK-01", proxies[0].Name())
}

func TestProxiesParserExcludeFilter(t *testing.T) {
	parser, err := NewProxiesParser("", "US", "")
	assert.NoError(t, err)

	proxies, err := parser([]byte("proxies:\n- name: HK-01\n  type: direct\n- name: US-01\n  type: direct\n"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(proxies))
	assert.Equal(t, "HK-01", proxies[0].Name())
}

func TestProxiesParserNoMatch(t *testing.T) {
	parser, err := NewProxiesParser("JP", "", "")
	assert.NoError(t, err)

	_, err = parser([]byte("proxies:\n- name: HK-01\n  type: direct\n"))
	assert.Error(t, err)
}

func TestProxiesParserEmptyPayload(t *testing.T) {
	parser, err := NewProxiesParser("", "", "")
	assert.NoError(t, err)

	_, err = parser([]byte("rules: []\n"))
	assert.Error(t, err)
}

func TestProxiesParserDedup(t *testing.T) {
	parser, err := NewProxiesParser("", "", "")
	assert.NoError(t, err)

	proxies, err := parser([]byte("proxies:\n- name: HK-01\n  type: direct\n- name: HK-01\n  type: direct\n"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(proxies))
}
