package config

import (
	"testing"

	C "github.com/windrose-proxy/windrose/constant"

	"github.com/stretchr/testify/assert"
)

func TestParseMinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
proxies:
  - name: p1
    type: direct
proxy-groups:
  - name: g1
    type: select
    proxies: [p1, DIRECT]
`))
	assert.NoError(t, err)

	for _, name := range []string{"DIRECT", "REJECT", "p1", "g1", "GLOBAL"} {
		_, ok := cfg.Proxies[name]
		assert.True(t, ok, name)
	}

	assert.Equal(t, C.Selector, cfg.Proxies["g1"].Type())

	// the hidden provider backing g1's direct members plus the default one
	assert.Contains(t, cfg.Providers, "g1")
	assert.Contains(t, cfg.Providers, ReservedName)
}

func TestParseDuplicateProxyName(t *testing.T) {
	_, err := Parse([]byte(`
proxies:
  - name: p1
    type: direct
  - name: p1
    type: direct
`))
	assert.Error(t, err)
}

func TestParseForwardReference(t *testing.T) {
	_, err := Parse([]byte(`
proxy-groups:
  - name: g1
    type: select
    proxies: [g2]
  - name: g2
    type: select
    proxies: [DIRECT]
`))
	assert.ErrorContains(t, err, "forward reference")
}

func TestParseBackwardReference(t *testing.T) {
	cfg, err := Parse([]byte(`
proxy-groups:
  - name: g1
    type: select
    proxies: [DIRECT]
  - name: g2
    type: select
    proxies: [g1]
`))
	assert.NoError(t, err)
	assert.Contains(t, cfg.Proxies, "g1")
	assert.Contains(t, cfg.Proxies, "g2")
}

func TestParseGroupSelfReference(t *testing.T) {
	_, err := Parse([]byte(`
proxy-groups:
  - name: g1
    type: select
    proxies: [g1]
`))
	assert.ErrorContains(t, err, "refers to itself")
}

func TestParseGroupLoop(t *testing.T) {
	_, err := Parse([]byte(`
proxy-groups:
  - name: g1
    type: select
    proxies: [g2]
  - name: g2
    type: select
    proxies: [g1]
`))
	assert.Error(t, err)
}

func TestParseReservedProviderName(t *testing.T) {
	_, err := Parse([]byte(`
proxy-providers:
  default:
    type: file
    path: /tmp/provider.yaml
`))
	assert.Error(t, err)
}

func TestParseGroupReferencesProvider(t *testing.T) {
	cfg, err := Parse([]byte(`
proxy-providers:
  remote:
    type: file
    path: /tmp/provider.yaml
proxy-groups:
  - name: g1
    type: url-test
    use: [remote]
    url: https://www.gstatic.com/generate_204
    interval: 300
`))
	assert.NoError(t, err)
	assert.Contains(t, cfg.Providers, "remote")
	assert.Contains(t, cfg.Proxies, "g1")
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("proxies: ]["))
	assert.Error(t, err)
}
