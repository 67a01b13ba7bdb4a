package provider

import (
	"testing"

	P "github.com/windrose-proxy/windrose/constant/provider"

	"github.com/stretchr/testify/assert"
)

func TestParseProxyProviderInline(t *testing.T) {
	pd, err := ParseProxyProvider("test", map[string]any{
		"type": "inline",
		"payload": []map[string]any{
			{"name": "d1", "type": "direct"},
		},
	})
	assert.NoError(t, err)
	defer func() { _ = pd.Close() }()

	assert.Equal(t, P.Inline, pd.VehicleType())
	assert.Equal(t, 1, pd.Count())
}

func TestParseProxyProviderFileNeedsPath(t *testing.T) {
	_, err := ParseProxyProvider("test", map[string]any{
		"type": "file",
	})
	assert.Error(t, err)
}

func TestParseProxyProviderHTTPNeedsURL(t *testing.T) {
	_, err := ParseProxyProvider("test", map[string]any{
		"type": "http",
	})
	assert.Error(t, err)
}

func TestParseProxyProviderUnknownVehicle(t *testing.T) {
	_, err := ParseProxyProvider("test", map[string]any{
		"type": "carrier-pigeon",
	})
	assert.ErrorIs(t, err, errVehicleType)
}

func TestParseProxyProviderFile(t *testing.T) {
	pd, err := ParseProxyProvider("test", map[string]any{
		"type": "file",
		"path": "/tmp/provider.yaml",
		"health-check": map[string]any{
			"enable":   true,
			"url":      "https://www.gstatic.com/generate_204",
			"interval": 0,
		},
	})
	assert.NoError(t, err)
	defer func() { _ = pd.Close() }()

	assert.Equal(t, P.File, pd.VehicleType())
	assert.Equal(t, "https://www.gstatic.com/generate_204", pd.HealthCheckURL())
}

func TestParseProxyProviderBadExpectedStatus(t *testing.T) {
	_, err := ParseProxyProvider("test", map[string]any{
		"type": "file",
		"path": "/tmp/provider.yaml",
		"health-check": map[string]any{
			"enable":          true,
			"url":             "https://www.gstatic.com/generate_204",
			"interval":        300,
			"expected-status": "2xx",
		},
	})
	assert.Error(t, err)
}
