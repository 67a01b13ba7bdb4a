package provider

import (
	"github.com/windrose-proxy/windrose/common/utils"
	C "github.com/windrose-proxy/windrose/constant"
)

// Vehicle Type
const (
	File VehicleType = iota
	HTTP
	Compatible
	Inline
)

// VehicleType defined the data source backing a provider's handle list
type VehicleType int

func (v VehicleType) String() string {
	switch v {
	case File:
		return "File"
	case HTTP:
		return "HTTP"
	case Compatible:
		return "Compatible"
	case Inline:
		return "Inline"
	default:
		return "Unknown"
	}
}

type Vehicle interface {
	Read() ([]byte, error)
	Path() string
	Type() VehicleType
}

// Provider Type
const (
	Proxy ProviderType = iota
	Rule
)

// ProviderType defined
type ProviderType int

func (pt ProviderType) String() string {
	switch pt {
	case Proxy:
		return "Proxy"
	case Rule:
		return "Rule"
	default:
		return "Unknown"
	}
}

// Provider interface
type Provider interface {
	Name() string
	VehicleType() VehicleType
	Type() ProviderType
	Initial() error
	Update() error
}

// ProxyProvider interface
type ProxyProvider interface {
	Provider
	Proxies() []C.Proxy
	Count() int

	// Version increases on every handle-set replacement, groups use it to
	// invalidate their member cache.
	Version() uint32

	// Touch is used to inform the provider that the proxy is actually being
	// used while getting the list of proxies. Commonly used in lazy health
	// check scenarios.
	Touch()
	HealthCheck()
	HealthCheckURL() string

	// RegisterHealthCheckTask lets a group drive the provider's engine with
	// the group's test url and interval when the provider configured none.
	RegisterHealthCheckTask(url string, expectedStatus utils.IntRanges[uint16], interval uint)
	Close() error
}
