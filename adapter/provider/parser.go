package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/windrose-proxy/windrose/common/structure"
	"github.com/windrose-proxy/windrose/common/utils"
	"github.com/windrose-proxy/windrose/component/resource"
	C "github.com/windrose-proxy/windrose/constant"
	P "github.com/windrose-proxy/windrose/constant/provider"
)

var errVehicleType = errors.New("unsupport vehicle type")

type healthCheckSchema struct {
	Enable         bool   `provider:"enable"`
	URL            string `provider:"url"`
	Interval       int    `provider:"interval"`
	TestTimeout    int    `provider:"timeout,omitempty"`
	Lazy           bool   `provider:"lazy,omitempty"`
	ExpectedStatus string `provider:"expected-status,omitempty"`
}

type proxyProviderSchema struct {
	Type          string              `provider:"type"`
	Path          string              `provider:"path,omitempty"`
	URL           string              `provider:"url,omitempty"`
	Interval      int                 `provider:"interval,omitempty"`
	Filter        string              `provider:"filter,omitempty"`
	ExcludeFilter string              `provider:"exclude-filter,omitempty"`
	ExcludeType   string              `provider:"exclude-type,omitempty"`
	SizeLimit     int64               `provider:"size-limit,omitempty"`
	Payload       []map[string]any    `provider:"payload,omitempty"`
	Header        map[string][]string `provider:"header,omitempty"`

	HealthCheck healthCheckSchema `provider:"health-check,omitempty"`
}

func ParseProxyProvider(name string, mapping map[string]any) (P.ProxyProvider, error) {
	decoder := structure.NewDecoder(structure.Option{TagName: "provider", WeaklyTypedInput: true})

	schema := &proxyProviderSchema{
		HealthCheck: healthCheckSchema{
			Lazy: true,
		},
	}
	if err := decoder.Decode(mapping, schema); err != nil {
		return nil, err
	}

	expectedStatus, err := utils.NewUnsignedRanges[uint16](schema.HealthCheck.ExpectedStatus)
	if err != nil {
		return nil, err
	}

	var hcInterval uint
	if schema.HealthCheck.Enable {
		if schema.HealthCheck.Interval == 0 {
			schema.HealthCheck.Interval = 300
		}
		hcInterval = uint(schema.HealthCheck.Interval)
	}
	hc := NewHealthCheck([]C.Proxy{}, schema.HealthCheck.URL, uint(schema.HealthCheck.TestTimeout), hcInterval, schema.HealthCheck.Lazy, expectedStatus)

	parser, err := NewProxiesParser(schema.Filter, schema.ExcludeFilter, schema.ExcludeType)
	if err != nil {
		return nil, err
	}

	var vehicle P.Vehicle
	switch schema.Type {
	case "file":
		if schema.Path == "" {
			return nil, errors.New("file provider need a `path`")
		}
		vehicle = resource.NewFileVehicle(schema.Path)
	case "http":
		if schema.URL == "" {
			return nil, errors.New("http provider need a `url`")
		}
		vehicle = resource.NewHTTPVehicle(schema.URL, schema.Path, http.Header(schema.Header), resource.DefaultHTTPTimeout, schema.SizeLimit)
	case "inline":
		return NewInlineProvider(name, schema.Payload, parser, hc)
	default:
		return nil, fmt.Errorf("%w: %s", errVehicleType, schema.Type)
	}

	interval := time.Duration(uint(schema.Interval)) * time.Second
	return NewProxySetProvider(name, interval, parser, vehicle, hc)
}
