package outboundgroup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/windrose-proxy/windrose/adapter/provider"
	"github.com/windrose-proxy/windrose/common/structure"
	"github.com/windrose-proxy/windrose/common/utils"
	C "github.com/windrose-proxy/windrose/constant"
	types "github.com/windrose-proxy/windrose/constant/provider"
)

var (
	errFormat            = errors.New("format error")
	errType              = errors.New("unsupported type")
	errMissProxy         = errors.New("`use` or `proxies` missing")
	errMissHealthCheck   = errors.New("`url` or `interval` missing")
	errDuplicateProvider = errors.New("duplicate provider name")
	errMissProvider      = errors.New("provider not found")
	errMissProxyName     = errors.New("proxy not found")
)

type GroupCommonOption struct {
	Name           string   `group:"name"`
	Type           string   `group:"type"`
	Proxies        []string `group:"proxies,omitempty"`
	Use            []string `group:"use,omitempty"`
	URL            string   `group:"url,omitempty"`
	Interval       int      `group:"interval,omitempty"`
	TestTimeout    int      `group:"timeout,omitempty"`
	MaxFailedTimes int      `group:"max-failed-times,omitempty"`
	Lazy           bool     `group:"lazy,omitempty"`
	DisableUDP     bool     `group:"disable-udp,omitempty"`
	Filter         string   `group:"filter,omitempty"`
	ExcludeFilter  string   `group:"exclude-filter,omitempty"`
	ExcludeType    string   `group:"exclude-type,omitempty"`
	ExpectedStatus string   `group:"expected-status,omitempty"`
}

func ParseProxyGroup(config map[string]any, proxyMap map[string]C.Proxy, providersMap map[string]types.ProxyProvider) (C.ProxyAdapter, error) {
	decoder := structure.NewDecoder(structure.Option{TagName: "group", WeaklyTypedInput: true})

	groupOption := &GroupCommonOption{
		Lazy: true,
	}
	if err := decoder.Decode(config, groupOption); err != nil {
		return nil, errFormat
	}

	if groupOption.Type == "" || groupOption.Name == "" {
		return nil, errFormat
	}

	groupName := groupOption.Name

	providers := []types.ProxyProvider{}

	if len(groupOption.Proxies) == 0 && len(groupOption.Use) == 0 {
		return nil, fmt.Errorf("%s: %w", groupName, errMissProxy)
	}

	expectedStatus, err := utils.NewUnsignedRanges[uint16](groupOption.ExpectedStatus)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", groupName, err)
	}

	status := strings.TrimSpace(groupOption.ExpectedStatus)
	if status == "" {
		status = "*"
	}
	groupOption.ExpectedStatus = status

	// probing strategies drive their members through health checks, so the
	// probe endpoint must be configured up front
	testEnabled := groupOption.Type == "url-test" || groupOption.Type == "fallback" || groupOption.Type == "load-balance"
	if testEnabled && (groupOption.URL == "" || groupOption.Interval == 0) {
		return nil, fmt.Errorf("%s: %w", groupName, errMissHealthCheck)
	}

	if len(groupOption.Use) != 0 {
		PDs, err := getProviders(providersMap, groupOption.Use)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", groupName, err)
		}

		// a provider that carries no health check of its own adopts the
		// group's probe settings
		if groupOption.URL != "" {
			addTestURLToProviders(PDs, groupOption.URL, expectedStatus, uint(groupOption.Interval))
		}
		providers = append(providers, PDs...)
	}

	if len(groupOption.Proxies) != 0 {
		ps, err := getProxies(proxyMap, groupOption.Proxies)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", groupName, err)
		}

		if _, ok := providersMap[groupName]; ok {
			return nil, fmt.Errorf("%s: %w", groupName, errDuplicateProvider)
		}

		var url string
		var interval uint
		if testEnabled {
			url = groupOption.URL
			interval = uint(groupOption.Interval)
		}

		hc := provider.NewHealthCheck(ps, url, uint(groupOption.TestTimeout), interval, groupOption.Lazy, expectedStatus)

		pd, err := provider.NewCompatibleProvider(groupName, ps, hc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", groupName, err)
		}

		providers = append([]types.ProxyProvider{pd}, providers...)
		providersMap[groupName] = pd
	}

	var group C.ProxyAdapter
	switch groupOption.Type {
	case "url-test":
		opts := parseURLTestOption(config)
		group = NewURLTest(groupOption, providers, opts...)
	case "select":
		group = NewSelector(groupOption, providers)
	case "fallback":
		group = NewFallback(groupOption, providers)
	case "load-balance":
		strategy := parseStrategy(config)
		return NewLoadBalance(groupOption, providers, strategy)
	case "relay":
		group = NewRelay(groupOption, providers)
	default:
		return nil, fmt.Errorf("%w: %s", errType, groupOption.Type)
	}

	return group, nil
}

func getProxies(mapping map[string]C.Proxy, list []string) ([]C.Proxy, error) {
	ps := []C.Proxy{}
	for _, name := range list {
		p, ok := mapping[name]
		if !ok {
			return nil, fmt.Errorf("'%s' %w", name, errMissProxyName)
		}
		ps = append(ps, p)
	}

	return ps, nil
}

func getProviders(mapping map[string]types.ProxyProvider, list []string) ([]types.ProxyProvider, error) {
	ps := []types.ProxyProvider{}
	for _, name := range list {
		p, ok := mapping[name]
		if !ok {
			return nil, fmt.Errorf("'%s' %w", name, errMissProvider)
		}

		if p.VehicleType() == types.Compatible {
			return nil, fmt.Errorf("proxy group %s can't contains in `use`", name)
		}
		ps = append(ps, p)
	}

	return ps, nil
}

func addTestURLToProviders(providers []types.ProxyProvider, url string, expectedStatus utils.IntRanges[uint16], interval uint) {
	if len(providers) == 0 {
		return
	}

	for _, pd := range providers {
		pd.RegisterHealthCheckTask(url, expectedStatus, interval)
	}
}

func parseStrategy(config map[string]any) string {
	if strategy, ok := config["strategy"].(string); ok {
		return strategy
	}
	return "round-robin"
}
