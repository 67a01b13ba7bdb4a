package config

import (
	"fmt"

	"github.com/windrose-proxy/windrose/adapter"
	"github.com/windrose-proxy/windrose/adapter/outbound"
	"github.com/windrose-proxy/windrose/adapter/outboundgroup"
	"github.com/windrose-proxy/windrose/adapter/provider"
	C "github.com/windrose-proxy/windrose/constant"
	providerTypes "github.com/windrose-proxy/windrose/constant/provider"

	"gopkg.in/yaml.v3"
)

// ReservedName is the provider name backing the GLOBAL group; user
// configuration must not claim it.
const ReservedName = "default"

type RawConfig struct {
	Proxies        []map[string]any          `yaml:"proxies"`
	ProxyGroups    []map[string]any          `yaml:"proxy-groups"`
	ProxyProviders map[string]map[string]any `yaml:"proxy-providers"`
}

type Config struct {
	Proxies   map[string]C.Proxy
	Providers map[string]providerTypes.ProxyProvider
}

func UnmarshalRawConfig(buf []byte) (*RawConfig, error) {
	rawCfg := &RawConfig{}
	if err := yaml.Unmarshal(buf, rawCfg); err != nil {
		return nil, err
	}
	return rawCfg, nil
}

func Parse(buf []byte) (*Config, error) {
	rawCfg, err := UnmarshalRawConfig(buf)
	if err != nil {
		return nil, err
	}

	return ParseRawConfig(rawCfg)
}

func ParseRawConfig(rawCfg *RawConfig) (*Config, error) {
	config := &Config{}

	proxies, providers, err := parseProxies(rawCfg)
	if err != nil {
		return nil, err
	}
	config.Proxies = proxies
	config.Providers = providers

	return config, nil
}

// parseProxies builds the adapter registry in two passes: endpoints and
// providers first, then groups in declared order. A group may only reference
// proxies and groups that appear before it.
func parseProxies(cfg *RawConfig) (map[string]C.Proxy, map[string]providerTypes.ProxyProvider, error) {
	proxies := make(map[string]C.Proxy)
	providersMap := make(map[string]providerTypes.ProxyProvider)
	proxiesConfig := cfg.Proxies
	groupsConfig := cfg.ProxyGroups
	providersConfig := cfg.ProxyProviders

	var proxyList []string

	proxies["DIRECT"] = adapter.NewProxy(outbound.NewDirect())
	proxies["REJECT"] = adapter.NewProxy(outbound.NewReject())
	proxyList = append(proxyList, "DIRECT", "REJECT")

	// parse proxy
	for idx, mapping := range proxiesConfig {
		proxy, err := adapter.ParseProxy(mapping)
		if err != nil {
			return nil, nil, fmt.Errorf("proxy %d: %w", idx, err)
		}

		if _, exist := proxies[proxy.Name()]; exist {
			return nil, nil, fmt.Errorf("proxy %s is the duplicate name", proxy.Name())
		}
		proxies[proxy.Name()] = proxy
		proxyList = append(proxyList, proxy.Name())
	}

	// keep the original order of groups in config file
	for idx, mapping := range groupsConfig {
		groupName, existName := mapping["name"].(string)
		if !existName {
			return nil, nil, fmt.Errorf("proxy group %d: missing name", idx)
		}
		proxyList = append(proxyList, groupName)
	}

	// reject forward references and loops before building the groups
	if err := verifyProxyGroupOrder(groupsConfig); err != nil {
		return nil, nil, err
	}

	// parse and initial providers
	for name, mapping := range providersConfig {
		if name == ReservedName {
			return nil, nil, fmt.Errorf("can not defined a provider called `%s`", ReservedName)
		}

		pd, err := provider.ParseProxyProvider(name, mapping)
		if err != nil {
			return nil, nil, fmt.Errorf("parse proxy provider %s error: %w", name, err)
		}

		providersMap[name] = pd
	}

	// parse proxy group
	for idx, mapping := range groupsConfig {
		group, err := outboundgroup.ParseProxyGroup(mapping, proxies, providersMap)
		if err != nil {
			return nil, nil, fmt.Errorf("proxy group[%d]: %w", idx, err)
		}

		groupName := group.Name()
		if _, exist := proxies[groupName]; exist {
			return nil, nil, fmt.Errorf("proxy group %s: the duplicate name", groupName)
		}

		proxies[groupName] = adapter.NewProxy(group)
	}

	var ps []C.Proxy
	for _, v := range proxyList {
		ps = append(ps, proxies[v])
	}
	hc := provider.NewHealthCheck(ps, "", 0, 0, true, nil)
	pd, _ := provider.NewCompatibleProvider(ReservedName, ps, hc)
	providersMap[ReservedName] = pd

	global := outboundgroup.NewSelector(
		&outboundgroup.GroupCommonOption{
			Name: "GLOBAL",
		},
		[]providerTypes.ProxyProvider{pd},
	)
	proxies["GLOBAL"] = adapter.NewProxy(global)
	return proxies, providersMap, nil
}
