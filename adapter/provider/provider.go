package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/windrose-proxy/windrose/adapter"
	"github.com/windrose-proxy/windrose/common/utils"
	"github.com/windrose-proxy/windrose/component/resource"
	C "github.com/windrose-proxy/windrose/constant"
	P "github.com/windrose-proxy/windrose/constant/provider"

	"github.com/dlclark/regexp2"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

type ProxySchema struct {
	Proxies []map[string]any `yaml:"proxies"`
}

type providerForApi struct {
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	VehicleType    string    `json:"vehicleType"`
	Proxies        []C.Proxy `json:"proxies"`
	TestUrl        string    `json:"testUrl"`
	ExpectedStatus string    `json:"expectedStatus"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}

type baseProvider struct {
	mutex       sync.RWMutex
	name        string
	proxies     []C.Proxy
	healthCheck *HealthCheck
	version     uint32
}

func (bp *baseProvider) Name() string {
	return bp.name
}

func (bp *baseProvider) Version() uint32 {
	bp.mutex.RLock()
	defer bp.mutex.RUnlock()
	return bp.version
}

func (bp *baseProvider) Initial() error {
	if bp.healthCheck.auto() {
		go bp.healthCheck.process()
	}
	return nil
}

func (bp *baseProvider) HealthCheck() {
	bp.healthCheck.check()
}

func (bp *baseProvider) Type() P.ProviderType {
	return P.Proxy
}

// Proxies hands out a copy so callers cannot corrupt the provider's set.
func (bp *baseProvider) Proxies() []C.Proxy {
	bp.mutex.RLock()
	defer bp.mutex.RUnlock()
	return slices.Clone(bp.proxies)
}

func (bp *baseProvider) Count() int {
	bp.mutex.RLock()
	defer bp.mutex.RUnlock()
	return len(bp.proxies)
}

func (bp *baseProvider) Touch() {
	bp.healthCheck.touch()
}

func (bp *baseProvider) HealthCheckURL() string {
	return bp.healthCheck.url
}

func (bp *baseProvider) RegisterHealthCheckTask(url string, expectedStatus utils.IntRanges[uint16], interval uint) {
	bp.healthCheck.registerHealthCheckTask(url, expectedStatus, interval)
}

func (bp *baseProvider) setProxies(proxies []C.Proxy) {
	bp.mutex.Lock()
	bp.proxies = proxies
	bp.version += 1
	bp.mutex.Unlock()

	bp.healthCheck.setProxies(proxies)
	if bp.healthCheck.auto() {
		go bp.healthCheck.check()
	}
}

func (bp *baseProvider) Close() error {
	bp.healthCheck.close()
	return nil
}

// ProxySetProvider for auto gc
type ProxySetProvider struct {
	*proxySetProvider
}

type proxySetProvider struct {
	baseProvider
	*resource.Fetcher[[]C.Proxy]
}

func (pp *proxySetProvider) MarshalJSON() ([]byte, error) {
	return json.Marshal(providerForApi{
		Name:           pp.Name(),
		Type:           pp.Type().String(),
		VehicleType:    pp.VehicleType().String(),
		Proxies:        pp.Proxies(),
		TestUrl:        pp.healthCheck.url,
		ExpectedStatus: pp.healthCheck.expectedStatus.String(),
		UpdatedAt:      pp.UpdatedAt(),
	})
}

func (pp *proxySetProvider) Name() string {
	return pp.Fetcher.Name()
}

func (pp *proxySetProvider) Update() error {
	elm, same, err := pp.Fetcher.Update()
	if err == nil && !same {
		pp.setProxies(elm)
	}
	return err
}

func (pp *proxySetProvider) Initial() error {
	if err := pp.baseProvider.Initial(); err != nil {
		return err
	}
	elm, err := pp.Fetcher.Initial()
	if err != nil {
		return err
	}
	pp.setProxies(elm)
	return nil
}

func (pp *proxySetProvider) Close() error {
	_ = pp.baseProvider.Close()
	return pp.Fetcher.Close()
}

func NewProxySetProvider(name string, interval time.Duration, parser resource.Parser[[]C.Proxy], vehicle P.Vehicle, hc *HealthCheck) (*ProxySetProvider, error) {
	pd := &proxySetProvider{
		baseProvider: baseProvider{
			name:        name,
			proxies:     []C.Proxy{},
			healthCheck: hc,
		},
	}

	fetcher := resource.NewFetcher[[]C.Proxy](name, interval, vehicle, parser, pd.setProxies)
	pd.Fetcher = fetcher

	wrapper := &ProxySetProvider{pd}
	runtime.SetFinalizer(wrapper, (*ProxySetProvider).Close)
	return wrapper, nil
}

func (pp *ProxySetProvider) Close() error {
	runtime.SetFinalizer(pp, nil)
	return pp.proxySetProvider.Close()
}

// InlineProvider for auto gc
type InlineProvider struct {
	*inlineProvider
}

type inlineProvider struct {
	baseProvider
	updateAt time.Time
}

func (ip *inlineProvider) MarshalJSON() ([]byte, error) {
	return json.Marshal(providerForApi{
		Name:           ip.Name(),
		Type:           ip.Type().String(),
		VehicleType:    ip.VehicleType().String(),
		Proxies:        ip.Proxies(),
		TestUrl:        ip.healthCheck.url,
		ExpectedStatus: ip.healthCheck.expectedStatus.String(),
		UpdatedAt:      ip.updateAt,
	})
}

func (ip *inlineProvider) VehicleType() P.VehicleType {
	return P.Inline
}

func (ip *inlineProvider) Update() error {
	// make api update happy
	ip.updateAt = time.Now()
	return nil
}

func NewInlineProvider(name string, payload []map[string]any, parser resource.Parser[[]C.Proxy], hc *HealthCheck) (*InlineProvider, error) {
	ps := ProxySchema{Proxies: payload}
	buf, err := yaml.Marshal(ps)
	if err != nil {
		return nil, err
	}
	proxies, err := parser(buf)
	if err != nil {
		return nil, err
	}
	// direct call setProxies on hc to avoid starting a health check
	// process immediately, it should be done by Initial()
	hc.setProxies(proxies)

	ip := &inlineProvider{
		baseProvider: baseProvider{
			name:        name,
			proxies:     proxies,
			healthCheck: hc,
		},
		updateAt: time.Now(),
	}
	wrapper := &InlineProvider{ip}
	runtime.SetFinalizer(wrapper, (*InlineProvider).Close)
	return wrapper, nil
}

func (ip *InlineProvider) Close() error {
	runtime.SetFinalizer(ip, nil)
	return ip.baseProvider.Close()
}

// CompatibleProvider for auto gc
type CompatibleProvider struct {
	*compatibleProvider
}

type compatibleProvider struct {
	baseProvider
}

func (cp *compatibleProvider) MarshalJSON() ([]byte, error) {
	return json.Marshal(providerForApi{
		Name:           cp.Name(),
		Type:           cp.Type().String(),
		VehicleType:    cp.VehicleType().String(),
		Proxies:        cp.Proxies(),
		TestUrl:        cp.healthCheck.url,
		ExpectedStatus: cp.healthCheck.expectedStatus.String(),
	})
}

func (cp *compatibleProvider) Update() error {
	return nil
}

func (cp *compatibleProvider) VehicleType() P.VehicleType {
	return P.Compatible
}

func NewCompatibleProvider(name string, proxies []C.Proxy, hc *HealthCheck) (*CompatibleProvider, error) {
	if len(proxies) == 0 {
		return nil, errors.New("provider need one proxy at least")
	}

	hc.setProxies(proxies)
	pd := &compatibleProvider{
		baseProvider: baseProvider{
			name:        name,
			proxies:     proxies,
			healthCheck: hc,
		},
	}

	wrapper := &CompatibleProvider{pd}
	runtime.SetFinalizer(wrapper, (*CompatibleProvider).Close)
	return wrapper, nil
}

func (cp *CompatibleProvider) Close() error {
	runtime.SetFinalizer(cp, nil)
	return cp.compatibleProvider.Close()
}

// NewProxiesParser builds the payload parser shared by inline and
// vehicle-backed providers: YAML schema in, filtered wrapped handles out.
func NewProxiesParser(filter string, excludeFilter string, excludeType string) (resource.Parser[[]C.Proxy], error) {
	var excludeTypeArray []string
	if excludeType != "" {
		excludeTypeArray = strings.Split(excludeType, "|")
	}

	var excludeFilterReg *regexp2.Regexp
	if excludeFilter != "" {
		reg, err := regexp2.Compile(excludeFilter, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("invalid excludeFilter regex: %w", err)
		}
		excludeFilterReg = reg
	}

	var filterRegs []*regexp2.Regexp
	for _, f := range strings.Split(filter, "`") {
		if f == "" {
			continue
		}
		filterReg, err := regexp2.Compile(f, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("invalid filter regex: %w", err)
		}
		filterRegs = append(filterRegs, filterReg)
	}

	return func(buf []byte) ([]C.Proxy, error) {
		schema := &ProxySchema{}
		if err := yaml.Unmarshal(buf, schema); err != nil {
			return nil, err
		}

		if schema.Proxies == nil {
			return nil, errors.New("file must have a `proxies` field")
		}

		proxies := []C.Proxy{}
		proxiesSet := map[string]struct{}{}
	LOOP:
		for idx, mapping := range schema.Proxies {
			if len(excludeTypeArray) > 0 {
				pType, ok := mapping["type"].(string)
				if !ok {
					continue
				}
				for _, excluded := range excludeTypeArray {
					if strings.EqualFold(pType, excluded) {
						continue LOOP
					}
				}
			}

			name, ok := mapping["name"].(string)
			if !ok {
				continue
			}
			if excludeFilterReg != nil {
				if mat, _ := excludeFilterReg.MatchString(name); mat {
					continue
				}
			}
			if len(filterRegs) > 0 {
				matched := false
				for _, filterReg := range filterRegs {
					if mat, _ := filterReg.MatchString(name); mat {
						matched = true
						break
					}
				}
				if !matched {
					continue
				}
			}
			if _, ok := proxiesSet[name]; ok {
				continue
			}

			proxy, err := adapter.ParseProxy(mapping)
			if err != nil {
				return nil, fmt.Errorf("proxy %d error: %w", idx, err)
			}

			proxiesSet[name] = struct{}{}
			proxies = append(proxies, proxy)
		}

		if len(proxies) == 0 {
			if len(filter) > 0 {
				return nil, errors.New("doesn't match any proxy, please check your filter")
			}
			return nil, errors.New("file doesn't have any proxy")
		}

		return proxies, nil
	}, nil
}
