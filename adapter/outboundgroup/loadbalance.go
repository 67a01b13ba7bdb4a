package outboundgroup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/windrose-proxy/windrose/common/maphash"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/constant/provider"

	"github.com/samber/lo"
)

type strategyFn = func(proxies []C.Proxy, metadata *C.Metadata, touch bool) C.Proxy

type LoadBalance struct {
	*GroupBase
	disableUDP bool
	testUrl    string
	strategy   string
	strategyFn strategyFn
}

var errStrategy = errors.New("unsupported strategy")

// DialContext implements C.ProxyAdapter
func (lb *LoadBalance) DialContext(ctx context.Context, metadata *C.Metadata) (c C.Conn, err error) {
	proxy := lb.Unwrap(metadata, true)
	if proxy == nil {
		return nil, ErrNoLiveProxy
	}

	c, err = proxy.DialContext(ctx, metadata)
	if err == nil {
		c.AppendToChains(lb)
		lb.onDialSuccess()
	} else {
		lb.onDialFailed(proxy.Type(), err, lb.healthCheck)
	}
	return
}

// SupportUDP implements C.ProxyAdapter
func (lb *LoadBalance) SupportUDP() bool {
	return !lb.disableUDP
}

// jumpHash maps key onto one of buckets slots so that growing or shrinking
// the slot count only remaps ~1/buckets of the keyspace (Lamping & Veach).
func jumpHash(key uint64, buckets int32) int32 {
	var b, j int64

	for j < int64(buckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}

	return int32(b)
}

func getKey(metadata *C.Metadata) string {
	if metadata == nil {
		return ""
	}

	if metadata.Host != "" {
		return metadata.Host
	}

	if !metadata.DstIP.IsValid() {
		return ""
	}

	return metadata.DstIP.String()
}

func strategyRoundRobin() strategyFn {
	idx := 0
	idxMutex := sync.Mutex{}
	return func(proxies []C.Proxy, metadata *C.Metadata, touch bool) C.Proxy {
		idxMutex.Lock()
		defer idxMutex.Unlock()

		length := len(proxies)
		for i := 0; i < length; i++ {
			idx = (idx + 1) % length
			proxy := proxies[idx]
			if proxy.Alive() {
				return proxy
			}
		}

		return nil
	}
}

func strategyConsistentHashing() strategyFn {
	maxRetry := 5
	seed := maphash.MakeSeed()
	return func(proxies []C.Proxy, metadata *C.Metadata, touch bool) C.Proxy {
		key := maphash.String(seed, getKey(metadata))
		buckets := int32(len(proxies))
		for i := 0; i < maxRetry; i, key = i+1, key+1 {
			idx := jumpHash(key, buckets)
			proxy := proxies[idx]
			if proxy.Alive() {
				return proxy
			}
		}

		// when availability is poor, traverse the entire list to get the available nodes
		for _, proxy := range proxies {
			if proxy.Alive() {
				return proxy
			}
		}

		return nil
	}
}

// Unwrap implements C.ProxyAdapter
func (lb *LoadBalance) Unwrap(metadata *C.Metadata, touch bool) C.Proxy {
	proxies := lb.GetProxies(touch)
	return lb.strategyFn(proxies, metadata, touch)
}

// Now implements ProxyGroup
func (lb *LoadBalance) Now() string {
	return ""
}

// MarshalJSON implements C.ProxyAdapter
func (lb *LoadBalance) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": lb.Type().String(),
		"all": lo.Map(lb.GetProxies(false), func(proxy C.Proxy, _ int) string {
			return proxy.Name()
		}),
		"testUrl":  lb.testUrl,
		"strategy": lb.strategy,
	})
}

func NewLoadBalance(option *GroupCommonOption, providers []provider.ProxyProvider, strategy string) (lb *LoadBalance, err error) {
	var strategyFn strategyFn
	switch strategy {
	case "consistent-hashing":
		strategyFn = strategyConsistentHashing()
	case "round-robin":
		strategyFn = strategyRoundRobin()
	default:
		return nil, fmt.Errorf("%w: %s", errStrategy, strategy)
	}
	return &LoadBalance{
		GroupBase: NewGroupBase(GroupBaseOption{
			Name:           option.Name,
			Type:           C.LoadBalance,
			Filter:         option.Filter,
			ExcludeFilter:  option.ExcludeFilter,
			ExcludeType:    option.ExcludeType,
			TestTimeout:    option.TestTimeout,
			MaxFailedTimes: option.MaxFailedTimes,
			Providers:      providers,
		}),
		strategy:   strategy,
		strategyFn: strategyFn,
		disableUDP: option.DisableUDP,
		testUrl:    option.URL,
	}, nil
}
