package provider

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/windrose-proxy/windrose/adapter/outbound"
	"github.com/windrose-proxy/windrose/common/utils"
	C "github.com/windrose-proxy/windrose/constant"

	"github.com/stretchr/testify/assert"
)

// probeProxy records probe concurrency so overlap between passes shows up.
type probeProxy struct {
	*outbound.Base
	probes      atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (p *probeProxy) Alive() bool { return true }

func (p *probeProxy) LastDelay() uint16 { return 50 }

func (p *probeProxy) DelayHistory() []C.DelayHistory { return nil }

func (p *probeProxy) URLTest(ctx context.Context, url string, expectedStatus utils.IntRanges[uint16]) (uint16, error) {
	cur := p.inFlight.Add(1)
	for {
		seen := p.maxInFlight.Load()
		if cur <= seen || p.maxInFlight.CompareAndSwap(seen, cur) {
			break
		}
	}
	time.Sleep(time.Millisecond * 10)
	p.inFlight.Add(-1)
	p.probes.Add(1)
	return 50, nil
}

func (p *probeProxy) DialContext(ctx context.Context, metadata *C.Metadata) (C.Conn, error) {
	left, right := net.Pipe()
	go func() { _ = right.Close() }()
	return outbound.NewConn(left, p), nil
}

func newProbeProxy(name string) *probeProxy {
	return &probeProxy{Base: outbound.NewBase(outbound.BaseOption{Name: name, Type: C.Direct})}
}

func TestHealthCheckPassesNeverOverlap(t *testing.T) {
	p := newProbeProxy("p")
	hc := NewHealthCheck([]C.Proxy{p}, "https://example.com", 0, 0, true, nil)
	defer hc.close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hc.check()
		}()
	}
	wg.Wait()

	// all five triggers collapse into one pass, and the single handle is
	// never probed by two passes at once
	assert.Equal(t, int32(1), p.probes.Load())
	assert.Equal(t, int32(1), p.maxInFlight.Load())
}

func TestHealthCheckSkipsWithoutURL(t *testing.T) {
	p := newProbeProxy("p")
	hc := NewHealthCheck([]C.Proxy{p}, "", 0, 0, true, nil)
	defer hc.close()

	hc.check()
	assert.Equal(t, int32(0), p.probes.Load())
}

func TestRegisterHealthCheckTaskKeepsOwnConfig(t *testing.T) {
	hc := NewHealthCheck(nil, "https://own.example.com", 0, 60, true, nil)
	defer hc.close()

	hc.registerHealthCheckTask("https://group.example.com", nil, 300)
	assert.Equal(t, "https://own.example.com", hc.url)
	assert.Equal(t, time.Minute, hc.interval)
}

func TestRegisterHealthCheckTaskAdoptsGroupConfig(t *testing.T) {
	hc := NewHealthCheck(nil, "", 0, 0, true, nil)
	defer hc.close()

	assert.False(t, hc.auto())

	hc.registerHealthCheckTask("https://group.example.com", nil, 300)
	assert.Equal(t, "https://group.example.com", hc.url)
	assert.Equal(t, time.Second*300, hc.interval)
	assert.True(t, hc.auto())
}

func TestHealthCheckLazyGate(t *testing.T) {
	hc := NewHealthCheck(nil, "https://example.com", 0, 1, true, nil)
	defer hc.close()

	// never touched: a lazy engine skips the tick
	lastTouch := hc.lastTouch.Load()
	assert.True(t, time.Since(lastTouch) >= hc.interval)

	hc.touch()
	lastTouch = hc.lastTouch.Load()
	assert.True(t, time.Since(lastTouch) < hc.interval)
}
