package provider

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/windrose-proxy/windrose/common/atomic"
	"github.com/windrose-proxy/windrose/common/singledo"
	"github.com/windrose-proxy/windrose/common/utils"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/log"

	"golang.org/x/sync/errgroup"
)

const (
	defaultHealthCheckTimeout = 5000 // ms
	maxConcurrentProbes       = 10
)

type HealthCheckOption struct {
	URL      string
	Interval uint
}

// HealthCheck drives liveness probing for one provider's handle set.
// A pass probes every handle concurrently but passes themselves never
// overlap: check() funnels through a single-flight gate, so a forced check
// racing the timer results in one pass observed by both.
type HealthCheck struct {
	ctx            context.Context
	ctxCancel      context.CancelFunc
	mu             sync.Mutex
	url            string
	proxies        []C.Proxy
	interval       time.Duration
	lazy           bool
	expectedStatus utils.IntRanges[uint16]
	lastTouch      atomic.TypedValue[time.Time]
	singleDo       *singledo.Single[struct{}]
	timeout        time.Duration
}

func (hc *HealthCheck) process() {
	ticker := time.NewTicker(hc.interval)
	go hc.check()
	for {
		select {
		case <-ticker.C:
			lastTouch := hc.lastTouch.Load()
			since := time.Since(lastTouch)
			if !hc.lazy || since < hc.interval {
				hc.check()
			} else {
				log.Debugln("Skip once health check because we are lazy")
			}
		case <-hc.ctx.Done():
			ticker.Stop()
			return
		}
	}
}

func (hc *HealthCheck) setProxies(proxies []C.Proxy) {
	hc.mu.Lock()
	hc.proxies = proxies
	hc.mu.Unlock()
}

// registerHealthCheckTask lets a probing group drive this engine. The
// provider's own configuration wins; the group's url and interval are only
// adopted where the provider configured none.
func (hc *HealthCheck) registerHealthCheckTask(url string, expectedStatus utils.IntRanges[uint16], interval uint) {
	url = strings.TrimSpace(url)
	if len(url) == 0 {
		return
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()

	if hc.url == "" {
		hc.url = url
		hc.expectedStatus = expectedStatus
	}
	if hc.interval == 0 {
		hc.interval = time.Duration(interval) * time.Second
	}
}

func (hc *HealthCheck) auto() bool {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.interval != 0
}

func (hc *HealthCheck) touch() {
	hc.lastTouch.Store(time.Now())
}

func (hc *HealthCheck) check() {
	hc.mu.Lock()
	proxies := hc.proxies
	url := strings.TrimSpace(hc.url)
	expectedStatus := hc.expectedStatus
	hc.mu.Unlock()

	if len(proxies) == 0 || len(url) == 0 {
		return
	}

	_, _, _ = hc.singleDo.Do(func() (struct{}, error) {
		id := utils.NewUUIDV4().String()
		log.Debugln("Start New Health Checking {%s}", id)

		b := new(errgroup.Group)
		b.SetLimit(maxConcurrentProbes)
		for _, proxy := range proxies {
			p := proxy
			b.Go(func() error {
				ctx, cancel := context.WithTimeout(hc.ctx, hc.timeout)
				defer cancel()
				log.Debugln("Health Checking, proxy: %s, url: %s, id: {%s}", p.Name(), url, id)
				_, _ = p.URLTest(ctx, url, expectedStatus)
				log.Debugln("Health Checked, proxy: %s, url: %s, alive: %t, delay: %d ms id: {%s}", p.Name(), url, p.Alive(), p.LastDelay(), id)
				return nil
			})
		}
		_ = b.Wait()

		log.Debugln("Finish A Health Checking {%s}", id)
		return struct{}{}, nil
	})
}

func (hc *HealthCheck) close() {
	hc.ctxCancel()
}

func NewHealthCheck(proxies []C.Proxy, url string, timeout uint, interval uint, lazy bool, expectedStatus utils.IntRanges[uint16]) *HealthCheck {
	if url == "" {
		expectedStatus = nil
		interval = 0
	}
	if timeout == 0 {
		timeout = defaultHealthCheckTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &HealthCheck{
		ctx:            ctx,
		ctxCancel:      cancel,
		proxies:        proxies,
		url:            url,
		timeout:        time.Duration(timeout) * time.Millisecond,
		interval:       time.Duration(interval) * time.Second,
		lazy:           lazy,
		expectedStatus: expectedStatus,
		singleDo:       singledo.NewSingle[struct{}](time.Second),
	}
}
