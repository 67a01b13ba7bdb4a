package executor

import (
	"github.com/windrose-proxy/windrose/config"
	"github.com/windrose-proxy/windrose/constant/provider"
	"github.com/windrose-proxy/windrose/log"
	"github.com/windrose-proxy/windrose/tunnel"

	"golang.org/x/sync/errgroup"
)

// ApplyConfig initializes every provider of a freshly parsed configuration
// and swaps the result into the running registry.
func ApplyConfig(cfg *config.Config) {
	loadProxyProviders(cfg.Providers)
	tunnel.UpdateProxies(cfg.Proxies, cfg.Providers)
}

func loadProxyProviders(providers map[string]provider.ProxyProvider) {
	var g errgroup.Group
	g.SetLimit(10)

	for _, pd := range providers {
		pd := pd
		g.Go(func() error {
			loadProvider(pd)
			return nil
		})
	}

	_ = g.Wait()
}

func loadProvider(pd provider.ProxyProvider) {
	if err := pd.Initial(); err != nil {
		log.Errorln("initial proxy provider %s error: %v", pd.Name(), err)
	}
}
