package route

import (
	"context"
	"net/http"

	"github.com/windrose-proxy/windrose/constant/provider"
	"github.com/windrose-proxy/windrose/tunnel"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/samber/lo"
)

const (
	ctxKeyProviderName = contextKey("provider name")
	ctxKeyProvider     = contextKey("provider")
)

func proxyProviderRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", getProviders)

	r.Route("/{providerName}", func(r chi.Router) {
		r.Use(parseProviderName, findProviderByName)
		r.Get("/", getProvider)
		r.Put("/", updateProvider)
		r.Get("/healthcheck", healthCheckProvider)
	})
	return r
}

func parseProviderName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := getEscapeParam(r, "providerName")
		ctx := context.WithValue(r.Context(), ctxKeyProviderName, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func findProviderByName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.Context().Value(ctxKeyProviderName).(string)
		pd, exist := tunnel.FindProviderByName(name)
		if !exist {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrNotFound)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyProvider, pd)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getProviders(w http.ResponseWriter, r *http.Request) {
	providers := tunnel.ProxyProviders()

	// hide the per-group compatible providers, they mirror the groups
	visible := lo.PickBy(providers, func(_ string, pd provider.ProxyProvider) bool {
		return pd.VehicleType() != provider.Compatible
	})

	render.JSON(w, r, render.M{
		"providers": visible,
	})
}

func getProvider(w http.ResponseWriter, r *http.Request) {
	pd := r.Context().Value(ctxKeyProvider).(provider.ProxyProvider)
	render.JSON(w, r, pd)
}

func updateProvider(w http.ResponseWriter, r *http.Request) {
	pd := r.Context().Value(ctxKeyProvider).(provider.ProxyProvider)
	if err := pd.Update(); err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, newError(err.Error()))
		return
	}
	render.NoContent(w, r)
}

func healthCheckProvider(w http.ResponseWriter, r *http.Request) {
	pd := r.Context().Value(ctxKeyProvider).(provider.ProxyProvider)
	pd.HealthCheck()
	render.NoContent(w, r)
}
