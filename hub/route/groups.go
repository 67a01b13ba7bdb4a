package route

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/windrose-proxy/windrose/adapter"
	"github.com/windrose-proxy/windrose/adapter/outboundgroup"
	"github.com/windrose-proxy/windrose/common/utils"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/tunnel"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/samber/lo"
)

func groupRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", getGroups)

	r.Route("/{name}", func(r chi.Router) {
		r.Use(parseProxyName, findProxyByName)
		r.Get("/", getGroup)
		r.Get("/delay", getGroupDelay)
	})
	return r
}

func getGroups(w http.ResponseWriter, r *http.Request) {
	groups := lo.FilterMap(lo.Values(tunnel.Proxies()), func(proxy C.Proxy, _ int) (C.Proxy, bool) {
		_, ok := proxy.(*adapter.Proxy).ProxyAdapter.(outboundgroup.ProxyGroup)
		return proxy, ok
	})
	render.JSON(w, r, render.M{
		"proxies": groups,
	})
}

func getGroup(w http.ResponseWriter, r *http.Request) {
	proxy := r.Context().Value(ctxKeyProxy).(C.Proxy)
	if _, ok := proxy.(*adapter.Proxy).ProxyAdapter.(outboundgroup.ProxyGroup); ok {
		render.JSON(w, r, proxy)
		return
	}
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, ErrNotFound)
}

// getGroupDelay probes every member of the group at once and reports the
// delays of the members that answered.
func getGroupDelay(w http.ResponseWriter, r *http.Request) {
	proxy := r.Context().Value(ctxKeyProxy).(C.Proxy)
	group, ok := proxy.(*adapter.Proxy).ProxyAdapter.(outboundgroup.ProxyGroup)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrNotFound)
		return
	}

	query := r.URL.Query()
	url := query.Get("url")
	if url == "" {
		url = C.DefaultTestURL
	}

	timeout, err := strconv.ParseInt(query.Get("timeout"), 10, 16)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrBadRequest)
		return
	}

	expectedStatus, err := utils.NewUnsignedRanges[uint16](query.Get("expected"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Millisecond*time.Duration(timeout))
	defer cancel()

	dm, err := group.URLTest(ctx, url, expectedStatus)
	if err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, newError(err.Error()))
		return
	}

	render.JSON(w, r, dm)
}
