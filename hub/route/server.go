package route

import (
	"net/http"
	"net/url"

	"github.com/windrose-proxy/windrose/log"

	"github.com/go-chi/chi/v5"
)

// Router assembles the external controller surface.
func Router() *chi.Mux {
	r := chi.NewRouter()

	r.Mount("/proxies", proxyRouter())
	r.Mount("/group", groupRouter())
	r.Mount("/providers/proxies", proxyProviderRouter())

	return r
}

// Start serves the external controller on addr and blocks.
func Start(addr string) error {
	log.Infoln("RESTful API listening at: %s", addr)
	return http.ListenAndServe(addr, Router())
}

func getEscapeParam(r *http.Request, paramName string) string {
	param := chi.URLParam(r, paramName)
	if newParam, err := url.PathUnescape(param); err == nil {
		param = newParam
	}
	return param
}
