package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve runs a scrape endpoint on addr at /debug/prometheus. Blocks until
// the listener fails.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/debug/prometheus", Handler())
	return http.ListenAndServe(addr, mux)
}
