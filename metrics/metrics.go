// Package metrics exposes prometheus collectors over HTTP.
package metrics

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.anonvote.io/avote/log"
)

// Agent serves the registered collectors.
type Agent struct {
	Path string
}

// NewAgent mounts the prometheus handler at path on router.
func NewAgent(path string, router chi.Router) *Agent {
	ma := Agent{Path: path}
	router.Method(http.MethodGet, path, promhttp.Handler())
	log.Infof("prometheus metrics ready at: %s", path)
	return &ma
}

// Register the provided prometheus collector, ignoring any error returned (simply logs a Warn)
func Register(c prometheus.Collector) {
	err := prometheus.Register(c)
	if err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return
		}
		log.Warnf("cannot register metrics: (%s) (%+v)", err, c)
	}
}
