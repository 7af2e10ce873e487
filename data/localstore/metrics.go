package localstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.anonvote.io/avote/metrics"
)

// Object store collectors
var (
	// ObjectsPublished counts successful Publish calls.
	ObjectsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "store",
		Name:      "objects_published",
		Help:      "The number of objects published",
	})
	// ObjectsRetrieved counts Retrieve calls by result.
	ObjectsRetrieved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "store",
		Name:      "objects_retrieved",
		Help:      "The number of objects retrieved, by result",
	}, []string{"result"})
)

// RegisterMetrics registers the object store collectors.
func RegisterMetrics() {
	metrics.Register(ObjectsPublished)
	metrics.Register(ObjectsRetrieved)
}
