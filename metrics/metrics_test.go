package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func TestAgent(t *testing.T) {
	c := qt.New(t)
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "avote_test",
		Name:      "agent_hits",
		Help:      "test counter",
	})
	Register(counter)
	// registering twice is harmless
	Register(counter)
	counter.Inc()

	r := chi.NewRouter()
	NewAgent("/metrics", r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(string(body), "avote_test_agent_hits 1"), qt.IsTrue)
}
