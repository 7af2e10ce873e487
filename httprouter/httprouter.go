package httprouter

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	chiprometheus "github.com/766b/chi-prometheus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	reuse "github.com/libp2p/go-reuseport"
	"go.anonvote.io/avote/log"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/net/http2"
)

const (
	desiredSoMaxConn = 4096
	// requestTimeout bounds every handler. A tally over a large election
	// fetches every published object, so it is generous.
	requestTimeout = 5 * time.Minute
)

// Access is the authorization level a handler requires.
type Access int

const (
	Public Access = iota
	Admin
)

func (a Access) String() string {
	if a == Admin {
		return "admin"
	}
	return "public"
}

// Namespace decodes the requests of the handlers registered under it and
// decides whether they are authorized.
type Namespace interface {
	ProcessData(req *http.Request) (data any, err error)
	AuthorizeRequest(data any, access Access) (valid bool, err error)
}

// HandlerFn handles a decoded and authorized request. It must reply
// through msg.Context.Send exactly once.
type HandlerFn = func(msg Message)

// HTTProuter serves the commission HTTP API with go-chi. When TLSdomain is
// set, certificates are obtained from LetsEncrypt and cached in TLSdirCert.
type HTTProuter struct {
	Mux            *chi.Mux
	TLSdomain      string
	TLSdirCert     string
	AllowedOrigins []string

	address    net.Addr
	namespaces map[string]Namespace
	nsLock     sync.RWMutex
}

// Init starts serving on host:port. A zero port picks a free one; Address
// returns it.
func (r *HTTProuter) Init(host string, port int) error {
	r.namespaces = make(map[string]Namespace)
	ln, err := reuse.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	if n := somaxconn(); n < desiredSoMaxConn {
		log.Warnf("operating system SOMAXCONN is smaller than recommended (%d). "+
			"Consider increasing it: echo %d | sudo tee /proc/sys/net/core/somaxconn", n, desiredSoMaxConn)
	}
	r.Mux = r.newMux()
	r.address = ln.Addr()

	srv := &http.Server{
		Handler:           r.Mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      requestTimeout + 10*time.Second,
		IdleTimeout:       10 * time.Second,
	}
	if r.TLSdomain == "" {
		if err := http2.ConfigureServer(srv, nil); err != nil {
			return err
		}
		go func() { log.Fatal(srv.Serve(ln)) }()
		log.Infof("router ready at http://%s", r.address)
		return nil
	}

	log.Infof("fetching letsencrypt TLS certificate for %s", r.TLSdomain)
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(r.TLSdomain),
		Cache:      autocert.DirCache(r.TLSdirCert),
	}
	srv.TLSConfig = &tls.Config{
		MinVersion:     tls.VersionTLS13,
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{acme.ALPNProto},
	}
	if err := http2.ConfigureServer(srv, nil); err != nil {
		return err
	}
	go func() { log.Fatal(srv.ServeTLS(ln, "", "")) }()
	if err := r.fetchCertificate(m); err != nil {
		return fmt.Errorf("cannot get letsencrypt TLS certificate: %w", err)
	}
	log.Infof("router ready at https://%s", r.address)
	return nil
}

func (r *HTTProuter) newMux() *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  stdLogger{log.Logger()},
		NoColor: true,
	}))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Heartbeat("/ping"))
	mux.Use(middleware.Timeout(requestTimeout))
	mux.Use(middleware.Compress(5))

	corsOpts := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}
	if len(r.AllowedOrigins) > 0 {
		corsOpts.AllowedOrigins = r.AllowedOrigins
	} else {
		corsOpts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	}
	mux.Use(cors.New(corsOpts).Handler)
	// the cors handler does not answer preflights with 200 on its own
	mux.Options("/*", func(http.ResponseWriter, *http.Request) {})
	return mux
}

// fetchCertificate obtains the domain certificate, so a misconfigured domain
// fails at startup instead of on the first client.
func (r *HTTProuter) fetchCertificate(m *autocert.Manager) error {
	cert, err := m.GetCertificate(&tls.ClientHelloInfo{
		ServerName: r.TLSdomain,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
		},
	})
	if err != nil {
		return err
	}
	if len(cert.Certificate) == 0 {
		return errors.New("empty certificate chain")
	}
	return nil
}

// EnablePrometheusMetrics records per-route request metrics under the given
// prefix.
func (r *HTTProuter) EnablePrometheusMetrics(prefix string) {
	r.Mux.Use(chiprometheus.NewMiddleware(prefix))
}

// Address returns the address the router listens on.
func (r *HTTProuter) Address() net.Addr {
	return r.address
}

// AddNamespace registers the Namespace that decodes and authorizes the
// requests of the handlers added under id.
func (r *HTTProuter) AddNamespace(id string, ns Namespace) {
	r.nsLock.Lock()
	defer r.nsLock.Unlock()
	r.namespaces[id] = ns
}

// AddHandler routes method requests on pattern to handler, once the
// namespace has authorized them for access.
func (r *HTTProuter) AddHandler(namespaceID string, access Access, pattern, method string, handler HandlerFn) {
	log.Debugw("added handler", "access", access.String(), "method", method, "pattern", pattern)
	r.Mux.MethodFunc(method, pattern, r.handle(namespaceID, access, handler))
}

func (r *HTTProuter) handle(namespaceID string, access Access, handler HandlerFn) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer req.Body.Close()

		r.nsLock.RLock()
		ns, ok := r.namespaces[namespaceID]
		r.nsLock.RUnlock()
		if !ok {
			log.Errorf("namespace %s is not defined", namespaceID)
			http.Error(w, "namespace not defined", http.StatusInternalServerError)
			return
		}
		data, err := ns.ProcessData(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if ok, err := ns.AuthorizeRequest(data, access); !ok {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		hc := &HTTPContext{Request: req, Writer: w, sent: make(chan struct{})}
		go handler(Message{Data: data, Context: hc})
		// every handler replies, even when it fails
		<-hc.sent
	}
}

func somaxconn() int {
	content, err := os.ReadFile("/proc/sys/net/core/somaxconn")
	if err != nil {
		return syscall.SOMAXCONN
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return syscall.SOMAXCONN
	}
	return n
}

// stdLogger feeds the chi request logger into the debug level.
type stdLogger struct {
	log *zap.SugaredLogger
}

func (l stdLogger) Print(v ...any) { l.log.Debug(fmt.Sprint(v...)) }
