package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" // for the pprof endpoints
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.anonvote.io/avote/api"
	"go.anonvote.io/avote/config"
	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/data/localstore"
	"go.anonvote.io/avote/db"
	"go.anonvote.io/avote/httprouter"
	"go.anonvote.io/avote/log"
	"go.anonvote.io/avote/metrics"
	"go.anonvote.io/avote/service"
	"go.anonvote.io/avote/tally"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func newConfig() (*config.Config, config.Error) {
	var err error
	var cfgError config.Error
	// create base config
	globalCfg := config.NewConfig()
	// get current user home dir
	home, err := os.UserHomeDir()
	if err != nil {
		cfgError = config.Error{
			Critical: true,
			Message:  fmt.Sprintf("cannot get user home directory with error: %s", err),
		}
		return nil, cfgError
	}

	// CLI flags will be used if something fails from this point
	// CLI flags have preference over the config file
	// Booleans should be passed to the CLI as: var=True/false

	// global
	flag.StringP("dataDir", "d", home+"/.avote", "directory where data is stored")
	flag.StringP("dbType", "t", config.DefaultDBType,
		fmt.Sprintf("object store key-value db type (%s)", strings.Join(config.ValidDBTypes, ", ")))
	pprofPort := flag.Int("pprof", 0, "pprof port for runtime profiling data (zero is disabled)")
	flag.StringP("logLevel", "l", "info", "log level (debug, info, warn, error, fatal)")
	flag.String("logOutput", "stdout", "log output (stdout, stderr or filepath)")
	flag.String("logErrorFile", "", "log errors and warnings to a file")
	flag.Bool("saveConfig", false, "overwrite an existing config file with the provided CLI flags")
	flag.String("hashSecret", "", "hex encoded keyed hash secret (generated on first run if empty)")
	// api
	flag.String("apiRoute", config.DefaultAPIRoute, "HTTP API base route")
	flag.String("listenHost", "0.0.0.0", "API endpoint listen address")
	flag.IntP("listenPort", "p", config.DefaultListenPort, "API endpoint http port")
	flag.String("adminToken", "", "bearer token for the commission endpoints (empty disables them)")
	flag.StringSlice("allowedOrigins", nil, "comma-separated list of CORS allowed origins (default any)")
	// ssl
	flag.String("sslDomain", "", "enable TLS-secure domain with LetsEncrypt (listenPort=443 is required)")
	// crypto
	flag.Int("keyBits", config.DefaultKeyBits, "RSA modulus size for new election and voter keys")
	flag.Uint32("kdfTime", kdf.DefaultParams.Time, "Argon2id time cost for new secrets")
	flag.Uint32("kdfMemory", kdf.DefaultParams.Memory, "Argon2id memory cost for new secrets, in KiB")
	flag.Uint8("kdfThreads", kdf.DefaultParams.Threads, "Argon2id parallelism for new secrets")
	flag.Duration("kdfTimeout", kdf.DefaultTimeout, "maximum duration of the password derivations of one seal or unlock")
	// tally
	flag.Duration("tallyFetchTimeout", tally.DefaultFetchTimeout, "timeout of each object fetch during a tally")
	flag.Int("tallyFetchConcurrency", tally.DefaultFetchConcurrency, "maximum parallel object fetches during a tally")
	flag.Int64("maxObjectSize", tally.DefaultMaxObjectSize, "maximum size in bytes of a fetched object")
	// metrics
	flag.Bool("metricsEnabled", false, "enable prometheus metrics")

	flag.CommandLine.SortFlags = false
	// parse flags
	flag.Parse()

	// setting up viper
	viper := viper.New()
	viper.SetConfigName(config.DefaultConfigName)
	viper.SetConfigType("yml")
	viper.SetEnvPrefix(config.DefaultEnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set FlagVars first
	viper.BindPFlag("dataDir", flag.Lookup("dataDir"))
	globalCfg.DataDir = viper.GetString("dataDir")

	// Add viper config path (now we know it)
	viper.AddConfigPath(globalCfg.DataDir)

	// binding flags to viper
	// global
	viper.BindPFlag("dbType", flag.Lookup("dbType"))
	viper.BindPFlag("logLevel", flag.Lookup("logLevel"))
	viper.BindPFlag("logErrorFile", flag.Lookup("logErrorFile"))
	viper.BindPFlag("logOutput", flag.Lookup("logOutput"))
	viper.BindPFlag("saveConfig", flag.Lookup("saveConfig"))
	viper.BindPFlag("hashSecret", flag.Lookup("hashSecret"))

	// api
	viper.BindPFlag("api.Route", flag.Lookup("apiRoute"))
	viper.BindPFlag("api.ListenHost", flag.Lookup("listenHost"))
	viper.BindPFlag("api.ListenPort", flag.Lookup("listenPort"))
	viper.BindPFlag("api.AdminToken", flag.Lookup("adminToken"))
	viper.BindPFlag("api.AllowedOrigins", flag.Lookup("allowedOrigins"))
	viper.Set("api.Ssl.DirCert", filepath.Join(globalCfg.DataDir, "tls"))
	viper.BindPFlag("api.Ssl.Domain", flag.Lookup("sslDomain"))

	// crypto
	viper.BindPFlag("crypto.KeyBits", flag.Lookup("keyBits"))
	viper.BindPFlag("crypto.KDFTime", flag.Lookup("kdfTime"))
	viper.BindPFlag("crypto.KDFMemory", flag.Lookup("kdfMemory"))
	viper.BindPFlag("crypto.KDFThreads", flag.Lookup("kdfThreads"))
	viper.BindPFlag("crypto.KDFTimeout", flag.Lookup("kdfTimeout"))

	// tally
	viper.BindPFlag("tally.FetchTimeout", flag.Lookup("tallyFetchTimeout"))
	viper.BindPFlag("tally.FetchConcurrency", flag.Lookup("tallyFetchConcurrency"))
	viper.BindPFlag("tally.MaxObjectSize", flag.Lookup("maxObjectSize"))

	// metrics
	viper.BindPFlag("metrics.Enabled", flag.Lookup("metricsEnabled"))
	viper.Set("metrics.Path", config.DefaultMetricsPath)

	// check if config file exists
	_, err = os.Stat(filepath.Join(globalCfg.DataDir, config.DefaultConfigName+".yml"))
	if os.IsNotExist(err) {
		cfgError = config.Error{
			Message: fmt.Sprintf("creating new config file in %s", globalCfg.DataDir),
		}
		// creting config folder if not exists
		err = os.MkdirAll(globalCfg.DataDir, os.ModePerm)
		if err != nil {
			cfgError = config.Error{
				Message: fmt.Sprintf("cannot create data directory: %s", err),
			}
		}
		// create config file if not exists
		if err := viper.SafeWriteConfig(); err != nil {
			cfgError = config.Error{
				Message: fmt.Sprintf("cannot write config file into config dir: %s", err),
			}
		}
	} else {
		// read config file
		err = viper.ReadInConfig()
		if err != nil {
			cfgError = config.Error{
				Message: fmt.Sprintf("cannot read loaded config file in %s: %s", globalCfg.DataDir, err),
			}
		}
	}
	err = viper.Unmarshal(&globalCfg)
	if err != nil {
		cfgError = config.Error{
			Message: fmt.Sprintf("cannot unmarshal loaded config file: %s", err),
		}
	}

	if globalCfg.HashSecret == "" {
		fmt.Println("no keyed hash secret, generating one...")
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			cfgError = config.Error{
				Critical: true,
				Message:  fmt.Sprintf("cannot generate keyed hash secret: %s", err),
			}
			return globalCfg, cfgError
		}
		globalCfg.HashSecret = hex.EncodeToString(secret)
		viper.Set("hashSecret", globalCfg.HashSecret)
		globalCfg.SaveConfig = true
	}

	if globalCfg.SaveConfig {
		viper.Set("saveConfig", false)
		if err := viper.WriteConfig(); err != nil {
			cfgError = config.Error{
				Message: fmt.Sprintf("cannot overwrite config file into config dir: %s", err),
			}
		}
	}

	if *pprofPort > 0 {
		go servePprof(*pprofPort)
	}

	return globalCfg, cfgError
}

func servePprof(port int) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		log.Fatal(err)
	}
	log.Warnf("started pprof http endpoints at http://%s/debug/pprof", ln.Addr())
	log.Error(http.Serve(ln, nil))
}

func main() {
	// Don't use the log package here, because we want to report the version
	// before loading the config.
	fmt.Fprintf(os.Stderr, "avote daemon version %q\n", version)

	// setup config
	// creating config and init logger
	globalCfg, cfgErr := newConfig()
	if globalCfg == nil {
		log.Fatal("cannot read configuration")
	}
	log.Init(globalCfg.LogLevel, globalCfg.LogOutput)
	if path := globalCfg.LogErrorFile; path != "" {
		if err := log.SetFileErrorLog(path); err != nil {
			log.Fatal(err)
		}
	}

	// check if errors during config creation and determine if Critical
	if cfgErr.Critical && cfgErr.Message != "" {
		log.Fatalf("critical error loading config: %s", cfgErr.Message)
	} else if !cfgErr.Critical && cfgErr.Message != "" {
		log.Warnf("non-critical error loading config: %s", cfgErr.Message)
	} else if !cfgErr.Critical && cfgErr.Message == "" {
		log.Infof("config file loaded successfully. Reminder: CLI flags have preference")
	}

	// Check the dbType is valid
	if !globalCfg.ValidDBType() {
		log.Fatalf("dbType %s is invalid. Valid ones: %s", globalCfg.DBType,
			strings.Join([]string{db.TypePebble, db.TypeLevelDB, db.TypeBolt, db.TypeBadger}, ", "))
	}

	log.Infow("starting avote daemon", "version", version, "dataDir", globalCfg.DataDir)

	node, err := service.New(globalCfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := node.Close(); err != nil {
			log.Warnw("cannot close stores", "error", err)
		}
	}()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go node.LogStats(ctx)

	// Initialize the HTTP router
	var httpRouter httprouter.HTTProuter
	httpRouter.TLSdomain = globalCfg.API.Ssl.Domain
	httpRouter.TLSdirCert = globalCfg.API.Ssl.DirCert
	httpRouter.AllowedOrigins = globalCfg.API.AllowedOrigins
	if err = httpRouter.Init(globalCfg.API.ListenHost, globalCfg.API.ListenPort); err != nil {
		log.Fatal(err)
	}

	if globalCfg.Metrics.Enabled {
		httpRouter.EnablePrometheusMetrics("avote")
		metrics.NewAgent(globalCfg.Metrics.Path, httpRouter.Mux)
		localstore.RegisterMetrics()
		tally.RegisterMetrics()
	}

	if globalCfg.API.AdminToken == "" {
		log.Warn("no admin token configured, commission endpoints are disabled")
	}
	uAPI, err := api.NewAPI(&httpRouter, globalCfg.API.Route, globalCfg.API.AdminToken)
	if err != nil {
		log.Fatal(err)
	}
	uAPI.Attach(node.Commission)
	if err := uAPI.EnableHandlers(
		api.ElectionHandler,
		api.VoterHandler,
		api.TallyHandler,
	); err != nil {
		log.Fatal(err)
	}

	log.Info("startup complete")

	// close if interrupt received
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Warnf("received SIGTERM, exiting at %s", time.Now().Format(time.RFC850))
}
