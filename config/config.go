// Package config holds the configuration of the avote daemon and CLI.
package config

import (
	"fmt"
	"slices"
	"time"

	"go.anonvote.io/avote/commission"
	"go.anonvote.io/avote/crypto/kdf"
	"go.anonvote.io/avote/db"
)

// Config stores global configs for the avote daemon
type Config struct {
	// DataDir is the path where the record store, the object store and the
	// config file live
	DataDir string
	// DBType is the key-value engine of the object store
	DBType string
	// LogLevel logging level
	LogLevel string
	// LogOutput logging output
	LogOutput string
	// LogErrorFile for logging warning, error and fatal messages
	LogErrorFile string
	// HashSecret is the server secret of the keyed hash shared by the
	// credential issuer and the tally engine, hex encoded
	HashSecret string
	// SaveConfig overwrites the config file with the CLI provided flags
	SaveConfig bool
	// API configuration
	API *APICfg
	// Metrics configuration
	Metrics *MetricsCfg
	// Crypto cost configuration
	Crypto *CryptoCfg
	// Tally configuration
	Tally *TallyCfg
}

// APICfg stores the REST API configuration
type APICfg struct {
	Route          string
	ListenHost     string
	ListenPort     int
	AdminToken     string
	AllowedOrigins []string
	Ssl            struct {
		Domain  string
		DirCert string
	}
}

// MetricsCfg stores the prometheus metrics configuration
type MetricsCfg struct {
	Enabled bool
	Path    string
}

// CryptoCfg stores the key size and the Argon2id cost of new secrets
type CryptoCfg struct {
	KeyBits    int
	KDFTime    uint32
	KDFMemory  uint32
	KDFThreads uint8
	KDFTimeout time.Duration
}

// TallyCfg stores the fetch settings of the tally engine
type TallyCfg struct {
	FetchTimeout     time.Duration
	FetchConcurrency int
	MaxObjectSize    int64
}

// Error helps to handle better config errors on startup
type Error struct {
	// Critical indicates if the error encountered is critical and the app must be stopped
	Critical bool
	// Message error message
	Message string
}

// NewConfig returns a Config with the default values
func NewConfig() *Config {
	opts := commission.DefaultOptions()
	return &Config{
		DBType:    DefaultDBType,
		LogLevel:  "info",
		LogOutput: "stdout",
		API: &APICfg{
			Route:      DefaultAPIRoute,
			ListenHost: "0.0.0.0",
			ListenPort: DefaultListenPort,
		},
		Metrics: &MetricsCfg{Path: DefaultMetricsPath},
		Crypto: &CryptoCfg{
			KeyBits:    opts.KeyBits,
			KDFTime:    opts.KDFParams.Time,
			KDFMemory:  opts.KDFParams.Memory,
			KDFThreads: opts.KDFParams.Threads,
			KDFTimeout: opts.KDFTimeout,
		},
		Tally: &TallyCfg{
			FetchTimeout:     opts.FetchTimeout,
			FetchConcurrency: opts.FetchConcurrency,
			MaxObjectSize:    opts.MaxObjectSize,
		},
	}
}

// ValidDBType checks that DBType is a supported key-value engine
func (c *Config) ValidDBType() bool {
	return slices.Contains(ValidDBTypes, c.DBType)
}

// Validate checks the values that cannot be fixed with a default.
func (c *Config) Validate() error {
	if !c.ValidDBType() {
		return fmt.Errorf("dbType %s is invalid, valid ones: %v", c.DBType, ValidDBTypes)
	}
	if err := c.KDFParams().Validate(); err != nil {
		return err
	}
	if c.Crypto.KeyBits < DefaultKeyBits {
		return fmt.Errorf("keyBits must be at least %d", DefaultKeyBits)
	}
	return nil
}

// KDFParams returns the Argon2id parameters of the crypto config.
func (c *Config) KDFParams() kdf.Params {
	return kdf.Params{
		Time:    c.Crypto.KDFTime,
		Memory:  c.Crypto.KDFMemory,
		Threads: c.Crypto.KDFThreads,
	}
}

// CommissionOptions converts the config into commission options.
func (c *Config) CommissionOptions() commission.Options {
	return commission.Options{
		KeyBits:          c.Crypto.KeyBits,
		KDFParams:        c.KDFParams(),
		FetchTimeout:     c.Tally.FetchTimeout,
		FetchConcurrency: c.Tally.FetchConcurrency,
		MaxObjectSize:    c.Tally.MaxObjectSize,
		KDFTimeout:       c.Crypto.KDFTimeout,
	}
}

// ValidDBTypes are the key-value engines the object store can use.
var ValidDBTypes = []string{db.TypePebble, db.TypeLevelDB, db.TypeBolt, db.TypeBadger}
