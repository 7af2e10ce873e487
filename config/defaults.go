package config

import (
	"go.anonvote.io/avote/crypto/rsakey"
	"go.anonvote.io/avote/db"
)

// These consts are defaults used in Config
const (
	DefaultDBType      = db.TypePebble
	DefaultAPIRoute    = "/v1"
	DefaultListenPort  = 9090
	DefaultMetricsPath = "/metrics"
	DefaultKeyBits     = rsakey.MinBits
	DefaultConfigName  = "avote"
	DefaultEnvPrefix   = "AVOTE"

	// RecordStoreFile is the name of the SQLite file in the data dir
	RecordStoreFile = "records.sqlite"
	// ObjectStoreDir is the name of the object store directory in the data dir
	ObjectStoreDir = "objects"
)
