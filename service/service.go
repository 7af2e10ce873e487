// Package service assembles the stores, the keyed hasher and the commission
// from a config, so the daemon and the CLI share one wiring.
package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.anonvote.io/avote/commission"
	"go.anonvote.io/avote/config"
	"go.anonvote.io/avote/crypto/keyedhash"
	"go.anonvote.io/avote/data/localstore"
	"go.anonvote.io/avote/db/metadb"
	"go.anonvote.io/avote/log"
	"go.anonvote.io/avote/recordstore"
)

// StatsInterval is how often the object store stats are logged.
const StatsInterval = 2 * time.Minute

// Node holds the components of a running commission.
type Node struct {
	Records    *recordstore.Store
	Objects    *localstore.Handler
	Hasher     *keyedhash.Hasher
	Commission *commission.Commission
}

// New opens the record store and the object store inside cfg.DataDir and
// builds the commission on top of them.
func New(cfg *config.Config) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	secret, err := hex.DecodeString(cfg.HashSecret)
	if err != nil {
		return nil, fmt.Errorf("hashSecret is not valid hex: %w", err)
	}
	hasher, err := keyedhash.New(secret)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, os.ModePerm); err != nil {
		return nil, err
	}

	recordsPath := filepath.Join(cfg.DataDir, config.RecordStoreFile)
	log.Infow("opening record store", "path", recordsPath)
	records, err := recordstore.New(recordsPath)
	if err != nil {
		return nil, err
	}
	log.Infow("opening object store", "dbType", cfg.DBType)
	database, err := metadb.New(cfg.DBType, filepath.Join(cfg.DataDir, config.ObjectStoreDir))
	if err != nil {
		records.Close()
		return nil, err
	}
	objects, err := localstore.New(database)
	if err != nil {
		database.Close()
		records.Close()
		return nil, err
	}
	return &Node{
		Records:    records,
		Objects:    objects,
		Hasher:     hasher,
		Commission: commission.New(records, objects, hasher, cfg.CommissionOptions()),
	}, nil
}

// LogStats periodically logs the object store stats until ctx is done.
func (n *Node) LogStats(ctx context.Context) {
	ticker := time.NewTicker(StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Infow("object store", "stats", n.Objects.Stats())
		}
	}
}

// Close releases both stores.
func (n *Node) Close() error {
	errObjects := n.Objects.Stop()
	if err := n.Records.Close(); err != nil {
		return err
	}
	return errObjects
}
