package main

import (
	"flag"
	"os"

	"github.com/lintang-b-s/routex/pkg/kv"
	"github.com/lintang-b-s/routex/pkg/logger"
	"github.com/lintang-b-s/routex/pkg/snap"
	"github.com/lintang-b-s/routex/pkg/storage"
	"go.uber.org/zap"
)

var (
	base     = flag.String("f", "map", "base path of the persisted tables")
	storeDir = flag.String("store", "./routex_store", "pebble directory the tables are republished to")
)

// datastore loads the persisted table files and republishes them through
// the table store so routed instances pick the new snapshot up without
// restarting.
func main() {
	flag.Parse()

	log, err := logger.New()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	tables, err := storage.LoadTables(*base)
	if err != nil {
		log.Fatal("loading tables", zap.Error(err))
	}

	store, err := kv.OpenTableStore(*storeDir, log)
	if err != nil {
		log.Fatal("opening table store", zap.Error(err))
	}
	defer store.Close()

	// the paged spatial leaves must deserialize before the snapshot is
	// announced to routed instances
	if _, err := snap.LoadIndexFromPages(*base + storage.ExtFileIndex); err != nil {
		log.Fatal("validating spatial leaf pages", zap.Error(err))
	}

	if err := store.Publish(tables); err != nil {
		log.Fatal("publishing tables", zap.Error(err))
	}

	log.Info("datastore published snapshot",
		zap.String("base", *base),
		zap.String("timestamp", tables.Timestamp))
}
