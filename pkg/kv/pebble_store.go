package kv

import (
	"errors"

	"github.com/cockroachdb/pebble"
	"github.com/lintang-b-s/routex/pkg/storage"
	"go.uber.org/zap"
)

var ErrTableNotPublished = errors.New("routing tables not published to the datastore")

const tablesKey = "routing_tables/current"

// TableStore republishes a routing-table snapshot through pebble so a
// restarted routed process picks the tables up without re-reading every
// section file. One datastore process owns the writes; routed reads.
type TableStore struct {
	db  *pebble.DB
	log *zap.Logger
}

func OpenTableStore(dir string, log *zap.Logger) (*TableStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &TableStore{db: db, log: log}, nil
}

func (s *TableStore) Close() error {
	return s.db.Close()
}

// Publish stores a complete snapshot under the current key; readers see
// either the old or the new blob, never a mix.
func (s *TableStore) Publish(tables *storage.RoutingTables) error {
	blob, err := storage.SectionBytes(*tables)
	if err != nil {
		return err
	}
	if err := s.db.Set([]byte(tablesKey), blob, pebble.Sync); err != nil {
		return err
	}
	s.log.Info("published routing tables",
		zap.Uint32("checksum", tables.Checksum),
		zap.String("timestamp", tables.Timestamp))
	return nil
}

// Load reads the current snapshot back.
func (s *TableStore) Load() (*storage.RoutingTables, error) {
	value, closer, err := s.db.Get([]byte(tablesKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrTableNotPublished
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var tables storage.RoutingTables
	if err := storage.DecodeSectionBytes(value, &tables); err != nil {
		return nil, err
	}
	return &tables, nil
}
