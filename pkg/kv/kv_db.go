package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/engine/facade"
	"github.com/uber/h3-go/v4"
	"go.uber.org/zap"
)

var ErrEdgesNotFound = errors.New("edges not found")

const (
	h3Resolution = 9
	batchSize    = 1000
)

// KVEdge is the per-cell candidate record: enough to preview which
// edge-based nodes live near a coordinate without touching the r-tree.
type KVEdge struct {
	NodeIndex  int32
	GeometryID int32
	Lat        int32
	Lon        int32
}

// KVDB keeps an h3-indexed nearest-edge candidate store on badger. The
// extractor writes it; routed checks it before /nearest and answers
// NoSegment when the query cell and its neighbours hold no candidate.
type KVDB struct {
	db  *badger.DB
	log *zap.Logger
}

func NewKVDB(db *badger.DB, log *zap.Logger) *KVDB {
	return &KVDB{db: db, log: log}
}

func (k *KVDB) Close() error {
	return k.db.Close()
}

// BuildH3IndexedEdges buckets every snappable edge-based node by the h3
// cell of its representative coordinate and writes the buckets in batches.
func (k *KVDB) BuildH3IndexedEdges(ctx context.Context, f facade.DataFacade) error {
	k.log.Info("creating h3 indexed street buckets")

	buckets := make(map[string][]KVEdge)
	for i, node := range f.EdgeBasedNodes() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled")
		default:
		}
		if !node.Startpoint {
			continue
		}

		cell := h3.LatLngToCell(h3.NewLatLng(node.Coord.LatDeg(), node.Coord.LonDeg()), h3Resolution)
		buckets[cell.String()] = append(buckets[cell.String()], KVEdge{
			NodeIndex:  int32(i),
			GeometryID: node.GeometryID,
			Lat:        node.Coord.Lat,
			Lon:        node.Coord.Lon,
		})
	}

	batch := make([]batchData, 0, batchSize)
	for key, value := range buckets {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled")
		default:
		}
		batch = append(batch, batchData{key: key, value: value})
		if len(batch) == batchSize {
			if err := k.saveBatchEdges(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := k.saveBatchEdges(batch); err != nil {
			return err
		}
	}

	k.log.Info("h3 indexed street buckets saved", zap.Int("cells", len(buckets)))
	return nil
}

type batchData struct {
	key   string
	value []KVEdge
}

func (k *KVDB) saveBatchEdges(batch []batchData) error {
	wb := k.db.NewWriteBatch()
	defer wb.Cancel()

	for _, item := range batch {
		encoded, err := encodeEdges(item.value)
		if err != nil {
			return err
		}
		if err := wb.Set([]byte(item.key), encoded); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// NearbyEdges returns the candidate records of the cell containing the
// query plus its ring-1 neighbours.
func (k *KVDB) NearbyEdges(lat, lon float64) ([]KVEdge, error) {
	cell := h3.LatLngToCell(h3.NewLatLng(lat, lon), h3Resolution)
	cells := h3.GridDisk(cell, 1)

	var out []KVEdge
	err := k.db.View(func(txn *badger.Txn) error {
		for _, c := range cells {
			item, err := txn.Get([]byte(c.String()))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				edges, err := loadEdges(val)
				if err != nil {
					return err
				}
				out = append(out, edges...)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEdgesNotFound
	}
	return out, nil
}

// CoordinateOf is a convenience for handlers rendering candidates.
func (e KVEdge) CoordinateOf() datastructure.Coordinate {
	return datastructure.NewCoordinateFixed(e.Lat, e.Lon)
}
