package main

import (
	"context"
	"flag"
	"os"
	"runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/engine/facade"
	"github.com/lintang-b-s/routex/pkg/extractor"
	"github.com/lintang-b-s/routex/pkg/guidance"
	"github.com/lintang-b-s/routex/pkg/kv"
	"github.com/lintang-b-s/routex/pkg/logger"
	"github.com/lintang-b-s/routex/pkg/osmparser"
	"github.com/lintang-b-s/routex/pkg/snap"
	"github.com/lintang-b-s/routex/pkg/storage"
	"go.uber.org/zap"
)

var (
	mapFile            = flag.String("f", "map.osm.pbf", "openstreetmap pbf file of the road network")
	outputBase         = flag.String("o", "map", "output base path of the persisted tables")
	threads            = flag.Int("threads", runtime.NumCPU(), "worker threads for edge expansion")
	smallComponentSize = flag.Int("small-component-size", 1000, "components below this size are marked tiny")
	kvDir              = flag.String("kvdir", "./routex_db", "badger directory for the h3 candidate store")
)

func main() {
	flag.Parse()

	log, err := logger.New()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("extract failed", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	profile := osmparser.NewCarProfile()

	log.Info("reading openstreetmap file", zap.String("file", *mapFile))
	parser := osmparser.NewOsmParser(profile, log)
	parsed, err := parser.Parse(*mapFile)
	if err != nil {
		return err
	}

	builder := osmparser.NewGraphBuilder(log)
	graph, err := builder.Build(parsed)
	if err != nil {
		return err
	}

	if err := storage.WriteRawGraph(*outputBase, &storage.RawGraph{
		Nodes: graph.Nodes,
		Edges: graph.Edges,
	}); err != nil {
		return err
	}

	compressed := &extractor.CompressedGraph{
		Nodes:            graph.Nodes,
		Edges:            graph.Edges,
		Restrictions:     graph.Restrictions,
		Names:            graph.Names,
		LaneDescriptions: graph.LaneDescriptions,
		LaneStrings:      graph.LaneStrings,
	}
	extractor.NewCompressor(log).Compress(compressed)

	annotator := guidance.NewAnnotator(log)
	expander := extractor.NewEdgeExpander(annotator, profile.TurnPenalty, *smallComponentSize, *threads, log)
	expanded := expander.Expand(compressed)

	tables := &storage.RoutingTables{
		Properties: storage.Properties{
			ProfileName:        "car",
			SmallComponentSize: *smallComponentSize,
		},
		EdgeBasedNodes:   expanded.Nodes,
		DirectedCount:    expanded.DirectedCount,
		SegmentNode:      expanded.SegmentEdge,
		SegmentIsForward: expanded.SegmentIsForward,
		Edges:            expanded.Edges,
		Turns:            expanded.Turns,
		Geometry:         *compressed.Geometry,
		Names:            compressed.Names,
		LaneDescriptions: compressed.LaneDescriptions,
		LaneStrings:      compressed.LaneStrings,
		Restrictions:     compressed.Restrictions,
	}
	tables.Coordinates = make([]datastructure.Coordinate, 0, len(compressed.Nodes))
	for _, node := range compressed.Nodes {
		tables.Coordinates = append(tables.Coordinates, node.Coord)
	}

	log.Info("writing persisted tables", zap.String("base", *outputBase))
	if err := storage.WriteTables(*outputBase, tables); err != nil {
		return err
	}

	f, err := facade.NewOwningFacade(tables)
	if err != nil {
		return err
	}

	if err := snap.WriteLeafPages(*outputBase+storage.ExtFileIndex, f); err != nil {
		return err
	}

	db, err := badger.Open(badger.DefaultOptions(*kvDir))
	if err != nil {
		return err
	}
	kvDB := kv.NewKVDB(db, log)
	defer kvDB.Close()

	if err := kvDB.BuildH3IndexedEdges(context.Background(), f); err != nil {
		return err
	}

	log.Info("extraction done",
		zap.Int32("edge_based_nodes", expanded.DirectedCount),
		zap.Int("turn_edges", len(expanded.Edges)))
	return nil
}
