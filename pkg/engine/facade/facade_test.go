package facade

import (
	"sync"
	"testing"

	"github.com/lintang-b-s/routex/pkg/datastructure"
	"github.com/lintang-b-s/routex/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallTables() *storage.RoutingTables {
	tables := &storage.RoutingTables{
		DirectedCount: 2,
		Edges: []datastructure.EdgeBasedEdge{
			datastructure.NewEdgeBasedEdge(0, 0, 1, 5, 50, true, false),
		},
		Turns: make([]datastructure.TurnData, 1),
		Names: []string{"main street", "Berlin", "mayn street", "B1"},
	}
	tables.Checksum = tables.ComputeChecksum()
	return tables
}

func TestOwningFacadeRejectsTornSnapshot(t *testing.T) {
	tables := smallTables()
	tables.Checksum++
	_, err := NewOwningFacade(tables)
	assert.ErrorIs(t, err, ErrDataMissing)
}

func TestNameSplitsFourStrings(t *testing.T) {
	f, err := NewOwningFacade(smallTables())
	require.NoError(t, err)

	name, ref, pronunciation, destinations := f.Name(0)
	assert.Equal(t, "main street", name)
	assert.Equal(t, "B1", ref)
	assert.Equal(t, "mayn street", pronunciation)
	assert.Equal(t, "Berlin", destinations)
}

func TestAdjacencyDirections(t *testing.T) {
	f, err := NewOwningFacade(smallTables())
	require.NoError(t, err)

	assert.Len(t, f.OutEdges(0), 1)
	assert.Empty(t, f.OutEdges(1))
	assert.Len(t, f.InEdges(1), 1)
	assert.Empty(t, f.InEdges(0))
	assert.Equal(t, int32(0), f.FindEdge(0, 1))
	assert.Equal(t, datastructure.INVALID_EDGE_ID, f.FindEdge(1, 0))
}

// a reader holding the shared lock never observes a half-swapped snapshot
func TestProviderSwapIsAtomicForReaders(t *testing.T) {
	first, err := NewOwningFacade(smallTables())
	require.NoError(t, err)

	second, err := NewOwningFacade(smallTables())
	require.NoError(t, err)

	provider := NewProvider(first)
	assert.Equal(t, uint64(1), provider.Version())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f, release := provider.Acquire()
				// the acquired facade stays coherent for the whole query
				assert.Equal(t, f.Checksum(), f.Checksum())
				release()
			}
		}()
	}

	for i := 0; i < 50; i++ {
		provider.Swap(second)
		provider.Swap(first)
	}
	wg.Wait()

	assert.Equal(t, uint64(101), provider.Version())
}
