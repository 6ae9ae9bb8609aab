package routingalgorithm

import (
	"context"

	"github.com/lintang-b-s/routex/pkg/datastructure"
)

type bucketEntry struct {
	target int32 // index into the targets slice
	weight int32
}

// ManyToMany computes the S x T weight matrix with the bucket algorithm:
// one reverse sweep per target fills per-node buckets, one forward sweep
// per source scans them. Both sweeps reuse the one-to-one relaxation and
// stall-on-demand. Results are deterministic for a fixed snapshot.
func (rt *RouteAlgorithm) ManyToMany(ctx context.Context, sources, targets []*datastructure.PhantomNode) ([][]int32, error) {
	result := make([][]int32, len(sources))
	for i := range result {
		result[i] = make([]int32, len(targets))
		for j := range result[i] {
			result[i][j] = datastructure.INVALID_WEIGHT
		}
	}

	// buckets are per-query scratch, cleared by going out of scope
	buckets := make(map[int32][]bucketEntry)

	for tIdx, target := range targets {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		state := newSearchState()
		if target.ForwardEnabled() {
			state.seed(target.ForwardSegmentID, target.ForwardWeight)
		}
		if target.ReverseEnabled() {
			state.seed(target.ReverseSegmentID, target.ReverseWeight)
		}

		for state.queue.Size() > 0 {
			node, _ := state.queue.ExtractMin()
			state.settled[node.Item] = struct{}{}
			buckets[node.Item] = append(buckets[node.Item], bucketEntry{
				target: int32(tIdx),
				weight: node.Rank,
			})
			if rt.stalled(state, node.Item, false) {
				continue
			}
			rt.relax(state, node.Item, false)
		}
	}

	for sIdx, source := range sources {
		if err := ctxErr(ctx); err != nil {
			return nil, err
		}
		state := newSearchState()
		if source.ForwardEnabled() {
			state.seed(source.ForwardSegmentID, -source.ForwardWeight)
		}
		if source.ReverseEnabled() {
			state.seed(source.ReverseSegmentID, -source.ReverseWeight)
		}

		for state.queue.Size() > 0 {
			node, _ := state.queue.ExtractMin()
			state.settled[node.Item] = struct{}{}

			for _, entry := range buckets[node.Item] {
				total := node.Rank + entry.weight
				if total < 0 {
					// same-edge loop, not a real meeting
					continue
				}
				if total < result[sIdx][entry.target] {
					result[sIdx][entry.target] = total
				}
			}

			if rt.stalled(state, node.Item, true) {
				continue
			}
			rt.relax(state, node.Item, true)
		}
	}

	return result, nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrCancelled
	default:
		return nil
	}
}
