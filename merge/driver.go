// Package merge implements the greedy merge loop: repeatedly ask the
// registry for the best prospective join, merge its endpoints in the
// tile graph, and emit an intermediate snapshot, until the desired tile
// count is reached or no edges remain.
package merge

import (
	"context"
	"fmt"
	"log"

	"github.com/kwv/parceltile/store"
	"github.com/kwv/parceltile/tilegraph"
)

// Graph is the narrow view the driver needs of the tile graph.
type Graph interface {
	TileCount() int
	Tiles() []tilegraph.Tile
	Merge(a, b string, r2 float64) (newKey string, counterparts []string, err error)
}

// Registry is the narrow view the driver needs of the prospective-join
// registry.
type Registry interface {
	Best(ctx context.Context) (a, b string, r2 float64, ok bool)
	OnMerge(a, b, c string, counterparts []string)
}

// Driver runs the merge loop. It holds no state of its own beyond its
// collaborators — all mutable state lives in the graph and registry it
// was constructed with, per the single-owner design this package
// implements the "owner" role for.
type Driver struct {
	graph   Graph
	reg     Registry
	writer  store.IntermediateWriter
	outDir  string
	desired int
}

// NewDriver constructs a Driver targeting desiredTileCount, writing
// intermediates under outDir via writer.
func NewDriver(graph Graph, reg Registry, writer store.IntermediateWriter, outDir string, desiredTileCount int) *Driver {
	return &Driver{graph: graph, reg: reg, writer: writer, outDir: outDir, desired: desiredTileCount}
}

// Run executes the loop until termination, returning the number of
// merges performed. ctx is checked between iterations only — there is no
// mid-iteration cancellation.
func (d *Driver) Run(ctx context.Context) (int, error) {
	iteration := 0
	for {
		select {
		case <-ctx.Done():
			log.Printf("merge: cancellation observed after %d merges", iteration)
			return iteration, nil
		default:
		}

		a, b, r2, ok := d.reg.Best(ctx)
		if !ok {
			log.Printf("merge: no edges remain after %d merges", iteration)
			return iteration, nil
		}
		if d.graph.TileCount() <= d.desired {
			return iteration, nil
		}

		newKey, counterparts, err := d.graph.Merge(a, b, r2)
		if err != nil {
			return iteration, fmt.Errorf("merge: merging (%s, %s): %w", a, b, err)
		}
		d.reg.OnMerge(a, b, newKey, counterparts)

		iteration++
		log.Printf("merge: iteration %d merged (%s, %s) -> %s, r2=%.4f, tiles remaining=%d", iteration, a, b, newKey, r2, d.graph.TileCount())

		if err := d.writer.WriteIntermediate(d.outDir, iteration, d.graph.Tiles()); err != nil {
			return iteration, fmt.Errorf("merge: writing intermediate %d: %w", iteration, err)
		}
	}
}
