// Package registry is the prospective-join registry: a memoized,
// lazily-recomputed priority structure over the tile graph's edges,
// ordered by (R², parcel count, sorted key pair).
package registry

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/kwv/parceltile/ols"
	"github.com/kwv/parceltile/parcel"
)

// TileSource is the narrow read-only view the registry needs of the
// tile graph: which parcels a candidate join would cover, and the
// current edge set to seed from.
type TileSource interface {
	MemberParcels(a, b string) []parcel.Parcel
	Edges() [][2]string
}

type entry struct {
	a, b        string
	r2          float64
	parcelCount int
	stale       bool
}

func key(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Registry holds one memo entry per live edge.
type Registry struct {
	mu       sync.Mutex
	source   TileSource
	minSales int
	parallel bool
	entries  map[[2]string]*entry
}

// New constructs a Registry over source, scoring with the given
// sales-count gate. parallel enables the optional goroutine fan-out
// described for stale-edge recomputation inside Best.
func New(source TileSource, minSales int, parallel bool) *Registry {
	return &Registry{source: source, minSales: minSales, parallel: parallel, entries: make(map[[2]string]*entry)}
}

// Init seeds the registry from the tile graph's current edge set. Every
// entry starts stale so its first Best() call evaluates it.
func (r *Registry) Init() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.source.Edges() {
		a, b := key(e[0], e[1])
		r.entries[[2]string{a, b}] = &entry{a: a, b: b, stale: true}
	}
}

// Invalidate marks the given edge's memo stale.
func (r *Registry) Invalidate(a, b string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ka, kb := key(a, b)
	if e, ok := r.entries[[2]string{ka, kb}]; ok {
		e.stale = true
	}
}

// OnMerge is called after the tile graph has performed the merge
// producing c from (a, b): the edge {a,b} is dropped, every edge from a
// or b to a counterpart collapses into a single stale edge {c,
// counterpart}.
func (r *Registry) OnMerge(a, b, c string, counterparts []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ka, kb := key(a, b)
	delete(r.entries, [2]string{ka, kb})

	for ek := range r.entries {
		if ek[0] == a || ek[1] == a || ek[0] == b || ek[1] == b {
			delete(r.entries, ek)
		}
	}

	for _, cp := range counterparts {
		na, nb := key(c, cp)
		r.entries[[2]string{na, nb}] = &entry{a: na, b: nb, stale: true}
	}
}

// Best recomputes every stale entry (optionally in parallel) and returns
// the edge with the highest R², ties broken by higher parcel count, then
// by the ascending sorted key pair. ok is false when no edges remain.
func (r *Registry) Best(ctx context.Context) (a, b string, r2 float64, ok bool) {
	r.mu.Lock()
	stale := make([]*entry, 0)
	for _, e := range r.entries {
		if e.stale {
			stale = append(stale, e)
		}
	}
	r.mu.Unlock()

	if len(stale) > 0 {
		if r.parallel {
			r.recomputeParallel(stale)
		} else {
			for _, e := range stale {
				r.recomputeOne(e)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*entry
	for _, e := range r.entries {
		all = append(all, e)
	}
	if len(all) == 0 {
		return "", "", 0, false
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].r2 != all[j].r2 {
			return all[i].r2 > all[j].r2
		}
		if all[i].parcelCount != all[j].parcelCount {
			return all[i].parcelCount > all[j].parcelCount
		}
		if all[i].a != all[j].a {
			return all[i].a < all[j].a
		}
		return all[i].b < all[j].b
	})
	winner := all[0]
	return winner.a, winner.b, winner.r2, true
}

// recomputeOne evaluates a single stale entry, recovering from a panic
// by recording a zero score rather than aborting the run — mirroring the
// original implementation's defensive per-pair worker contract.
func (r *Registry) recomputeOne(e *entry) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("registry: recovered panic scoring edge (%s, %s): %v", e.a, e.b, rec)
			e.r2 = 0
			e.parcelCount = 0
			e.stale = false
		}
	}()
	region := r.source.MemberParcels(e.a, e.b)
	res := ols.Evaluate(region, r.minSales)
	e.r2 = res.R2
	e.parcelCount = res.ParcelCount
	e.stale = false
}

// recomputeParallel fans the stale entries out across goroutines joined
// by a WaitGroup, the same idiom the teacher stress-tests for its own
// mutex-guarded state tracker. Each goroutine only ever writes into its
// own entry's fields, so no additional locking is needed per entry.
func (r *Registry) recomputeParallel(stale []*entry) {
	var wg sync.WaitGroup
	wg.Add(len(stale))
	for _, e := range stale {
		e := e
		go func() {
			defer wg.Done()
			r.recomputeOne(e)
		}()
	}
	wg.Wait()
}
