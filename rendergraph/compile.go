package rendergraph

import (
	"container/heap"
	"fmt"
)

// Barrier is a synchronization point Compile inserts between a resource's
// producer pass and the next pass that consumes it, carrying enough of the
// declared access/stage information for a caller to emit the tightest
// GPU-API-specific barrier it can.
type Barrier struct {
	ResourceKind resourceKind
	Slot         uint32
	SrcAccess    AccessMask
	SrcStage     PipelineStage
	DstAccess    AccessMask
	DstStage     PipelineStage
	Before       int // index into Graph.Passes this barrier must execute before
}

// Graph is the immutable result of Builder.Compile: passes in scheduled
// order and the barriers to issue between them.
type Graph struct {
	Passes   []*Pass
	Barriers []Barrier
}

// resourceKey identifies one resource across all tracked kinds, used as a
// map key while Compile derives dependency edges.
type resourceKey struct {
	kind resourceKind
	slot uint32
}

// Compile topologically schedules the builder's declared passes using
// Kahn's algorithm. Ties among simultaneously-schedulable passes are broken
// by declaration order (via a container/heap min-heap keyed on declOrder),
// so Compile's output order is deterministic across runs given the same
// declarations — required for tests comparing a graph's schedule directly.
//
// Compile returns an error if the declared dependencies contain a cycle.
// Because edges are derived from a single forward pass over passes in
// declaration order, a cycle can't actually arise from today's dependency
// model; the check is defensive against a future resource kind (e.g.
// feedback loops across frames) that could introduce one.
func (b *Builder) Compile() (*Graph, error) {
	n := len(b.passes)
	adj := make([][]int, n)   // producer pass index -> consumer pass indices
	indegree := make([]int, n)
	var barriers []Barrier

	lastWriter := make(map[resourceKey]int)
	readersSince := make(map[resourceKey][]int)
	lastDep := make(map[resourceKey]dependency)

	addEdge := func(from, to int) {
		if from == to {
			return
		}
		adj[from] = append(adj[from], to)
		indegree[to]++
	}

	for i, p := range b.passes {
		for _, d := range p.deps {
			key := resourceKey{kind: d.kind, slot: d.slot}
			if d.write {
				if w, ok := lastWriter[key]; ok {
					addEdge(w, i)
					if prev, ok := lastDep[key]; ok {
						barriers = append(barriers, Barrier{
							ResourceKind: d.kind, Slot: d.slot,
							SrcAccess: prev.access, SrcStage: prev.stage,
							DstAccess: d.access, DstStage: d.stage,
							Before: i,
						})
					}
				}
				for _, r := range readersSince[key] {
					addEdge(r, i)
				}
				readersSince[key] = nil
				lastWriter[key] = i
				lastDep[key] = d
			} else {
				if w, ok := lastWriter[key]; ok {
					addEdge(w, i)
					if prev, ok := lastDep[key]; ok {
						barriers = append(barriers, Barrier{
							ResourceKind: d.kind, Slot: d.slot,
							SrcAccess: prev.access, SrcStage: prev.stage,
							DstAccess: d.access, DstStage: d.stage,
							Before: i,
						})
					}
				}
				readersSince[key] = append(readersSince[key], i)
			}
		}
	}

	scheduled, err := kahnSort(adj, indegree, b.passes)
	if err != nil {
		return nil, err
	}

	return &Graph{Passes: scheduled, Barriers: barriers}, nil
}

// declOrderHeap is a min-heap of pass indices ordered by declaration order,
// giving Kahn's algorithm a deterministic choice among several
// simultaneously-ready passes.
type declOrderHeap []int

func (h declOrderHeap) Len() int            { return len(h) }
func (h declOrderHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h declOrderHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *declOrderHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *declOrderHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

func kahnSort(adj [][]int, indegree []int, passes []*Pass) ([]*Pass, error) {
	n := len(passes)
	ready := &declOrderHeap{}
	heap.Init(ready)
	remaining := make([]int, n)
	copy(remaining, indegree)
	for i, deg := range remaining {
		if deg == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]*Pass, 0, n)
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		order = append(order, passes[i])
		for _, next := range adj[i] {
			remaining[next]--
			if remaining[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	if len(order) != n {
		return nil, fmt.Errorf("rendergraph: dependency cycle among declared passes")
	}
	return order, nil
}

// Execute runs every pass in the graph's scheduled order, invoking the
// callback matching its declared kind against rt. A PassDevice pass's
// recorder is supplied by newRecorder, called once per PassDevice pass
// immediately before its callback runs (typically wrapping a single
// command encoder the caller submits after Execute returns).
func (g *Graph) Execute(rt RuntimeView, newRecorder func() CommandRecorder) error {
	for _, p := range g.Passes {
		switch p.kind {
		case PassUpdate:
			if p.update != nil {
				p.update(rt)
			}
		case PassHost:
			if p.host != nil {
				if err := p.host(rt); err != nil {
					return fmt.Errorf("rendergraph: pass %q: %w", p.name, err)
				}
			}
		case PassDevice:
			if p.device != nil {
				rec := newRecorder()
				if err := p.device(rt, rec); err != nil {
					return fmt.Errorf("rendergraph: pass %q: %w", p.name, err)
				}
			}
		}
	}
	return nil
}
