// Package skeleton extracts a joint/bone skeleton from a chord graph and
// computes pose transforms for it.
package skeleton

import (
	"container/heap"
	"math"
	"sort"

	"tubegen/internal/chord"
	"tubegen/internal/mathutil"
)

// Skeleton is a simple undirected graph of joints and bones.
type Skeleton struct {
	Joints []mathutil.Vec3
	Bones  [][2]int
}

// Options are the simplification thresholds.
type Options struct {
	// DeviationThreshold bounds the chain collapse score
	// offset/|uw| + 0.5·|dir·axis|.
	DeviationThreshold float64
	// MinBoneLength merges bones shorter than this.
	MinBoneLength float64
	// PruneLength is the length budget for trimming leaf branches.
	PruneLength float64
}

// work is the mutable graph simplified by Extract.
type work struct {
	pos     []mathutil.Vec3
	dir     []mathutil.Vec3 // cross-section direction, zero for added nodes
	adj     []map[int]bool
	alive   []bool
	version []int
}

func (w *work) add(p, d mathutil.Vec3) int {
	w.pos = append(w.pos, p)
	w.dir = append(w.dir, d)
	w.adj = append(w.adj, map[int]bool{})
	w.alive = append(w.alive, true)
	w.version = append(w.version, 0)
	return len(w.pos) - 1
}

func (w *work) link(a, b int) {
	if a == b {
		return
	}
	w.adj[a][b] = true
	w.adj[b][a] = true
}

func (w *work) unlink(a, b int) {
	delete(w.adj[a], b)
	delete(w.adj[b], a)
}

func (w *work) neighbors(v int) []int {
	out := make([]int, 0, len(w.adj[v]))
	for u := range w.adj[v] {
		out = append(out, u)
	}
	sort.Ints(out)
	return out
}

// remove deletes v and bumps the version of its neighbours.
func (w *work) remove(v int) {
	for u := range w.adj[v] {
		delete(w.adj[u], v)
		w.version[u]++
	}
	w.adj[v] = map[int]bool{}
	w.alive[v] = false
}

// seed builds the initial graph: chords, junction centres and cap tips.
func seed(g *chord.Graph) *work {
	w := &work{}
	for _, n := range g.Nodes {
		w.add(n.Center.Vec3(0), n.Dir.Vec3(0))
	}
	for i := range g.Nodes {
		for _, j := range g.Links[i] {
			w.link(i, j)
		}
	}
	for _, j := range g.Junctions {
		var c mathutil.Vec3
		for _, ch := range j.Chords {
			c = c.Add(w.pos[ch])
		}
		hub := w.add(c.Scale(1.0/3), mathutil.Vec3{})
		for _, ch := range j.Chords {
			w.link(hub, ch)
		}
	}
	for _, c := range g.Caps {
		if c.Free < 0 || c.Free >= len(g.Points) {
			continue
		}
		tip := w.add(g.Points[c.Free].Vec3(0), mathutil.Vec3{})
		w.link(tip, c.Chord)
	}
	return w
}

// score is the chain collapse cost of a degree-2 node.
func (w *work) score(v int) float64 {
	nb := w.neighbors(v)
	a, b := w.pos[nb[0]], w.pos[nb[1]]
	span := a.Dist(b)
	if span < mathutil.LengthEps {
		return 0
	}
	offset, _ := mathutil.SegmentDist(w.pos[v], a, b)
	axis := b.Sub(a).Scale(1 / span)
	return offset/span + 0.5*math.Abs(w.dir[v].Dot(axis))
}

type candidate struct {
	node    int
	score   float64
	version int
}

type queue []candidate

func (q queue) Len() int            { return len(q) }
func (q queue) Less(i, j int) bool  { return q[i].score < q[j].score }
func (q queue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x interface{}) { *q = append(*q, x.(candidate)) }
func (q *queue) Pop() interface{} {
	old := *q
	c := old[len(old)-1]
	*q = old[:len(old)-1]
	return c
}

// collapseChains removes degree-2 nodes in ascending score order while the
// score stays under threshold, linking their two neighbours directly.
func (w *work) collapseChains(threshold float64) {
	q := &queue{}
	push := func(v int) {
		if w.alive[v] && len(w.adj[v]) == 2 {
			heap.Push(q, candidate{node: v, score: w.score(v), version: w.version[v]})
		}
	}
	for v := range w.pos {
		push(v)
	}
	for q.Len() > 0 {
		c := heap.Pop(q).(candidate)
		v := c.node
		if !w.alive[v] || c.version != w.version[v] || len(w.adj[v]) != 2 {
			continue
		}
		if c.score >= threshold {
			break
		}
		// Never shrink the graph below a single bone.
		if w.aliveCount() <= 2 {
			break
		}
		nb := w.neighbors(v)
		w.remove(v)
		w.link(nb[0], nb[1])
		push(nb[0])
		push(nb[1])
	}
}

func (w *work) aliveCount() int {
	n := 0
	for _, a := range w.alive {
		if a {
			n++
		}
	}
	return n
}

// leafBranch walks from leaf v to the first node of degree ≥ 3. It returns
// the nodes strictly before that node, the node itself (-1 if none) and the
// path length.
func (w *work) leafBranch(v int) ([]int, int, float64) {
	path := []int{v}
	prev, cur := -1, v
	length := 0.0
	for {
		next := -1
		for u := range w.adj[cur] {
			if u != prev {
				next = u
				break
			}
		}
		if next < 0 {
			return path, -1, length
		}
		length += w.pos[cur].Dist(w.pos[next])
		if len(w.adj[next]) >= 3 {
			return path, next, length
		}
		path = append(path, next)
		prev, cur = cur, next
	}
}

// trimLeaves removes leaf branches shorter than their budget, shortest
// first. The unused budget moves to the branch node, so trimming a chain of
// branches from one place never exceeds the original budget.
func (w *work) trimLeaves(budget float64) {
	left := make(map[int]float64)
	budgetOf := func(v int) float64 {
		if b, ok := left[v]; ok {
			return b
		}
		return budget
	}
	for {
		best, bestLen, bestAt := []int(nil), math.Inf(1), -1
		for v := range w.pos {
			if !w.alive[v] || len(w.adj[v]) != 1 {
				continue
			}
			path, at, length := w.leafBranch(v)
			if at < 0 || length >= budgetOf(v) || length >= bestLen {
				continue
			}
			best, bestLen, bestAt = path, length, at
		}
		if best == nil {
			return
		}
		slack := budgetOf(best[0]) - bestLen
		for _, v := range best {
			w.remove(v)
		}
		if cur, ok := left[bestAt]; !ok || slack < cur {
			left[bestAt] = slack
		}
	}
}

// mergeShort folds the lower-degree end of every bone shorter than min into
// the other end, re-homing its remaining edges.
func (w *work) mergeShort(min float64) {
	for {
		merged := false
		for a := range w.pos {
			if !w.alive[a] {
				continue
			}
			for _, b := range w.neighbors(a) {
				if w.aliveCount() <= 2 {
					return
				}
				if w.pos[a].Dist(w.pos[b]) >= min {
					continue
				}
				keep, drop := a, b
				if len(w.adj[b]) > len(w.adj[a]) {
					keep, drop = b, a
				}
				for _, u := range w.neighbors(drop) {
					w.unlink(drop, u)
					w.link(keep, u)
				}
				w.remove(drop)
				merged = true
				break
			}
		}
		if !merged {
			return
		}
	}
}

func (w *work) compact() *Skeleton {
	s := &Skeleton{}
	index := make([]int, len(w.pos))
	for v := range w.pos {
		index[v] = -1
		if w.alive[v] {
			index[v] = len(s.Joints)
			s.Joints = append(s.Joints, w.pos[v])
		}
	}
	for v := range w.pos {
		if !w.alive[v] {
			continue
		}
		for _, u := range w.neighbors(v) {
			if v < u {
				s.Bones = append(s.Bones, [2]int{index[v], index[u]})
			}
		}
	}
	return s
}

// Extract builds the skeleton of g: seed one node per chord, junction and
// cap tip, collapse low-deviation chain nodes, trim short leaf branches,
// merge short bones and re-index.
func Extract(g *chord.Graph, opt Options) *Skeleton {
	w := seed(g)
	w.collapseChains(opt.DeviationThreshold)
	if opt.PruneLength > 0 {
		w.trimLeaves(opt.PruneLength)
		w.collapseChains(opt.DeviationThreshold)
	}
	if opt.MinBoneLength > 0 {
		w.mergeShort(opt.MinBoneLength)
	}
	return w.compact()
}
