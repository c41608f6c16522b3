package mesh

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"tubegen/internal/mathutil"
)

// Locator answers nearest-vertex queries over a fixed point set.
type Locator struct {
	tree *kdtree.Tree
}

// site is a vertex position tagged with its index.
type site struct {
	p mathutil.Vec3
	i int
}

func (s site) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return s.p[d] - c.(site).p[d]
}

func (s site) Dims() int { return 3 }

// Distance is squared Euclidean, as kdtree expects.
func (s site) Distance(c kdtree.Comparable) float64 {
	d := s.p.Sub(c.(site).p)
	return d.Dot(d)
}

type sites []site

func (s sites) Index(i int) kdtree.Comparable         { return s[i] }
func (s sites) Len() int                              { return len(s) }
func (s sites) Pivot(d kdtree.Dim) int                { return plane{sites: s, dim: d}.Pivot() }
func (s sites) Slice(start, end int) kdtree.Interface { return s[start:end] }

type plane struct {
	sites
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool { return p.sites[i].p[p.dim] < p.sites[j].p[p.dim] }
func (p plane) Swap(i, j int)      { p.sites[i], p.sites[j] = p.sites[j], p.sites[i] }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.sites = p.sites[start:end]
	return p
}

// NewLocator indexes pts. The slice is not retained.
func NewLocator(pts []mathutil.Vec3) *Locator {
	if len(pts) == 0 {
		return &Locator{}
	}
	s := make(sites, len(pts))
	for i, p := range pts {
		s[i] = site{p: p, i: i}
	}
	return &Locator{tree: kdtree.New(s, false)}
}

// Nearest returns the index of the point closest to p, or -1 when empty.
func (l *Locator) Nearest(p mathutil.Vec3) int {
	if l.tree == nil {
		return -1
	}
	c, _ := l.tree.Nearest(site{p: p, i: -1})
	if c == nil {
		return -1
	}
	return c.(site).i
}
