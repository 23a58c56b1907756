// Package overlap groups buffered hazards whose interiors intersect, so
// cumulative (any-hazard) counting never double-counts residents shared by
// overlapping buffers.
package overlap

import (
	"github.com/engelsjk/polygol"
	"github.com/rotisserie/eris"
	"github.com/tidwall/rtree"

	"github.com/sells-group/exposure-cli/internal/model"
)

// Group partitions buffered hazards into connected components of interior
// overlap and dissolves each component into one geometry. Every input
// hazard lands in exactly one group; member ids keep caller order.
// Candidate pairs come from an R-tree over bounding boxes, so the pairwise
// test runs near O(n log n); correctness does not depend on the index.
func Group(hazards []model.BufferedHazard) ([]model.HazardGroup, error) {
	n := len(hazards)
	if n == 0 {
		return nil, nil
	}

	pgs := make([]polygol.Geom, n)
	for i, h := range hazards {
		pg, err := model.ToPolygol(h.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "overlap: hazard %v", h.IDs)
		}
		pgs[i] = pg
	}

	var index rtree.RTreeG[int]
	boxes := make([][2][2]float64, n)
	for i, h := range hazards {
		b := h.Geometry.Bounds()
		boxes[i] = [2][2]float64{{b.Min(0), b.Min(1)}, {b.Max(0), b.Max(1)}}
		index.Insert(boxes[i][0], boxes[i][1], i)
	}

	uf := newUnionFind(n)
	var overlapErr error
	for i := 0; i < n && overlapErr == nil; i++ {
		index.Search(boxes[i][0], boxes[i][1], func(_, _ [2]float64, j int) bool {
			if j <= i || uf.find(i) == uf.find(j) {
				return true
			}
			ok, err := interiorsIntersect(pgs[i], pgs[j])
			if err != nil {
				overlapErr = eris.Wrapf(err, "overlap: test %v against %v", hazards[i].IDs, hazards[j].IDs)
				return false
			}
			if ok {
				uf.union(i, j)
			}
			return true
		})
	}
	if overlapErr != nil {
		return nil, overlapErr
	}

	// Collect components preserving first-appearance order.
	members := map[int][]int{}
	var roots []int
	for i := 0; i < n; i++ {
		r := uf.find(i)
		if _, seen := members[r]; !seen {
			roots = append(roots, r)
		}
		members[r] = append(members[r], i)
	}

	groups := make([]model.HazardGroup, 0, len(roots))
	for _, r := range roots {
		g, err := dissolve(hazards, pgs, members[r])
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Singletons wraps each buffered hazard in its own group, skipping overlap
// detection. Residents inside overlapping buffers are counted once per
// hazard; that double counting is the documented per-hazard semantic.
func Singletons(hazards []model.BufferedHazard) []model.HazardGroup {
	groups := make([]model.HazardGroup, 0, len(hazards))
	for _, h := range hazards {
		groups = append(groups, model.HazardGroup{IDs: h.IDs, Geometry: h.Geometry})
	}
	return groups
}

// interiorsIntersect is a strict non-empty-interior test: buffers touching
// only along boundaries produce zero overlay area and stay separate.
func interiorsIntersect(a, b polygol.Geom) (bool, error) {
	inter, err := polygol.Intersection(a, b)
	if err != nil {
		return false, eris.Wrap(err, "overlap: intersection")
	}
	return model.PolygolArea(inter) > 0, nil
}

// dissolve unions one component's geometries and concatenates its ids.
func dissolve(hazards []model.BufferedHazard, pgs []polygol.Geom, idxs []int) (model.HazardGroup, error) {
	var ids []string
	for _, i := range idxs {
		ids = append(ids, hazards[i].IDs...)
	}
	if len(idxs) == 1 {
		return model.HazardGroup{IDs: ids, Geometry: hazards[idxs[0]].Geometry}, nil
	}

	merged := pgs[idxs[0]]
	rest := make([]polygol.Geom, 0, len(idxs)-1)
	for _, i := range idxs[1:] {
		rest = append(rest, pgs[i])
	}
	union, err := polygol.Union(merged, rest...)
	if err != nil {
		return model.HazardGroup{}, eris.Wrapf(err, "overlap: dissolve %v", ids)
	}
	mp, err := model.FromPolygol(union)
	if err != nil {
		return model.HazardGroup{}, eris.Wrapf(err, "overlap: dissolve %v", ids)
	}
	return model.HazardGroup{IDs: ids, Geometry: mp}, nil
}

// unionFind is an arena-allocated disjoint-set forest indexed by position,
// with path compression and union by size.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}
