package exposure

import (
	"github.com/engelsjk/polygol"
	"github.com/rotisserie/eris"
	"github.com/tidwall/rtree"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/exposure-cli/internal/model"
)

// Pair is one non-empty (hazard group × spatial unit) intersection. Its
// geometry — not the full group geometry — is what gets rasterized, so
// population is attributed only to the part of the buffer inside the unit.
type Pair struct {
	Group    model.HazardGroup
	UnitID   string
	Geometry *geom.MultiPolygon
}

// Join intersects every group against every spatial unit whose bounding
// box overlaps it. One group can emit several pairs and one unit can
// receive contributions from several groups. Per-group failures are
// reported; sibling groups keep going.
func Join(groups []model.HazardGroup, units []model.SpatialUnit) ([]Pair, []model.UnitError) {
	unitPGs := make([]polygol.Geom, len(units))
	var index rtree.RTreeG[int]
	var errs []model.UnitError
	for i, u := range units {
		pg, err := model.ToPolygol(u.Geometry)
		if err != nil {
			errs = append(errs, model.UnitError{Label: u.ID, Stage: "join", Err: err})
			continue
		}
		unitPGs[i] = pg
		b := u.Geometry.Bounds()
		index.Insert([2]float64{b.Min(0), b.Min(1)}, [2]float64{b.Max(0), b.Max(1)}, i)
	}

	var pairs []Pair
	for _, grp := range groups {
		pg, err := model.ToPolygol(grp.Geometry)
		if err != nil {
			errs = append(errs, model.UnitError{Label: grp.Label(), Stage: "join", Err: err})
			continue
		}

		b := grp.Geometry.Bounds()
		var candidates []int
		index.Search(
			[2]float64{b.Min(0), b.Min(1)},
			[2]float64{b.Max(0), b.Max(1)},
			func(_, _ [2]float64, i int) bool {
				candidates = append(candidates, i)
				return true
			},
		)

		for _, i := range candidates {
			inter, err := polygol.Intersection(pg, unitPGs[i])
			if err != nil {
				errs = append(errs, model.UnitError{
					Label: grp.Label(),
					Stage: "join",
					Err:   eris.Wrapf(err, "intersect unit %s", units[i].ID),
				})
				continue
			}
			if model.Empty(inter) {
				continue
			}
			mp, err := model.FromPolygol(inter)
			if err != nil {
				errs = append(errs, model.UnitError{Label: grp.Label(), Stage: "join", Err: err})
				continue
			}
			pairs = append(pairs, Pair{Group: grp, UnitID: units[i].ID, Geometry: mp})
		}
	}
	return pairs, errs
}
