// Package exposure orchestrates the pipeline: reproject, buffer, group,
// join, rasterize, aggregate. Units of work are independent; failures are
// collected per unit and never abort siblings.
package exposure

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/exposure-cli/internal/buffer"
	"github.com/sells-group/exposure-cli/internal/coverage"
	"github.com/sells-group/exposure-cli/internal/model"
	"github.com/sells-group/exposure-cli/internal/overlap"
	"github.com/sells-group/exposure-cli/internal/proj"
	"github.com/sells-group/exposure-cli/internal/raster"
)

// Options tunes one invocation. ByUniqueHazard has no default: true counts
// each hazard independently (double counting across overlapping buffers is
// the documented semantic), false merges overlapping buffers first.
type Options struct {
	ByUniqueHazard bool
	Workers        int
	QuadSegs       int
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return 4
	}
	return o.Workers
}

// Tables is what every entry point returns: the partial result set plus
// the per-unit error records.
type Tables struct {
	Rows   []model.ExposureRow
	Errors []model.UnitError
}

// FindPeopleAffected estimates population within each hazard's buffered
// zone. Output rows carry the hazard id, or the concatenated group label
// in cumulative mode.
func FindPeopleAffected(ctx context.Context, hazards []model.Hazard, grid *raster.Grid, opts Options) (Tables, error) {
	groups, t := prepare(ctx, hazards, opts)

	t.Rows = aggregateGroups(ctx, groups, nil, grid, opts)
	return t, runOutcome(len(hazards), t)
}

// FindPeopleAffectedByGeo estimates population within each hazard group,
// disaggregated by spatial unit. One row per non-empty intersection.
func FindPeopleAffectedByGeo(ctx context.Context, hazards []model.Hazard, units []model.SpatialUnit, grid *raster.Grid, opts Options) (Tables, error) {
	groups, t := prepare(ctx, hazards, opts)

	valid := make([]model.SpatialUnit, 0, len(units))
	for _, u := range units {
		if err := model.ValidateUnit(u); err != nil {
			t.Errors = append(t.Errors, model.UnitError{Label: u.ID, Stage: "validate", Err: err})
			continue
		}
		valid = append(valid, u)
	}

	pairs, joinErrs := Join(groups, valid)
	t.Errors = append(t.Errors, joinErrs...)

	t.Rows = aggregateGroups(ctx, nil, pairs, grid, opts)
	return t, runOutcome(len(hazards)+len(units), t)
}

// FindPeopleResidingByGeo computes plain per-unit population totals with
// no hazard involved: the denominators. Every input unit gets a row; a
// unit outside the raster extent reports zero.
func FindPeopleResidingByGeo(ctx context.Context, units []model.SpatialUnit, grid *raster.Grid, opts Options) (Tables, error) {
	var t Tables
	type task struct {
		unit model.SpatialUnit
		mp   *geom.MultiPolygon
	}

	tasks := make([]task, 0, len(units))
	for _, u := range units {
		if err := model.ValidateUnit(u); err != nil {
			t.Errors = append(t.Errors, model.UnitError{Label: u.ID, Stage: "validate", Err: err})
			continue
		}
		mp, err := model.AsMultiPolygon(u.Geometry)
		if err != nil {
			t.Errors = append(t.Errors, model.UnitError{Label: u.ID, Stage: "validate", Err: err})
			continue
		}
		tasks = append(tasks, task{unit: u, mp: mp})
	}

	rows := make([]model.ExposureRow, len(tasks))
	progress := newProgress("residing", len(tasks))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, tk := range tasks {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res := coverage.AggregatePolygon(tk.mp, grid)
			rows[i] = model.ExposureRow{
				UnitID:     tk.unit.ID,
				Population: res.Population,
				NoDataOnly: res.NoDataOnly,
			}
			progress.tick()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return t, eris.Wrap(err, "exposure: residing")
	}
	t.Rows = rows
	return t, runOutcome(len(units), t)
}

// prepare validates, reprojects, and buffers the hazards, then groups
// them according to the requested semantics.
func prepare(ctx context.Context, hazards []model.Hazard, opts Options) ([]model.HazardGroup, Tables) {
	var t Tables

	buffered := make([]*model.BufferedHazard, len(hazards))
	var mu sync.Mutex
	progress := newProgress("buffer", len(hazards))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, h := range hazards {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return nil
			}
			bh, err := bufferOne(h, opts)
			if err != nil {
				mu.Lock()
				t.Errors = append(t.Errors, model.UnitError{Label: h.ID, Stage: "buffer", Err: err})
				mu.Unlock()
				return nil
			}
			buffered[i] = &bh
			progress.tick()
			return nil
		})
	}
	_ = g.Wait()

	// Compact in input order so grouping stays caller-order stable.
	ok := make([]model.BufferedHazard, 0, len(hazards))
	for _, bh := range buffered {
		if bh != nil {
			ok = append(ok, *bh)
		}
	}

	if opts.ByUniqueHazard {
		return overlap.Singletons(ok), t
	}
	groups, err := overlap.Group(ok)
	if err != nil {
		// Grouping failure poisons the cumulative semantics; surface it
		// against every surviving hazard rather than guessing a partition.
		for _, bh := range ok {
			t.Errors = append(t.Errors, model.UnitError{Label: bh.IDs[0], Stage: "group", Err: err})
		}
		return nil, t
	}
	return groups, t
}

func bufferOne(h model.Hazard, opts Options) (model.BufferedHazard, error) {
	if err := model.ValidateHazard(h); err != nil {
		return model.BufferedHazard{}, err
	}
	tr, err := proj.ForGeometry(h.Geometry)
	if err != nil {
		return model.BufferedHazard{}, err
	}
	return buffer.Buffer(h, tr, opts.QuadSegs)
}

// aggregateGroups rasterizes and sums either whole groups or joined
// (group × unit) pairs across the worker pool. Each unit's peak memory is
// its own bounding-window accumulator, released before the next unit.
func aggregateGroups(ctx context.Context, groups []model.HazardGroup, pairs []Pair, grid *raster.Grid, opts Options) []model.ExposureRow {
	type task struct {
		label  string
		unitID string
		mp     *geom.MultiPolygon
	}
	var tasks []task
	for _, grp := range groups {
		tasks = append(tasks, task{label: grp.Label(), mp: grp.Geometry})
	}
	for _, p := range pairs {
		tasks = append(tasks, task{label: p.Group.Label(), unitID: p.UnitID, mp: p.Geometry})
	}

	rows := make([]model.ExposureRow, len(tasks))
	progress := newProgress("aggregate", len(tasks))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, tk := range tasks {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return nil
			}
			res := coverage.AggregatePolygon(tk.mp, grid)
			rows[i] = model.ExposureRow{
				Label:      tk.label,
				UnitID:     tk.unitID,
				Population: res.Population,
				NoDataOnly: res.NoDataOnly,
			}
			progress.tick()
			return nil
		})
	}
	_ = g.Wait()
	return rows
}

// runOutcome decides the overall error. Each input record fails at most one
// stage, so the call fails only when every record produced an error record.
// An empty row table alone is not failure: a hazard can process cleanly yet
// intersect no unit.
func runOutcome(inputs int, t Tables) error {
	if inputs > 0 && len(t.Errors) >= inputs {
		return eris.Errorf("exposure: all %d input record(s) failed", inputs)
	}
	return nil
}

// progress emits throttled status lines, standing in for an interactive
// progress bar.
type progress struct {
	stage string
	total int
	done  int
	mu    sync.Mutex
	s     rate.Sometimes
}

func newProgress(stage string, total int) *progress {
	return &progress{stage: stage, total: total, s: rate.Sometimes{Interval: 2 * time.Second}}
}

func (p *progress) tick() {
	p.mu.Lock()
	p.done++
	done := p.done
	p.mu.Unlock()
	p.s.Do(func() {
		zap.L().Info("exposure: progress",
			zap.String("stage", p.stage),
			zap.Int("done", done),
			zap.Int("total", p.total),
		)
	})
}
