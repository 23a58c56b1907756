package main

import (
	"context"
	"io"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/exposure-cli/internal/exposure"
	"github.com/sells-group/exposure-cli/internal/geoio"
	"github.com/sells-group/exposure-cli/internal/model"
	"github.com/sells-group/exposure-cli/internal/store"
)

func engineOptions(byUnique bool) exposure.Options {
	return exposure.Options{
		ByUniqueHazard: byUnique,
		Workers:        cfg.Engine.Workers,
		QuadSegs:       cfg.Engine.QuadSegs,
	}
}

// finishRun records the run, then writes the result table to a file or a
// stdout summary. Store failures are logged, not fatal: the computed
// results still reach the caller.
func finishRun(ctx context.Context, kind model.RunKind, params model.RunParams, t exposure.Tables, outPath, format string) error {
	recordRun(ctx, kind, params, t)

	for _, ue := range t.Errors {
		zap.L().Warn("exposure: unit failed",
			zap.String("label", ue.Label),
			zap.String("stage", ue.Stage),
			zap.Error(ue.Err),
		)
	}

	if outPath == "" {
		printSummary(os.Stdout, t)
		return nil
	}
	f, err := geoio.FormatFromString(format)
	if err != nil {
		return err
	}
	if err := geoio.WriteResults(t, outPath, f); err != nil {
		return err
	}
	zap.L().Info("exposure: results written",
		zap.String("path", outPath),
		zap.Int("rows", len(t.Rows)),
		zap.Int("errors", len(t.Errors)),
	)
	return nil
}

func recordRun(ctx context.Context, kind model.RunKind, params model.RunParams, t exposure.Tables) {
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("store unavailable, run not recorded", zap.Error(err))
		return
	}
	defer func() { _ = st.Close() }()

	run, err := st.CreateRun(ctx, kind, params)
	if err != nil {
		zap.L().Warn("store: create run", zap.Error(err))
		return
	}
	status := store.StatusFor(len(t.Rows), len(t.Errors))
	if err := st.CompleteRun(ctx, run.ID, status, t.Rows, t.Errors); err != nil {
		zap.L().Warn("store: complete run", zap.String("run_id", run.ID), zap.Error(err))
		return
	}
	zap.L().Info("run recorded", zap.String("run_id", run.ID), zap.String("status", string(status)))
}

func printSummary(w io.Writer, t exposure.Tables) {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	p.Fprintln(tw, "HAZARD\tUNIT\tPOPULATION\tNOTE")
	for _, row := range t.Rows {
		note := ""
		if row.NoDataOnly {
			note = "no-data-only"
		}
		p.Fprintf(tw, "%s\t%s\t%.1f\t%s\n", row.Label, row.UnitID, row.Population, note)
	}
	_ = tw.Flush()

	if len(t.Errors) > 0 {
		p.Fprintf(w, "\n%d unit(s) failed; see log for details\n", len(t.Errors))
	}
}
