package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/exposure-cli/internal/exposure"
	"github.com/sells-group/exposure-cli/internal/geoio"
	"github.com/sells-group/exposure-cli/internal/model"
	"github.com/sells-group/exposure-cli/internal/raster"
)

var (
	exposedHazards  string
	exposedRaster   string
	exposedByUnique bool
	exposedOut      string
	exposedFormat   string
)

var exposedCmd = &cobra.Command{
	Use:   "exposed",
	Short: "Estimate population inside each hazard's buffered zone",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		hazards, err := geoio.LoadHazards(exposedHazards)
		if err != nil {
			return err
		}
		grid, err := raster.ReadASC(exposedRaster)
		if err != nil {
			return err
		}
		zap.L().Info("exposed: inputs loaded",
			zap.Int("hazards", len(hazards)),
			zap.Int("raster_cols", grid.Width),
			zap.Int("raster_rows", grid.Height),
		)

		t, err := exposure.FindPeopleAffected(ctx, hazards, grid, engineOptions(exposedByUnique))
		if err != nil {
			return err
		}

		params := model.RunParams{
			HazardPath:     exposedHazards,
			RasterPath:     exposedRaster,
			ByUniqueHazard: exposedByUnique,
		}
		return finishRun(ctx, model.RunKindExposed, params, t, exposedOut, exposedFormat)
	},
}

func init() {
	exposedCmd.Flags().StringVar(&exposedHazards, "hazards", "", "hazard vector file (.geojson or .shp)")
	exposedCmd.Flags().StringVar(&exposedRaster, "raster", "", "population raster (.asc)")
	exposedCmd.Flags().BoolVar(&exposedByUnique, "by-unique-hazard", false, "count each hazard independently instead of merging overlaps")
	exposedCmd.Flags().StringVar(&exposedOut, "out", "", "output file; omit for a stdout summary")
	exposedCmd.Flags().StringVar(&exposedFormat, "format", "csv", "output format: csv, yaml, or xlsx")
	_ = exposedCmd.MarkFlagRequired("hazards")
	_ = exposedCmd.MarkFlagRequired("raster")
	_ = exposedCmd.MarkFlagRequired("by-unique-hazard")
	rootCmd.AddCommand(exposedCmd)
}
