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
	residingUnits  string
	residingRaster string
	residingOut    string
	residingFormat string
)

var residingCmd = &cobra.Command{
	Use:   "residing",
	Short: "Total population per spatial unit, no hazard involved",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		units, err := geoio.LoadUnits(residingUnits)
		if err != nil {
			return err
		}
		grid, err := raster.ReadASC(residingRaster)
		if err != nil {
			return err
		}
		zap.L().Info("residing: inputs loaded",
			zap.Int("units", len(units)),
			zap.Int("raster_cols", grid.Width),
			zap.Int("raster_rows", grid.Height),
		)

		t, err := exposure.FindPeopleResidingByGeo(ctx, units, grid, engineOptions(false))
		if err != nil {
			return err
		}

		params := model.RunParams{
			UnitPath:   residingUnits,
			RasterPath: residingRaster,
		}
		return finishRun(ctx, model.RunKindResiding, params, t, residingOut, residingFormat)
	},
}

func init() {
	residingCmd.Flags().StringVar(&residingUnits, "units", "", "spatial-unit vector file (.geojson or .shp)")
	residingCmd.Flags().StringVar(&residingRaster, "raster", "", "population raster (.asc)")
	residingCmd.Flags().StringVar(&residingOut, "out", "", "output file; omit for a stdout summary")
	residingCmd.Flags().StringVar(&residingFormat, "format", "csv", "output format: csv, yaml, or xlsx")
	_ = residingCmd.MarkFlagRequired("units")
	_ = residingCmd.MarkFlagRequired("raster")
	rootCmd.AddCommand(residingCmd)
}
