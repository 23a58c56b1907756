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
	exposedGeoHazards  string
	exposedGeoUnits    string
	exposedGeoRaster   string
	exposedGeoByUnique bool
	exposedGeoOut      string
	exposedGeoFormat   string
)

var exposedGeoCmd = &cobra.Command{
	Use:   "exposed-geo",
	Short: "Estimate exposed population per hazard, split by spatial unit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		hazards, err := geoio.LoadHazards(exposedGeoHazards)
		if err != nil {
			return err
		}
		units, err := geoio.LoadUnits(exposedGeoUnits)
		if err != nil {
			return err
		}
		grid, err := raster.ReadASC(exposedGeoRaster)
		if err != nil {
			return err
		}
		zap.L().Info("exposed-geo: inputs loaded",
			zap.Int("hazards", len(hazards)),
			zap.Int("units", len(units)),
			zap.Int("raster_cols", grid.Width),
			zap.Int("raster_rows", grid.Height),
		)

		t, err := exposure.FindPeopleAffectedByGeo(ctx, hazards, units, grid, engineOptions(exposedGeoByUnique))
		if err != nil {
			return err
		}

		params := model.RunParams{
			HazardPath:     exposedGeoHazards,
			UnitPath:       exposedGeoUnits,
			RasterPath:     exposedGeoRaster,
			ByUniqueHazard: exposedGeoByUnique,
		}
		return finishRun(ctx, model.RunKindExposedGeo, params, t, exposedGeoOut, exposedGeoFormat)
	},
}

func init() {
	exposedGeoCmd.Flags().StringVar(&exposedGeoHazards, "hazards", "", "hazard vector file (.geojson or .shp)")
	exposedGeoCmd.Flags().StringVar(&exposedGeoUnits, "units", "", "spatial-unit vector file (.geojson or .shp)")
	exposedGeoCmd.Flags().StringVar(&exposedGeoRaster, "raster", "", "population raster (.asc)")
	exposedGeoCmd.Flags().BoolVar(&exposedGeoByUnique, "by-unique-hazard", false, "count each hazard independently instead of merging overlaps")
	exposedGeoCmd.Flags().StringVar(&exposedGeoOut, "out", "", "output file; omit for a stdout summary")
	exposedGeoCmd.Flags().StringVar(&exposedGeoFormat, "format", "csv", "output format: csv, yaml, or xlsx")
	_ = exposedGeoCmd.MarkFlagRequired("hazards")
	_ = exposedGeoCmd.MarkFlagRequired("units")
	_ = exposedGeoCmd.MarkFlagRequired("raster")
	_ = exposedGeoCmd.MarkFlagRequired("by-unique-hazard")
	rootCmd.AddCommand(exposedGeoCmd)
}
