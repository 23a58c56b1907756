package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/exposure-cli/internal/exposure"
	"github.com/sells-group/exposure-cli/internal/geoio"
	"github.com/sells-group/exposure-cli/internal/model"
	"github.com/sells-group/exposure-cli/internal/raster"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server exposing the estimator",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/v1/exposed", handleExposed)
		r.Post("/v1/residing", handleResiding)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(cmd.Context())
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

type exposedRequest struct {
	Hazards        json.RawMessage `json:"hazards"`
	Units          json.RawMessage `json:"units,omitempty"`
	Raster         string          `json:"raster"`
	ByUniqueHazard bool            `json:"by_unique_hazard"`
}

type residingRequest struct {
	Units  json.RawMessage `json:"units"`
	Raster string          `json:"raster"`
}

type runResponse struct {
	Results []model.ExposureRow `json:"results"`
	Errors  []errorResponse     `json:"errors,omitempty"`
}

type errorResponse struct {
	Label   string `json:"label"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// handleExposed runs the exposed estimate, per spatial unit when a units
// collection is supplied.
func handleExposed(w http.ResponseWriter, r *http.Request) {
	var req exposedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Hazards) == 0 || req.Raster == "" {
		writeError(w, http.StatusBadRequest, "hazards and raster are required")
		return
	}

	hazards, err := geoio.ParseHazards(req.Hazards)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	grid, err := raster.ReadASC(req.Raster)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := engineOptions(req.ByUniqueHazard)
	var t exposure.Tables
	if len(req.Units) > 0 {
		units, err := geoio.ParseUnits(req.Units)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		t, err = exposure.FindPeopleAffectedByGeo(r.Context(), hazards, units, grid, opts)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	} else {
		t, err = exposure.FindPeopleAffected(r.Context(), hazards, grid, opts)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, toResponse(t))
}

func handleResiding(w http.ResponseWriter, r *http.Request) {
	var req residingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Units) == 0 || req.Raster == "" {
		writeError(w, http.StatusBadRequest, "units and raster are required")
		return
	}

	units, err := geoio.ParseUnits(req.Units)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	grid, err := raster.ReadASC(req.Raster)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := exposure.FindPeopleResidingByGeo(r.Context(), units, grid, engineOptions(false))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toResponse(t))
}

func toResponse(t exposure.Tables) runResponse {
	resp := runResponse{Results: t.Rows}
	if resp.Results == nil {
		resp.Results = []model.ExposureRow{}
	}
	for _, ue := range t.Errors {
		resp.Errors = append(resp.Errors, errorResponse{Label: ue.Label, Stage: ue.Stage, Message: ue.Message()})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
