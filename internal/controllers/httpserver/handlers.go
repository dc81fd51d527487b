package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/chrissnell/roofwatts/internal/analysis"
	"github.com/chrissnell/roofwatts/internal/constants"
	"github.com/chrissnell/roofwatts/internal/log"
	"github.com/chrissnell/roofwatts/internal/sitefile"
	"github.com/chrissnell/roofwatts/internal/storage"
	"github.com/chrissnell/roofwatts/pkg/responseformat"
	"github.com/gorilla/mux"
)

// maxSiteDocumentBytes bounds the /api/analyze request body. A 50k-triangle
// soup document runs about 8 MB of JSON, so this leaves generous headroom.
const maxSiteDocumentBytes = 32 << 20

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// RunSummary is the list-endpoint view of a stored run. Full segment detail
// is available from the per-run endpoint.
type RunSummary struct {
	RunID              string    `json:"run_id"`
	Project            string    `json:"project,omitempty"`
	SourceFile         string    `json:"source_file,omitempty"`
	OK                 bool      `json:"ok"`
	Stage              string    `json:"stage"`
	Estimator          string    `json:"estimator,omitempty"`
	SegmentCount       int       `json:"segment_count"`
	TotalAreaM2        float64   `json:"total_area_m2"`
	TotalCapacityKW    float64   `json:"total_capacity_kw"`
	TotalProductionKWh *float64  `json:"total_production_kwh,omitempty"`
	Score              *float64  `json:"leed_score,omitempty"`
	GeneratedAt        time.Time `json:"generated_at"`
}

func newRunSummary(run *storage.AnalysisRun) RunSummary {
	return RunSummary{
		RunID:              run.RunID,
		Project:            run.Project,
		SourceFile:         run.SourceFile,
		OK:                 run.OK,
		Stage:              run.Stage,
		Estimator:          run.Estimator,
		SegmentCount:       run.SegmentCount,
		TotalAreaM2:        run.TotalAreaM2,
		TotalCapacityKW:    run.TotalCapacityKW,
		TotalProductionKWh: run.TotalProductionKWh,
		Score:              run.Score,
		GeneratedAt:        run.GeneratedAt,
	}
}

// AnalyzeSite runs the analysis pipeline over the site document in the
// request body and returns the result. Query parameters: offline=1 switches
// to the clear-sky estimator, lat/lon override the document's location.
func (h *Handlers) AnalyzeSite(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxSiteDocumentBytes)
	body, err := io.ReadAll(req.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.formatter.WriteError(w, req, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("site document exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.formatter.WriteError(w, req, http.StatusBadRequest, "error reading request body")
		return
	}

	doc, err := sitefile.Parse(body)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, fmt.Sprintf("invalid site document: %v", err))
		return
	}

	in := doc.Input()
	loc, err := locationOverride(req)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	if loc != nil {
		in.Location = loc
	}

	analyzer := h.controller.analyzer
	if offlineRequested(req) {
		analyzer = h.controller.offlineAnalyzer
	}

	res := analyzer.Run(req.Context(), in)

	if h.controller.StorageEnabled {
		if _, err := h.controller.Storage.SaveResult(res); err != nil {
			log.Errorf("error persisting analysis run %v: %v", res.RunID, err)
		}
	}

	if err := h.formatter.WriteResponse(w, req, res); err != nil {
		log.Errorf("error encoding analysis result: %v", err)
	}
}

// ListRuns returns summaries of stored runs, most recent first. Query
// parameters: limit (default 50) and project.
func (h *Handlers) ListRuns(w http.ResponseWriter, req *http.Request) {
	if !h.controller.StorageEnabled {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "results storage is not configured")
		return
	}

	limit := 0
	if limitStr := req.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			h.formatter.WriteError(w, req, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", limitStr))
			return
		}
	}

	runs, err := h.controller.Storage.ListRuns(limit, req.URL.Query().Get("project"))
	if err != nil {
		log.Errorf("error listing analysis runs: %v", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error listing analysis runs")
		return
	}

	summaries := make([]RunSummary, 0, len(runs))
	for i := range runs {
		summaries = append(summaries, newRunSummary(&runs[i]))
	}

	if err := h.formatter.WriteResponse(w, req, summaries); err != nil {
		log.Errorf("error encoding run summaries: %v", err)
	}
}

// GetRun returns one stored run, segments and all, by its run ID.
func (h *Handlers) GetRun(w http.ResponseWriter, req *http.Request) {
	if !h.controller.StorageEnabled {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "results storage is not configured")
		return
	}

	runID := mux.Vars(req)["id"]
	run, err := h.controller.Storage.GetRunByID(runID)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			h.formatter.WriteError(w, req, http.StatusNotFound, "analysis run not found")
			return
		}
		log.Errorf("error fetching analysis run %v: %v", runID, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error fetching analysis run")
		return
	}

	res, err := run.Result()
	if err != nil {
		log.Errorf("error decoding stored run %v: %v", runID, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "error decoding stored analysis run")
		return
	}

	if err := h.formatter.WriteResponse(w, req, res); err != nil {
		log.Errorf("error encoding analysis run: %v", err)
	}
}

// GetHealth reports service liveness and the configured backends.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	estimator := h.controller.analyzer.EstimatorName()
	if estimator == "" {
		estimator = "none"
	}

	health := map[string]any{
		"status":          "ok",
		"version":         constants.Version,
		"estimator":       estimator,
		"storage_enabled": h.controller.StorageEnabled,
	}

	if err := h.formatter.WriteResponse(w, req, health); err != nil {
		log.Errorf("error encoding health response: %v", err)
	}
}

// locationOverride parses the optional lat/lon query parameters. Both must
// be supplied together.
func locationOverride(req *http.Request) (*analysis.Location, error) {
	latStr := req.URL.Query().Get("lat")
	lonStr := req.URL.Query().Get("lon")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, fmt.Errorf("lat and lon must be provided together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lat %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lon %q", lonStr)
	}
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("lat %v outside [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("lon %v outside [-180, 180]", lon)
	}

	return &analysis.Location{Latitude: lat, Longitude: lon}, nil
}

func offlineRequested(req *http.Request) bool {
	v := req.URL.Query().Get("offline")
	if v == "" {
		return false
	}
	offline, err := strconv.ParseBool(v)
	return err == nil && offline
}
