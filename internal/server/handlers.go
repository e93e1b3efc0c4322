package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/protein-design/predict-antibody/internal/config"
	"github.com/protein-design/predict-antibody/internal/models"
	"github.com/protein-design/predict-antibody/internal/pipeline"
	"github.com/protein-design/predict-antibody/internal/storage"
	"github.com/protein-design/predict-antibody/internal/table"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
	defaultTopN      = 20
)

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req models.InlineMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("match request",
		zap.Strings("regions", req.Regions),
		zap.Int("offset", req.Offset),
		zap.Int("references", len(req.References)),
		zap.Int("candidates", len(req.Candidates)),
	)
	report, err := s.pipeline.MatchInline(req)
	if err != nil {
		s.respondPipelineError(w, "match failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleDistances(w http.ResponseWriter, r *http.Request) {
	var req models.InlineDistanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("distances request", zap.Int("complexes", len(req.Complexes)))
	s.respondJSON(w, http.StatusOK, s.pipeline.Summarize(req.Complexes))
}

// uploadExt picks the table format of an upload from the format query
// parameter, falling back to the content type.
func uploadExt(r *http.Request) string {
	if f := strings.ToLower(r.URL.Query().Get("format")); f != "" {
		return "." + strings.TrimPrefix(f, ".")
	}
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(ct, "spreadsheetml"):
		return ".xlsx"
	case strings.Contains(ct, "tab-separated"):
		return ".tsv"
	}
	return ".csv"
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	replace := false
	if v := r.URL.Query().Get("replace"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "replace must be a boolean")
			return
		}
		replace = b
	}
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}
	tbl, err := table.ReadBytes(content, uploadExt(r))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("import request", zap.String("kind", kind), zap.Int("rows", tbl.Len()), zap.Bool("replace", replace))
	res, err := s.pipeline.Import(r.Context(), kind, tbl, replace)
	if err != nil {
		s.respondPipelineError(w, "import failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleRunMatch(w http.ResponseWriter, r *http.Request) {
	var req models.MatchRequest
	if s.appConfig != nil {
		s.appConfigMu.Lock()
		req.Offset = s.appConfig.Matching.Offset
		s.appConfigMu.Unlock()
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	run, err := s.pipeline.RunMatch(r.Context(), req)
	if err != nil {
		s.respondPipelineError(w, "match run failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, run)
}

func (s *Server) handleRunDistance(w http.ResponseWriter, r *http.Request) {
	run, err := s.pipeline.RunDistance(r.Context())
	if err != nil {
		s.respondPipelineError(w, "distance run failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, run)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultRunsLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit == 0 || limit > maxRunsLimit {
		limit = maxRunsLimit
	}
	runs, err := s.storage.ListRuns(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs, "offset": offset, "limit": limit})
}

// loadRun fetches the run named in the URL and writes the error response
// itself when it cannot.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*models.Run, []models.ItemError, bool) {
	id := chi.URLParam(r, "id")
	run, err := s.storage.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			s.respondError(w, http.StatusNotFound, "run not found")
		} else {
			s.logger.Error("get run failed", zap.String("run_id", id), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, nil, false
	}
	errs, err := s.storage.ListItemErrors(r.Context(), id)
	if err != nil {
		s.logger.Error("list item errors failed", zap.String("run_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, false
	}
	if errs == nil {
		errs = []models.ItemError{}
	}
	return run, errs, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, errs, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"run": run, "errors": errs})
}

func (s *Server) handleRunMatches(w http.ResponseWriter, r *http.Request) {
	run, errs, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	if run.Kind != models.RunKindMatch {
		s.respondError(w, http.StatusBadRequest, "run is not a match run")
		return
	}
	results, err := s.storage.ListMatchResults(r.Context(), run.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []models.MatchResult{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"run": run, "results": results, "errors": errs})
}

func (s *Server) handleRunDistances(w http.ResponseWriter, r *http.Request) {
	run, errs, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	if run.Kind != models.RunKindDistance {
		s.respondError(w, http.StatusBadRequest, "run is not a distance run")
		return
	}
	records, err := s.storage.ListDistanceRecords(r.Context(), run.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []models.DistanceRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"run": run, "records": records, "errors": errs})
}

func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	top, err := queryInt(r, "top", defaultTopN)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.pipeline.Report(r.Context(), chi.URLParam(r, "id"), top)
	if err != nil {
		s.respondPipelineError(w, "report failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

// runTable encodes the stored rows of a run.
func (s *Server) runTable(r *http.Request, run *models.Run) (*table.Table, error) {
	switch run.Kind {
	case models.RunKindMatch:
		results, err := s.storage.ListMatchResults(r.Context(), run.ID)
		if err != nil {
			return nil, err
		}
		return table.EncodeMatchResults(results), nil
	case models.RunKindDistance:
		records, err := s.storage.ListDistanceRecords(r.Context(), run.ID)
		if err != nil {
			return nil, err
		}
		return table.EncodeDistanceRecords(records), nil
	}
	return nil, fmt.Errorf("unknown run kind %q", run.Kind)
}

func (s *Server) handleRunExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	run, errs, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	rows, err := s.runTable(r, run)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv"
		err = table.WriteCSV(&buf, rows, ',')
	case "tsv":
		contentType = "text/tab-separated-values"
		err = table.WriteCSV(&buf, rows, '\t')
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = table.WriteXLSX(&buf,
			table.Sheet{Name: run.Kind, Table: rows},
			table.Sheet{Name: "errors", Table: table.EncodeItemErrors(errs)},
		)
	default:
		s.respondError(w, http.StatusBadRequest, "format must be csv, tsv or xlsx")
		return
	}
	if err != nil {
		s.logger.Error("export failed", zap.String("run_id", run.ID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.%s"`, run.Kind, run.ID, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.storage.CountInputs(r.Context())
	if err != nil {
		s.logger.Error("status: count inputs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"regions":   counts.Regions,
		"motifs":    counts.Motifs,
		"complexes": counts.Complexes,
		"runs":      counts.Runs,
	}
	if s.appConfig != nil {
		s.appConfigMu.Lock()
		resp["config"] = map[string]interface{}{
			"database_path":    s.appConfig.Storage.DatabasePath,
			"regions":          s.appConfig.Matching.Regions,
			"offset":           s.appConfig.Matching.Offset,
			"distance_workers": s.appConfig.Distance.Workers,
		}
		s.appConfigMu.Unlock()
	}
	if s.watch != nil {
		resp["watch_directories"] = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.appConfig == nil {
		return
	}
	s.appConfigMu.Lock()
	defer s.appConfigMu.Unlock()
	s.appConfig.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.appConfig); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// respondPipelineError maps pipeline and storage errors to status codes.
func (s *Server) respondPipelineError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrRunNotFound):
		s.respondError(w, http.StatusNotFound, "run not found")
	default:
		s.logger.Error(msg, zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
