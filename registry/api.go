package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/promptops-labs/promptops-go/internal/benchmark"
	"github.com/promptops-labs/promptops-go/internal/diffengine"
	"github.com/promptops-labs/promptops-go/internal/domain"
	"github.com/promptops-labs/promptops-go/internal/export"
	"github.com/promptops-labs/promptops-go/internal/gates"
	"github.com/promptops-labs/promptops-go/internal/repo"
	"github.com/promptops-labs/promptops-go/internal/rollout"
	"github.com/promptops-labs/promptops-go/internal/versionstore"
)

type registryAPI struct {
	logger    *slog.Logger
	store     *versionstore.Store
	artifacts repo.ArtifactRepository
	results   repo.BenchmarkRepository
	recorder  *benchmark.Recorder
	rollout   *rollout.Facade
	exporter  *export.Exporter

	// gateThreshold is the pass mark applied when a benchmark request
	// does not carry its own.
	gateThreshold float64
}

func newRegistryAPI(
	logger *slog.Logger,
	store *versionstore.Store,
	artifacts repo.ArtifactRepository,
	results repo.BenchmarkRepository,
	recorder *benchmark.Recorder,
	rolloutFacade *rollout.Facade,
	exporter *export.Exporter,
) *registryAPI {
	return &registryAPI{
		logger:        logger,
		store:         store,
		artifacts:     artifacts,
		results:       results,
		recorder:      recorder,
		rollout:       rolloutFacade,
		exporter:      exporter,
		gateThreshold: benchmark.DefaultGateThreshold,
	}
}

func (api *registryAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /artifacts", api.handleCreateArtifact)
	mux.HandleFunc("GET /artifacts", api.handleListArtifacts)
	mux.HandleFunc("GET /artifacts/{artifact_id}", api.handleGetArtifact)
	mux.HandleFunc("GET /artifacts/slug/{slug}", api.handleGetArtifactBySlug)
	mux.HandleFunc("PATCH /artifacts/{artifact_id}/status", api.handleUpdateStatus)
	mux.HandleFunc("DELETE /artifacts/{artifact_id}", api.handleDeleteArtifact)

	mux.HandleFunc("POST /artifacts/{artifact_id}/versions", api.handleCreateVersion)
	mux.HandleFunc("GET /artifacts/{artifact_id}/versions", api.handleListVersions)
	mux.HandleFunc("GET /artifacts/{artifact_id}/versions/{version}", api.handleGetVersion)
	mux.HandleFunc("GET /artifacts/{artifact_id}/diff", api.handleDiff)
	mux.HandleFunc("POST /artifacts/{artifact_id}/rollback", api.handleRollback)

	mux.HandleFunc("POST /artifacts/{artifact_id}/benchmarks", api.handleRecordBenchmark)
	mux.HandleFunc("GET /artifacts/{artifact_id}/benchmarks", api.handleListBenchmarks)
	mux.HandleFunc("GET /artifacts/{artifact_id}/readiness", api.handleReadiness)
	mux.HandleFunc("POST /artifacts/{artifact_id}/export", api.handleExport)
}

type artifactResponse struct {
	ArtifactID    string          `json:"artifact_id"`
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Status        string          `json:"status"`
	HeadVersionID string          `json:"head_version_id,omitempty"`
	Metadata      domain.Metadata `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CreatedBy     string          `json:"created_by,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func artifactFromDomain(artifact domain.Artifact) artifactResponse {
	return artifactResponse{
		ArtifactID:    artifact.ID,
		Slug:          artifact.Slug,
		Name:          artifact.Name,
		Description:   artifact.Description,
		Status:        string(artifact.Status),
		HeadVersionID: artifact.HeadVersionID,
		Metadata:      artifact.Metadata,
		CreatedAt:     artifact.CreatedAt,
		CreatedBy:     artifact.CreatedBy,
		UpdatedAt:     artifact.UpdatedAt,
	}
}

type versionResponse struct {
	VersionID      string    `json:"version_id"`
	ArtifactID     string    `json:"artifact_id"`
	Version        string    `json:"version"`
	Content        string    `json:"content"`
	ContentHash    string    `json:"content_hash"`
	DiffFromParent string    `json:"diff_from_parent,omitempty"`
	ChangeSummary  string    `json:"change_summary,omitempty"`
	AuthorID       string    `json:"author_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func versionFromDomain(version domain.Version) versionResponse {
	return versionResponse{
		VersionID:      version.ID,
		ArtifactID:     version.ArtifactID,
		Version:        version.VersionString,
		Content:        version.Content,
		ContentHash:    version.ContentHash,
		DiffFromParent: version.DiffFromParent,
		ChangeSummary:  version.ChangeSummary,
		AuthorID:       version.AuthorID,
		CreatedAt:      version.CreatedAt,
	}
}

type createArtifactRequest struct {
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Metadata    domain.Metadata `json:"metadata,omitempty"`
	Content     string          `json:"content"`
	AuthorID    string          `json:"author_id,omitempty"`
}

func (api *registryAPI) handleCreateArtifact(w http.ResponseWriter, r *http.Request) {
	var req createArtifactRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(req.Slug) == "" {
		api.writeError(w, r, http.StatusBadRequest, "slug_required")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		api.writeError(w, r, http.StatusBadRequest, "name_required")
		return
	}

	artifact, version, err := api.store.CreateArtifact(r.Context(), versionstore.CreateArtifactParams{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Metadata:    req.Metadata,
		Content:     req.Content,
		AuthorID:    req.AuthorID,
		RequestID:   r.Header.Get("X-Request-Id"),
	})
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, map[string]any{
		"artifact": artifactFromDomain(artifact),
		"version":  versionFromDomain(version),
	})
}

func (api *registryAPI) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	filter := repo.ArtifactFilter{
		Limit:  clampInt(parseIntQuery(r, "limit", 50), 1, 500),
		Offset: clampInt(parseIntQuery(r, "offset", 0), 0, 1<<30),
	}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		parsed := domain.ArtifactStatus(status)
		if !parsed.Valid() {
			api.writeError(w, r, http.StatusBadRequest, "invalid_status")
			return
		}
		filter.Status = parsed
	}

	artifacts, err := api.artifacts.ListArtifacts(r.Context(), filter)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	out := make([]artifactResponse, 0, len(artifacts))
	for _, artifact := range artifacts {
		out = append(out, artifactFromDomain(artifact))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"artifacts": out})
}

func (api *registryAPI) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	artifact, err := api.artifacts.GetArtifact(r.Context(), r.PathValue("artifact_id"))
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, artifactFromDomain(artifact))
}

func (api *registryAPI) handleGetArtifactBySlug(w http.ResponseWriter, r *http.Request) {
	artifact, err := api.artifacts.GetArtifactBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, artifactFromDomain(artifact))
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor,omitempty"`
}

func (api *registryAPI) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	status := domain.ArtifactStatus(strings.TrimSpace(req.Status))
	if !status.Valid() {
		api.writeError(w, r, http.StatusBadRequest, "invalid_status")
		return
	}
	err := api.store.UpdateStatus(r.Context(), r.PathValue("artifact_id"), status, req.Actor, r.Header.Get("X-Request-Id"))
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"status": string(status)})
}

func (api *registryAPI) handleDeleteArtifact(w http.ResponseWriter, r *http.Request) {
	err := api.store.DeleteArtifact(r.Context(), r.PathValue("artifact_id"), r.Header.Get("X-Actor"), r.Header.Get("X-Request-Id"))
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createVersionRequest struct {
	Content       string `json:"content"`
	ChangeSummary string `json:"change_summary,omitempty"`
	Version       string `json:"version,omitempty"`
	AuthorID      string `json:"author_id,omitempty"`
}

func (api *registryAPI) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	var req createVersionRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	version, err := api.store.CreateVersion(r.Context(), versionstore.CreateVersionParams{
		ArtifactID:    r.PathValue("artifact_id"),
		Content:       req.Content,
		ChangeSummary: req.ChangeSummary,
		VersionString: req.Version,
		AuthorID:      req.AuthorID,
		RequestID:     r.Header.Get("X-Request-Id"),
	})
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, versionFromDomain(version))
}

func (api *registryAPI) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := api.store.ListVersions(
		r.Context(),
		r.PathValue("artifact_id"),
		clampInt(parseIntQuery(r, "limit", 50), 1, 500),
		clampInt(parseIntQuery(r, "offset", 0), 0, 1<<30),
	)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	out := make([]versionResponse, 0, len(versions))
	for _, version := range versions {
		out = append(out, versionFromDomain(version))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"versions": out})
}

func (api *registryAPI) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	versionString := r.PathValue("version")
	if versionString == "head" {
		versionString = ""
	}
	version, err := api.store.GetVersion(r.Context(), r.PathValue("artifact_id"), versionString)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, versionFromDomain(version))
}

type diffChunkResponse struct {
	Kind     string   `json:"kind"`
	OldStart int      `json:"old_start"`
	OldLines int      `json:"old_lines"`
	NewStart int      `json:"new_start"`
	NewLines int      `json:"new_lines"`
	Lines    []string `json:"lines"`
}

func (api *registryAPI) handleDiff(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))

	result, err := api.store.Diff(r.Context(), r.PathValue("artifact_id"), from, to)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}

	chunks := make([]diffChunkResponse, 0, len(result.Chunks))
	for _, chunk := range result.Chunks {
		chunks = append(chunks, diffChunkResponse{
			Kind:     string(chunk.Kind),
			OldStart: chunk.OldStart,
			OldLines: chunk.OldLines,
			NewStart: chunk.NewStart,
			NewLines: chunk.NewLines,
			Lines:    chunk.Lines,
		})
	}
	api.writeJSON(w, http.StatusOK, map[string]any{
		"from_version": result.FromVersion,
		"to_version":   result.ToVersion,
		"chunks":       chunks,
		"unified":      diffengine.Unified(result, diffengine.DefaultContextLines),
	})
}

type rollbackRequest struct {
	TargetVersion string `json:"target_version"`
	Reason        string `json:"reason,omitempty"`
	AuthorID      string `json:"author_id,omitempty"`
}

func (api *registryAPI) handleRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(req.TargetVersion) == "" {
		api.writeError(w, r, http.StatusBadRequest, "target_version_required")
		return
	}

	version, err := api.store.Rollback(r.Context(), versionstore.RollbackParams{
		ArtifactID:    r.PathValue("artifact_id"),
		TargetVersion: req.TargetVersion,
		Reason:        req.Reason,
		AuthorID:      req.AuthorID,
		RequestID:     r.Header.Get("X-Request-Id"),
	})
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, versionFromDomain(version))
}

type recordBenchmarkRequest struct {
	Version         string             `json:"version,omitempty"`
	SuiteID         string             `json:"suite_id,omitempty"`
	DimensionScores map[string]float64 `json:"dimension_scores"`
	Weights         map[string]float64 `json:"weights,omitempty"`
	GateThreshold   *float64           `json:"gate_threshold,omitempty"`
	ExecutedBy      string             `json:"executed_by,omitempty"`
}

type benchmarkResponse struct {
	ResultID        string             `json:"result_id"`
	VersionID       string             `json:"version_id"`
	ArtifactID      string             `json:"artifact_id"`
	Version         string             `json:"version"`
	SuiteID         string             `json:"suite_id"`
	DimensionScores map[string]float64 `json:"dimension_scores"`
	OverallScore    float64            `json:"overall_score"`
	BaselineScore   *float64           `json:"baseline_score,omitempty"`
	Delta           *float64           `json:"delta,omitempty"`
	GatePassed      bool               `json:"gate_passed"`
	ExecutedAt      time.Time          `json:"executed_at"`
	ExecutedBy      string             `json:"executed_by,omitempty"`
}

func benchmarkFromDomain(result domain.BenchmarkResult) benchmarkResponse {
	return benchmarkResponse{
		ResultID:        result.ID,
		VersionID:       result.VersionID,
		ArtifactID:      result.ArtifactID,
		Version:         result.VersionString,
		SuiteID:         result.SuiteID,
		DimensionScores: result.DimensionScores,
		OverallScore:    result.OverallScore,
		BaselineScore:   result.BaselineScore,
		Delta:           result.Delta,
		GatePassed:      result.GatePassed,
		ExecutedAt:      result.ExecutedAt,
		ExecutedBy:      result.ExecutedBy,
	}
}

func (api *registryAPI) handleRecordBenchmark(w http.ResponseWriter, r *http.Request) {
	var req recordBenchmarkRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	if len(req.DimensionScores) == 0 {
		api.writeError(w, r, http.StatusBadRequest, "dimension_scores_required")
		return
	}

	threshold := api.gateThreshold
	if req.GateThreshold != nil {
		threshold = *req.GateThreshold
	}
	result, err := api.recorder.Record(r.Context(), benchmark.RecordParams{
		ArtifactID:      r.PathValue("artifact_id"),
		VersionString:   req.Version,
		SuiteID:         req.SuiteID,
		DimensionScores: req.DimensionScores,
		Weights:         req.Weights,
		GateThreshold:   &threshold,
		ExecutedBy:      req.ExecutedBy,
	})
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, benchmarkFromDomain(result))
}

func (api *registryAPI) handleListBenchmarks(w http.ResponseWriter, r *http.Request) {
	results, err := api.results.ListResults(r.Context(), repo.BenchmarkFilter{
		ArtifactID: r.PathValue("artifact_id"),
		SuiteID:    strings.TrimSpace(r.URL.Query().Get("suite_id")),
		Limit:      clampInt(parseIntQuery(r, "limit", 50), 1, 500),
	})
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	out := make([]benchmarkResponse, 0, len(results))
	for _, result := range results {
		out = append(out, benchmarkFromDomain(result))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

type gateEvaluationResponse struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"`
}

func (api *registryAPI) handleReadiness(w http.ResponseWriter, r *http.Request) {
	environment := strings.TrimSpace(r.URL.Query().Get("environment"))
	if environment == "" {
		environment = "default"
	}

	verdict, err := api.rollout.CheckReadiness(r.Context(), r.PathValue("artifact_id"), environment)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}

	evaluations := make([]gateEvaluationResponse, 0, len(verdict.Evaluations))
	for _, eval := range verdict.Evaluations {
		evaluations = append(evaluations, gateEvaluationResponse{
			RuleID:   eval.RuleID,
			RuleName: eval.RuleName,
			Status:   string(eval.Status),
			Message:  eval.Message,
			Blocking: eval.Blocking,
		})
	}
	api.writeJSON(w, http.StatusOK, map[string]any{
		"environment":  environment,
		"can_deploy":   verdict.CanDeploy,
		"evaluations":  evaluations,
		"blockers":     verdict.Blockers,
		"warnings":     verdict.Warnings,
		"summary":      verdict.Summary,
		"evaluated_at": verdict.EvaluatedAt,
	})
}

func (api *registryAPI) handleExport(w http.ResponseWriter, r *http.Request) {
	info, err := api.exporter.ExportHistory(r.Context(), r.PathValue("artifact_id"))
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, map[string]any{
		"object_key":    info.ObjectKey,
		"sha256":        info.SHA256,
		"size_bytes":    info.SizeBytes,
		"version_count": info.VersionCount,
		"result_count":  info.ResultCount,
	})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func (api *registryAPI) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		api.writeError(w, r, http.StatusNotFound, "not_found")
	case errors.Is(err, versionstore.ErrVersionConflict):
		api.writeError(w, r, http.StatusConflict, "version_conflict")
	case errors.Is(err, repo.ErrConflict):
		api.writeError(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, domain.ErrInvalidEncoding):
		api.writeError(w, r, http.StatusUnprocessableEntity, "invalid_encoding")
	case errors.Is(err, diffengine.ErrContentTooLarge):
		api.writeError(w, r, http.StatusUnprocessableEntity, "content_too_large")
	case errors.Is(err, diffengine.ErrApplyMismatch):
		api.writeError(w, r, http.StatusUnprocessableEntity, "diff_apply_mismatch")
	case errors.Is(err, benchmark.ErrNoScores):
		api.writeError(w, r, http.StatusBadRequest, "dimension_scores_required")
	case errors.Is(err, rollout.ErrNoBenchmark):
		api.writeError(w, r, http.StatusConflict, "no_benchmark_evidence")
	case errors.Is(err, gates.ErrNoRules):
		api.writeError(w, r, http.StatusBadRequest, "unknown_environment")
	default:
		requestID := r.Header.Get("X-Request-Id")
		api.logger.ErrorContext(r.Context(), "request failed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func (api *registryAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *registryAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func clampInt(v int, min int, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
