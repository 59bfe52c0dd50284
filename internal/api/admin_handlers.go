package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openlaptop/viewer/internal/database"
	"github.com/openlaptop/viewer/internal/glb"
	"github.com/openlaptop/viewer/internal/manifest"
	"github.com/openlaptop/viewer/internal/performance"
	"github.com/openlaptop/viewer/internal/storage"
	"github.com/openlaptop/viewer/internal/workflow"
)

// SampleModelName is where the generated sample cube is stored
const SampleModelName = "sample-virgo.glb"

// DispatchLog persists workflow dispatch attempts
type DispatchLog interface {
	Record(ctx context.Context, d database.Dispatch) (*database.Dispatch, error)
	ListRecent(ctx context.Context, limit int) ([]database.Dispatch, error)
}

// TriggerRequest is the optional body of a workflow trigger
type TriggerRequest struct {
	Ref string `json:"ref" validate:"omitempty,max=255,excludesall= ~^:?*[\\"`
}

// GenerateSampleResponse is returned after storing the sample model
type GenerateSampleResponse struct {
	Success    bool       `json:"success"`
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	Size       int        `json:"size"`
	Vertices   int        `json:"vertices"`
	Triangles  int        `json:"triangles"`
	Validation glb.Result `json:"validation"`
}

// MetricsResponse is the body of GET /api/admin/metrics
type MetricsResponse struct {
	Performance      performance.Report `json:"performance"`
	ConnectedViewers int                `json:"connected_viewers"`
	ManifestLoadedAt *time.Time         `json:"manifest_loaded_at,omitempty"`
}

// AdminHandlers handles admin operations
type AdminHandlers struct {
	store      storage.Store
	manifests  *manifest.Store
	workflow   *workflow.Client
	dispatches DispatchLog
	hub        *EventHub
	profiler   *performance.Profiler
	validator  *validator.Validate
	log        *zap.Logger
}

// NewAdminHandlers creates a new AdminHandlers instance.
// dispatches may be nil when no database is configured.
func NewAdminHandlers(
	store storage.Store,
	manifests *manifest.Store,
	workflowClient *workflow.Client,
	dispatches DispatchLog,
	hub *EventHub,
	profiler *performance.Profiler,
	log *zap.Logger,
) *AdminHandlers {
	return &AdminHandlers{
		store:      store,
		manifests:  manifests,
		workflow:   workflowClient,
		dispatches: dispatches,
		hub:        hub,
		profiler:   profiler,
		validator:  validator.New(),
		log:        log,
	}
}

// TriggerWorkflow handles POST /api/admin/trigger-workflow
func (h *AdminHandlers) TriggerWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST to trigger workflow.")
		return
	}

	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondWithErrorDetails(w, http.StatusBadRequest, "Invalid request", "ref: invalid git ref")
		return
	}

	if !h.workflow.Configured() {
		respondWithError(w, http.StatusInternalServerError, "GitHub token not configured. Add GITHUB_TOKEN environment variable.")
		return
	}

	ref := req.Ref
	if ref == "" {
		ref = h.workflow.DefaultRef()
	}

	err := h.workflow.Dispatch(r.Context(), ref)
	h.recordDispatch(r.Context(), ref, err)

	var apiErr *workflow.APIError
	switch {
	case errors.As(err, &apiErr):
		h.log.Warn("GitHub API error", zap.Int("status", apiErr.StatusCode), zap.String("body", apiErr.Body))
		respondWithErrorDetails(w, apiErr.StatusCode, "GitHub API error: "+strconv.Itoa(apiErr.StatusCode), apiErr.Body)
		return
	case err != nil:
		h.log.Error("Error triggering workflow", zap.Error(err))
		respondWithErrorDetails(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}

	h.hub.Publish(EventWorkflowDispatched, map[string]string{
		"repository": h.workflow.Repository().String(),
		"workflow":   h.workflow.Workflow(),
		"ref":        ref,
	})

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Workflow triggered successfully",
		"ref":        ref,
		"actionsUrl": h.workflow.ActionsURL(),
	})
}

func (h *AdminHandlers) recordDispatch(ctx context.Context, ref string, dispatchErr error) {
	if h.dispatches == nil {
		return
	}

	d := database.Dispatch{
		Repository: h.workflow.Repository().String(),
		Workflow:   h.workflow.Workflow(),
		Ref:        ref,
		Success:    dispatchErr == nil,
		StatusCode: http.StatusNoContent,
	}
	if dispatchErr != nil {
		d.StatusCode = 0
		d.Error = dispatchErr.Error()
		var apiErr *workflow.APIError
		if errors.As(dispatchErr, &apiErr) {
			d.StatusCode = apiErr.StatusCode
		}
	}

	// The dispatch already happened; a cancelled request must not lose the record
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := h.dispatches.Record(recordCtx, d); err != nil {
		h.log.Error("Failed to record dispatch", zap.Error(err))
	}
}

// ListWorkflowRuns handles GET /api/admin/workflow-runs?limit=n
func (h *AdminHandlers) ListWorkflowRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !h.workflow.Configured() {
		respondWithError(w, http.StatusInternalServerError, "GitHub token not configured")
		return
	}

	runs, err := h.workflow.ListRuns(r.Context(), parseLimit(r, 10))
	var apiErr *workflow.APIError
	switch {
	case errors.As(err, &apiErr):
		respondWithErrorDetails(w, apiErr.StatusCode, "GitHub API error: "+strconv.Itoa(apiErr.StatusCode), apiErr.Body)
		return
	case err != nil:
		h.log.Error("Failed to list workflow runs", zap.Error(err))
		respondWithError(w, http.StatusBadGateway, "Failed to list workflow runs")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"runs":       runs,
		"actionsUrl": h.workflow.ActionsURL(),
	})
}

// ListDispatches handles GET /api/admin/dispatches?limit=n
func (h *AdminHandlers) ListDispatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if h.dispatches == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Dispatch history requires the postgres storage backend")
		return
	}

	dispatches, err := h.dispatches.ListRecent(r.Context(), parseLimit(r, 20))
	if err != nil {
		h.log.Error("Failed to list dispatches", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list dispatches")
		return
	}
	if dispatches == nil {
		dispatches = []database.Dispatch{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"dispatches": dispatches,
	})
}

// GenerateSample handles POST /api/admin/generate-sample
func (h *AdminHandlers) GenerateSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	mesh := glb.SampleCube()
	data, err := glb.Encode(mesh)
	if err != nil {
		h.log.Error("Failed to encode sample model", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to generate sample model")
		return
	}

	if err := h.store.Put(r.Context(), SampleModelName, data); err != nil {
		h.log.Error("Failed to store sample model", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to store sample model")
		return
	}

	h.log.Info("Sample model generated", zap.String("name", SampleModelName), zap.Int("size", len(data)))

	respondWithJSON(w, http.StatusCreated, GenerateSampleResponse{
		Success:    true,
		Name:       SampleModelName,
		URL:        "/models/" + SampleModelName,
		Size:       len(data),
		Vertices:   mesh.VertexCount(),
		Triangles:  mesh.TriangleCount(),
		Validation: glb.Validate(data),
	})
}

// Metrics handles GET /api/admin/metrics
func (h *AdminHandlers) Metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	response := MetricsResponse{
		Performance:      h.profiler.BuildReport(),
		ConnectedViewers: h.hub.ClientCount(),
	}
	if loadedAt := h.manifests.LoadedAt(); !loadedAt.IsZero() {
		response.ManifestLoadedAt = &loadedAt
	}

	respondWithJSON(w, http.StatusOK, response)
}

// Refresh handles POST /api/refresh
func (h *AdminHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	m, err := h.manifests.Refresh(r.Context())
	if err != nil {
		h.log.Error("Failed to refresh manifest", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to refresh")
		return
	}

	h.hub.Publish(EventManifestUpdated, map[string]interface{}{
		"lastUpdated": m.LastUpdated,
		"models":      m.ModelCount(),
	})

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Manifest refreshed",
		"models":  m.ModelCount(),
	})
}

func parseLimit(r *http.Request, fallback int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		return fallback
	}
	return limit
}
