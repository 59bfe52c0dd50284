package api

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strconv"

	"go.uber.org/zap"

	"github.com/openlaptop/viewer/internal/compression"
	"github.com/openlaptop/viewer/internal/config"
	"github.com/openlaptop/viewer/internal/glb"
	"github.com/openlaptop/viewer/internal/manifest"
	"github.com/openlaptop/viewer/internal/storage"
)

// ModelHandlers serves published models and their metadata
type ModelHandlers struct {
	store     storage.Store
	manifests *manifest.Store
	catalog   *config.Catalog
	log       *zap.Logger
}

// NewModelHandlers creates a new ModelHandlers instance
func NewModelHandlers(store storage.Store, manifests *manifest.Store, catalog *config.Catalog, log *zap.Logger) *ModelHandlers {
	return &ModelHandlers{
		store:     store,
		manifests: manifests,
		catalog:   catalog,
		log:       log,
	}
}

// StrictCheck reports the outcome of the full container check
type StrictCheck struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateResponse is the body of GET /api/models/validate.
// Without options it carries exactly the fields of glb.Result.
type ValidateResponse struct {
	glb.Result
	Strict       *StrictCheck `json:"strict,omitempty"`
	Summary      *glb.Summary `json:"summary,omitempty"`
	InspectError string       `json:"inspectError,omitempty"`
}

// CurrentModelResponse is the body of GET /api/models/current
type CurrentModelResponse struct {
	Project   config.Project `json:"project"`
	Model     manifest.Model `json:"model"`
	RepoURL   string         `json:"repoUrl"`
	CommitURL string         `json:"commitUrl"`
	ShortSHA  string         `json:"shortSha"`
}

// ValidateModel handles GET /api/models/validate?path=/models/<file>
func (h *ModelHandlers) ValidateModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query()
	name, err := storage.NameFromURLPath(query.Get("path"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid path")
		return
	}

	data, err := h.store.Get(r.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		respondWithJSON(w, http.StatusNotFound, map[string]interface{}{
			"error":  "File not found",
			"exists": false,
		})
		return
	}
	if err != nil {
		h.log.Error("Failed to load model", zap.String("name", name), zap.Error(err))
		respondWithErrorDetails(w, http.StatusInternalServerError, "Failed to load model", err.Error())
		return
	}

	response := ValidateResponse{Result: glb.Validate(data)}

	if queryFlag(query.Get("strict")) {
		check := &StrictCheck{Valid: true}
		if err := glb.ValidateStrict(data); err != nil {
			check.Valid = false
			check.Error = err.Error()
		}
		response.Strict = check
	}

	if queryFlag(query.Get("inspect")) {
		summary, err := glb.Inspect(data)
		if err != nil {
			response.InspectError = err.Error()
		} else {
			response.Summary = summary
		}
	}

	respondWithJSON(w, http.StatusOK, response)
}

// GetManifest handles GET /api/models/manifest
func (h *ModelHandlers) GetManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	m, err := h.manifests.Get(r.Context())
	if err != nil {
		h.log.Error("Failed to load manifest", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to load models")
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondWithJSON(w, http.StatusOK, m)
}

// GetCurrentModel handles GET /api/models/current?project=<id>
func (h *ModelHandlers) GetCurrentModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	projectID := r.URL.Query().Get("project")
	var project config.Project
	if projectID == "" {
		project = h.catalog.Default()
	} else {
		var ok bool
		project, ok = h.catalog.Project(projectID)
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Unknown project")
			return
		}
	}

	m, err := h.manifests.Get(r.Context())
	if err != nil {
		h.log.Error("Failed to load manifest", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to load models")
		return
	}

	model, ok := m.CurrentModel(project.ID)
	if !ok {
		respondWithError(w, http.StatusNotFound, "No model available for this project yet")
		return
	}

	respondWithJSON(w, http.StatusOK, CurrentModelResponse{
		Project:   project,
		Model:     model,
		RepoURL:   model.RepoURL(),
		CommitURL: model.CommitURL(),
		ShortSHA:  model.ShortSHA(),
	})
}

// ListProjects handles GET /api/projects
func (h *ModelHandlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, h.catalog)
}

// ServeModel handles GET /models/<file>
func (h *ModelHandlers) ServeModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name, err := storage.NameFromURLPath(r.URL.Path)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid path")
		return
	}

	data, err := h.store.Get(r.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		h.log.Error("Failed to load model", zap.String("name", name), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to load model")
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(name))
	if name == storage.ManifestName {
		w.Header().Set("Cache-Control", "no-cache")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=300")
	}
	w.Header().Add("Vary", "Accept-Encoding")

	body, encoding := compression.Negotiate(r, data)
	if encoding != "" {
		w.Header().Set("Content-Encoding", encoding)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body); err != nil {
		h.log.Debug("Failed to write model response", zap.String("name", name), zap.Error(err))
	}
}

func contentTypeFor(name string) string {
	ext := path.Ext(name)
	switch ext {
	case ".glb":
		return glb.ContentType
	case ".gltf":
		return "model/gltf+json"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func queryFlag(value string) bool {
	b, err := strconv.ParseBool(value)
	return err == nil && b
}
