package api

import (
	"net/http"
)

// SetupModelRoutes registers the public model and catalog routes.
func SetupModelRoutes(mux *http.ServeMux, handlers *ModelHandlers, rateLimit func(http.Handler) http.Handler) {
	mux.Handle("/api/models/validate", rateLimit(http.HandlerFunc(handlers.ValidateModel)))
	mux.HandleFunc("/api/models/manifest", handlers.GetManifest)
	mux.HandleFunc("/api/models/current", handlers.GetCurrentModel)
	mux.HandleFunc("/api/projects", handlers.ListProjects)
	mux.HandleFunc("/models/", handlers.ServeModel)
}
