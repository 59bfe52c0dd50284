package api

import (
	"net/http"
	"strings"

	"github.com/openlaptop/viewer/internal/auth"
)

// SetupAdminRoutes registers admin management routes.
// Everything except verify requires an admin session or the admin token.
func SetupAdminRoutes(mux *http.ServeMux, handlers *AdminHandlers, authHandlers *auth.Handlers, rateLimit func(http.Handler) http.Handler) {
	adminHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/admin")
		path = strings.Trim(path, "/")

		switch path {
		case "trigger-workflow":
			handlers.TriggerWorkflow(w, r)
		case "workflow-runs":
			handlers.ListWorkflowRuns(w, r)
		case "dispatches":
			handlers.ListDispatches(w, r)
		case "generate-sample":
			handlers.GenerateSample(w, r)
		case "metrics":
			handlers.Metrics(w, r)
		default:
			respondWithError(w, http.StatusNotFound, "Not found")
		}
	})

	authenticated := authHandlers.RequireAdmin(adminHandler)

	mux.Handle("/api/admin/verify", rateLimit(http.HandlerFunc(authHandlers.Verify)))
	mux.Handle("/api/admin/", rateLimit(authenticated))
	mux.Handle("/api/admin", rateLimit(authenticated))

	mux.Handle("/api/refresh", rateLimit(authHandlers.RequireAdmin(http.HandlerFunc(handlers.Refresh))))

	// Older clients post here directly
	legacyTrigger := authHandlers.RequireAdmin(http.HandlerFunc(handlers.TriggerWorkflow))
	mux.Handle("/api/trigger-workflow", rateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST to trigger workflow.")
			return
		}
		legacyTrigger.ServeHTTP(w, r)
	})))
}
