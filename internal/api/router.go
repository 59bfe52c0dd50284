package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/openlaptop/viewer/internal/auth"
	"github.com/openlaptop/viewer/internal/config"
	"github.com/openlaptop/viewer/internal/manifest"
	"github.com/openlaptop/viewer/internal/performance"
	"github.com/openlaptop/viewer/internal/storage"
	"github.com/openlaptop/viewer/internal/workflow"
)

// ServiceName is reported by the health endpoint
const ServiceName = "openlaptop-viewer"

// Dependencies are the collaborators the HTTP API is built from
type Dependencies struct {
	Config     *config.Config
	Catalog    *config.Catalog
	Store      storage.Store
	Manifests  *manifest.Store
	Workflow   *workflow.Client
	Dispatches DispatchLog
	Hub        *EventHub
	Profiler   *performance.Profiler
	Auth       *auth.Handlers
	Log        *zap.Logger
}

// NewRouter registers every route and wraps the mux in the middleware stack
func NewRouter(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": ServiceName,
		})
	})
	mux.HandleFunc("/ws", deps.Hub.HandleWebSocket)

	trustProxy := deps.Config.RateLimit.TrustProxyHeaders
	publicLimit := RateLimitMiddleware(deps.Config.RateLimit.PublicPerMinute, time.Minute, trustProxy, deps.Log)
	adminLimit := RateLimitMiddleware(deps.Config.RateLimit.AdminPerMinute, time.Minute, trustProxy, deps.Log)

	modelHandlers := NewModelHandlers(deps.Store, deps.Manifests, deps.Catalog, deps.Log)
	SetupModelRoutes(mux, modelHandlers, publicLimit)

	adminHandlers := NewAdminHandlers(deps.Store, deps.Manifests, deps.Workflow, deps.Dispatches, deps.Hub, deps.Profiler, deps.Log)
	SetupAdminRoutes(mux, adminHandlers, deps.Auth, adminLimit)

	// Viewer pages and other static assets
	if dir := deps.Config.Server.PublicDir; dir != "" {
		mux.Handle("/", http.FileServer(http.Dir(dir)))
	}

	return chain(mux,
		RequestLogger(deps.Log, trustProxy),
		deps.Profiler.Middleware(routeName),
		auth.SecurityHeadersMiddleware(deps.Config.Server.IsProduction()),
		CORSMiddleware(deps.Config.Server.AllowedOrigins),
	)
}
