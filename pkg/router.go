package pkg

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RouterConfig carries the collaborators needed to build the HTTP surface.
type RouterConfig struct {
	Store         SessionStore
	CORS          CORSPolicy
	LookupTimeout time.Duration
	Metrics       http.Handler
	Logger        *zap.Logger
}

// NewRouter wires every endpoint. The video route sets its own CORS headers
// and must stay outside the CORS middleware.
func NewRouter(cfg RouterConfig) (*mux.Router, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	corsMw, err := NewAPICORS(cfg.CORS)
	if err != nil {
		return nil, err
	}

	api := mux.NewRouter()
	api.Handle("/api/health", WrapHandler("health", HealthHandler(cfg.Store, logger), logger)).Methods(http.MethodGet)
	api.Handle("/api/mentor/{mentorId}/sessions", WrapHandler("sessions", SessionsHandler(cfg.Store, cfg.LookupTimeout, logger), logger)).Methods(http.MethodGet)
	api.Handle("/api/mentor/{mentorId}/sessions/{sessionId}/breakdown",
		WrapHandler("breakdown", BreakdownHandler(cfg.Store, cfg.LookupTimeout, logger), logger)).Methods(http.MethodGet)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.NotFoundHandler = http.HandlerFunc(notFound)
	wrappedAPI := corsMw.Wrap(api)

	root := mux.NewRouter()
	if cfg.Metrics != nil {
		root.Handle("/metrics", cfg.Metrics)
	}
	root.Handle("/api/mentor/{mentorId}/sessions/{sessionId}/video",
		WrapHandler("video", VideoHandler(cfg.Store, cfg.CORS, cfg.LookupTimeout, logger), logger))
	// Method-less so preflight requests reach the CORS middleware.
	root.Handle("/api/health", wrappedAPI)
	root.Handle("/api/mentor/{mentorId}/sessions", wrappedAPI)
	root.Handle("/api/mentor/{mentorId}/sessions/{sessionId}/breakdown", wrappedAPI)
	root.NotFoundHandler = http.HandlerFunc(notFound)

	return root, nil
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}
