// Package web exposes the HTTP API: catalog search pass-through, download
// job submission, job polling, and the reverse-lookup flow.
package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"tunegrab/internal/catalog"
	"tunegrab/internal/download"
	"tunegrab/internal/job"
	"tunegrab/internal/logger"
)

// Existser answers whether a catalog track already has a local file.
type Existser interface {
	ExistsLocally(trackID string) (bool, error)
}

// Server holds the API's collaborators.
type Server struct {
	catalog catalog.Provider
	orch    *download.Orchestrator
	tracker *job.Tracker
	history Existser
	logger  *logger.Logger
}

// NewServer wires a Server. history may be nil; the exists check then always
// answers false.
func NewServer(provider catalog.Provider, orch *download.Orchestrator, tracker *job.Tracker, history Existser, log *logger.Logger) *Server {
	return &Server{
		catalog: provider,
		orch:    orch,
		tracker: tracker,
		history: history,
		logger:  log,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/search", s.handleSearchTracks).Methods(http.MethodPost)
	api.HandleFunc("/search/albums", s.handleSearchAlbums).Methods(http.MethodPost)
	api.HandleFunc("/track/{id}", s.handleGetTrack).Methods(http.MethodGet)
	api.HandleFunc("/track/{id}/exists", s.handleTrackExists).Methods(http.MethodGet)
	api.HandleFunc("/album/{id}", s.handleGetAlbum).Methods(http.MethodGet)

	api.HandleFunc("/candidates/{id}", s.handleCandidates).Methods(http.MethodGet)

	api.HandleFunc("/download", s.handleDownload).Methods(http.MethodPost)
	api.HandleFunc("/download/album", s.handleDownloadAlbum).Methods(http.MethodPost)
	api.HandleFunc("/download/status/{id}", s.handleJobStatus).Methods(http.MethodGet)
	api.HandleFunc("/download/album/status/{id}", s.handleAlbumStatus).Methods(http.MethodGet)
	api.HandleFunc("/download/file/{id}", s.handleDownloadFile).Methods(http.MethodGet)

	api.HandleFunc("/reverse/lookup", s.handleReverseLookup).Methods(http.MethodPost)
	api.HandleFunc("/reverse/download", s.handleReverseDownload).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.handleWebSocket)

	return s.loggingMiddleware(r)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debugf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
