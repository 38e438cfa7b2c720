package web

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"tunegrab/internal/download"
	"tunegrab/internal/job"
	"tunegrab/pkg/utils"
)

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type existsResponse struct {
	TrackID string `json:"track_id"`
	Exists  bool   `json:"exists"`
}

type albumJobsResponse struct {
	AlbumID string    `json:"album_id"`
	Jobs    []job.Job `json:"jobs"`
}

type albumStatusResponse struct {
	AlbumID   string    `json:"album_id"`
	AlbumName string    `json:"album_name,omitempty"`
	Artist    string    `json:"artist,omitempty"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Current   string    `json:"current_track,omitempty"`
	Jobs      []job.Job `json:"jobs"`
}

type candidatesResponse struct {
	Track    any `json:"track"`
	Decision any `json:"decision"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearchTracks(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	tracks, err := s.catalog.SearchTracks(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tracks)
}

func (s *Server) handleSearchAlbums(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	albums, err := s.catalog.SearchAlbums(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, albums)
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := s.catalog.GetTrack(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, track)
}

func (s *Server) handleTrackExists(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	exists := false
	if s.history != nil {
		var err error
		exists, err = s.history.ExistsLocally(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, existsResponse{TrackID: id, Exists: exists})
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := s.catalog.GetAlbum(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	track, decision, err := s.orch.Candidates(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, candidatesResponse{Track: track, Decision: decision})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req download.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	j, err := s.orch.StartTrack(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Infof("accepted download job %s (%s - %s)", j.ID, j.Track.Artist, j.Track.Name)
	s.writeJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleDownloadAlbum(w http.ResponseWriter, r *http.Request) {
	var req download.AlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	jobs, err := s.orch.StartAlbum(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Infof("accepted album download %s (%d tracks)", req.AlbumID, len(jobs))
	s.writeJSON(w, http.StatusAccepted, albumJobsResponse{AlbumID: req.AlbumID, Jobs: jobs})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	j, err := s.tracker.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleAlbumStatus(w http.ResponseWriter, r *http.Request) {
	albumID := mux.Vars(r)["id"]

	jobs := s.tracker.Album(albumID)
	resp := albumStatusResponse{AlbumID: albumID, Total: len(jobs), Jobs: jobs}
	if len(jobs) > 0 {
		resp.AlbumName = jobs[0].Track.Album
		resp.Artist = jobs[0].Track.AlbumArtist
		if resp.Artist == "" {
			resp.Artist = jobs[0].Track.Artist
		}
	}
	for _, j := range jobs {
		switch j.Status {
		case job.StatusCompleted:
			resp.Completed++
		case job.StatusError:
			resp.Failed++
		case job.StatusProcessing:
			if resp.Current == "" {
				resp.Current = j.Track.Name
			}
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleDownloadFile serves the finished audio of a completed local-location
// job. The file is staged in a temporary directory and removed after the
// response; a second request finds it gone and gets a 404.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	j, err := s.tracker.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	if j.Status != job.StatusCompleted || j.Result.FilePath == "" {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no file available for this job"})
		return
	}
	if _, err := os.Stat(j.Result.FilePath); err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "file no longer available"})
		return
	}

	w.Header().Set("Content-Disposition", "attachment")
	http.ServeFile(w, r, j.Result.FilePath)

	// Library placements keep their file; only locally staged copies are
	// one-shot.
	if j.Result.DownloadURL != "" {
		if err := utils.Cleanup(filepath.Dir(j.Result.FilePath)); err != nil {
			s.logger.Warnf("job %s: could not remove served file: %v", j.ID, err)
		}
	}
}

func (s *Server) handleReverseLookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	lookup, err := s.orch.ReverseLookup(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, lookup)
}

func (s *Server) handleReverseDownload(w http.ResponseWriter, r *http.Request) {
	var req download.ReverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	j, err := s.orch.StartReverse(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Infof("accepted reverse download job %s", j.ID)
	s.writeJSON(w, http.StatusAccepted, j)
}
