// Package devserver is a local stand-in for the remote transcription
// service, implementing the same HTTP contract the client polls:
// POST /transcribe and GET /status/{filename}, backed by a sqlite job
// table and a fake transcription worker.
package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Server serves the transcription job API.
type Server struct {
	store           *Store
	log             zerolog.Logger
	processingDelay time.Duration
}

// NewServer creates a server over the given store. processingDelay is
// how long the fake worker "transcribes" before finishing.
func NewServer(store *Store, processingDelay time.Duration, log zerolog.Logger) *Server {
	return &Server{store: store, log: log, processingDelay: processingDelay}
}

// Router builds the HTTP mux for the job API.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Post("/transcribe", s.handleTranscribe)
	r.Get("/status/{filename}", s.handleStatus)
	return r
}

// handleTranscribe accepts a multipart upload, enforces one active job
// per filename, and queues the fake transcription worker.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided."})
		return
	}
	defer file.Close()

	filename := header.Filename
	existing, found, err := s.store.GetByFilename(filename)
	if err != nil {
		s.log.Error().Err(err).Str("filename", filename).Msg("lookup job")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to query jobs."})
		return
	}
	if found {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  fmt.Sprintf("A job with the filename '%s' already exists.", filename),
			"job_id": existing.ID,
		})
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read file."})
		return
	}

	jobID := uuid.New().String()
	if err := s.store.CreateJob(jobID, filename); err != nil {
		s.log.Error().Err(err).Str("filename", filename).Msg("create job")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create job."})
		return
	}

	s.log.Info().Str("job_id", jobID).Str("filename", filename).Int("bytes", len(audio)).Msg("job queued")
	go s.runJob(jobID, filename, len(audio))

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id":   jobID,
		"filename": filename,
		"message":  "Transcription has been queued. Check status using the filename.",
	})
}

// handleStatus reports the job row for a filename, 404 while none is
// visible yet.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	job, found, err := s.store.GetByFilename(filename)
	if err != nil {
		s.log.Error().Err(err).Str("filename", filename).Msg("query status")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to query job."})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found."})
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to do.
		return
	}
}
