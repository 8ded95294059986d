// Package server exposes socket generation over HTTP.
//
// Routes:
//
//	GET  /health            liveness probe
//	POST /api/make-socket   run a shell job, multipart form
//	GET  /static/...        generated artifacts under the data root
//
// The make-socket form accepts either an uploaded "file" (binary STL) or a
// "limb_path" pointing at a mesh already present on the server, plus
// optional "params" (plan JSON), "marks" (mark list JSON) and "recipe"
// (recipe source, overrides params/marks).
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/akrolimb/socketlab/pkg/config"
	"github.com/akrolimb/socketlab/pkg/job"
	"github.com/akrolimb/socketlab/pkg/recipe"
	"github.com/akrolimb/socketlab/pkg/socket"
)

var log = logrus.WithField("component", "server")

const maxUploadBytes = 256 << 20

// Server handles socket generation requests.
type Server struct {
	cfg    config.Config
	engine *recipe.Engine
	router *mux.Router
}

// New builds a Server and its route table.
func New(cfg config.Config) *Server {
	s := &Server{
		cfg:    cfg,
		engine: recipe.NewEngine(),
		router: mux.NewRouter(),
	}
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/make-socket", s.handleMakeSocket).Methods(http.MethodPost)
	s.router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.DataRoot))))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe blocks serving HTTP on the configured port.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	log.WithField("addr", addr).Info("listening")
	return http.ListenAndServe(addr, s)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// makeSocketResponse is the JSON body returned by a successful job.
type makeSocketResponse struct {
	JobID   string            `json:"job_id"`
	Outputs map[string]string `json:"outputs"`
	Stats   socket.Stats      `json:"stats"`
}

func (s *Server) handleMakeSocket(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse form: %w", err))
		return
	}

	req := job.Request{
		ParamsJSON: r.FormValue("params"),
		MarksJSON:  r.FormValue("marks"),
		Recipe:     r.FormValue("recipe"),
		LimbPath:   r.FormValue("limb_path"),
	}

	jobID := newJobID()
	outDir := filepath.Join(s.cfg.DataRoot, jobID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("create job dir: %w", err))
		return
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		uploaded := filepath.Join(outDir, "limb.stl")
		if err := saveUpload(file, uploaded); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		log.WithFields(logrus.Fields{
			"job":  jobID,
			"file": header.Filename,
			"size": header.Size,
		}).Info("limb uploaded")
		req.LimbPath = uploaded
	}
	if req.LimbPath == "" {
		writeError(w, http.StatusBadRequest,
			fmt.Errorf("either a file upload or limb_path is required"))
		return
	}

	result, err := job.Run(req, outDir, s.engine)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	outputs := make(map[string]string, len(result.Outputs))
	for name, path := range result.Outputs {
		rel, relErr := filepath.Rel(s.cfg.DataRoot, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		outputs[name] = "/static/" + filepath.ToSlash(rel)
	}

	log.WithFields(logrus.Fields{
		"job":      jobID,
		"faces":    result.Stats.Faces,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("socket generated")

	writeJSON(w, http.StatusOK, makeSocketResponse{
		JobID:   jobID,
		Outputs: outputs,
		Stats:   result.Stats,
	})
}

func saveUpload(src io.Reader, dst string) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	return nil
}

func newJobID() string {
	return time.Now().UTC().Format("20060102-150405.000000000")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	log.WithError(err).Warn("request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
