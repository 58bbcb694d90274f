// internal/api/server.go

// Package api exposes the harvester over HTTP: start and stop scans,
// poll progress, and fetch results.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/valpere/CommentHarvester/internal/monitoring"
	"github.com/valpere/CommentHarvester/internal/scan"
	"github.com/valpere/CommentHarvester/internal/utils"
)

// Server is the HTTP control surface over a scan service.
type Server struct {
	service    *scan.Service
	health     *monitoring.Health
	logger     utils.Logger
	defaultURL string
}

// NewServer creates the API server. defaultURL is used when a start
// request carries no post URL. health may be nil.
func NewServer(service *scan.Service, health *monitoring.Health, defaultURL string, logger utils.Logger) *Server {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Server{
		service:    service,
		health:     health,
		logger:     logger.WithField("component", "api"),
		defaultURL: defaultURL,
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	if s.health != nil {
		r.Handle("/health", s.health.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/scan", s.handleStart).Methods("POST")
	api.HandleFunc("/scan/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/scan/progress", s.handleProgress).Methods("GET")
	api.HandleFunc("/scan/results", s.handleResults).Methods("GET")

	return r
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:         address,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Infof("api listening on %s", address)
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

type startRequest struct {
	PostURL string `json:"post_url"`
}

type startResponse struct {
	Token   string `json:"token"`
	PostURL string `json:"post_url"`
}

type stopRequest struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.Body != nil {
		// An empty body starts a scan of the configured post.
		json.NewDecoder(r.Body).Decode(&req)
	}
	postURL := req.PostURL
	if postURL == "" {
		postURL = s.defaultURL
	}
	if postURL == "" {
		s.writeError(w, http.StatusBadRequest, utils.NewError(utils.ErrCodeValidation, "post_url is required"))
		return
	}

	token, err := s.service.Start(postURL)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	s.logger.Infof("scan started for %s", postURL)
	s.writeJSON(w, http.StatusAccepted, startResponse{Token: token, PostURL: postURL})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, utils.NewError(utils.ErrCodeValidation, "invalid request body"))
		return
	}
	if req.Token == "" {
		s.writeError(w, http.StatusBadRequest, utils.NewError(utils.ErrCodeValidation, "token is required"))
		return
	}

	if err := s.service.Stop(req.Token); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if !s.checkToken(w, r) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.service.Progress())
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if !s.checkToken(w, r) {
		return
	}
	result, ok := s.service.Result()
	if !ok {
		s.writeError(w, http.StatusNotFound, utils.NewError(utils.ErrCodeValidation, "no completed scan"))
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// checkToken validates the session token carried on a read request, as
// the X-Scan-Token header or the token query parameter.
func (s *Server) checkToken(w http.ResponseWriter, r *http.Request) bool {
	token := r.Header.Get("X-Scan-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		s.writeError(w, http.StatusBadRequest, utils.NewError(utils.ErrCodeValidation, "token is required"))
		return false
	}
	if err := s.service.ValidateToken(token); err != nil {
		s.writeError(w, statusFor(err), err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Errorf("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error(), Code: string(utils.CodeOf(err))}
	s.writeJSON(w, status, resp)
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch utils.CodeOf(err) {
	case utils.ErrCodeScanBusy:
		return http.StatusConflict
	case utils.ErrCodeScanStopped:
		return http.StatusConflict
	case utils.ErrCodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
