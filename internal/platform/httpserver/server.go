package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	votecoordinator "quorum/contexts/election-session/vote-coordinator"
	domainerrors "quorum/contexts/election-session/vote-coordinator/domain/errors"
	httptransport "quorum/contexts/election-session/vote-coordinator/transport/http"
	"quorum/internal/platform/messaging"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	session   votecoordinator.Module
	broadcast *messaging.Broadcast
}

func New(
	session votecoordinator.Module,
	broadcast *messaging.Broadcast,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		session:   session,
		broadcast: broadcast,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/session/authenticate", s.handleAuthenticate)
	s.mux.HandleFunc("GET /api/session/candidates", s.handleListCandidates)
	s.mux.HandleFunc("GET /api/session/voters/{voter_id}/status", s.handleVoteStatus)
	s.mux.HandleFunc("POST /api/session/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /api/session/tally", s.handleCurrentTally)
	s.mux.HandleFunc("GET /api/session/tally/stream", s.handleTallyStream)
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req httptransport.AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.session.Handler.AuthenticateHandler(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	resp, err := s.session.Handler.ListCandidatesHandler(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoteStatus(w http.ResponseWriter, r *http.Request) {
	voterID, err := strconv.ParseInt(r.PathValue("voter_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_voter_id", "voter_id must be an integer")
		return
	}
	writeJSON(w, http.StatusOK, s.session.Handler.VoteStatusHandler(r.Context(), voterID))
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req httptransport.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.session.Handler.CastVoteHandler(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCurrentTally(w http.ResponseWriter, r *http.Request) {
	resp, err := s.session.Handler.CurrentTallyHandler(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeDomainError maps session sentinels to transport status codes. Anything
// unrecognized is a storage failure surfaced as a generic retryable error.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", "request input is invalid")
	case errors.Is(err, domainerrors.ErrVoterNotFound):
		writeError(w, http.StatusNotFound, "voter_not_found", "voter is not registered")
	case errors.Is(err, domainerrors.ErrUnknownCandidate):
		writeError(w, http.StatusUnprocessableEntity, "unknown_candidate", "candidate does not exist")
	case errors.Is(err, domainerrors.ErrAlreadyVoted):
		writeError(w, http.StatusConflict, "already_voted", "you have already voted")
	default:
		writeError(w, http.StatusInternalServerError, "storage_error", "storage operation failed")
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, httptransport.ErrorResponse{
		Success: false,
		Error: httptransport.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
