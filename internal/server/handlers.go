package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/gremlin"
	"github.com/matzehuels/neptune-utils/pkg/loader"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

type gremlinRequest struct {
	Gremlin  string         `json:"gremlin"`
	Bindings map[string]any `json:"bindings,omitempty"`
}

type gremlinResponse struct {
	Result []any `json:"result"`
}

type loadStartResponse struct {
	LoadID string `json:"loadId"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Status == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "status is not configured"))
		return
	}
	data, err := s.opts.Status.Status(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !json.Valid(data) {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidFormat, "cluster returned a non-JSON status"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleGremlin(w http.ResponseWriter, r *http.Request) {
	if s.opts.Gremlin == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "gremlin is not configured"))
		return
	}
	var req gremlinRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Gremlin == "" {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidQuery, "gremlin script cannot be empty"))
		return
	}

	results, err := s.opts.Gremlin.Submit(r.Context(), req.Gremlin, req.Bindings)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]any, len(results))
	for i, v := range results {
		out[i] = gremlin.Plain(v)
	}
	writeJSON(w, http.StatusOK, gremlinResponse{Result: out})
}

func (s *Server) handleLoadStart(w http.ResponseWriter, r *http.Request) {
	if s.opts.Loader == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "loader is not configured"))
		return
	}
	var req loader.Request
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidLoadRequest, err, "decode load request"))
		return
	}
	if req.Region == "" {
		req.Region = s.opts.Region
	}

	id, err := s.opts.Loader.Start(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("Started load", "load_id", id, "source", req.Source)
	writeJSON(w, http.StatusAccepted, loadStartResponse{LoadID: id})
}

func (s *Server) handleLoadStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Loader == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "loader is not configured"))
		return
	}
	q := r.URL.Query()
	opts := loader.StatusOptions{
		Details: q.Get("details") == "true",
		Errors:  q.Get("errors") == "true",
	}
	st, err := s.opts.Loader.Status(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleLoadCancel(w http.ResponseWriter, r *http.Request) {
	if s.opts.Loader == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "loader is not configured"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.opts.Loader.Cancel(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("Cancelled load", "load_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCodeOr(err, errors.ErrCodeInternal)
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "code", code, "err", err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorResponse{Code: errors.ErrCodeInternal, Message: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
