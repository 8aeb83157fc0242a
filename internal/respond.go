package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"rdw-inventory-api/internal/apperr"
	"rdw-inventory-api/internal/auth"
	"rdw-inventory-api/internal/listing"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError renders err as {"error","code"}. Storage failures are logged
// with their cause and reach the client only as a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.As(err)
	status := apperr.HTTPStatus(ae.Kind)

	fields := []zap.Field{
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("code", ae.Code),
	}
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", append(fields, zap.Error(err))...)
	} else {
		s.Logger.Debug("request rejected", append(fields, zap.String("reason", ae.Message))...)
	}

	if ae.Retryable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, auth.ErrorResponse{Error: ae.Message, Code: ae.Code})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, format string, args ...any) {
	s.writeError(w, r, apperr.InvalidArgument(format, args...))
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request, what string) {
	s.writeError(w, r, apperr.NotFound(what+"_not_found", what+" not found"))
}

func (s *Server) conflict(w http.ResponseWriter, r *http.Request, code, message string) {
	s.writeError(w, r, apperr.Conflict(code, message))
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, apperr.Storage(err, false))
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidArgument("id must be a positive integer")
	}
	return id, nil
}

// decodeJSON decodes the request body into dst and runs struct validation.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			return apperr.InvalidArgument("invalid JSON at offset %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return apperr.InvalidArgument("field %s has the wrong type", typeErr.Field)
		default:
			return apperr.InvalidArgument("invalid JSON: %v", err)
		}
	}
	return s.validateStruct(dst)
}

// sendListResponse writes one catalog page in the same envelope as the
// equipment listing, plus X-Total-Count.
func sendListResponse[T any](w http.ResponseWriter, rows []T, total int, params listParams) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, listing.NewPage(rows, params.page, params.pageSize, total))
}
