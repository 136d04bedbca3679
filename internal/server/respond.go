package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tournevent/myparcel/pkg/carrier"
	"github.com/tournevent/myparcel/pkg/jsonmap"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind carrier.Kind) int {
	switch kind {
	case carrier.KindValidation:
		return http.StatusBadRequest
	case carrier.KindNotFound:
		return http.StatusNotFound
	case carrier.KindPrecondition, carrier.KindConflict:
		return http.StatusConflict
	case carrier.KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// writeError renders err in the JSON error envelope. Errors outside the
// carrier taxonomy are internal and their message is not exposed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *carrier.Error
	if !errors.As(err, &cerr) {
		s.logger.Ctx(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal",
			Message: "Internal server error",
		})
		return
	}

	status := statusFor(cerr.Kind)
	if status >= http.StatusInternalServerError {
		s.logger.Ctx(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", cerr.Code),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{
		Error:   string(cerr.Kind),
		Message: cerr.Error(),
		Fields:  cerr.Fields,
	})
}

// decodeBody reads a JSON object body. An empty body yields an empty map.
func decodeBody(r *http.Request) (jsonmap.Map, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, carrier.ErrInvalidInput.WithCause(err)
	}
	body, err := jsonmap.Decode(raw)
	if err != nil {
		return nil, carrier.ErrInvalidInput.Withf("Request body must be JSON")
	}
	return body, nil
}
