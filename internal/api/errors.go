package api

import (
	"errors"
	"net/http"

	"github.com/alexanderramin/waypoint/internal/domain"
)

type errorJSON struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps a PivotError code to its HTTP status. A capacity error
// is not a failure for the caller: the engine declined to propose, so the
// response is a 200 with a null pivot.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *domain.PivotError
	if !errors.As(err, &pe) {
		s.logger.Error("unhandled request error", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": errorJSON{Code: "INTERNAL", Message: "internal error"},
		})
		return
	}

	status := http.StatusInternalServerError
	switch pe.Code {
	case domain.CodeCapacity:
		writeJSON(w, http.StatusOK, map[string]any{"pivot": nil, "reason": pe.Message})
		return
	case domain.CodeValidation:
		status = http.StatusBadRequest
	case domain.CodeForbidden:
		status = http.StatusForbidden
	case domain.CodeNotFound:
		status = http.StatusNotFound
	case domain.CodeConflict:
		status = http.StatusConflict
	case domain.CodeTimeout:
		status = http.StatusGatewayTimeout
	case domain.CodeDataIntegrity:
		s.logger.Error("data integrity violation", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]any{"error": errorJSON{Code: string(pe.Code), Message: pe.Message}})
}
