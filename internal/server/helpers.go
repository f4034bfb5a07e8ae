package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bobmcallan/tickerwise/internal/services/analysis"
)

// ErrorResponse is the {"error": ...} body shared by /analyze and the API routes.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON encodes data as the response body. /analyze always passes 200,
// even for errors.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes message as an ErrorResponse.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// RequireMethod reports whether r uses one of methods. Otherwise it answers
// 405 with an Allow header listing them.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// PathTicker returns the normalized ticker in the path segment after prefix,
// so "/api/chart/brk.b/" under "/api/chart/" gives "BRK.B". Empty when the
// path does not start with prefix or the segment is blank.
func PathTicker(r *http.Request, prefix string) string {
	rest, ok := strings.CutPrefix(r.URL.Path, prefix)
	if !ok {
		return ""
	}
	segment, _, _ := strings.Cut(rest, "/")
	return analysis.NormalizeTicker(segment)
}
