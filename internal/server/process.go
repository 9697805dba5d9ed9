package server

import (
	"log/slog"
	"net/http"

	"github.com/teemow/propertyinbox/internal/logging"
	"github.com/teemow/propertyinbox/internal/organizer"
)

// RunIDHeader carries the run id of a POST /process response.
const RunIDHeader = "X-Run-ID"

// ErrorResponse is the body of a failed run.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

// ProcessHandler returns the handler of POST /process. The request body is
// ignored. A completed run answers 200 with the RunSummary, a run that could
// not enumerate candidates answers 500. The run is bound to the request
// context.
func ProcessHandler(sc *ServerContext, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		summary, err := sc.Run(r.Context(), organizer.TriggerHTTP)
		if summary != nil {
			w.Header().Set(RunIDHeader, summary.RunID)
		}
		if err != nil {
			logger.Error("process request failed", logging.Operation("process"), logging.Err(err))
			resp := ErrorResponse{Status: organizer.StatusError, Message: err.Error()}
			if summary != nil {
				resp.RunID = summary.RunID
			}
			writeJSON(w, http.StatusInternalServerError, resp)
			return
		}
		if summary == nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{
				Status:  organizer.StatusError,
				Message: "run produced no summary",
			})
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})
}
