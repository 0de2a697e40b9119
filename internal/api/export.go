package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const exportChunk = 1000

// handleSessionExport streams a session's result log as CSV, one row per
// result with the values joined by spaces.
func (s *Server) handleSessionExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.reels.DB().GetSession(r.Context(), id); err != nil {
		s.errorHandler.HandleError(w, r, s.storeError(r, err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="session_%s.csv"`, id))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"seq", "run_index", "nonce", "recorded_at", "values"})

	for offset := 0; ; offset += exportChunk {
		recs, err := s.reels.DB().ListResults(r.Context(), id, exportChunk, offset)
		if err != nil {
			// Headers are gone; the truncated body is all we can signal.
			s.logger.Error("export aborted", zap.String("session_id", id), zap.Error(err))
			break
		}
		for _, rec := range recs {
			values := make([]string, len(rec.Values))
			for i, v := range rec.Values {
				values[i] = strconv.Itoa(v)
			}
			_ = cw.Write([]string{
				strconv.Itoa(rec.Seq),
				strconv.Itoa(rec.RunIndex),
				strconv.FormatUint(rec.Nonce, 10),
				rec.RecordedAt.UTC().Format(time.RFC3339Nano),
				strings.Join(values, " "),
			})
		}
		if len(recs) < exportChunk {
			break
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Warn("export write failed", zap.String("session_id", id), zap.Error(err))
	}
}
