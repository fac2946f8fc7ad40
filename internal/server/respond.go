package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/KaramelBytes/chartloom/internal/ai"
	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/export"
	"github.com/KaramelBytes/chartloom/internal/insight"
)

// Error types reported in the errorType field.
const (
	TypeInvalidInput   = "InvalidInput"
	TypeNetworkFailure = "NetworkFailure"
	TypeRateLimited    = "RateLimited"
	TypeBusy           = "Busy"
	TypeNotFound       = "NotFound"
	TypeInternal       = "AnalysisFailure"
)

var errBusy = errors.New("An analysis is already in progress")

type notFoundError struct{ id string }

func (e *notFoundError) Error() string { return fmt.Sprintf("dataset %q not found", e.id) }

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "err", err)
	}
}

func jsonSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func jsonError(w http.ResponseWriter, status int, errorType, message string) {
	writeJSON(w, status, map[string]any{
		"status":    "error",
		"errorType": errorType,
		"error":     message,
	})
}

// classify maps an error to its HTTP status and error type.
func classify(err error) (int, string) {
	var (
		nf  *notFoundError
		bad *badRequestError
		rl  *ai.RateLimitError
	)
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound, TypeNotFound
	case errors.As(err, &bad),
		insight.IsInvalidInput(err),
		errors.Is(err, chart.ErrIncompleteSelection),
		errors.Is(err, chart.ErrUnknownColumn),
		errors.Is(err, chart.ErrEmptyChart),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, export.ErrNoAnalysis),
		errors.Is(err, export.ErrNoChart):
		return http.StatusBadRequest, TypeInvalidInput
	case errors.Is(err, insight.ErrNetwork):
		return http.StatusBadGateway, TypeNetworkFailure
	case errors.Is(err, errBusy):
		return http.StatusConflict, TypeBusy
	case errors.As(err, &rl):
		return http.StatusInternalServerError, TypeRateLimited
	default:
		return http.StatusInternalServerError, TypeInternal
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, typ := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		s.log.Warn("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	jsonError(w, status, typ, err.Error())
}

func sortEntries(es []*entry) {
	sort.Slice(es, func(i, j int) bool {
		if !es[i].Added.Equal(es[j].Added) {
			return es[i].Added.Before(es[j].Added)
		}
		return es[i].ID < es[j].ID
	})
}
