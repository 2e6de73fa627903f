package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/prepd/internal/attempts"
	"github.com/kalambet/prepd/internal/performance"
	"github.com/kalambet/prepd/internal/storage"
)

type AppDeps struct {
	Tracker  *performance.Tracker
	Attempts *attempts.Log
	Store    *storage.Store
	Token    string
	Version  string
}

type interviewRequest struct {
	Accuracy *float64 `json:"accuracy"`
}

type testRequest struct {
	Accuracy   *float64 `json:"accuracy"`
	Difficulty string   `json:"difficulty"`
}

type patchRequest struct {
	InterviewsCompleted *int     `json:"interviewsCompleted"`
	TestsCompleted      *int     `json:"testsCompleted"`
	AverageAccuracy     *float64 `json:"averageAccuracy"`
	DifficultyLevel     *string  `json:"difficultyLevel"`
}

type attemptRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// NewAppHandler serves the performance, activity and coding-attempt routes.
// Everything except /health requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/performance", handleGetPerformance(deps))
		r.Patch("/performance", handlePatchPerformance(deps))
		r.Delete("/performance", handleResetPerformance(deps))
		r.Get("/performance/insight", handleGetInsight(deps))
		r.Get("/performance/breakdown", handleGetBreakdown(deps))
		r.Post("/performance/interviews", handleRecordInterview(deps))
		r.Post("/performance/tests", handleRecordTest(deps))

		r.Get("/activities", handleListActivities(deps))

		r.Post("/coding-attempts", handleSubmitAttempt(deps))
		r.Get("/coding-attempts", handleListAttempts(deps))
		r.Delete("/coding-attempts", handleClearAttempts(deps))
		r.Get("/coding-attempts/{id}", handleGetAttempt(deps))
	})

	return r
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": deps.Version,
		})
	}
}

func handleGetPerformance(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Tracker.Summary())
	}
}

func handleRecordInterview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req interviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Accuracy == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "accuracy is required")
			return
		}

		rec, err := deps.Tracker.RecordInterview(*req.Accuracy)
		writeRecordResult(w, rec, err)
	}
}

func handleRecordTest(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req testRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Accuracy == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "accuracy is required")
			return
		}
		d, err := performance.ParseDifficulty(req.Difficulty)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		rec, err := deps.Tracker.RecordTest(*req.Accuracy, d)
		writeRecordResult(w, rec, err)
	}
}

func handlePatchPerformance(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req patchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		p := performance.Patch{
			InterviewsCompleted: req.InterviewsCompleted,
			TestsCompleted:      req.TestsCompleted,
			AverageAccuracy:     req.AverageAccuracy,
		}
		if req.DifficultyLevel != nil {
			d, err := performance.ParseDifficulty(*req.DifficultyLevel)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			p.DifficultyLevel = &d
		}
		if p.Empty() {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "no fields to update")
			return
		}

		rec, err := deps.Tracker.Update(p)
		writeRecordResult(w, rec, err)
	}
}

func handleResetPerformance(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Tracker.Reset(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to reset performance: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleGetInsight(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		s := deps.Tracker.Summary()

		var text string
		switch format {
		case "", "markdown":
			format = "markdown"
			text = s.Insight
		case "html":
			html, err := performance.InsightHTML(s.Record)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
				return
			}
			text = html
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "format must be markdown or html")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"level":   string(s.Level),
			"glyph":   s.Glyph,
			"format":  format,
			"insight": text,
		})
	}
}

func handleGetBreakdown(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := deps.Tracker.Breakdown()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compute breakdown: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func handleListActivities(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		activities, err := deps.Store.ListActivities(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list activities: %v", err)
			return
		}
		if activities == nil {
			activities = []storage.Activity{}
		}
		writeJSON(w, http.StatusOK, activities)
	}
}

func handleSubmitAttempt(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req attemptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		a, err := deps.Attempts.Submit(req.Language, req.Code)
		if errors.Is(err, attempts.ErrInvalidAttempt) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

func handleListAttempts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		list, err := deps.Attempts.List(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleGetAttempt(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		a, err := deps.Attempts.Get(id)
		if errors.Is(err, attempts.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "coding attempt not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get coding attempt: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func handleClearAttempts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Attempts.Clear()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete coding attempts: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "deleted": n})
	}
}

// writeRecordResult maps tracker results onto HTTP. A failed write still
// echoes the computed record so the client can display or retry it.
func writeRecordResult(w http.ResponseWriter, rec performance.Record, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, performance.Summarize(&rec))
	case errors.Is(err, performance.ErrWriteFailed):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": map[string]any{
				"message": err.Error(),
				"type":    "storage_error",
			},
			"record": rec,
		})
	case errors.Is(err, performance.ErrAccuracyOutOfRange),
		errors.Is(err, performance.ErrInvalidDifficulty),
		errors.Is(err, performance.ErrInvalidRecord):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}
