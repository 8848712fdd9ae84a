package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/podwave/backend/internal/logging"
	"github.com/podwave/backend/internal/models"
	"github.com/podwave/backend/internal/repositories"
)

// AnalyticsHandler exposes listening analytics and workflow-timing endpoints.
type AnalyticsHandler struct {
	Analytics AnalyticsProvider
}

// Metrics handles GET /podcasts/metrics requests for the authenticated user.
func (h AnalyticsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Analytics == nil {
		logger.Error("analytics service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "analytics services unavailable"})
		return
	}

	userID := logging.UserIDFromContext(ctx)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	metrics, err := h.Analytics.PodcastMetrics(ctx, userID)
	if err != nil {
		logger.Error("failed to compute metrics", "error", err, "userId", userID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to compute metrics"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, metricsPayload(metrics))
}

// ListenEvent handles POST /podcasts/listen-event requests. Each call records
// an additional listening increment for the caller's current session.
func (h AnalyticsHandler) ListenEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Analytics == nil {
		logger.Error("analytics service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "analytics services unavailable"})
		return
	}

	userID := logging.UserIDFromContext(ctx)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req listenEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid listen event payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.PodcastID = strings.TrimSpace(req.PodcastID)
	if req.PodcastID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "podcastId is required"})
		return
	}
	if req.CurrentTime < 0 {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "currentTime must not be negative"})
		return
	}

	if err := h.Analytics.TrackListen(ctx, userID, req.PodcastID, req.CurrentTime); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "podcast not found"})
			return
		}
		logger.Error("failed to record listen event", "error", err, "podcastId", req.PodcastID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to record listen event"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"message": "listen event recorded"})
}

// UserListenTime handles GET /podcasts/{podcastId}/user-listen-time requests.
func (h AnalyticsHandler) UserListenTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Analytics == nil {
		logger.Error("analytics service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "analytics services unavailable"})
		return
	}

	userID := logging.UserIDFromContext(ctx)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	podcastID := strings.TrimSpace(r.PathValue("podcastId"))
	if podcastID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "podcast id is required"})
		return
	}

	total, err := h.Analytics.UserListenTime(ctx, userID, podcastID)
	if err != nil {
		logger.Error("failed to sum user listen time", "error", err, "podcastId", podcastID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to compute listen time"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, listenTimeResponse{TotalListenTime: total})
}

// TotalListenTime handles GET /podcasts/{podcastId}/total-listen-time requests.
func (h AnalyticsHandler) TotalListenTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Analytics == nil {
		logger.Error("analytics service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "analytics services unavailable"})
		return
	}

	podcastID := strings.TrimSpace(r.PathValue("podcastId"))
	if podcastID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "podcast id is required"})
		return
	}

	total, err := h.Analytics.PodcastListenTime(ctx, podcastID)
	if err != nil {
		logger.Error("failed to sum podcast listen time", "error", err, "podcastId", podcastID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to compute listen time"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, listenTimeResponse{TotalListenTime: total})
}

// GenerationTiming handles GET /podcasts/analytics/gemini requests. It reports
// the average script-generation latency over the requested window.
func (h AnalyticsHandler) GenerationTiming(w http.ResponseWriter, r *http.Request) {
	h.averageTiming(w, r, models.ProcessGeneration)
}

// SynthesisTiming handles GET /podcasts/analytics/polly requests. It reports
// the average speech-synthesis latency over the requested window.
func (h AnalyticsHandler) SynthesisTiming(w http.ResponseWriter, r *http.Request) {
	h.averageTiming(w, r, models.ProcessSynthesis)
}

func (h AnalyticsHandler) averageTiming(w http.ResponseWriter, r *http.Request, process string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Analytics == nil {
		logger.Error("analytics service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "analytics services unavailable"})
		return
	}

	start, end, err := timingWindow(r)
	if err != nil {
		logger.Warn("invalid timing window", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "startTime and endTime must be RFC 3339 timestamps"})
		return
	}

	avg, err := h.Analytics.AverageTiming(ctx, process, start, end)
	if err != nil {
		logger.Error("failed to compute average timing", "error", err, "process", process)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to compute average timing"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, averageTimingResponse{AverageTime: avg})
}

// timingWindow parses optional startTime and endTime query parameters. Zero
// values are returned for absent parameters; the analytics service applies its
// default window in that case.
func timingWindow(r *http.Request) (time.Time, time.Time, error) {
	var start, end time.Time

	if raw := strings.TrimSpace(r.URL.Query().Get("startTime")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("endTime")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
	}

	return start, end, nil
}

type listenEventRequest struct {
	PodcastID   string  `json:"podcastId"`
	CurrentTime float64 `json:"currentTime"`
}

type listenTimeResponse struct {
	TotalListenTime float64 `json:"totalListenTime"`
}

type averageTimingResponse struct {
	AverageTime float64 `json:"averageTime"`
}

type metricsResponse struct {
	TotalUsers                  int64   `json:"totalUsers"`
	TotalPodcasts               int64   `json:"totalPodcasts"`
	UserPodcasts                int64   `json:"userPodcasts"`
	AvgPodcastsPerUser          float64 `json:"avgPodcastsPerUser"`
	AvgPodcastsPerUploadingUser float64 `json:"avgPodcastsPerUploadingUser"`
	TotalDurationAllPodcasts    float64 `json:"totalDurationAllPodcasts"`
	TotalDurationUserPodcasts   float64 `json:"totalDurationUserPodcasts"`
}

func metricsPayload(m models.PodcastMetrics) metricsResponse {
	return metricsResponse{
		TotalUsers:                  m.TotalUsers,
		TotalPodcasts:               m.TotalPodcasts,
		UserPodcasts:                m.UserPodcasts,
		AvgPodcastsPerUser:          m.AvgPodcastsPerUser,
		AvgPodcastsPerUploadingUser: m.AvgPodcastsPerUploadingUser,
		TotalDurationAllPodcasts:    m.TotalDurationAllPodcasts,
		TotalDurationUserPodcasts:   m.TotalDurationUserPodcasts,
	}
}
