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

// PodcastHandler exposes the podcast creation workflow and catalog endpoints.
type PodcastHandler struct {
	Workflow PodcastWorkflow
	Podcasts PodcastStore
}

// Initialize handles POST /podcasts/initialize requests. It generates a set of
// candidate scripts for the supplied prompt without creating any podcast.
func (h PodcastHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Workflow == nil {
		logger.Error("podcast workflow unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "podcast services unavailable"})
		return
	}

	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid initialize payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		logger.Warn("initialize missing prompt")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "prompt is required and must be a string"})
		return
	}

	options, elapsed, err := h.Workflow.GenerateOptions(ctx, req.Prompt)
	if err != nil {
		logger.Error("failed to generate options", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to generate podcast options"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, initializeResponse{
		Options:  options,
		Duration: durationMillis(elapsed),
	})
}

// Add handles POST /podcasts/add requests. The selected script is voiced,
// uploaded and persisted as a new podcast owned by the caller.
func (h PodcastHandler) Add(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Workflow == nil {
		logger.Error("podcast workflow unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "podcast services unavailable"})
		return
	}

	userID := logging.UserIDFromContext(ctx)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid add payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.SelectedOption = strings.TrimSpace(req.SelectedOption)
	if req.SelectedOption == "" {
		logger.Warn("add missing selected option")
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "selectedOption is required and must be a string"})
		return
	}

	podcast, elapsed, err := h.Workflow.Create(ctx, userID, req.SelectedOption, req.Title, req.Description)
	if err != nil {
		logger.Error("failed to create podcast", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to convert text to speech or create podcast"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, addResponse{
		Message:  "podcast created successfully",
		Podcast:  podcastView(podcast),
		Duration: durationMillis(elapsed),
	})
}

// Edit handles PUT /podcasts/edit/{id} requests. Absent fields keep their
// stored values.
func (h PodcastHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Podcasts == nil {
		logger.Error("podcast store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "podcast services unavailable"})
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "podcast id is required"})
		return
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid edit payload", "error", err, "podcastId", id)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	podcast, err := h.Podcasts.Update(ctx, id, req.Title, req.Description)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "podcast not found"})
			return
		}
		logger.Error("failed to update podcast", "error", err, "podcastId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update podcast"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, podcastResponse{Podcast: podcastView(podcast)})
}

// Delete handles DELETE /podcasts/delete/{podcastId} requests.
func (h PodcastHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Workflow == nil {
		logger.Error("podcast workflow unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "podcast services unavailable"})
		return
	}

	id := strings.TrimSpace(r.PathValue("podcastId"))
	if id == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "podcast id is required"})
		return
	}

	if err := h.Workflow.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "podcast not found"})
			return
		}
		logger.Error("failed to delete podcast", "error", err, "podcastId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to delete podcast"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"message": "podcast deleted successfully"})
}

// List handles GET /podcasts requests.
func (h PodcastHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Podcasts == nil {
		logger.Error("podcast store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "podcast services unavailable"})
		return
	}

	podcasts, err := h.Podcasts.List(ctx)
	if err != nil {
		logger.Error("failed to list podcasts", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to list podcasts"})
		return
	}

	payload := make([]podcastPayload, 0, len(podcasts))
	for _, p := range podcasts {
		payload = append(payload, podcastView(p))
	}

	respondJSON(ctx, w, http.StatusOK, listResponse{Podcasts: payload})
}

// Get handles GET /podcasts/{podcastId} requests.
func (h PodcastHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Podcasts == nil {
		logger.Error("podcast store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "podcast services unavailable"})
		return
	}

	id := strings.TrimSpace(r.PathValue("podcastId"))
	if id == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "podcast id is required"})
		return
	}

	podcast, err := h.Podcasts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "podcast not found"})
			return
		}
		logger.Error("failed to load podcast", "error", err, "podcastId", id)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load podcast"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, podcastResponse{Podcast: podcastView(podcast)})
}

type initializeRequest struct {
	Prompt string `json:"prompt"`
}

type initializeResponse struct {
	Options  []string `json:"options"`
	Duration float64  `json:"duration"`
}

type addRequest struct {
	SelectedOption string `json:"selectedOption"`
	Title          string `json:"title"`
	Description    string `json:"description"`
}

type addResponse struct {
	Message  string         `json:"message"`
	Podcast  podcastPayload `json:"podcast"`
	Duration float64        `json:"duration"`
}

type editRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type podcastResponse struct {
	Podcast podcastPayload `json:"podcast"`
}

type listResponse struct {
	Podcasts []podcastPayload `json:"podcasts"`
}

type podcastPayload struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	AudioURL    string       `json:"audioUrl"`
	Duration    float64      `json:"duration"`
	UploadedBy  ownerPayload `json:"uploadedBy"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type ownerPayload struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

func podcastView(p models.Podcast) podcastPayload {
	return podcastPayload{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		AudioURL:    p.AudioURL,
		Duration:    p.Duration,
		UploadedBy:  ownerPayload{ID: p.OwnerID, Email: p.OwnerEmail},
		CreatedAt:   p.CreatedAt,
	}
}

func durationMillis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
