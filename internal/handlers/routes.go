package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Tokens: deps.Tokens, Limiter: deps.AuthLimiter}
	podcasts := PodcastHandler{Workflow: deps.Workflow, Podcasts: deps.Podcasts}
	analytics := AnalyticsHandler{Analytics: deps.Analytics}

	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return RequireAuth(deps.Tokens, next)
	}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/auth/register", auth.Register)
	mux.HandleFunc("/auth/login", auth.Login)
	mux.HandleFunc("/auth/me", authed(auth.Me))
	mux.HandleFunc("/podcasts", authed(podcasts.List))
	mux.HandleFunc("/podcasts/initialize", authed(podcasts.Initialize))
	mux.HandleFunc("/podcasts/add", authed(podcasts.Add))
	mux.HandleFunc("/podcasts/edit/{id}", authed(podcasts.Edit))
	mux.HandleFunc("/podcasts/delete/{podcastId}", authed(podcasts.Delete))
	mux.HandleFunc("/podcasts/metrics", authed(analytics.Metrics))
	mux.HandleFunc("/podcasts/listen-event", authed(analytics.ListenEvent))
	mux.HandleFunc("/podcasts/analytics/gemini", authed(analytics.GenerationTiming))
	mux.HandleFunc("/podcasts/analytics/polly", authed(analytics.SynthesisTiming))
	mux.HandleFunc("/podcasts/{podcastId}", authed(podcasts.Get))
	mux.HandleFunc("/podcasts/{podcastId}/user-listen-time", authed(analytics.UserListenTime))
	mux.HandleFunc("/podcasts/{podcastId}/total-listen-time", authed(analytics.TotalListenTime))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users       UserStore
	Tokens      TokenManager
	Workflow    PodcastWorkflow
	Podcasts    PodcastStore
	Analytics   AnalyticsProvider
	AuthLimiter RateLimiter
}
